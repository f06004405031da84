package checkpoint_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/agentcore/runtime/checkpoint"
)

func TestPersistedLoopStateRoundTripsKnownFields(t *testing.T) {
	want := checkpoint.PersistedLoopState{
		TaskID:         "task_1",
		AgentID:        "agent_1",
		ContextID:      "ctx_1",
		Iteration:      3,
		Completed:      true,
		ResumeFrom:     checkpoint.ResumeFromCompleted,
		LastActivityAt: time.Now().UTC().Truncate(time.Second),
		Messages: []checkpoint.PersistedMessage{
			{Role: "user", Content: "hi", Index: 0},
		},
	}

	raw, err := json.Marshal(want)
	require.NoError(t, err)

	var got checkpoint.PersistedLoopState
	require.NoError(t, json.Unmarshal(raw, &got))

	require.Equal(t, want.TaskID, got.TaskID)
	require.Equal(t, want.Iteration, got.Iteration)
	require.True(t, got.Completed)
	require.Equal(t, checkpoint.ResumeFromCompleted, got.ResumeFrom)
	require.True(t, want.LastActivityAt.Equal(got.LastActivityAt))
}

// TestPersistedLoopStatePreservesUnknownFields guards §9's open question:
// a document written by a newer or older binary must survive a round-trip
// through this one without losing the fields it doesn't recognize.
func TestPersistedLoopStatePreservesUnknownFields(t *testing.T) {
	raw := []byte(`{
		"taskId": "task_1",
		"agentId": "agent_1",
		"contextId": "ctx_1",
		"iteration": 1,
		"messages": [],
		"resumeFrom": "llm-call",
		"lastActivityAt": "2026-01-01T00:00:00Z",
		"a2aArtifactRefs": ["legacy-ref-1"],
		"deprecatedSessionTag": "v1"
	}`)

	var state checkpoint.PersistedLoopState
	require.NoError(t, json.Unmarshal(raw, &state))
	require.Equal(t, []any{"legacy-ref-1"}, state.Unknown["a2aArtifactRefs"])
	require.Equal(t, "v1", state.Unknown["deprecatedSessionTag"])

	out, err := json.Marshal(state)
	require.NoError(t, err)

	var merged map[string]any
	require.NoError(t, json.Unmarshal(out, &merged))
	require.Equal(t, []any{"legacy-ref-1"}, merged["a2aArtifactRefs"])
	require.Equal(t, "v1", merged["deprecatedSessionTag"])
	require.Equal(t, "task_1", merged["taskId"])
}
