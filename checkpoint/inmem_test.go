package checkpoint_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/agentcore/runtime"
	"github.com/agentcore/runtime/artifact"
	"github.com/agentcore/runtime/checkpoint"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	store := checkpoint.NewInMemoryStore()
	ctx := context.Background()

	state := checkpoint.PersistedLoopState{
		TaskID:         "task_1",
		AgentID:        "agent_1",
		ContextID:      "ctx_1",
		Iteration:      2,
		ResumeFrom:     checkpoint.ResumeFromToolExecution,
		LastActivityAt: time.Now(),
		Messages: []checkpoint.PersistedMessage{
			{Role: "user", Content: "hi", Index: 0},
		},
	}
	require.NoError(t, store.Save(ctx, state))

	exists, err := store.Exists(ctx, "task_1")
	require.NoError(t, err)
	require.True(t, exists)

	got, err := store.Load(ctx, "task_1")
	require.NoError(t, err)
	require.Equal(t, state.Iteration, got.Iteration)
	require.Equal(t, checkpoint.ResumeFromToolExecution, got.ResumeFrom)
}

func TestLoadMissingReturnsNotFound(t *testing.T) {
	store := checkpoint.NewInMemoryStore()
	_, err := store.Load(context.Background(), "missing")
	require.ErrorIs(t, err, checkpoint.ErrNotFound)
}

func TestListTasksFiltersByAgentAndContext(t *testing.T) {
	store := checkpoint.NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, checkpoint.PersistedLoopState{TaskID: "t1", AgentID: "a1", ContextID: "c1", LastActivityAt: time.Now()}))
	require.NoError(t, store.Save(ctx, checkpoint.PersistedLoopState{TaskID: "t2", AgentID: "a1", ContextID: "c2", LastActivityAt: time.Now()}))
	require.NoError(t, store.Save(ctx, checkpoint.PersistedLoopState{TaskID: "t3", AgentID: "a2", ContextID: "c1", LastActivityAt: time.Now()}))

	a1 := agentcore.AgentID("a1")
	ids, err := store.ListTasks(ctx, checkpoint.ListFilter{AgentID: &a1})
	require.NoError(t, err)
	require.Len(t, ids, 2)
}

func TestSetTTLThenExpire(t *testing.T) {
	store := checkpoint.NewInMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, checkpoint.PersistedLoopState{TaskID: "t1", LastActivityAt: time.Now()}))
	require.NoError(t, store.SetTTL(ctx, "t1", -time.Second))

	_, err := store.Load(ctx, "t1")
	require.ErrorIs(t, err, checkpoint.ErrNotFound)
}

func TestCleanupServiceDeletesStaleTasksAndArtifacts(t *testing.T) {
	store := checkpoint.NewInMemoryStore()
	artifacts := artifact.NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, artifacts.CreateData(ctx, artifact.CreateParams{ArtifactID: "art1", TaskID: "t1", ContextID: "c1"}))
	require.NoError(t, store.Save(ctx, checkpoint.PersistedLoopState{
		TaskID: "t1", ArtifactIDs: []string{"art1"},
		LastActivityAt: time.Now().Add(-48 * time.Hour),
	}))
	require.NoError(t, store.Save(ctx, checkpoint.PersistedLoopState{
		TaskID: "t2", LastActivityAt: time.Now(),
	}))

	svc := checkpoint.NewCleanupService(checkpoint.CleanupOptions{Store: store, Artifacts: artifacts})
	svc.Sweep(ctx)

	_, err := store.Load(ctx, "t1")
	require.ErrorIs(t, err, checkpoint.ErrNotFound)
	_, err = artifacts.GetArtifact(ctx, "art1")
	require.ErrorIs(t, err, artifact.ErrNotFound)

	_, err = store.Load(ctx, "t2")
	require.NoError(t, err)
}
