// Package checkpoint implements the task checkpoint store (§4.D):
// per-turn resumable loop state for crash recovery, with a background
// cleanup service that evicts tasks past a last-activity cutoff.
package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/agentcore/runtime"
)

// ResumeFrom tags where a resumed turn must re-enter the agent loop.
type ResumeFrom string

const (
	ResumeFromLLMCall       ResumeFrom = "llm-call"
	ResumeFromToolExecution ResumeFrom = "tool-execution"
	ResumeFromSubAgent      ResumeFrom = "sub-agent"
	ResumeFromCompleted     ResumeFrom = "completed"
)

// ErrNotFound is returned by Load when no state is persisted for a task.
var ErrNotFound = errors.New("checkpoint: not found")

// PersistedToolCall is the subset of an assistant tool call needed to
// correlate pending and completed results across a resume.
type PersistedToolCall struct {
	ToolCallID string         `json:"toolCallId"`
	Name       string         `json:"name"`
	Arguments  map[string]any `json:"arguments"`
}

// PersistedToolResult is a completed tool invocation's recorded outcome.
type PersistedToolResult struct {
	ToolCallID string `json:"toolCallId"`
	Success    bool   `json:"success"`
	Content    string `json:"content"`
	Error      string `json:"error,omitempty"`
}

// PersistedMessage mirrors message.Message's wire shape without importing
// the message package, so checkpoint stays a leaf dependency reusable by
// any caller regardless of which message store it runs against.
type PersistedMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	ToolCallID string         `json:"toolCallId,omitempty"`
	Name       string         `json:"name,omitempty"`
	ToolCalls  []PersistedToolCall `json:"toolCalls,omitempty"`
	Index      int            `json:"index"`
}

// PersistedLLMResponse captures the last LLM response observed by the loop,
// enough to resume without recalling a finished generation (§8 scenario 5).
type PersistedLLMResponse struct {
	Content      string              `json:"content"`
	Finished     bool                `json:"finished"`
	FinishReason string              `json:"finishReason,omitempty"`
	ToolCalls    []PersistedToolCall `json:"toolCalls,omitempty"`
}

// PersistedLoopState is the §4.D state payload: a JSON document with a
// stable key set. Unknown keys observed on a round-trip must be preserved
// rather than dropped, since a deployment may run stores of mixed versions
// against the same persisted documents.
type PersistedLoopState struct {
	TaskID       agentcore.TaskID    `json:"taskId"`
	AgentID      agentcore.AgentID   `json:"agentId"`
	ParentTaskID *agentcore.TaskID   `json:"parentTaskId,omitempty"`
	ContextID    agentcore.ContextID `json:"contextId"`

	Messages     []PersistedMessage `json:"messages"`
	SystemPrompt string              `json:"systemPrompt,omitempty"`

	Iteration int  `json:"iteration"`
	Completed bool `json:"completed"`

	AvailableTools     []string                        `json:"availableTools,omitempty"`
	PendingToolCalls    []PersistedToolCall             `json:"pendingToolCalls,omitempty"`
	CompletedToolCalls  map[string]PersistedToolResult  `json:"completedToolCalls,omitempty"`

	ArtifactIDs []string `json:"artifactIds,omitempty"`

	SubAgentSnapshots map[string]PersistedLoopState `json:"subAgentSnapshots,omitempty"`

	LastLLMResponse *PersistedLLMResponse `json:"lastLLMResponse,omitempty"`

	LastActivityAt time.Time  `json:"lastActivityAt"`
	ResumeFrom     ResumeFrom `json:"resumeFrom"`

	// Unknown preserves any field the current binary doesn't recognize, so
	// a round-trip through an older or newer store never silently drops data.
	Unknown map[string]any `json:"-"`
}

// persistedLoopStateAlias has PersistedLoopState's exact field set so
// MarshalJSON/UnmarshalJSON can delegate to encoding/json's struct
// machinery without recursing into themselves.
type persistedLoopStateAlias PersistedLoopState

// knownLoopStateKeys are the JSON names of every tagged field in
// persistedLoopStateAlias; UnmarshalJSON treats anything outside this set
// as an unknown key to preserve verbatim.
var knownLoopStateKeys = map[string]struct{}{
	"taskId": {}, "agentId": {}, "parentTaskId": {}, "contextId": {},
	"messages": {}, "systemPrompt": {}, "iteration": {}, "completed": {},
	"availableTools": {}, "pendingToolCalls": {}, "completedToolCalls": {},
	"artifactIds": {}, "subAgentSnapshots": {}, "lastLLMResponse": {},
	"lastActivityAt": {}, "resumeFrom": {},
}

// MarshalJSON emits the known fields plus every entry of Unknown merged
// back into the top-level object, so a document round-tripped through an
// older or newer binary never silently drops fields it didn't recognize.
func (p PersistedLoopState) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(persistedLoopStateAlias(p))
	if err != nil {
		return nil, err
	}
	if len(p.Unknown) == 0 {
		return known, nil
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(known, &merged); err != nil {
		return nil, err
	}
	for k, v := range p.Unknown {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		merged[k] = raw
	}
	return json.Marshal(merged)
}

// UnmarshalJSON decodes the known fields normally and stashes any key not
// in knownLoopStateKeys into Unknown.
func (p *PersistedLoopState) UnmarshalJSON(data []byte) error {
	var alias persistedLoopStateAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	*p = PersistedLoopState(alias)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for k, v := range raw {
		if _, ok := knownLoopStateKeys[k]; ok {
			continue
		}
		if p.Unknown == nil {
			p.Unknown = make(map[string]any)
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return err
		}
		p.Unknown[k] = val
	}
	return nil
}

// ListFilter narrows ListTasks.
type ListFilter struct {
	AgentID       *agentcore.AgentID
	ContextID     *agentcore.ContextID
	CompletedAfter *time.Time
}

// Store is the task checkpoint store contract (§4.D).
type Store interface {
	Save(ctx context.Context, state PersistedLoopState) error
	Load(ctx context.Context, taskID agentcore.TaskID) (PersistedLoopState, error)
	Exists(ctx context.Context, taskID agentcore.TaskID) (bool, error)
	Delete(ctx context.Context, taskID agentcore.TaskID) error
	ListTasks(ctx context.Context, filter ListFilter) ([]agentcore.TaskID, error)
	SetTTL(ctx context.Context, taskID agentcore.TaskID, ttl time.Duration) error
}
