// Package stream defines the event type union emitted by the agent loop and
// the emitter/replay machinery that delivers those events to subscribers.
// This is the leaf module the loop and the session both depend on, so the
// two never need to import each other.
package stream

import "github.com/agentcore/runtime"

// EventType identifies the kind of an Event. The set is closed: every
// concrete event type below reports one of these constants from Type().
type EventType string

const (
	EventTaskCreated    EventType = "task-created"
	EventTaskStatus     EventType = "task-status"
	EventTaskComplete   EventType = "task-complete"
	EventTaskFailed     EventType = "task-failed"
	EventContentDelta   EventType = "content-delta"
	EventContentComplete EventType = "content-complete"
	EventThoughtStream  EventType = "thought-stream"
	EventToolStart      EventType = "tool-start"
	EventToolComplete   EventType = "tool-complete"
	EventFileWrite      EventType = "file-write"
	EventDataWrite      EventType = "data-write"
	EventDatasetWrite   EventType = "dataset-write"

	// EventLLMCall and EventCheckpoint are internal: not guaranteed to ship
	// to external subscribers (§2, component A). They are useful for
	// debug profiles and are filtered out by DefaultProfile/UserChatProfile.
	EventLLMCall    EventType = "llm-call"
	EventCheckpoint EventType = "checkpoint"
)

// TaskStatusState enumerates the A2A-flavored task lifecycle states carried
// by TaskStatus events.
type TaskStatusState string

const (
	TaskStatusSubmitted     TaskStatusState = "submitted"
	TaskStatusWorking       TaskStatusState = "working"
	TaskStatusInputRequired TaskStatusState = "input-required"
	TaskStatusCompleted     TaskStatusState = "completed"
	TaskStatusCanceled      TaskStatusState = "canceled"
	TaskStatusFailed        TaskStatusState = "failed"
	TaskStatusRejected      TaskStatusState = "rejected"
	TaskStatusAuthRequired  TaskStatusState = "auth-required"
)

// ThoughtType enumerates the kinds of reasoning a ThoughtStream event may carry.
type ThoughtType string

const (
	ThoughtPlanning    ThoughtType = "planning"
	ThoughtReasoning   ThoughtType = "reasoning"
	ThoughtReflection  ThoughtType = "reflection"
	ThoughtDecision    ThoughtType = "decision"
	ThoughtObservation ThoughtType = "observation"
	ThoughtCritique    ThoughtType = "critique"
	ThoughtStrategy    ThoughtType = "strategy"
)

// Event is the common interface implemented by every concrete event type.
// Implementations embed Base, which supplies Type/TaskID/ContextID/Payload.
type Event interface {
	Type() EventType
	TaskID() agentcore.TaskID
	ContextID() agentcore.ContextID
	Payload() any
}

// Base carries the metadata common to every event. Concrete event types
// embed Base and add a typed Data payload; Base's methods, Payload()
// included, satisfy the whole Event interface.
type Base struct {
	t  EventType
	ta agentcore.TaskID
	c  agentcore.ContextID
	p  any
}

// NewBase constructs a Base event header.
func NewBase(t EventType, taskID agentcore.TaskID, contextID agentcore.ContextID, payload any) Base {
	return Base{t: t, ta: taskID, c: contextID, p: payload}
}

func (b Base) Type() EventType             { return b.t }
func (b Base) TaskID() agentcore.TaskID    { return b.ta }
func (b Base) ContextID() agentcore.ContextID { return b.c }
func (b Base) Payload() any                { return b.p }

type (
	// TaskCreated signals a new turn has been assigned a taskId.
	TaskCreated struct {
		Base
		Data TaskCreatedPayload
	}
	TaskCreatedPayload struct {
		AgentID agentcore.AgentID `json:"agentId"`
	}

	// TaskStatus reports a lifecycle transition for the task.
	TaskStatus struct {
		Base
		Data TaskStatusPayload
	}
	TaskStatusPayload struct {
		State TaskStatusState `json:"state"`
		Error string          `json:"error,omitempty"`
	}

	// TaskComplete is the single successful terminal event of a turn.
	TaskComplete struct {
		Base
		Data TaskCompletePayload
	}
	TaskCompletePayload struct {
		Content string `json:"content"`
	}

	// TaskFailed is the single failure terminal event of a turn.
	TaskFailed struct {
		Base
		Data TaskFailedPayload
	}
	TaskFailedPayload struct {
		Error string `json:"error"`
	}

	// ContentDelta streams one chunk of cleaned assistant content. ChunkIndex
	// is strictly increasing within a turn.
	ContentDelta struct {
		Base
		Data ContentDeltaPayload
	}
	ContentDeltaPayload struct {
		Delta      string `json:"delta"`
		ChunkIndex int    `json:"chunkIndex"`
	}

	// ContentComplete carries the final, fully assembled assistant content
	// for one LLM call within the turn.
	ContentComplete struct {
		Base
		Data ContentCompletePayload
	}
	ContentCompletePayload struct {
		Content string `json:"content"`
	}

	// ThoughtStream carries an out-of-band reasoning annotation, either
	// extracted from <thinking> tags or emitted by the think_aloud tool.
	ThoughtStream struct {
		Base
		Data ThoughtStreamPayload
	}
	ThoughtStreamPayload struct {
		ThoughtType  ThoughtType `json:"thoughtType"`
		Content      string      `json:"content"`
		ID           string      `json:"id,omitempty"`
		Confidence   *float64    `json:"confidence,omitempty"`
		Alternatives []string    `json:"alternatives,omitempty"`
		RelatedTo    string      `json:"relatedTo,omitempty"`
		Verbosity    string      `json:"verbosity,omitempty"`
	}

	// ToolStart is emitted immediately before a tool call is dispatched.
	ToolStart struct {
		Base
		Data ToolStartPayload
	}
	ToolStartPayload struct {
		ToolCallID string `json:"toolCallId"`
		Name       string `json:"name"`
		Arguments  any    `json:"arguments"`
	}

	// ToolComplete is emitted once a dispatched tool call resolves.
	ToolComplete struct {
		Base
		Data ToolCompletePayload
	}
	ToolCompletePayload struct {
		ToolCallID string `json:"toolCallId"`
		Name       string `json:"name"`
		Success    bool   `json:"success"`
		Result     any    `json:"result,omitempty"`
		Error      string `json:"error,omitempty"`
	}

	// FileWrite/DataWrite/DatasetWrite mirror artifact mutations onto the
	// stream so clients can render progressive artifact updates.
	FileWrite struct {
		Base
		Data FileWritePayload
	}
	FileWritePayload struct {
		ArtifactID string `json:"artifactId"`
		ChunkIndex int    `json:"chunkIndex"`
		Size       int    `json:"size"`
		IsLast     bool   `json:"isLast"`
	}

	DataWrite struct {
		Base
		Data DataWritePayload
	}
	DataWritePayload struct {
		ArtifactID string `json:"artifactId"`
		IsLast     bool   `json:"isLast"`
	}

	DatasetWrite struct {
		Base
		Data DatasetWritePayload
	}
	DatasetWritePayload struct {
		ArtifactID string `json:"artifactId"`
		RowCount   int    `json:"rowCount"`
		IsLast     bool   `json:"isLast"`
	}

	// LLMCall and Checkpoint are internal debug events (component A §2).
	LLMCall struct {
		Base
		Data LLMCallPayload
	}
	LLMCallPayload struct {
		Iteration int `json:"iteration"`
	}

	Checkpoint struct {
		Base
		Data CheckpointPayload
	}
	CheckpointPayload struct {
		Iteration  int    `json:"iteration"`
		ResumeFrom string `json:"resumeFrom"`
	}
)
