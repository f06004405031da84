package stream

// StreamProfile toggles which event kinds an Emitter actually enqueues,
// letting a caller trade fidelity for volume (e.g. a debug UI wants
// llm-call/checkpoint events; a production chat UI does not).
type StreamProfile struct {
	ContentDelta    bool
	ContentComplete bool
	ThoughtStream   bool
	ToolEvents      bool
	ArtifactEvents  bool
	TaskLifecycle   bool
	LLMCall         bool
	Checkpoint      bool
}

// DefaultProfile emits everything an external subscriber needs, suppressing
// the internal-only llm-call/checkpoint events.
func DefaultProfile() StreamProfile {
	return StreamProfile{
		ContentDelta:    true,
		ContentComplete: true,
		ThoughtStream:   true,
		ToolEvents:      true,
		ArtifactEvents:  true,
		TaskLifecycle:   true,
	}
}

// UserChatProfile suppresses thought-stream and artifact events, for a
// minimal end-user chat surface.
func UserChatProfile() StreamProfile {
	p := DefaultProfile()
	p.ThoughtStream = false
	p.ArtifactEvents = false
	return p
}

// AgentDebugProfile emits every event kind, including internal ones.
func AgentDebugProfile() StreamProfile {
	return StreamProfile{
		ContentDelta: true, ContentComplete: true, ThoughtStream: true,
		ToolEvents: true, ArtifactEvents: true, TaskLifecycle: true,
		LLMCall: true, Checkpoint: true,
	}
}

// MetricsProfile only lets through internal instrumentation events.
func MetricsProfile() StreamProfile {
	return StreamProfile{LLMCall: true, Checkpoint: true}
}

// Allows reports whether the profile permits enqueueing an event of kind t.
func (p StreamProfile) Allows(t EventType) bool {
	switch t {
	case EventContentDelta:
		return p.ContentDelta
	case EventContentComplete:
		return p.ContentComplete
	case EventThoughtStream:
		return p.ThoughtStream
	case EventToolStart, EventToolComplete:
		return p.ToolEvents
	case EventFileWrite, EventDataWrite, EventDatasetWrite:
		return p.ArtifactEvents
	case EventTaskCreated, EventTaskStatus, EventTaskComplete, EventTaskFailed:
		return p.TaskLifecycle
	case EventLLMCall:
		return p.LLMCall
	case EventCheckpoint:
		return p.Checkpoint
	default:
		return true
	}
}
