// Package loop implements the agent loop (§4.H): the prepare/iterate/
// finalize cycle that turns one user turn into a stream of events, calling
// the LLM, dispatching any requested tools, and checkpointing enough state
// to resume after a crash at an iteration boundary.
package loop

import (
	"context"
	"errors"
	"time"

	"github.com/agentcore/runtime"
	"github.com/agentcore/runtime/checkpoint"
	"github.com/agentcore/runtime/llm"
	"github.com/agentcore/runtime/message"
	"github.com/agentcore/runtime/stream"
	"github.com/agentcore/runtime/telemetry"
	"github.com/agentcore/runtime/tools"
)

// DefaultMaxIterations bounds a turn's iterate step absent an explicit
// Config.MaxIterations (§4.H step 2).
const DefaultMaxIterations = 20

// Config wires a Loop to its collaborators. LLM is the only required field;
// a nil Dispatcher defaults to one with no providers, and everything else
// defaults to a noop or a conservative constant.
type Config struct {
	LLM        llm.Client
	Dispatcher *tools.Dispatcher

	// Checkpoints persists per-iteration state for crash recovery. A nil
	// store disables checkpointing entirely; Resume then always fails.
	Checkpoints checkpoint.Store

	Logger  telemetry.Logger
	Metrics telemetry.Metrics
	Tracer  telemetry.Tracer

	// MaxIterations bounds the iterate loop. Zero means DefaultMaxIterations.
	MaxIterations int

	// CheckpointInterval, combined with "an LLM response was produced" and
	// "tool results were recorded", decides whether an iteration's end
	// persists state (§4.H step 2g). Every iteration that reaches that check
	// has produced an LLM response, so with a store configured every such
	// iteration persists state whatever the interval.
	CheckpointInterval int

	// Profile selects which event kinds the returned Emitter actually
	// enqueues. Zero value defaults to stream.DefaultProfile().
	Profile stream.StreamProfile

	// AllowedThoughtTypes restricts the think_aloud pseudo-tool every turn
	// wires ahead of Dispatcher's regular providers; empty allows every
	// stream.ThoughtType (§4.F: "rejected if thought_type not in the
	// allowed set configured at loop creation"). Set via
	// WithAllowedThoughtTypes.
	AllowedThoughtTypes []stream.ThoughtType
}

// Option configures a Loop at construction, applied after Config's fields
// and before defaulting.
type Option func(*Config)

// WithAllowedThoughtTypes restricts the think_aloud pseudo-tool this Loop
// wires into every turn to the given ThoughtType values (§4.F).
func WithAllowedThoughtTypes(types ...stream.ThoughtType) Option {
	return func(c *Config) { c.AllowedThoughtTypes = types }
}

func (c Config) withDefaults() Config {
	if c.MaxIterations <= 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	if c.CheckpointInterval <= 0 {
		c.CheckpointInterval = 1
	}
	if c.Logger == nil {
		c.Logger = telemetry.NewNoopLogger()
	}
	if c.Metrics == nil {
		c.Metrics = telemetry.NewNoopMetrics()
	}
	if c.Tracer == nil {
		c.Tracer = telemetry.NewNoopTracer()
	}
	if c.Dispatcher == nil {
		c.Dispatcher = tools.NewDispatcher(nil, nil)
	}
	if (c.Profile == stream.StreamProfile{}) {
		c.Profile = stream.DefaultProfile()
	}
	return c
}

// Input is one turn's starting point: the full message history (including
// the caller's new user message), ready to send straight to the model.
type Input struct {
	TaskID       agentcore.TaskID // optional; generated when empty
	AgentID      agentcore.AgentID
	ContextID    agentcore.ContextID
	ParentTaskID *agentcore.TaskID
	SystemPrompt string
	Messages     []message.Message
}

// llmResponseRecord is the live equivalent of checkpoint.PersistedLLMResponse.
type llmResponseRecord struct {
	Content      string
	Finished     bool
	FinishReason llm.FinishReason
	ToolCalls    []llm.ToolCall
}

// LoopState is the live, in-memory equivalent of checkpoint.PersistedLoopState
// (§4.D): everything the iterate step needs, plus bookkeeping for resume.
type LoopState struct {
	TaskID       agentcore.TaskID
	AgentID      agentcore.AgentID
	ParentTaskID *agentcore.TaskID
	ContextID    agentcore.ContextID

	Messages       []message.Message
	SystemPrompt   string
	AvailableTools []string
	ArtifactIDs    []string

	Iteration int
	Completed bool

	LastResponse   *llmResponseRecord
	LastActivityAt time.Time
	ResumeFrom     checkpoint.ResumeFrom
}

// Loop executes turns against one Config. A Loop is stateless between
// turns; all per-turn state lives in the LoopState it builds in Start/Resume.
type Loop struct {
	cfg Config
	now func() time.Time
}

// New constructs a Loop, applying opts and then defaults to any zero-valued
// Config field.
func New(cfg Config, opts ...Option) *Loop {
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Loop{cfg: cfg.withDefaults(), now: time.Now}
}

// turnDispatcher builds the dispatcher for one turn: a think_aloud
// pseudo-tool bound to this turn's own emitter and restricted to
// Config.AllowedThoughtTypes, taking dispatch precedence over
// Config.Dispatcher's regular providers (§4.F).
func (l *Loop) turnDispatcher(em *stream.Emitter) *tools.Dispatcher {
	thought := tools.NewThoughtTool(em, l.cfg.AllowedThoughtTypes)
	return tools.NewDispatcher(thought, []tools.Provider{l.cfg.Dispatcher})
}

// Start assigns a task and begins a new turn in the background, returning
// immediately with the Emitter callers subscribe to (§4.H step 1: "prepare").
func (l *Loop) Start(ctx context.Context, in Input) *stream.Emitter {
	taskID := in.TaskID
	if taskID == "" {
		taskID = agentcore.NewTaskID()
	}

	em := stream.NewEmitter(l.cfg.Profile)
	dispatcher := l.turnDispatcher(em)

	state := &LoopState{
		TaskID:         taskID,
		AgentID:        in.AgentID,
		ParentTaskID:   in.ParentTaskID,
		ContextID:      in.ContextID,
		Messages:       append([]message.Message(nil), in.Messages...),
		SystemPrompt:   in.SystemPrompt,
		AvailableTools: toolNames(dispatcher.Definitions()),
		LastActivityAt: l.now(),
		ResumeFrom:     checkpoint.ResumeFromLLMCall,
	}

	em.Emit(stream.NewTaskCreated(taskID, in.ContextID, in.AgentID))
	em.Emit(stream.NewTaskStatus(taskID, in.ContextID, stream.TaskStatusWorking, ""))

	go l.execute(ctx, em, dispatcher, state)
	return em
}

// Resume reloads a previously checkpointed turn and either replays its
// already-known completion or re-enters the iterate step by calling the LLM
// once more with the persisted history (§8 scenario 5: "no tool
// re-execution occurs" — every ResumeFrom tag re-enters at the same point).
func (l *Loop) Resume(ctx context.Context, taskID agentcore.TaskID) (*stream.Emitter, error) {
	if l.cfg.Checkpoints == nil {
		return nil, agentcore.NewCodedError(agentcore.ErrCodeTaskNotFound, "no checkpoint store configured", nil)
	}

	persisted, err := l.cfg.Checkpoints.Load(ctx, taskID)
	if err != nil {
		if errors.Is(err, checkpoint.ErrNotFound) {
			return nil, agentcore.NewCodedError(agentcore.ErrCodeTaskNotFound, "task not found: "+string(taskID), err)
		}
		return nil, err
	}

	state := fromPersisted(persisted)
	em := stream.NewEmitter(l.cfg.Profile)
	em.Emit(stream.NewTaskStatus(state.TaskID, state.ContextID, stream.TaskStatusWorking, ""))

	if state.Completed {
		content := ""
		if state.LastResponse != nil {
			content = state.LastResponse.Content
		}
		em.Emit(stream.NewTaskComplete(state.TaskID, state.ContextID, content))
		em.Complete()
		return em, nil
	}

	go l.execute(ctx, em, l.turnDispatcher(em), &state)
	return em, nil
}

func toolNames(defs []tools.Definition) []string {
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
	}
	return names
}
