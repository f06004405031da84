// Package session implements the agent session (§4.I): the stateful
// wrapper around one loop.Loop for one context, enforcing that turns on
// the same session never overlap and handling the per-turn bookkeeping
// (history loading, autosave, autocompact, turn counting) the loop itself
// knows nothing about.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/agentcore/runtime"
	"github.com/agentcore/runtime/artifact"
	"github.com/agentcore/runtime/loop"
	"github.com/agentcore/runtime/message"
	"github.com/agentcore/runtime/stream"
	"github.com/agentcore/runtime/telemetry"
)

// Status is the session's lifecycle state (§4.I state machine).
type Status string

const (
	StatusCreated  Status = "created"
	StatusReady    Status = "ready"
	StatusBusy     Status = "busy"
	StatusError    Status = "error"
	StatusShutdown Status = "shutdown"
)

// DefaultMaxMessages bounds history loaded per turn and drives the
// autocompact threshold absent an explicit Config.MaxMessages.
const DefaultMaxMessages = 50

// Config wires a Session to its collaborators. Messages and Loop are
// required; Artifacts is optional (GetArtifacts returns nothing without it).
type Config struct {
	AgentID   agentcore.AgentID
	ContextID agentcore.ContextID

	Messages  message.Store
	Artifacts artifact.Store
	Loop      *loop.Loop

	SystemPrompt string

	// MaxMessages bounds getRecent's history load per turn and is halved
	// for keepRecent when autocompact fires.
	MaxMessages int

	// AutoSave persists the user message before the turn and the
	// accumulated assistant/tool messages after it (§4.I steps 4, 7).
	AutoSave bool
	// AutoCompact triggers a summarization compaction once stored message
	// count exceeds MaxMessages (§4.I step 7).
	AutoCompact bool

	Profile stream.StreamProfile
	Logger  telemetry.Logger
	Tracer  telemetry.Tracer
}

func (c Config) withDefaults() Config {
	if c.MaxMessages <= 0 {
		c.MaxMessages = DefaultMaxMessages
	}
	if c.Logger == nil {
		c.Logger = telemetry.NewNoopLogger()
	}
	if c.Tracer == nil {
		c.Tracer = telemetry.NewNoopTracer()
	}
	if (c.Profile == stream.StreamProfile{}) {
		c.Profile = stream.DefaultProfile()
	}
	return c
}

// StartTurnOptions carries the optional per-turn inputs of the external
// startTurn operation (§6): an explicit taskId and an auth context. Auth is
// accepted but not passed to the loop, so tool execution does not see it.
type StartTurnOptions struct {
	TaskID agentcore.TaskID
	Auth   map[string]string
}

// ArtifactSummary is one entry of GetArtifacts' result (§6:
// "getArtifacts() → list of {id, content}").
type ArtifactSummary struct {
	ID      string
	Content any
}

// Session is the stateful per-context wrapper around a Loop (§4.I). The
// zero value is not usable; construct with New.
type Session struct {
	cfg Config

	mu           sync.Mutex
	status       Status
	turnCount    int
	lastActivity time.Time

	now func() time.Time
}

// New constructs a Session in the "created" state. Initialization (reading
// prior history, estimating turnCount) happens lazily on the first
// StartTurn call (§4.I: "Initialize: on first turn...").
func New(cfg Config) *Session {
	return &Session{cfg: cfg.withDefaults(), status: StatusCreated, now: time.Now}
}

// State reports the session's current lifecycle status.
func (s *Session) State() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// ContextID returns the session's durable context identifier.
func (s *Session) ContextID() agentcore.ContextID { return s.cfg.ContextID }

// TurnCount reports the number of turns completed (or estimated from prior
// history on first initialize).
func (s *Session) TurnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turnCount
}

// StartTurn begins a turn. userMessage is nil for a resumed or tool-only
// continuation turn. The returned Emitter is the turn's full event stream;
// if the session cannot accept a turn right now, it is a single failed
// task-status event followed immediately by stream completion (§4.I,
// §7 "State" errors are never thrown to the caller).
func (s *Session) StartTurn(ctx context.Context, userMessage *string, opts StartTurnOptions) *stream.Emitter {
	s.mu.Lock()

	switch s.status {
	case StatusShutdown:
		s.mu.Unlock()
		return s.reject(opts, agentcore.ErrAgentShutdown.Error())
	case StatusError:
		s.mu.Unlock()
		return s.reject(opts, agentcore.ErrAgentError.Error())
	case StatusBusy:
		s.mu.Unlock()
		return s.reject(opts, "Agent is already executing a turn")
	}

	if s.status == StatusCreated {
		if err := s.initializeLocked(ctx); err != nil {
			s.status = StatusError
			s.mu.Unlock()
			return s.reject(opts, err.Error())
		}
		s.status = StatusReady
	}

	turnNumber := s.turnCount + 1
	taskID := opts.TaskID
	if taskID == "" {
		taskID = agentcore.TaskID(fmt.Sprintf("%s-turn-%d-%d", s.cfg.ContextID, turnNumber, time.Now().UnixNano()))
	}
	s.status = StatusBusy
	s.mu.Unlock()

	em := stream.NewEmitter(s.cfg.Profile)
	go s.runTurn(ctx, em, taskID, userMessage)
	return em
}

// initializeLocked reads prior history's count to estimate turnCount
// (§4.I: "estimate prior turnCount ≈ floor(messageCount/2)"; see §9 — this
// overcounts whenever a turn stored more than two messages, which every
// tool-calling turn does, so it is an estimate, not an exact count).
func (s *Session) initializeLocked(ctx context.Context) error {
	count, err := s.cfg.Messages.GetCount(ctx, s.cfg.ContextID)
	if err != nil {
		return fmt.Errorf("agentsession: initialize: %w", err)
	}
	s.turnCount = count / 2
	return nil
}

func (s *Session) reject(opts StartTurnOptions, reason string) *stream.Emitter {
	em := stream.NewEmitter(s.cfg.Profile)
	taskID := opts.TaskID
	if taskID == "" {
		taskID = agentcore.NewTaskID()
	}
	em.Emit(stream.NewTaskStatus(taskID, s.cfg.ContextID, stream.TaskStatusFailed, reason))
	em.Complete()
	return em
}

// Shutdown transitions the session to the terminal shutdown state. Any
// turn in flight is left to finish on its own; subsequent StartTurn calls
// are rejected (§6 "shutdown()").
func (s *Session) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusShutdown
}

// GetMessages returns history for this session's context (§6).
func (s *Session) GetMessages(ctx context.Context, opts message.RecentOptions) ([]message.Message, error) {
	return s.cfg.Messages.GetRecent(ctx, s.cfg.ContextID, opts)
}

// GetArtifacts lists every artifact recorded under this session's context,
// with its content inlined by kind (§6 "getArtifacts() → list of {id,
// content}"). Returns nil without error when no artifact store is wired.
func (s *Session) GetArtifacts(ctx context.Context) ([]ArtifactSummary, error) {
	if s.cfg.Artifacts == nil {
		return nil, nil
	}
	ids, err := s.cfg.Artifacts.QueryArtifacts(ctx, artifact.ArtifactFilter{ContextID: s.cfg.ContextID})
	if err != nil {
		return nil, fmt.Errorf("agentsession: query artifacts: %w", err)
	}

	out := make([]ArtifactSummary, 0, len(ids))
	for _, id := range ids {
		a, err := s.cfg.Artifacts.GetArtifact(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("agentsession: get artifact %q: %w", id, err)
		}
		out = append(out, ArtifactSummary{ID: id, Content: artifactContent(a)})
	}
	return out, nil
}

func artifactContent(a artifact.Artifact) any {
	switch a.Kind {
	case artifact.KindFile:
		var buf []byte
		for _, c := range a.Chunks {
			buf = append(buf, c.Data...)
		}
		return string(buf)
	case artifact.KindData:
		return a.Data
	case artifact.KindDataset:
		return a.Rows
	default:
		return nil
	}
}

// Save is a no-op beyond logging when AutoSave is on; it exists as an
// explicit checkpoint for AutoSave=false callers (§4.I).
func (s *Session) Save(ctx context.Context) {
	s.cfg.Logger.Info(ctx, "agentsession: save", "contextId", s.cfg.ContextID, "autoSave", s.cfg.AutoSave)
}

// Clear empties the message store for this context and resets turnCount
// to zero (§4.I).
func (s *Session) Clear(ctx context.Context) error {
	if err := s.cfg.Messages.Clear(ctx, s.cfg.ContextID); err != nil {
		return fmt.Errorf("agentsession: clear: %w", err)
	}
	s.mu.Lock()
	s.turnCount = 0
	s.mu.Unlock()
	return nil
}
