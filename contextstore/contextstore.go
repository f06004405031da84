// Package contextstore implements the context store (§4.E): durable
// ContextState records, CRUD plus filtered listing and search, and
// cooperative advisory locks used by external callers (the loop and
// session packages never take these locks themselves — see §4.E).
package contextstore

import (
	"context"
	"errors"
	"time"

	"github.com/agentcore/runtime"
)

// Status is the ContextState lifecycle (§3). Contexts are never destroyed
// implicitly; "abandoned" is a terminal status set by an external caller.
type Status string

const (
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusLocked    Status = "locked"
	StatusCompleted Status = "completed"
	StatusAbandoned Status = "abandoned"
)

var (
	ErrNotFound     = errors.New("contextstore: not found")
	ErrAlreadyExists = errors.New("contextstore: already exists")
)

// LockState describes an advisory lock currently held on a context.
type LockState struct {
	Holder    string
	AcquiredAt time.Time
	ExpiresAt time.Time
}

// Statistics tracks aggregate counters updated by the session after each turn.
type Statistics struct {
	MessageCount    int
	ArtifactCount   int
	TotalTokensUsed int
}

// ContextState is the session record persisted by the context store (§3).
type ContextState struct {
	ContextID agentcore.ContextID
	AgentID   agentcore.AgentID
	Status    Status

	CreatedAt time.Time
	UpdatedAt time.Time

	TurnCount int

	Title       string
	Description string
	Tags        []string

	Owner       string
	Shared      bool
	Permissions map[string]string

	Lock *LockState

	Statistics Statistics
}

// Filter narrows List.
type Filter struct {
	AgentID *agentcore.AgentID
	Status  *Status
	Tag     string
}

// Store is the context store contract (§4.E).
type Store interface {
	Create(ctx context.Context, state ContextState) error
	Get(ctx context.Context, contextID agentcore.ContextID) (ContextState, error)
	Update(ctx context.Context, state ContextState) error
	Delete(ctx context.Context, contextID agentcore.ContextID) error

	List(ctx context.Context, filter Filter) ([]ContextState, error)
	Search(ctx context.Context, query string) ([]ContextState, error)

	AcquireLock(ctx context.Context, contextID agentcore.ContextID, owner string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, contextID agentcore.ContextID, owner string) error
	RefreshLock(ctx context.Context, contextID agentcore.ContextID, owner string, ttl time.Duration) error
	IsLocked(ctx context.Context, contextID agentcore.ContextID) (bool, error)
}
