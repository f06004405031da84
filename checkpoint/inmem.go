package checkpoint

import (
	"context"
	"sync"
	"time"

	"github.com/agentcore/runtime"
)

// InMemoryStore is a process-local Store, suitable for single-instance
// deployments and tests. TTLs are enforced lazily on Load/Exists/ListTasks
// rather than by an internal timer: an expired entry is hidden from those
// calls but stays in the map until Delete removes it. Because ListTasks
// skips expired entries, the cleanup service does not see or delete them.
type InMemoryStore struct {
	mu    sync.RWMutex
	tasks map[agentcore.TaskID]*entry
	now   func() time.Time
}

type entry struct {
	state     PersistedLoopState
	expiresAt *time.Time
}

// NewInMemoryStore constructs an empty in-memory checkpoint store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{tasks: make(map[agentcore.TaskID]*entry), now: time.Now}
}

func (s *InMemoryStore) Save(_ context.Context, state PersistedLoopState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var expiresAt *time.Time
	if existing, ok := s.tasks[state.TaskID]; ok {
		expiresAt = existing.expiresAt
	}
	s.tasks[state.TaskID] = &entry{state: state, expiresAt: expiresAt}
	return nil
}

func (s *InMemoryStore) Load(_ context.Context, taskID agentcore.TaskID) (PersistedLoopState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.tasks[taskID]
	if !ok || s.expired(e) {
		return PersistedLoopState{}, ErrNotFound
	}
	return e.state, nil
}

func (s *InMemoryStore) Exists(_ context.Context, taskID agentcore.TaskID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.tasks[taskID]
	if !ok || s.expired(e) {
		return false, nil
	}
	return true, nil
}

func (s *InMemoryStore) Delete(_ context.Context, taskID agentcore.TaskID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks, taskID)
	return nil
}

func (s *InMemoryStore) ListTasks(_ context.Context, filter ListFilter) ([]agentcore.TaskID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []agentcore.TaskID
	for id, e := range s.tasks {
		if s.expired(e) {
			continue
		}
		if filter.AgentID != nil && e.state.AgentID != *filter.AgentID {
			continue
		}
		if filter.ContextID != nil && e.state.ContextID != *filter.ContextID {
			continue
		}
		if filter.CompletedAfter != nil && !e.state.LastActivityAt.After(*filter.CompletedAfter) {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

func (s *InMemoryStore) SetTTL(_ context.Context, taskID agentcore.TaskID, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.tasks[taskID]
	if !ok {
		return ErrNotFound
	}
	expiresAt := s.now().Add(ttl)
	e.expiresAt = &expiresAt
	return nil
}

func (s *InMemoryStore) expired(e *entry) bool {
	return e.expiresAt != nil && s.now().After(*e.expiresAt)
}

var _ Store = (*InMemoryStore)(nil)
