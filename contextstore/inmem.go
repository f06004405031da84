package contextstore

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/agentcore/runtime"
)

// InMemoryStore is an in-memory Store, safe for concurrent use.
type InMemoryStore struct {
	mu       sync.RWMutex
	contexts map[agentcore.ContextID]ContextState
	now      func() time.Time
}

// NewInMemoryStore constructs an empty in-memory context store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{contexts: make(map[agentcore.ContextID]ContextState), now: time.Now}
}

func (s *InMemoryStore) Create(_ context.Context, state ContextState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contexts[state.ContextID]; ok {
		return ErrAlreadyExists
	}
	now := s.now()
	if state.CreatedAt.IsZero() {
		state.CreatedAt = now
	}
	state.UpdatedAt = now
	if state.Status == "" {
		state.Status = StatusActive
	}
	s.contexts[state.ContextID] = clone(state)
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, contextID agentcore.ContextID) (ContextState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.contexts[contextID]
	if !ok {
		return ContextState{}, ErrNotFound
	}
	return clone(state), nil
}

func (s *InMemoryStore) Update(_ context.Context, state ContextState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.contexts[state.ContextID]
	if !ok {
		return ErrNotFound
	}
	state.CreatedAt = existing.CreatedAt
	state.Lock = existing.Lock
	state.UpdatedAt = s.now()
	s.contexts[state.ContextID] = clone(state)
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, contextID agentcore.ContextID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contexts[contextID]; !ok {
		return ErrNotFound
	}
	delete(s.contexts, contextID)
	return nil
}

func (s *InMemoryStore) List(_ context.Context, filter Filter) ([]ContextState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []ContextState
	for _, state := range s.contexts {
		if filter.AgentID != nil && state.AgentID != *filter.AgentID {
			continue
		}
		if filter.Status != nil && state.Status != *filter.Status {
			continue
		}
		if filter.Tag != "" && !containsTag(state.Tags, filter.Tag) {
			continue
		}
		out = append(out, clone(state))
	}
	return out, nil
}

// Search performs a case-insensitive substring match over title and
// description; stores backed by a full-text index may replace this with a
// native query while preserving the same contract.
func (s *InMemoryStore) Search(_ context.Context, query string) ([]ContextState, error) {
	q := strings.ToLower(query)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []ContextState
	for _, state := range s.contexts {
		if strings.Contains(strings.ToLower(state.Title), q) || strings.Contains(strings.ToLower(state.Description), q) {
			out = append(out, clone(state))
		}
	}
	return out, nil
}

func (s *InMemoryStore) AcquireLock(_ context.Context, contextID agentcore.ContextID, owner string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.contexts[contextID]
	if !ok {
		return false, ErrNotFound
	}
	now := s.now()
	if state.Lock != nil && state.Lock.Holder != owner && now.Before(state.Lock.ExpiresAt) {
		return false, nil
	}
	state.Lock = &LockState{Holder: owner, AcquiredAt: now, ExpiresAt: now.Add(ttl)}
	s.contexts[contextID] = state
	return true, nil
}

func (s *InMemoryStore) ReleaseLock(_ context.Context, contextID agentcore.ContextID, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.contexts[contextID]
	if !ok {
		return ErrNotFound
	}
	if state.Lock != nil && state.Lock.Holder == owner {
		state.Lock = nil
		s.contexts[contextID] = state
	}
	return nil
}

func (s *InMemoryStore) RefreshLock(_ context.Context, contextID agentcore.ContextID, owner string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.contexts[contextID]
	if !ok {
		return ErrNotFound
	}
	if state.Lock == nil || state.Lock.Holder != owner {
		return ErrNotFound
	}
	state.Lock.ExpiresAt = s.now().Add(ttl)
	s.contexts[contextID] = state
	return nil
}

func (s *InMemoryStore) IsLocked(_ context.Context, contextID agentcore.ContextID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.contexts[contextID]
	if !ok {
		return false, ErrNotFound
	}
	return state.Lock != nil && s.now().Before(state.Lock.ExpiresAt), nil
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func clone(in ContextState) ContextState {
	out := in
	if len(in.Tags) > 0 {
		out.Tags = append([]string(nil), in.Tags...)
	}
	if len(in.Permissions) > 0 {
		out.Permissions = make(map[string]string, len(in.Permissions))
		for k, v := range in.Permissions {
			out.Permissions[k] = v
		}
	}
	if in.Lock != nil {
		lock := *in.Lock
		out.Lock = &lock
	}
	return out
}

var _ Store = (*InMemoryStore)(nil)
