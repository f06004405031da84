package message

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/agentcore/runtime"
)

// InMemoryStore is the default Store implementation: a per-context slice of
// Messages guarded by a mutex, with defensive copies on read so callers
// cannot mutate stored history through a returned slice.
type InMemoryStore struct {
	mu         sync.RWMutex
	contexts   map[agentcore.ContextID][]Message
	summarizer Summarizer
	now        func() time.Time
}

// Option configures an InMemoryStore.
type Option func(*InMemoryStore)

// WithSummarizer installs an LLM-backed Summarizer for the summarization and
// hierarchical compaction strategies. Without one, compaction falls back to
// a rule-based digest.
func WithSummarizer(s Summarizer) Option {
	return func(st *InMemoryStore) { st.summarizer = s }
}

// NewInMemoryStore constructs an empty in-memory message store.
func NewInMemoryStore(opts ...Option) *InMemoryStore {
	st := &InMemoryStore{
		contexts: make(map[agentcore.ContextID][]Message),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(st)
	}
	return st
}

func (s *InMemoryStore) Append(_ context.Context, contextID agentcore.ContextID, messages []Message) error {
	if len(messages) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.contexts[contextID]
	start := len(existing)
	now := s.now()
	for i, m := range messages {
		m.Index = start + i
		m.Timestamp = now
		existing = append(existing, m)
	}
	s.contexts[contextID] = existing
	return nil
}

func (s *InMemoryStore) GetRecent(_ context.Context, contextID agentcore.ContextID, opts RecentOptions) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.contexts[contextID]
	suffix := all
	if opts.MaxMessages > 0 && len(suffix) > opts.MaxMessages {
		suffix = suffix[len(suffix)-opts.MaxMessages:]
	}
	if opts.MaxTokens > 0 {
		suffix = trimToTokenBudget(suffix, opts.MaxTokens)
	}
	return cloneMessages(suffix), nil
}

// trimToTokenBudget drops from the oldest retained message until the
// remaining estimated token count is <= budget, always keeping at least
// one message when the input is non-empty (§4.B).
func trimToTokenBudget(messages []Message, budget int) []Message {
	if len(messages) == 0 {
		return messages
	}
	total := 0
	for _, m := range messages {
		total += estimateMessageTokens(m)
	}
	start := 0
	for total > budget && start < len(messages)-1 {
		total -= estimateMessageTokens(messages[start])
		start++
	}
	return messages[start:]
}

func (s *InMemoryStore) GetAll(_ context.Context, contextID agentcore.ContextID) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneMessages(s.contexts[contextID]), nil
}

func (s *InMemoryStore) GetCount(_ context.Context, contextID agentcore.ContextID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.contexts[contextID]), nil
}

func (s *InMemoryStore) GetRange(_ context.Context, contextID agentcore.ContextID, start, end int) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.contexts[contextID]
	if start < 0 {
		start = 0
	}
	if end > len(all) {
		end = len(all)
	}
	if start >= end {
		return nil, nil
	}
	return cloneMessages(all[start:end]), nil
}

func (s *InMemoryStore) Clear(_ context.Context, contextID agentcore.ContextID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.contexts, contextID)
	return nil
}

func (s *InMemoryStore) Compact(ctx context.Context, contextID agentcore.ContextID, opts CompactOptions) (CompactResult, error) {
	s.mu.Lock()
	all := append([]Message(nil), s.contexts[contextID]...)
	s.mu.Unlock()

	rewritten, result, err := rewriteForCompaction(ctx, s.summarizer, all, opts)
	if err != nil {
		return CompactResult{}, err
	}

	now := s.now()
	for i := range rewritten {
		if rewritten[i].Timestamp.IsZero() {
			rewritten[i].Timestamp = now
		}
	}

	s.mu.Lock()
	s.contexts[contextID] = rewritten
	s.mu.Unlock()

	return result, nil
}

// ruleBasedDigest produces the fallback summary when no Summarizer is
// configured: a count of dropped messages by role.
func ruleBasedDigest(messages []Message) string {
	counts := make(map[Role]int)
	for _, m := range messages {
		counts[m.Role]++
	}
	return fmt.Sprintf(
		"Summary of %d prior messages (system=%d, user=%d, assistant=%d, tool=%d).",
		len(messages), counts[RoleSystem], counts[RoleUser], counts[RoleAssistant], counts[RoleTool],
	)
}

func sumTokens(messages []Message) int {
	total := 0
	for _, m := range messages {
		total += estimateMessageTokens(m)
	}
	return total
}

func cloneMessages(in []Message) []Message {
	if in == nil {
		return nil
	}
	out := make([]Message, len(in))
	copy(out, in)
	for i := range out {
		if out[i].ToolCalls != nil {
			out[i].ToolCalls = append([]ToolCallRef(nil), out[i].ToolCalls...)
		}
	}
	return out
}
