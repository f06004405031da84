package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/agentcore/runtime/llm"
	"github.com/agentcore/runtime/loop"
	"github.com/agentcore/runtime/message"
	"github.com/agentcore/runtime/session"
	"github.com/agentcore/runtime/stream"
	"github.com/agentcore/runtime/tools"
)

type chunkStream struct {
	chunks []llm.Chunk
	pos    int
}

func (s *chunkStream) Recv() (llm.Chunk, error) {
	if s.pos >= len(s.chunks) {
		return llm.Chunk{}, errors.New("session_test: stream exhausted")
	}
	c := s.chunks[s.pos]
	s.pos++
	return c, nil
}
func (s *chunkStream) Close() error { return nil }

type scriptedClient struct{ script []llm.Chunk }

func (c *scriptedClient) Call(context.Context, llm.Request) (llm.Stream, error) {
	return &chunkStream{chunks: c.script}, nil
}

func drain(t *testing.T, em *stream.Emitter) []stream.Event {
	t.Helper()
	sub := em.Subscribe()
	var events []stream.Event
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-deadline:
			t.Fatal("session_test: timed out draining event stream")
			return nil
		}
	}
}

func newTestSession(t *testing.T, script []llm.Chunk) (*session.Session, message.Store) {
	t.Helper()
	store := message.NewInMemoryStore()
	l := loop.New(loop.Config{LLM: &scriptedClient{script: script}, Dispatcher: tools.NewDispatcher(nil, nil)})
	s := session.New(session.Config{
		AgentID: "agent1", ContextID: "ctx1",
		Messages: store, Loop: l,
		AutoSave: true, MaxMessages: 50,
	})
	return s, store
}

func completionScript() []llm.Chunk {
	return []llm.Chunk{
		{ContentDelta: "Hello there!", Content: "Hello there!"},
		{Content: "Hello there!", Finished: true, FinishReason: llm.FinishStop},
	}
}

func TestStartTurnPersistsUserAndAssistantMessages(t *testing.T) {
	s, store := newTestSession(t, completionScript())
	msg := "Hi"

	em := s.StartTurn(context.Background(), &msg, session.StartTurnOptions{})
	events := drain(t, em)

	var sawComplete bool
	for _, ev := range events {
		if ev.Type() == stream.EventTaskComplete {
			sawComplete = true
		}
	}
	require.True(t, sawComplete)
	require.Equal(t, session.StatusReady, s.State())
	require.Equal(t, 1, s.TurnCount())

	all, err := store.GetAll(context.Background(), "ctx1")
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, message.RoleUser, all[0].Role)
	require.Equal(t, "Hi", all[0].Content)
	require.Equal(t, message.RoleAssistant, all[1].Role)
	require.Equal(t, "Hello there!", all[1].Content)
}

// blockingStream yields one chunk and then hangs until released, keeping a
// turn (and its session) busy for as long as the test needs.
type blockingStream struct {
	sent    bool
	unblock chan struct{}
}

func (s *blockingStream) Recv() (llm.Chunk, error) {
	if !s.sent {
		s.sent = true
		return llm.Chunk{ContentDelta: "partial", Content: "partial"}, nil
	}
	<-s.unblock
	return llm.Chunk{}, errors.New("blockingStream: released")
}
func (s *blockingStream) Close() error { return nil }

type blockingClient struct{ unblock chan struct{} }

func (c *blockingClient) Call(context.Context, llm.Request) (llm.Stream, error) {
	return &blockingStream{unblock: c.unblock}, nil
}

func TestStartTurnRejectsWhileBusy(t *testing.T) {
	store := message.NewInMemoryStore()
	blocking := &blockingClient{unblock: make(chan struct{})}
	l := loop.New(loop.Config{LLM: blocking, Dispatcher: tools.NewDispatcher(nil, nil)})
	s := session.New(session.Config{AgentID: "agent1", ContextID: "ctx1", Messages: store, Loop: l, AutoSave: true})

	msg := "Hi"
	first := s.StartTurn(context.Background(), &msg, session.StartTurnOptions{})
	_ = first.Subscribe() // start consuming lazily; don't drain to completion

	require.Eventually(t, func() bool { return s.State() == session.StatusBusy }, time.Second, time.Millisecond)

	second := s.StartTurn(context.Background(), &msg, session.StartTurnOptions{})
	events := drain(t, second)
	require.Len(t, events, 1)
	status, ok := events[0].(stream.TaskStatus)
	require.True(t, ok)
	require.Equal(t, stream.TaskStatusFailed, status.Data.State)
	require.Contains(t, status.Data.Error, "already executing a turn")
}

func TestClearResetsTurnCountAndHistory(t *testing.T) {
	s, store := newTestSession(t, completionScript())
	msg := "Hi"
	drain(t, s.StartTurn(context.Background(), &msg, session.StartTurnOptions{}))
	require.Equal(t, 1, s.TurnCount())

	require.NoError(t, s.Clear(context.Background()))
	require.Equal(t, 0, s.TurnCount())

	count, err := store.GetCount(context.Background(), "ctx1")
	require.NoError(t, err)
	require.Equal(t, 0, count)
}

func TestShutdownRejectsFurtherTurns(t *testing.T) {
	s, _ := newTestSession(t, completionScript())
	s.Shutdown()

	msg := "Hi"
	events := drain(t, s.StartTurn(context.Background(), &msg, session.StartTurnOptions{}))
	require.Len(t, events, 1)
	status := events[0].(stream.TaskStatus)
	require.Equal(t, stream.TaskStatusFailed, status.Data.State)
}

func TestInitializeEstimatesTurnCountFromPriorHistory(t *testing.T) {
	store := message.NewInMemoryStore()
	require.NoError(t, store.Append(context.Background(), "ctx1", []message.Message{
		{Role: message.RoleUser, Content: "a"},
		{Role: message.RoleAssistant, Content: "b"},
		{Role: message.RoleUser, Content: "c"},
	}))

	l := loop.New(loop.Config{LLM: &scriptedClient{script: completionScript()}, Dispatcher: tools.NewDispatcher(nil, nil)})
	s := session.New(session.Config{AgentID: "agent1", ContextID: "ctx1", Messages: store, Loop: l, AutoSave: true})

	msg := "d"
	drain(t, s.StartTurn(context.Background(), &msg, session.StartTurnOptions{}))
	// 3 prior messages => floor(3/2) = 1, then this turn completes => 2.
	require.Equal(t, 2, s.TurnCount())
}
