package stream_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/agentcore/runtime"
	"github.com/agentcore/runtime/stream"
)

func drain(t *testing.T, sub *stream.Subscription, timeout time.Duration) []stream.Event {
	t.Helper()
	var events []stream.Event
	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-time.After(timeout):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestEmitterOrderingAndReplay(t *testing.T) {
	e := stream.NewEmitter(stream.DefaultProfile())
	taskID := agentcore.TaskID("t1")
	ctxID := agentcore.ContextID("c1")

	first := e.Subscribe()
	e.Emit(stream.TaskCreated{Base: stream.NewBase(stream.EventTaskCreated, taskID, ctxID, nil)})
	e.Emit(stream.ContentDelta{Base: stream.NewBase(stream.EventContentDelta, taskID, ctxID, nil),
		Data: stream.ContentDeltaPayload{Delta: "He", ChunkIndex: 0}})
	e.Complete()

	firstEvents := drain(t, first, time.Second)
	require.Len(t, firstEvents, 2)
	require.Equal(t, stream.EventTaskCreated, firstEvents[0].Type())
	require.Equal(t, stream.EventContentDelta, firstEvents[1].Type())

	// A late subscriber after completion still sees the identical sequence.
	late := e.Subscribe()
	lateEvents := drain(t, late, time.Second)
	require.Equal(t, firstEvents, lateEvents)
}

func TestEmitterDiscardsAfterComplete(t *testing.T) {
	e := stream.NewEmitter(stream.DefaultProfile())
	taskID := agentcore.TaskID("t1")
	ctxID := agentcore.ContextID("c1")
	e.Complete()
	e.Emit(stream.TaskCreated{Base: stream.NewBase(stream.EventTaskCreated, taskID, ctxID, nil)})

	sub := e.Subscribe()
	events := drain(t, sub, time.Second)
	require.Empty(t, events)
}

func TestUserChatProfileFiltersThoughtStream(t *testing.T) {
	e := stream.NewEmitter(stream.UserChatProfile())
	taskID := agentcore.TaskID("t1")
	ctxID := agentcore.ContextID("c1")
	sub := e.Subscribe()
	e.Emit(stream.ThoughtStream{Base: stream.NewBase(stream.EventThoughtStream, taskID, ctxID, nil)})
	e.Emit(stream.TaskCreated{Base: stream.NewBase(stream.EventTaskCreated, taskID, ctxID, nil)})
	e.Complete()

	events := drain(t, sub, time.Second)
	require.Len(t, events, 1)
	require.Equal(t, stream.EventTaskCreated, events[0].Type())
}
