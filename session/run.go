package session

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/agentcore/runtime"
	"github.com/agentcore/runtime/loop"
	"github.com/agentcore/runtime/message"
	"github.com/agentcore/runtime/stream"
)

// runTurn carries out §4.I's eight per-turn actions. It always runs in its
// own goroutine, started by StartTurn after the state-machine check passes.
func (s *Session) runTurn(ctx context.Context, em *stream.Emitter, taskID agentcore.TaskID, userMessage *string) {
	ctx, span := s.cfg.Tracer.Start(ctx, "agentsession.turn")
	if userMessage != nil {
		span.AddEvent("input", "message", *userMessage)
	}
	defer span.End()

	history, err := s.cfg.Messages.GetRecent(ctx, s.cfg.ContextID, message.RecentOptions{MaxMessages: s.cfg.MaxMessages})
	if err != nil {
		s.abortTurn(ctx, em, taskID, err)
		return
	}

	if userMessage != nil {
		um := message.Message{
			Role: message.RoleUser, Content: *userMessage,
			Index: len(history), Timestamp: s.now(),
		}
		history = append(history, um)
		if s.cfg.AutoSave {
			if err := s.cfg.Messages.Append(ctx, s.cfg.ContextID, []message.Message{um}); err != nil {
				s.abortTurn(ctx, em, taskID, err)
				return
			}
		}
	}

	turnEm := s.cfg.Loop.Start(ctx, loop.Input{
		TaskID:       taskID,
		AgentID:      s.cfg.AgentID,
		ContextID:    s.cfg.ContextID,
		SystemPrompt: s.cfg.SystemPrompt,
		Messages:     history,
	})

	accumulated, turnErr := s.forward(em, turnEm, len(history))
	s.finishTurn(ctx, accumulated, turnErr)
}

// forward relays every event from the loop's emitter to the session's own
// emitter and, in the same pass, reconstructs the new assistant/tool
// messages the turn produced (§4.I step 6) from those same events — the
// session never has to ask the loop for its internal state directly.
func (s *Session) forward(em *stream.Emitter, turnEm *stream.Emitter, historyLen int) ([]message.Message, error) {
	sub := turnEm.Subscribe()
	var accumulated []message.Message
	assistantIdx := -1
	var turnErr error

	for ev := range sub.Events() {
		em.Emit(ev)

		switch e := ev.(type) {
		case stream.ContentComplete:
			accumulated = append(accumulated, message.Message{
				Role: message.RoleAssistant, Content: e.Data.Content,
				Index: historyLen + len(accumulated), Timestamp: s.now(),
			})
			assistantIdx = len(accumulated) - 1

		case stream.ToolStart:
			if assistantIdx >= 0 {
				accumulated[assistantIdx].ToolCalls = append(accumulated[assistantIdx].ToolCalls, message.ToolCallRef{
					ID: e.Data.ToolCallID, Name: e.Data.Name, Arguments: argumentsMap(e.Data.Arguments),
				})
			}

		case stream.ToolComplete:
			accumulated = append(accumulated, message.Message{
				Role: message.RoleTool, Content: toolCompleteContent(e),
				ToolCallID: e.Data.ToolCallID, Name: e.Data.Name,
				Index: historyLen + len(accumulated), Timestamp: s.now(),
			})

		case stream.TaskFailed:
			turnErr = errors.New(e.Data.Error)
		}
	}

	return accumulated, turnErr
}

func argumentsMap(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func toolCompleteContent(e stream.ToolComplete) string {
	if !e.Data.Success {
		return e.Data.Error
	}
	switch v := e.Data.Result.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return e.Data.Error
		}
		return string(b)
	}
}

// abortTurn handles a failure before the loop is even invoked (history load
// or autosave of the user message failed) by emitting the same terminal
// shape a loop failure would (§7 "State"/"Transient I/O").
func (s *Session) abortTurn(ctx context.Context, em *stream.Emitter, taskID agentcore.TaskID, err error) {
	s.cfg.Logger.Error(ctx, "agentsession: turn aborted before loop start", "taskId", taskID, "error", err)
	em.Emit(stream.NewTaskFailed(taskID, s.cfg.ContextID, err.Error()))
	em.Error(err)
	s.finishTurn(ctx, nil, err)
}

// finishTurn applies §4.I step 7: autosave, turn counting, autocompact, and
// the status transition back to ready (or to error on a failed turn).
func (s *Session) finishTurn(ctx context.Context, accumulated []message.Message, turnErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if turnErr != nil {
		if s.status != StatusShutdown {
			s.status = StatusError
		}
		return
	}

	if s.cfg.AutoSave && len(accumulated) > 0 {
		if err := s.cfg.Messages.Append(ctx, s.cfg.ContextID, accumulated); err != nil {
			s.cfg.Logger.Error(ctx, "agentsession: autosave failed", "contextId", s.cfg.ContextID, "error", err)
		}
	}

	s.turnCount++
	s.lastActivity = s.now()

	if s.cfg.AutoCompact {
		total, err := s.cfg.Messages.GetCount(ctx, s.cfg.ContextID)
		if err != nil {
			s.cfg.Logger.Error(ctx, "agentsession: autocompact count failed", "error", err)
		} else if total > s.cfg.MaxMessages {
			keepRecent := s.cfg.MaxMessages / 2
			if _, err := s.cfg.Messages.Compact(ctx, s.cfg.ContextID, message.CompactOptions{
				Strategy: message.StrategySummarization, KeepRecent: keepRecent,
			}); err != nil {
				s.cfg.Logger.Error(ctx, "agentsession: autocompact failed", "error", err)
			}
		}
	}

	if s.status != StatusShutdown {
		s.status = StatusReady
	}
}
