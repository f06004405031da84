package loop

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/agentcore/runtime"
	"github.com/agentcore/runtime/checkpoint"
	"github.com/agentcore/runtime/llm"
	"github.com/agentcore/runtime/message"
	"github.com/agentcore/runtime/stream"
	"github.com/agentcore/runtime/thinking"
	"github.com/agentcore/runtime/tools"
)

// execute runs the iterate step to completion (or exhaustion) and then
// finalizes the turn (§4.H step 3). It is always run in its own goroutine;
// em is the only channel back to the caller.
func (l *Loop) execute(ctx context.Context, em *stream.Emitter, dispatcher *tools.Dispatcher, state *LoopState) {
	turnCtx, turnSpan := l.cfg.Tracer.Start(ctx, "agentloop.turn")
	turnSpan.AddEvent("turn.started", "taskId", state.TaskID, "contextId", state.ContextID, "agentId", state.AgentID)
	defer turnSpan.End()

	var runErr error
	for !state.Completed && state.Iteration < l.cfg.MaxIterations {
		if err := turnCtx.Err(); err != nil {
			runErr = err
			break
		}
		state.Iteration++
		if err := l.runIteration(turnCtx, em, dispatcher, state); err != nil {
			runErr = err
			break
		}
	}

	l.finalize(turnCtx, em, state, runErr)
}

func (l *Loop) finalize(ctx context.Context, em *stream.Emitter, state *LoopState, runErr error) {
	switch {
	case runErr != nil:
		l.cfg.Logger.Error(ctx, "agentloop: turn failed", "taskId", state.TaskID, "error", runErr)
		em.Emit(stream.NewTaskFailed(state.TaskID, state.ContextID, runErr.Error()))
		em.Error(runErr)

	case state.Completed:
		content := ""
		if state.LastResponse != nil {
			content = state.LastResponse.Content
		}
		em.Emit(stream.NewTaskComplete(state.TaskID, state.ContextID, content))
		em.Complete()

	default:
		err := agentcore.NewCodedError(agentcore.ErrCodeMaxIterationsReached,
			fmt.Sprintf("agentloop: reached max iterations (%d) without completion", l.cfg.MaxIterations), nil)
		em.Emit(stream.NewTaskFailed(state.TaskID, state.ContextID, err.Error()))
		em.Error(err)
	}
}

// runIteration is one pass of §4.H step 2: call the model, stream its
// content through the thought extractor, sanitize the response, dispatch
// any requested tools, and checkpoint if warranted.
func (l *Loop) runIteration(ctx context.Context, em *stream.Emitter, dispatcher *tools.Dispatcher, state *LoopState) error {
	ctx, span := l.cfg.Tracer.Start(ctx, "agentloop.iteration")
	defer span.End()

	em.Emit(stream.NewLLMCall(state.TaskID, state.ContextID, state.Iteration))

	req := llm.Request{
		Messages:  toLLMMessages(state.SystemPrompt, state.Messages),
		Tools:     toLLMTools(dispatcher.Definitions()),
		Stream:    true,
		SessionID: string(state.ContextID),
	}

	respStream, err := l.cfg.LLM.Call(ctx, req)
	if err != nil {
		return fmt.Errorf("agentloop: llm call: %w", err)
	}
	defer respStream.Close()

	extractor := thinking.New()
	var cleaned strings.Builder
	chunkIndex := 0
	var final llm.Chunk

	for {
		chunk, err := respStream.Recv()
		if err != nil {
			return fmt.Errorf("agentloop: llm stream: %w", err)
		}

		piece, thoughts := extractor.Feed(chunk.ContentDelta)
		for _, th := range thoughts {
			em.Emit(stream.NewThoughtStream(state.TaskID, state.ContextID, stream.ThoughtStreamPayload{
				ThoughtType: stream.ThoughtReasoning,
				Content:     th,
			}))
		}
		if piece != "" {
			em.Emit(stream.NewContentDelta(state.TaskID, state.ContextID, piece, chunkIndex))
			chunkIndex++
			cleaned.WriteString(piece)
		}

		if chunk.Finished {
			final = chunk
			break
		}
	}

	// Flush whatever the extractor is still holding (an unmatched opener,
	// or a partial-tag suffix that the stream never completed) as a last
	// delta, run through the safety net used on final content everywhere.
	if leftover := thinking.StripFinal(extractor.Flush()); leftover != "" {
		em.Emit(stream.NewContentDelta(state.TaskID, state.ContextID, leftover, chunkIndex))
		chunkIndex++
		cleaned.WriteString(leftover)
	}

	// Whitespace in each delta is preserved verbatim; trimming happens once,
	// here, on the fully assembled content (§4.G, §9).
	assembled := strings.TrimSpace(cleaned.String())
	em.Emit(stream.NewContentComplete(state.TaskID, state.ContextID, assembled))

	toolCalls := sanitizeToolCalls(final.ToolCalls)
	content := assembled
	finishReason := final.FinishReason
	finished := final.Finished
	if content == "" && len(toolCalls) > 0 {
		// A tool-only response is never "finished" on its own; the turn
		// continues once the tool results are back in history.
		finishReason = llm.FinishToolCalls
		finished = false
	}

	state.Messages = append(state.Messages, message.Message{
		Role:      message.RoleAssistant,
		Content:   content,
		ToolCalls: toMessageToolCalls(toolCalls),
		Index:     len(state.Messages),
		Timestamp: l.now(),
	})
	state.LastResponse = &llmResponseRecord{
		Content:      content,
		Finished:     finished,
		FinishReason: finishReason,
		ToolCalls:    toolCalls,
	}

	hadToolCalls := len(toolCalls) > 0
	if hadToolCalls {
		l.dispatchTools(ctx, em, dispatcher, state, toolCalls)
		state.ResumeFrom = checkpoint.ResumeFromToolExecution
	} else if finished || finishReason == llm.FinishStop {
		state.Completed = true
		state.ResumeFrom = checkpoint.ResumeFromCompleted
	} else {
		// Defensive: the provider returned neither a finish nor tool calls.
		// Re-enter iterate without appending further messages.
		state.ResumeFrom = checkpoint.ResumeFromLLMCall
	}

	state.LastActivityAt = l.now()

	if l.shouldCheckpoint(state, hadToolCalls) {
		l.saveCheckpoint(ctx, em, state)
	}

	return nil
}

// dispatchTools emits tool-start for every call up front (so tool-start(i)
// always precedes tool-complete(i)), runs them concurrently, then appends
// one tool-role message per result in call order (§4.H step 2d, §8
// scenario 2).
func (l *Loop) dispatchTools(ctx context.Context, em *stream.Emitter, dispatcher *tools.Dispatcher, state *LoopState, toolCalls []llm.ToolCall) {
	calls := make([]tools.Call, len(toolCalls))
	for i, tc := range toolCalls {
		calls[i] = tools.Call{ID: tc.ID, Name: tc.Name, Arguments: tc.Arguments}
		em.Emit(stream.NewToolStart(state.TaskID, state.ContextID, tc.ID, tc.Name, tc.Arguments))
	}

	execCtx := tools.ExecutionContext{TaskID: state.TaskID, ContextID: state.ContextID, AgentID: state.AgentID}
	results := dispatcher.ExecuteConcurrent(ctx, calls, execCtx)

	for i, r := range results {
		em.Emit(stream.NewToolComplete(state.TaskID, state.ContextID, stream.ToolCompletePayload{
			ToolCallID: r.ToolCallID,
			Name:       calls[i].Name,
			Success:    r.Success,
			Result:     toolResultPayload(r),
			Error:      r.Error,
		}))
	}

	for i, r := range results {
		state.Messages = append(state.Messages, message.Message{
			Role:       message.RoleTool,
			Content:    toolResultContent(r),
			ToolCallID: r.ToolCallID,
			Name:       calls[i].Name,
			Index:      len(state.Messages),
			Timestamp:  l.now(),
		})
	}
}

// toolResultPayload tries to surface a tool result's content as structured
// JSON for the tool-complete event; falls back to the raw string when it
// isn't valid JSON (plain-text tool outputs are legal).
func toolResultPayload(r tools.Result) any {
	if !r.Success || r.Content == "" {
		return nil
	}
	var v any
	if err := json.Unmarshal([]byte(r.Content), &v); err == nil {
		return v
	}
	return r.Content
}

func (l *Loop) shouldCheckpoint(state *LoopState, hadToolCalls bool) bool {
	if l.cfg.Checkpoints == nil {
		return false
	}
	onInterval := state.Iteration%l.cfg.CheckpointInterval == 0
	return onInterval || state.LastResponse != nil || hadToolCalls
}

func (l *Loop) saveCheckpoint(ctx context.Context, em *stream.Emitter, state *LoopState) {
	if err := l.cfg.Checkpoints.Save(ctx, toPersisted(*state)); err != nil {
		l.cfg.Logger.Error(ctx, "agentloop: checkpoint save failed", "taskId", state.TaskID, "error", err)
		return
	}
	em.Emit(stream.NewCheckpoint(state.TaskID, state.ContextID, state.Iteration, string(state.ResumeFrom)))
}
