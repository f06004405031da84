package loop

import (
	"github.com/agentcore/runtime/checkpoint"
	"github.com/agentcore/runtime/llm"
	"github.com/agentcore/runtime/message"
	"github.com/agentcore/runtime/tools"
)

func toLLMMessages(prompt string, msgs []message.Message) []llm.Message {
	out := make([]llm.Message, 0, len(msgs)+1)
	if prompt != "" {
		out = append(out, llm.Message{Role: string(message.RoleSystem), Content: prompt})
	}
	for _, m := range msgs {
		out = append(out, llm.Message{
			Role:       string(m.Role),
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
			Name:       m.Name,
			ToolCalls:  toLLMToolCalls(m.ToolCalls),
		})
	}
	return out
}

func toLLMToolCalls(refs []message.ToolCallRef) []llm.ToolCall {
	if len(refs) == 0 {
		return nil
	}
	out := make([]llm.ToolCall, len(refs))
	for i, r := range refs {
		out[i] = llm.ToolCall{ID: r.ID, Name: r.Name, Arguments: r.Arguments}
	}
	return out
}

func toMessageToolCalls(calls []llm.ToolCall) []message.ToolCallRef {
	if len(calls) == 0 {
		return nil
	}
	out := make([]message.ToolCallRef, len(calls))
	for i, c := range calls {
		out[i] = message.ToolCallRef{ID: c.ID, Name: c.Name, Arguments: c.Arguments}
	}
	return out
}

func toLLMTools(defs []tools.Definition) []llm.ToolSpec {
	if len(defs) == 0 {
		return nil
	}
	out := make([]llm.ToolSpec, len(defs))
	for i, d := range defs {
		out[i] = llm.ToolSpec{Name: d.Name, Description: d.Description, Parameters: d.Parameters}
	}
	return out
}

// sanitizeToolCalls drops any tool call missing an id or name and backfills
// a nil Arguments map with an empty object, so downstream dispatch and
// persistence never have to special-case malformed provider output (§4.H
// step 2c).
func sanitizeToolCalls(in []llm.ToolCall) []llm.ToolCall {
	out := make([]llm.ToolCall, 0, len(in))
	for _, tc := range in {
		if tc.ID == "" || tc.Name == "" {
			continue
		}
		args := tc.Arguments
		if args == nil {
			args = map[string]any{}
		}
		out = append(out, llm.ToolCall{ID: tc.ID, Name: tc.Name, Arguments: args})
	}
	return out
}

func toPersistedToolCalls(calls []llm.ToolCall) []checkpoint.PersistedToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]checkpoint.PersistedToolCall, len(calls))
	for i, c := range calls {
		out[i] = checkpoint.PersistedToolCall{ToolCallID: c.ID, Name: c.Name, Arguments: c.Arguments}
	}
	return out
}

func fromPersistedToolCalls(calls []checkpoint.PersistedToolCall) []llm.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]llm.ToolCall, len(calls))
	for i, c := range calls {
		out[i] = llm.ToolCall{ID: c.ToolCallID, Name: c.Name, Arguments: c.Arguments}
	}
	return out
}

func toPersistedMessages(msgs []message.Message) []checkpoint.PersistedMessage {
	out := make([]checkpoint.PersistedMessage, len(msgs))
	for i, m := range msgs {
		out[i] = checkpoint.PersistedMessage{
			Role:       string(m.Role),
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
			Name:       m.Name,
			ToolCalls:  toPersistedToolCalls(toLLMToolCalls(m.ToolCalls)),
			Index:      m.Index,
		}
	}
	return out
}

func fromPersistedMessages(msgs []checkpoint.PersistedMessage) []message.Message {
	out := make([]message.Message, len(msgs))
	for i, m := range msgs {
		out[i] = message.Message{
			Role:       message.Role(m.Role),
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
			Name:       m.Name,
			ToolCalls:  toMessageToolCalls(fromPersistedToolCalls(m.ToolCalls)),
			Index:      m.Index,
		}
	}
	return out
}

func toPersisted(state LoopState) checkpoint.PersistedLoopState {
	p := checkpoint.PersistedLoopState{
		TaskID:         state.TaskID,
		AgentID:        state.AgentID,
		ParentTaskID:   state.ParentTaskID,
		ContextID:      state.ContextID,
		Messages:       toPersistedMessages(state.Messages),
		SystemPrompt:   state.SystemPrompt,
		Iteration:      state.Iteration,
		Completed:      state.Completed,
		AvailableTools: state.AvailableTools,
		ArtifactIDs:    state.ArtifactIDs,
		LastActivityAt: state.LastActivityAt,
		ResumeFrom:     state.ResumeFrom,
	}
	if state.LastResponse != nil {
		p.LastLLMResponse = &checkpoint.PersistedLLMResponse{
			Content:      state.LastResponse.Content,
			Finished:     state.LastResponse.Finished,
			FinishReason: string(state.LastResponse.FinishReason),
			ToolCalls:    toPersistedToolCalls(state.LastResponse.ToolCalls),
		}
	}
	return p
}

func fromPersisted(p checkpoint.PersistedLoopState) LoopState {
	state := LoopState{
		TaskID:         p.TaskID,
		AgentID:        p.AgentID,
		ParentTaskID:   p.ParentTaskID,
		ContextID:      p.ContextID,
		Messages:       fromPersistedMessages(p.Messages),
		SystemPrompt:   p.SystemPrompt,
		Iteration:      p.Iteration,
		Completed:      p.Completed,
		AvailableTools: p.AvailableTools,
		ArtifactIDs:    p.ArtifactIDs,
		LastActivityAt: p.LastActivityAt,
		ResumeFrom:     p.ResumeFrom,
	}
	if p.LastLLMResponse != nil {
		state.LastResponse = &llmResponseRecord{
			Content:      p.LastLLMResponse.Content,
			Finished:     p.LastLLMResponse.Finished,
			FinishReason: llm.FinishReason(p.LastLLMResponse.FinishReason),
			ToolCalls:    fromPersistedToolCalls(p.LastLLMResponse.ToolCalls),
		}
	}
	return state
}

func toolResultContent(r tools.Result) string {
	if r.Success {
		return r.Content
	}
	return r.Error
}
