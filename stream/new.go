package stream

// This file collects one constructor per concrete event type so producers
// (the agent loop, tool providers, the thought extractor) never assemble a
// Base by hand and risk mismatching Type() against the embedded Data.

import "github.com/agentcore/runtime"

func NewTaskCreated(taskID agentcore.TaskID, contextID agentcore.ContextID, agentID agentcore.AgentID) TaskCreated {
	d := TaskCreatedPayload{AgentID: agentID}
	return TaskCreated{Base: NewBase(EventTaskCreated, taskID, contextID, d), Data: d}
}

func NewTaskStatus(taskID agentcore.TaskID, contextID agentcore.ContextID, state TaskStatusState, errMsg string) TaskStatus {
	d := TaskStatusPayload{State: state, Error: errMsg}
	return TaskStatus{Base: NewBase(EventTaskStatus, taskID, contextID, d), Data: d}
}

func NewTaskComplete(taskID agentcore.TaskID, contextID agentcore.ContextID, content string) TaskComplete {
	d := TaskCompletePayload{Content: content}
	return TaskComplete{Base: NewBase(EventTaskComplete, taskID, contextID, d), Data: d}
}

func NewTaskFailed(taskID agentcore.TaskID, contextID agentcore.ContextID, errMsg string) TaskFailed {
	d := TaskFailedPayload{Error: errMsg}
	return TaskFailed{Base: NewBase(EventTaskFailed, taskID, contextID, d), Data: d}
}

func NewContentDelta(taskID agentcore.TaskID, contextID agentcore.ContextID, delta string, chunkIndex int) ContentDelta {
	d := ContentDeltaPayload{Delta: delta, ChunkIndex: chunkIndex}
	return ContentDelta{Base: NewBase(EventContentDelta, taskID, contextID, d), Data: d}
}

func NewContentComplete(taskID agentcore.TaskID, contextID agentcore.ContextID, content string) ContentComplete {
	d := ContentCompletePayload{Content: content}
	return ContentComplete{Base: NewBase(EventContentComplete, taskID, contextID, d), Data: d}
}

func NewThoughtStream(taskID agentcore.TaskID, contextID agentcore.ContextID, data ThoughtStreamPayload) ThoughtStream {
	return ThoughtStream{Base: NewBase(EventThoughtStream, taskID, contextID, data), Data: data}
}

func NewToolStart(taskID agentcore.TaskID, contextID agentcore.ContextID, toolCallID, name string, arguments any) ToolStart {
	d := ToolStartPayload{ToolCallID: toolCallID, Name: name, Arguments: arguments}
	return ToolStart{Base: NewBase(EventToolStart, taskID, contextID, d), Data: d}
}

func NewToolComplete(taskID agentcore.TaskID, contextID agentcore.ContextID, data ToolCompletePayload) ToolComplete {
	return ToolComplete{Base: NewBase(EventToolComplete, taskID, contextID, data), Data: data}
}

func NewFileWrite(taskID agentcore.TaskID, contextID agentcore.ContextID, data FileWritePayload) FileWrite {
	return FileWrite{Base: NewBase(EventFileWrite, taskID, contextID, data), Data: data}
}

func NewDataWrite(taskID agentcore.TaskID, contextID agentcore.ContextID, data DataWritePayload) DataWrite {
	return DataWrite{Base: NewBase(EventDataWrite, taskID, contextID, data), Data: data}
}

func NewDatasetWrite(taskID agentcore.TaskID, contextID agentcore.ContextID, data DatasetWritePayload) DatasetWrite {
	return DatasetWrite{Base: NewBase(EventDatasetWrite, taskID, contextID, data), Data: data}
}

func NewLLMCall(taskID agentcore.TaskID, contextID agentcore.ContextID, iteration int) LLMCall {
	d := LLMCallPayload{Iteration: iteration}
	return LLMCall{Base: NewBase(EventLLMCall, taskID, contextID, d), Data: d}
}

func NewCheckpoint(taskID agentcore.TaskID, contextID agentcore.ContextID, iteration int, resumeFrom string) Checkpoint {
	d := CheckpointPayload{Iteration: iteration, ResumeFrom: resumeFrom}
	return Checkpoint{Base: NewBase(EventCheckpoint, taskID, contextID, d), Data: d}
}
