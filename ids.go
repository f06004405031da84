// Package agentcore provides the strong identifier types and stable error
// codes shared by every component of the agent execution core: the event
// stream, the message/artifact/checkpoint/context stores, tool dispatch,
// the agent loop and the session wrapper.
package agentcore

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TaskID identifies one turn's execution instance. It keys checkpoint state
// and the events emitted for that turn.
type TaskID string

// ContextID identifies a durable session across turns. It keys all stored
// conversational state (messages, artifacts, context metadata).
type ContextID string

// AgentID identifies the agent definition driving a session (its system
// prompt, tool providers and model configuration).
type AgentID string

// NewTaskID generates a task identifier in the `task_{timestamp}_{random}`
// shape used when the caller does not supply one.
func NewTaskID() TaskID {
	return TaskID(fmt.Sprintf("task_%d_%s", time.Now().UnixNano(), uuid.NewString()[:8]))
}

// NewContextID generates a fresh context identifier for a new session.
func NewContextID() ContextID {
	return ContextID(uuid.NewString())
}
