// Package tools implements the tool provider and dispatch contract (§4.F):
// typed local tools, client-executed tools, and the think-aloud pseudo-tool,
// behind a common ToolProvider interface a Dispatcher routes calls through.
package tools

import (
	"context"

	"github.com/agentcore/runtime"
)

// Definition describes one callable tool: its name, description, and JSON
// schema for arguments (a decoded JSON Schema document, not a JSON string,
// so providers can share and recompile it without reparsing).
type Definition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Call is one invocation requested by the LLM's sanitized tool calls.
type Call struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// FieldIssue describes one offending path in a tool call's arguments when
// schema validation fails (§4.F: "a structured error listing offending
// paths").
type FieldIssue struct {
	Field      string
	Constraint string
	Allowed    []string
	MinLen     *int
	MaxLen     *int
	Pattern    string
	Format     string
}

// Result is the outcome of one tool execution.
type Result struct {
	ToolCallID string
	Success    bool
	Content    string
	Error      string
	Issues     []FieldIssue
}

// TraceContext is the optional trace propagation carried by ExecutionContext.
type TraceContext struct {
	TraceID    string
	SpanID     string
	TraceFlags string
	TraceState string
}

// AuthContext is the optional auth propagation carried by ExecutionContext.
type AuthContext struct {
	UserID      string
	Credentials map[string]string
	Scopes      []string
}

// ExecutionContext is passed to every tool execution (§4.F).
type ExecutionContext struct {
	TaskID    agentcore.TaskID
	ContextID agentcore.ContextID
	AgentID   agentcore.AgentID
	Trace     *TraceContext
	Auth      *AuthContext
}

// Provider exposes one or more tools to the agent loop.
type Provider interface {
	GetTools() []Definition
	CanHandle(name string) bool
	Execute(ctx context.Context, call Call, execCtx ExecutionContext) Result
}

// BatchProvider is implemented by providers that can execute several calls
// more efficiently together than one at a time. Dispatcher does not call
// ExecuteBatch: it routes every call through Execute, one goroutine a call.
type BatchProvider interface {
	Provider
	ExecuteBatch(ctx context.Context, calls []Call, execCtx ExecutionContext) []Result
}

// NotFoundResult builds the non-aborting failure result for a tool call that
// no provider claims (§4.F: "do not abort the turn").
func NotFoundResult(call Call) Result {
	return Result{
		ToolCallID: call.ID,
		Success:    false,
		Error:      "No provider for tool: " + call.Name,
	}
}
