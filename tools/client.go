package tools

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/agentcore/runtime/stream"
)

// ClientResolver is how a turn's caller supplies results for tools whose
// execution happens outside the process (a browser extension, a human
// approving an action, a companion service). ClientTools holds one resolver
// and, for each client-tool call, blocks on it after emitting task-status
// (input-required).
type ClientResolver interface {
	// Resolve blocks until the client submits a result for callID, ctx is
	// cancelled, or Timeout elapses — whichever happens first.
	Resolve(ctx context.Context, callID string, timeout time.Duration) (content string, ok bool)
}

// ClientTools is a Provider for tools executed outside the process. Dispatch
// emits an input-required task-status event and blocks on its resolver for
// each call; a resolver returning ok=false produces a failed Result rather
// than aborting the turn (§4.F).
type ClientTools struct {
	defs     []Definition
	byName   map[string]struct{}
	emitter  *stream.Emitter
	resolver ClientResolver
	timeout  time.Duration
}

// ClientToolsOptions configures NewClientTools.
type ClientToolsOptions struct {
	Tools    []Definition
	Emitter  *stream.Emitter
	Resolver ClientResolver
	Timeout  time.Duration // defaults to 5 minutes
}

// NewClientTools constructs a ClientTools provider.
func NewClientTools(opts ClientToolsOptions) *ClientTools {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	byName := make(map[string]struct{}, len(opts.Tools))
	for _, d := range opts.Tools {
		byName[d.Name] = struct{}{}
	}
	return &ClientTools{defs: opts.Tools, byName: byName, emitter: opts.Emitter, resolver: opts.Resolver, timeout: timeout}
}

func (c *ClientTools) GetTools() []Definition { return c.defs }

func (c *ClientTools) CanHandle(name string) bool {
	_, ok := c.byName[name]
	return ok
}

func (c *ClientTools) Execute(ctx context.Context, call Call, execCtx ExecutionContext) Result {
	if !c.CanHandle(call.Name) {
		return NotFoundResult(call)
	}

	if c.emitter != nil {
		c.emitter.Emit(stream.NewTaskStatus(execCtx.TaskID, execCtx.ContextID, stream.TaskStatusInputRequired, ""))
	}

	content, ok := c.resolver.Resolve(ctx, call.ID, c.timeout)
	if !ok {
		return Result{ToolCallID: call.ID, Success: false, Error: fmt.Sprintf("client did not return a result for tool call %s", call.ID)}
	}
	return Result{ToolCallID: call.ID, Success: true, Content: content}
}

// InMemoryResolver is a ClientResolver backed by per-call channels; a client
// submits a result with Submit and any concurrent Resolve for that call
// unblocks immediately.
type InMemoryResolver struct {
	mu      sync.Mutex
	pending map[string]chan string
}

// NewInMemoryResolver constructs an empty InMemoryResolver.
func NewInMemoryResolver() *InMemoryResolver {
	return &InMemoryResolver{pending: make(map[string]chan string)}
}

func (r *InMemoryResolver) Resolve(ctx context.Context, callID string, timeout time.Duration) (string, bool) {
	r.mu.Lock()
	ch, ok := r.pending[callID]
	if !ok {
		ch = make(chan string, 1)
		r.pending[callID] = ch
	}
	r.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case content := <-ch:
		r.forget(callID)
		return content, true
	case <-ctx.Done():
		r.forget(callID)
		return "", false
	case <-timer.C:
		r.forget(callID)
		return "", false
	}
}

// Submit delivers a client result for callID. Submitting before Resolve has
// been called is allowed; the channel buffers one value.
func (r *InMemoryResolver) Submit(callID, content string) {
	r.mu.Lock()
	ch, ok := r.pending[callID]
	if !ok {
		ch = make(chan string, 1)
		r.pending[callID] = ch
	}
	r.mu.Unlock()
	ch <- content
}

func (r *InMemoryResolver) forget(callID string) {
	r.mu.Lock()
	delete(r.pending, callID)
	r.mu.Unlock()
}

var _ Provider = (*ClientTools)(nil)
