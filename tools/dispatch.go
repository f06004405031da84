package tools

import (
	"context"
	"sync"
)

// Dispatcher routes tool calls to the first provider whose CanHandle
// matches, with the thought-tool provider given precedence over regular
// providers regardless of registration order (§4.F).
type Dispatcher struct {
	thought   Provider
	providers []Provider
}

// NewDispatcher constructs a Dispatcher. thought may be nil when no
// think_aloud provider is configured for this loop.
func NewDispatcher(thought Provider, providers []Provider) *Dispatcher {
	return &Dispatcher{thought: thought, providers: providers}
}

// Definitions returns every tool definition across the thought provider (if
// any) followed by the regular providers, in registration order.
func (d *Dispatcher) Definitions() []Definition {
	var defs []Definition
	if d.thought != nil {
		defs = append(defs, d.thought.GetTools()...)
	}
	for _, p := range d.providers {
		defs = append(defs, p.GetTools()...)
	}
	return defs
}

// GetTools and CanHandle let a Dispatcher satisfy Provider itself, so one
// Dispatcher's regular providers can be nested behind another provider that
// takes dispatch precedence (the agent loop uses this to put a per-turn
// think_aloud tool ahead of a fixed, longer-lived set of regular providers).
func (d *Dispatcher) GetTools() []Definition { return d.Definitions() }

func (d *Dispatcher) CanHandle(name string) bool { return d.resolve(name) != nil }

func (d *Dispatcher) resolve(name string) Provider {
	if d.thought != nil && d.thought.CanHandle(name) {
		return d.thought
	}
	for _, p := range d.providers {
		if p.CanHandle(name) {
			return p
		}
	}
	return nil
}

// Execute dispatches one call, returning the not-found Result rather than an
// error when no provider claims it (§4.F: "do not abort the turn").
func (d *Dispatcher) Execute(ctx context.Context, call Call, execCtx ExecutionContext) Result {
	p := d.resolve(call.Name)
	if p == nil {
		return NotFoundResult(call)
	}
	return p.Execute(ctx, call, execCtx)
}

// ExecuteConcurrent dispatches every call in calls concurrently and returns
// results reassembled in the same order as calls, regardless of completion
// order (§4.H: "dispatch them concurrently ... await all results").
func (d *Dispatcher) ExecuteConcurrent(ctx context.Context, calls []Call, execCtx ExecutionContext) []Result {
	results := make([]Result, len(calls))
	var wg sync.WaitGroup
	wg.Add(len(calls))
	for i, call := range calls {
		go func(i int, call Call) {
			defer wg.Done()
			results[i] = d.Execute(ctx, call, execCtx)
		}(i, call)
	}
	wg.Wait()
	return results
}

var _ Provider = (*Dispatcher)(nil)
