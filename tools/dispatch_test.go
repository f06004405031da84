package tools_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentcore/runtime"
	"github.com/agentcore/runtime/stream"
	"github.com/agentcore/runtime/tools"
)

func TestDispatcherPrefersThoughtToolOverRegularProvider(t *testing.T) {
	emitter := stream.NewEmitter(stream.AgentDebugProfile())
	thought := tools.NewThoughtTool(emitter, nil)

	lt, err := tools.NewLocalTools([]tools.LocalSpec{{
		Name: tools.ThoughtToolName,
		Handler: func(context.Context, map[string]any, tools.ExecutionContext) (string, error) {
			return "should never run", nil
		},
	}})
	require.NoError(t, err)

	d := tools.NewDispatcher(thought, []tools.Provider{lt})
	res := d.Execute(context.Background(), tools.Call{
		ID: "c1", Name: tools.ThoughtToolName,
		Arguments: map[string]any{"thought": "considering options", "thought_type": "planning"},
	}, tools.ExecutionContext{TaskID: agentcore.TaskID("t1"), ContextID: agentcore.ContextID("c1")})

	require.True(t, res.Success)
	require.Equal(t, "thought recorded", res.Content)
}

func TestDispatcherNotFoundDoesNotPanic(t *testing.T) {
	d := tools.NewDispatcher(nil, nil)
	res := d.Execute(context.Background(), tools.Call{ID: "c1", Name: "missing"}, tools.ExecutionContext{})
	require.False(t, res.Success)
	require.Equal(t, "No provider for tool: missing", res.Error)
}

func TestExecuteConcurrentPreservesOrder(t *testing.T) {
	lt, err := tools.NewLocalTools([]tools.LocalSpec{
		{Name: "a", Handler: func(context.Context, map[string]any, tools.ExecutionContext) (string, error) { return "a", nil }},
		{Name: "b", Handler: func(context.Context, map[string]any, tools.ExecutionContext) (string, error) { return "b", nil }},
	})
	require.NoError(t, err)
	d := tools.NewDispatcher(nil, []tools.Provider{lt})

	calls := []tools.Call{{ID: "1", Name: "a"}, {ID: "2", Name: "b"}}
	results := d.ExecuteConcurrent(context.Background(), calls, tools.ExecutionContext{})
	require.Len(t, results, 2)
	require.Equal(t, "a", results[0].Content)
	require.Equal(t, "b", results[1].Content)
}

func TestThoughtToolRejectsDisallowedType(t *testing.T) {
	emitter := stream.NewEmitter(stream.AgentDebugProfile())
	thought := tools.NewThoughtTool(emitter, []stream.ThoughtType{stream.ThoughtPlanning})

	res := thought.Execute(context.Background(), tools.Call{
		ID: "c1", Name: tools.ThoughtToolName,
		Arguments: map[string]any{"thought": "x", "thought_type": "critique"},
	}, tools.ExecutionContext{})
	require.False(t, res.Success)
}
