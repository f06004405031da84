package tools_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentcore/runtime/tools"
)

func echoTool() tools.LocalSpec {
	return tools.LocalSpec{
		Name:        "echo",
		Description: "Echoes its input back",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text": map[string]any{"type": "string"},
			},
			"required": []string{"text"},
		},
		Handler: func(_ context.Context, args map[string]any, _ tools.ExecutionContext) (string, error) {
			return args["text"].(string), nil
		},
	}
}

func TestLocalToolsExecuteSuccess(t *testing.T) {
	lt, err := tools.NewLocalTools([]tools.LocalSpec{echoTool()})
	require.NoError(t, err)
	require.True(t, lt.CanHandle("echo"))

	res := lt.Execute(context.Background(), tools.Call{ID: "c1", Name: "echo", Arguments: map[string]any{"text": "hi"}}, tools.ExecutionContext{})
	require.True(t, res.Success)
	require.Equal(t, "hi", res.Content)
}

func TestLocalToolsRejectsMissingRequiredField(t *testing.T) {
	lt, err := tools.NewLocalTools([]tools.LocalSpec{echoTool()})
	require.NoError(t, err)

	res := lt.Execute(context.Background(), tools.Call{ID: "c1", Name: "echo", Arguments: map[string]any{}}, tools.ExecutionContext{})
	require.False(t, res.Success)
	require.NotEmpty(t, res.Issues)
}

func TestLocalToolsUnknownNameIsNotFound(t *testing.T) {
	lt, err := tools.NewLocalTools([]tools.LocalSpec{echoTool()})
	require.NoError(t, err)

	res := lt.Execute(context.Background(), tools.Call{ID: "c1", Name: "nope"}, tools.ExecutionContext{})
	require.False(t, res.Success)
	require.Contains(t, res.Error, "No provider for tool: nope")
}
