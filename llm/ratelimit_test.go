package llm_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentcore/runtime/llm"
)

func TestRateLimitedClientDelegatesCall(t *testing.T) {
	fake := &llm.FakeClient{Script: []llm.Chunk{
		{Content: "hi", ContentDelta: "hi", Finished: true, FinishReason: llm.FinishStop},
	}}
	client := llm.NewRateLimitedClient(fake, 1000, 10)

	stream, err := client.Call(context.Background(), llm.Request{})
	require.NoError(t, err)
	defer stream.Close()

	chunk, err := stream.Recv()
	require.NoError(t, err)
	require.True(t, chunk.Finished)
	require.Equal(t, "hi", chunk.Content)
}

func TestRateLimitedClientRespectsCancellation(t *testing.T) {
	fake := &llm.FakeClient{}
	client := llm.NewRateLimitedClient(fake, 0.001, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Call(ctx, llm.Request{})
	require.ErrorIs(t, err, context.Canceled)
}
