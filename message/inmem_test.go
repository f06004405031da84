package message_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentcore/runtime"
	"github.com/agentcore/runtime/message"
)

func TestAppendAssignsMonotonicIndex(t *testing.T) {
	store := message.NewInMemoryStore()
	ctx := context.Background()
	ctxID := agentcore.ContextID("c1")

	require.NoError(t, store.Append(ctx, ctxID, []message.Message{{Role: message.RoleUser, Content: "hi"}}))
	require.NoError(t, store.Append(ctx, ctxID, []message.Message{{Role: message.RoleAssistant, Content: "hello"}}))

	all, err := store.GetAll(ctx, ctxID)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, 0, all[0].Index)
	require.Equal(t, 1, all[1].Index)
}

func TestGetRecentMaxTokensKeepsAtLeastOne(t *testing.T) {
	store := message.NewInMemoryStore()
	ctx := context.Background()
	ctxID := agentcore.ContextID("c1")

	long := make([]byte, 400)
	for i := range long {
		long[i] = 'x'
	}
	require.NoError(t, store.Append(ctx, ctxID, []message.Message{
		{Role: message.RoleUser, Content: string(long)},
		{Role: message.RoleAssistant, Content: string(long)},
	}))

	recent, err := store.GetRecent(ctx, ctxID, message.RecentOptions{MaxTokens: 10})
	require.NoError(t, err)
	require.Len(t, recent, 1)
}

func TestCompactSlidingWindow(t *testing.T) {
	store := message.NewInMemoryStore()
	ctx := context.Background()
	ctxID := agentcore.ContextID("c1")

	var msgs []message.Message
	for i := 0; i < 20; i++ {
		msgs = append(msgs, message.Message{Role: message.RoleUser, Content: "m"})
	}
	require.NoError(t, store.Append(ctx, ctxID, msgs))

	result, err := store.Compact(ctx, ctxID, message.CompactOptions{Strategy: message.StrategySlidingWindow, KeepRecent: 5})
	require.NoError(t, err)
	require.Equal(t, 5, result.MessageCount)

	all, err := store.GetAll(ctx, ctxID)
	require.NoError(t, err)
	require.Len(t, all, 5)
	require.Equal(t, 0, all[0].Index)
}

func TestCompactSummarizationPreservesRecentSuffix(t *testing.T) {
	store := message.NewInMemoryStore()
	ctx := context.Background()
	ctxID := agentcore.ContextID("c1")

	var msgs []message.Message
	for i := 0; i < 101; i++ {
		msgs = append(msgs, message.Message{Role: message.RoleUser, Content: "message"})
	}
	require.NoError(t, store.Append(ctx, ctxID, msgs))
	preCompaction, err := store.GetRange(ctx, ctxID, 51, 101)
	require.NoError(t, err)

	result, err := store.Compact(ctx, ctxID, message.CompactOptions{Strategy: message.StrategySummarization, KeepRecent: 50})
	require.NoError(t, err)
	require.Equal(t, 51, result.MessageCount)

	all, err := store.GetAll(ctx, ctxID)
	require.NoError(t, err)
	require.Len(t, all, 51)
	require.Equal(t, message.RoleSystem, all[0].Role)
	require.NotEmpty(t, all[0].Content)

	for i, m := range preCompaction {
		require.Equal(t, m.Role, all[i+1].Role)
		require.Equal(t, m.Content, all[i+1].Content)
	}
}

func TestCompactHierarchicalChunksByTen(t *testing.T) {
	store := message.NewInMemoryStore()
	ctx := context.Background()
	ctxID := agentcore.ContextID("c1")

	var msgs []message.Message
	for i := 0; i < 35; i++ {
		msgs = append(msgs, message.Message{Role: message.RoleUser, Content: "m"})
	}
	require.NoError(t, store.Append(ctx, ctxID, msgs))

	result, err := store.Compact(ctx, ctxID, message.CompactOptions{Strategy: message.StrategyHierarchical, KeepRecent: 5})
	require.NoError(t, err)
	// 30 dropped messages / window of 10 = 3 chunk summaries, plus 5 kept.
	require.Equal(t, 8, result.MessageCount)
}
