package contextstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/agentcore/runtime"
	"github.com/agentcore/runtime/contextstore"
)

func TestCreateGetUpdate(t *testing.T) {
	store := contextstore.NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, contextstore.ContextState{ContextID: "c1", AgentID: "a1"}))
	err := store.Create(ctx, contextstore.ContextState{ContextID: "c1", AgentID: "a1"})
	require.ErrorIs(t, err, contextstore.ErrAlreadyExists)

	got, err := store.Get(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, contextstore.StatusActive, got.Status)

	got.TurnCount = 1
	got.Status = contextstore.StatusPaused
	require.NoError(t, store.Update(ctx, got))

	got2, err := store.Get(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, 1, got2.TurnCount)
	require.Equal(t, contextstore.StatusPaused, got2.Status)
	require.Equal(t, got.CreatedAt, got2.CreatedAt)
}

func TestLockLifecycle(t *testing.T) {
	store := contextstore.NewInMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, contextstore.ContextState{ContextID: "c1", AgentID: "a1"}))

	ok, err := store.AcquireLock(ctx, "c1", "owner-a", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = store.AcquireLock(ctx, "c1", "owner-b", time.Minute)
	require.NoError(t, err)
	require.False(t, ok, "second owner must not acquire a live lock")

	locked, err := store.IsLocked(ctx, "c1")
	require.NoError(t, err)
	require.True(t, locked)

	require.NoError(t, store.ReleaseLock(ctx, "c1", "owner-b"))
	locked, err = store.IsLocked(ctx, "c1")
	require.NoError(t, err)
	require.True(t, locked, "release by non-holder must be a no-op")

	require.NoError(t, store.ReleaseLock(ctx, "c1", "owner-a"))
	locked, err = store.IsLocked(ctx, "c1")
	require.NoError(t, err)
	require.False(t, locked)
}

func TestAcquireLockAfterExpiry(t *testing.T) {
	store := contextstore.NewInMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, contextstore.ContextState{ContextID: "c1", AgentID: "a1"}))

	ok, err := store.AcquireLock(ctx, "c1", "owner-a", -time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = store.AcquireLock(ctx, "c1", "owner-b", time.Minute)
	require.NoError(t, err)
	require.True(t, ok, "an expired lock must be acquirable by a new owner")
}

func TestRefreshLockRequiresOwnerMatch(t *testing.T) {
	store := contextstore.NewInMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, contextstore.ContextState{ContextID: "c1", AgentID: "a1"}))
	_, err := store.AcquireLock(ctx, "c1", "owner-a", time.Minute)
	require.NoError(t, err)

	err = store.RefreshLock(ctx, "c1", "owner-b", time.Minute)
	require.Error(t, err)

	require.NoError(t, store.RefreshLock(ctx, "c1", "owner-a", time.Minute))
}

func TestListFiltersByAgentStatusAndTag(t *testing.T) {
	store := contextstore.NewInMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, contextstore.ContextState{ContextID: "c1", AgentID: "a1", Tags: []string{"billing"}}))
	require.NoError(t, store.Create(ctx, contextstore.ContextState{ContextID: "c2", AgentID: "a1", Tags: []string{"support"}}))
	require.NoError(t, store.Create(ctx, contextstore.ContextState{ContextID: "c3", AgentID: "a2"}))

	agentID := agentcore.AgentID("a1")
	out, err := store.List(ctx, contextstore.Filter{AgentID: &agentID, Tag: "billing"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, agentcore.ContextID("c1"), out[0].ContextID)
}

func TestSearchMatchesTitleAndDescription(t *testing.T) {
	store := contextstore.NewInMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, contextstore.ContextState{ContextID: "c1", AgentID: "a1", Title: "Refund request"}))
	require.NoError(t, store.Create(ctx, contextstore.ContextState{ContextID: "c2", AgentID: "a1", Description: "unrelated"}))

	out, err := store.Search(ctx, "refund")
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, agentcore.ContextID("c1"), out[0].ContextID)
}
