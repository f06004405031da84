package artifact_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentcore/runtime"
	"github.com/agentcore/runtime/artifact"
)

// TestParallelArtifactOpsAreSerializedPerID mirrors §8 scenario 3: create
// plus two appends scheduled for the same id must run create-before-append
// and converge on the documented final state. The calls are issued one
// after another from this goroutine (each blocks until its op has run), so
// this checks the scheduled order and final state, not concurrent dispatch.
func TestParallelArtifactOpsAreSerializedPerID(t *testing.T) {
	sched := artifact.NewScheduler(artifact.NewInMemoryStore())
	ctx := context.Background()
	id := "r"

	// create must be scheduled before either append observes it; the
	// scheduler's FIFO guarantee is over enqueue order, not goroutine start
	// order, so the two appends are enqueued in the order the loop would
	// emit them for a single streamed file (chunks arrive in sequence).
	require.NoError(t, sched.CreateFile(ctx, artifact.CreateParams{ArtifactID: id, TaskID: "t1", ContextID: "c1"}))
	require.NoError(t, sched.AppendFileChunk(ctx, id, []byte("A\n"), artifact.AppendFileOptions{}))
	require.NoError(t, sched.AppendFileChunk(ctx, id, []byte("B\n"), artifact.AppendFileOptions{IsLastChunk: true}))

	content, err := sched.GetFileContent(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "A\nB\n", string(content))

	got, err := sched.GetArtifact(ctx, id)
	require.NoError(t, err)
	require.Equal(t, artifact.StatusComplete, got.Status)
	require.Equal(t, 4, got.Version)
}

func TestSchedulerRunsDistinctIDsConcurrently(t *testing.T) {
	sched := artifact.NewScheduler(artifact.NewInMemoryStore())
	ctx := context.Background()

	require.NoError(t, sched.CreateData(ctx, artifact.CreateParams{ArtifactID: "a", TaskID: "t1", ContextID: "c1"}))
	require.NoError(t, sched.CreateData(ctx, artifact.CreateParams{ArtifactID: "b", TaskID: "t1", ContextID: "c1"}))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = sched.WriteData(ctx, "a", map[string]any{"x": 1})
	}()
	go func() {
		defer wg.Done()
		_ = sched.WriteData(ctx, "b", map[string]any{"y": 2})
	}()
	wg.Wait()

	da, err := sched.GetDataContent(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, 1, da["x"])
	db, err := sched.GetDataContent(ctx, "b")
	require.NoError(t, err)
	require.Equal(t, 2, db["y"])
}

func TestArtifactKindMismatch(t *testing.T) {
	store := artifact.NewInMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.CreateData(ctx, artifact.CreateParams{ArtifactID: "d", TaskID: "t1", ContextID: "c1"}))

	err := store.AppendFileChunk(ctx, "d", []byte("x"), artifact.AppendFileOptions{})
	require.ErrorIs(t, err, artifact.ErrKindMismatch)
}

func TestArtifactAlreadyExistsUnlessOverride(t *testing.T) {
	store := artifact.NewInMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.CreateData(ctx, artifact.CreateParams{ArtifactID: "d", TaskID: "t1", ContextID: "c1"}))

	err := store.CreateData(ctx, artifact.CreateParams{ArtifactID: "d", TaskID: "t1", ContextID: "c1"})
	require.ErrorIs(t, err, artifact.ErrAlreadyExists)

	require.NoError(t, store.WriteData(ctx, "d", map[string]any{"k": "v"}))
	before, err := store.GetArtifact(ctx, "d")
	require.NoError(t, err)

	require.NoError(t, store.CreateFile(ctx, artifact.CreateParams{ArtifactID: "d", TaskID: "t1", ContextID: "c1", Override: true}))
	after, err := store.GetArtifact(ctx, "d")
	require.NoError(t, err)
	require.Equal(t, artifact.KindFile, after.Kind)
	require.Equal(t, before.CreatedAt, after.CreatedAt)
	require.Greater(t, after.Version, before.Version)
	require.Equal(t, artifact.StatusBuilding, after.Status)
}
