package artifact_test

import (
	"context"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/agentcore/runtime/artifact"
)

// TestArtifactVersionIsMonotonicAcrossAppends checks §8's artifact
// monotonicity property: version strictly increases after every append, and
// an id's version is never observed decreasing regardless of chunk count.
func TestArtifactVersionIsMonotonicAcrossAppends(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("version strictly increases per chunk, plus one on completion", prop.ForAll(
		func(chunkCount int) bool {
			store := artifact.NewInMemoryStore()
			ctx := context.Background()
			id := "doc"

			if err := store.CreateFile(ctx, artifact.CreateParams{ArtifactID: id, TaskID: "t1", ContextID: "c1"}); err != nil {
				return false
			}

			last := 1
			for i := 0; i < chunkCount; i++ {
				isLast := i == chunkCount-1
				if err := store.AppendFileChunk(ctx, id, []byte("x"), artifact.AppendFileOptions{IsLastChunk: isLast}); err != nil {
					return false
				}
				got, err := store.GetArtifact(ctx, id)
				if err != nil {
					return false
				}
				if got.Version <= last {
					return false
				}
				last = got.Version
			}

			final, err := store.GetArtifact(ctx, id)
			if err != nil {
				return false
			}
			// create (1) + one bump per chunk + one extra bump on the final chunk.
			want := 1 + chunkCount
			if chunkCount > 0 {
				want++
			}
			return final.Version == want && final.Status == artifact.StatusComplete
		},
		gen.IntRange(1, 20),
	))

	properties.TestingRun(t)
}

func TestArtifactNotFoundBeforeCreate(t *testing.T) {
	store := artifact.NewInMemoryStore()
	ctx := context.Background()

	_, err := store.GetArtifact(ctx, "missing")
	if err == nil {
		t.Fatal("expected ErrNotFound for an artifact that was never created")
	}
}
