package llm

import (
	"context"
	"errors"
)

// chunkStream is a Stream over a pre-built slice of Chunks, useful for tests
// and as a minimal reference adapter.
type chunkStream struct {
	chunks []Chunk
	pos    int
}

func (s *chunkStream) Recv() (Chunk, error) {
	if s.pos >= len(s.chunks) {
		return Chunk{}, errors.New("llm: stream exhausted")
	}
	c := s.chunks[s.pos]
	s.pos++
	return c, nil
}

func (s *chunkStream) Close() error { return nil }

// FakeClient replays a fixed script of Chunks for every call, ignoring the
// request. It exists for tests that exercise the agent loop without a real
// provider.
type FakeClient struct {
	Script []Chunk
}

func (f *FakeClient) Call(_ context.Context, _ Request) (Stream, error) {
	return &chunkStream{chunks: f.Script}, nil
}

var _ Client = (*FakeClient)(nil)
