package artifact

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/agentcore/runtime"
)

// Store is the artifact store contract (§4.C). Implementations need not be
// concurrency-safe per-id on their own — the Scheduler wrapping a Store is
// what guarantees per-id FIFO ordering; a Store only needs to be safe for
// concurrent calls across distinct ids.
type Store interface {
	CreateFile(ctx context.Context, p CreateParams) error
	CreateData(ctx context.Context, p CreateParams) error
	CreateDataset(ctx context.Context, p CreateParams) error

	AppendFileChunk(ctx context.Context, id string, chunk []byte, opts AppendFileOptions) error
	WriteData(ctx context.Context, id string, data map[string]any) error
	AppendDatasetBatch(ctx context.Context, id string, rows []map[string]any, opts AppendDatasetOptions) error

	GetFileContent(ctx context.Context, id string) ([]byte, error)
	GetDataContent(ctx context.Context, id string) (map[string]any, error)
	GetDatasetRows(ctx context.Context, id string) ([]map[string]any, error)
	GetArtifact(ctx context.Context, id string) (Artifact, error)

	QueryArtifacts(ctx context.Context, filter ArtifactFilter) ([]string, error)
	GetTaskArtifacts(ctx context.Context, taskID agentcore.TaskID) ([]string, error)
	GetArtifactByContext(ctx context.Context, contextID agentcore.ContextID, id string) (Artifact, error)

	DeleteArtifact(ctx context.Context, id string) error
}

// InMemoryStore is the default Store implementation: a map of artifacts
// guarded by a mutex. Written chunks, data and rows are copied on the way
// in, and GetFileContent/GetDataContent build fresh values; GetArtifact and
// GetArtifactByContext return a struct copy whose Chunks, Data, Rows and
// Ops still share storage with the stored artifact, and GetDatasetRows
// copies the row slice but not the row maps.
type InMemoryStore struct {
	mu        sync.RWMutex
	artifacts map[string]*Artifact
	now       func() time.Time
}

// NewInMemoryStore constructs an empty in-memory artifact store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{artifacts: make(map[string]*Artifact), now: time.Now}
}

func (s *InMemoryStore) create(_ context.Context, p CreateParams, kind Kind, init func(a *Artifact)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	existing, exists := s.artifacts[p.ArtifactID]
	if exists && !p.Override {
		return fmt.Errorf("artifact %q: %w", p.ArtifactID, ErrAlreadyExists)
	}

	a := &Artifact{
		ArtifactID: p.ArtifactID, TaskID: p.TaskID, ContextID: p.ContextID,
		Name: p.Name, Description: p.Description, Kind: kind, Status: StatusBuilding,
		CreatedAt: now, UpdatedAt: now,
	}
	opType := OpCreate
	if exists {
		a.CreatedAt = existing.CreatedAt
		a.Version = existing.Version + 1
		opType = OpReset
	} else {
		a.Version = 1
	}
	init(a)
	a.Ops = append(a.Ops, Op{Type: opType, Index: 0, Timestamp: now})
	s.artifacts[p.ArtifactID] = a
	return nil
}

func (s *InMemoryStore) CreateFile(ctx context.Context, p CreateParams) error {
	return s.create(ctx, p, KindFile, func(a *Artifact) {
		a.MimeType = p.MimeType
		a.Encoding = p.Encoding
		if a.Encoding == "" {
			a.Encoding = EncodingUTF8
		}
	})
}

func (s *InMemoryStore) CreateData(ctx context.Context, p CreateParams) error {
	return s.create(ctx, p, KindData, func(a *Artifact) {})
}

func (s *InMemoryStore) CreateDataset(ctx context.Context, p CreateParams) error {
	return s.create(ctx, p, KindDataset, func(a *Artifact) {
		a.Schema = p.DatasetSchema
	})
}

func (s *InMemoryStore) mutate(id string, want Kind, fn func(a *Artifact) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.artifacts[id]
	if !ok {
		return fmt.Errorf("artifact %q: %w", id, ErrNotFound)
	}
	if a.Kind != want {
		return fmt.Errorf("artifact %q: %w", id, ErrKindMismatch)
	}
	if err := fn(a); err != nil {
		return err
	}
	a.Version++
	a.UpdatedAt = s.now()
	return nil
}

func (s *InMemoryStore) AppendFileChunk(_ context.Context, id string, chunk []byte, opts AppendFileOptions) error {
	return s.mutate(id, KindFile, func(a *Artifact) error {
		now := s.now()
		idx := len(a.Chunks)
		data := append([]byte(nil), chunk...)
		a.Chunks = append(a.Chunks, FileChunk{Index: idx, Data: data, Size: len(data), Timestamp: now})
		a.TotalChunks = len(a.Chunks)
		a.TotalSize += len(data)
		if opts.Encoding != "" {
			a.Encoding = opts.Encoding
		}
		a.Ops = append(a.Ops, Op{Type: OpAppend, Index: idx, Timestamp: now})
		if opts.IsLastChunk {
			a.Status = StatusComplete
			a.CompletedAt = &now
			a.Ops = append(a.Ops, Op{Type: OpComplete, Index: idx, Timestamp: now})
			// Completion is its own version bump on top of the append itself
			// (§3 Design Notes: "completion bumps once more on final").
			a.Version++
		}
		return nil
	})
}

func (s *InMemoryStore) WriteData(_ context.Context, id string, data map[string]any) error {
	return s.mutate(id, KindData, func(a *Artifact) error {
		now := s.now()
		clone := make(map[string]any, len(data))
		for k, v := range data {
			clone[k] = v
		}
		a.Data = clone
		a.Status = StatusComplete
		a.CompletedAt = &now
		a.Ops = append(a.Ops, Op{Type: OpReplace, Index: 0, Timestamp: now})
		return nil
	})
}

func (s *InMemoryStore) AppendDatasetBatch(_ context.Context, id string, rows []map[string]any, opts AppendDatasetOptions) error {
	return s.mutate(id, KindDataset, func(a *Artifact) error {
		now := s.now()
		idx := a.TotalChunks
		for _, r := range rows {
			clone := make(map[string]any, len(r))
			for k, v := range r {
				clone[k] = v
			}
			a.Rows = append(a.Rows, clone)
		}
		a.TotalChunks++
		a.TotalSize = len(a.Rows)
		a.Ops = append(a.Ops, Op{Type: OpAppend, Index: idx, Timestamp: now})
		if opts.IsLastBatch {
			a.Status = StatusComplete
			a.CompletedAt = &now
			a.Ops = append(a.Ops, Op{Type: OpComplete, Index: idx, Timestamp: now})
			a.Version++
		}
		return nil
	})
}

func (s *InMemoryStore) get(id string) (*Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.artifacts[id]
	if !ok {
		return nil, fmt.Errorf("artifact %q: %w", id, ErrNotFound)
	}
	return a, nil
}

func (s *InMemoryStore) GetFileContent(_ context.Context, id string) ([]byte, error) {
	a, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if a.Kind != KindFile {
		return nil, fmt.Errorf("artifact %q: %w", id, ErrKindMismatch)
	}
	var out []byte
	for _, c := range a.Chunks {
		out = append(out, c.Data...)
	}
	return out, nil
}

func (s *InMemoryStore) GetDataContent(_ context.Context, id string) (map[string]any, error) {
	a, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if a.Kind != KindData {
		return nil, fmt.Errorf("artifact %q: %w", id, ErrKindMismatch)
	}
	out := make(map[string]any, len(a.Data))
	for k, v := range a.Data {
		out[k] = v
	}
	return out, nil
}

func (s *InMemoryStore) GetDatasetRows(_ context.Context, id string) ([]map[string]any, error) {
	a, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if a.Kind != KindDataset {
		return nil, fmt.Errorf("artifact %q: %w", id, ErrKindMismatch)
	}
	out := make([]map[string]any, len(a.Rows))
	copy(out, a.Rows)
	return out, nil
}

func (s *InMemoryStore) GetArtifact(_ context.Context, id string) (Artifact, error) {
	a, err := s.get(id)
	if err != nil {
		return Artifact{}, err
	}
	return *a, nil
}

func (s *InMemoryStore) QueryArtifacts(_ context.Context, filter ArtifactFilter) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for id, a := range s.artifacts {
		if filter.ContextID != "" && a.ContextID != filter.ContextID {
			continue
		}
		if filter.TaskID != nil && a.TaskID != *filter.TaskID {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *InMemoryStore) GetTaskArtifacts(ctx context.Context, taskID agentcore.TaskID) ([]string, error) {
	return s.QueryArtifacts(ctx, ArtifactFilter{TaskID: &taskID})
}

func (s *InMemoryStore) GetArtifactByContext(_ context.Context, contextID agentcore.ContextID, id string) (Artifact, error) {
	a, err := s.get(id)
	if err != nil {
		return Artifact{}, err
	}
	if a.ContextID != contextID {
		return Artifact{}, fmt.Errorf("artifact %q: %w", id, ErrNotFound)
	}
	return *a, nil
}

func (s *InMemoryStore) DeleteArtifact(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.artifacts[id]; !ok {
		return fmt.Errorf("artifact %q: %w", id, ErrNotFound)
	}
	delete(s.artifacts, id)
	return nil
}

var _ Store = (*InMemoryStore)(nil)
