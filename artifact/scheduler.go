package artifact

import (
	"context"
	"sync"

	"github.com/agentcore/runtime"
)

// Scheduler wraps a Store and adds the per-artifact-id FIFO ordering
// contract (§4.C): operations scheduled for the same artifactId run
// strictly in scheduling order; operations on distinct ids run concurrently.
// This exists because an LLM response that emits create + several appends
// for the same id is dispatched by the agent loop concurrently — without
// per-id ordering, appends would race the create.
//
// Read-only queries spanning artifacts (QueryArtifacts, GetTaskArtifacts)
// are not serialized through this queue; reads of one specific artifact
// (GetArtifact, GetFileContent, ...) are, so they observe a consistent
// snapshot relative to concurrent writes on the same id.
type Scheduler struct {
	store Store

	mu     sync.Mutex
	queues map[string]*idQueue
}

type idQueue struct {
	mu   sync.Mutex
	jobs []func()
	busy bool
}

// NewScheduler constructs a Scheduler wrapping store. One Scheduler must be
// shared process-wide for a given Store to preserve per-id ordering (§5).
func NewScheduler(store Store) *Scheduler {
	return &Scheduler{store: store, queues: make(map[string]*idQueue)}
}

// schedule runs fn exclusively with respect to other operations scheduled
// for the same id, and blocks the caller until fn has run and returned.
func (s *Scheduler) schedule(id string, fn func() error) error {
	done := make(chan error, 1)
	s.enqueue(id, func() { done <- fn() })
	return <-done
}

func (s *Scheduler) enqueue(id string, job func()) {
	s.mu.Lock()
	q, ok := s.queues[id]
	if !ok {
		q = &idQueue{}
		s.queues[id] = q
	}
	s.mu.Unlock()

	q.mu.Lock()
	q.jobs = append(q.jobs, job)
	if !q.busy {
		q.busy = true
		q.mu.Unlock()
		go s.drain(id, q)
		return
	}
	q.mu.Unlock()
}

func (s *Scheduler) drain(id string, q *idQueue) {
	for {
		q.mu.Lock()
		if len(q.jobs) == 0 {
			q.busy = false
			q.mu.Unlock()
			s.mu.Lock()
			if current, ok := s.queues[id]; ok && current == q {
				delete(s.queues, id)
			}
			s.mu.Unlock()
			return
		}
		job := q.jobs[0]
		q.jobs = q.jobs[1:]
		q.mu.Unlock()
		job()
	}
}

func (s *Scheduler) CreateFile(ctx context.Context, p CreateParams) error {
	return s.schedule(p.ArtifactID, func() error { return s.store.CreateFile(ctx, p) })
}

func (s *Scheduler) CreateData(ctx context.Context, p CreateParams) error {
	return s.schedule(p.ArtifactID, func() error { return s.store.CreateData(ctx, p) })
}

func (s *Scheduler) CreateDataset(ctx context.Context, p CreateParams) error {
	return s.schedule(p.ArtifactID, func() error { return s.store.CreateDataset(ctx, p) })
}

func (s *Scheduler) AppendFileChunk(ctx context.Context, id string, chunk []byte, opts AppendFileOptions) error {
	return s.schedule(id, func() error { return s.store.AppendFileChunk(ctx, id, chunk, opts) })
}

func (s *Scheduler) WriteData(ctx context.Context, id string, data map[string]any) error {
	return s.schedule(id, func() error { return s.store.WriteData(ctx, id, data) })
}

func (s *Scheduler) AppendDatasetBatch(ctx context.Context, id string, rows []map[string]any, opts AppendDatasetOptions) error {
	return s.schedule(id, func() error { return s.store.AppendDatasetBatch(ctx, id, rows, opts) })
}

func (s *Scheduler) GetFileContent(ctx context.Context, id string) ([]byte, error) {
	var out []byte
	err := s.schedule(id, func() error {
		var err error
		out, err = s.store.GetFileContent(ctx, id)
		return err
	})
	return out, err
}

func (s *Scheduler) GetDataContent(ctx context.Context, id string) (map[string]any, error) {
	var out map[string]any
	err := s.schedule(id, func() error {
		var err error
		out, err = s.store.GetDataContent(ctx, id)
		return err
	})
	return out, err
}

func (s *Scheduler) GetDatasetRows(ctx context.Context, id string) ([]map[string]any, error) {
	var out []map[string]any
	err := s.schedule(id, func() error {
		var err error
		out, err = s.store.GetDatasetRows(ctx, id)
		return err
	})
	return out, err
}

func (s *Scheduler) GetArtifact(ctx context.Context, id string) (Artifact, error) {
	var out Artifact
	err := s.schedule(id, func() error {
		var err error
		out, err = s.store.GetArtifact(ctx, id)
		return err
	})
	return out, err
}

// QueryArtifacts and GetTaskArtifacts span multiple ids and are not serialized.
func (s *Scheduler) QueryArtifacts(ctx context.Context, filter ArtifactFilter) ([]string, error) {
	return s.store.QueryArtifacts(ctx, filter)
}

func (s *Scheduler) GetTaskArtifacts(ctx context.Context, taskID agentcore.TaskID) ([]string, error) {
	return s.store.GetTaskArtifacts(ctx, taskID)
}

func (s *Scheduler) GetArtifactByContext(ctx context.Context, contextID agentcore.ContextID, id string) (Artifact, error) {
	var out Artifact
	err := s.schedule(id, func() error {
		var err error
		out, err = s.store.GetArtifactByContext(ctx, contextID, id)
		return err
	})
	return out, err
}

func (s *Scheduler) DeleteArtifact(ctx context.Context, id string) error {
	return s.schedule(id, func() error { return s.store.DeleteArtifact(ctx, id) })
}

var _ Store = (*Scheduler)(nil)
