package checkpoint

import (
	"context"
	"time"

	"github.com/agentcore/runtime/artifact"
	"github.com/agentcore/runtime/telemetry"
)

// DefaultCutoff is the default last-activity age past which a task is swept.
const DefaultCutoff = 24 * time.Hour

// CleanupOptions configures the cleanup service.
type CleanupOptions struct {
	Store     Store
	Artifacts artifact.Store
	Interval  time.Duration // defaults to 1 hour
	Cutoff    time.Duration // defaults to DefaultCutoff
	Logger    telemetry.Logger
}

// CleanupService periodically sweeps tasks whose last-activity timestamp is
// older than Cutoff, deleting their referenced artifacts before the state
// itself (§4.D). A per-task error is logged and does not abort the sweep.
type CleanupService struct {
	store     Store
	artifacts artifact.Store
	interval  time.Duration
	cutoff    time.Duration
	logger    telemetry.Logger
	now       func() time.Time
}

// NewCleanupService constructs a CleanupService from opts.
func NewCleanupService(opts CleanupOptions) *CleanupService {
	interval := opts.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	cutoff := opts.Cutoff
	if cutoff <= 0 {
		cutoff = DefaultCutoff
	}
	logger := opts.Logger
	if logger == nil {
		logger = telemetry.NoopLogger{}
	}
	return &CleanupService{
		store: opts.Store, artifacts: opts.Artifacts,
		interval: interval, cutoff: cutoff, logger: logger, now: time.Now,
	}
}

// Run blocks, sweeping at Interval until ctx is cancelled.
func (c *CleanupService) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep(ctx)
		}
	}
}

// Sweep runs one cleanup pass immediately.
func (c *CleanupService) Sweep(ctx context.Context) {
	cutoff := c.now().Add(-c.cutoff)
	taskIDs, err := c.store.ListTasks(ctx, ListFilter{CompletedAfter: nil})
	if err != nil {
		c.logger.Error(ctx, "checkpoint cleanup: list tasks failed", "error", err)
		return
	}

	for _, taskID := range taskIDs {
		state, err := c.store.Load(ctx, taskID)
		if err != nil {
			c.logger.Error(ctx, "checkpoint cleanup: load task failed", "taskId", taskID, "error", err)
			continue
		}
		if state.LastActivityAt.After(cutoff) {
			continue
		}
		if c.artifacts != nil {
			for _, artifactID := range state.ArtifactIDs {
				if err := c.artifacts.DeleteArtifact(ctx, artifactID); err != nil {
					c.logger.Error(ctx, "checkpoint cleanup: delete artifact failed", "taskId", taskID, "artifactId", artifactID, "error", err)
				}
			}
		}
		if err := c.store.Delete(ctx, taskID); err != nil {
			c.logger.Error(ctx, "checkpoint cleanup: delete state failed", "taskId", taskID, "error", err)
			continue
		}
	}
}
