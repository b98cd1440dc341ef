// Package batch schedules one unit of work per repository under a
// bounded concurrency limit and folds completions into a single shared
// statistics value.
//
// The statistics type is caller-chosen: push and pull runs fold into
// model.SyncStats, the subrepo analyzer folds into its validation
// report. Completion order is unspecified, so folds must be
// commutative: pure counter increments and list appends only.
package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/skaphos/fleetkeeper/internal/model"
)

// maxWorkerChannelBuffer caps the completion channel so very large
// fleets do not hold one buffered slot per repository.
const maxWorkerChannelBuffer = 100

// Default per-task deadlines by operation class.
const (
	DefaultGitTimeout  = 180 * time.Second // subprocess git operations
	DefaultScanTimeout = 300 * time.Second // CPU-bound tree scans
)

// Work produces one repository's outcome. The context carries the
// per-task deadline. Implementations must not touch shared state;
// anything they want aggregated goes into R.
type Work[R any] func(ctx context.Context, repo model.Repository) R

// Fold merges one completed outcome into the shared statistics value.
// It runs under the context lock and must not perform I/O.
type Fold[S, R any] func(stats *S, repo model.Repository, out R)

// OnDone observes each completion on the coordinator goroutine, after
// the fold. Callers use it for live per-repository status lines.
type OnDone[R any] func(repo model.Repository, out R)

// Context owns everything one batch run shares: the fleet, the
// concurrency limit, the per-task timeout, and the statistics value.
type Context[S any] struct {
	repos      []model.Repository
	maxNameLen int
	limit      int
	timeout    time.Duration
	startedAt  time.Time
	logger     *zap.Logger

	mu    sync.Mutex
	stats S
}

// NewContext builds the shared state for one batch run. The limit must
// be positive; a nil logger is replaced with a no-op one.
func NewContext[S any](repos []model.Repository, limit int, timeout time.Duration, initial S, logger *zap.Logger) (*Context[S], error) {
	if limit <= 0 {
		return nil, fmt.Errorf("concurrency limit must be positive, got %d", limit)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	maxName := 0
	for _, repo := range repos {
		if n := len(repo.Name); n > maxName {
			maxName = n
		}
	}
	return &Context[S]{
		repos:      repos,
		maxNameLen: maxName,
		limit:      limit,
		timeout:    timeout,
		startedAt:  time.Now(),
		logger:     logger,
		stats:      initial,
	}, nil
}

// Repos returns the fleet this context was built over. Callers must
// treat the slice as read-only.
func (c *Context[S]) Repos() []model.Repository { return c.repos }

// MaxNameLen is the longest repository name in the fleet, for aligning
// live status lines.
func (c *Context[S]) MaxNameLen() int { return c.maxNameLen }

// Limit is the concurrency cap this context runs under.
func (c *Context[S]) Limit() int { return c.limit }

// StartedAt is when the context was created.
func (c *Context[S]) StartedAt() time.Time { return c.startedAt }

// Elapsed is the time since the context was created.
func (c *Context[S]) Elapsed() time.Duration { return time.Since(c.startedAt) }

// Snapshot returns a copy of the statistics value taken under the lock.
func (c *Context[S]) Snapshot() S {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Run executes work once per repository in bc's fleet with at most
// bc.limit tasks in flight, folding each outcome into the shared
// statistics as it completes.
//
// Per-repository failures never abort the batch: encode them in R and
// fold them into S. Run returns once every repository has been folded.
func Run[S, R any](ctx context.Context, bc *Context[S], work Work[R], fold Fold[S, R], onDone OnDone[R]) {
	type completion struct {
		repo model.Repository
		out  R
	}

	sem := make(chan struct{}, bc.limit)
	out := make(chan completion, workerChannelBufferSize(len(bc.repos)))
	spawned := 0

	bc.logger.Debug("batch started",
		zap.Int("repos", len(bc.repos)),
		zap.Int("limit", bc.limit),
		zap.Duration("task_timeout", bc.timeout))

	for _, repo := range bc.repos {
		sem <- struct{}{}
		spawned++
		go func(repo model.Repository) {
			taskCtx := ctx
			if bc.timeout > 0 {
				var cancel context.CancelFunc
				taskCtx, cancel = context.WithTimeout(ctx, bc.timeout)
				defer cancel()
			}
			result := work(taskCtx, repo)

			// Release the permit before publishing: the coordinator
			// drains out only after the spawn loop completes, and a held
			// permit plus a full buffer would wedge fleets larger than
			// buffer+limit.
			<-sem
			out <- completion{repo: repo, out: result}
		}(repo)
	}

	for i := 0; i < spawned; i++ {
		c := <-out
		bc.mu.Lock()
		fold(&bc.stats, c.repo, c.out)
		bc.mu.Unlock()
		if onDone != nil {
			onDone(c.repo, c.out)
		}
	}

	bc.logger.Debug("batch finished",
		zap.Int("repos", spawned),
		zap.Duration("elapsed", bc.Elapsed()))
}

func workerChannelBufferSize(taskCount int) int {
	if taskCount <= 0 {
		return 1
	}
	if taskCount > maxWorkerChannelBuffer {
		return maxWorkerChannelBuffer
	}
	return taskCount
}
