// Package engine implements the two-phase sync protocol and its sibling
// single-step operations for batch repository maintenance.
//
// Phase 1 (fetch/analyze) is read-mostly and produces an immutable
// model.FetchResult. Phase 2 (mutate) consumes that snapshot and never
// re-reads repository state, so the two phases can run under different
// concurrency caps.
package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/skaphos/fleetkeeper/internal/gitx"
	"github.com/skaphos/fleetkeeper/internal/model"
)

// Outcome is the terminal result of one repository operation.
type Outcome struct {
	Status  model.Status
	Message string
	// CommitsPushed is nonzero only for push outcomes with a known count.
	CommitsPushed int
	// HasUncommitted travels with every outcome; local modifications are
	// reported independently of how the operation itself resolved.
	HasUncommitted bool
}

// Engine executes repository operations through a gitx.Runner.
type Engine struct {
	runner gitx.Runner
	remote string
	logger *zap.Logger
}

// New creates an Engine. A nil runner shells out to the installed git
// binary; an empty remote name defaults to origin.
func New(runner gitx.Runner, remoteName string, logger *zap.Logger) *Engine {
	if runner == nil {
		runner = &gitx.GitRunner{}
	}
	if remoteName == "" {
		remoteName = "origin"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{runner: runner, remote: remoteName, logger: logger}
}

// Runner returns the engine's git runner.
func (e *Engine) Runner() gitx.Runner { return e.runner }

// FetchAnalyze is the read-mostly first phase shared by push and pull.
// It refreshes the index, records local modifications, fetches, and
// snapshots the branch/upstream state. The index refresh is the only
// repository mutation it performs.
//
// Terminal verdicts (NoRemote, Skip, NoUpstream, Error) mean the mutate
// phase must not touch the repository; StatusSynced marks it eligible.
// A repository with no remote never reaches the fetch call.
func (e *Engine) FetchAnalyze(ctx context.Context, repo model.Repository) model.FetchResult {
	gitx.RefreshIndex(ctx, e.runner, repo.Path)

	dirty, err := gitx.HasUncommitted(ctx, e.runner, repo.Path)
	if err != nil {
		return model.FetchResult{Status: model.StatusError, Message: failureMessage(err)}
	}

	remotes, err := gitx.RemoteNames(ctx, e.runner, repo.Path)
	if err != nil {
		return model.FetchResult{HasUncommitted: dirty, Status: model.StatusError, Message: failureMessage(err)}
	}
	if len(remotes) == 0 {
		return model.FetchResult{HasUncommitted: dirty, Status: model.StatusNoRemote, Message: "no remote configured"}
	}

	branch, detached, err := gitx.CurrentBranch(ctx, e.runner, repo.Path)
	if err != nil {
		return model.FetchResult{HasUncommitted: dirty, Status: model.StatusError, Message: failureMessage(err)}
	}
	if detached {
		return model.FetchResult{HasUncommitted: dirty, CurrentBranch: branch, Status: model.StatusSkip, Message: "detached HEAD"}
	}

	if err := gitx.Fetch(ctx, e.runner, repo.Path); err != nil {
		return model.FetchResult{HasUncommitted: dirty, CurrentBranch: branch, Status: model.StatusError, Message: failureMessage(err)}
	}

	if _, ok := gitx.Upstream(ctx, e.runner, repo.Path); !ok {
		return model.FetchResult{HasUncommitted: dirty, CurrentBranch: branch, Status: model.StatusNoUpstream, Message: "no upstream branch"}
	}

	ahead, err := gitx.AheadCount(ctx, e.runner, repo.Path)
	if err != nil {
		return model.FetchResult{HasUncommitted: dirty, CurrentBranch: branch, UpstreamExists: true, Status: model.StatusError, Message: failureMessage(err)}
	}

	e.logger.Debug("analyze complete",
		zap.String("repo", repo.Name),
		zap.String("branch", branch),
		zap.Int("ahead", ahead),
		zap.Bool("dirty", dirty))

	return model.FetchResult{
		HasUncommitted: dirty,
		CurrentBranch:  branch,
		AheadCount:     ahead,
		UpstreamExists: true,
		Status:         model.StatusSynced,
	}
}

// SyncRepo runs the full two-phase push protocol for one repository.
// force allows creating a missing upstream with push -u; it never
// overrides any other terminal verdict.
func (e *Engine) SyncRepo(ctx context.Context, repo model.Repository, force bool) Outcome {
	fr := e.FetchAnalyze(ctx, repo)

	switch fr.Status {
	case model.StatusNoUpstream:
		if !force {
			return Outcome{Status: fr.Status, Message: fr.Message, HasUncommitted: fr.HasUncommitted}
		}
		if err := gitx.PushSetUpstream(ctx, e.runner, repo.Path, e.remote, fr.CurrentBranch); err != nil {
			return Outcome{Status: model.StatusError, Message: failureMessage(err), HasUncommitted: fr.HasUncommitted}
		}
		return Outcome{Status: model.StatusPushed, Message: "upstream created", HasUncommitted: fr.HasUncommitted}

	case model.StatusSynced:
		if fr.AheadCount == 0 {
			return Outcome{Status: model.StatusSynced, Message: "up to date", HasUncommitted: fr.HasUncommitted}
		}
		if err := gitx.Push(ctx, e.runner, repo.Path); err != nil {
			return Outcome{Status: model.StatusError, Message: failureMessage(err), HasUncommitted: fr.HasUncommitted}
		}
		return Outcome{
			Status:         model.StatusPushed,
			Message:        fmt.Sprintf("%d %s pushed", fr.AheadCount, plural("commit", fr.AheadCount)),
			CommitsPushed:  fr.AheadCount,
			HasUncommitted: fr.HasUncommitted,
		}

	default:
		return Outcome{Status: fr.Status, Message: fr.Message, HasUncommitted: fr.HasUncommitted}
	}
}

// PullRepo runs the pull variant: the same analyze phase, then a
// fast-forward-only pull. Diverged histories resolve to PullError and
// are never auto-merged; a dirty working tree is skipped because a pull
// would rewrite it.
func (e *Engine) PullRepo(ctx context.Context, repo model.Repository) Outcome {
	fr := e.FetchAnalyze(ctx, repo)
	if fr.Status != model.StatusSynced {
		return Outcome{Status: fr.Status, Message: fr.Message, HasUncommitted: fr.HasUncommitted}
	}
	if fr.HasUncommitted {
		return Outcome{Status: model.StatusSkip, Message: "uncommitted changes", HasUncommitted: true}
	}

	ahead, behind, err := gitx.AheadBehind(ctx, e.runner, repo.Path)
	if err != nil {
		return Outcome{Status: model.StatusError, Message: failureMessage(err)}
	}
	switch {
	case ahead > 0 && behind > 0:
		return Outcome{Status: model.StatusPullError, Message: "diverged from upstream; resolve manually"}
	case behind > 0:
		if err := gitx.PullFFOnly(ctx, e.runner, repo.Path); err != nil {
			return Outcome{Status: model.StatusPullError, Message: failureMessage(err)}
		}
		return Outcome{Status: model.StatusSynced, Message: fmt.Sprintf("%d %s pulled", behind, plural("commit", behind))}
	case ahead > 0:
		return Outcome{Status: model.StatusSynced, Message: fmt.Sprintf("up to date, %d %s ahead", ahead, plural("commit", ahead))}
	default:
		return Outcome{Status: model.StatusSynced, Message: "up to date"}
	}
}

// classLabels translate error classes into the short prefixes shown in
// status lines.
var classLabels = map[string]string{
	gitx.ClassRateLimit: "rate limited",
	gitx.ClassAuth:      "auth failed",
	gitx.ClassMerge:     "merge conflict",
	gitx.ClassNetwork:   "network error",
}

// failureMessage renders an error for status lines: classified first,
// then truncated to the display bound. Timeouts collapse to a fixed
// message because the underlying text is process-kill noise.
func failureMessage(err error) string {
	class := gitx.ClassifyError(err)
	if class == gitx.ClassTimeout {
		return "timed out"
	}
	if label, ok := classLabels[class]; ok {
		return gitx.TruncateMessage(label + ": " + err.Error())
	}
	return gitx.TruncateMessage(err.Error())
}

func plural(word string, n int) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
