package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/skaphos/fleetkeeper/internal/gitx"
	"github.com/skaphos/fleetkeeper/internal/model"
)

// GlobalConfigKeys are the git settings compared during config sync.
// The global values are the target; repository-local values drift.
var GlobalConfigKeys = []string{
	"user.name",
	"user.email",
	"pull.rebase",
	"init.defaultBranch",
}

// GlobalConfigTarget reads the target configuration from the user's
// global git config. Keys unset globally are omitted so they are never
// flagged as drift. The global config is read, never written.
func (e *Engine) GlobalConfigTarget(ctx context.Context) map[string]string {
	target := make(map[string]string, len(GlobalConfigKeys))
	for _, key := range GlobalConfigKeys {
		if value := gitx.ConfigGlobalGet(ctx, e.runner, key); value != "" {
			target[key] = value
		}
	}
	return target
}

// SyncConfig diffs one repository's local git config against target and,
// when apply is set, writes the target values. Without apply the diff is
// reported as ConfigSkipped and nothing is written.
func (e *Engine) SyncConfig(ctx context.Context, repo model.Repository, target map[string]string, apply bool) Outcome {
	keys := make([]string, 0, len(target))
	for key := range target {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var drift []string
	for _, key := range keys {
		if gitx.ConfigGet(ctx, e.runner, repo.Path, key) != target[key] {
			drift = append(drift, key)
		}
	}
	if len(drift) == 0 {
		return Outcome{Status: model.StatusConfigSynced, Message: "in sync"}
	}
	if !apply {
		return Outcome{
			Status:  model.StatusConfigSkipped,
			Message: fmt.Sprintf("%d %s out of sync", len(drift), plural("setting", len(drift))),
		}
	}
	for _, key := range drift {
		if err := gitx.ConfigSet(ctx, e.runner, repo.Path, key, target[key]); err != nil {
			return Outcome{Status: model.StatusConfigError, Message: failureMessage(err)}
		}
	}
	return Outcome{
		Status:  model.StatusConfigUpdated,
		Message: fmt.Sprintf("%d %s updated", len(drift), plural("setting", len(drift))),
	}
}

// StageRepo stages all pending changes in one repository. A clean tree
// resolves to Unstaged without touching the index.
func (e *Engine) StageRepo(ctx context.Context, repo model.Repository) Outcome {
	dirty, err := gitx.HasUncommitted(ctx, e.runner, repo.Path)
	if err != nil {
		return Outcome{Status: model.StatusStagingError, Message: failureMessage(err)}
	}
	if !dirty {
		return Outcome{Status: model.StatusUnstaged, Message: "nothing to stage"}
	}
	if err := gitx.StageAll(ctx, e.runner, repo.Path); err != nil {
		return Outcome{Status: model.StatusStagingError, Message: failureMessage(err)}
	}
	return Outcome{Status: model.StatusStaged, Message: "changes staged", HasUncommitted: true}
}

// CommitRepo stages everything pending and commits it with message.
// stageOnly stops after the index update and leaves the commit to the
// operator. The pending-change count is taken before staging so the
// terminal message reports how many paths the commit covered.
func (e *Engine) CommitRepo(ctx context.Context, repo model.Repository, message string, stageOnly bool) Outcome {
	out, err := e.runner.Run(ctx, repo.Path, "status", "--porcelain")
	if err != nil {
		return Outcome{Status: model.StatusStagingError, Message: failureMessage(err)}
	}
	changed := gitx.PorcelainChangeCount(out)
	if changed == 0 {
		return Outcome{Status: model.StatusNoChanges, Message: "nothing to commit"}
	}
	if err := gitx.StageAll(ctx, e.runner, repo.Path); err != nil {
		return Outcome{Status: model.StatusStagingError, Message: failureMessage(err)}
	}
	if stageOnly {
		return Outcome{
			Status:         model.StatusStaged,
			Message:        fmt.Sprintf("%d %s staged", changed, plural("path", changed)),
			HasUncommitted: true,
		}
	}
	if err := gitx.Commit(ctx, e.runner, repo.Path, message); err != nil {
		return Outcome{Status: model.StatusCommitError, Message: failureMessage(err)}
	}
	return Outcome{
		Status:  model.StatusCommitted,
		Message: fmt.Sprintf("%d %s committed", changed, plural("path", changed)),
	}
}
