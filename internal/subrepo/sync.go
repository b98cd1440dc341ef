// SPDX-License-Identifier: MIT
package subrepo

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/skaphos/fleetkeeper/internal/gitx"
	"github.com/skaphos/fleetkeeper/internal/model"
	"github.com/skaphos/fleetkeeper/internal/sortutil"
)

// Action is the planned treatment of one selected instance.
type Action string

const (
	ActionCheckout      Action = "checkout"
	ActionStashCheckout Action = "stash-then-checkout"
	ActionSkip          Action = "skip"
)

// Outcome is the recorded result of applying a plan to one instance.
type Outcome string

const (
	OutcomeSynced  Outcome = "synced"
	OutcomeStashed Outcome = "stashed-then-synced"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// Options are the safety gates for dirty instances. Stash wins over
// Force when both are set.
type Options struct {
	// Stash saves uncommitted changes before checkout. The stash entry is
	// never popped automatically; the summary carries the recovery hint.
	Stash bool
	// Force checks out over uncommitted changes without stashing.
	Force bool
}

// Plan describes the treatment one instance will receive.
type Plan struct {
	Instance model.SubrepoInstance
	Action   Action
	// Reason explains a skip; empty otherwise.
	Reason string
}

// InstanceResult is the applied outcome for one instance.
type InstanceResult struct {
	Instance model.SubrepoInstance
	Outcome  Outcome
	Message  string
}

// Summary aggregates one sync invocation. Counts partition Results:
// Synced + Stashed + Skipped + Failed == len(Results).
type Summary struct {
	// Name is the subrepo name the invocation selected on.
	Name string
	// Target is the fixed target commit; empty for the update variant,
	// where each instance resolves its own remote head.
	Target  string
	Results []InstanceResult
	Synced  int
	Stashed int
	Skipped int
	Failed  int
}

// StashedInstances returns the results whose changes went into a stash
// entry, for telling the operator where a manual `git stash pop` is due.
func (s *Summary) StashedInstances() []InstanceResult {
	var stashed []InstanceResult
	for _, res := range s.Results {
		if res.Outcome == OutcomeStashed {
			stashed = append(stashed, res)
		}
	}
	return stashed
}

// SelectInstances returns every instance in the report named name,
// across all remote groups and the remote-less bucket, in display
// order. Name-wide selection can span distinct remotes; Collisions
// flags that hazard.
func SelectInstances(report model.ValidationReport, name string) []model.SubrepoInstance {
	var selected []model.SubrepoInstance
	for _, instances := range report.ByRemote {
		for _, inst := range instances {
			if inst.SubrepoName == name {
				selected = append(selected, inst)
			}
		}
	}
	for _, inst := range report.NoRemote {
		if inst.SubrepoName == name {
			selected = append(selected, inst)
		}
	}
	sortutil.SubrepoInstances(selected)
	return selected
}

// BuildPlans gates the selected instances on their dirty flag as
// captured at scan time. Clean instances always check out; dirty ones
// need Stash or Force, else they are skipped with no mutation.
func BuildPlans(instances []model.SubrepoInstance, opts Options) []Plan {
	plans := make([]Plan, 0, len(instances))
	for _, inst := range instances {
		switch {
		case !inst.HasUncommitted:
			plans = append(plans, Plan{Instance: inst, Action: ActionCheckout})
		case opts.Stash:
			plans = append(plans, Plan{Instance: inst, Action: ActionStashCheckout})
		case opts.Force:
			plans = append(plans, Plan{Instance: inst, Action: ActionCheckout})
		default:
			plans = append(plans, Plan{
				Instance: inst,
				Action:   ActionSkip,
				Reason:   "uncommitted changes; re-run with --stash or --force",
			})
		}
	}
	return plans
}

// Syncer applies sync plans to nested working trees.
type Syncer struct {
	runner gitx.Runner
	logger *zap.Logger
}

// NewSyncer creates a Syncer. A nil runner shells out to the installed
// git binary.
func NewSyncer(runner gitx.Runner, logger *zap.Logger) *Syncer {
	if runner == nil {
		runner = &gitx.GitRunner{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Syncer{runner: runner, logger: logger}
}

// Sync checks every instance named name out to targetCommit, honoring
// the Options gates. Instances are processed in order; a failure is
// recorded and never blocks or rolls back the others. The returned
// error is non-nil only as a some-instances-failed signal; the summary
// carries the full detail either way.
func (s *Syncer) Sync(ctx context.Context, report model.ValidationReport, name, targetCommit string, opts Options) (Summary, error) {
	instances := SelectInstances(report, name)
	if len(instances) == 0 {
		return Summary{Name: name, Target: targetCommit}, fmt.Errorf("no subrepo instances named %q", name)
	}

	summary := Summary{Name: name, Target: targetCommit}
	for _, plan := range BuildPlans(instances, opts) {
		res := s.apply(ctx, plan, targetCommit)
		summary.record(res)
	}
	return summary, summary.failureError()
}

// Update is the moving-target variant: each instance fetches its remote
// and checks out the first existing of origin/HEAD, origin/main,
// origin/master. Instances without a remote are skipped.
func (s *Syncer) Update(ctx context.Context, report model.ValidationReport, name string, opts Options) (Summary, error) {
	instances := SelectInstances(report, name)
	if len(instances) == 0 {
		return Summary{Name: name}, fmt.Errorf("no subrepo instances named %q", name)
	}

	summary := Summary{Name: name}
	for _, plan := range BuildPlans(instances, opts) {
		summary.record(s.applyUpdate(ctx, plan))
	}
	return summary, summary.failureError()
}

// updateRefs are tried in order when resolving an instance's effective
// update target.
var updateRefs = []string{"origin/HEAD", "origin/main", "origin/master"}

func (s *Syncer) applyUpdate(ctx context.Context, plan Plan) InstanceResult {
	inst := plan.Instance
	if plan.Action == ActionSkip {
		return InstanceResult{Instance: inst, Outcome: OutcomeSkipped, Message: plan.Reason}
	}
	if inst.RemoteURL == "" {
		return InstanceResult{Instance: inst, Outcome: OutcomeSkipped, Message: "no remote configured"}
	}
	if err := gitx.Fetch(ctx, s.runner, inst.SubrepoPath); err != nil {
		return InstanceResult{Instance: inst, Outcome: OutcomeFailed, Message: gitx.TruncateMessage(err.Error())}
	}
	target := ""
	for _, ref := range updateRefs {
		if hash, ok := gitx.ResolveRef(ctx, s.runner, inst.SubrepoPath, ref); ok {
			target = hash
			break
		}
	}
	if target == "" {
		return InstanceResult{Instance: inst, Outcome: OutcomeFailed, Message: "no origin head to update to"}
	}
	return s.apply(ctx, plan, target)
}

// apply executes one plan against a fixed target commit.
func (s *Syncer) apply(ctx context.Context, plan Plan, target string) InstanceResult {
	inst := plan.Instance
	switch plan.Action {
	case ActionSkip:
		return InstanceResult{Instance: inst, Outcome: OutcomeSkipped, Message: plan.Reason}

	case ActionStashCheckout:
		stashMsg := fmt.Sprintf("fleetkeeper sync %s", gitx.ShortHash(target))
		if err := gitx.StashPush(ctx, s.runner, inst.SubrepoPath, stashMsg); err != nil {
			return InstanceResult{Instance: inst, Outcome: OutcomeFailed, Message: gitx.TruncateMessage(err.Error())}
		}
		if err := gitx.Checkout(ctx, s.runner, inst.SubrepoPath, target); err != nil {
			// The stash stays put; the operator recovers both the
			// changes and the failure from the summary.
			return InstanceResult{Instance: inst, Outcome: OutcomeFailed, Message: gitx.TruncateMessage(err.Error())}
		}
		s.logger.Debug("instance synced with stash",
			zap.String("path", inst.SubrepoPath),
			zap.String("target", gitx.ShortHash(target)))
		return InstanceResult{Instance: inst, Outcome: OutcomeStashed, Message: fmt.Sprintf("synced to %s, changes stashed", gitx.ShortHash(target))}

	default:
		if err := gitx.Checkout(ctx, s.runner, inst.SubrepoPath, target); err != nil {
			return InstanceResult{Instance: inst, Outcome: OutcomeFailed, Message: gitx.TruncateMessage(err.Error())}
		}
		return InstanceResult{Instance: inst, Outcome: OutcomeSynced, Message: fmt.Sprintf("synced to %s", gitx.ShortHash(target))}
	}
}

func (s *Summary) record(res InstanceResult) {
	s.Results = append(s.Results, res)
	switch res.Outcome {
	case OutcomeSynced:
		s.Synced++
	case OutcomeStashed:
		s.Stashed++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeFailed:
		s.Failed++
	}
}

func (s *Summary) failureError() error {
	if s.Failed == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d instances failed", s.Failed, len(s.Results))
}
