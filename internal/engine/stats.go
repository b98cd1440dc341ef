package engine

import "github.com/skaphos/fleetkeeper/internal/model"

// Accumulate folds one repository outcome into stats. Exactly one of
// the synced/skipped/error counters advances per call; the uncommitted
// counter is an independent axis and may advance alongside any of them.
func Accumulate(stats *model.SyncStats, repo model.Repository, out Outcome) {
	ref := model.RepoRef{Name: repo.Name, Path: repo.Path, Message: out.Message}

	switch {
	case out.Status.Failed():
		stats.ErrorRepos++
		stats.FailedRepos = append(stats.FailedRepos, ref)
	case out.Status.Skipped():
		stats.SkippedRepos++
		switch out.Status {
		case model.StatusNoUpstream:
			stats.NoUpstreamRepos = append(stats.NoUpstreamRepos, ref)
		case model.StatusNoRemote:
			stats.NoRemoteRepos = append(stats.NoRemoteRepos, ref)
		}
	default:
		stats.SyncedRepos++
		stats.TotalCommitsPushed += out.CommitsPushed
	}

	if out.HasUncommitted {
		stats.UncommittedCount++
		stats.UncommittedRepos = append(stats.UncommittedRepos, model.RepoRef{Name: repo.Name, Path: repo.Path})
	}
}
