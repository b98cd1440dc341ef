// Package model defines the core data types used throughout FleetKeeper.
package model

import "time"

// Repository is a single discovered git working tree.
type Repository struct {
	// Name is the display name assigned during discovery. Duplicate basenames
	// receive a numeric suffix ("lib", "lib-2", ...).
	Name string `json:"name" yaml:"name"`
	// Path is the canonical absolute filesystem path to the repository root.
	// Path, never Name, is the repository's identity.
	Path string `json:"path" yaml:"path"`
}

// Status enumerates the terminal outcomes of a repository operation.
// Every operation resolves each repository to exactly one Status; statuses
// are never retried within an invocation.
type Status string

const (
	// Sync family.
	StatusSynced     Status = "synced"
	StatusPushed     Status = "pushed"
	StatusSkip       Status = "skip"
	StatusNoUpstream Status = "no-upstream"
	StatusNoRemote   Status = "no-remote"
	StatusError      Status = "error"

	// Config sync family.
	StatusConfigSynced  Status = "config-synced"
	StatusConfigUpdated Status = "config-updated"
	StatusConfigSkipped Status = "config-skipped"
	StatusConfigError   Status = "config-error"

	// Staging family.
	StatusStaged       Status = "staged"
	StatusUnstaged     Status = "unstaged"
	StatusStagingError Status = "staging-error"

	// Commit family.
	StatusCommitted   Status = "committed"
	StatusCommitError Status = "commit-error"
	StatusNoChanges   Status = "no-changes"

	// Pull-specific divergence.
	StatusPullError Status = "pull-error"
)

// Succeeded reports whether the status represents completed work
// (something was brought up to date or changed successfully).
func (s Status) Succeeded() bool {
	switch s {
	case StatusSynced, StatusPushed, StatusConfigSynced, StatusConfigUpdated, StatusStaged, StatusCommitted:
		return true
	default:
		return false
	}
}

// Failed reports whether the status represents an operational failure.
func (s Status) Failed() bool {
	switch s {
	case StatusError, StatusPullError, StatusCommitError, StatusStagingError, StatusConfigError:
		return true
	default:
		return false
	}
}

// Skipped reports whether the status is an expected no-op terminal:
// recorded but never an error and never retried.
func (s Status) Skipped() bool {
	switch s {
	case StatusSkip, StatusNoUpstream, StatusNoRemote, StatusNoChanges, StatusConfigSkipped, StatusUnstaged:
		return true
	default:
		return false
	}
}

// FetchResult is the immutable snapshot produced by the fetch/analyze phase
// of a sync operation. The mutate phase consumes it and never modifies it;
// the analyze phase performs no repository mutation beyond an index refresh.
type FetchResult struct {
	// HasUncommitted reports whether the working tree differs from HEAD.
	HasUncommitted bool `json:"has_uncommitted" yaml:"has_uncommitted"`
	// CurrentBranch is the checked-out branch; empty when HEAD is detached.
	CurrentBranch string `json:"current_branch" yaml:"current_branch"`
	// AheadCount is the number of local commits missing from the upstream.
	AheadCount int `json:"ahead_count" yaml:"ahead_count"`
	// UpstreamExists reports whether the current branch tracks an upstream.
	UpstreamExists bool `json:"upstream_exists" yaml:"upstream_exists"`
	// Status is the analyze-phase verdict: a terminal status for repos the
	// mutate phase must not touch, StatusSynced when mutation is eligible,
	// or StatusNoUpstream when mutation is deferred to the force policy.
	Status Status `json:"status" yaml:"status"`
	// Message is the human-readable companion to Status.
	Message string `json:"message" yaml:"message"`
}

// RepoRef identifies one repository inside a statistics detail list.
type RepoRef struct {
	// Name is the discovery display name.
	Name string `json:"name" yaml:"name"`
	// Path is the canonical repository path.
	Path string `json:"path" yaml:"path"`
	// Message is the optional status message recorded with the entry.
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

// SyncStats aggregates the outcome of one batch operation. It is mutated
// under the processing context's exclusive lock by completing tasks, so
// every field update must be a pure increment or append.
//
// SyncedRepos + SkippedRepos + ErrorRepos accounts for every processed
// repository exactly once, and each detail list's length equals its
// corresponding counter.
type SyncStats struct {
	// SyncedRepos counts repositories whose operation succeeded.
	SyncedRepos int `json:"synced_repos" yaml:"synced_repos"`
	// TotalCommitsPushed sums commits pushed across all repositories.
	TotalCommitsPushed int `json:"total_commits_pushed" yaml:"total_commits_pushed"`
	// SkippedRepos counts expected no-op terminals.
	SkippedRepos int `json:"skipped_repos" yaml:"skipped_repos"`
	// ErrorRepos counts operational failures.
	ErrorRepos int `json:"error_repos" yaml:"error_repos"`
	// UncommittedCount counts repositories with local modifications. This is
	// an independent axis: an uncommitted repo is still synced/skipped/failed.
	UncommittedCount int `json:"uncommitted_count" yaml:"uncommitted_count"`

	// FailedRepos lists repositories that resolved to a failure status.
	FailedRepos []RepoRef `json:"failed_repos,omitempty" yaml:"failed_repos,omitempty"`
	// NoUpstreamRepos lists repositories without an upstream tracking branch.
	NoUpstreamRepos []RepoRef `json:"no_upstream_repos,omitempty" yaml:"no_upstream_repos,omitempty"`
	// NoRemoteRepos lists repositories without any configured remote.
	NoRemoteRepos []RepoRef `json:"no_remote_repos,omitempty" yaml:"no_remote_repos,omitempty"`
	// UncommittedRepos lists repositories with local modifications.
	UncommittedRepos []RepoRef `json:"uncommitted_repos,omitempty" yaml:"uncommitted_repos,omitempty"`
}

// Processed returns the number of repositories accounted for so far.
func (s *SyncStats) Processed() int {
	return s.SyncedRepos + s.SkippedRepos + s.ErrorRepos
}

// SubrepoInstance is one occurrence of a nested repository inside a parent.
// Instances are rebuilt on every invocation and never persisted.
type SubrepoInstance struct {
	// ParentRepo is the display name of the enclosing parent repository.
	ParentRepo string `json:"parent_repo" yaml:"parent_repo"`
	// ParentPath is the canonical path of the enclosing parent repository.
	ParentPath string `json:"parent_path" yaml:"parent_path"`
	// SubrepoName is the nested repository's directory basename.
	SubrepoName string `json:"subrepo_name" yaml:"subrepo_name"`
	// SubrepoPath is the canonical path of the nested repository.
	SubrepoPath string `json:"subrepo_path" yaml:"subrepo_path"`
	// RelativePath is SubrepoPath relative to ParentPath.
	RelativePath string `json:"relative_path" yaml:"relative_path"`
	// CommitHash is the full HEAD commit hash.
	CommitHash string `json:"commit_hash" yaml:"commit_hash"`
	// ShortHash is the 7-character abbreviation of CommitHash.
	ShortHash string `json:"short_hash" yaml:"short_hash"`
	// RemoteURL is the raw primary remote URL; empty when no remote exists.
	RemoteURL string `json:"remote_url,omitempty" yaml:"remote_url,omitempty"`
	// HasUncommitted reports whether the nested working tree is dirty.
	HasUncommitted bool `json:"has_uncommitted" yaml:"has_uncommitted"`
	// CommitTimestamp is the HEAD commit's committer time in Unix seconds.
	CommitTimestamp int64 `json:"commit_timestamp" yaml:"commit_timestamp"`
}

// SubrepoStatus aggregates all instances sharing one normalized remote URL.
// It is derived data, recomputed whenever the instance set changes.
type SubrepoStatus struct {
	// Name is the representative subrepo name for the group.
	Name string `json:"name" yaml:"name"`
	// RemoteURL is the normalized remote URL keying the group; empty for the
	// no-remote bucket.
	RemoteURL string `json:"remote_url" yaml:"remote_url"`
	// Instances are the member occurrences across all parents.
	Instances []SubrepoInstance `json:"instances" yaml:"instances"`
	// SyncScore is (N-U)/(N-1)*100 for N instances with U unique commits;
	// 100 when N <= 1.
	SyncScore float64 `json:"sync_score" yaml:"sync_score"`
	// UniqueCommits is the number of distinct commit hashes in the group.
	UniqueCommits int `json:"unique_commits" yaml:"unique_commits"`
	// HasDrift reports whether SyncScore is below 100.
	HasDrift bool `json:"has_drift" yaml:"has_drift"`
}

// CollisionWarning flags a subrepo name whose instances span more than one
// distinct normalized remote. Name-based sync across unrelated remotes is
// almost certainly unintended, so callers should surface these prominently.
type CollisionWarning struct {
	// Name is the colliding subrepo name.
	Name string `json:"name" yaml:"name"`
	// RemoteURLs are the distinct normalized remotes sharing the name.
	RemoteURLs []string `json:"remote_urls" yaml:"remote_urls"`
	// Instances is the total occurrence count across those remotes.
	Instances int `json:"instances" yaml:"instances"`
}

// ValidationReport is the raw output of the subrepo drift analyzer.
type ValidationReport struct {
	// ByRemote buckets instances by normalized remote URL across all parents.
	ByRemote map[string][]SubrepoInstance `json:"by_remote" yaml:"by_remote"`
	// NoRemote holds instances without any configured remote.
	NoRemote []SubrepoInstance `json:"no_remote" yaml:"no_remote"`
	// TotalNested is the total number of nested repositories found.
	TotalNested int `json:"total_nested" yaml:"total_nested"`
}

// BatchReport is the top-level output of a batch operation.
type BatchReport struct {
	// GeneratedAt is the timestamp when this report was produced.
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
	// Operation is the operation that produced the report.
	Operation string `json:"operation" yaml:"operation"`
	// Stats is the aggregate outcome.
	Stats SyncStats `json:"stats" yaml:"stats"`
}
