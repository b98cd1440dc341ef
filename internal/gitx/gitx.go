// Package gitx provides helpers for executing git commands and parsing
// their output. It shells out to the installed git binary.
package gitx

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes git commands in a given repo directory.
// This interface allows mocking in tests.
type Runner interface {
	// Run executes a git command in the given directory and returns
	// combined stdout/stderr output.
	Run(ctx context.Context, dir string, args ...string) (string, error)
}

// GitRunner is the default Runner implementation that shells out to git.
type GitRunner struct {
	// GitBin is the path to the git binary. Defaults to "git".
	GitBin string
}

// Run executes a git command. Command output is folded into the returned
// error so failures can be classified from their text, and a context
// deadline surfaces as context.DeadlineExceeded rather than a kill signal.
func (g *GitRunner) Run(ctx context.Context, dir string, args ...string) (string, error) {
	bin := g.GitBin
	if bin == "" {
		bin = "git"
	}
	cmd := exec.CommandContext(ctx, bin, args...)
	if dir != "" {
		cmd.Dir = dir
	}
	out, err := cmd.CombinedOutput()
	trimmed := strings.TrimSpace(string(out))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return trimmed, fmt.Errorf("git %s: %w", argName(args), ctxErr)
		}
		if trimmed != "" {
			return trimmed, fmt.Errorf("git %s: %w: %s", argName(args), err, trimmed)
		}
		return trimmed, fmt.Errorf("git %s: %w", argName(args), err)
	}
	return trimmed, nil
}

func argName(args []string) string {
	for _, arg := range args {
		if !strings.HasPrefix(arg, "-") {
			return arg
		}
	}
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

// RefreshIndex updates the cached stat information in the index. It is
// best-effort: git exits nonzero when entries need refreshing, which is
// exactly the situation the subsequent status check reports on.
func RefreshIndex(ctx context.Context, r Runner, dir string) {
	_, _ = r.Run(ctx, dir, "update-index", "--refresh")
}

// HasUncommitted reports whether the working tree has any local
// modifications (staged, unstaged, or untracked).
func HasUncommitted(ctx context.Context, r Runner, dir string) (bool, error) {
	out, err := r.Run(ctx, dir, "status", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("git status: %w", err)
	}
	return PorcelainDirty(out), nil
}

// CurrentBranch returns the checked-out branch name. For a detached HEAD it
// returns the short commit hash and detached=true. It errors only when HEAD
// cannot be resolved at all (an empty or corrupt repository).
func CurrentBranch(ctx context.Context, r Runner, dir string) (string, bool, error) {
	out, err := r.Run(ctx, dir, "symbolic-ref", "--quiet", "--short", "HEAD")
	if err == nil {
		return strings.TrimSpace(out), false, nil
	}
	hash, hashErr := r.Run(ctx, dir, "rev-parse", "--short", "HEAD")
	if hashErr != nil {
		return "", false, fmt.Errorf("git symbolic-ref: %w", hashErr)
	}
	return strings.TrimSpace(hash), true, nil
}

// RemoteNames returns the configured remote names.
func RemoteNames(ctx context.Context, r Runner, dir string) ([]string, error) {
	out, err := r.Run(ctx, dir, "remote")
	if err != nil {
		return nil, fmt.Errorf("git remote: %w", err)
	}
	if strings.TrimSpace(out) == "" {
		return nil, nil
	}
	var names []string
	for _, line := range strings.Split(out, "\n") {
		name := strings.TrimSpace(line)
		if name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// RemoteURL returns the fetch URL of the named remote.
func RemoteURL(ctx context.Context, r Runner, dir, name string) (string, error) {
	out, err := r.Run(ctx, dir, "remote", "get-url", name)
	if err != nil {
		return "", fmt.Errorf("git remote get-url: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// Upstream returns the upstream tracking ref for the current branch, and
// whether one exists. A missing upstream is not an error.
func Upstream(ctx context.Context, r Runner, dir string) (string, bool) {
	out, err := r.Run(ctx, dir, "rev-parse", "--abbrev-ref", "--symbolic-full-name", "@{upstream}")
	if err != nil {
		return "", false
	}
	upstream := strings.TrimSpace(out)
	return upstream, upstream != ""
}

// AheadCount returns the number of commits on HEAD that are not on the
// upstream tracking branch.
func AheadCount(ctx context.Context, r Runner, dir string) (int, error) {
	out, err := r.Run(ctx, dir, "rev-list", "--count", "@{upstream}..HEAD")
	if err != nil {
		return 0, fmt.Errorf("git rev-list: %w", err)
	}
	return ParseCount(out)
}

// AheadBehind returns the commit counts local-ahead and local-behind
// relative to the upstream tracking branch.
func AheadBehind(ctx context.Context, r Runner, dir string) (int, int, error) {
	out, err := r.Run(ctx, dir, "rev-list", "--left-right", "--count", "HEAD...@{upstream}")
	if err != nil {
		return 0, 0, fmt.Errorf("git rev-list: %w", err)
	}
	ahead, behind := ParseRevListCount(out)
	return ahead, behind, nil
}

// HeadCommit returns the full HEAD commit hash.
func HeadCommit(ctx context.Context, r Runner, dir string) (string, error) {
	out, err := r.Run(ctx, dir, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("git rev-parse: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// CommitTimestamp returns the committer time of HEAD in Unix seconds.
func CommitTimestamp(ctx context.Context, r Runner, dir string) (int64, error) {
	out, err := r.Run(ctx, dir, "log", "-1", "--format=%ct")
	if err != nil {
		return 0, fmt.Errorf("git log: %w", err)
	}
	return ParseUnixTimestamp(out)
}

// ResolveRef resolves a ref name to a commit hash. The boolean reports
// whether the ref exists; a missing ref is not an error.
func ResolveRef(ctx context.Context, r Runner, dir, ref string) (string, bool) {
	out, err := r.Run(ctx, dir, "rev-parse", "--verify", "--quiet", ref)
	if err != nil {
		return "", false
	}
	hash := strings.TrimSpace(out)
	return hash, hash != ""
}

// ConfigGet returns the value of a repo-local config key. A missing key
// yields an empty value, not an error.
func ConfigGet(ctx context.Context, r Runner, dir, key string) string {
	out, err := r.Run(ctx, dir, "config", "--get", key)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

// ConfigGlobalGet returns the value of a key from the global git
// configuration (~/.gitconfig). The global config is consumed read-only;
// a missing key yields an empty value.
func ConfigGlobalGet(ctx context.Context, r Runner, key string) string {
	out, err := r.Run(ctx, "", "config", "--global", "--get", key)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}
