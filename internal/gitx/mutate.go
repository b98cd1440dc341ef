// SPDX-License-Identifier: MIT
package gitx

import (
	"context"
	"fmt"
)

// Fetch runs a safe fetch with submodule recursion disabled.
func Fetch(ctx context.Context, r Runner, dir string) error {
	_, err := r.Run(ctx, dir, "-c", "fetch.recurseSubmodules=false", "fetch", "--all", "--prune", "--no-recurse-submodules")
	return err
}

// Push pushes the current branch to its upstream.
func Push(ctx context.Context, r Runner, dir string) error {
	_, err := r.Run(ctx, dir, "push")
	return err
}

// PushSetUpstream pushes the branch and creates the upstream tracking
// relationship on the named remote.
func PushSetUpstream(ctx context.Context, r Runner, dir, remote, branch string) error {
	_, err := r.Run(ctx, dir, "push", "-u", remote, branch)
	return err
}

// PullFFOnly fast-forwards the current branch from its upstream. Diverged
// histories make git fail rather than merge.
func PullFFOnly(ctx context.Context, r Runner, dir string) error {
	_, err := r.Run(ctx, dir, "pull", "--ff-only", "--no-recurse-submodules")
	return err
}

// StageAll stages every change in the working tree, including deletions
// and untracked files.
func StageAll(ctx context.Context, r Runner, dir string) error {
	_, err := r.Run(ctx, dir, "add", "-A")
	return err
}

// Commit records the staged changes with the given message.
func Commit(ctx context.Context, r Runner, dir, message string) error {
	_, err := r.Run(ctx, dir, "commit", "-m", message)
	return err
}

// StashPush saves local modifications (including untracked files) to a new
// stash entry. Callers are responsible for telling the operator about the
// entry: nothing in this package ever pops a stash.
func StashPush(ctx context.Context, r Runner, dir, message string) error {
	_, err := r.Run(ctx, dir, "stash", "push", "-u", "-m", message)
	return err
}

// Checkout checks out the given commit or ref, detaching HEAD for commits.
func Checkout(ctx context.Context, r Runner, dir, ref string) error {
	_, err := r.Run(ctx, dir, "checkout", ref)
	return err
}

// ConfigSet writes a repo-local config key.
func ConfigSet(ctx context.Context, r Runner, dir, key, value string) error {
	if _, err := r.Run(ctx, dir, "config", key, value); err != nil {
		return fmt.Errorf("git config %s: %w", key, err)
	}
	return nil
}
