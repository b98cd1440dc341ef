package gitx

import (
	"fmt"
	"strconv"
	"strings"
)

// PorcelainDirty reports whether `git status --porcelain` output describes
// any staged, unstaged, or untracked change.
func PorcelainDirty(output string) bool {
	for _, line := range strings.Split(output, "\n") {
		if strings.TrimSpace(line) != "" {
			return true
		}
	}
	return false
}

// PorcelainChangeCount counts the changed paths in `git status --porcelain`
// output.
func PorcelainChangeCount(output string) int {
	count := 0
	for _, line := range strings.Split(output, "\n") {
		if strings.TrimSpace(line) != "" {
			count++
		}
	}
	return count
}

// ParseCount parses the output of `git rev-list --count`.
func ParseCount(output string) (int, error) {
	trimmed := strings.TrimSpace(output)
	if trimmed == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("parse rev-list count %q: %w", trimmed, err)
	}
	return n, nil
}

// ParseRevListCount parses the output of:
//
//	git rev-list --left-right --count HEAD...@{upstream}
//
// Returns (ahead, behind).
func ParseRevListCount(output string) (int, int) {
	output = strings.TrimSpace(output)
	if output == "" {
		return 0, 0
	}
	parts := strings.SplitN(output, "\t", 2)
	if len(parts) != 2 {
		parts = strings.Fields(output)
		if len(parts) != 2 {
			return 0, 0
		}
	}
	ahead, _ := strconv.Atoi(strings.TrimSpace(parts[0]))
	behind, _ := strconv.Atoi(strings.TrimSpace(parts[1]))
	return ahead, behind
}

// ParseUnixTimestamp parses the output of `git log -1 --format=%ct`.
func ParseUnixTimestamp(output string) (int64, error) {
	trimmed := strings.TrimSpace(output)
	if trimmed == "" {
		return 0, nil
	}
	ts, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse commit timestamp %q: %w", trimmed, err)
	}
	return ts, nil
}

// ShortHash abbreviates a commit hash to the 7-character display form.
func ShortHash(hash string) string {
	hash = strings.TrimSpace(hash)
	if len(hash) <= 7 {
		return hash
	}
	return hash[:7]
}
