// SPDX-License-Identifier: MIT
package gitx

import (
	"context"
	"errors"
	"strings"
)

// Error classes used for summaries and operator guidance. Classification is
// heuristic (stderr text varies across git versions and locales), so the
// exact strings matched are best-effort rather than a stable contract.
const (
	ClassRateLimit = "rate_limit"
	ClassAuth      = "auth"
	ClassMerge     = "merge"
	ClassNetwork   = "network"
	ClassTimeout   = "timeout"
	ClassGeneric   = "generic"
)

const maxMessageLength = 40

// ClassifyError maps git/process errors into broad actionable categories.
// Structured signals (context deadlines) are checked before any text
// matching; the rate-limit class outranks the network class so throttled
// fetches are not misreported as connectivity problems.
func ClassifyError(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ClassTimeout
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "rate limit", "too many requests"),
		strings.Contains(msg, "403") && strings.Contains(msg, "github"):
		return ClassRateLimit
	case containsAny(msg, "authentication", "permission denied"):
		return ClassAuth
	case containsAny(msg, "conflict", "diverged"):
		return ClassMerge
	case containsAny(msg, "connection", "network", "could not resolve host"):
		return ClassNetwork
	case containsAny(msg, "timed out", "timeout"):
		return ClassTimeout
	default:
		return ClassGeneric
	}
}

// TruncateMessage bounds a message to the display width used in status
// lines and summaries, ellipsizing anything longer.
func TruncateMessage(msg string) string {
	msg = strings.Join(strings.Fields(msg), " ")
	if len(msg) <= maxMessageLength {
		return msg
	}
	return msg[:maxMessageLength-3] + "..."
}

func containsAny(msg string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}
