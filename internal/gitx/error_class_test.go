// SPDX-License-Identifier: MIT
package gitx_test

import (
	"context"
	"errors"
	"fmt"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skaphos/fleetkeeper/internal/gitx"
)

var _ = Describe("ClassifyError", func() {
	It("returns empty for nil", func() {
		Expect(gitx.ClassifyError(nil)).To(Equal(""))
	})

	It("classifies context deadline as timeout before any text matching", func() {
		err := fmt.Errorf("git fetch: %w", context.DeadlineExceeded)
		Expect(gitx.ClassifyError(err)).To(Equal(gitx.ClassTimeout))
	})

	DescribeTable("classifies stderr text",
		func(text, expected string) {
			Expect(gitx.ClassifyError(errors.New(text))).To(Equal(expected))
		},
		Entry("rate limit", "remote: API rate limit exceeded", gitx.ClassRateLimit),
		Entry("too many requests", "fatal: 429 Too Many Requests", gitx.ClassRateLimit),
		Entry("403 from github", "The requested URL returned error: 403 from github.com", gitx.ClassRateLimit),
		Entry("authentication", "fatal: Authentication failed for repo", gitx.ClassAuth),
		Entry("permission denied", "git@github.com: Permission denied (publickey)", gitx.ClassAuth),
		Entry("merge conflict", "CONFLICT (content): Merge conflict in main.go", gitx.ClassMerge),
		Entry("diverged", "Your branch and 'origin/main' have diverged", gitx.ClassMerge),
		Entry("connection refused", "fatal: unable to access: Connection refused", gitx.ClassNetwork),
		Entry("network unreachable", "fatal: Network is unreachable", gitx.ClassNetwork),
		Entry("timed out text", "fatal: the remote end hung up: operation timed out", gitx.ClassTimeout),
		Entry("anything else", "fatal: something nobody predicted", gitx.ClassGeneric),
	)

	It("prefers the rate-limit class over the network class", func() {
		err := errors.New("Connection reset: too many requests")
		Expect(gitx.ClassifyError(err)).To(Equal(gitx.ClassRateLimit))
	})
})

var _ = Describe("TruncateMessage", func() {
	It("keeps short messages intact", func() {
		Expect(gitx.TruncateMessage("up to date")).To(Equal("up to date"))
	})

	It("ellipsizes long messages to the display width", func() {
		long := strings.Repeat("x", 100)
		got := gitx.TruncateMessage(long)
		Expect(got).To(HaveLen(40))
		Expect(got).To(HaveSuffix("..."))
	})

	It("collapses internal whitespace", func() {
		Expect(gitx.TruncateMessage("fatal:\nbad\tthing")).To(Equal("fatal: bad thing"))
	})

	It("keeps a message at exactly the limit unmodified", func() {
		exact := strings.Repeat("y", 40)
		Expect(gitx.TruncateMessage(exact)).To(Equal(exact))
	})
})
