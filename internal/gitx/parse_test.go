// SPDX-License-Identifier: MIT
package gitx_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skaphos/fleetkeeper/internal/gitx"
)

var _ = Describe("PorcelainDirty", func() {
	It("treats empty output as clean", func() {
		Expect(gitx.PorcelainDirty("")).To(BeFalse())
	})

	It("treats whitespace-only output as clean", func() {
		Expect(gitx.PorcelainDirty("\n  \n")).To(BeFalse())
	})

	It("flags staged changes", func() {
		Expect(gitx.PorcelainDirty("M  file1.go\n")).To(BeTrue())
	})

	It("flags untracked files", func() {
		Expect(gitx.PorcelainDirty("?? new_file.go")).To(BeTrue())
	})
})

var _ = Describe("PorcelainChangeCount", func() {
	It("counts zero for clean output", func() {
		Expect(gitx.PorcelainChangeCount("")).To(Equal(0))
	})

	It("counts one line per changed path", func() {
		Expect(gitx.PorcelainChangeCount("M  a.go\n?? b.go\nD  c.go\n")).To(Equal(3))
	})
})

var _ = Describe("ParseCount", func() {
	It("parses a single count", func() {
		n, err := gitx.ParseCount("2\n")
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(2))
	})

	It("treats empty output as zero", func() {
		n, err := gitx.ParseCount("")
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(0))
	})

	It("rejects garbage", func() {
		_, err := gitx.ParseCount("two")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("ParseRevListCount", func() {
	It("parses tab-separated ahead/behind", func() {
		ahead, behind := gitx.ParseRevListCount("2\t1")
		Expect(ahead).To(Equal(2))
		Expect(behind).To(Equal(1))
	})

	It("parses space-separated counts", func() {
		ahead, behind := gitx.ParseRevListCount("3 0")
		Expect(ahead).To(Equal(3))
		Expect(behind).To(Equal(0))
	})

	It("returns zeros for empty output", func() {
		ahead, behind := gitx.ParseRevListCount("")
		Expect(ahead).To(Equal(0))
		Expect(behind).To(Equal(0))
	})

	It("returns zeros for malformed output", func() {
		ahead, behind := gitx.ParseRevListCount("nonsense")
		Expect(ahead).To(Equal(0))
		Expect(behind).To(Equal(0))
	})
})

var _ = Describe("ParseUnixTimestamp", func() {
	It("parses committer time", func() {
		ts, err := gitx.ParseUnixTimestamp("1721980800\n")
		Expect(err).NotTo(HaveOccurred())
		Expect(ts).To(Equal(int64(1721980800)))
	})

	It("treats empty output as zero", func() {
		ts, err := gitx.ParseUnixTimestamp("")
		Expect(err).NotTo(HaveOccurred())
		Expect(ts).To(BeZero())
	})

	It("rejects garbage", func() {
		_, err := gitx.ParseUnixTimestamp("yesterday")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("ShortHash", func() {
	It("abbreviates to seven characters", func() {
		Expect(gitx.ShortHash("0123456789abcdef")).To(Equal("0123456"))
	})

	It("keeps short input unchanged", func() {
		Expect(gitx.ShortHash("abc")).To(Equal("abc"))
	})
})
