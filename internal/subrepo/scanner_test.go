package subrepo_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skaphos/fleetkeeper/internal/model"
	"github.com/skaphos/fleetkeeper/internal/subrepo"
)

// newNested creates a nested working tree below root and returns its
// canonical path.
func newNested(root string, parts ...string) string {
	dir := filepath.Join(append([]string{root}, parts...)...)
	Expect(os.MkdirAll(filepath.Join(dir, ".git"), 0o755)).To(Succeed())
	return dir
}

// canonTempDir resolves the symlinks some platforms put in front of
// temp directories so path comparisons stay exact.
func canonTempDir() string {
	dir, err := filepath.EvalSymlinks(GinkgoT().TempDir())
	Expect(err).NotTo(HaveOccurred())
	return dir
}

var _ = Describe("Scanner", func() {
	It("captures nested working trees below a parent", func() {
		root := canonTempDir()
		Expect(os.MkdirAll(filepath.Join(root, ".git"), 0o755)).To(Succeed())
		libfoo := newNested(root, "vendor", "libfoo")
		cli := newNested(root, "tools", "cli")
		newNested(root, "node_modules", "dep")

		runner := &mockRunner{responses: map[string]mockResponse{
			libfoo + ":rev-parse HEAD":        {out: "aaaa1111bbbb2222\n"},
			libfoo + ":status --porcelain":    {out: " M lib.go\n"},
			libfoo + ":log -1 --format=%ct":   {out: "1700000000\n"},
			libfoo + ":remote":                {out: "origin\n"},
			libfoo + ":remote get-url origin": {out: "git@github.com:acme/libfoo.git\n"},
			cli + ":rev-parse HEAD":           {out: "cccc3333dddd4444\n"},
			cli + ":status --porcelain":       {},
			cli + ":log -1 --format=%ct":      {out: "1690000000\n"},
			cli + ":remote":                   {out: ""},
		}}
		scanner := subrepo.NewScanner(runner, 0, nil, nil)

		parent := model.Repository{Name: "svc-a", Path: root}
		instances := scanner.ScanParent(context.Background(), parent)
		Expect(instances).To(HaveLen(2))

		byName := map[string]model.SubrepoInstance{}
		for _, inst := range instances {
			byName[inst.SubrepoName] = inst
		}

		foo := byName["libfoo"]
		Expect(foo.ParentRepo).To(Equal("svc-a"))
		Expect(foo.ParentPath).To(Equal(root))
		Expect(foo.RelativePath).To(Equal(filepath.Join("vendor", "libfoo")))
		Expect(foo.CommitHash).To(Equal("aaaa1111bbbb2222"))
		Expect(foo.ShortHash).To(Equal("aaaa111"))
		Expect(foo.RemoteURL).To(Equal("git@github.com:acme/libfoo.git"))
		Expect(foo.HasUncommitted).To(BeTrue())
		Expect(foo.CommitTimestamp).To(Equal(int64(1700000000)))

		tool := byName["cli"]
		Expect(tool.RemoteURL).To(BeEmpty())
		Expect(tool.HasUncommitted).To(BeFalse())
	})

	It("drops nested repositories whose HEAD is unreadable", func() {
		root := canonTempDir()
		good := newNested(root, "vendor", "good")
		bad := newNested(root, "vendor", "bad")

		runner := &mockRunner{responses: map[string]mockResponse{
			good + ":rev-parse HEAD": {out: "aaaa1111\n"},
			bad + ":rev-parse HEAD":  {err: errors.New("fatal: not a git repository")},
		}}
		scanner := subrepo.NewScanner(runner, 0, nil, nil)

		instances := scanner.ScanParent(context.Background(), model.Repository{Name: "svc-a", Path: root})
		Expect(instances).To(HaveLen(1))
		Expect(instances[0].SubrepoName).To(Equal("good"))
	})

	It("honors the nested depth bound", func() {
		root := canonTempDir()
		shallow := newNested(root, "a", "shallow")
		newNested(root, "a", "b", "c", "deep")

		runner := &mockRunner{responses: map[string]mockResponse{
			shallow + ":rev-parse HEAD": {out: "aaaa1111\n"},
		}}
		scanner := subrepo.NewScanner(runner, 2, nil, nil)

		instances := scanner.ScanParent(context.Background(), model.Repository{Name: "svc-a", Path: root})
		Expect(instances).To(HaveLen(1))
		Expect(instances[0].SubrepoName).To(Equal("shallow"))
	})
})

var _ = Describe("CollectReport", func() {
	It("merges instances across parents into remote groups", func() {
		rootA := canonTempDir()
		rootB := canonTempDir()
		vendorA := newNested(rootA, "vendor", "widgets")
		vendorB := newNested(rootB, "third_party", "widgets")

		runner := &mockRunner{responses: map[string]mockResponse{
			vendorA + ":rev-parse HEAD":        {out: "aaaa1111\n"},
			vendorA + ":status --porcelain":    {},
			vendorA + ":log -1 --format=%ct":   {out: "1700000000\n"},
			vendorA + ":remote":                {out: "origin\n"},
			vendorA + ":remote get-url origin": {out: "git@github.com:acme/widgets.git\n"},
			vendorB + ":rev-parse HEAD":        {out: "bbbb2222\n"},
			vendorB + ":status --porcelain":    {},
			vendorB + ":log -1 --format=%ct":   {out: "1710000000\n"},
			vendorB + ":remote":                {out: "origin\n"},
			vendorB + ":remote get-url origin": {out: "https://github.com/acme/widgets\n"},
		}}
		scanner := subrepo.NewScanner(runner, 0, nil, nil)

		parents := []model.Repository{
			{Name: "svc-a", Path: rootA},
			{Name: "svc-b", Path: rootB},
		}
		report, err := subrepo.CollectReport(context.Background(), scanner, parents, 2, 0, nil, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(report.TotalNested).To(Equal(2))
		Expect(report.ByRemote).To(HaveLen(1))
		Expect(report.ByRemote["https://github.com/acme/widgets"]).To(HaveLen(2))
		Expect(report.NoRemote).To(BeEmpty())

		statuses := subrepo.Statuses(report)
		Expect(statuses).To(HaveLen(1))
		Expect(statuses[0].SyncScore).To(Equal(0.0))
		Expect(statuses[0].HasDrift).To(BeTrue())
	})

	It("rejects a non-positive scan limit", func() {
		scanner := subrepo.NewScanner(&mockRunner{}, 0, nil, nil)
		_, err := subrepo.CollectReport(context.Background(), scanner, nil, 0, 0, nil, nil)
		Expect(err).To(MatchError(ContainSubstring("concurrency limit must be positive")))
	})
})
