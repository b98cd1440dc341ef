package subrepo_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skaphos/fleetkeeper/internal/model"
	"github.com/skaphos/fleetkeeper/internal/subrepo"
)

type mockResponse struct {
	out string
	err error
}

type mockRunner struct {
	responses map[string]mockResponse

	mu    sync.Mutex
	calls []string
}

func (m *mockRunner) Run(_ context.Context, dir string, args ...string) (string, error) {
	key := dir + ":" + strings.Join(args, " ")
	m.mu.Lock()
	m.calls = append(m.calls, key)
	m.mu.Unlock()
	if resp, ok := m.responses[key]; ok {
		return resp.out, resp.err
	}
	return "", fmt.Errorf("unexpected call: %s", key)
}

func (m *mockRunner) callLog() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

const fetchKey = "-c fetch.recurseSubmodules=false fetch --all --prune --no-recurse-submodules"

func singleInstanceReport(i model.SubrepoInstance) model.ValidationReport {
	report := model.ValidationReport{ByRemote: make(map[string][]model.SubrepoInstance), TotalNested: 1}
	if i.RemoteURL == "" {
		report.NoRemote = []model.SubrepoInstance{i}
		return report
	}
	report.ByRemote[i.RemoteURL] = []model.SubrepoInstance{i}
	return report
}

var _ = Describe("SelectInstances", func() {
	It("selects by name across remote groups and the remote-less bucket", func() {
		report := model.ValidationReport{ByRemote: map[string][]model.SubrepoInstance{
			"https://github.com/acme/utils": {
				inst("svc-b", "utils", "aaaa111", "https://github.com/acme/utils", 100, false),
			},
			"https://gitlab.com/other/utils": {
				inst("svc-a", "utils", "bbbb222", "https://gitlab.com/other/utils", 100, false),
			},
		}}
		report.NoRemote = []model.SubrepoInstance{
			inst("svc-c", "utils", "cccc333", "", 100, false),
			inst("svc-c", "other", "dddd444", "", 100, false),
		}

		selected := subrepo.SelectInstances(report, "utils")
		Expect(selected).To(HaveLen(3))
		Expect(selected[0].ParentRepo).To(Equal("svc-a"))
		Expect(selected[1].ParentRepo).To(Equal("svc-b"))
		Expect(selected[2].ParentRepo).To(Equal("svc-c"))
	})
})

var _ = Describe("BuildPlans", func() {
	It("gates dirty instances on the stash and force flags", func() {
		clean := inst("svc-a", "lib", "aaaa111", "", 100, false)
		dirty := inst("svc-b", "lib", "bbbb222", "", 200, true)

		plans := subrepo.BuildPlans([]model.SubrepoInstance{clean, dirty}, subrepo.Options{})
		Expect(plans[0].Action).To(Equal(subrepo.ActionCheckout))
		Expect(plans[1].Action).To(Equal(subrepo.ActionSkip))
		Expect(plans[1].Reason).To(ContainSubstring("uncommitted changes"))

		plans = subrepo.BuildPlans([]model.SubrepoInstance{dirty}, subrepo.Options{Stash: true})
		Expect(plans[0].Action).To(Equal(subrepo.ActionStashCheckout))

		plans = subrepo.BuildPlans([]model.SubrepoInstance{dirty}, subrepo.Options{Force: true})
		Expect(plans[0].Action).To(Equal(subrepo.ActionCheckout))

		// Stash wins when both gates are set.
		plans = subrepo.BuildPlans([]model.SubrepoInstance{dirty}, subrepo.Options{Stash: true, Force: true})
		Expect(plans[0].Action).To(Equal(subrepo.ActionStashCheckout))
	})
})

var _ = Describe("Syncer.Sync", func() {
	It("checks clean instances out to the target", func() {
		i := inst("svc-a", "lib", "aaaa111", "", 100, false)
		runner := &mockRunner{responses: map[string]mockResponse{
			i.SubrepoPath + ":checkout 1234567deadbeef": {},
		}}
		syncer := subrepo.NewSyncer(runner, nil)

		summary, err := syncer.Sync(context.Background(), singleInstanceReport(i), "lib", "1234567deadbeef", subrepo.Options{})
		Expect(err).NotTo(HaveOccurred())
		Expect(summary.Synced).To(Equal(1))
		Expect(summary.Target).To(Equal("1234567deadbeef"))
		Expect(summary.Results[0].Outcome).To(Equal(subrepo.OutcomeSynced))
		Expect(summary.Results[0].Message).To(Equal("synced to 1234567"))
	})

	It("skips dirty instances without flags and never touches them", func() {
		i := inst("svc-a", "lib", "aaaa111", "", 100, true)
		runner := &mockRunner{responses: map[string]mockResponse{}}
		syncer := subrepo.NewSyncer(runner, nil)

		summary, err := syncer.Sync(context.Background(), singleInstanceReport(i), "lib", "1234567", subrepo.Options{})
		Expect(err).NotTo(HaveOccurred())
		Expect(summary.Skipped).To(Equal(1))
		Expect(summary.Results[0].Outcome).To(Equal(subrepo.OutcomeSkipped))
		Expect(runner.callLog()).To(BeEmpty())
	})

	It("stashes dirty instances before checkout and reports the stash", func() {
		i := inst("svc-a", "lib", "aaaa111", "", 100, true)
		runner := &mockRunner{responses: map[string]mockResponse{
			i.SubrepoPath + ":stash push -u -m fleetkeeper sync 1234567": {},
			i.SubrepoPath + ":checkout 1234567":                         {},
		}}
		syncer := subrepo.NewSyncer(runner, nil)

		summary, err := syncer.Sync(context.Background(), singleInstanceReport(i), "lib", "1234567", subrepo.Options{Stash: true})
		Expect(err).NotTo(HaveOccurred())
		Expect(summary.Stashed).To(Equal(1))
		Expect(summary.Results[0].Outcome).To(Equal(subrepo.OutcomeStashed))
		Expect(summary.StashedInstances()).To(HaveLen(1))
		// The stash is never popped on the instance's behalf.
		Expect(runner.callLog()).NotTo(ContainElement(ContainSubstring("stash pop")))
	})

	It("forces checkout over dirty instances without stashing", func() {
		i := inst("svc-a", "lib", "aaaa111", "", 100, true)
		runner := &mockRunner{responses: map[string]mockResponse{
			i.SubrepoPath + ":checkout 1234567": {},
		}}
		syncer := subrepo.NewSyncer(runner, nil)

		summary, err := syncer.Sync(context.Background(), singleInstanceReport(i), "lib", "1234567", subrepo.Options{Force: true})
		Expect(err).NotTo(HaveOccurred())
		Expect(summary.Synced).To(Equal(1))
		Expect(runner.callLog()).NotTo(ContainElement(ContainSubstring("stash")))
	})

	It("records failures without blocking or rolling back siblings", func() {
		a := inst("svc-a", "lib", "aaaa111", "", 100, false)
		b := inst("svc-b", "lib", "bbbb222", "", 200, false)
		c := inst("svc-c", "lib", "cccc333", "", 300, false)
		report := model.ValidationReport{ByRemote: map[string][]model.SubrepoInstance{
			"https://github.com/acme/lib": {a, b, c},
		}}
		runner := &mockRunner{responses: map[string]mockResponse{
			a.SubrepoPath + ":checkout 1234567": {},
			b.SubrepoPath + ":checkout 1234567": {err: errors.New("error: pathspec '1234567' did not match")},
			c.SubrepoPath + ":checkout 1234567": {},
		}}
		syncer := subrepo.NewSyncer(runner, nil)

		summary, err := syncer.Sync(context.Background(), report, "lib", "1234567", subrepo.Options{})
		Expect(err).To(MatchError("1 of 3 instances failed"))
		Expect(summary.Synced).To(Equal(2))
		Expect(summary.Failed).To(Equal(1))
		Expect(summary.Results[1].Outcome).To(Equal(subrepo.OutcomeFailed))
		Expect(summary.Results[2].Outcome).To(Equal(subrepo.OutcomeSynced))
	})

	It("errors when no instance carries the name", func() {
		report := model.ValidationReport{ByRemote: make(map[string][]model.SubrepoInstance)}
		syncer := subrepo.NewSyncer(&mockRunner{}, nil)

		_, err := syncer.Sync(context.Background(), report, "ghost", "1234567", subrepo.Options{})
		Expect(err).To(MatchError(ContainSubstring(`no subrepo instances named "ghost"`)))
	})
})

var _ = Describe("Syncer.Update", func() {
	remote := "https://github.com/acme/lib"

	It("fetches and checks out origin/HEAD when it resolves", func() {
		i := inst("svc-a", "lib", "aaaa111", remote, 100, false)
		runner := &mockRunner{responses: map[string]mockResponse{
			i.SubrepoPath + ":" + fetchKey:                             {},
			i.SubrepoPath + ":rev-parse --verify --quiet origin/HEAD":  {out: "feedfacefeedface\n"},
			i.SubrepoPath + ":checkout feedfacefeedface":               {},
		}}
		syncer := subrepo.NewSyncer(runner, nil)

		summary, err := syncer.Update(context.Background(), singleInstanceReport(i), "lib", subrepo.Options{})
		Expect(err).NotTo(HaveOccurred())
		Expect(summary.Synced).To(Equal(1))
		Expect(summary.Results[0].Message).To(Equal("synced to feedfac"))
		Expect(runner.callLog()).NotTo(ContainElement(ContainSubstring("origin/main")))
	})

	It("falls back through origin/main to origin/master", func() {
		i := inst("svc-a", "lib", "aaaa111", remote, 100, false)
		runner := &mockRunner{responses: map[string]mockResponse{
			i.SubrepoPath + ":" + fetchKey:                              {},
			i.SubrepoPath + ":rev-parse --verify --quiet origin/HEAD":   {err: errors.New("fatal: needed a single revision")},
			i.SubrepoPath + ":rev-parse --verify --quiet origin/main":   {err: errors.New("fatal: needed a single revision")},
			i.SubrepoPath + ":rev-parse --verify --quiet origin/master": {out: "cafebabecafebabe\n"},
			i.SubrepoPath + ":checkout cafebabecafebabe":                {},
		}}
		syncer := subrepo.NewSyncer(runner, nil)

		summary, err := syncer.Update(context.Background(), singleInstanceReport(i), "lib", subrepo.Options{})
		Expect(err).NotTo(HaveOccurred())
		Expect(summary.Synced).To(Equal(1))
	})

	It("fails an instance with no resolvable remote head", func() {
		i := inst("svc-a", "lib", "aaaa111", remote, 100, false)
		runner := &mockRunner{responses: map[string]mockResponse{
			i.SubrepoPath + ":" + fetchKey:                              {},
			i.SubrepoPath + ":rev-parse --verify --quiet origin/HEAD":   {err: errors.New("fatal")},
			i.SubrepoPath + ":rev-parse --verify --quiet origin/main":   {err: errors.New("fatal")},
			i.SubrepoPath + ":rev-parse --verify --quiet origin/master": {err: errors.New("fatal")},
		}}
		syncer := subrepo.NewSyncer(runner, nil)

		summary, err := syncer.Update(context.Background(), singleInstanceReport(i), "lib", subrepo.Options{})
		Expect(err).To(MatchError("1 of 1 instances failed"))
		Expect(summary.Results[0].Message).To(Equal("no origin head to update to"))
	})

	It("skips instances without a remote", func() {
		i := inst("svc-a", "lib", "aaaa111", "", 100, false)
		runner := &mockRunner{responses: map[string]mockResponse{}}
		syncer := subrepo.NewSyncer(runner, nil)

		summary, err := syncer.Update(context.Background(), singleInstanceReport(i), "lib", subrepo.Options{})
		Expect(err).NotTo(HaveOccurred())
		Expect(summary.Skipped).To(Equal(1))
		Expect(summary.Results[0].Message).To(Equal("no remote configured"))
		Expect(runner.callLog()).To(BeEmpty())
	})

	It("fails the instance when the fetch fails", func() {
		i := inst("svc-a", "lib", "aaaa111", remote, 100, false)
		runner := &mockRunner{responses: map[string]mockResponse{
			i.SubrepoPath + ":" + fetchKey: {err: errors.New("fatal: could not resolve host")},
		}}
		syncer := subrepo.NewSyncer(runner, nil)

		summary, err := syncer.Update(context.Background(), singleInstanceReport(i), "lib", subrepo.Options{})
		Expect(err).To(HaveOccurred())
		Expect(summary.Failed).To(Equal(1))
	})

	It("honors the dirty gate before fetching", func() {
		i := inst("svc-a", "lib", "aaaa111", remote, 100, true)
		runner := &mockRunner{responses: map[string]mockResponse{}}
		syncer := subrepo.NewSyncer(runner, nil)

		summary, err := syncer.Update(context.Background(), singleInstanceReport(i), "lib", subrepo.Options{})
		Expect(err).NotTo(HaveOccurred())
		Expect(summary.Skipped).To(Equal(1))
		Expect(runner.callLog()).To(BeEmpty())
	})
})
