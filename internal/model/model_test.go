package model_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skaphos/fleetkeeper/internal/model"
)

var _ = Describe("Status", func() {
	It("classifies success statuses", func() {
		for _, s := range []model.Status{
			model.StatusSynced,
			model.StatusPushed,
			model.StatusConfigSynced,
			model.StatusConfigUpdated,
			model.StatusStaged,
			model.StatusCommitted,
		} {
			Expect(s.Succeeded()).To(BeTrue(), string(s))
			Expect(s.Failed()).To(BeFalse(), string(s))
			Expect(s.Skipped()).To(BeFalse(), string(s))
		}
	})

	It("classifies failure statuses", func() {
		for _, s := range []model.Status{
			model.StatusError,
			model.StatusPullError,
			model.StatusCommitError,
			model.StatusStagingError,
			model.StatusConfigError,
		} {
			Expect(s.Failed()).To(BeTrue(), string(s))
			Expect(s.Succeeded()).To(BeFalse(), string(s))
			Expect(s.Skipped()).To(BeFalse(), string(s))
		}
	})

	It("classifies expected no-op terminals", func() {
		for _, s := range []model.Status{
			model.StatusSkip,
			model.StatusNoUpstream,
			model.StatusNoRemote,
			model.StatusNoChanges,
			model.StatusConfigSkipped,
			model.StatusUnstaged,
		} {
			Expect(s.Skipped()).To(BeTrue(), string(s))
			Expect(s.Succeeded()).To(BeFalse(), string(s))
			Expect(s.Failed()).To(BeFalse(), string(s))
		}
	})

	It("assigns every status to exactly one family", func() {
		all := []model.Status{
			model.StatusSynced, model.StatusPushed, model.StatusSkip,
			model.StatusNoUpstream, model.StatusNoRemote, model.StatusError,
			model.StatusConfigSynced, model.StatusConfigUpdated,
			model.StatusConfigSkipped, model.StatusConfigError,
			model.StatusStaged, model.StatusUnstaged, model.StatusStagingError,
			model.StatusCommitted, model.StatusCommitError,
			model.StatusNoChanges, model.StatusPullError,
		}
		for _, s := range all {
			families := 0
			if s.Succeeded() {
				families++
			}
			if s.Failed() {
				families++
			}
			if s.Skipped() {
				families++
			}
			Expect(families).To(Equal(1), string(s))
		}
	})
})

var _ = Describe("SyncStats", func() {
	It("counts processed repositories across the three counters", func() {
		stats := model.SyncStats{SyncedRepos: 3, SkippedRepos: 2, ErrorRepos: 1}
		Expect(stats.Processed()).To(Equal(6))
	})

	It("does not count uncommitted repos as processed", func() {
		stats := model.SyncStats{SyncedRepos: 1, UncommittedCount: 4}
		Expect(stats.Processed()).To(Equal(1))
	})
})
