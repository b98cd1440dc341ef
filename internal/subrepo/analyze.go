// SPDX-License-Identifier: MIT
package subrepo

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/skaphos/fleetkeeper/internal/batch"
	"github.com/skaphos/fleetkeeper/internal/gitx"
	"github.com/skaphos/fleetkeeper/internal/model"
	"github.com/skaphos/fleetkeeper/internal/sortutil"
)

// CollectReport scans every parent under the batch limit and merges the
// found instances into one fleet-wide report. onDone may be nil; callers
// pass it to render per-parent progress.
func CollectReport(ctx context.Context, scanner *Scanner, parents []model.Repository, limit int, timeout time.Duration, logger *zap.Logger, onDone batch.OnDone[[]model.SubrepoInstance]) (model.ValidationReport, error) {
	initial := model.ValidationReport{ByRemote: make(map[string][]model.SubrepoInstance)}
	bc, err := batch.NewContext(parents, limit, timeout, initial, logger)
	if err != nil {
		return model.ValidationReport{}, err
	}
	batch.Run(ctx, bc,
		func(ctx context.Context, parent model.Repository) []model.SubrepoInstance {
			return scanner.ScanParent(ctx, parent)
		},
		MergeInstances,
		onDone)
	return bc.Snapshot(), nil
}

// MergeInstances folds one parent's instances into the report. Instances
// sharing a normalized remote land in one bucket regardless of the
// protocol or host spelling their parents cloned with.
func MergeInstances(report *model.ValidationReport, _ model.Repository, instances []model.SubrepoInstance) {
	for _, inst := range instances {
		report.TotalNested++
		if inst.RemoteURL == "" {
			report.NoRemote = append(report.NoRemote, inst)
			continue
		}
		key := gitx.NormalizeRemoteURL(inst.RemoteURL)
		report.ByRemote[key] = append(report.ByRemote[key], inst)
	}
}

// SyncScore measures how aligned a group of n instances with u unique
// commits is: 100 when every instance sits on one commit, 0 when every
// instance sits on its own.
func SyncScore(n, u int) float64 {
	if n <= 1 {
		return 100
	}
	return float64(n-u) / float64(n-1) * 100
}

// Statuses derives the drift groups from a report, ordered worst-first
// for triage. Remote-less instances group by directory name since no
// remote identity exists to correlate them.
func Statuses(report model.ValidationReport) []model.SubrepoStatus {
	statuses := make([]model.SubrepoStatus, 0, len(report.ByRemote)+1)
	for url, instances := range report.ByRemote {
		statuses = append(statuses, groupStatus(url, instances))
	}

	byName := make(map[string][]model.SubrepoInstance)
	for _, inst := range report.NoRemote {
		byName[inst.SubrepoName] = append(byName[inst.SubrepoName], inst)
	}
	for name, instances := range byName {
		st := groupStatus("", instances)
		st.Name = name
		statuses = append(statuses, st)
	}

	sortutil.SubrepoStatuses(statuses)
	return statuses
}

func groupStatus(url string, instances []model.SubrepoInstance) model.SubrepoStatus {
	sorted := append([]model.SubrepoInstance(nil), instances...)
	sortutil.SubrepoInstances(sorted)

	unique := make(map[string]struct{}, len(sorted))
	for _, inst := range sorted {
		unique[inst.CommitHash] = struct{}{}
	}
	score := SyncScore(len(sorted), len(unique))

	return model.SubrepoStatus{
		Name:          sorted[0].SubrepoName,
		RemoteURL:     url,
		Instances:     sorted,
		SyncScore:     score,
		UniqueCommits: len(unique),
		HasDrift:      score < 100,
	}
}

// SyncTarget returns the newest clean instance of a group, the
// recommended checkout target. ok is false when every instance carries
// uncommitted changes.
func SyncTarget(instances []model.SubrepoInstance) (model.SubrepoInstance, bool) {
	var best model.SubrepoInstance
	found := false
	for _, inst := range instances {
		if inst.HasUncommitted {
			continue
		}
		if !found || inst.CommitTimestamp > best.CommitTimestamp {
			best, found = inst, true
		}
	}
	return best, found
}

// AbsoluteLatest returns the newest instance regardless of cleanliness.
// Comparing it against SyncTarget flags groups whose freshest work is
// stuck in a dirty tree.
func AbsoluteLatest(instances []model.SubrepoInstance) (model.SubrepoInstance, bool) {
	var best model.SubrepoInstance
	found := false
	for _, inst := range instances {
		if !found || inst.CommitTimestamp > best.CommitTimestamp {
			best, found = inst, true
		}
	}
	return best, found
}

// Collisions finds subrepo names whose instances span more than one
// distinct normalized remote. Name-wide sync across unrelated remotes is
// almost certainly unintended, so these are flagged, never merged.
func Collisions(report model.ValidationReport) []model.CollisionWarning {
	remotesByName := make(map[string]map[string]int)
	for url, instances := range report.ByRemote {
		for _, inst := range instances {
			byURL := remotesByName[inst.SubrepoName]
			if byURL == nil {
				byURL = make(map[string]int)
				remotesByName[inst.SubrepoName] = byURL
			}
			byURL[url]++
		}
	}

	var warnings []model.CollisionWarning
	for name, byURL := range remotesByName {
		if len(byURL) < 2 {
			continue
		}
		urls := make([]string, 0, len(byURL))
		total := 0
		for url, count := range byURL {
			urls = append(urls, url)
			total += count
		}
		sort.Strings(urls)
		warnings = append(warnings, model.CollisionWarning{Name: name, RemoteURLs: urls, Instances: total})
	}
	sort.Slice(warnings, func(i, j int) bool { return warnings[i].Name < warnings[j].Name })
	return warnings
}
