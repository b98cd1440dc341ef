// Package subrepo finds nested working trees ("subrepos") vendored inside
// parent repositories, correlates instances of the same upstream across
// the whole fleet, scores their drift, and repairs drifted groups by
// checking instances out to a common target commit.
package subrepo

import (
	"context"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/skaphos/fleetkeeper/internal/discovery"
	"github.com/skaphos/fleetkeeper/internal/gitx"
	"github.com/skaphos/fleetkeeper/internal/model"
)

// DefaultNestedDepth bounds how deep below a parent root the nested walk
// descends.
const DefaultNestedDepth = 5

// Scanner captures the state of nested working trees inside parents.
type Scanner struct {
	runner gitx.Runner
	logger *zap.Logger
	depth  int
	skip   []string
}

// NewScanner creates a Scanner. Zero depth means DefaultNestedDepth and a
// nil skip list means the standard discovery skip list.
func NewScanner(runner gitx.Runner, depth int, skipDirs []string, logger *zap.Logger) *Scanner {
	if runner == nil {
		runner = &gitx.GitRunner{}
	}
	if depth <= 0 {
		depth = DefaultNestedDepth
	}
	if skipDirs == nil {
		skipDirs = discovery.DefaultSkipDirs()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{runner: runner, logger: logger, depth: depth, skip: skipDirs}
}

// ScanParent walks one parent repository and captures every nested
// working tree beneath it. The parent's own root is excluded; nested
// repositories whose HEAD cannot be read are dropped.
func (s *Scanner) ScanParent(ctx context.Context, parent model.Repository) []model.SubrepoInstance {
	nested, err := discovery.Scan(ctx, discovery.Options{
		Root:     parent.Path,
		SkipDirs: s.skip,
		MaxDepth: s.depth,
		SkipRoot: true,
	})
	if err != nil {
		s.logger.Debug("nested scan failed",
			zap.String("parent", parent.Name),
			zap.Error(err))
		return nil
	}

	instances := make([]model.SubrepoInstance, 0, len(nested))
	for _, sub := range nested {
		if inst, ok := s.capture(ctx, parent, sub.Path); ok {
			instances = append(instances, inst)
		}
	}
	return instances
}

// capture reads one nested repository's state. The commit hash is
// required; everything else degrades to its zero value on read errors.
func (s *Scanner) capture(ctx context.Context, parent model.Repository, path string) (model.SubrepoInstance, bool) {
	hash, err := gitx.HeadCommit(ctx, s.runner, path)
	if err != nil {
		s.logger.Debug("unreadable nested repository",
			zap.String("path", path),
			zap.Error(err))
		return model.SubrepoInstance{}, false
	}
	dirty, _ := gitx.HasUncommitted(ctx, s.runner, path)
	timestamp, _ := gitx.CommitTimestamp(ctx, s.runner, path)

	var url string
	if remotes, err := gitx.RemoteNames(ctx, s.runner, path); err == nil {
		if primary := gitx.PrimaryRemote(remotes); primary != "" {
			url, _ = gitx.RemoteURL(ctx, s.runner, path, primary)
		}
	}

	rel, err := filepath.Rel(parent.Path, path)
	if err != nil {
		rel = path
	}

	return model.SubrepoInstance{
		ParentRepo:      parent.Name,
		ParentPath:      parent.Path,
		SubrepoName:     filepath.Base(path),
		SubrepoPath:     path,
		RelativePath:    rel,
		CommitHash:      hash,
		ShortHash:       gitx.ShortHash(hash),
		RemoteURL:       url,
		HasUncommitted:  dirty,
		CommitTimestamp: timestamp,
	}, true
}
