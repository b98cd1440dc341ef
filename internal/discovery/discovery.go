// Package discovery finds git working trees under a root directory.
//
// The walk is parallel and bounded. Results are deduplicated by canonical
// path and carry display names that do not depend on traversal order.
package discovery

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/skaphos/fleetkeeper/internal/model"
	"github.com/skaphos/fleetkeeper/internal/sortutil"
)

// maxWorkers caps the walk pool regardless of core count; directory
// scanning saturates well before that on ordinary disks.
const maxWorkers = 8

// gitdirScanLines bounds how far into a .git pointer file the scanner
// looks for the gitdir: line.
const gitdirScanLines = 5

// DefaultSkipDirs returns the directory basenames a scan prunes by
// default: dependency and build output trees that are expensive to walk
// and never hold repositories anyone wants managed.
func DefaultSkipDirs() []string {
	return []string{
		"node_modules", "vendor", "target", "build", "dist",
		"__pycache__", ".venv", "venv", ".next",
	}
}

// Options configures a discovery scan.
type Options struct {
	Root     string   // directory to scan; empty means the working directory
	SkipDirs []string // directory basenames never descended into
	Exclude  []string // doublestar globs matched against full slash paths
	MaxDepth int      // root is depth 0; zero or negative means unlimited
	Workers  int      // concurrent walkers; defaults to min(NumCPU, 8)
	SkipRoot bool     // do not report the root itself even when it is a repo
}

// Scan walks opts.Root and returns every git working tree found, sorted
// case-insensitively by name, one entry per canonical path.
//
// When the root itself is a working tree the scan stops there and returns
// the single entry, named after the root directory. SkipRoot suppresses
// that shortcut so nested trees inside a repository can be found.
func Scan(ctx context.Context, opts Options) ([]model.Repository, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("discovery root %s is not a directory", root)
	}

	if IsRepoDir(root) && !opts.SkipRoot {
		return []model.Repository{{
			Name: rootDisplayName(opts.Root),
			Path: canonicalPath(root),
		}}, nil
	}

	w := newWalker(opts)
	w.wg.Add(1)
	w.walk(ctx, root, 0)
	w.wg.Wait()

	return w.repositories(), nil
}

// IsRepoDir reports whether dir is the root of a git working tree: it
// holds a .git directory, or a regular .git file whose leading lines
// carry a gitdir: pointer (worktrees and submodules).
func IsRepoDir(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, ".git"))
	if err != nil {
		return false
	}
	if info.IsDir() {
		return true
	}
	if !info.Mode().IsRegular() {
		return false
	}
	return hasGitdirPointer(filepath.Join(dir, ".git"))
}

// MatchesExclude checks whether a path matches any of the given exclude
// glob patterns. Paths and patterns are compared in slash form.
func MatchesExclude(path string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}
	slashPath := filepath.ToSlash(path)
	for _, pattern := range patterns {
		ok, err := doublestar.Match(filepath.ToSlash(pattern), slashPath)
		if err != nil {
			continue
		}
		if ok {
			return true
		}
	}
	return false
}

// candidate is a repository observed during the walk, before naming.
type candidate struct {
	path string // canonical path
	base string // directory basename as walked
}

type walker struct {
	opts Options
	skip map[string]struct{}
	sem  chan struct{}
	wg   sync.WaitGroup

	mu    sync.Mutex
	seen  map[string]struct{}
	found []candidate
}

func newWalker(opts Options) *walker {
	workers := opts.Workers
	if workers <= 0 {
		workers = min(runtime.NumCPU(), maxWorkers)
	}
	skip := make(map[string]struct{}, len(opts.SkipDirs))
	for _, name := range opts.SkipDirs {
		skip[name] = struct{}{}
	}
	return &walker{
		opts: opts,
		skip: skip,
		sem:  make(chan struct{}, workers),
		seen: make(map[string]struct{}),
	}
}

// walk examines one directory. Unreadable directories are skipped
// silently; a scan never aborts on a single bad entry.
func (w *walker) walk(ctx context.Context, dir string, depth int) {
	defer w.wg.Done()

	if ctx.Err() != nil {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if name == ".git" {
			continue
		}
		if _, skip := w.skip[name]; skip {
			continue
		}
		childDepth := depth + 1
		if w.opts.MaxDepth > 0 && childDepth > w.opts.MaxDepth {
			continue
		}
		child := filepath.Join(dir, name)
		if MatchesExclude(child, w.opts.Exclude) {
			continue
		}
		if IsRepoDir(child) {
			w.record(child, name)
			continue // never descend into a found repository
		}
		w.descend(ctx, child, childDepth)
	}
}

// descend walks child on a pooled goroutine when a permit is free, else
// inline on the current one. Either way the tree below child is covered
// exactly once.
func (w *walker) descend(ctx context.Context, child string, depth int) {
	w.wg.Add(1)
	select {
	case w.sem <- struct{}{}:
		go func() {
			defer func() { <-w.sem }()
			w.walk(ctx, child, depth)
		}()
	default:
		w.walk(ctx, child, depth)
	}
}

// record registers a repository once per canonical path.
func (w *walker) record(dir, base string) {
	canonical := canonicalPath(dir)
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, dup := w.seen[canonical]; dup {
		return
	}
	w.seen[canonical] = struct{}{}
	w.found = append(w.found, candidate{path: canonical, base: base})
}

// repositories assigns names and produces the final sorted list.
//
// Collided basenames get numeric suffixes (-2, -3, ...). Assignment runs
// over candidates sorted by canonical path, so the suffix a given
// repository receives is stable run-to-run no matter how the parallel
// walk interleaved.
func (w *walker) repositories() []model.Repository {
	w.mu.Lock()
	found := make([]candidate, len(w.found))
	copy(found, w.found)
	w.mu.Unlock()

	sort.Slice(found, func(i, j int) bool { return found[i].path < found[j].path })

	counts := make(map[string]int, len(found))
	repos := make([]model.Repository, 0, len(found))
	for _, c := range found {
		counts[c.base]++
		name := c.base
		if n := counts[c.base]; n > 1 {
			name = fmt.Sprintf("%s-%d", c.base, n)
		}
		repos = append(repos, model.Repository{Name: name, Path: c.path})
	}

	sortutil.Repositories(repos)
	return repos
}

// canonicalPath resolves dir to its symlink-free absolute form, the
// identity used for deduplication.
func canonicalPath(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = filepath.Clean(dir)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return filepath.Clean(abs)
}

// rootDisplayName names a repository that is itself the scan root.
func rootDisplayName(root string) string {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "current"
	}
	base := filepath.Base(abs)
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "unknown"
	}
	return base
}

// hasGitdirPointer reports whether path looks like a git pointer file.
func hasGitdirPointer(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for i := 0; i < gitdirScanLines && scanner.Scan(); i++ {
		if strings.HasPrefix(strings.TrimSpace(scanner.Text()), "gitdir:") {
			return true
		}
	}
	return false
}
