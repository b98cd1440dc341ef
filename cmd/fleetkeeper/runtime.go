package fleetkeeper

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/skaphos/fleetkeeper/internal/config"
	"github.com/skaphos/fleetkeeper/internal/discovery"
	"github.com/skaphos/fleetkeeper/internal/model"
	"github.com/skaphos/fleetkeeper/internal/strutil"
)

// commandRuntime carries the per-invocation environment shared by the
// fleet commands: resolved config, the scan root, and the structured
// logger handed down to engine/batch/subrepo code.
type commandRuntime struct {
	cfg     *config.Config
	cfgPath string
	cwd     string
	root    string
	logger  *zap.Logger
}

// loadRuntime resolves config and the scan root. An explicit root
// argument wins; otherwise the configured root applies, falling back to
// the working directory. A missing config file is only an error when it
// was explicitly requested via --config or FLEETKEEPER_CONFIG.
func loadRuntime(cmd *cobra.Command, rootArg string) (*commandRuntime, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfgPath, err := config.ResolveConfigPath(flagConfig, cwd)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(cfgPath)
	switch {
	case err == nil:
		debugf(cmd, "using config %s", cfgPath)
	case os.IsNotExist(err) && flagConfig == "" && os.Getenv(config.EnvConfigPath) == "":
		defaults := config.DefaultConfig()
		cfg = &defaults
		cfgPath = ""
		debugf(cmd, "no config file found, using defaults")
	default:
		return nil, err
	}

	return &commandRuntime{
		cfg:     cfg,
		cfgPath: cfgPath,
		cwd:     cwd,
		root:    resolveRoot(rootArg, cfgPath, cfg, cwd),
		logger:  commandLogger(),
	}, nil
}

func resolveRoot(rootArg, cfgPath string, cfg *config.Config, cwd string) string {
	if strings.TrimSpace(rootArg) != "" {
		return rootArg
	}
	if root := config.EffectiveRoot(cfgPath, cfg); root != "" {
		return root
	}
	return cwd
}

func rootArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

// discoverRepos runs working-tree discovery with command flags layered
// over the config. Commands without discovery flags fall through to the
// configured values.
func discoverRepos(cmd *cobra.Command, rt *commandRuntime) ([]model.Repository, error) {
	maxDepth, _ := cmd.Flags().GetInt("max-depth")
	if maxDepth <= 0 {
		maxDepth = rt.cfg.Defaults.MaxDepth
	}
	skipDirs := rt.cfg.SkipDirs
	if raw, _ := cmd.Flags().GetString("skip"); strings.TrimSpace(raw) != "" {
		skipDirs = strutil.SplitCSV(raw)
	}
	exclude := rt.cfg.Exclude
	if raw, _ := cmd.Flags().GetString("exclude"); strings.TrimSpace(raw) != "" {
		exclude = strutil.SplitCSV(raw)
	}

	repos, err := discovery.Scan(cmd.Context(), discovery.Options{
		Root:     rt.root,
		SkipDirs: skipDirs,
		Exclude:  exclude,
		MaxDepth: maxDepth,
		Workers:  rt.cfg.Defaults.DiscoveryWorkers,
	})
	if err != nil {
		return nil, err
	}
	debugf(cmd, "discovered %d repositories under %s", len(repos), rt.root)
	return repos, nil
}

func effectiveConcurrency(cmd *cobra.Command, classDefault int) int {
	if n, _ := cmd.Flags().GetInt("concurrency"); n > 0 {
		return n
	}
	return classDefault
}

func effectiveTimeout(cmd *cobra.Command, classDefault time.Duration) time.Duration {
	if secs, _ := cmd.Flags().GetInt("timeout"); secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return classDefault
}
