// Package config handles loading, saving, and resolving the FleetKeeper
// machine configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/skaphos/fleetkeeper/internal/discovery"
)

const (
	// LocalConfigFilename is the per-directory FleetKeeper config file.
	LocalConfigFilename = ".fleetkeeper.yaml"
	// ConfigAPIVersion is the current config schema apiVersion.
	ConfigAPIVersion = "skaphos.io/fleetkeeper/v1beta1"
	// ConfigKind is the current config schema kind.
	ConfigKind = "FleetKeeperConfig"
	// EnvConfigPath overrides config resolution when set.
	EnvConfigPath = "FLEETKEEPER_CONFIG"
)

// Defaults holds per-operation-class runtime defaults. Concurrency is
// configured per class because read-mostly fetches tolerate far more
// parallelism than remote-mutating pushes or CPU-bound scans.
type Defaults struct {
	RemoteName         string `yaml:"remote_name"`
	DiscoveryWorkers   int    `yaml:"discovery_workers"`
	FetchConcurrency   int    `yaml:"fetch_concurrency"`
	PushConcurrency    int    `yaml:"push_concurrency"`
	ScanConcurrency    int    `yaml:"scan_concurrency"`
	GitTimeoutSeconds  int    `yaml:"git_timeout_seconds"`
	ScanTimeoutSeconds int    `yaml:"scan_timeout_seconds"`
	MaxDepth           int    `yaml:"max_depth"`
	SubrepoDepth       int    `yaml:"subrepo_depth"`
}

// GitTimeout is the per-repository deadline for git subprocess tasks.
func (d Defaults) GitTimeout() time.Duration {
	return time.Duration(d.GitTimeoutSeconds) * time.Second
}

// ScanTimeout is the per-repository deadline for CPU-bound scan tasks.
func (d Defaults) ScanTimeout() time.Duration {
	return time.Duration(d.ScanTimeoutSeconds) * time.Second
}

// Config represents the machine-level FleetKeeper configuration.
type Config struct {
	APIVersion string   `yaml:"apiVersion"`
	Kind       string   `yaml:"kind"`
	Root       string   `yaml:"root,omitempty"`
	SkipDirs   []string `yaml:"skip_dirs"`
	Exclude    []string `yaml:"exclude,omitempty"`
	Defaults   Defaults `yaml:"defaults"`
}

// DefaultConfig returns a Config with sensible defaults applied.
func DefaultConfig() Config {
	return Config{
		APIVersion: ConfigAPIVersion,
		Kind:       ConfigKind,
		SkipDirs:   discovery.DefaultSkipDirs(),
		Defaults: Defaults{
			RemoteName:         "origin",
			DiscoveryWorkers:   8,
			FetchConcurrency:   16,
			PushConcurrency:    4,
			ScanConcurrency:    1,
			GitTimeoutSeconds:  180,
			ScanTimeoutSeconds: 300,
			MaxDepth:           10,
			SubrepoDepth:       5,
		},
	}
}

// ConfigDir returns the platform-appropriate config directory path.
// It checks, in order: the override parameter, the FLEETKEEPER_CONFIG
// env var, and finally os.UserConfigDir()/fleetkeeper.
func ConfigDir(override string) (string, error) {
	if override != "" {
		if isConfigFilePath(override) {
			return filepath.Dir(override), nil
		}
		return override, nil
	}

	if env := os.Getenv(EnvConfigPath); env != "" {
		if isConfigFilePath(env) {
			return filepath.Dir(env), nil
		}
		return env, nil
	}

	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "fleetkeeper"), nil
}

// ConfigPath resolves the config file path from override/env/defaults.
func ConfigPath(override string) (string, error) {
	if override != "" {
		if isConfigFilePath(override) {
			return override, nil
		}
		return filepath.Join(override, "config.yaml"), nil
	}

	if env := os.Getenv(EnvConfigPath); env != "" {
		if isConfigFilePath(env) {
			return env, nil
		}
		return filepath.Join(env, "config.yaml"), nil
	}

	dir, err := ConfigDir("")
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// InitConfigPath resolves where "fleetkeeper init" should write config.
// Order: explicit override, FLEETKEEPER_CONFIG, then local dotfile in cwd.
func InitConfigPath(override, cwd string) (string, error) {
	if override != "" || os.Getenv(EnvConfigPath) != "" {
		return ConfigPath(override)
	}

	if strings.TrimSpace(cwd) == "" {
		var err error
		cwd, err = os.Getwd()
		if err != nil {
			return "", err
		}
	}
	return filepath.Join(cwd, LocalConfigFilename), nil
}

// ResolveConfigPath resolves config for runtime commands.
// Order: explicit override, FLEETKEEPER_CONFIG, nearest local dotfile in
// cwd/parents, then global platform config path.
func ResolveConfigPath(override, cwd string) (string, error) {
	if override != "" || os.Getenv(EnvConfigPath) != "" {
		return ConfigPath(override)
	}

	if strings.TrimSpace(cwd) == "" {
		var err error
		cwd, err = os.Getwd()
		if err != nil {
			return "", err
		}
	}

	localPath, err := FindNearestConfigPath(cwd)
	if err != nil {
		return "", err
	}
	if localPath != "" {
		return localPath, nil
	}

	return ConfigPath("")
}

// FindNearestConfigPath searches cwd and each parent directory for
// .fleetkeeper.yaml. It returns an empty string when no local config
// file is found.
func FindNearestConfigPath(cwd string) (string, error) {
	dir := cwd
	for {
		candidate := filepath.Join(dir, LocalConfigFilename)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		} else if err != nil && !os.IsNotExist(err) {
			return "", err
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// Load reads the config file from the given path. Keys absent from the
// file keep their DefaultConfig values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigGVK(&cfg)
	if err := validateConfigGVK(&cfg); err != nil {
		return nil, err
	}
	backfillDefaults(&cfg.Defaults)

	return &cfg, nil
}

// ConfigRoot returns the effective default root for a config file path.
func ConfigRoot(configPath string) string {
	if strings.TrimSpace(configPath) == "" {
		return ""
	}
	return filepath.Clean(filepath.Dir(configPath))
}

// EffectiveRoot returns the scan root for commands that were not given
// one: the configured root (resolved against the config file location
// when relative), else the config file's own directory.
func EffectiveRoot(configPath string, cfg *Config) string {
	if cfg != nil {
		root := strings.TrimSpace(cfg.Root)
		if root != "" {
			if filepath.IsAbs(root) {
				return filepath.Clean(root)
			}
			if base := ConfigRoot(configPath); base != "" {
				return filepath.Clean(filepath.Join(base, root))
			}
			return filepath.Clean(root)
		}
	}
	return ConfigRoot(configPath)
}

// Save writes the config to the given path.
func Save(cfg *Config, path string) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	applyConfigGVK(cfg)
	if err := validateConfigGVK(cfg); err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func isConfigFilePath(path string) bool {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, "config.yaml") || strings.HasSuffix(lower, "config.yml") {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// backfillDefaults restores defaults for fields explicitly zeroed in
// the file; a zero concurrency or timeout is never a usable setting.
func backfillDefaults(d *Defaults) {
	def := DefaultConfig().Defaults
	if d.RemoteName == "" {
		d.RemoteName = def.RemoteName
	}
	if d.DiscoveryWorkers == 0 {
		d.DiscoveryWorkers = def.DiscoveryWorkers
	}
	if d.FetchConcurrency == 0 {
		d.FetchConcurrency = def.FetchConcurrency
	}
	if d.PushConcurrency == 0 {
		d.PushConcurrency = def.PushConcurrency
	}
	if d.ScanConcurrency == 0 {
		d.ScanConcurrency = def.ScanConcurrency
	}
	if d.GitTimeoutSeconds == 0 {
		d.GitTimeoutSeconds = def.GitTimeoutSeconds
	}
	if d.ScanTimeoutSeconds == 0 {
		d.ScanTimeoutSeconds = def.ScanTimeoutSeconds
	}
	if d.MaxDepth == 0 {
		d.MaxDepth = def.MaxDepth
	}
	if d.SubrepoDepth == 0 {
		d.SubrepoDepth = def.SubrepoDepth
	}
}

func applyConfigGVK(cfg *Config) {
	if cfg == nil {
		return
	}
	if strings.TrimSpace(cfg.APIVersion) == "" {
		cfg.APIVersion = ConfigAPIVersion
	}
	if strings.TrimSpace(cfg.Kind) == "" {
		cfg.Kind = ConfigKind
	}
}

func validateConfigGVK(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if cfg.APIVersion != ConfigAPIVersion {
		return fmt.Errorf("unsupported config apiVersion %q (expected %q)", cfg.APIVersion, ConfigAPIVersion)
	}
	if cfg.Kind != ConfigKind {
		return fmt.Errorf("unsupported config kind %q (expected %q)", cfg.Kind, ConfigKind)
	}
	return nil
}
