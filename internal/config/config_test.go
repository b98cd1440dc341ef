package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skaphos/fleetkeeper/internal/config"
)

var _ = Describe("Config", func() {
	It("resolves config path from override directory", func() {
		path, err := config.ConfigPath(filepath.Join("C:", "tmp", "fleetkeeper"))
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(HaveSuffix(filepath.Join("fleetkeeper", "config.yaml")))
	})

	It("resolves config path from override file", func() {
		path, err := config.ConfigPath(filepath.Join("C:", "tmp", "config.yaml"))
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(HaveSuffix(filepath.Join("tmp", "config.yaml")))
	})

	It("resolves config path from env", func() {
		Expect(os.Setenv(config.EnvConfigPath, filepath.Join("C:", "cfg", "config.yaml"))).To(Succeed())
		defer func() { _ = os.Unsetenv(config.EnvConfigPath) }()
		path, err := config.ConfigPath("")
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(HaveSuffix(filepath.Join("cfg", "config.yaml")))
	})

	It("resolves init path to local dotfile by default", func() {
		dir := GinkgoT().TempDir()
		path, err := config.InitConfigPath("", dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(filepath.Join(dir, ".fleetkeeper.yaml")))
	})

	It("prefers local dotfile for runtime config resolution", func() {
		dir := GinkgoT().TempDir()
		localPath := filepath.Join(dir, ".fleetkeeper.yaml")
		Expect(os.WriteFile(localPath, []byte("root: repos\n"), 0o644)).To(Succeed())

		path, err := config.ResolveConfigPath("", dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(localPath))
	})

	It("resolves runtime config from nearest parent dotfile", func() {
		dir := GinkgoT().TempDir()
		parentPath := filepath.Join(dir, ".fleetkeeper.yaml")
		Expect(os.WriteFile(parentPath, []byte("root: .\n"), 0o644)).To(Succeed())

		nested := filepath.Join(dir, "a", "b", "c")
		Expect(os.MkdirAll(nested, 0o755)).To(Succeed())

		path, err := config.ResolveConfigPath("", nested)
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(parentPath))
	})

	It("prefers nearer dotfile over farther parent", func() {
		dir := GinkgoT().TempDir()
		parentPath := filepath.Join(dir, ".fleetkeeper.yaml")
		Expect(os.WriteFile(parentPath, []byte("root: .\n"), 0o644)).To(Succeed())

		childDir := filepath.Join(dir, "a", "b")
		Expect(os.MkdirAll(childDir, 0o755)).To(Succeed())
		childPath := filepath.Join(childDir, ".fleetkeeper.yaml")
		Expect(os.WriteFile(childPath, []byte("root: .\n"), 0o644)).To(Succeed())

		nested := filepath.Join(childDir, "c")
		Expect(os.MkdirAll(nested, 0o755)).To(Succeed())

		path, err := config.ResolveConfigPath("", nested)
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(childPath))
	})

	It("saves and loads config with defaults intact", func() {
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, "config.yaml")
		cfg := config.DefaultConfig()
		cfg.Root = filepath.Join(dir, "repos")

		Expect(config.Save(&cfg, path)).To(Succeed())
		loaded, err := config.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.Root).To(Equal(cfg.Root))
		Expect(loaded.Defaults.RemoteName).To(Equal("origin"))
		Expect(loaded.SkipDirs).To(ContainElement("node_modules"))
	})

	It("keeps defaults for keys absent from the file", func() {
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, "config.yaml")
		minimal := "apiVersion: skaphos.io/fleetkeeper/v1beta1\nkind: FleetKeeperConfig\n"
		Expect(os.WriteFile(path, []byte(minimal), 0o644)).To(Succeed())

		loaded, err := config.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.Defaults.FetchConcurrency).To(Equal(16))
		Expect(loaded.Defaults.PushConcurrency).To(Equal(4))
		Expect(loaded.Defaults.GitTimeout()).To(Equal(180 * time.Second))
		Expect(loaded.Defaults.ScanTimeout()).To(Equal(300 * time.Second))
		Expect(loaded.Defaults.SubrepoDepth).To(Equal(5))
	})

	It("fills an absent GVK and rejects a wrong one", func() {
		dir := GinkgoT().TempDir()

		bare := filepath.Join(dir, "bare.yaml")
		Expect(os.WriteFile(bare, []byte("root: /code\n"), 0o644)).To(Succeed())
		loaded, err := config.Load(bare)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.APIVersion).To(Equal(config.ConfigAPIVersion))
		Expect(loaded.Kind).To(Equal(config.ConfigKind))

		wrong := filepath.Join(dir, "wrong.yaml")
		Expect(os.WriteFile(wrong, []byte("apiVersion: example/v9\n"), 0o644)).To(Succeed())
		_, err = config.Load(wrong)
		Expect(err).To(MatchError(ContainSubstring("unsupported config apiVersion")))
	})

	It("derives the effective root from the config location", func() {
		configPath := filepath.Join("/fleet", "ops", ".fleetkeeper.yaml")

		Expect(config.EffectiveRoot(configPath, nil)).To(Equal(filepath.Join("/fleet", "ops")))

		cfg := config.DefaultConfig()
		cfg.Root = "repos"
		Expect(config.EffectiveRoot(configPath, &cfg)).To(Equal(filepath.Join("/fleet", "ops", "repos")))

		cfg.Root = filepath.Join("/srv", "fleet")
		Expect(config.EffectiveRoot(configPath, &cfg)).To(Equal(filepath.Join("/srv", "fleet")))
	})
})
