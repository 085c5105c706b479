package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"mediacheck/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config rooted in a unique temp directory. The inventory
// lives under <base>/state and the scan root is expected under <base>/media.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.InventoryDB = filepath.Join(base, "state", "inventory.db")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Tools.ValidateTimeout = 5
	cfgVal.Tools.DecompressTimeout = 5
	cfgVal.Tools.MergeTimeout = 5

	builder := &configBuilder{t: t, baseDir: base, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.Finalize(); err != nil {
		t.Fatalf("finalize test config: %v", err)
	}
	return builder.cfg
}

// WithMoveDestination enables move remediation into <base>/quarantine.
func WithMoveDestination() ConfigOption {
	return func(b *configBuilder) {
		dest := filepath.Join(b.baseDir, "quarantine")
		if err := os.MkdirAll(dest, 0o755); err != nil {
			b.t.Fatalf("mkdir quarantine: %v", err)
		}
		b.cfg.Scan.Action = config.ActionMove
		b.cfg.Scan.MoveDestination = dest
	}
}

// WithArchives enables decompression and optionally remuxing.
func WithArchives(merge bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Archives.Decompress = true
		b.cfg.Archives.Merge = merge
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, every external tool is stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "unrar", "mkvmerge"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(filepath.Dir(cfg.Paths.InventoryDB))
}

// MediaDir returns (creating) the scan root under the config's base directory.
func MediaDir(t testing.TB, cfg *config.Config) string {
	t.Helper()
	dir := filepath.Join(BaseDir(cfg), "media")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir media dir: %v", err)
	}
	return dir
}
