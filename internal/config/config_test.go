package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"mediacheck/internal/config"
)

func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("XDG_DATA_HOME", "")
	t.Setenv("TRANSMISSION_USERNAME", "")
	t.Setenv("TRANSMISSION_PASSWORD", "")
	os.Unsetenv("TRANSMISSION_USERNAME")
	os.Unsetenv("TRANSMISSION_PASSWORD")
	return home
}

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	home := isolateHome(t)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantDB := filepath.Join(home, ".local", "share", "mediacheck", "inventory.db")
	if cfg.Paths.InventoryDB != wantDB {
		t.Fatalf("unexpected inventory db: got %q want %q", cfg.Paths.InventoryDB, wantDB)
	}
	if cfg.Scan.Action != config.ActionNone {
		t.Fatalf("expected default action none, got %q", cfg.Scan.Action)
	}
	if cfg.Transmission.Enabled {
		t.Fatal("expected transmission disabled by default")
	}
	if cfg.ValidateTimeout().Seconds() != 900 {
		t.Fatalf("unexpected validate timeout: %v", cfg.ValidateTimeout())
	}
	if got := cfg.TransmissionEndpoint(); got != "http://localhost:9091/transmission/rpc" {
		t.Fatalf("unexpected endpoint: %q", got)
	}
	if _, ok := cfg.ExtensionSet()["mkv"]; !ok {
		t.Fatal("expected mkv in default extension set")
	}
}

func TestLoadCustomConfigNormalizesValues(t *testing.T) {
	home := isolateHome(t)
	t.Setenv("TRANSMISSION_PASSWORD", "from-env")

	dest := filepath.Join(home, "quarantine")
	configPath := filepath.Join(home, "config.toml")
	content := `[paths]
inventory_db = "~/state/inv.db"

[scan]
extensions = [".MKV", "mp4", "mkv", " "]
action = "MOVE"
move_destination = "~/quarantine"
purge_patterns = [" .DS_Store ", ""]

[transmission]
enabled = true
host = " seedbox "
port = 9092
rpc_path = "rpc"

[logging]
format = "JSON"
level = "DEBUG"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected custom config to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Paths.InventoryDB != filepath.Join(home, "state", "inv.db") {
		t.Fatalf("unexpected inventory db: %q", cfg.Paths.InventoryDB)
	}
	if strings.Join(cfg.Scan.Extensions, ",") != "mkv,mp4" {
		t.Fatalf("unexpected extensions: %v", cfg.Scan.Extensions)
	}
	if cfg.Scan.Action != config.ActionMove || cfg.Scan.MoveDestination != dest {
		t.Fatalf("unexpected action/destination: %q %q", cfg.Scan.Action, cfg.Scan.MoveDestination)
	}
	if len(cfg.Scan.PurgePatterns) != 1 || cfg.Scan.PurgePatterns[0] != ".DS_Store" {
		t.Fatalf("unexpected purge patterns: %v", cfg.Scan.PurgePatterns)
	}
	if cfg.Transmission.Password != "from-env" {
		t.Fatalf("expected password from env, got %q", cfg.Transmission.Password)
	}
	if got := cfg.TransmissionEndpoint(); got != "http://seedbox:9092/rpc" {
		t.Fatalf("unexpected endpoint: %q", got)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	isolateHome(t)

	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"unknown action", func(c *config.Config) { c.Scan.Action = "shred" }, "scan.action"},
		{"move without destination", func(c *config.Config) { c.Scan.Action = config.ActionMove }, "move_destination"},
		{"zero validate timeout", func(c *config.Config) { c.Tools.ValidateTimeout = 0 }, "tools.validate_timeout"},
		{"negative merge timeout", func(c *config.Config) { c.Tools.MergeTimeout = -1 }, "tools.merge_timeout"},
		{"bad port", func(c *config.Config) {
			c.Transmission.Enabled = true
			c.Transmission.Port = 70000
		}, "transmission.port"},
		{"bad purge pattern", func(c *config.Config) { c.Scan.PurgePatterns = []string{"[x"} }, "purge_patterns"},
		{"bad log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Finalize()
			if err == nil {
				t.Fatalf("expected error containing %q", tc.want)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestDisabledTransmissionSkipsPortCheck(t *testing.T) {
	isolateHome(t)
	cfg := config.Default()
	cfg.Transmission.Port = 0
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("expected disabled transmission to skip port validation, got %v", err)
	}
}

func TestCreateSampleRoundTripsThroughLoad(t *testing.T) {
	home := isolateHome(t)
	path := filepath.Join(home, "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		t.Fatalf("sample is not valid TOML: %v", err)
	}
	for _, section := range []string{"paths", "scan", "archives", "tools", "transmission", "logging", "metrics"} {
		if _, ok := raw[section]; !ok {
			t.Fatalf("sample missing [%s] section", section)
		}
	}

	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("Load(sample) returned error: %v", err)
	}
}

func TestEnsureDirectoriesCreatesInventoryParent(t *testing.T) {
	home := isolateHome(t)
	cfg := config.Default()
	cfg.Paths.InventoryDB = filepath.Join(home, "a", "b", "inv.db")
	cfg.Paths.LogDir = filepath.Join(home, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{filepath.Join(home, "a", "b"), cfg.Paths.LogDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q: %v", dir, err)
		}
	}
}
