package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Remediation actions applied to files that fail validation.
const (
	ActionNone   = "none"
	ActionDelete = "delete"
	ActionMove   = "move"
)

// Paths contains inventory and log locations.
type Paths struct {
	InventoryDB string `toml:"inventory_db"`
	LogDir      string `toml:"log_dir"`
}

// Scan contains discovery and validation settings.
type Scan struct {
	Extensions      []string `toml:"extensions"`
	Action          string   `toml:"action"`
	MoveDestination string   `toml:"move_destination"`
	Force           bool     `toml:"force"`
	PurgePatterns   []string `toml:"purge_patterns"`
}

// Archives contains directory-level decompression and remux settings.
type Archives struct {
	Decompress         bool     `toml:"decompress"`
	Merge              bool     `toml:"merge"`
	OutputDir          string   `toml:"output_dir"`
	MediaExtensions    []string `toml:"media_extensions"`
	SubtitleExtensions []string `toml:"subtitle_extensions"`
}

// Tools contains external binary names and their timeouts (seconds).
type Tools struct {
	FFmpeg            string `toml:"ffmpeg"`
	Unrar             string `toml:"unrar"`
	Mkvmerge          string `toml:"mkvmerge"`
	ValidateTimeout   int    `toml:"validate_timeout"`
	DecompressTimeout int    `toml:"decompress_timeout"`
	MergeTimeout      int    `toml:"merge_timeout"`
}

// Transmission contains the transfer-client RPC connection used as the liveness oracle.
type Transmission struct {
	Enabled         bool   `toml:"enabled"`
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	RPCPath         string `toml:"rpc_path"`
	Username        string `toml:"username"`
	Password        string `toml:"password"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
	CacheTTLSeconds int    `toml:"cache_ttl_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	File   string `toml:"file"`
}

// Metrics contains optional Prometheus textfile export settings.
type Metrics struct {
	Textfile string `toml:"textfile"`
}

// Config encapsulates all configuration values for mediacheck.
//
// Configuration sections by subsystem:
//   - Paths: inventory database and log directory
//   - Scan: extension allow-list, remediation action, force flag, purge patterns
//   - Archives: decompression and remux toggles plus track classification
//   - Tools: external binaries and per-call timeouts
//   - Transmission: liveness oracle connection
//   - Logging: log format, level, and optional file
//   - Metrics: Prometheus textfile export
type Config struct {
	Paths        Paths        `toml:"paths"`
	Scan         Scan         `toml:"scan"`
	Archives     Archives     `toml:"archives"`
	Tools        Tools        `toml:"tools"`
	Transmission Transmission `toml:"transmission"`
	Logging      Logging      `toml:"logging"`
	Metrics      Metrics      `toml:"metrics"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	xdg.Reload()
	return expandPath(filepath.Join(xdg.ConfigHome, "mediacheck", "config.toml"))
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.Finalize(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// Finalize normalizes and validates the config. Callers that mutate a loaded
// config (CLI overrides) must call it again.
func (c *Config) Finalize() error {
	if err := c.normalize(); err != nil {
		return err
	}
	return c.Validate()
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("mediacheck.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the inventory and log directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{filepath.Dir(c.Paths.InventoryDB), c.Paths.LogDir}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ValidateTimeout returns the per-file validator timeout.
func (c *Config) ValidateTimeout() time.Duration {
	return time.Duration(c.Tools.ValidateTimeout) * time.Second
}

// DecompressTimeout returns the per-archive decompressor timeout.
func (c *Config) DecompressTimeout() time.Duration {
	return time.Duration(c.Tools.DecompressTimeout) * time.Second
}

// MergeTimeout returns the multiplexer timeout.
func (c *Config) MergeTimeout() time.Duration {
	return time.Duration(c.Tools.MergeTimeout) * time.Second
}

// TransmissionEndpoint returns the RPC URL for the transfer client.
func (c *Config) TransmissionEndpoint() string {
	return fmt.Sprintf("http://%s:%d%s", c.Transmission.Host, c.Transmission.Port, c.Transmission.RPCPath)
}

// ExtensionSet returns the scan allow-list as a lookup set.
func (c *Config) ExtensionSet() map[string]struct{} {
	return toSet(c.Scan.Extensions)
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
