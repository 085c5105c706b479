package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateScan(); err != nil {
		return err
	}
	if err := c.validateTools(); err != nil {
		return err
	}
	if err := c.validateTransmission(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateScan() error {
	switch c.Scan.Action {
	case ActionNone, ActionDelete:
	case ActionMove:
		if strings.TrimSpace(c.Scan.MoveDestination) == "" {
			return errors.New("scan.move_destination must be set when scan.action is \"move\"")
		}
	default:
		return fmt.Errorf("scan.action: unsupported value %q (expected none, delete, or move)", c.Scan.Action)
	}
	for _, pattern := range c.Scan.PurgePatterns {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("scan.purge_patterns: invalid pattern %q: %w", pattern, err)
		}
	}
	return nil
}

func (c *Config) validateTools() error {
	return ensurePositiveMap(map[string]int{
		"tools.validate_timeout":   c.Tools.ValidateTimeout,
		"tools.decompress_timeout": c.Tools.DecompressTimeout,
		"tools.merge_timeout":      c.Tools.MergeTimeout,
	})
}

func (c *Config) validateTransmission() error {
	if !c.Transmission.Enabled {
		return nil
	}
	if c.Transmission.Port <= 0 || c.Transmission.Port > 65535 {
		return fmt.Errorf("transmission.port must be between 1 and 65535, got %d", c.Transmission.Port)
	}
	return ensurePositiveMap(map[string]int{
		"transmission.timeout_seconds": c.Transmission.TimeoutSeconds,
	})
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive (seconds)", key)
		}
	}
	return nil
}
