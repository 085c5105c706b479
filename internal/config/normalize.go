package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeScan(); err != nil {
		return err
	}
	if err := c.normalizeArchives(); err != nil {
		return err
	}
	c.normalizeTools()
	c.normalizeTransmission()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.InventoryDB) == "" {
		c.Paths.InventoryDB = Default().Paths.InventoryDB
	}
	if c.Paths.InventoryDB, err = expandPath(c.Paths.InventoryDB); err != nil {
		return fmt.Errorf("paths.inventory_db: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeScan() error {
	c.Scan.Extensions = normalizeExtensions(c.Scan.Extensions)
	if len(c.Scan.Extensions) == 0 {
		c.Scan.Extensions = append([]string(nil), defaultExtensions...)
	}
	c.Scan.Action = strings.ToLower(strings.TrimSpace(c.Scan.Action))
	if c.Scan.Action == "" {
		c.Scan.Action = ActionNone
	}
	if strings.TrimSpace(c.Scan.MoveDestination) != "" {
		var err error
		if c.Scan.MoveDestination, err = expandPath(strings.TrimSpace(c.Scan.MoveDestination)); err != nil {
			return fmt.Errorf("scan.move_destination: %w", err)
		}
	}
	patterns := make([]string, 0, len(c.Scan.PurgePatterns))
	for _, p := range c.Scan.PurgePatterns {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, p)
		}
	}
	c.Scan.PurgePatterns = patterns
	return nil
}

func (c *Config) normalizeArchives() error {
	c.Archives.MediaExtensions = normalizeExtensions(c.Archives.MediaExtensions)
	if len(c.Archives.MediaExtensions) == 0 {
		c.Archives.MediaExtensions = append([]string(nil), defaultMediaExtensions...)
	}
	c.Archives.SubtitleExtensions = normalizeExtensions(c.Archives.SubtitleExtensions)
	if len(c.Archives.SubtitleExtensions) == 0 {
		c.Archives.SubtitleExtensions = append([]string(nil), defaultSubtitleExtensions...)
	}
	if strings.TrimSpace(c.Archives.OutputDir) != "" {
		var err error
		if c.Archives.OutputDir, err = expandPath(strings.TrimSpace(c.Archives.OutputDir)); err != nil {
			return fmt.Errorf("archives.output_dir: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeTools() {
	c.Tools.FFmpeg = strings.TrimSpace(c.Tools.FFmpeg)
	if c.Tools.FFmpeg == "" {
		c.Tools.FFmpeg = defaultFFmpegBinary
	}
	c.Tools.Unrar = strings.TrimSpace(c.Tools.Unrar)
	if c.Tools.Unrar == "" {
		c.Tools.Unrar = defaultUnrarBinary
	}
	c.Tools.Mkvmerge = strings.TrimSpace(c.Tools.Mkvmerge)
	if c.Tools.Mkvmerge == "" {
		c.Tools.Mkvmerge = defaultMkvmergeBinary
	}
}

func (c *Config) normalizeTransmission() {
	c.Transmission.Host = strings.TrimSpace(c.Transmission.Host)
	if c.Transmission.Host == "" {
		c.Transmission.Host = defaultTransmissionHost
	}
	c.Transmission.RPCPath = strings.TrimSpace(c.Transmission.RPCPath)
	if c.Transmission.RPCPath == "" {
		c.Transmission.RPCPath = defaultTransmissionPath
	}
	if !strings.HasPrefix(c.Transmission.RPCPath, "/") {
		c.Transmission.RPCPath = "/" + c.Transmission.RPCPath
	}
	if c.Transmission.Username == "" {
		if value, ok := os.LookupEnv("TRANSMISSION_USERNAME"); ok {
			c.Transmission.Username = strings.TrimSpace(value)
		}
	}
	if c.Transmission.Password == "" {
		if value, ok := os.LookupEnv("TRANSMISSION_PASSWORD"); ok {
			c.Transmission.Password = value
		}
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.File = strings.TrimSpace(c.Logging.File)
}

// normalizeExtensions lowercases, strips leading dots, and dedupes.
func normalizeExtensions(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		normalized := strings.TrimLeft(strings.ToLower(strings.TrimSpace(v)), ".")
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}
