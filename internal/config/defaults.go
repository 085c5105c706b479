package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

const (
	defaultAction            = ActionNone
	defaultToolTimeout       = 900
	defaultFFmpegBinary      = "ffmpeg"
	defaultUnrarBinary       = "unrar"
	defaultMkvmergeBinary    = "mkvmerge"
	defaultTransmissionHost  = "localhost"
	defaultTransmissionPort  = 9091
	defaultTransmissionPath  = "/transmission/rpc"
	defaultTransmissionWait  = 10
	defaultTransmissionCache = 30
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

var (
	defaultExtensions         = []string{"mkv", "m4v", "avi", "mov", "avchd", "mpeg", "mp4", "wmv"}
	defaultPurgePatterns      = []string{".DS_Store", "._*", "Thumbs.db", "desktop.ini"}
	defaultMediaExtensions    = []string{"mkv", "mp4", "m4v", "avi", "mov", "ts", "m2ts", "wmv", "mpeg", "mpg"}
	defaultSubtitleExtensions = []string{"srt", "sub", "idx", "ass", "ssa", "sup", "vtt"}
)

func defaultDataDir() string {
	xdg.Reload()
	return filepath.Join(xdg.DataHome, "mediacheck")
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	dataDir := defaultDataDir()
	return Config{
		Paths: Paths{
			InventoryDB: filepath.Join(dataDir, "inventory.db"),
			LogDir:      filepath.Join(dataDir, "logs"),
		},
		Scan: Scan{
			Extensions:    append([]string(nil), defaultExtensions...),
			Action:        defaultAction,
			PurgePatterns: append([]string(nil), defaultPurgePatterns...),
		},
		Archives: Archives{
			MediaExtensions:    append([]string(nil), defaultMediaExtensions...),
			SubtitleExtensions: append([]string(nil), defaultSubtitleExtensions...),
		},
		Tools: Tools{
			FFmpeg:            defaultFFmpegBinary,
			Unrar:             defaultUnrarBinary,
			Mkvmerge:          defaultMkvmergeBinary,
			ValidateTimeout:   defaultToolTimeout,
			DecompressTimeout: defaultToolTimeout,
			MergeTimeout:      defaultToolTimeout,
		},
		Transmission: Transmission{
			Host:            defaultTransmissionHost,
			Port:            defaultTransmissionPort,
			RPCPath:         defaultTransmissionPath,
			TimeoutSeconds:  defaultTransmissionWait,
			CacheTTLSeconds: defaultTransmissionCache,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
