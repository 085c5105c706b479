package archive

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"mediacheck/internal/config"
	"mediacheck/internal/discovery"
	"mediacheck/internal/services"
)

// Extraction describes what one decompressor call read and wrote.
type Extraction struct {
	// Consumed lists the archive volume files the call read.
	Consumed []string
	// Members lists the regular files written into the archive's directory.
	Members []string
}

// Decompressor expands one archive in place into its containing directory.
type Decompressor interface {
	Extract(ctx context.Context, archivePath string) (Extraction, services.Outcome)
}

// UnrarDecompressor drives the unrar binary.
type UnrarDecompressor struct {
	Binary  string
	Timeout time.Duration
	Runner  services.Runner
}

// NewUnrarDecompressor builds a decompressor from tool settings. A nil runner
// uses services.NewCommandRunner.
func NewUnrarDecompressor(cfg *config.Config, runner services.Runner) *UnrarDecompressor {
	if runner == nil {
		runner = services.NewCommandRunner()
	}
	return &UnrarDecompressor{
		Binary:  cfg.Tools.Unrar,
		Timeout: cfg.DecompressTimeout(),
		Runner:  runner,
	}
}

// Extract lists the archive, extracts it over any existing files, and reports
// the volumes of its set as consumed.
func (u *UnrarDecompressor) Extract(ctx context.Context, archivePath string) (Extraction, services.Outcome) {
	var result Extraction
	dir := filepath.Dir(archivePath)

	listing := u.Runner.Run(ctx, u.Timeout, u.Binary, "lb", "-p-", archivePath)
	if !listing.OK() {
		return result, listing
	}

	outcome := u.Runner.Run(ctx, u.Timeout, u.Binary, "x", "-o+", "-y", "-p-", "-idq", archivePath, dir+string(filepath.Separator))
	if !outcome.OK() {
		return result, outcome
	}

	for _, line := range strings.Split(listing.Output, "\n") {
		name := strings.TrimSpace(line)
		if name == "" {
			continue
		}
		member := filepath.Join(dir, filepath.FromSlash(name))
		if info, err := os.Stat(member); err == nil && info.Mode().IsRegular() {
			result.Members = append(result.Members, member)
		}
	}
	result.Consumed = VolumeSet(archivePath)
	return result, outcome
}

// VolumeSet returns every file next to archivePath that belongs to the same
// multi-volume set, archivePath included.
func VolumeSet(archivePath string) []string {
	dir := filepath.Dir(archivePath)
	base := filepath.Base(archivePath)
	stem, ok := discovery.VolumeStem(base)
	if !ok {
		return []string{archivePath}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return []string{archivePath}
	}
	volumes := []string{archivePath}
	for _, entry := range entries {
		name := entry.Name()
		if name == base || !entry.Type().IsRegular() {
			continue
		}
		if discovery.IsVolumeOf(name, stem) {
			volumes = append(volumes, filepath.Join(dir, name))
		}
	}
	sort.Strings(volumes[1:])
	return volumes
}
