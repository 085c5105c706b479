package remux

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"mediacheck/internal/config"
	"mediacheck/internal/logging"
	"mediacheck/internal/services"
)

// ErrNoMediaTracks is reported when the directory holds nothing to remux.
var ErrNoMediaTracks = errors.New("no media tracks found")

// mkvmergeWarningExit means mkvmerge finished but printed warnings.
const mkvmergeWarningExit = 1

// Multiplexer merges a release directory into a single container.
type Multiplexer interface {
	Merge(ctx context.Context, dirPath, subsPath, outputPath string) services.Outcome
}

// Engine drives mkvmerge.
type Engine struct {
	Binary  string
	Timeout time.Duration
	Runner  services.Runner

	mediaExt map[string]struct{}
	subsExt  map[string]struct{}
	logger   *slog.Logger
}

// NewEngine builds a remux engine from archive and tool settings. A nil
// runner uses services.NewCommandRunner.
func NewEngine(cfg *config.Config, runner services.Runner, logger *slog.Logger) *Engine {
	if runner == nil {
		runner = services.NewCommandRunner()
	}
	return &Engine{
		Binary:   cfg.Tools.Mkvmerge,
		Timeout:  cfg.MergeTimeout(),
		Runner:   runner,
		mediaExt: toSet(cfg.Archives.MediaExtensions),
		subsExt:  toSet(cfg.Archives.SubtitleExtensions),
		logger:   logging.NewComponentLogger(logger, "remux"),
	}
}

// Tracks lists the inputs for one merge.
type Tracks struct {
	Media     []string
	Subtitles []string
}

// SelectTracks picks media files directly inside dirPath and subtitle files
// inside subsPath (or subsPath itself when it is a file). The output file,
// leftover temp files, and sample clips are excluded.
func (e *Engine) SelectTracks(dirPath, subsPath, outputPath string) (Tracks, error) {
	var tracks Tracks

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return tracks, fmt.Errorf("list media directory: %w", err)
	}
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()
		full := filepath.Join(dirPath, name)
		if full == outputPath || strings.HasPrefix(name, ".mux-") || isSample(name) {
			continue
		}
		if _, ok := e.mediaExt[extension(name)]; ok {
			tracks.Media = append(tracks.Media, full)
		}
	}

	if strings.TrimSpace(subsPath) != "" {
		subs, err := e.subtitleFiles(subsPath)
		if err != nil {
			return tracks, err
		}
		tracks.Subtitles = subs
	}

	sort.Strings(tracks.Media)
	sort.Strings(tracks.Subtitles)
	return tracks, nil
}

func (e *Engine) subtitleFiles(subsPath string) ([]string, error) {
	info, err := os.Stat(subsPath)
	if err != nil {
		return nil, fmt.Errorf("stat subtitles: %w", err)
	}

	var candidates []string
	if info.IsDir() {
		entries, err := os.ReadDir(subsPath)
		if err != nil {
			return nil, fmt.Errorf("list subtitles: %w", err)
		}
		for _, entry := range entries {
			if entry.Type().IsRegular() {
				candidates = append(candidates, filepath.Join(subsPath, entry.Name()))
			}
		}
	} else {
		candidates = []string{subsPath}
	}

	// VobSub pairs are opened through the .idx; mkvmerge reads the .sub itself.
	idx := make(map[string]struct{})
	for _, c := range candidates {
		if extension(c) == "idx" {
			idx[strings.TrimSuffix(c, filepath.Ext(c))] = struct{}{}
		}
	}

	var out []string
	for _, c := range candidates {
		ext := extension(c)
		if _, ok := e.subsExt[ext]; !ok {
			continue
		}
		if ext == "sub" {
			if _, paired := idx[strings.TrimSuffix(c, filepath.Ext(c))]; paired {
				continue
			}
		}
		out = append(out, c)
	}
	return out, nil
}

// Merge selects tracks and runs mkvmerge into a temp file next to
// outputPath, renaming it into place on success. Exit code 1 (warnings) is
// treated as success.
func (e *Engine) Merge(ctx context.Context, dirPath, subsPath, outputPath string) services.Outcome {
	logger := logging.WithContext(services.WithPath(ctx, dirPath), e.logger)

	tracks, err := e.SelectTracks(dirPath, subsPath, outputPath)
	if err != nil {
		return services.Outcome{Kind: services.OutcomeError, Err: err}
	}
	if len(tracks.Media) == 0 {
		return services.Outcome{Kind: services.OutcomeError, Err: services.Wrap(services.ErrValidation, "remux", "select tracks", dirPath, ErrNoMediaTracks)}
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return services.Outcome{Kind: services.OutcomeError, Err: fmt.Errorf("create output directory: %w", err)}
	}

	tmpPath := filepath.Join(filepath.Dir(outputPath), ".mux-"+filepath.Base(outputPath)+".tmp")
	args := BuildArgs(tmpPath, tracks)

	logger.Debug("executing mkvmerge",
		logging.String("output", outputPath),
		logging.Int("media_tracks", len(tracks.Media)),
		logging.Int("subtitle_tracks", len(tracks.Subtitles)),
	)

	outcome := e.Runner.Run(ctx, e.Timeout, e.Binary, args...)
	if outcome.Kind == services.OutcomeFailed && outcome.ExitCode == mkvmergeWarningExit {
		logging.WarnWithContext(logger, "mkvmerge completed with warnings", "remux_warnings",
			logging.String("output_tail", outcome.Output),
			logging.String(logging.FieldImpact, "remuxed file kept"),
			logging.String(logging.FieldErrorHint, "inspect the merged file"),
		)
		outcome.Kind = services.OutcomeOK
		outcome.Err = nil
	}
	if !outcome.OK() {
		_ = os.Remove(tmpPath)
		return outcome
	}

	if _, err := os.Stat(tmpPath); err != nil {
		return services.Outcome{Kind: services.OutcomeError, Err: fmt.Errorf("mkvmerge did not produce output file: %w", err), Duration: outcome.Duration}
	}
	if err := os.Rename(tmpPath, outputPath); err != nil {
		_ = os.Remove(tmpPath)
		return services.Outcome{Kind: services.OutcomeError, Err: fmt.Errorf("move remuxed file into place: %w", err), Duration: outcome.Duration}
	}

	logger.Info("release remuxed",
		logging.String(logging.FieldEventType, "remux_complete"),
		logging.String("output", outputPath),
		logging.Int("media_tracks", len(tracks.Media)),
		logging.Int("subtitle_tracks", len(tracks.Subtitles)),
		logging.Duration("duration", outcome.Duration),
	)
	return outcome
}

// BuildArgs constructs the mkvmerge command line.
func BuildArgs(outputPath string, tracks Tracks) []string {
	args := []string{"--quiet", "-o", outputPath}
	args = append(args, tracks.Media...)
	for _, sub := range tracks.Subtitles {
		args = append(args, "--default-track-flag", "0:no", sub)
	}
	return args
}

func extension(name string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
}

func isSample(name string) bool {
	return strings.Contains(strings.ToLower(name), "sample")
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
