package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"mediacheck/internal/archive"
	"mediacheck/internal/config"
	"mediacheck/internal/discovery"
	"mediacheck/internal/inventory"
	"mediacheck/internal/logging"
	"mediacheck/internal/metrics"
	"mediacheck/internal/preflight"
	"mediacheck/internal/remux"
	"mediacheck/internal/services"
	"mediacheck/internal/transfer"
	"mediacheck/internal/validation"
)

// Oracle is the liveness oracle as the run drives it.
type Oracle interface {
	archive.Oracle
	Connect(ctx context.Context) error
}

// Options overrides the collaborators a run builds from config. Zero values
// select the real tools.
type Options struct {
	Validator     validation.Validator
	Decompressor  archive.Decompressor
	Multiplexer   remux.Multiplexer
	Oracle        Oracle
	Runner        services.Runner
	SkipPreflight bool
}

// Summary reports what one run did.
type Summary struct {
	RunID    string
	Root     string
	Files    validation.Summary
	Dirs     archive.Summary
	Purged   int
	Ignored  int
	Resumed  int
	Duration time.Duration
}

// Run executes one scan of root. Configuration and preflight problems are
// returned before the inventory is opened. The inventory is closed on every
// path, cancellation included.
func Run(ctx context.Context, cfg *config.Config, root string, logger *slog.Logger, opts Options) (summary Summary, err error) {
	if cfg == nil {
		return summary, services.Wrap(services.ErrConfiguration, "workflow", "run", "config is required", nil)
	}
	start := time.Now()
	summary.RunID = uuid.NewString()
	ctx = services.WithRunID(ctx, summary.RunID)
	runLogger := logging.WithContext(ctx, logging.NewComponentLogger(logger, "workflow"))

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return summary, services.Wrap(services.ErrConfiguration, "workflow", "resolve root", root, err)
	}
	summary.Root = absRoot
	if info, statErr := os.Stat(absRoot); statErr != nil || !info.IsDir() {
		return summary, services.Wrap(services.ErrConfiguration, "workflow", "resolve root", absRoot+" is not a readable directory", statErr)
	}

	if !opts.SkipPreflight {
		if err := preflight.Err(preflight.RunAll(ctx, cfg)); err != nil {
			return summary, err
		}
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return summary, services.Wrap(services.ErrConfiguration, "workflow", "prepare directories", "", err)
	}

	store, err := inventory.Open(cfg.Paths.InventoryDB)
	if err != nil {
		if errors.Is(err, inventory.ErrLocked) {
			return summary, services.Wrap(services.ErrConfiguration, "workflow", "open inventory", "another scan holds the inventory", err)
		}
		return summary, fmt.Errorf("open inventory: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			runLogger.Error("inventory close failed", logging.Error(closeErr))
			err = errors.Join(err, fmt.Errorf("close inventory: %w", closeErr))
		}
	}()

	runLogger.Info("scan started",
		logging.String(logging.FieldEventType, "scan_started"),
		logging.String(logging.FieldPath, absRoot),
		logging.String("inventory", store.Path()),
		logging.String("action", cfg.Scan.Action),
		logging.Bool("force", cfg.Scan.Force),
		logging.Bool("decompress", cfg.Archives.Decompress),
		logging.Bool("merge", cfg.Archives.Merge),
	)

	walked, err := discovery.NewWalker(cfg, logger).Enqueue(ctx, absRoot)
	if err != nil {
		return summary, fmt.Errorf("discover: %w", err)
	}
	summary.Purged = len(walked.Purged)
	summary.Ignored = walked.Skipped

	dirs := walked.Dirs
	if cfg.Archives.Decompress || cfg.Archives.Merge {
		resumed, err := resumableDirs(ctx, store, absRoot, dirs, resumableActions(cfg))
		if err != nil {
			return summary, err
		}
		summary.Resumed = len(resumed)
		dirs = append(dirs, resumed...)
	}

	validator := opts.Validator
	if validator == nil {
		validator = validation.NewFFmpegValidator(cfg, opts.Runner)
	}
	summary.Files, err = validation.NewEngine(cfg, store, validator, logger).Drain(ctx, walked.Files)
	if err != nil {
		return summary, err
	}

	if len(dirs) > 0 {
		summary.Dirs, err = reconcile(ctx, cfg, store, logger, opts, dirs)
		if err != nil {
			return summary, err
		}
	}

	summary.Duration = time.Since(start)
	writeMetrics(cfg, runLogger, summary)
	runLogger.Info("scan complete",
		logging.String(logging.FieldEventType, "scan_complete"),
		logging.Int("checked", summary.Files.Checked),
		logging.Int("skipped", summary.Files.Skipped),
		logging.Int("deleted", summary.Files.Deleted),
		logging.Int("moved", summary.Files.Moved),
		logging.Int("dirs", summary.Dirs.Processed),
		logging.Duration("duration", summary.Duration),
	)
	return summary, nil
}

func reconcile(ctx context.Context, cfg *config.Config, store *inventory.Store, logger *slog.Logger, opts Options, dirs []discovery.Candidate) (archive.Summary, error) {
	oracle := opts.Oracle
	if oracle == nil {
		oracle = transfer.NewOracle(cfg, logger)
	}
	if cfg.Archives.Decompress {
		// Failure is logged by the oracle, which then answers inactive.
		_ = oracle.Connect(ctx)
	}
	decompressor := opts.Decompressor
	if decompressor == nil {
		decompressor = archive.NewUnrarDecompressor(cfg, opts.Runner)
	}
	muxer := opts.Multiplexer
	if muxer == nil {
		muxer = remux.NewEngine(cfg, opts.Runner, logger)
	}
	return archive.NewReconciler(cfg, store, oracle, decompressor, muxer, logger).Drain(ctx, dirs)
}

// resumableActions lists the stored dir actions an enabled stage can pick up.
func resumableActions(cfg *config.Config) []inventory.DirAction {
	var actions []inventory.DirAction
	if cfg.Archives.Decompress {
		actions = append(actions, inventory.DirActionErrorSubs)
	}
	if cfg.Archives.Merge {
		actions = append(actions, inventory.DirActionDecompressed, inventory.DirActionErrorMerge)
	}
	return actions
}

// resumableDirs returns stored directories under root that stopped part way
// with one of actions and are not already queued.
func resumableDirs(ctx context.Context, store *inventory.Store, root string, queued []discovery.Candidate, actions []inventory.DirAction) ([]discovery.Candidate, error) {
	seen := make(map[string]struct{}, len(queued))
	for _, c := range queued {
		seen[c.Dir] = struct{}{}
	}
	var out []discovery.Candidate
	for _, action := range actions {
		records, err := store.ListDirs(ctx, action)
		if err != nil {
			return nil, fmt.Errorf("list resumable directories: %w", err)
		}
		for _, rec := range records {
			if _, dup := seen[rec.Path]; dup || !within(root, rec.Path) {
				continue
			}
			if info, err := os.Stat(rec.Path); err != nil || !info.IsDir() {
				continue
			}
			seen[rec.Path] = struct{}{}
			out = append(out, discovery.Candidate{Dir: rec.Path, ArchiveRef: rec.ArchiveRef, SubsRef: rec.SubsRef})
		}
	}
	return out, nil
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func writeMetrics(cfg *config.Config, logger *slog.Logger, summary Summary) {
	if strings.TrimSpace(cfg.Metrics.Textfile) == "" {
		return
	}
	rec := metrics.NewRecorder()
	rec.ObserveFiles(summary.Files)
	rec.ObserveDirs(summary.Dirs)
	rec.ObservePurged(summary.Purged)
	rec.ObserveRun(summary.Duration, time.Now())
	if err := rec.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		logging.WarnWithContext(logger, "metrics export failed", "metrics_export_failed",
			logging.String(logging.FieldPath, cfg.Metrics.Textfile),
			logging.Error(err),
			logging.String(logging.FieldImpact, "scan results are still recorded in the inventory"),
		)
	}
}
