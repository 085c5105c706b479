package archive

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"mediacheck/internal/config"
	"mediacheck/internal/discovery"
	"mediacheck/internal/inventory"
	"mediacheck/internal/logging"
	"mediacheck/internal/remux"
	"mediacheck/internal/services"
)

// Store is the slice of the inventory the reconciler needs.
type Store interface {
	LookupDir(ctx context.Context, path string) (*inventory.DirRecord, error)
	UpsertDir(ctx context.Context, path, archiveRef, subsRef string, action inventory.DirAction) error
}

// Oracle answers whether a directory is still owned by a running transfer.
type Oracle interface {
	IsActive(ctx context.Context, dirPath string) bool
}

// SkipReason explains why a directory was left untouched.
type SkipReason string

const (
	SkipNone     SkipReason = ""
	SkipMerged   SkipReason = "already_merged"
	SkipActive   SkipReason = "active_transfer"
	SkipDisabled SkipReason = "nothing_enabled"
	// SkipExpanded marks an expanded directory in a run that does not merge.
	SkipExpanded SkipReason = "already_decompressed"
)

// Plan is the pure decision for one directory.
type Plan struct {
	Skip       SkipReason
	Decompress bool
	Merge      bool
	// ArchiveRef and SubsRef are the refs the stages start from.
	ArchiveRef string
	SubsRef    string
	// PrimaryDone is set when only the secondary archive is left to expand.
	PrimaryDone bool
}

// PlanDir decides which stages run for a candidate given its stored record.
// Liveness is checked separately because it needs the network.
func PlanDir(cand discovery.Candidate, rec *inventory.DirRecord, decompress, merge bool) Plan {
	plan := Plan{ArchiveRef: cand.ArchiveRef, SubsRef: cand.SubsRef}
	if rec != nil && rec.Terminal() {
		plan.Skip = SkipMerged
		return plan
	}
	if !decompress && !merge {
		plan.Skip = SkipDisabled
		return plan
	}

	resumable := rec != nil && (rec.Expanded() || rec.Action == inventory.DirActionErrorSubs)
	if resumable && rec.ArchiveRef != "" {
		plan.ArchiveRef = rec.ArchiveRef
		plan.SubsRef = rec.SubsRef
	}
	plan.Decompress = decompress && !(rec != nil && rec.Expanded())
	plan.PrimaryDone = rec != nil && rec.Action == inventory.DirActionErrorSubs
	plan.Merge = merge
	if !plan.Decompress && !plan.Merge {
		plan.Skip = SkipExpanded
	}
	return plan
}

// Result describes what happened to one directory.
type Result struct {
	Path       string
	Skipped    SkipReason
	Action     inventory.DirAction
	ArchiveRef string
	SubsRef    string
	Output     string
}

// Summary aggregates Results across a drain.
type Summary struct {
	Processed int
	Skipped   map[SkipReason]int
	ByAction  map[inventory.DirAction]int
}

func (s *Summary) add(r Result) {
	if s.Skipped == nil {
		s.Skipped = make(map[SkipReason]int)
	}
	if s.ByAction == nil {
		s.ByAction = make(map[inventory.DirAction]int)
	}
	if r.Skipped != SkipNone {
		s.Skipped[r.Skipped]++
		return
	}
	s.Processed++
	s.ByAction[r.Action]++
}

// Reconciler drives decompression and remux for archive candidates.
type Reconciler struct {
	store        Store
	oracle       Oracle
	decompressor Decompressor
	muxer        remux.Multiplexer
	decompress   bool
	merge        bool
	outputDir    string
	logger       *slog.Logger
}

// NewReconciler wires a reconciler. A nil oracle treats every directory as
// inactive.
func NewReconciler(cfg *config.Config, store Store, oracle Oracle, decompressor Decompressor, muxer remux.Multiplexer, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		store:        store,
		oracle:       oracle,
		decompressor: decompressor,
		muxer:        muxer,
		decompress:   cfg.Archives.Decompress,
		merge:        cfg.Archives.Merge,
		outputDir:    cfg.Archives.OutputDir,
		logger:       logging.NewComponentLogger(logger, "archive"),
	}
}

// Drain reconciles candidates in order. It stops early only on cancellation
// or an inventory failure.
func (r *Reconciler) Drain(ctx context.Context, candidates []discovery.Candidate) (Summary, error) {
	var summary Summary
	for _, cand := range candidates {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		result, err := r.Process(ctx, cand)
		if err != nil {
			return summary, err
		}
		summary.add(result)
	}
	return summary, nil
}

// Process reconciles one directory. Decompression always completes before a
// remux is attempted, and each stage outcome is recorded before the next one
// starts.
func (r *Reconciler) Process(ctx context.Context, cand discovery.Candidate) (Result, error) {
	ctx = services.WithPath(ctx, cand.Dir)
	logger := logging.WithContext(ctx, r.logger)
	result := Result{Path: cand.Dir}

	rec, err := r.store.LookupDir(ctx, cand.Dir)
	if err != nil {
		return result, err
	}
	plan := PlanDir(cand, rec, r.decompress, r.merge)
	result.ArchiveRef, result.SubsRef = plan.ArchiveRef, plan.SubsRef
	if rec != nil {
		result.Action = rec.Action
	}
	if plan.Skip != SkipNone {
		result.Skipped = plan.Skip
		logger.Debug("directory skipped",
			logging.String(logging.FieldEventType, "dir_skipped"),
			logging.String("reason", string(plan.Skip)),
		)
		return result, nil
	}

	if r.decompress && r.oracle != nil && r.oracle.IsActive(ctx, cand.Dir) {
		result.Skipped = SkipActive
		logger.Info("directory belongs to an active transfer",
			logging.String(logging.FieldEventType, "dir_skipped_active"),
		)
		return result, nil
	}

	if plan.Decompress {
		done, err := r.decompressStage(ctx, logger, plan, &result)
		if err != nil || !done {
			return result, err
		}
	}

	if plan.Merge {
		if err := r.mergeStage(ctx, logger, &result); err != nil {
			return result, err
		}
	}
	return result, nil
}

func (r *Reconciler) decompressStage(ctx context.Context, logger *slog.Logger, plan Plan, result *Result) (bool, error) {
	if !plan.PrimaryDone {
		expansion, outcome, removeErrs := Expand(ctx, r.decompressor, plan.ArchiveRef)
		if outcome.Kind == services.OutcomeCanceled {
			return false, canceled(ctx)
		}
		if !outcome.OK() {
			return false, r.recordFailure(ctx, logger, result, inventory.DirActionErrorDecompress, plan.ArchiveRef, outcome)
		}
		r.logRemoveErrors(logger, removeErrs)
		result.ArchiveRef = expansion.PrimaryMember(result.Path)
	}

	if looksLikeArchiveFile(result.SubsRef) {
		subsArchive := result.SubsRef
		_, outcome, removeErrs := Expand(ctx, r.decompressor, subsArchive)
		if outcome.Kind == services.OutcomeCanceled {
			return false, canceled(ctx)
		}
		if !outcome.OK() {
			return false, r.recordFailure(ctx, logger, result, inventory.DirActionErrorSubs, subsArchive, outcome)
		}
		r.logRemoveErrors(logger, removeErrs)
		result.SubsRef = filepath.Dir(subsArchive)
	}

	result.Action = inventory.DirActionDecompressed
	if err := r.store.UpsertDir(ctx, result.Path, result.ArchiveRef, result.SubsRef, result.Action); err != nil {
		return false, fmt.Errorf("record decompression: %w", err)
	}
	logger.Info("directory decompressed",
		logging.String(logging.FieldEventType, "dir_decompressed"),
		logging.String("archive_ref", result.ArchiveRef),
		logging.String("subs_ref", result.SubsRef),
	)
	return true, nil
}

func (r *Reconciler) mergeStage(ctx context.Context, logger *slog.Logger, result *Result) error {
	output := remux.OutputPath(r.outputDir, result.Path)
	outcome := r.muxer.Merge(ctx, result.Path, result.SubsRef, output)
	if outcome.Kind == services.OutcomeCanceled {
		return canceled(ctx)
	}
	if !outcome.OK() {
		return r.recordFailure(ctx, logger, result, inventory.DirActionErrorMerge, result.Path, outcome)
	}

	result.Action = inventory.DirActionMerged
	result.Output = output
	if err := r.store.UpsertDir(ctx, result.Path, result.ArchiveRef, result.SubsRef, result.Action); err != nil {
		return fmt.Errorf("record merge: %w", err)
	}
	logger.Info("directory merged",
		logging.String(logging.FieldEventType, "dir_merged"),
		logging.String("output", output),
		logging.Duration("duration", outcome.Duration),
	)
	return nil
}

// recordFailure stores a retryable error action. Tool failures never escape
// the reconciler; only the inventory write can fail the run.
func (r *Reconciler) recordFailure(ctx context.Context, logger *slog.Logger, result *Result, action inventory.DirAction, subject string, outcome services.Outcome) error {
	result.Action = action
	if err := r.store.UpsertDir(ctx, result.Path, result.ArchiveRef, result.SubsRef, action); err != nil {
		return fmt.Errorf("record %s: %w", action, err)
	}
	tool := "unrar"
	hint := "test the archive with `unrar t` and re-download damaged volumes"
	if action == inventory.DirActionErrorMerge {
		tool = "mkvmerge"
		hint = "inspect the extracted tracks and mkvmerge output"
	}
	logging.WarnWithContext(logger, "directory stage failed", "dir_"+string(action),
		logging.String("subject", subject),
		logging.String("outcome", string(outcome.Kind)),
		logging.Error(outcome.Error("archive", tool)),
		logging.String(logging.FieldErrorHint, hint),
		logging.String(logging.FieldImpact, "directory will be retried on the next scan"),
	)
	return nil
}

func (r *Reconciler) logRemoveErrors(logger *slog.Logger, errs []error) {
	for _, err := range errs {
		logging.WarnWithContext(logger, "failed to remove consumed archive volume", "archive_cleanup_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the leftover volume manually"),
			logging.String(logging.FieldImpact, "extracted files are kept"),
		)
	}
}

func looksLikeArchiveFile(path string) bool {
	if strings.TrimSpace(path) == "" || !discovery.IsArchiveName(filepath.Base(path)) {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func canceled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return context.Canceled
}
