package validation

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"mediacheck/internal/config"
	"mediacheck/internal/fileutil"
	"mediacheck/internal/inventory"
	"mediacheck/internal/logging"
	"mediacheck/internal/services"
)

// Store is the slice of the inventory the engine needs.
type Store interface {
	LookupFile(ctx context.Context, path string) (*inventory.FileRecord, error)
	UpsertFile(ctx context.Context, path string, status inventory.Status, action inventory.FileAction) error
}

// Result describes what happened to one file.
type Result struct {
	Path       string
	FinalPath  string
	Skipped    SkipReason
	Status     inventory.Status
	Action     inventory.FileAction
	Remediated bool
	// RemediationErr is set when delete/move was attempted and failed.
	RemediationErr error
}

// Summary aggregates Results across a drain.
type Summary struct {
	Checked           int
	Skipped           int
	ByStatus          map[inventory.Status]int
	Deleted           int
	Moved             int
	RemediationFailed int
}

func (s *Summary) add(r Result) {
	if s.ByStatus == nil {
		s.ByStatus = make(map[inventory.Status]int)
	}
	if r.Skipped != SkipNone {
		s.Skipped++
		return
	}
	s.Checked++
	s.ByStatus[r.Status]++
	switch r.Action {
	case inventory.FileActionDeleted:
		s.Deleted++
	case inventory.FileActionMoved:
		s.Moved++
	}
	if r.RemediationErr != nil {
		s.RemediationFailed++
	}
}

// Engine validates files and records outcomes.
type Engine struct {
	store     Store
	validator Validator
	action    string
	moveDest  string
	force     bool
	logger    *slog.Logger
}

// NewEngine wires an engine from scan settings.
func NewEngine(cfg *config.Config, store Store, validator Validator, logger *slog.Logger) *Engine {
	return &Engine{
		store:     store,
		validator: validator,
		action:    cfg.Scan.Action,
		moveDest:  cfg.Scan.MoveDestination,
		force:     cfg.Scan.Force,
		logger:    logging.NewComponentLogger(logger, "validation"),
	}
}

// Drain processes paths in order. It stops early only on cancellation or an
// inventory failure; per-file tool failures are recorded and do not stop it.
func (e *Engine) Drain(ctx context.Context, paths []string) (Summary, error) {
	var summary Summary
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		result, err := e.Process(ctx, path)
		if err != nil {
			return summary, err
		}
		summary.add(result)
	}
	return summary, nil
}

// Process handles one file: lookup, decide, validate, remediate, and exactly
// one upsert. A cancelled validator run produces no write.
func (e *Engine) Process(ctx context.Context, path string) (Result, error) {
	ctx = services.WithPath(ctx, path)
	logger := logging.WithContext(ctx, e.logger)
	result := Result{Path: path, FinalPath: path}

	rec, err := e.store.LookupFile(ctx, path)
	if err != nil {
		return result, err
	}
	if reason := Decide(rec, e.force); reason != SkipNone {
		result.Skipped = reason
		result.Status = rec.Status
		result.Action = rec.Action
		logger.Debug("file skipped",
			logging.String(logging.FieldEventType, "file_skipped"),
			logging.String("reason", string(reason)),
			logging.String("status", string(rec.Status)),
		)
		return result, nil
	}

	outcome := e.validator.Validate(ctx, path)
	if outcome.Kind == services.OutcomeCanceled {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		return result, context.Canceled
	}
	result.Status = StatusFor(outcome)

	switch Remediation(result.Status, e.action) {
	case config.ActionDelete:
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			result.RemediationErr = err
		} else {
			result.Action = inventory.FileActionDeleted
		}
	case config.ActionMove:
		target, err := fileutil.MoveFile(path, e.moveDest)
		if err != nil {
			result.RemediationErr = err
		} else {
			result.FinalPath = target
			result.Action = inventory.FileActionMoved
		}
	}
	result.Remediated = result.Action != inventory.FileActionNone

	if err := e.store.UpsertFile(ctx, result.FinalPath, result.Status, result.Action); err != nil {
		return result, fmt.Errorf("record validation result: %w", err)
	}

	e.logResult(logger, result, outcome)
	return result, nil
}

func (e *Engine) logResult(logger *slog.Logger, result Result, outcome services.Outcome) {
	if result.RemediationErr != nil {
		logging.ErrorWithContext(logger, "remediation failed", "remediation_failed",
			logging.String("status", string(result.Status)),
			logging.String("remediation", e.action),
			logging.Error(result.RemediationErr),
			logging.String(logging.FieldErrorHint, "check permissions on the file and destination"),
		)
	}

	switch result.Action {
	case inventory.FileActionDeleted:
		logger.Info("invalid file deleted",
			logging.String(logging.FieldEventType, "file_deleted"),
			logging.String("status", string(result.Status)),
		)
		return
	case inventory.FileActionMoved:
		logger.Info("invalid file moved",
			logging.String(logging.FieldEventType, "file_moved"),
			logging.String("status", string(result.Status)),
			logging.String("destination", result.FinalPath),
		)
		return
	}

	switch result.Status {
	case inventory.StatusOK:
		logger.Info("file valid",
			logging.String(logging.FieldEventType, "file_valid"),
			logging.Duration("duration", outcome.Duration),
		)
	case inventory.StatusError:
		logging.WarnWithContext(logger, "validator could not run", "validator_error",
			logging.Error(outcome.Error("validation", "ffmpeg")),
			logging.String(logging.FieldErrorHint, "run `mediacheck deps` to verify ffmpeg"),
			logging.String(logging.FieldImpact, "file recorded as error and will be retried"),
		)
	default:
		logging.WarnWithContext(logger, "file failed validation", "file_"+string(result.Status),
			logging.String("status", string(result.Status)),
			logging.Error(outcome.Error("validation", "ffmpeg")),
			logging.String(logging.FieldErrorHint, "inspect the file or enable a remediation action"),
			logging.String(logging.FieldImpact, "file recorded without remediation"),
		)
	}
}
