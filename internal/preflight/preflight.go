package preflight

import (
	"context"
	"fmt"
	"strings"

	"mediacheck/internal/config"
	"mediacheck/internal/deps"
	"mediacheck/internal/services"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	for _, status := range CheckSystemDeps(cfg) {
		r := Result{Name: status.Name, Passed: status.Available, Optional: status.Optional, Detail: status.Detail}
		if status.Available {
			r.Detail = status.Path
		}
		results = append(results, r)
	}

	// Move destination must already exist.
	if cfg.Scan.Action == config.ActionMove {
		results = append(results, CheckDirectoryAccess("Move destination", cfg.Scan.MoveDestination))
	}

	// Remux output directory (when configured)
	if cfg.Archives.Merge && cfg.Archives.OutputDir != "" {
		results = append(results, CheckDirectoryAccess("Remux output directory", cfg.Archives.OutputDir))
	}

	if cfg.Transmission.Enabled && cfg.Archives.Decompress {
		results = append(results, CheckTransmission(ctx, cfg))
	}

	return results
}

// Err folds failed required checks into one configuration error, or nil.
func Err(results []Result) error {
	var failed []string
	for _, r := range results {
		if r.Passed || r.Optional {
			continue
		}
		failed = append(failed, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}
	if len(failed) == 0 {
		return nil
	}
	return services.Wrap(services.ErrConfiguration, "preflight", "check", strings.Join(failed, "; "), nil)
}

// DepsErr reports missing required tools as a configuration error.
func DepsErr(statuses []deps.Status) error {
	missing := deps.Missing(statuses)
	if len(missing) == 0 {
		return nil
	}
	names := make([]string, 0, len(missing))
	for _, m := range missing {
		names = append(names, m.Name)
	}
	return services.Wrap(services.ErrConfiguration, "preflight", "deps", "missing "+strings.Join(names, ", "), nil)
}
