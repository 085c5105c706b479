package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"mediacheck/internal/archive"
	"mediacheck/internal/validation"
)

// Recorder owns a private registry so repeated runs in one process never
// collide with the default registry.
type Recorder struct {
	registry *prometheus.Registry

	filesChecked  *prometheus.CounterVec
	filesSkipped  *prometheus.CounterVec
	remediations  *prometheus.CounterVec
	remediateFail prometheus.Counter
	dirs          *prometheus.CounterVec
	dirsSkipped   *prometheus.CounterVec
	purged        prometheus.Counter
	runDuration   prometheus.Gauge
	lastRun       prometheus.Gauge
}

// NewRecorder registers every run metric on a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		filesChecked: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mediacheck_files_checked_total",
			Help: "Files passed to the validator, by recorded status.",
		}, []string{"status"}),
		filesSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mediacheck_files_skipped_total",
			Help: "Files skipped because the inventory already settled them.",
		}, []string{"reason"}),
		remediations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mediacheck_remediations_total",
			Help: "Files deleted or moved after failing validation.",
		}, []string{"action"}),
		remediateFail: factory.NewCounter(prometheus.CounterOpts{
			Name: "mediacheck_remediation_failures_total",
			Help: "Delete or move attempts that failed.",
		}),
		dirs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mediacheck_dirs_reconciled_total",
			Help: "Archive directories processed, by resulting action.",
		}, []string{"action"}),
		dirsSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mediacheck_dirs_skipped_total",
			Help: "Archive directories left untouched, by reason.",
		}, []string{"reason"}),
		purged: factory.NewCounter(prometheus.CounterOpts{
			Name: "mediacheck_files_purged_total",
			Help: "OS metadata files removed during discovery.",
		}),
		runDuration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "mediacheck_run_duration_seconds",
			Help: "Wall time of the last scan.",
		}),
		lastRun: factory.NewGauge(prometheus.GaugeOpts{
			Name: "mediacheck_last_run_timestamp_seconds",
			Help: "Unix time the last scan finished.",
		}),
	}
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveFiles adds a validation summary.
func (r *Recorder) ObserveFiles(s validation.Summary) {
	for status, n := range s.ByStatus {
		r.filesChecked.WithLabelValues(string(status)).Add(float64(n))
	}
	if s.Skipped > 0 {
		r.filesSkipped.WithLabelValues("settled").Add(float64(s.Skipped))
	}
	if s.Deleted > 0 {
		r.remediations.WithLabelValues("deleted").Add(float64(s.Deleted))
	}
	if s.Moved > 0 {
		r.remediations.WithLabelValues("moved").Add(float64(s.Moved))
	}
	r.remediateFail.Add(float64(s.RemediationFailed))
}

// ObserveDirs adds a reconciliation summary.
func (r *Recorder) ObserveDirs(s archive.Summary) {
	for action, n := range s.ByAction {
		r.dirs.WithLabelValues(string(action)).Add(float64(n))
	}
	for reason, n := range s.Skipped {
		r.dirsSkipped.WithLabelValues(string(reason)).Add(float64(n))
	}
}

// ObservePurged adds discovery purges.
func (r *Recorder) ObservePurged(n int) {
	r.purged.Add(float64(n))
}

// ObserveRun records the run wall time and completion time.
func (r *Recorder) ObserveRun(duration time.Duration, finished time.Time) {
	r.runDuration.Set(duration.Seconds())
	r.lastRun.Set(float64(finished.Unix()))
}

// WriteTextfile writes every metric to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
