package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mediacheck/internal/archive"
	"mediacheck/internal/config"
	"mediacheck/internal/inventory"
	"mediacheck/internal/logging"
	"mediacheck/internal/services"
	"mediacheck/internal/workflow"
)

type scanFlags struct {
	action     string
	moveDest   string
	force      bool
	decompress bool
	merge      bool
	outputDir  string
	extensions []string
	logLevel   string
	logFormat  string
	metrics    string
}

func newScanCommand(ctx *commandContext) *cobra.Command {
	var flags scanFlags

	cmd := &cobra.Command{
		Use:   "scan <path>",
		Short: "Validate media under path and reconcile archived releases",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := flags.apply(cmd, cfg); err != nil {
				return err
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			summary, err := workflow.Run(runCtx, cfg, args[0], logger, workflow.Options{})
			if err != nil {
				return err
			}
			return printScanSummary(cmd.OutOrStdout(), summary)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.action, "action", "", "Remediation for invalid files: none, delete, or move")
	f.StringVar(&flags.moveDest, "move-dest", "", "Destination directory for --action move")
	f.BoolVar(&flags.force, "force", false, "Re-validate files that already have a settled record")
	f.BoolVar(&flags.decompress, "decompress", false, "Extract archived releases")
	f.BoolVar(&flags.merge, "merge", false, "Remux extracted releases into one container")
	f.StringVar(&flags.outputDir, "output-dir", "", "Directory for remuxed files (default: the release directory)")
	f.StringSliceVar(&flags.extensions, "ext", nil, "File extensions to validate (repeatable or comma separated)")
	f.StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, or error")
	f.StringVar(&flags.logFormat, "log-format", "", "Log format: console or json")
	f.StringVar(&flags.metrics, "metrics-textfile", "", "Write Prometheus metrics to this file after the run")
	return cmd
}

// apply copies explicitly set flags over the loaded configuration and
// re-validates it.
func (s scanFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	changed := cmd.Flags().Changed
	if changed("action") {
		cfg.Scan.Action = s.action
	}
	if changed("move-dest") {
		cfg.Scan.MoveDestination = s.moveDest
	}
	if changed("force") {
		cfg.Scan.Force = s.force
	}
	if changed("decompress") {
		cfg.Archives.Decompress = s.decompress
	}
	if changed("merge") {
		cfg.Archives.Merge = s.merge
	}
	if changed("output-dir") {
		cfg.Archives.OutputDir = s.outputDir
	}
	if changed("ext") {
		cfg.Scan.Extensions = append([]string(nil), s.extensions...)
	}
	if changed("log-level") {
		cfg.Logging.Level = s.logLevel
	}
	if changed("log-format") {
		cfg.Logging.Format = s.logFormat
	}
	if changed("metrics-textfile") {
		cfg.Metrics.Textfile = s.metrics
	}
	if err := cfg.Finalize(); err != nil {
		return services.Wrap(services.ErrConfiguration, "scan", "flags", "invalid options", err)
	}
	return nil
}

func printScanSummary(w io.Writer, s workflow.Summary) error {
	files := s.Files
	rows := [][]string{
		{"run id", s.RunID},
		{"root", s.Root},
		{"checked", strconv.Itoa(files.Checked)},
	}
	for _, status := range inventory.Statuses() {
		if status == inventory.StatusUnchecked {
			continue
		}
		rows = append(rows, []string{string(status), strconv.Itoa(files.ByStatus[status])})
	}
	rows = append(rows,
		[]string{"deleted", strconv.Itoa(files.Deleted)},
		[]string{"moved", strconv.Itoa(files.Moved)},
		[]string{"remediation failed", strconv.Itoa(files.RemediationFailed)},
		[]string{"already settled", strconv.Itoa(files.Skipped)},
		[]string{"purged", strconv.Itoa(s.Purged)},
		[]string{"ignored", strconv.Itoa(s.Ignored)},
		[]string{"dirs processed", strconv.Itoa(s.Dirs.Processed)},
	)
	for _, action := range inventory.DirActions() {
		if n := s.Dirs.ByAction[action]; n > 0 {
			rows = append(rows, []string{"dirs " + string(action), strconv.Itoa(n)})
		}
	}
	reasons := make([]archive.SkipReason, 0, len(s.Dirs.Skipped))
	for reason := range s.Dirs.Skipped {
		reasons = append(reasons, reason)
	}
	slices.Sort(reasons)
	for _, reason := range reasons {
		label := "dirs skipped " + strings.ReplaceAll(string(reason), "_", " ")
		rows = append(rows, []string{label, strconv.Itoa(s.Dirs.Skipped[reason])})
	}
	if s.Resumed > 0 {
		rows = append(rows, []string{"dirs resumed", strconv.Itoa(s.Resumed)})
	}
	rows = append(rows, []string{"duration", s.Duration.Round(time.Millisecond).String()})

	return writeTable(w, []string{"Metric", "Value"}, rows, []columnAlignment{alignLeft, alignRight})
}
