package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mediacheck/internal/inventory"
)

const timeLayout = "2006-01-02 15:04:05"

type fileView struct {
	Path        string `json:"path"`
	Status      string `json:"status"`
	Action      string `json:"action"`
	LastChecked string `json:"last_checked,omitempty"`
}

type dirView struct {
	Path        string `json:"path"`
	ArchiveRef  string `json:"archive_ref,omitempty"`
	SubsRef     string `json:"subs_ref,omitempty"`
	Action      string `json:"action"`
	LastChecked string `json:"last_checked,omitempty"`
}

func newInventoryCommand(ctx *commandContext) *cobra.Command {
	inventoryCmd := &cobra.Command{
		Use:     "inventory",
		Aliases: []string{"inv"},
		Short:   "Inspect stored validation and reconciliation records",
	}
	inventoryCmd.AddCommand(newInventoryFilesCommand(ctx))
	inventoryCmd.AddCommand(newInventoryDirsCommand(ctx))
	inventoryCmd.AddCommand(newInventoryStatsCommand(ctx))
	return inventoryCmd
}

func newInventoryFilesCommand(ctx *commandContext) *cobra.Command {
	var statusFlag string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "files",
		Short: "List file records",
		RunE: func(cmd *cobra.Command, args []string) error {
			var status inventory.Status
			if value := strings.TrimSpace(statusFlag); value != "" {
				parsed, ok := inventory.ParseStatus(strings.ToLower(value))
				if !ok {
					return fmt.Errorf("unknown status %q (valid: %s)", value, joinStatuses())
				}
				status = parsed
			}

			store, err := ctx.openInventory()
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.ListFiles(cmd.Context(), status)
			if err != nil {
				return err
			}

			views := make([]fileView, 0, len(records))
			for _, rec := range records {
				views = append(views, fileView{
					Path:        rec.Path,
					Status:      string(rec.Status),
					Action:      fileActionLabel(rec.Action),
					LastChecked: formatTime(rec.LastChecked),
				})
			}
			if jsonOutput {
				return printRecords(cmd.OutOrStdout(), views)
			}
			if len(views) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No file records")
				return nil
			}
			rows := make([][]string, 0, len(views))
			for _, v := range views {
				rows = append(rows, []string{v.Path, v.Status, v.Action, v.LastChecked})
			}
			return writeTable(cmd.OutOrStdout(), []string{"Path", "Status", "Action", "Last Checked"}, rows, nil)
		},
	}
	cmd.Flags().StringVar(&statusFlag, "status", "", "Only list records with this status")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output JSON")
	return cmd
}

func newInventoryDirsCommand(ctx *commandContext) *cobra.Command {
	var actionFlag string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "dirs",
		Short: "List archive directory records",
		RunE: func(cmd *cobra.Command, args []string) error {
			var action inventory.DirAction
			if value := strings.TrimSpace(actionFlag); value != "" {
				parsed, ok := inventory.ParseDirAction(strings.ToLower(value))
				if !ok {
					return fmt.Errorf("unknown action %q (valid: %s)", value, joinDirActions())
				}
				action = parsed
			}

			store, err := ctx.openInventory()
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.ListDirs(cmd.Context(), action)
			if err != nil {
				return err
			}

			views := make([]dirView, 0, len(records))
			for _, rec := range records {
				views = append(views, dirView{
					Path:        rec.Path,
					ArchiveRef:  rec.ArchiveRef,
					SubsRef:     rec.SubsRef,
					Action:      dirActionLabel(rec.Action),
					LastChecked: formatTime(rec.LastChecked),
				})
			}
			if jsonOutput {
				return printRecords(cmd.OutOrStdout(), views)
			}
			if len(views) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No directory records")
				return nil
			}
			rows := make([][]string, 0, len(views))
			for _, v := range views {
				rows = append(rows, []string{v.Path, v.Action, v.ArchiveRef, v.SubsRef, v.LastChecked})
			}
			return writeTable(cmd.OutOrStdout(), []string{"Path", "Action", "Archive", "Subtitles", "Last Checked"}, rows, nil)
		},
	}
	cmd.Flags().StringVar(&actionFlag, "action", "", "Only list records with this action")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output JSON")
	return cmd
}

func newInventoryStatsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize stored records",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openInventory()
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}

			counts := []statCount{{"files", "total", stats.Files}}
			for _, status := range inventory.Statuses() {
				counts = append(counts, statCount{"files", "status " + string(status), stats.ByStatus[status]})
			}
			for _, action := range []inventory.FileAction{inventory.FileActionNone, inventory.FileActionDeleted, inventory.FileActionMoved} {
				counts = append(counts, statCount{"files", "action " + fileActionLabel(action), stats.ByAction[action]})
			}
			counts = append(counts, statCount{"dirs", "total", stats.Dirs})
			counts = append(counts, statCount{"dirs", "action none", stats.ByDirAction[inventory.DirActionNone]})
			for _, action := range inventory.DirActions() {
				counts = append(counts, statCount{"dirs", "action " + string(action), stats.ByDirAction[action]})
			}

			if jsonOutput {
				payload := make(map[string]map[string]int)
				for _, c := range counts {
					if payload[c.kind] == nil {
						payload[c.kind] = make(map[string]int)
					}
					payload[c.kind][c.group] = c.n
				}
				return printJSON(cmd.OutOrStdout(), payload)
			}
			rows := make([][]string, 0, len(counts))
			for _, c := range counts {
				rows = append(rows, []string{c.kind, c.group, strconv.Itoa(c.n)})
			}
			return writeTable(cmd.OutOrStdout(), []string{"Kind", "Group", "Count"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output JSON")
	return cmd
}

type statCount struct {
	kind  string
	group string
	n     int
}

func fileActionLabel(action inventory.FileAction) string {
	if action == inventory.FileActionNone {
		return "none"
	}
	return string(action)
}

func dirActionLabel(action inventory.DirAction) string {
	if action == inventory.DirActionNone {
		return "none"
	}
	return string(action)
}

func formatTime(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.Local().Format(timeLayout)
}

func joinStatuses() string {
	values := make([]string, 0, len(inventory.Statuses()))
	for _, s := range inventory.Statuses() {
		values = append(values, string(s))
	}
	return strings.Join(values, ", ")
}

func joinDirActions() string {
	values := make([]string, 0, len(inventory.DirActions()))
	for _, a := range inventory.DirActions() {
		values = append(values, string(a))
	}
	return strings.Join(values, ", ")
}
