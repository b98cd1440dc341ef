package fleetkeeper

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/skaphos/fleetkeeper/internal/batch"
	"github.com/skaphos/fleetkeeper/internal/cliio"
	"github.com/skaphos/fleetkeeper/internal/engine"
	"github.com/skaphos/fleetkeeper/internal/model"
	"github.com/skaphos/fleetkeeper/internal/tableutil"
	"github.com/skaphos/fleetkeeper/internal/termstyle"
)

// logOutputWriteFailure records non-fatal output write/flush failures.
// CLI consumers frequently pipe to tools that close early (for example
// `head`), so we log and continue instead of failing the command.
func logOutputWriteFailure(cmd *cobra.Command, context string, err error) {
	if err == nil {
		return
	}
	debugf(cmd, "ignored output write failure (%s): %v", context, err)
}

func parseFormat(format string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(format))
	switch normalized {
	case "table", "json":
		return normalized, nil
	default:
		return "", fmt.Errorf("unsupported format %q", format)
	}
}

func writeJSON(cmd *cobra.Command, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	logOutputWriteFailure(cmd, "json output", err)
	return nil
}

func writeRepoTable(cmd *cobra.Command, repos []model.Repository, noHeaders bool) error {
	w := tableutil.New(cmd.OutOrStdout(), true)
	if err := tableutil.PrintHeaders(w, noHeaders, "NAME\tPATH"); err != nil {
		return err
	}
	wrap, _ := cmd.Flags().GetBool("wrap")
	pathMax := adaptiveCellLimit(cmd, 0, 48, 32)
	for _, repo := range repos {
		path := formatCell(repo.Path, wrap, pathMax)
		if _, err := fmt.Fprintf(w, "%s\t%s\n", repo.Name, path); err != nil {
			return err
		}
	}
	return w.Flush()
}

func formatCell(value string, wrap bool, max int) string {
	if wrap || max <= 0 {
		return value
	}
	return truncateASCII(value, max)
}

func truncateASCII(value string, max int) string {
	if len(value) <= max {
		return value
	}
	if max <= 3 {
		return value[:max]
	}
	return value[:max-3] + "..."
}

// liveOutcomeWriter returns the completion callback that prints one
// aligned status line per repository as results arrive. The batch
// coordinator serializes completions, so the writer needs no locking.
func liveOutcomeWriter(cmd *cobra.Command, maxNameLen int, enabled bool) batch.OnDone[engine.Outcome] {
	if !enabled {
		return nil
	}
	return func(repo model.Repository, out engine.Outcome) {
		status := fmt.Sprintf("%-14s", string(out.Status))
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "%-*s  %s %s\n",
			maxNameLen, repo.Name,
			liveColor(colorOutputEnabled, status, statusColor(out.Status)),
			out.Message)
		logOutputWriteFailure(cmd, "live status line", err)
	}
}

// liveColor is the plain ANSI variant for stream output. Live lines
// never pass through a tabwriter, so no escape framing is involved.
func liveColor(enabled bool, value, color string) string {
	if !enabled || color == "" {
		return value
	}
	return color + value + termstyle.Reset
}

func statusColor(status model.Status) string {
	switch {
	case status.Failed():
		return termstyle.Error
	case status.Skipped():
		return termstyle.Warn
	default:
		return termstyle.Healthy
	}
}

// finishBatch renders the end-of-run view for one batch operation and
// raises the exit code implied by the aggregate.
func finishBatch(cmd *cobra.Command, operation, format string, bc *batch.Context[model.SyncStats], stats model.SyncStats) error {
	if format == "json" {
		report := model.BatchReport{
			GeneratedAt: time.Now().UTC(),
			Operation:   operation,
			Stats:       stats,
		}
		if err := writeJSON(cmd, report); err != nil {
			return err
		}
	} else {
		writeBatchBreakdown(cmd, stats)
	}

	raiseExitCode(batchExitCode(stats))
	infof(cmd, "%s completed: %d synced, %d skipped, %d failed in %s",
		operation, stats.SyncedRepos, stats.SkippedRepos, stats.ErrorRepos,
		bc.Elapsed().Round(time.Millisecond))
	return nil
}

// writeBatchBreakdown prints the grouped end-of-run detail lists to
// stderr, failures first.
func writeBatchBreakdown(cmd *cobra.Command, stats model.SyncStats) {
	writeRefSection(cmd, "Failed repositories:", stats.FailedRepos, true)
	writeRefSection(cmd, "No upstream branch:", stats.NoUpstreamRepos, true)
	writeRefSection(cmd, "Uncommitted changes:", stats.UncommittedRepos, false)
	writeRefSection(cmd, "No remote configured:", stats.NoRemoteRepos, false)
}

func writeRefSection(cmd *cobra.Command, title string, refs []model.RepoRef, withDetail bool) {
	if len(refs) == 0 {
		return
	}
	_, _ = fmt.Fprintln(cmd.ErrOrStderr(), title)
	headers := []string{"NAME", "PATH"}
	if withDetail {
		headers = append(headers, "DETAIL")
	}
	rows := make([][]string, 0, len(refs))
	for _, ref := range refs {
		row := []string{ref.Name, ref.Path}
		if withDetail {
			row = append(row, ref.Message)
		}
		rows = append(rows, row)
	}
	logOutputWriteFailure(cmd, "batch breakdown", cliio.WriteTable(cmd.ErrOrStderr(), false, false, headers, rows))
}

func batchExitCode(stats model.SyncStats) int {
	switch {
	case stats.ErrorRepos > 0:
		return 2
	case stats.SkippedRepos > 0 || stats.UncommittedCount > 0:
		return 1
	default:
		return 0
	}
}
