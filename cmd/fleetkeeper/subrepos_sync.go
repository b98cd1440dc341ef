// SPDX-License-Identifier: MIT
package fleetkeeper

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skaphos/fleetkeeper/internal/model"
	"github.com/skaphos/fleetkeeper/internal/subrepo"
	"github.com/skaphos/fleetkeeper/internal/tableutil"
	"github.com/skaphos/fleetkeeper/internal/termstyle"
)

var subreposSyncCmd = &cobra.Command{
	Use:   "sync NAME",
	Short: "Check out every instance of a subrepo to one commit",
	Long: "Selects every nested working tree named NAME across the fleet and checks " +
		"each one out to the target commit. Dirty instances are skipped unless " +
		"--stash saves their changes first or --force checks out over them. " +
		"Stash entries are never popped automatically.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		debugf(cmd, "starting subrepo sync")
		commit, _ := cmd.Flags().GetString("commit")
		opts := subrepoGateOptions(cmd)

		rt, report, err := loadSubrepoReport(cmd)
		if err != nil {
			return err
		}

		syncer := subrepo.NewSyncer(nil, rt.logger)
		summary, err := syncer.Sync(cmd.Context(), report, args[0], commit, opts)
		return finishSubrepoSummary(cmd, "sync", summary, err)
	},
}

var subreposUpdateCmd = &cobra.Command{
	Use:   "update NAME",
	Short: "Update every instance of a subrepo to its remote head",
	Long: "Selects every nested working tree named NAME, fetches each one, and " +
		"checks it out to its own remote head (origin/HEAD, falling back to " +
		"origin/main then origin/master). The same dirty-tree gates as sync apply.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		debugf(cmd, "starting subrepo update")
		opts := subrepoGateOptions(cmd)

		rt, report, err := loadSubrepoReport(cmd)
		if err != nil {
			return err
		}

		syncer := subrepo.NewSyncer(nil, rt.logger)
		summary, err := syncer.Update(cmd.Context(), report, args[0], opts)
		return finishSubrepoSummary(cmd, "update", summary, err)
	},
}

func init() {
	subreposSyncCmd.Flags().String("commit", "", "target commit hash every instance is checked out to")
	_ = subreposSyncCmd.MarkFlagRequired("commit")
	addSubrepoGateFlags(subreposSyncCmd)

	addSubrepoGateFlags(subreposUpdateCmd)

	subreposCmd.AddCommand(subreposSyncCmd)
	subreposCmd.AddCommand(subreposUpdateCmd)
}

func addSubrepoGateFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("stash", false, "stash uncommitted changes before checkout")
	cmd.Flags().Bool("force", false, "check out over uncommitted changes without stashing")
	cmd.MarkFlagsMutuallyExclusive("stash", "force")
	cmd.Flags().String("root", "", "fleet root to scan (default: configured root or working directory)")
	addWrapFlag(cmd)
	addDiscoveryFlags(cmd)
	addBatchFlags(cmd)
	addNestedDepthFlag(cmd)
}

func subrepoGateOptions(cmd *cobra.Command) subrepo.Options {
	stash, _ := cmd.Flags().GetBool("stash")
	force, _ := cmd.Flags().GetBool("force")
	return subrepo.Options{Stash: stash, Force: force}
}

// loadSubrepoReport resolves the runtime from the --root flag and scans
// the fleet into a drift report, warning about name collisions so the
// operator sees them before a name-wide mutation runs.
func loadSubrepoReport(cmd *cobra.Command) (*commandRuntime, model.ValidationReport, error) {
	rootOverride, _ := cmd.Flags().GetString("root")
	rt, err := loadRuntime(cmd, rootOverride)
	if err != nil {
		return nil, model.ValidationReport{}, err
	}
	parents, err := discoverRepos(cmd, rt)
	if err != nil {
		return nil, model.ValidationReport{}, err
	}
	report, err := buildSubrepoReport(cmd, rt, parents)
	if err != nil {
		return nil, model.ValidationReport{}, err
	}
	writeCollisionWarnings(cmd, subrepo.Collisions(report))
	return rt, report, nil
}

// finishSubrepoSummary renders the per-instance results and raises the
// exit code implied by the summary. A selection error (unknown name)
// arrives with no results and propagates as a usage failure; partial
// failures are rendered and reported through the exit code instead.
func finishSubrepoSummary(cmd *cobra.Command, operation string, summary subrepo.Summary, err error) error {
	if err != nil && len(summary.Results) == 0 {
		return err
	}

	setColorOutputMode(cmd, "table")
	logOutputWriteFailure(cmd, "subrepo results", writeSubrepoResults(cmd, summary))
	for _, res := range summary.StashedInstances() {
		infof(cmd, "stashed changes in %s; recover with `git -C %s stash pop`",
			res.Instance.SubrepoPath, res.Instance.SubrepoPath)
	}
	if err != nil {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), err)
	}

	switch {
	case summary.Failed > 0:
		raiseExitCode(2)
	case summary.Skipped > 0:
		raiseExitCode(1)
	}
	infof(cmd, "%s completed: %d synced, %d stashed, %d skipped, %d failed",
		operation, summary.Synced, summary.Stashed, summary.Skipped, summary.Failed)
	return nil
}

func writeSubrepoResults(cmd *cobra.Command, summary subrepo.Summary) error {
	w := tableutil.New(cmd.OutOrStdout(), true)
	if err := tableutil.PrintHeaders(w, false, "PARENT\tPATH\tOUTCOME\tMESSAGE"); err != nil {
		return err
	}
	wrap, _ := cmd.Flags().GetBool("wrap")
	pathMax := adaptiveCellLimit(cmd, 0, 40, 28)
	for _, res := range summary.Results {
		outcome := termstyle.Colorize(colorOutputEnabled, string(res.Outcome), outcomeColor(res.Outcome))
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			res.Instance.ParentRepo,
			formatCell(res.Instance.SubrepoPath, wrap, pathMax),
			outcome,
			formatCell(res.Message, wrap, 36)); err != nil {
			return err
		}
	}
	return w.Flush()
}

func outcomeColor(outcome subrepo.Outcome) string {
	switch outcome {
	case subrepo.OutcomeFailed:
		return termstyle.Error
	case subrepo.OutcomeSkipped, subrepo.OutcomeStashed:
		return termstyle.Warn
	default:
		return termstyle.Healthy
	}
}
