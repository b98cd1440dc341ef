// SPDX-License-Identifier: MIT
package fleetkeeper

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skaphos/fleetkeeper/internal/model"
	"github.com/skaphos/fleetkeeper/internal/subrepo"
	"github.com/skaphos/fleetkeeper/internal/tableutil"
	"github.com/skaphos/fleetkeeper/internal/termstyle"
)

var subreposCmd = &cobra.Command{
	Use:   "subrepos [root]",
	Short: "Report nested repository drift across the fleet",
	Long: "Scans every parent repository for nested working trees, groups them by " +
		"normalized remote URL, and scores how uniformly each group is pinned. " +
		"Groups are listed worst-first; a score of 100 means every instance sits " +
		"on the same commit.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		debugf(cmd, "starting subrepo scan")
		rt, err := loadRuntime(cmd, rootArg(args))
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		format, err = parseFormat(format)
		if err != nil {
			return err
		}
		noHeaders, _ := cmd.Flags().GetBool("no-headers")

		parents, err := discoverRepos(cmd, rt)
		if err != nil {
			return err
		}
		report, err := buildSubrepoReport(cmd, rt, parents)
		if err != nil {
			return err
		}

		statuses := subrepo.Statuses(report)
		collisions := subrepo.Collisions(report)
		writeCollisionWarnings(cmd, collisions)

		setColorOutputMode(cmd, format)
		if format == "json" {
			output := struct {
				TotalNested int                      `json:"total_nested"`
				Statuses    []model.SubrepoStatus    `json:"statuses"`
				Collisions  []model.CollisionWarning `json:"collisions,omitempty"`
			}{report.TotalNested, statuses, collisions}
			if err := writeJSON(cmd, output); err != nil {
				return err
			}
		} else {
			logOutputWriteFailure(cmd, "subrepo table", writeSubrepoStatusTable(cmd, statuses, noHeaders))
		}

		for _, st := range statuses {
			if st.HasDrift {
				raiseExitCode(1)
				break
			}
		}
		infof(cmd, "subrepo report: %d nested repositories in %d groups", report.TotalNested, len(statuses))
		return nil
	},
}

func init() {
	addFormatFlag(subreposCmd, "output format: table or json")
	addNoHeadersFlag(subreposCmd)
	addWrapFlag(subreposCmd)
	addDiscoveryFlags(subreposCmd)
	addBatchFlags(subreposCmd)
	addNestedDepthFlag(subreposCmd)

	rootCmd.AddCommand(subreposCmd)
}

func addNestedDepthFlag(cmd *cobra.Command) {
	cmd.Flags().Int("depth", 0, "nested scan depth below each parent (0 uses the configured default)")
}

// buildSubrepoReport discovers nested working trees under every parent
// and merges them into the grouped drift report.
func buildSubrepoReport(cmd *cobra.Command, rt *commandRuntime, parents []model.Repository) (model.ValidationReport, error) {
	depth, _ := cmd.Flags().GetInt("depth")
	if depth <= 0 {
		depth = rt.cfg.Defaults.SubrepoDepth
	}
	scanner := subrepo.NewScanner(nil, depth, rt.cfg.SkipDirs, rt.logger)
	return subrepo.CollectReport(cmd.Context(), scanner, parents,
		effectiveConcurrency(cmd, rt.cfg.Defaults.ScanConcurrency),
		effectiveTimeout(cmd, rt.cfg.Defaults.ScanTimeout()),
		rt.logger, nil)
}

// writeCollisionWarnings surfaces names that span more than one remote.
// Name-wide selection treats such instances as one subrepo, so the
// operator should know before acting on the name.
func writeCollisionWarnings(cmd *cobra.Command, collisions []model.CollisionWarning) {
	for _, c := range collisions {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: subrepo name %q spans %d remotes across %d instances: %s\n",
			c.Name, len(c.RemoteURLs), c.Instances, strings.Join(c.RemoteURLs, ", "))
	}
	if len(collisions) > 0 {
		raiseExitCode(1)
	}
}

func writeSubrepoStatusTable(cmd *cobra.Command, statuses []model.SubrepoStatus, noHeaders bool) error {
	w := tableutil.New(cmd.OutOrStdout(), true)
	showRemote := true
	if width, hasWidth := tableWidth(cmd); hasWidth && width < tinyTableWidth {
		showRemote = false
	}
	headers := "NAME\tSCORE\tINSTANCES\tUNIQUE\tDRIFT"
	if showRemote {
		headers += "\tREMOTE"
	}
	if err := tableutil.PrintHeaders(w, noHeaders, headers); err != nil {
		return err
	}
	wrap, _ := cmd.Flags().GetBool("wrap")
	remoteMax := adaptiveCellLimit(cmd, 0, 40, 28)
	for _, st := range statuses {
		drift := termstyle.Colorize(colorOutputEnabled, "no", termstyle.Healthy)
		if st.HasDrift {
			drift = termstyle.Colorize(colorOutputEnabled, "yes", termstyle.Error)
		}
		remote := st.RemoteURL
		if remote == "" {
			remote = "-"
		}
		remote = formatCell(remote, wrap, remoteMax)
		row := fmt.Sprintf("%s\t%.1f\t%d\t%d\t%s",
			st.Name, st.SyncScore, len(st.Instances), st.UniqueCommits, drift)
		if showRemote {
			row += "\t" + remote
		}
		if _, err := fmt.Fprintln(w, row); err != nil {
			return err
		}
	}
	return w.Flush()
}
