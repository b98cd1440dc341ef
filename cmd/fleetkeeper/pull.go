package fleetkeeper

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/skaphos/fleetkeeper/internal/batch"
	"github.com/skaphos/fleetkeeper/internal/engine"
	"github.com/skaphos/fleetkeeper/internal/model"
)

var pullCmd = &cobra.Command{
	Use:   "pull [root]",
	Short: "Fast-forward every repository under a root from its upstream",
	Long: "Runs the two-phase sync with a pull mutate phase. Pulls are strictly " +
		"fast-forward: diverged histories are reported for manual resolution and " +
		"dirty working trees are skipped rather than rewritten.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		debugf(cmd, "starting pull")
		rt, err := loadRuntime(cmd, rootArg(args))
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		format, err = parseFormat(format)
		if err != nil {
			return err
		}

		repos, err := discoverRepos(cmd, rt)
		if err != nil {
			return err
		}
		if len(repos) == 0 {
			infof(cmd, "no repositories found under %s", rt.root)
			return nil
		}

		eng := engine.New(nil, rt.cfg.Defaults.RemoteName, rt.logger)
		bc, err := batch.NewContext(repos,
			effectiveConcurrency(cmd, rt.cfg.Defaults.FetchConcurrency),
			effectiveTimeout(cmd, rt.cfg.Defaults.GitTimeout()),
			model.SyncStats{}, rt.logger)
		if err != nil {
			return err
		}

		setColorOutputMode(cmd, format)
		batch.Run(cmd.Context(), bc,
			func(ctx context.Context, repo model.Repository) engine.Outcome {
				return eng.PullRepo(ctx, repo)
			},
			engine.Accumulate,
			liveOutcomeWriter(cmd, bc.MaxNameLen(), format == "table"))

		return finishBatch(cmd, "pull", format, bc, bc.Snapshot())
	},
}

func init() {
	addFormatFlag(pullCmd, "output format: table or json")
	addDiscoveryFlags(pullCmd)
	addBatchFlags(pullCmd)

	rootCmd.AddCommand(pullCmd)
}
