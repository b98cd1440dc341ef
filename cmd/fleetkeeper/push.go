package fleetkeeper

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/skaphos/fleetkeeper/internal/batch"
	"github.com/skaphos/fleetkeeper/internal/engine"
	"github.com/skaphos/fleetkeeper/internal/model"
)

var pushCmd = &cobra.Command{
	Use:   "push [root]",
	Short: "Push local commits across every repository under a root",
	Long: "Runs the two-phase sync on each discovered repository: fetch and analyze " +
		"first, then push only the repositories the analysis marked eligible. " +
		"Repositories without an upstream are skipped unless --force creates one.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		debugf(cmd, "starting push")
		rt, err := loadRuntime(cmd, rootArg(args))
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		format, err = parseFormat(format)
		if err != nil {
			return err
		}
		force, _ := cmd.Flags().GetBool("force")

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
			effectiveConcurrency(cmd, rt.cfg.Defaults.PushConcurrency),
			effectiveTimeout(cmd, rt.cfg.Defaults.GitTimeout()),
			model.SyncStats{}, rt.logger)
		if err != nil {
			return err
		}

		setColorOutputMode(cmd, format)
		batch.Run(cmd.Context(), bc,
			func(ctx context.Context, repo model.Repository) engine.Outcome {
				return eng.SyncRepo(ctx, repo, force)
			},
			engine.Accumulate,
			liveOutcomeWriter(cmd, bc.MaxNameLen(), format == "table"))

		return finishBatch(cmd, "push", format, bc, bc.Snapshot())
	},
}

func init() {
	pushCmd.Flags().Bool("force", false, "create missing upstream branches with push -u")
	addFormatFlag(pushCmd, "output format: table or json")
	addDiscoveryFlags(pushCmd)
	addBatchFlags(pushCmd)

	rootCmd.AddCommand(pushCmd)
}
