package fleetkeeper

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skaphos/fleetkeeper/internal/batch"
	"github.com/skaphos/fleetkeeper/internal/cliio"
	"github.com/skaphos/fleetkeeper/internal/engine"
	"github.com/skaphos/fleetkeeper/internal/model"
)

var configSyncCmd = &cobra.Command{
	Use:   "config-sync [root]",
	Short: "Align per-repository git config with the global baseline",
	Long: "Compares each discovered repository's git config against the global " +
		"values for " + strings.Join(engine.GlobalConfigKeys, ", ") + ". Without " +
		"--apply the command only reports drift; with --apply it writes the " +
		"global values into each drifted repository.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		debugf(cmd, "starting config sync")
		rt, err := loadRuntime(cmd, rootArg(args))
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		format, err = parseFormat(format)
		if err != nil {
			return err
		}
		apply, _ := cmd.Flags().GetBool("apply")
		yes, _ := cmd.Flags().GetBool("yes")

		eng := engine.New(nil, rt.cfg.Defaults.RemoteName, rt.logger)
		target := eng.GlobalConfigTarget(cmd.Context())
		if len(target) == 0 {
			return fmt.Errorf("no global git config values found for %s", strings.Join(engine.GlobalConfigKeys, ", "))
		}

		repos, err := discoverRepos(cmd, rt)
		if err != nil {
			return err
		}
		if len(repos) == 0 {
			infof(cmd, "no repositories found under %s", rt.root)
			return nil
		}

		if apply && !yes {
			prompt := fmt.Sprintf("Write %d global git config values into %d repositories? [y/N]: ", len(target), len(repos))
			confirmed, err := cliio.PromptYesNo(cmd.ErrOrStderr(), cmd.InOrStdin(), prompt)
			if err != nil {
				return err
			}
			if !confirmed {
				infof(cmd, "config sync cancelled")
				return nil
			}
		}

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
				return eng.SyncConfig(ctx, repo, target, apply)
			},
			engine.Accumulate,
			liveOutcomeWriter(cmd, bc.MaxNameLen(), format == "table"))

		return finishBatch(cmd, "config-sync", format, bc, bc.Snapshot())
	},
}

func init() {
	configSyncCmd.Flags().Bool("apply", false, "write global values into drifted repositories")
	configSyncCmd.Flags().Bool("yes", false, "apply without confirmation")
	addFormatFlag(configSyncCmd, "output format: table or json")
	addDiscoveryFlags(configSyncCmd)
	addBatchFlags(configSyncCmd)

	rootCmd.AddCommand(configSyncCmd)
}
