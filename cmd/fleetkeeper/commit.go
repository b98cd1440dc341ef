package fleetkeeper

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skaphos/fleetkeeper/internal/batch"
	"github.com/skaphos/fleetkeeper/internal/engine"
	"github.com/skaphos/fleetkeeper/internal/model"
)

var commitCmd = &cobra.Command{
	Use:   "commit [root]",
	Short: "Stage and commit local changes across every repository under a root",
	Long: "Stages all changes in each discovered repository and commits them with " +
		"the given message. Repositories with nothing to commit are recorded as " +
		"no-ops; --stage-only stops after staging without creating commits.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		debugf(cmd, "starting commit")
		message, _ := cmd.Flags().GetString("message")
		stageOnly, _ := cmd.Flags().GetBool("stage-only")
		if !stageOnly && strings.TrimSpace(message) == "" {
			return fmt.Errorf("commit message required (use -m, or --stage-only to skip committing)")
		}

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
				return eng.CommitRepo(ctx, repo, message, stageOnly)
			},
			engine.Accumulate,
			liveOutcomeWriter(cmd, bc.MaxNameLen(), format == "table"))

		operation := "commit"
		if stageOnly {
			operation = "stage"
		}
		return finishBatch(cmd, operation, format, bc, bc.Snapshot())
	},
}

func init() {
	commitCmd.Flags().StringP("message", "m", "", "commit message applied to every repository")
	commitCmd.Flags().Bool("stage-only", false, "stage changes without committing")
	addFormatFlag(commitCmd, "output format: table or json")
	addDiscoveryFlags(commitCmd)
	addBatchFlags(commitCmd)

	rootCmd.AddCommand(commitCmd)
}
