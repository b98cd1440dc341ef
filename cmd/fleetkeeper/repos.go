package fleetkeeper

import (
	"github.com/spf13/cobra"
)

var reposCmd = &cobra.Command{
	Use:   "repos [root]",
	Short: "Discover git working trees under a root",
	Long: "Walks the root directory, dedups working trees by canonical path, and " +
		"prints the fleet sorted case-insensitively by name. Nested trees inside a " +
		"discovered repository are not descended into.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
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

		repos, err := discoverRepos(cmd, rt)
		if err != nil {
			return err
		}

		setColorOutputMode(cmd, format)
		if format == "json" {
			if err := writeJSON(cmd, repos); err != nil {
				return err
			}
		} else {
			logOutputWriteFailure(cmd, "repos table", writeRepoTable(cmd, repos, noHeaders))
		}
		infof(cmd, "discovered %d repositories under %s", len(repos), rt.root)
		return nil
	},
}

func init() {
	addFormatFlag(reposCmd, "output format: table or json")
	addNoHeadersFlag(reposCmd)
	addWrapFlag(reposCmd)
	addDiscoveryFlags(reposCmd)

	rootCmd.AddCommand(reposCmd)
}
