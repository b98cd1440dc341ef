package fleetkeeper

import "github.com/spf13/cobra"

const (
	maxDepthUsage    = "directory depth limit for discovery (0 uses the configured default)"
	skipUsage        = "comma-separated directory basenames never descended into (overrides config)"
	excludeUsage     = "comma-separated glob patterns excluded from discovery (overrides config)"
	concurrencyUsage = "max concurrent repository operations (0 uses the configured class default)"
	timeoutUsage     = "timeout in seconds per repository (0 uses the configured default)"
	noHeadersUsage   = "when using table format, do not print headers"
)

func addFormatFlag(cmd *cobra.Command, usage string) {
	cmd.Flags().StringP("format", "o", "table", usage)
}

func addNoHeadersFlag(cmd *cobra.Command) {
	cmd.Flags().Bool("no-headers", false, noHeadersUsage)
}

func addWrapFlag(cmd *cobra.Command) {
	cmd.Flags().Bool("wrap", false, "allow table columns to wrap instead of truncating")
}

func addDiscoveryFlags(cmd *cobra.Command) {
	cmd.Flags().Int("max-depth", 0, maxDepthUsage)
	cmd.Flags().String("skip", "", skipUsage)
	cmd.Flags().String("exclude", "", excludeUsage)
}

func addBatchFlags(cmd *cobra.Command) {
	cmd.Flags().Int("concurrency", 0, concurrencyUsage)
	cmd.Flags().Int("timeout", 0, timeoutUsage)
}
