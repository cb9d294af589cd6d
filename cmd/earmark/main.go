package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/sydlexius/earmark/internal/version"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// options are the persistent flags shared by every subcommand.
type options struct {
	configPath string
	envFile    string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	defaultConfig := os.Getenv("EM_CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = "/data/config.yaml"
	}

	root := &cobra.Command{
		Use:   "earmark",
		Short: "Enrich listening history with catalog metadata",
		Long: `earmark records the tracks a listening tracker reports and resolves
each one against public music catalogs: album, release year, artwork,
genres, and audio features.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", defaultConfig, "path to the YAML config file")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before EM_* variables")

	root.AddCommand(
		newServeCmd(opts),
		newEnrichCmd(opts),
		newReenrichCmd(opts),
		newMigrateCmd(opts),
		newBackupCmd(opts),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "earmark %s (commit %s)\n", version.Version, version.Commit)
		},
	}
}
