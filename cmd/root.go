// Package cmd implements the pagekeep command-line interface.
package cmd

import (
	"context"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	snapshotcmd "github.com/pagekeep/pagekeep/cmd/snapshot"
	versioncmd "github.com/pagekeep/pagekeep/cmd/version"
)

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// rootCmd is the pagekeep root command.
	rootCmd = &cobra.Command{
		Use:   "pagekeep",
		Short: "Save URLs as permanent reader-mode snapshots",
		Long: `Pagekeep archives web pages as reader-mode snapshots: safe to fetch,
bounded in size, readable offline, and stored content-addressed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	// Load .env early so environment variables are available to config.
	_ = godotenv.Load()

	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./pagekeep.yaml)")

	rootCmd.AddCommand(snapshotcmd.Command(&cfgFile))
	rootCmd.AddCommand(versioncmd.Command())
}
