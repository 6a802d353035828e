// Package main provides the entry point for the veridata CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/veridata/veridata/cmd/veridata/commands"
	"github.com/veridata/veridata/pkg/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "veridata",
		Short: "Veridata - declarative data quality verification",
		Long: `Veridata verifies datasets against declarative quality suites.

Commands:
  verify        Run a check suite against a dataset
  profile       Compute per-column statistics for a dataset
  rules         List the rule types usable in suite files
  merge-states  Merge analyzer state snapshots from partitioned runs`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("config", "", "config file path (default: .veridata.yaml in CWD or $HOME)")

	rootCmd.AddCommand(commands.NewVerifyCommand())
	rootCmd.AddCommand(commands.NewProfileCommand())
	rootCmd.AddCommand(commands.NewRulesCommand())
	rootCmd.AddCommand(commands.NewMergeStatesCommand())
	rootCmd.AddCommand(versionCmd())

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "veridata %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}
