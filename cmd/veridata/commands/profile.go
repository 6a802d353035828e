package commands

import (
	"github.com/spf13/cobra"

	"github.com/veridata/veridata/internal/profile"
	"github.com/veridata/veridata/internal/render"
)

type profileOptions struct {
	csvPath string
	table   string
}

// NewProfileCommand builds the profile subcommand.
func NewProfileCommand() *cobra.Command {
	opts := &profileOptions{}

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Compute per-column statistics for a dataset",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runProfile(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.csvPath, "csv", "", "CSV file to load and profile")
	cmd.Flags().StringVarP(&opts.table, "table", "t", "", "table to profile")

	return cmd
}

func runProfile(cmd *cobra.Command, opts *profileOptions) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	be, table, err := openDataset(cmd, cfg, nil, opts.csvPath, opts.table)
	if err != nil {
		return err
	}

	profiled, err := profile.Dataset(cmd.Context(), be, table)
	if err != nil {
		return err
	}

	render.Profile(cmd.OutOrStdout(), profiled)

	return nil
}
