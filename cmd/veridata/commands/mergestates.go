package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/veridata/veridata/internal/state"
	"github.com/veridata/veridata/internal/statestore"
)

type mergeStatesOptions struct {
	output string
}

// NewMergeStatesCommand builds the merge-states subcommand.
func NewMergeStatesCommand() *cobra.Command {
	opts := &mergeStatesOptions{}

	cmd := &cobra.Command{
		Use:   "merge-states <snapshot>...",
		Short: "Merge analyzer state snapshots from partitioned runs",
		Long: `Merge combines state snapshots written by verify --save-states.

The merged snapshot represents the union of the verified partitions and can
be merged further with later snapshots.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMergeStates(cmd, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output snapshot file (required)")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func runMergeStates(cmd *cobra.Command, opts *mergeStatesOptions, paths []string) error {
	merged := map[string]state.State{}

	for _, path := range paths {
		loaded, err := statestore.Load(path)
		if err != nil {
			return err
		}

		var dropped []string

		merged, dropped, err = statestore.Merge(merged, loaded)
		if err != nil {
			return fmt.Errorf("merge %s: %w", path, err)
		}

		for _, id := range dropped {
			fmt.Fprintf(cmd.ErrOrStderr(),
				"warning: state %s is not mergeable, dropped from the snapshot\n", id)
		}
	}

	if err := statestore.Save(opts.output, merged); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "merged %d snapshots into %s (%d states)\n",
		len(paths), opts.output, len(merged))

	return nil
}
