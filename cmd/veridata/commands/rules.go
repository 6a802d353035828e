package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/veridata/veridata/internal/suitespec"
)

// NewRulesCommand builds the rules subcommand.
func NewRulesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the rule types usable in suite files",
		Run: func(cmd *cobra.Command, _ []string) {
			types := suitespec.RuleTypes()
			sort.Strings(types)

			for _, name := range types {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		},
	}
}
