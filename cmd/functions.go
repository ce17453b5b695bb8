package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ngld/match/pkg/builtins"
)

var functionsCmd = &cobra.Command{
	Use:   "functions",
	Short: "Lists the functions available in match files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), "Available functions:")
		for _, name := range builtins.NewRegistry().Names() {
			fmt.Fprintf(cmd.OutOrStdout(), " * %s\n", name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(functionsCmd)
}
