package cmd

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/ngld/match/pkg/match"
)

var statusCmd = &cobra.Command{
	Use:   "status [root]",
	Short: "Shows the outcome of the last run",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		file := stateFile(rootArg(args), cfg)
		if file == "" {
			return eris.New("no state file configured")
		}

		state, err := match.ReadState(file)
		if err != nil {
			return eris.Wrapf(err, "failed to read %s", file)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Run %s started %s, took %s\n", state.RunID, state.Started.Format(time.RFC3339),
			match.FormatElapsed(state.Elapsed))

		maxNameLen := 0
		for _, target := range state.Targets {
			if len(target.Name) > maxNameLen {
				maxNameLen = len(target.Name)
			}
		}

		lineFmt := fmt.Sprintf(" * %%-%ds %%-10s %%s\n", maxNameLen+3)
		for _, target := range state.Targets {
			fmt.Fprintf(out, lineFmt, target.Name+":", target.State, match.FormatElapsed(target.Duration))
			if target.Error != "" {
				fmt.Fprintf(out, "     %s\n", target.Error)
			}
		}

		if state.Error != "" {
			fmt.Fprintf(out, "Failed: %s\n", state.Error)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
