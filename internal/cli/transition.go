package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/craftwell/workpack/internal/lifecycle"
)

var (
	transitionActor  string
	transitionReason string
)

var transitionCmd = &cobra.Command{
	Use:   "transition <work-package-dir> <to-stage>",
	Short: "Move a work package to another lifecycle stage",
	Long: `Performs a single lifecycle transition. Forward motion is one step at a
time and implicitly approves the stage being left; a reopen may target any
earlier stage and flips every approval at or after it to reopened. A request
for the current stage is an idempotent no-op.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := lifecycle.Transition(args[0], args[1], transitionActor, transitionReason)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "transition:%s:%s->%s:%s\n",
			result.Type, result.FromStage, result.ToStage, result.EventFile)
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history <work-package-dir>",
	Short: "Replay the transition event log",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lines, err := lifecycle.ReplaySummary(args[0])
		if err != nil {
			return err
		}
		for _, line := range lines {
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
		return nil
	},
}

func init() {
	transitionCmd.Flags().StringVar(&transitionActor, "actor", "cli", "actor recorded on the event")
	transitionCmd.Flags().StringVar(&transitionReason, "reason", "", "free-form reason recorded on the event")
}
