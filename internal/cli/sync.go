package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/craftwell/workpack/internal/board"
	"github.com/craftwell/workpack/internal/gate"
)

var (
	syncActor  string
	syncReason string
)

var syncStageCmd = &cobra.Command{
	Use:   "sync-stage <work-package-dir> <target-stage>",
	Short: "Drive the lifecycle to a target stage",
	Long: `Moves a work package to the target stage deterministically. Forward
motion is expanded into repeated single-step advances, each recording its own
event; a backward target issues one reopen. An equal target is a no-op.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := board.SyncToStage(args[0], args[1], syncActor, syncReason)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "sync:%d:%s\n",
			len(result.EventIDs), strings.Join(result.EventIDs, ","))
		return nil
	},
}

var gateCmd = &cobra.Command{
	Use:   "gate <work-package-dir> <action>",
	Short: "Check whether an agent action may run",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		decision, err := gate.Evaluate(args[0], args[1])
		if err != nil {
			return err
		}
		if decision.Allowed {
			fmt.Fprintln(cmd.OutOrStdout(), "gate:allow")
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "gate:block:%s\n", decision.Reason)
		}
		return nil
	},
}

func init() {
	syncStageCmd.Flags().StringVar(&syncActor, "actor", "cli", "actor recorded on the events")
	syncStageCmd.Flags().StringVar(&syncReason, "reason", "", "free-form reason recorded on the events")
}
