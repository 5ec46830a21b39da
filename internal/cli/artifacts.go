package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/craftwell/workpack/internal/artifacts"
	"github.com/craftwell/workpack/internal/dashboard"
	"github.com/craftwell/workpack/internal/schema"
)

var refreshArtifactsCmd = &cobra.Command{
	Use:   "refresh-artifacts <work-package-dir>",
	Short: "Re-index artifact files and recompute integrity states",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := artifacts.Refresh(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "artifacts:draft=%d:approved=%d:stale=%d:superseded=%d\n",
			state.Counts[schema.StateDraft], state.Counts[schema.StateApproved],
			state.Counts[schema.StateStale], state.Counts[schema.StateSuperseded])
		return nil
	},
}

var refreshDashboardCmd = &cobra.Command{
	Use:   "refresh-dashboard <work-package-dir>",
	Short: "Regenerate the dashboard JSON and HTML outputs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dataPath, htmlPath, err := dashboard.Refresh(args[0], nil)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "dashboard:%s:%s\n", dataPath, htmlPath)
		return nil
	},
}
