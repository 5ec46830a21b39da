package cli

import (
	"github.com/spf13/cobra"
)

var version = "dev"

// SetVersion overrides the build version (set from main via ldflags).
func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "wp",
	Short: "wp manages review-gated work package lifecycles",
	Long: `wp drives a work package through an ordered, review-gated stage pipeline
(design -> planning -> tests -> implementation -> review -> done).

All state lives in the work package directory: a YAML manifest, an
append-only directory of immutable JSON approval events, and the artifact
tree produced by external agents. The manifest is a materialized view; the
event log is the source of truth.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(initFromTaskCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(transitionCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(refreshArtifactsCmd)
	rootCmd.AddCommand(refreshDashboardCmd)
	rootCmd.AddCommand(syncStageCmd)
	rootCmd.AddCommand(gateCmd)
	rootCmd.AddCommand(mapAddCmd)
	rootCmd.AddCommand(mapExportCmd)
	rootCmd.AddCommand(mapImportCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(indexCmd)
}
