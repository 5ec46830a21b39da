package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/craftwell/workpack/internal/eventindex"
	"github.com/craftwell/workpack/internal/manifest"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the SQLite event index",
}

var indexDBPath string

func indexPath(workPackageDir string) string {
	if indexDBPath != "" {
		return indexDBPath
	}
	return eventindex.DefaultPath(workPackageDir)
}

var indexRebuildCmd = &cobra.Command{
	Use:   "rebuild <work-package-dir>",
	Short: "Re-derive the event index from the JSON event log",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := eventindex.Open(indexPath(args[0]))
		if err != nil {
			return err
		}
		defer db.Close()

		count, err := db.Rebuild(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "index:rebuilt:%d\n", count)
		return nil
	},
}

var indexStatsCmd = &cobra.Command{
	Use:   "stats <work-package-dir>",
	Short: "Show indexed event totals for a work package",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := manifest.Load(args[0])
		if err != nil {
			return err
		}
		db, err := eventindex.Open(indexPath(args[0]))
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.Stats(m.WorkPackage.ID)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "work_package:%s\n", stats.WorkPackage)
		fmt.Fprintf(out, "events:%d advances:%d reopens:%d\n", stats.Total, stats.Advances, stats.Reopens)
		if stats.Total > 0 {
			fmt.Fprintf(out, "first:%s last:%s\n", stats.FirstAt, stats.LastAt)
		}
		return nil
	},
}

func init() {
	indexCmd.PersistentFlags().StringVar(&indexDBPath, "db", "", "index database path (default <work-package-dir>/events.db)")
	indexCmd.AddCommand(indexRebuildCmd)
	indexCmd.AddCommand(indexStatsCmd)
}
