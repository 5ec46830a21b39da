package cli

import (
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/craftwell/workpack/internal/manifest"
	"github.com/craftwell/workpack/internal/schema"
)

var statusCmd = &cobra.Command{
	Use:   "status <work-package-dir>",
	Short: "Show the stage ladder and artifact health of a work package",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := manifest.Load(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		stages := table.NewWriter()
		stages.SetOutputMirror(out)
		stages.SetTitle("%s: %s", m.WorkPackage.ID, m.WorkPackage.Title)
		stages.AppendHeader(table.Row{"#", "Stage", "Approval", "Current"})
		for _, stage := range schema.Stages {
			approvalStatus := "n/a"
			if approval := m.Lifecycle.StageApprovals[stage.ID]; approval != nil {
				approvalStatus = approval.Status
			}
			marker := ""
			if stage.ID == m.WorkPackage.CurrentStage {
				marker = "<-"
			}
			stages.AppendRow(table.Row{stage.Order, stage.Label, approvalStatus, marker})
		}
		stages.Render()

		counts := table.NewWriter()
		counts.SetOutputMirror(out)
		counts.SetTitle("Artifacts")
		counts.AppendHeader(table.Row{"State", "Count"})
		for _, state := range schema.ArtifactStates {
			counts.AppendRow(table.Row{state, m.Artifacts.Counts[state]})
		}
		counts.Render()

		if len(m.Artifacts.Items) > 0 {
			files := table.NewWriter()
			files.SetOutputMirror(out)
			files.AppendHeader(table.Row{"Path", "Group", "State"})
			paths := make([]string, 0, len(m.Artifacts.Items))
			for path := range m.Artifacts.Items {
				paths = append(paths, path)
			}
			sort.Strings(paths)
			for _, path := range paths {
				record := m.Artifacts.Items[path]
				files.AppendRow(table.Row{record.Path, record.StageGroup, record.State})
			}
			files.Render()
		}
		return nil
	},
}
