package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/craftwell/workpack/internal/artifacts"
	"github.com/craftwell/workpack/internal/board"
	"github.com/craftwell/workpack/internal/dashboard"
	"github.com/craftwell/workpack/internal/manifest"
)

var (
	initBaseDir     string
	initID          string
	initTitle       string
	initDirname     string
	initContextMode string
	initAcceptance  []string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Bootstrap a work package directory",
	Long: `Creates the work package directory, its manifest, the artifact stage
directories and the approvals log directory. Re-running against an existing
valid work package reconciles the layout without resetting any state.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store := manifest.NewStore(initBaseDir)
		dir, err := store.Initialize(manifest.InitParams{
			ID:                 initID,
			Title:              initTitle,
			Dirname:            initDirname,
			ContextMode:        initContextMode,
			AcceptanceCriteria: initAcceptance,
		})
		if err != nil {
			return err
		}
		if _, err := artifacts.Refresh(dir); err != nil {
			return err
		}
		if _, _, err := dashboard.Refresh(dir, nil); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "initialized:%s\n", dir)
		return nil
	},
}

var (
	taskBaseDir     string
	taskID          int
	taskTitle       string
	taskDirname     string
	taskContextMode string
	taskAcceptance  []string
	taskProjectID   int
	taskProvider    string
)

var initFromTaskCmd = &cobra.Command{
	Use:   "init-from-task",
	Short: "Bootstrap a work package from an external board task",
	RunE: func(cmd *cobra.Command, args []string) error {
		adapter := board.NewAdapter(taskBaseDir, taskProvider)
		dir, err := adapter.EnsureWorkPackage(taskID, taskTitle, taskProjectID, board.TaskFields{
			Dirname:            taskDirname,
			ContextMode:        taskContextMode,
			AcceptanceCriteria: taskAcceptance,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "initialized:%s\n", dir)
		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&initBaseDir, "base-dir", ".", "base directory for work packages")
	initCmd.Flags().StringVar(&initID, "id", "", "work package id (lowercase letters, digits, hyphens)")
	initCmd.Flags().StringVar(&initTitle, "title", "", "work package title")
	initCmd.Flags().StringVar(&initDirname, "dirname", "", "implementation directory name")
	initCmd.Flags().StringVar(&initContextMode, "context-mode", "NEW", "context mode: NEW or FEATURE")
	initCmd.Flags().StringArrayVar(&initAcceptance, "acceptance", nil, "acceptance criterion (repeatable)")
	initCmd.MarkFlagRequired("id")
	initCmd.MarkFlagRequired("title")
	initCmd.MarkFlagRequired("dirname")
	initCmd.MarkFlagRequired("acceptance")

	initFromTaskCmd.Flags().StringVar(&taskBaseDir, "base-dir", ".", "base directory for work packages")
	initFromTaskCmd.Flags().IntVar(&taskID, "task-id", 0, "external task id")
	initFromTaskCmd.Flags().StringVar(&taskTitle, "title", "", "task title")
	initFromTaskCmd.Flags().StringVar(&taskDirname, "dirname", "", "implementation directory name")
	initFromTaskCmd.Flags().StringVar(&taskContextMode, "context-mode", "", "context mode: NEW or FEATURE")
	initFromTaskCmd.Flags().StringArrayVar(&taskAcceptance, "acceptance", nil, "acceptance criterion (repeatable)")
	initFromTaskCmd.Flags().IntVar(&taskProjectID, "project-id", 0, "external project id")
	initFromTaskCmd.Flags().StringVar(&taskProvider, "provider", "board", "external board provider name")
	initFromTaskCmd.MarkFlagRequired("task-id")
	initFromTaskCmd.MarkFlagRequired("title")
	initFromTaskCmd.MarkFlagRequired("dirname")
}
