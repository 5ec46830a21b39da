package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/craftwell/workpack/internal/artifacts"
	"github.com/craftwell/workpack/internal/manifest"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch <work-package-dir>",
	Short: "Watch artifact directories and refresh on change",
	Long: `Watches the artifact stage directories of a work package and re-runs the
registry refresh (which also regenerates the dashboard) whenever files change.
Bursty writes are coalesced by the debounce window. Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		workPackageDir := args[0]
		if _, err := manifest.Load(workPackageDir); err != nil {
			return err
		}

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("create watcher: %w", err)
		}
		defer watcher.Close()

		artifactsDir := filepath.Join(workPackageDir, "artifacts")
		watched := 0
		for _, stageDir := range manifest.ArtifactStageDirs {
			dir := filepath.Join(artifactsDir, stageDir)
			if _, err := os.Stat(dir); err != nil {
				continue
			}
			if err := watcher.Add(dir); err != nil {
				return fmt.Errorf("watch %s: %w", dir, err)
			}
			watched++
		}
		if watched == 0 {
			return fmt.Errorf("no artifact directories to watch under %s", artifactsDir)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "watching:%d dirs under %s\n", watched, artifactsDir)

		var timer *time.Timer
		refreshDue := make(chan struct{}, 1)
		schedule := func() {
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, func() {
				select {
				case refreshDue <- struct{}{}:
				default:
				}
			})
		}

		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) &&
					!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
					continue
				}
				// Skip dashboard output and temp files so a refresh never
				// retriggers itself.
				base := filepath.Base(event.Name)
				if strings.HasPrefix(base, ".tmp-") || strings.HasPrefix(base, "dashboard.") {
					continue
				}
				schedule()
			case <-refreshDue:
				state, err := artifacts.Refresh(workPackageDir)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "refresh failed: %v\n", err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "refreshed:%d artifacts\n", len(state.Items))
			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "watch error: %v\n", err)
			}
		}
	},
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 500*time.Millisecond, "quiet window before refreshing after a change")
}
