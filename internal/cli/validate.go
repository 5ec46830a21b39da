package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/craftwell/workpack/internal/manifest"
)

var validateCmd = &cobra.Command{
	Use:   "validate <work-package-dir>",
	Short: "Validate a work package manifest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := manifest.Load(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "valid:%s:%s\n", m.WorkPackage.ID, m.WorkPackage.CurrentStage)
		return nil
	},
}
