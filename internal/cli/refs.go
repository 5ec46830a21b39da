package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/craftwell/workpack/internal/board"
	"github.com/craftwell/workpack/internal/manifest"
)

var mapAddURL string

var mapAddCmd = &cobra.Command{
	Use:   "map-add <work-package-dir> <provider> <external-id>",
	Short: "Add or update an external work item mapping",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := board.AddExternalRef(args[0], args[1], args[2], mapAddURL)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "map:add:%s:%s\n", ref.Provider, ref.ExternalID)
		return nil
	},
}

var mapExportOut string

var mapExportCmd = &cobra.Command{
	Use:   "map-export <work-package-dir>",
	Short: "Export external work item mappings as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := board.ExportExternalRefs(args[0])
		if err != nil {
			return err
		}
		if mapExportOut == "" {
			data, err := json.MarshalIndent(payload, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal export: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}
		if err := manifest.WriteJSON(mapExportOut, payload); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "map:export:%s:%d\n", mapExportOut, len(payload.Refs))
		return nil
	},
}

var mapImportCmd = &cobra.Command{
	Use:   "map-import <work-package-dir> <export-file>",
	Short: "Import external work item mappings from a JSON export",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("read export file: %w", err)
		}
		var payload board.RefExport
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("parse export file: %w", err)
		}
		applied, err := board.ImportExternalRefs(args[0], &payload)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "map:import:%d\n", applied)
		return nil
	},
}

func init() {
	mapAddCmd.Flags().StringVar(&mapAddURL, "url", "", "external work item URL")
	mapExportCmd.Flags().StringVar(&mapExportOut, "out", "", "write export to this file instead of stdout")
}
