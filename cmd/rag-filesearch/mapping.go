// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/rag-filesearch/internal/mapping"
)

var mappingCmd = &cobra.Command{
	Use:   "mapping",
	Short: "Inspect, export, or reset the local mapping file",
	Long: `Mapping works on file_mappings.json, the local record of which ASCII
identifier was uploaded for which original file. The mapping file reflects
what this tool uploaded; it is not refreshed from the remote store.`,
}

var mappingListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		m, err := mapping.Load(cfg.MappingFile)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(m) == 0 {
			fmt.Fprintf(out, "No files recorded in %s. Run `rag-filesearch ingest` to upload documents.\n", cfg.MappingFile)
			return nil
		}
		fmt.Fprintf(out, "%d files recorded in %s\n\n", len(m), cfg.MappingFile)
		for i, e := range mapping.Entries(m) {
			fmt.Fprintf(out, "%d. %s\n", i+1, e.Title)
			fmt.Fprintf(out, "   Original file: %s\n", e.OriginalFilename)
			fmt.Fprintf(out, "   Identifier:    %s\n", e.Identifier)
			fmt.Fprintf(out, "   Uploaded:      %s\n", e.UploadDate)
			fmt.Fprintf(out, "   Operation:     %s\n\n", e.OperationName)
		}
		return nil
	},
}

var mappingExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the mapping as YAML or JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")

		m, err := mapping.Load(cfg.MappingFile)
		if err != nil {
			return err
		}

		var w io.Writer = cmd.OutOrStdout()
		if output != "" {
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating %s: %w", output, err)
			}
			defer f.Close()
			w = f
		}
		if err := mapping.Export(m, w, mapping.Format(format)); err != nil {
			return err
		}
		if output != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d entries to %s\n", len(m), output)
		}
		return nil
	},
}

var mappingResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the local mapping file (remote documents are kept)",
	Long: `Reset deletes the local mapping file only. Documents already uploaded stay
in the remote store and keep answering queries. To remove them, use
"store delete".

Interactive use asks twice: a yes/no question, then typing RESET. Pass
--yes to skip both, which is required when stdin is not a terminal.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		yes, _ := cmd.Flags().GetBool("yes")
		return resetLocalMapping(cmd, cfg, yes)
	},
}

func init() {
	mappingExportCmd.Flags().String("format", string(mapping.FormatYAML), "export format: yaml or json")
	mappingExportCmd.Flags().String("output", "", "write to a file instead of stdout")
	mappingResetCmd.Flags().Bool("yes", false, "do not ask for confirmation")

	mappingCmd.AddCommand(mappingListCmd)
	mappingCmd.AddCommand(mappingExportCmd)
	mappingCmd.AddCommand(mappingResetCmd)

	rootCmd.AddCommand(mappingCmd)
}
