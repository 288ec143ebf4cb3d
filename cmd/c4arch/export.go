package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"c4arch/diagram"
	"c4arch/layout"
)

func newExportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <snapshot.json>",
		Short: "Export a saved diagram without contacting the service",
		Long: `Reads a diagram in the JSON wire shape, as written by "--format json", and
exports it. Entities without positions can be laid out with --layout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatName, _ := cmd.Flags().GetString("format")
			output, _ := cmd.Flags().GetString("output")
			relayout, _ := cmd.Flags().GetBool("layout")

			s, err := readSnapshot(args[0])
			if err != nil {
				return err
			}
			for _, note := range diagram.Normalize(s) {
				a.logger.Info("normalized snapshot", "file", args[0], "note", note)
			}
			if err := diagram.Validate(s); err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			if relayout {
				s = layout.NewGridLayout().Layout(s.Nodes, s.Edges)
			}
			return writeExport(cmd.OutOrStdout(), s, formatName, output, a.cfg.Font)
		},
	}
	cmd.Flags().String("format", "plantuml", fmt.Sprintf("Export format (%s)", formatList()))
	cmd.Flags().StringP("output", "o", "", "Write to a file instead of stdout")
	cmd.Flags().Bool("layout", false, "Lay entities out on the grid before exporting")
	cmd.Flags().String("font", "", "TrueType font for PNG export")
	return cmd
}

func readSnapshot(path string) (*diagram.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s diagram.Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &s, nil
}
