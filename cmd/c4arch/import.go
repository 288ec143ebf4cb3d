package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"c4arch/importer"
	"c4arch/layout"
)

func newImportCmd(a *app) *cobra.Command {
	registry := importer.NewRegistry()

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import C4-PlantUML or Mermaid code",
		Long: `Reads diagram code, lays it out on the grid and writes it in any export
format. The source format is detected unless --from is given.`,
		Example: `  c4arch import shop.puml > shop.json
  c4arch import --from mermaid --format png -o shop.png shop.mmd`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, _ := cmd.Flags().GetString("from")
			formatName, _ := cmd.Flags().GetString("format")
			output, _ := cmd.Flags().GetString("output")

			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			content := string(data)
			if from == "" {
				imp, err := registry.DetectFormat(content)
				if err != nil {
					return fmt.Errorf("%s: %w", args[0], err)
				}
				from = imp.GetFormatName()
			}
			s, err := registry.ImportWithFormat(content, from)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			a.logger.Debug("imported diagram", "file", args[0], "format", from,
				"entities", len(s.Nodes), "relations", len(s.Edges))

			s = layout.NewGridLayout().Layout(s.Nodes, s.Edges)
			return writeExport(cmd.OutOrStdout(), s, formatName, output, a.cfg.Font)
		},
	}
	cmd.Flags().String("from", "", fmt.Sprintf("Source format (%s), detected when empty",
		strings.ToLower(strings.Join(registry.GetAvailableFormats(), ", "))))
	cmd.Flags().String("format", "json", fmt.Sprintf("Export format (%s)", formatList()))
	cmd.Flags().StringP("output", "o", "", "Write to a file instead of stdout")
	cmd.Flags().String("font", "", "TrueType font for PNG export")
	return cmd
}
