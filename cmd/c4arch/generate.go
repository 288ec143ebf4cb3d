package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"c4arch/diagram"
	"c4arch/export"
	"c4arch/workspace"
)

func newGenerateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate [requirements...]",
		Short: "Generate a diagram from requirements text",
		Long: `Sends requirements to the diagram service, lays out the result and prints
a summary. With --format the diagram is exported instead.

Requirements come from the arguments, --file (use - for stdin) or --example.`,
		Example: `  c4arch generate "Customers order products through a web shop"
  c4arch generate --file requirements.txt --format png --output shop.png
  c4arch generate --example 2 --format mermaid`,
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			example, _ := cmd.Flags().GetString("example")
			formatName, _ := cmd.Flags().GetString("format")
			output, _ := cmd.Flags().GetString("output")
			showCode, _ := cmd.Flags().GetBool("code")

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*a.requestTimeout())
			defer cancel()

			remote, err := a.remote()
			if err != nil {
				return err
			}
			ws := workspace.New(remote, a.workspaceOptions()...)

			text, err := requirementsText(ctx, cmd.InOrStdin(), args, file, example, ws)
			if err != nil {
				return err
			}
			if err := ws.Generate(ctx, text); err != nil {
				if notice := ws.Notice(); notice != "" {
					return fmt.Errorf("%s: %w", notice, err)
				}
				return err
			}

			out := cmd.OutOrStdout()
			if formatName != "" {
				return writeExport(out, ws.Snapshot(), formatName, output, a.cfg.Font)
			}
			fmt.Fprint(out, renderSummary(ws.Snapshot()))
			if showCode && ws.Code() != "" {
				fmt.Fprintln(out)
				fmt.Fprintln(out, renderCode(ws.Code()))
			}
			return nil
		},
	}
	cmd.Flags().StringP("file", "f", "", "Read requirements from a file, - for stdin")
	cmd.Flags().String("example", "", "Use an example requirement set from the service")
	cmd.Flags().String("format", "", fmt.Sprintf("Export format (%s)", formatList()))
	cmd.Flags().StringP("output", "o", "", "Write the export to a file instead of stdout")
	cmd.Flags().Bool("code", false, "Also print the diagram code")
	cmd.Flags().String("font", "", "TrueType font for PNG export")
	return cmd
}

func requirementsText(ctx context.Context, stdin io.Reader, args []string, file, example string, ws *workspace.Workspace) (string, error) {
	switch {
	case len(args) > 0:
		return strings.Join(args, " "), nil
	case file == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", err
		}
		return string(data), nil
	case example != "":
		return ws.LoadExample(ctx, example)
	}
	return "", errMissingInput
}

// writeExport encodes s as formatName into path, or out when path is empty.
func writeExport(out io.Writer, s *diagram.Snapshot, formatName, path, font string) error {
	format, err := export.ParseFormat(formatName)
	if err != nil {
		return err
	}

	var exporter export.Exporter
	if format == export.FormatPNG {
		png := export.NewPNGExporter()
		png.FontPath = font
		exporter = png
	} else if exporter, err = export.NewExporter(format); err != nil {
		return err
	}

	data, err := exporter.Export(s)
	if err != nil {
		return fmt.Errorf("%s export: %w", exporter.GetFormatName(), err)
	}
	if path == "" {
		_, err = out.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}
	printSuccess(out, fmt.Sprintf("Wrote %s (%d bytes)", path, len(data)))
	return nil
}

func formatList() string {
	var names []string
	for _, f := range export.GetAvailableFormats() {
		names = append(names, string(f))
	}
	return strings.Join(names, ", ")
}
