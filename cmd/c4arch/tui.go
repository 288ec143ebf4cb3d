package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"c4arch/internal/tui"
	"c4arch/workspace"
)

func newTUICmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Edit a diagram in the terminal",
		Long: `Opens the terminal editor. Logs go to the configured log file only.

Keys: ` + tui.HelpLine,
		Annotations: map[string]string{annotationQuietLogs: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			example, _ := cmd.Flags().GetString("example")
			return a.runTUI(ctx, example)
		},
	}
	cmd.Flags().String("example", "", "Generate from an example requirement set on start")
	return cmd
}

func (a *app) runTUI(ctx context.Context, example string) error {
	remote, err := a.remote()
	if err != nil {
		return err
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("creating screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("initializing screen: %w", err)
	}
	defer screen.Fini()

	ws := workspace.New(remote, a.workspaceOptions(workspace.WithOnUpdate(tui.Notifier(screen)))...)
	if example != "" {
		text, err := ws.LoadExample(ctx, example)
		if err != nil {
			return err
		}
		go func() {
			if err := ws.Generate(ctx, text); err != nil {
				a.logger.Warn("example generation failed", "example", example, "error", err)
			}
		}()
	}

	return tui.New(screen, ws, tui.WithLogger(a.logger)).Run(ctx)
}
