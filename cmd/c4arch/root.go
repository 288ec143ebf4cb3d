package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"c4arch/client"
	"c4arch/editor"
	"c4arch/internal/config"
	"c4arch/internal/logging"
	"c4arch/internal/metrics"
	"c4arch/workspace"
)

// app carries what every command needs once flags are parsed.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	closer  io.Closer
	metrics *metrics.Metrics
}

// annotationQuietLogs marks commands that own the terminal. Their logs go
// to the log file only.
const annotationQuietLogs = "c4arch/quiet-logs"

// newRootCmd creates the root command with all subcommands.
func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "c4arch",
		Short: "Generate and edit C4 architecture diagrams",
		Long: titleStyle.Render("c4arch") + " " + dimStyle.Render(version) + "\n" +
			"  Turn requirements text into C4 diagrams, then refine them by hand,\n" +
			"  through code or with the assistant.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.closer != nil {
				return a.closer.Close()
			}
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Path to a YAML or JSON config file")
	flags.String("env-file", ".env", "Path to a .env file (ignored when missing)")
	flags.String("remote", "", "Base URL of the diagram service")
	flags.Duration("timeout", 0, "Timeout for diagram service requests")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.Bool("log-json", false, "Write logs as JSON")

	rootCmd.AddCommand(newServeCmd(a))
	rootCmd.AddCommand(newTUICmd(a))
	rootCmd.AddCommand(newGenerateCmd(a))
	rootCmd.AddCommand(newExamplesCmd(a))
	rootCmd.AddCommand(newExportCmd(a))
	rootCmd.AddCommand(newImportCmd(a))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// setup layers flags over the loaded config and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	flags := cmd.Flags()
	path, _ := flags.GetString("config")
	envFile, _ := flags.GetString("env-file")

	cfg, err := config.Load(path, envFile)
	if err != nil {
		return err
	}

	if flags.Changed("remote") {
		cfg.RemoteURL, _ = flags.GetString("remote")
	}
	if flags.Changed("timeout") {
		cfg.RemoteTimeout, _ = flags.GetDuration("timeout")
	}
	if flags.Changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-json") {
		cfg.Log.JSON, _ = flags.GetBool("log-json")
	}
	if flags.Lookup("listen") != nil && flags.Changed("listen") {
		cfg.Listen, _ = flags.GetString("listen")
	}
	if flags.Lookup("store") != nil && flags.Changed("store") {
		cfg.Store.Kind, _ = flags.GetString("store")
	}
	if flags.Lookup("font") != nil && flags.Changed("font") {
		cfg.Font, _ = flags.GetString("font")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	cfg.Log.Component = cmd.Name()
	cfg.Log.Quiet = cmd.Annotations[annotationQuietLogs] == "true"
	a.logger, a.closer, err = logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	a.metrics = metrics.New()
	return nil
}

func (a *app) remote() (*client.Client, error) {
	return client.New(a.cfg.RemoteURL,
		client.WithTimeout(a.cfg.RemoteTimeout),
		client.WithLogger(a.logger),
		client.WithObserver(a.metrics.ObserveRemote),
	)
}

func (a *app) workspaceOptions(extra ...workspace.Option) []workspace.Option {
	opts := []workspace.Option{
		workspace.WithLogger(a.logger),
		workspace.WithMetrics(a.metrics),
		workspace.WithEditorOptions(
			editor.WithHistoryLimit(a.cfg.HistoryLimit),
			editor.WithLabelPolicy(a.cfg.Policy()),
		),
	}
	return append(opts, extra...)
}

var errMissingInput = errors.New("no requirements text given")

// requestTimeout bounds one-shot commands.
func (a *app) requestTimeout() time.Duration {
	return a.cfg.RemoteTimeout + 5*time.Second
}
