package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/mdlive/internal/broadcast"
	"github.com/conneroisu/mdlive/internal/config"
	"github.com/conneroisu/mdlive/internal/errors"
	"github.com/conneroisu/mdlive/internal/logging"
	"github.com/conneroisu/mdlive/internal/renderer"
	"github.com/conneroisu/mdlive/internal/server"
	"github.com/conneroisu/mdlive/internal/watcher"
)

var serveCmd = &cobra.Command{
	Use:   "serve <file.md>",
	Short: "Serve a markdown file with live reload",
	Long: `Serve a markdown file with live reload. The file is polled for
modification-time changes; every change is rendered and pushed to all
connected browser tabs.

Examples:
  mdlive serve README.md
  mdlive serve notes.md --port 3000 --no-open
  mdlive serve doc.md --interval 250ms`,
	Args: cobra.ExactArgs(1),
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addServeFlags(serveCmd)
}

// addServeFlags registers the serving flags on cmd. They are shared between
// the root command and the serve subcommand, so the viper binding happens in
// runServe against whichever command actually ran.
func addServeFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("port", "p", 8080, "Port to serve on")
	cmd.Flags().StringP("host", "i", "127.0.0.1", "Address to bind to")
	cmd.Flags().Bool("no-open", false, "Don't open browser automatically")
	cmd.Flags().Duration("interval", watcher.DefaultInterval, "Poll interval for file changes")
}

func bindServeFlags(cmd *cobra.Command) {
	_ = viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("watch.interval", cmd.Flags().Lookup("interval"))
}

func runServe(cmd *cobra.Command, args []string) error {
	bindServeFlags(cmd)

	file := args[0]

	// Validate the watched file before starting any server.
	if _, err := os.Stat(file); err != nil {
		return errors.NewStartupError("missing_file",
			fmt.Sprintf("watched file %s does not exist", file), err)
	}

	cfg, err := config.Load()
	if err != nil {
		return errors.NewStartupError("invalid_config", "failed to load configuration", err)
	}
	cfg.File = file

	if noOpen, _ := cmd.Flags().GetBool("no-open"); noOpen {
		cfg.Server.Open = false
	}

	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:  logging.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})

	broadcaster := broadcast.New()
	fileWatcher := watcher.NewFileWatcher(cfg.File, cfg.Watch.Interval,
		renderer.NewMarkdownRenderer(), broadcaster, logger)

	srv, err := server.New(cfg, broadcaster, logger)
	if err != nil {
		return errors.NewStartupError("server_init", "failed to create server", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	// The watcher's fatal errors surface here instead of exiting from
	// inside the poll loop, so shutdown stays observable and testable.
	watcherErr := make(chan error, 1)
	go func() {
		watcherErr <- fileWatcher.Run(ctx)
	}()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start(ctx)
	}()

	fmt.Printf("Serving %s on http://%s\n", cfg.File, cfg.Addr())

	var runErr error
	select {
	case err := <-watcherErr:
		if err != nil {
			logger.Error(ctx, err, "watched file lost, shutting down")
			runErr = err
		}
	case err := <-serverErr:
		if err != nil {
			runErr = err
		}
	case <-sigChan:
		logger.Info(ctx, "shutting down")
	}

	cancel()
	if err := srv.Shutdown(context.Background()); err != nil {
		logger.Error(context.Background(), err, "error during server shutdown")
	}

	return runErr
}
