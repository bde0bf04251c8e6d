package cmd

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/wayfarer/internal/seed"
	"github.com/Aman-CERP/wayfarer/internal/server"
)

// newServeCmd creates the serve command.
func newServeCmd(configPath *string) *cobra.Command {
	var addr string
	var watch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP answering server",
		Long: `Start the HTTP server. Indexes are restored from the metadata
store on startup; run 'wayfarer seed' first to populate them.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(),
				syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := newApp(ctx, *configPath, true)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.restore(ctx); err != nil {
				return err
			}

			if addr == "" {
				addr = app.cfg.Server.Addr
			}
			srv := server.New(addr, app.router, app.logger)

			if watch || app.cfg.Corpus.Watch {
				if err := startWatcher(ctx, app); err != nil {
					return err
				}
			}

			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				app.logger.Info("shutdown_signal_received")
				return srv.Stop(context.Background())
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config)")
	cmd.Flags().BoolVar(&watch, "watch", false, "Re-seed automatically when the corpus file changes")

	return cmd
}

// startWatcher runs the corpus watcher for the life of the server.
func startWatcher(ctx context.Context, app *app) error {
	debounce, err := time.ParseDuration(app.cfg.Corpus.WatchDebounce)
	if err != nil {
		debounce = seed.DefaultDebounce
	}

	w, err := seed.NewWatcher(app.seeder, app.cfg.Corpus.Path, debounce, app.logger)
	if err != nil {
		return err
	}

	go func() {
		if err := w.Run(ctx); err != nil && ctx.Err() == nil {
			app.logger.Error("watcher_stopped", slog.String("error", err.Error()))
		}
	}()
	return nil
}
