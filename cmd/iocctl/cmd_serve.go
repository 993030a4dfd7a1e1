package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	ioc "github.com/plumeink/cullinan-ioc"
	"github.com/plumeink/cullinan-ioc/config"
	"github.com/plumeink/cullinan-ioc/internal/demo"
	"github.com/plumeink/cullinan-ioc/iochttp"
	"github.com/plumeink/cullinan-ioc/metrics"
)

// iocctl serve: refresh the demo context and serve it over HTTP until SIGINT/SIGTERM.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the demo HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, config.Load(envFiles...))
	},
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := config.NewLogger(cfg)
	observer := metrics.NewObserver(cfg.MetricsNamespace)

	app, err := demo.Build(cfg, logger, ioc.WithObserver(observer))
	if err != nil {
		return err
	}
	if err := app.Refresh(ctx); err != nil {
		return err
	}

	router := iochttp.NewRouter(app, logger, demo.Routes)
	router.Get("/metrics", observer.Handler())

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		logger.Warn("shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			logger.Error("server failed", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	httpErr := server.Shutdown(shutdownCtx)
	appErr := app.Shutdown(shutdownCtx, cfg.ShutdownForce)
	if err := errors.Join(httpErr, appErr); err != nil {
		logger.Error("shutdown finished with errors", "error", err)
		return err
	}
	logger.Info("shutdown completed")
	return nil
}
