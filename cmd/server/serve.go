package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Brownie44l1/leaf-api/internal/handlers"
	"github.com/Brownie44l1/leaf-api/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web uploader and JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().String("addr", "", "listen address (default :8080)")
	a.bindFlag("server.addr", cmd, "addr")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	logger := a.logger
	provider := a.provider()
	defer provider.Close()

	// Load up front so a broken deployment shows in the logs immediately.
	// The server still starts and shows the error to anyone who visits.
	if _, labels, err := provider.Get(); err != nil {
		logger.Error("model unavailable, serving error page", zap.Error(err))
	} else {
		logger.Info("classes", zap.Strings("labels", labels.Names()))
	}

	h := handlers.NewHandler(provider, handlers.Options{
		Threshold:      a.cfg.Report.Threshold,
		MaxUploadBytes: a.cfg.Server.MaxUploadBytes,
	}, logger)

	router := h.Router()
	router.Use(logging.Middleware(logger.Named("http")))

	srv := &http.Server{
		Handler:      router,
		Addr:         a.cfg.Server.Addr,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("model", a.cfg.Model.Path),
		)
		logger.Info("endpoints",
			zap.Strings("routes", []string{
				"GET / - upload page",
				"POST /predict - classify upload (HTML)",
				"POST /api/predict - classify upload (JSON)",
				"GET /health - health check",
			}),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
