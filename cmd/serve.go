package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := openBackends(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.close()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           buildRouter(cfg, logger, b, newEmailService(cfg, logger)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- listen(srv)
	}()
	logger.Info("server listening", zap.String("addr", srv.Addr), zap.Bool("tls", cfg.TLS.EnableTLS))

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
		return err
	}
	logger.Info("server exiting")
	return nil
}

func listen(srv *http.Server) error {
	if !cfg.TLS.EnableTLS {
		return srv.ListenAndServe()
	}

	tlsConfig, certFile, keyFile, err := buildTLSConfig(cfg)
	if err != nil {
		return err
	}
	srv.TLSConfig = tlsConfig
	return srv.ListenAndServeTLS(certFile, keyFile)
}
