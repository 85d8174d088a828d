package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// newHTTPServer creates the HTTP server for the configured port.
func (app *application) newHTTPServer(handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", app.config.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// serveHTTP returns a function suitable for an errgroup: it serves until
// ctx is done and then shuts the server down within the shutdown timeout.
func (app *application) serveHTTP(ctx context.Context, server *http.Server) func() error {
	return func() error {
		errCh := make(chan error, 1)
		go func() {
			app.logger.Info("starting server", "addr", server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err, ok := <-errCh:
			if ok {
				return fmt.Errorf("server failed: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		app.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		app.logger.Info("server shutdown completed")
		return nil
	}
}
