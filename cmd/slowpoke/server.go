package main

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/0xReLogic/slowpoke/internal/config"
	"github.com/0xReLogic/slowpoke/internal/delay"
	"github.com/0xReLogic/slowpoke/internal/handler"
	"github.com/0xReLogic/slowpoke/internal/limiter"
	"github.com/0xReLogic/slowpoke/internal/logging"
)

// parsePort reads the optional positional port argument.
func parsePort(args []string) (int, bool, error) {
	switch len(args) {
	case 0:
		return 0, false, nil
	case 1:
		port, err := strconv.Atoi(args[0])
		if err != nil {
			return 0, false, fmt.Errorf("invalid port %q: not an integer", args[0])
		}
		if port < 0 || port > 65535 {
			return 0, false, fmt.Errorf("invalid port %d: must be between 0 and 65535", port)
		}
		return port, true, nil
	default:
		return 0, false, fmt.Errorf("expected at most one argument, got %d", len(args))
	}
}

// buildHandler wraps the reverse handler with the configured middleware.
// Outermost first: request context, access log, in-flight limiter.
func buildHandler(cfg *config.Config) (http.Handler, error) {
	source, err := delay.NewUniform(cfg.Delay.MinSeconds, cfg.Delay.MaxSeconds)
	if err != nil {
		return nil, fmt.Errorf("failed to create delay source: %w", err)
	}

	var h http.Handler = handler.New(source)
	h = limiter.New(cfg.Limits.MaxInFlight, cfg.QueueWait()).Middleware(h)
	if cfg.Logging.AccessLog {
		h = logging.AccessLogMiddleware()(h)
	}
	h = logging.RequestContextMiddleware(cfg.Logging)(h)

	return h, nil
}

// createHTTPServer creates and configures the HTTP server
func createHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      h,
		ReadTimeout:  time.Duration(cfg.Server.Timeouts.Read) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.Timeouts.Write) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.Timeouts.Idle) * time.Second,
	}
}

// startHTTPServer starts the HTTP server in a goroutine
func startHTTPServer(server *http.Server, cfg *config.Config, serverErrors chan<- error) {
	logger := logging.L()

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("listening for http")
		logger.Info().
			Dur("read_timeout", server.ReadTimeout).
			Dur("write_timeout", server.WriteTimeout).
			Dur("idle_timeout", server.IdleTimeout).
			Msg("server timeouts configured")

		serverErrors <- server.ListenAndServe()
	}()
}

// logStartupInfo logs server startup information
func logStartupInfo(cfg *config.Config) {
	logger := logging.L()

	logger.Info().Int("port", cfg.Server.Port).Msg("slowpoke starting")
	logger.Info().
		Int("min_seconds", cfg.Delay.MinSeconds).
		Int("max_seconds", cfg.Delay.MaxSeconds).
		Msg("reply delay range")

	if cfg.Limits.MaxInFlight > 0 {
		logger.Info().
			Int("max_in_flight", cfg.Limits.MaxInFlight).
			Dur("max_queue_wait", cfg.QueueWait()).
			Msg("in-flight limit enabled")
	} else {
		logger.Info().Msg("in-flight limit disabled")
	}

	if cfg.Logging.RequestID.Enabled {
		logger.Info().Str("header", logging.RequestHeaderName(cfg.Logging)).Msg("request ids enabled")
	}
}

// shutdownGracefully waits up to shutdownTimeout for delayed requests to finish
func shutdownGracefully(server *http.Server, shutdownTimeout time.Duration) {
	logger := logging.L()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logger.Info().Dur("timeout", shutdownTimeout).Msg("shutting down server gracefully")

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("error during server shutdown")
		if closeErr := server.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("error closing server")
		}
	}

	logger.Info().Msg("server shutdown complete")
}
