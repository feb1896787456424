package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/0xReLogic/slowpoke/internal/config"
	"github.com/0xReLogic/slowpoke/internal/logging"
)

const (
	configEnvVar      = "SLOWPOKE_CONFIG"
	defaultConfigPath = "slowpoke.yaml"
)

func main() {
	port, hasPort, err := parsePort(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintf(os.Stderr, "usage: %s [port]\n", os.Args[0])
		os.Exit(2)
	}

	cfg, err := loadConfig()
	if err != nil {
		logger := logging.L()
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	if hasPort {
		cfg.Server.Port = port
	}

	logging.Init(cfg.Logging)
	logger := logging.L()

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	handler, err := buildHandler(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build handler")
	}

	server := createHTTPServer(cfg, handler)
	logStartupInfo(cfg)

	serverErrors := make(chan error, 1)
	startHTTPServer(server, cfg, serverErrors)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	case sig := <-shutdown:
		logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
		shutdownGracefully(server, time.Duration(cfg.Server.Timeouts.Shutdown)*time.Second)
	}
}

// loadConfig reads the file named by SLOWPOKE_CONFIG, or slowpoke.yaml when
// present, or falls back to defaults.
func loadConfig() (*config.Config, error) {
	if path := os.Getenv(configEnvVar); path != "" {
		return config.LoadConfig(path)
	}
	return config.LoadOptional(defaultConfigPath)
}
