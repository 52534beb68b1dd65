// Package main provides the player daemon entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	apiconnect "github.com/osa030/tunemap/internal/api/connect"
	"github.com/osa030/tunemap/internal/app/notification"
	"github.com/osa030/tunemap/internal/app/playback"
	"github.com/osa030/tunemap/internal/infra/config"
	"github.com/osa030/tunemap/internal/infra/logger"
	"github.com/osa030/tunemap/internal/infra/mpv"
)

var (
	app        = kingpin.New("tunemapd", "tunemap player daemon")
	configPath = app.Flag("config", "Path to config file").Default("config/tunemap.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	kingpin.MustParse(app.Parse(os.Args[1:]))

	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Daemon error: %v", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file, falling back to defaults when it does not exist.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		zlog.Info().Msgf("Config file %s not found, using defaults", path)
		return config.Default()
	}
	zlog.Info().Msgf("Loading config from %s", path)
	return config.Load(path)
}

// run executes the daemon. Using a separate function ensures deferred
// cleanup runs even when returning with an error.
func run(cfg *config.Config) error {
	engine, err := mpv.New(mpv.Config{
		PollInterval: cfg.PollInterval(),
		AudioDevice:  cfg.Player.AudioDevice,
	})
	if err != nil {
		return errors.Wrap(err, "failed to start audio engine")
	}
	defer func() {
		if err := engine.Close(); err != nil {
			zlog.Error().Msgf("Failed to close audio engine: %v", err)
		}
	}()

	coordinator := playback.NewCoordinator(engine, playback.Config{
		MediaBaseURL:    cfg.Player.MediaBaseURL,
		InitialVolume:   cfg.Player.InitialVolume,
		SeekSuppression: cfg.SeekSuppression(),
	})
	defer coordinator.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	notifications := notification.NewManager()
	defer notifications.Close()

	service := apiconnect.NewPlayerService(coordinator, notifications)

	go coordinator.Run(ctx)
	go service.Run(ctx)

	mux := http.NewServeMux()
	path, handler := apiconnect.NewPlayerServiceHandler(
		service,
		connect.WithInterceptors(apiconnect.NewControlAuthInterceptor(cfg.Control.Token)),
	)
	mux.Handle(path, handler)
	if cfg.Control.Token == "" {
		zlog.Warn().Msg("Control token not configured, the player API is open to any local client")
	}

	server := &http.Server{
		Addr:              cfg.Control.Addr,
		Handler:           h2c.NewHandler(mux, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		zlog.Info().Msgf("Starting control API: addr=%s", cfg.Control.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-serverErrCh:
		return errors.Wrap(err, "control API error")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Stop the event pump first so open subscriptions return
	cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown control API: %v", err)
	}

	zlog.Info().Msg("Daemon stopped")
	return nil
}
