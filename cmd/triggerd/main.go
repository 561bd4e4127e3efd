// Triggerd is the fast-trigger daemon for LOFAR international stations.
//
// It loads configuration, starts the HTTP/WebSocket API and runs alerts
// through the trigger pipeline one at a time, optionally feeding itself
// synthetic alerts in demo mode. Shutdown is handled gracefully on SIGINT
// or SIGTERM.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/large-farva/fast-trigger/internal/app"
	"github.com/large-farva/fast-trigger/internal/config"
	"github.com/large-farva/fast-trigger/internal/logging"
	"github.com/large-farva/fast-trigger/internal/ws"
)

func main() {
	var (
		configPath = pflag.StringP("config", "c", "", "Path to config TOML (built-in defaults when empty)")
		bind       = pflag.String("bind", "", "HTTP bind address (overrides server.bind)")
		demo       = pflag.Bool("demo", false, "Generate synthetic alerts (always dry runs)")
		live       = pflag.Bool("live", false, "Send observations to stations by default instead of dry runs")
		logLevel   = pflag.String("log-level", "", "Log level (overrides logging.level)")
	)
	pflag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "triggerd: config load failed: %v\n", err)
			os.Exit(1)
		}
	}
	if *demo {
		cfg.Demo.Enabled = true
	}
	if *live {
		cfg.Trigger.Debug = false
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	// The hub logs only to the terminal so its own records never loop back
	// onto the stream.
	hubLog, err := logging.Setup(cfg.Logging.Level, cfg.Logging.Format, os.Stderr, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "triggerd: %v\n", err)
		os.Exit(1)
	}
	hub := ws.NewHub(hubLog)
	logger, err := logging.Setup(cfg.Logging.Level, cfg.Logging.Format, os.Stderr,
		logging.EventWriter{Hub: hub, Min: zerolog.InfoLevel})
	if err != nil {
		fmt.Fprintf(os.Stderr, "triggerd: %v\n", err)
		os.Exit(1)
	}

	a, err := app.New(app.Options{
		Logger: logger,
		Cfg:    cfg,
		Bind:   *bind,
		Hub:    hub,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("startup failed")
	}
	if !cfg.Trigger.Debug {
		logger.Warn().Msg("live mode: observation requests will be sent to stations")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("triggerd failed")
	}

	// Brief pause so in-flight log writes can flush before exit.
	time.Sleep(50 * time.Millisecond)
}
