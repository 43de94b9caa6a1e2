package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"flowgate/agent/internal/config"
	"flowgate/agent/internal/logger"
	"flowgate/agent/internal/poller"
)

func main() {
	var (
		deviceID = flag.String("device-id", "", "Gateway device id (overrides config)")
		interval = flag.Duration("poll-interval", 0, "Poll interval (overrides config)")
	)
	flag.Parse()

	cfg := config.Init()
	if *deviceID != "" {
		cfg.DeviceID = *deviceID
	}
	if *interval > 0 {
		cfg.PollInterval = *interval
	}

	if err := logger.Init(cfg.LogPath); err != nil {
		os.Exit(1)
	}
	if cfg.DeviceID == "" {
		logger.Error("device id is required (agent.device_id or --device-id)")
		os.Exit(1)
	}
	if cfg.APIKey == "" {
		logger.Error("API key is required (agent.api_key)")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Infof("flowgate agent polling %s as %s every %v", cfg.BackendURL, cfg.DeviceID, cfg.PollInterval)
	p := poller.New(cfg.BackendURL, cfg.APIKey, cfg.DeviceID, cfg.PollInterval)
	p.Run(ctx)

	logger.Info("agent stopped")
}
