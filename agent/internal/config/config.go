package config

import (
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	BackendURL   string
	APIKey       string
	DeviceID     string
	PollInterval time.Duration
	LogPath      string
}

var cfg AppConfig

func Init() AppConfig {
	v := viper.New()
	v.SetConfigFile("config/config.yaml")
	v.SetConfigType("yaml")

	// defaults
	v.SetDefault("agent.backend_url", "http://127.0.0.1:9400")
	v.SetDefault("agent.poll_interval", "5s")
	_ = v.ReadInConfig()

	cfg = AppConfig{
		BackendURL:   v.GetString("agent.backend_url"),
		APIKey:       v.GetString("agent.api_key"),
		DeviceID:     v.GetString("agent.device_id"),
		PollInterval: v.GetDuration("agent.poll_interval"),
		LogPath:      v.GetString("agent.log_path"),
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	return cfg
}

func Get() AppConfig { return cfg }
