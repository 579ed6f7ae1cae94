package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port        string   `yaml:"port"`
		CORSOrigins []string `yaml:"cors_origins"`
	} `yaml:"server"`
	API struct {
		BaseURL   string  `yaml:"base_url"`
		Timeout   string  `yaml:"timeout"`
		RateLimit float64 `yaml:"rate_limit"` // requests per second, 0 disables
		Burst     int     `yaml:"burst"`
	} `yaml:"api"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		Source      string `yaml:"source"` // api | postgres
		TTL         string `yaml:"ttl"`
		SessionTTL  string `yaml:"session_ttl"` // idle time before a session is evicted
		AutoAdvance string `yaml:"auto_advance"`
	} `yaml:"quiz"`
	Notify struct {
		Transport string `yaml:"transport"` // redis | amqp | websocket | none
		Channel   string `yaml:"channel"`
		Event     string `yaml:"event"`
		URL       string `yaml:"url"`
		Exchange  string `yaml:"exchange"`
	} `yaml:"notify"`
	Log struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"log"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	cfg := Config{}
	cfg.Server.Port = "8080"
	cfg.API.BaseURL = "http://localhost:5000"
	cfg.API.Timeout = "10s"
	cfg.Quiz.Source = "api"
	cfg.Quiz.TTL = "10m"
	cfg.Quiz.SessionTTL = "30m"
	cfg.Quiz.AutoAdvance = "500ms"
	cfg.Notify.Transport = "none"
	cfg.Notify.Channel = "quiz-events"
	cfg.Notify.Event = "student-submitted"
	cfg.Notify.Exchange = "quiz-events"
	cfg.Log.Level = "info"
	return cfg
}

// Load reads YAML config from path on top of the defaults.
// A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
