package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

const (
	// RenderSessionsDir is the persistent disk mounted on Render deployments.
	RenderSessionsDir = "/opt/render/project/src/sessions"
	defaultSessionsDir = "sessions"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"3000"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	Render      bool   `env:"RENDER" default:"false"`
	SessionsDir string `env:"SESSIONS_DIR"`

	SessionIDPrefix string `env:"SESSION_ID_PREFIX" default:"tunzymd2_"`
	BrowserName     string `env:"BROWSER_NAME" default:"TUNZY-MD2"`
	WALogLevel      string `env:"WA_LOG_LEVEL" default:"warn"`
	PrintQR         bool   `env:"PRINT_QR_IN_TERMINAL" default:"false"`

	PairingSettleDelay time.Duration `env:"PAIRING_SETTLE_DELAY" default:"2s"`
	RequestTimeout     time.Duration `env:"REQUEST_TIMEOUT" default:"60s"`
	SessionTTL         time.Duration `env:"SESSION_TTL" default:"5m"`
	EvictionInterval   time.Duration `env:"EVICTION_INTERVAL" default:"30s"`
	MaxLiveClients     int           `env:"MAX_LIVE_CLIENTS" default:"100"`
	PruneUnlinked      bool          `env:"PRUNE_UNLINKED" default:"true"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// SessionsRoot resolves where per-session credential directories live.
// An explicit SESSIONS_DIR wins over the Render persistent disk.
func (c *Config) SessionsRoot() string {
	if c.SessionsDir != "" {
		return c.SessionsDir
	}
	if c.Render {
		return RenderSessionsDir
	}
	return defaultSessionsDir
}

func validate(cfg *Config) error {
	port, err := strconv.Atoi(cfg.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be a number between 1 and 65535, got %q", cfg.Port)
	}

	if cfg.SessionIDPrefix == "" {
		return errors.New("SESSION_ID_PREFIX must not be empty")
	}
	if strings.ContainsAny(cfg.SessionIDPrefix, `/\.`) {
		return fmt.Errorf("SESSION_ID_PREFIX must not contain path characters, got %q", cfg.SessionIDPrefix)
	}

	durations := map[string]time.Duration{
		"REQUEST_TIMEOUT":   cfg.RequestTimeout,
		"SESSION_TTL":       cfg.SessionTTL,
		"EVICTION_INTERVAL": cfg.EvictionInterval,
	}
	for name, value := range durations {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if cfg.PairingSettleDelay < 0 {
		return errors.New("PAIRING_SETTLE_DELAY must not be negative")
	}
	if cfg.SessionTTL < cfg.RequestTimeout {
		return errors.New("SESSION_TTL must be at least REQUEST_TIMEOUT")
	}

	if cfg.MaxLiveClients < 1 {
		return fmt.Errorf("MAX_LIVE_CLIENTS must be at least 1, got %d", cfg.MaxLiveClients)
	}

	return nil
}
