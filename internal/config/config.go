package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath   string     `env:"DB_PATH" envDefault:"data/scoreboard.db"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	SPADir   string     `env:"SPA_DIR" envDefault:"../web/dist"`

	// StateID names the live MatchState document.
	StateID string `env:"STATE_ID" envDefault:"current"`

	// BroadcastURL selects the notifier transport: empty or "local" for
	// in-process only, redis://... or nats://... to fan out across processes.
	BroadcastURL     string `env:"BROADCAST_URL"`
	BroadcastChannel string `env:"BROADCAST_CHANNEL" envDefault:"scoreboard-overlay"`

	FeedPollInterval time.Duration `env:"FEED_POLL_INTERVAL" envDefault:"250ms"`

	ShotClockEnabled bool          `env:"SHOT_CLOCK_ENABLED" envDefault:"true"`
	ShotClockTick    time.Duration `env:"SHOT_CLOCK_TICK" envDefault:"1s"`

	MaxUploadBytes int64    `env:"MAX_UPLOAD_BYTES" envDefault:"10485760"`
	CORSOrigins    []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if cfg.StateID == "" {
		return nil, fmt.Errorf("STATE_ID must not be empty")
	}
	if cfg.ShotClockTick <= 0 {
		return nil, fmt.Errorf("SHOT_CLOCK_TICK must be positive, got %s", cfg.ShotClockTick)
	}
	return &cfg, nil
}
