package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is loaded from the environment at startup. A missing signing
// secret is a fatal configuration error here, never a call-time error.
type Config struct {
	Secret   string `env:"AUTH_SECRET"`
	Issuer   string `env:"AUTH_ISSUER" envDefault:"shelfmark"`
	Audience string `env:"AUTH_AUDIENCE" envDefault:"shelfmark-api"`

	AccessTokenTTL      time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTokenTTL     time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`
	MaxTokenAge         time.Duration `env:"MAX_TOKEN_AGE" envDefault:"24h"`
	RevocationRetention time.Duration `env:"REVOCATION_RETENTION" envDefault:"168h"`
	RotationWindow      time.Duration `env:"ROTATION_WINDOW" envDefault:"5m"`
	RotationGrace       time.Duration `env:"ROTATION_GRACE" envDefault:"0s"`
	ReactivationWindow  time.Duration `env:"REACTIVATION_WINDOW" envDefault:"1h"`

	EventBufferSize int `env:"EVENT_BUFFER_SIZE" envDefault:"256"`

	LoginRatePerMinute int `env:"LOGIN_RATE_LIMIT" envDefault:"5"`
	LoginRateBurst     int `env:"LOGIN_RATE_BURST" envDefault:"5"`

	DatabaseFile         string        `env:"DATABASE_FILE" envDefault:"shelfmark.db"`
	Port                 int           `env:"PORT" envDefault:"8080"`
	Env                  string        `env:"ENV" envDefault:"dev"`
	LogLevel             string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat            string        `env:"LOG_FORMAT" envDefault:"json"`
	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL" envDefault:"1h"`
	ShutdownGracePeriod  time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`
}

// LoadConfig parses the environment and validates the parts that must be
// right before anything else starts.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if cfg.Secret == "" {
		return Config{}, errors.New("config: AUTH_SECRET is required")
	}
	if cfg.RefreshTokenTTL > cfg.RevocationRetention {
		// A revocation entry must outlive any token that could cite it.
		return Config{}, errors.New("config: REVOCATION_RETENTION must be >= REFRESH_TOKEN_TTL")
	}

	return cfg, nil
}
