// Package config loads server settings from DUEL_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	HTTPAddr string `env:"DUEL_HTTP_ADDR" envDefault:":8080"`

	StoreDriver   string `env:"DUEL_STORE_DRIVER" envDefault:"memory"`
	DSN           string `env:"DUEL_DB_DSN"`
	MigrationsDir string `env:"DUEL_MIGRATIONS_DIR" envDefault:"./migrations"`
	AutoMigrate   bool   `env:"DUEL_AUTO_MIGRATE" envDefault:"true"`

	MaxHP         int           `env:"DUEL_MAX_HP" envDefault:"40"`
	TurnDuration  time.Duration `env:"DUEL_TURN_DURATION" envDefault:"30s"`
	WatchInterval time.Duration `env:"DUEL_WATCH_INTERVAL" envDefault:"1s"`
	IdleTimeout   time.Duration `env:"DUEL_IDLE_TIMEOUT" envDefault:"30m"`
	EvictInterval time.Duration `env:"DUEL_EVICT_INTERVAL" envDefault:"1m"`
	StrictJoin    bool          `env:"DUEL_STRICT_JOIN" envDefault:"false"`

	TokenSecret string        `env:"DUEL_TOKEN_SECRET"`
	TokenTTL    time.Duration `env:"DUEL_TOKEN_TTL" envDefault:"24h"`

	NATSURL    string `env:"DUEL_NATS_URL"`
	NATSPrefix string `env:"DUEL_NATS_PREFIX" envDefault:"duel"`

	RedisAddr     string        `env:"DUEL_REDIS_ADDR"`
	RedisPassword string        `env:"DUEL_REDIS_PASSWORD"`
	RedisDB       int           `env:"DUEL_REDIS_DB" envDefault:"0"`
	PresenceTTL   time.Duration `env:"DUEL_PRESENCE_TTL" envDefault:"2m"`

	SubmitRate  float64 `env:"DUEL_SUBMIT_RATE" envDefault:"5"`
	SubmitBurst int     `env:"DUEL_SUBMIT_BURST" envDefault:"10"`

	LogLevel  string `env:"DUEL_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"DUEL_LOG_FORMAT" envDefault:"json"`
}

// Load reads the process environment.
func Load() (Config, error) {
	return parse(env.Options{})
}

// LoadFrom reads the given variables instead of the process environment.
func LoadFrom(vars map[string]string) (Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	switch c.StoreDriver {
	case DriverMemory:
	case DriverPostgres, DriverSQLite:
		if strings.TrimSpace(c.DSN) == "" {
			errs = append(errs, fmt.Errorf("DUEL_DB_DSN is required for store driver %q", c.StoreDriver))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.StoreDriver))
	}
	if c.MaxHP <= 0 {
		errs = append(errs, errors.New("DUEL_MAX_HP must be positive"))
	}
	for name, d := range map[string]time.Duration{
		"DUEL_TURN_DURATION":  c.TurnDuration,
		"DUEL_WATCH_INTERVAL": c.WatchInterval,
		"DUEL_IDLE_TIMEOUT":   c.IdleTimeout,
		"DUEL_EVICT_INTERVAL": c.EvictInterval,
		"DUEL_TOKEN_TTL":      c.TokenTTL,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	if c.SubmitRate <= 0 || c.SubmitBurst <= 0 {
		errs = append(errs, errors.New("DUEL_SUBMIT_RATE and DUEL_SUBMIT_BURST must be positive"))
	}
	return errors.Join(errs...)
}
