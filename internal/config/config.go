// Package config loads server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every runtime setting. Zero values are never used directly;
// each field carries its default in the envDefault tag.
type Config struct {
	Host      string `env:"HOST"`
	Port      int    `env:"PORT"       envDefault:"8080"`
	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	ClientOrigin string `env:"CLIENT_ORIGIN" envDefault:"http://localhost:5173"`
	StaticDir    string `env:"STATIC_DIR"`

	KanjiFile string `env:"KANJI_FILE"`
	WordsFile string `env:"WORDS_FILE"`
	DailySalt string `env:"DAILY_SALT" envDefault:"local_dev_salt"`

	LobbyTTL        time.Duration `env:"LOBBY_TTL"         envDefault:"30m"`
	JanitorInterval time.Duration `env:"JANITOR_INTERVAL"  envDefault:"1m"`
	RotateOnCorrect bool          `env:"ROTATE_ON_CORRECT" envDefault:"false"`

	JWTSecret string        `env:"JWT_SECRET" envDefault:"dev_secret_change_me"`
	TokenTTL  time.Duration `env:"TOKEN_TTL"  envDefault:"24h"`

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS"   envDefault:"20"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"40"`

	DatabasePath string `env:"DATABASE_PATH"`
	DatabaseURL  string `env:"DATABASE_URL"`
}

// Load reads an optional .env file and then parses the environment.
// Variables already set in the environment win over .env entries.
func Load(files ...string) (Config, error) {
	_ = godotenv.Load(files...)
	return Parse()
}

// Parse parses the current environment without touching .env files.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}
	if c.LobbyTTL < 0 {
		errs = append(errs, errors.New("LOBBY_TTL must not be negative"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET must not be empty"))
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		errs = append(errs, errors.New("rate limits must not be negative"))
	}
	return errors.Join(errs...)
}

// Addr is the listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// UsesDefaultSecret reports whether JWT_SECRET was left at its development value.
func (c Config) UsesDefaultSecret() bool {
	return c.JWTSecret == "dev_secret_change_me"
}
