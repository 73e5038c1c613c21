package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds the application configuration.
type Config struct {
	ServerPort int    `env:"PORT" envDefault:"4000"`
	AppEnv     string `env:"APP_ENV" envDefault:"development"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`

	DatabaseDriver string `env:"DATABASE_DRIVER" envDefault:"sqlite"`
	DatabaseURL    string `env:"DATABASE_URL" envDefault:"file:goodcontent.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"`

	JWTSecret    string `env:"JWT_SECRET,notEmpty"`
	InviteSecret string `env:"INVITE_SECRET"`
	BcryptCost   int    `env:"BCRYPT_COST" envDefault:"10"`
	AdminAPIKey  string `env:"ADMIN_API_KEY"`

	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`

	EventRetention     time.Duration `env:"EVENT_RETENTION" envDefault:"720h"`
	EventPruneSchedule string        `env:"EVENT_PRUNE_SCHEDULE" envDefault:"@daily"`
}

// IsProduction reports whether secure-only cookies and JSON logs should be used.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Load reads a local .env file when present, then parses the environment.
func Load() (*Config, error) {
	// Missing .env is fine; deployed environments set real variables.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that struct tags cannot express.
func (c *Config) Validate() error {
	var errs []error
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.ServerPort))
	}
	switch c.DatabaseDriver {
	case DriverSQLite, DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver))
	}
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL must not be empty"))
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost))
	}
	if c.EventRetention <= 0 {
		errs = append(errs, errors.New("EVENT_RETENTION must be positive"))
	}
	return errors.Join(errs...)
}
