package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Supported database types
const (
	DatabaseSQLite   = "sqlite"
	DatabasePostgres = "postgres"
)

type Config struct {
	Port           int    `env:"PORT" envDefault:"3318"`
	DatabaseURL    string `env:"DATABASE_URL"`
	DatabaseType   string `env:"DATABASE_TYPE" envDefault:"sqlite"`
	AdminKeySalt   string `env:"ADMIN_KEY_SALT"`
	WalkSlugSalt   string `env:"WALK_SLUG_SALT"`
	IPHashSalt     string `env:"IP_HASH_SALT"`
	MaxUploadBytes int64  `env:"MAX_UPLOAD_BYTES" envDefault:"10485760"`
	MaxRows        int    `env:"MAX_ROWS" envDefault:"50000"`
	BaseURL        string `env:"BASE_URL" envDefault:"http://localhost:3318"`
	OTelEndpoint   string `env:"OTEL_ENDPOINT"`
}

// ParseFlags builds the config from an optional .env file, the environment
// and CLI flags, in increasing order of precedence
func ParseFlags(args []string) (Config, error) {
	var flags Config
	var envFile string

	fs := flag.NewFlagSet("route-optimiser", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&flags.Port, "p", 0, "Server port")
	fs.StringVar(&flags.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&flags.DatabaseType, "t", "", "Database type (sqlite or postgres)")
	fs.StringVar(&flags.BaseURL, "base-url", "", "Public base URL for walk sheet links")
	fs.StringVar(&envFile, "env-file", ".env", "Optional dotenv file")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&flags.AdminKeySalt, "admin-salt", "", "Admin key salt (prefer env)")
	fs.StringVar(&flags.WalkSlugSalt, "slug-salt", "", "Walk slug salt (prefer env)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if err := loadEnvFile(envFile); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	// Flags override env
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "p":
			cfg.Port = flags.Port
		case "d":
			cfg.DatabaseURL = flags.DatabaseURL
		case "t":
			cfg.DatabaseType = flags.DatabaseType
		case "base-url":
			cfg.BaseURL = flags.BaseURL
		case "admin-salt":
			cfg.AdminKeySalt = flags.AdminKeySalt
		case "slug-salt":
			cfg.WalkSlugSalt = flags.WalkSlugSalt
		}
	})

	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}
	if cfg.DatabaseType != DatabaseSQLite && cfg.DatabaseType != DatabasePostgres {
		return Config{}, fmt.Errorf("unsupported database type %q", cfg.DatabaseType)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("invalid port %d", cfg.Port)
	}

	// Secrets - MUST be provided
	if cfg.AdminKeySalt == "" {
		return Config{}, errors.New("ADMIN_KEY_SALT required")
	}
	if cfg.WalkSlugSalt == "" {
		return Config{}, errors.New("WALK_SLUG_SALT required")
	}
	if cfg.IPHashSalt == "" {
		cfg.IPHashSalt = cfg.AdminKeySalt
	}

	return cfg, nil
}

// loadEnvFile reads KEY=value pairs into the environment without overriding
// variables that are already set. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
