package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v3"
	"github.com/shopspring/decimal"

	"github.com/punchamoorthee/tenmo/internal/domain"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"

	envPrefix = "TENMO"
)

type Config struct {
	DBSource        string
	Store           string
	Port            string
	Env             string
	LogLevel        string
	SeedUsers       int
	SeedBalance     decimal.Decimal
	Migrate         bool
	ShutdownTimeout time.Duration
}

// Load resolves configuration from args, then TENMO_* environment variables,
// then an optional .env file (path overridable with TENMO_ENV_FILE), then defaults.
func Load(args []string) (*Config, error) {
	envFile := os.Getenv(envPrefix + "_ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	// godotenv never overrides variables already present in the environment
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", envFile, err)
	}

	var (
		cfg         Config
		seedBalance string
	)
	fs := flag.NewFlagSet("tenmo", flag.ContinueOnError)
	fs.StringVar(&cfg.DBSource, "db-source", "", "Postgres connection URL")
	fs.StringVar(&cfg.Store, "store", StoreMemory, "Storage backend: memory | postgres")
	fs.StringVar(&cfg.Port, "port", "8080", "HTTP listen port")
	fs.StringVar(&cfg.Env, "env", "development", "Environment name")
	fs.StringVar(&cfg.LogLevel, "log-level", "", "Log level override (debug, info, warn, error)")
	fs.IntVar(&cfg.SeedUsers, "seed-users", 0, "Demo users to create in the memory backend")
	fs.StringVar(&seedBalance, "seed-balance", "1000.00", "Opening balance of seeded users")
	fs.BoolVar(&cfg.Migrate, "migrate", true, "Apply schema migrations on startup")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", 10*time.Second, "Graceful shutdown timeout")

	if err := ff.Parse(fs, args, ff.WithEnvVarPrefix(envPrefix)); err != nil {
		return nil, err
	}

	b, err := decimal.NewFromString(seedBalance)
	if err != nil || !domain.ValidBalance(b) {
		return nil, fmt.Errorf("seed-balance %q is not a valid balance", seedBalance)
	}
	cfg.SeedBalance = b

	switch cfg.Store {
	case StoreMemory:
	case StorePostgres:
		if cfg.DBSource == "" {
			return nil, fmt.Errorf("db-source (%s_DB_SOURCE) is required for the postgres store", envPrefix)
		}
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}

	if cfg.SeedUsers < 0 {
		return nil, fmt.Errorf("seed-users must not be negative")
	}

	return &cfg, nil
}
