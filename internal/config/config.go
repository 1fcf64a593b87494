// Package config collects the worker's environment settings into one
// validated struct, so a misconfigured deployment fails at startup instead
// of on the first message.
package config

import (
	"errors"
	"time"

	"github.com/go-playground/validator"

	"github.com/orgloom/livemap/backend/internal/util"
)

var validate = validator.New()

type Config struct {
	DatabaseURL    string `validate:"required"`
	MigrateOnStart bool
	MigrationsDir  string `validate:"required"`

	CacheBackend  string `validate:"oneof=memory redis"`
	RedisAddr     string
	RedisPassword string
	RedisDB       int `validate:"gte=0"`
	CacheTTL      time.Duration

	ClusterThreshold   float64 `validate:"gte=0,lte=1"`
	ClusterCutDistance float64 `validate:"gte=0,lte=2"`
	ClusterMinSize     int     `validate:"gte=1"`

	Debug bool
}

// Load reads the environment and validates the result. Blank variables fall
// back to their defaults.
func Load() (*Config, error) {
	migrationsDir := util.GetEnv("MIGRATIONS_DIR")
	if migrationsDir == "" {
		migrationsDir = "migrations"
	}
	cacheBackend := util.GetEnv("CACHE_BACKEND")
	if cacheBackend == "" {
		cacheBackend = "memory"
	}

	cfg := &Config{
		DatabaseURL:    util.GetEnv("DATABASE_URL"),
		MigrateOnStart: util.GetEnvBool("MIGRATE_ON_START", false),
		MigrationsDir:  migrationsDir,

		CacheBackend:  cacheBackend,
		RedisAddr:     util.GetEnv("REDIS_ADDR"),
		RedisPassword: util.GetEnv("REDIS_PASSWORD"),
		RedisDB:       int(util.GetEnvNumeric("REDIS_DB", 0)),
		CacheTTL:      time.Duration(util.GetEnvNumeric("CACHE_TTL_SECONDS", 300)) * time.Second,

		ClusterThreshold:   util.GetEnvFloat("CLUSTER_THRESHOLD", 0.3),
		ClusterCutDistance: util.GetEnvFloat("CLUSTER_CUT_DISTANCE", 0.8),
		ClusterMinSize:     int(util.GetEnvNumeric("CLUSTER_MIN_SIZE", 3)),

		Debug: util.GetEnvBool("DEBUG", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.CacheBackend == "redis" && c.RedisAddr == "" {
		return errors.New("REDIS_ADDR is required when CACHE_BACKEND is redis")
	}
	return nil
}
