// Package config loads container settings from .env files and the environment.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config is the typed view of the IOC_* environment variables.
type Config struct {
	Env              string // local | production | testing
	LogLevel         string // debug | info | warn | error
	LogFormat        string // text | json; empty picks by Env
	ShutdownForce    bool
	HTTPAddr         string
	MetricsNamespace string
	Redis            RedisConfig
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// Ping makes the provider verify the connection during startup.
	Ping bool
}

// Load reads .env files (if present) and builds a Config from the environment.
// Variables already set in the environment win over file values.
func Load(envFiles ...string) *Config {
	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		// Missing files are fine: production sets the environment directly.
		_ = godotenv.Load(f)
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() *Config {
	return &Config{
		Env:              env("IOC_ENV", "local"),
		LogLevel:         strings.ToLower(env("IOC_LOG_LEVEL", "")),
		LogFormat:        strings.ToLower(env("IOC_LOG_FORMAT", "")),
		ShutdownForce:    envBool("IOC_SHUTDOWN_FORCE", false),
		HTTPAddr:         env("IOC_HTTP_ADDR", ":8080"),
		MetricsNamespace: env("IOC_METRICS_NAMESPACE", "ioc"),
		Redis: RedisConfig{
			Addr:     env("IOC_REDIS_ADDR", ""),
			Password: env("IOC_REDIS_PASSWORD", ""),
			DB:       envInt("IOC_REDIS_DB", 0),
			Ping:     envBool("IOC_REDIS_PING", true),
		},
	}
}

// IsProduction reports whether Env names a production deployment.
func (c *Config) IsProduction() bool {
	switch c.Env {
	case "production", "prod":
		return true
	}
	return false
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}
