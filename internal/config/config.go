// Package config reads settings from the environment and an optional .env file.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"l10n-phrasebook/internal/phrasebook"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config struct {
	DatabaseURL   string
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string

	WorkerCount       int
	RetryInitialDelay time.Duration
	RetryMaxDelay     time.Duration
	RetryDeadline     time.Duration
	UnderflowPolicy   phrasebook.UnderflowPolicy
	AdoptUntracked    bool
	BlankLabelKeeps   bool
	LogLevel          zerolog.Level
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment variables")
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() *Config {
	retry := phrasebook.DefaultRetryPolicy()
	return &Config{
		DatabaseURL:       getEnv("DATABASE_URL", "postgres://localhost:5432/phrasebook?sslmode=disable"),
		Neo4jURI:          getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:         getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword:     getEnv("NEO4J_PASSWORD", "password"),
		WorkerCount:       getEnvInt("WORKER_COUNT", 8),
		RetryInitialDelay: getEnvDuration("RETRY_INITIAL_DELAY", retry.InitialDelay),
		RetryMaxDelay:     getEnvDuration("RETRY_MAX_DELAY", retry.MaxDelay),
		RetryDeadline:     getEnvDuration("RETRY_DEADLINE", retry.Deadline),
		UnderflowPolicy:   getEnvUnderflow("UNDERFLOW_POLICY", phrasebook.UnderflowDiscard),
		AdoptUntracked:    getEnvBool("ADOPT_UNTRACKED", false),
		BlankLabelKeeps:   getEnvBool("BLANK_LABEL_KEEPS_NAME", false),
		LogLevel:          getEnvLevel("LOG_LEVEL", zerolog.InfoLevel),
	}
}

// Options translates the configuration into index options.
func (c *Config) Options() []phrasebook.Option {
	return []phrasebook.Option{
		phrasebook.WithWorkers(c.WorkerCount),
		phrasebook.WithRetryPolicy(phrasebook.RetryPolicy{
			InitialDelay: c.RetryInitialDelay,
			MaxDelay:     c.RetryMaxDelay,
			Deadline:     c.RetryDeadline,
		}),
		phrasebook.WithUnderflowPolicy(c.UnderflowPolicy),
		phrasebook.WithAdoptUntracked(c.AdoptUntracked),
		phrasebook.WithBlankLabelKeepsName(c.BlankLabelKeeps),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Invalid integer, using default")
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Invalid boolean, using default")
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Warn().Str("key", key).Str("value", v).Msg("Invalid duration, using default")
		return fallback
	}
	return d
}

func getEnvUnderflow(key string, fallback phrasebook.UnderflowPolicy) phrasebook.UnderflowPolicy {
	switch v := strings.ToLower(os.Getenv(key)); v {
	case "":
		return fallback
	case "discard":
		return phrasebook.UnderflowDiscard
	case "keep":
		return phrasebook.UnderflowKeepLastGood
	default:
		log.Warn().Str("key", key).Str("value", v).Msg("Unknown underflow policy, using default")
		return fallback
	}
}

func getEnvLevel(key string, fallback zerolog.Level) zerolog.Level {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	level, err := zerolog.ParseLevel(strings.ToLower(v))
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Unknown log level, using default")
		return fallback
	}
	return level
}
