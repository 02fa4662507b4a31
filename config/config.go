// Package config loads server settings from the environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type Config struct {
	Addr            string
	DBPath          string
	DatabaseURL     string
	LogLevel        zerolog.Level
	PremiumLocation string
	LocationUplift  decimal.Decimal
	CORSOrigins     []string
	ShutdownTimeout time.Duration

	// Warnings lists malformed values that were replaced by defaults. The
	// logger is not configured yet when Load runs, so the caller logs them.
	Warnings []string
}

// Load reads a .env file if one exists, then the environment. Unset values
// take defaults; malformed values take defaults and add a warning.
func Load() Config {
	_ = godotenv.Load()

	var l loader
	cfg := Config{
		Addr:            l.getEnv("APP_ADDR", ":8080"),
		DBPath:          l.getEnv("DB_PATH", "payroll.db"),
		DatabaseURL:     l.getEnv("DATABASE_URL", ""),
		LogLevel:        l.getEnvLevel("LOG_LEVEL", zerolog.InfoLevel),
		PremiumLocation: l.getEnv("PREMIUM_LOCATION", "LONDON"),
		LocationUplift:  l.getEnvDecimal("LOCATION_UPLIFT", decimal.NewFromFloat(1.2)),
		CORSOrigins:     l.getEnvList("CORS_ORIGINS", []string{"http://localhost:5173", "http://localhost:8080"}),
		ShutdownTimeout: l.getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}
	cfg.Warnings = l.warnings
	return cfg
}

type loader struct {
	warnings []string
}

func (l *loader) warn(key, value string, fallback any) {
	l.warnings = append(l.warnings, fmt.Sprintf("%s=%q is invalid, using %v", key, value, fallback))
}

func (l *loader) getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func (l *loader) getEnvLevel(key string, fallback zerolog.Level) zerolog.Level {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	level, err := zerolog.ParseLevel(strings.ToLower(value))
	if err != nil {
		l.warn(key, value, fallback)
		return fallback
	}
	return level
}

// getEnvDecimal accepts positive decimals only.
func (l *loader) getEnvDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := decimal.NewFromString(value)
	if err != nil || !d.IsPositive() {
		l.warn(key, value, fallback)
		return fallback
	}
	return d
}

func (l *loader) getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		l.warn(key, value, fallback)
		return fallback
	}
	return items
}

func (l *loader) getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		l.warn(key, value, fallback)
		return fallback
	}
	return d
}
