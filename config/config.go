// Package config loads server configuration from flags, the environment
// and an optional .env file. Flags win over the environment.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/warp/leave-engine/leave"
)

type Config struct {
	Port        int
	DBPath      string
	MaxDepth    int
	CORSOrigins []string
	LogLevel    slog.Level
	// AsOf enables carry-over expiry. Empty means today.
	AsOf string
}

// Load reads .env (if present), then the environment, then args.
func Load(args []string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to read .env: %w", err)
	}

	cfg := Config{
		Port:        getEnvInt("LEAVE_PORT", 8080),
		DBPath:      getEnv("LEAVE_DB", "leave.db"),
		MaxDepth:    getEnvInt("LEAVE_MAX_DEPTH", leave.DefaultMaxDepth),
		CORSOrigins: splitList(getEnv("LEAVE_CORS_ORIGINS", "http://localhost:5173,http://localhost:8080")),
		AsOf:        getEnv("LEAVE_AS_OF", ""),
	}
	level, err := parseLevel(getEnv("LEAVE_LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, err
	}
	cfg.LogLevel = level

	fsFlags := flag.NewFlagSet("server", flag.ContinueOnError)
	fsFlags.IntVar(&cfg.Port, "port", cfg.Port, "HTTP server port")
	fsFlags.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database path")
	fsFlags.IntVar(&cfg.MaxDepth, "max-depth", cfg.MaxDepth, "carry-over recursion limit")
	if err := fsFlags.Parse(args); err != nil {
		return Config{}, err
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if strings.TrimSpace(c.DBPath) == "" {
		return fmt.Errorf("LEAVE_DB must not be empty")
	}
	if c.MaxDepth <= 0 {
		return fmt.Errorf("LEAVE_MAX_DEPTH must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("LEAVE_LOG_LEVEL: %w", err)
	}
	return level, nil
}
