package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"pharmacy-guard-backend/pkg/logger"
)

type Config struct {
	Port     string
	GinMode  string
	LogLevel string
	DBUrl    string
	// Token verification: HS256 shared secret and/or RS256 JWKS endpoint
	JWTSecret string
	JWKSURL   string
	// Redis holds per-mount guard latches
	RedisURL      string
	RedisPassword string
	// Route guard
	LatchTTL       time.Duration
	SuppressWindow time.Duration
	WebBasePath    string
	// CORS
	AllowedOrigins []string
}

func LoadConfig() (*Config, error) {
	// Only effective locally; in production the file is usually absent.
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		DBUrl:          getEnv("DATABASE_URL", ""),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		JWKSURL:        getEnv("JWKS_URL", ""),
		RedisURL:       getEnv("REDIS_URL", ""),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		LatchTTL:       time.Duration(getEnvInt("GUARD_LATCH_TTL_MINUTES", 30)) * time.Minute,
		SuppressWindow: time.Duration(getEnvInt("GUARD_SUPPRESS_MS", 100)) * time.Millisecond,
		WebBasePath:    "/" + strings.Trim(getEnv("WEB_BASE_PATH", "/app"), "/"),
		AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:8081", "http://localhost:19006"}),
	}

	// The web shell owns every path under its base, so it can be neither the
	// root nor overlap the API.
	if cfg.WebBasePath == "/" || cfg.WebBasePath == "/v1" || strings.HasPrefix(cfg.WebBasePath, "/v1/") {
		return nil, fmt.Errorf("WEB_BASE_PATH %q must be a sub-path outside /v1, e.g. /app", cfg.WebBasePath)
	}

	if cfg.DBUrl == "" {
		logger.Log.Warn("DATABASE_URL is missing. Application may fail to connect.")
	}
	if cfg.JWTSecret == "" && cfg.JWKSURL == "" {
		logger.Log.Warn("Neither JWT_SECRET nor JWKS_URL is set. Every request will be treated as signed out.")
	}
	if cfg.RedisURL == "" {
		logger.Log.Warn("REDIS_URL not configured. Guard latches will use in-memory fallback.")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt returns an integer environment variable or fallback if not set/invalid
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil && intVal >= 0 {
			return intVal
		}
	}
	return fallback
}

// getEnvList splits a comma separated variable, dropping empty items
func getEnvList(key string, fallback []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
