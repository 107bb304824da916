package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port     string
	Env      string
	LogLevel string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// JWT
	JWTSecret        string
	JWTRefreshSecret string

	// Google sign-in
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	// YouTube Data API
	YouTubeAPIKey string

	// Rate limiting
	RateLimitWindow time.Duration
	RateLimitMax    int

	// Workers
	WorkerCount int

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	env := getEnvOrDefault("NODE_ENV", getEnvOrDefault("ENV", "development"))
	defaultLevel := "debug"
	if env == "production" {
		defaultLevel = "info"
	}

	cfg := &Config{
		Port:               getEnvOrDefault("PORT", "5000"),
		Env:                env,
		LogLevel:           getEnvOrDefault("LOG_LEVEL", defaultLevel),
		DatabaseURL:        mustGetEnv("DATABASE_URL"),
		RedisURL:           mustGetEnv("REDIS_URL"),
		JWTSecret:          mustGetEnv("JWT_SECRET"),
		JWTRefreshSecret:   mustGetEnv("JWT_REFRESH_SECRET"),
		GoogleClientID:     getEnvOrDefault("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnvOrDefault("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnvOrDefault("GOOGLE_REDIRECT_URL", "http://localhost:5000/api/auth/google/callback"),
		YouTubeAPIKey:      getEnvOrDefault("YOUTUBE_API_KEY", ""),
		RateLimitWindow:    getEnvAsDurationMsOrDefault("RATE_LIMIT_WINDOW_MS", 15*time.Minute),
		RateLimitMax:       getEnvAsIntOrDefault("RATE_LIMIT_MAX_REQUESTS", 100),
		WorkerCount:        getEnvAsIntOrDefault("WORKER_COUNT", 2),
		FrontendURL:        getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	return cfg
}

// IsDevelopment reports whether error details and verbose logs may be exposed.
func (c *Config) IsDevelopment() bool {
	return c.Env != "production"
}

// GoogleEnabled reports whether the identity-provider flows are configured.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

// getEnvAsDurationMsOrDefault reads a millisecond count, e.g. RATE_LIMIT_WINDOW_MS=900000.
func getEnvAsDurationMsOrDefault(key string, defaultVal time.Duration) time.Duration {
	n := getEnvAsIntOrDefault(key, -1)
	if n <= 0 {
		return defaultVal
	}
	return time.Duration(n) * time.Millisecond
}
