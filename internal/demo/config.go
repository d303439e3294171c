package demo

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	AuthURL  string // Identity provider base URL, must be on the allow-list
	ClientID string // Required: OAuth2 client id registered at the provider
	GraphURL string // GraphQL endpoint of the identity service
	AcctID   string // Account scope for API token resolution

	SessionSecret string // Cookie-session encryption secret
	SessionDBFile string // Optional: path to a SQLite file for server-side sessions

	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
	SessionCleanup      time.Duration // Expired-session cleanup interval (default: 1h)
}

func LoadConfig() Config {
	return Config{
		AuthURL:             getEnvOrDefault("AUTH_URL", "https://auth.kube.simpleview.io/"),
		ClientID:            os.Getenv("CLIENT_ID"),
		GraphURL:            getEnvOrDefault("GRAPH_URL", "https://graphql.kube.simpleview.io/"),
		AcctID:              getEnvOrDefault("ACCT_ID", "0"),
		SessionSecret:       os.Getenv("SESSION_SECRET"),
		SessionDBFile:       os.Getenv("SESSION_DATABASE_FILE"),
		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		SessionCleanup:      getEnvDurationOrDefault("SESSION_CLEANUP_INTERVAL", time.Hour),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	return defaultValue
}
