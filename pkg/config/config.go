package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/loginlab/loginlab/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Auth0         Auth0Config
	FGA           FGAConfig
	Board         BoardConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string

	// Timeout applied to every outbound upstream API call
	UpstreamTimeout time.Duration
}

// Auth0Config holds Auth0 tenant and Management API configuration
type Auth0Config struct {
	Domain           string
	ClientID         string // SPA client, used as invitation client_id
	MgmtClientID     string
	MgmtClientSecret string

	DefaultConnectionID       string
	DefaultConnectionName     string
	InternalAdminConnectionID string
	DefaultAdminRoles         []string
}

// FGAConfig holds the relationship-based authorization API configuration
type FGAConfig struct {
	APIHost      string
	Issuer       string
	StoreID      string
	ClientID     string
	ClientSecret string
}

// BoardConfig holds message board configuration
type BoardConfig struct {
	Enabled bool

	// Backend selects the posts store: "firebase" or "redis"
	Backend string

	FirebaseDatabaseURL string

	RedisURL      string
	RedisPassword string
	RedisDB       int
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Auth0:         loadAuth0Config(),
		FGA:           loadFGAConfig(),
		Board:         loadBoardConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("LOGINLAB_HOST", "0.0.0.0"),
		Port:            getEnv("LOGINLAB_PORT", "3001"),
		ReadTimeout:     getEnvDuration("LOGINLAB_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("LOGINLAB_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("LOGINLAB_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("LOGINLAB_SHUTDOWN_TIMEOUT", 30*time.Second),
		AllowedOrigins:  splitAndTrim(getEnv("LOGINLAB_ALLOWED_ORIGINS", "*")),
		UpstreamTimeout: getEnvDuration("LOGINLAB_UPSTREAM_TIMEOUT", 10*time.Second),
	}
}

func loadAuth0Config() Auth0Config {
	return Auth0Config{
		Domain:                    getEnv("AUTH0_DOMAIN", ""),
		ClientID:                  getEnv("AUTH0_CLIENT_ID", ""),
		MgmtClientID:              getEnv("AUTH0_MGMT_CLIENT_ID", ""),
		MgmtClientSecret:          getEnv("AUTH0_MGMT_CLIENT_SECRET", ""),
		DefaultConnectionID:       getEnv("AUTH0_DEFAULT_CONNECTION_ID", ""),
		DefaultConnectionName:     getEnv("AUTH0_DEFAULT_CONNECTION_NAME", ""),
		InternalAdminConnectionID: getEnv("AUTH0_INTERNAL_ADMIN_CONNECTION_ID", ""),
		DefaultAdminRoles:         splitAndTrim(getEnv("AUTH0_DEFAULT_ADMIN_ROLES", "")),
	}
}

func loadFGAConfig() FGAConfig {
	return FGAConfig{
		APIHost:      getEnv("FGA_API_HOST", ""),
		Issuer:       getEnv("FGA_ISSUER", ""),
		StoreID:      getEnv("FGA_STORE_ID", ""),
		ClientID:     getEnv("FGA_CLIENT_ID", ""),
		ClientSecret: getEnv("FGA_CLIENT_SECRET", ""),
	}
}

func loadBoardConfig() BoardConfig {
	return BoardConfig{
		Enabled:             getEnvBool("LOGINLAB_MESSAGE_BOARD_ENABLED", false),
		Backend:             getEnv("LOGINLAB_BOARD_BACKEND", "firebase"),
		FirebaseDatabaseURL: getEnv("FIREBASE_DATABASE_URL", ""),
		RedisURL:            getEnv("LOGINLAB_REDIS_URL", ""),
		RedisPassword:       getEnv("LOGINLAB_REDIS_PASSWORD", ""),
		RedisDB:             getEnvInt("LOGINLAB_REDIS_DB", 0),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           parseLogLevel(getEnv("LOGINLAB_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("LOGINLAB_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("LOGINLAB_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("LOGINLAB_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("LOGINLAB_OTEL_SERVICE_NAME", "loginlab"),
		OTelServiceVersion: getEnv("LOGINLAB_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("LOGINLAB_OTEL_INSECURE", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if c.Auth0.Domain == "" {
		return fmt.Errorf("AUTH0_DOMAIN is required")
	}
	if c.Auth0.MgmtClientID == "" || c.Auth0.MgmtClientSecret == "" {
		return fmt.Errorf("AUTH0_MGMT_CLIENT_ID and AUTH0_MGMT_CLIENT_SECRET are required")
	}

	if c.FGA.APIHost == "" || c.FGA.Issuer == "" || c.FGA.StoreID == "" {
		return fmt.Errorf("FGA_API_HOST, FGA_ISSUER and FGA_STORE_ID are required")
	}
	if c.FGA.ClientID == "" || c.FGA.ClientSecret == "" {
		return fmt.Errorf("FGA_CLIENT_ID and FGA_CLIENT_SECRET are required")
	}

	if c.Board.Enabled {
		switch c.Board.Backend {
		case "firebase":
			if c.Board.FirebaseDatabaseURL == "" {
				return fmt.Errorf("FIREBASE_DATABASE_URL is required for the firebase board backend")
			}
		case "redis":
			if c.Board.RedisURL == "" {
				return fmt.Errorf("LOGINLAB_REDIS_URL is required for the redis board backend")
			}
		default:
			return fmt.Errorf("invalid board backend: %s (must be firebase or redis)", c.Board.Backend)
		}
	}

	if c.Observability.OTelEnabled && c.Observability.OTelEndpoint == "" {
		return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
	}

	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// splitAndTrim splits a comma-separated list, trimming whitespace and
// discarding empty entries.
func splitAndTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
