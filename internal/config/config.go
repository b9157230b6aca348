// Package config loads server settings from the environment (and .env in development).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	MessageStoreSQL   = "sql"
	MessageStoreMongo = "mongo"

	EmailDriverSES = "ses"
	EmailDriverLog = "log"
)

type Config struct {
	Environment string
	Port        string
	LogLevel    string
	LogFile     string

	DatabaseDriver string
	DatabaseURL    string

	// MessageStore selects where messages and notifications live: "sql" or "mongo"
	MessageStore  string
	MongoURI      string
	MongoDatabase string

	JWTSecret string
	TokenTTL  time.Duration

	RedisHost     string
	RedisPort     string
	RedisPassword string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	AWSRegion  string
	S3Bucket   string
	CDNBaseURL string

	EmailDriver   string
	EmailFrom     string
	EmailFromName string
	AppBaseURL    string

	ElasticsearchURL string
	// SearchReconcileInterval rebuilds the index from the database; 0 disables it
	SearchReconcileInterval time.Duration

	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64

	CORSOrigins []string

	// RequiredServices (redis, search, s3, mongo) must be configured and reachable at startup
	RequiredServices []string

	// ProfileViewWindow collapses repeat visits by the same viewer into one view
	ProfileViewWindow time.Duration
}

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	envErr := godotenv.Load()

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Port:        getEnv("PORT", "8787"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFile:     getEnv("LOG_FILE", "server.log"),

		DatabaseDriver: strings.ToLower(getEnv("DATABASE_DRIVER", DriverPostgres)),
		DatabaseURL:    getEnv("DATABASE_URL", ""),

		MessageStore:  strings.ToLower(getEnv("MESSAGE_STORE", MessageStoreSQL)),
		MongoURI:      getEnv("MONGO_URI", ""),
		MongoDatabase: getEnv("MONGO_DATABASE", "hirewire"),

		JWTSecret: getEnv("JWT_SECRET", ""),
		TokenTTL:  getDuration("TOKEN_TTL", 24*time.Hour),

		RedisHost:     getEnv("REDIS_HOST", ""),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		RateLimitRequests: getInt("RATE_LIMIT_REQUESTS", 300),
		RateLimitWindow:   getDuration("RATE_LIMIT_WINDOW", time.Minute),

		AWSRegion:  getEnv("AWS_REGION", "us-east-1"),
		S3Bucket:   getEnv("AWS_BUCKET", ""),
		CDNBaseURL: getEnv("CDN_BASE_URL", ""),

		EmailDriver:   strings.ToLower(getEnv("EMAIL_DRIVER", EmailDriverLog)),
		EmailFrom:     getEnv("EMAIL_FROM", "no-reply@hirewire.dev"),
		EmailFromName: getEnv("EMAIL_FROM_NAME", "HireWire"),
		AppBaseURL:    getEnv("APP_BASE_URL", "http://localhost:3000"),

		ElasticsearchURL:        getEnv("ELASTICSEARCH_URL", ""),
		SearchReconcileInterval: getDuration("SEARCH_RECONCILE_INTERVAL", time.Hour),

		TracingEnabled:    getBool("OTEL_ENABLED", false),
		OTLPEndpoint:      getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		TracingSampleRate: getFloat("OTEL_SAMPLE_RATE", 1.0),

		CORSOrigins:      splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		RequiredServices: splitList(getEnv("REQUIRED_SERVICES", "")),

		ProfileViewWindow: getDuration("PROFILE_VIEW_WINDOW", 24*time.Hour),
	}

	if cfg.DatabaseURL == "" && cfg.DatabaseDriver == DriverPostgres {
		cfg.DatabaseURL = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			getEnv("DB_HOST", "localhost"),
			getEnv("DB_PORT", "5432"),
			getEnv("DB_USER", "postgres"),
			getEnv("DB_PASSWORD", ""),
			getEnv("DB_NAME", "hirewire"),
			getEnv("DB_SSLMODE", "disable"),
		)
	}
	if cfg.DatabaseURL == "" && cfg.DatabaseDriver == DriverSQLite {
		cfg.DatabaseURL = "hirewire.db"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if envErr != nil && !os.IsNotExist(envErr) {
		return cfg, fmt.Errorf("reading .env: %w", envErr)
	}
	return cfg, nil
}

// Validate reports the first missing or inconsistent setting.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	switch c.DatabaseDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("DATABASE_DRIVER must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.DatabaseDriver)
	}
	switch c.MessageStore {
	case MessageStoreSQL:
	case MessageStoreMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required when MESSAGE_STORE=mongo")
		}
	default:
		return fmt.Errorf("MESSAGE_STORE must be %q or %q, got %q", MessageStoreSQL, MessageStoreMongo, c.MessageStore)
	}
	switch c.EmailDriver {
	case EmailDriverSES, EmailDriverLog:
	default:
		return fmt.Errorf("EMAIL_DRIVER must be %q or %q, got %q", EmailDriverSES, EmailDriverLog, c.EmailDriver)
	}
	if c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be positive")
	}
	if c.TracingSampleRate < 0 || c.TracingSampleRate > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0 and 1")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// RedisEnabled is false when no REDIS_HOST is set; rate limiting and the socket relay are then skipped.
func (c *Config) RedisEnabled() bool {
	return c.RedisHost != ""
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

// getDuration accepts Go durations ("15m") or plain seconds ("900")
func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
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
