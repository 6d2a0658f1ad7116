package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration
type Config struct {
	Env          string
	LogLevel     string
	Engines      EnginesConfig
	Audit        AuditConfig
	Verification VerificationConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	OTEL         OTELConfig
}

// EnginesConfig holds the AI engine set and per-provider credentials
type EnginesConfig struct {
	// Enabled lists the configured engine identifiers in probe order
	Enabled        []string
	OpenAI         OpenAIConfig
	Perplexity     OpenAIConfig
	Gemini         OpenAIConfig
	TimeoutSeconds int
}

// OpenAIConfig holds settings for one OpenAI-compatible chat completions provider
type OpenAIConfig struct {
	APIKey         string
	Model          string
	BaseURL        string
	RateLimitRPM   int
	RateLimitBurst int
}

// AuditConfig holds page audit settings
type AuditConfig struct {
	UserAgent            string
	FetchTimeoutSeconds  int
	MaxBodyBytes         int
	GenerativeScoring    bool
	ScoreCacheTTLSeconds int
}

// VerificationConfig holds correction verification settings
type VerificationConfig struct {
	CooldownDays int
	BatchSize    int
	Workers      int
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// DefaultEngines is the reference engine set, in probe order.
var DefaultEngines = []string{"chatgpt", "perplexity", "gemini", "copilot"}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	rpm := getEnvAsInt("AI_RATE_LIMIT_RPM", 60)
	burst := getEnvAsInt("AI_RATE_LIMIT_BURST", 5)

	cfg := &Config{
		Env:      getEnv("APP_ENV", "production"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Engines: EnginesConfig{
			Enabled: getEnvAsList("ENGINES", DefaultEngines),
			OpenAI: OpenAIConfig{
				APIKey:         getEnv("OPENAI_API_KEY", ""),
				Model:          getEnv("OPENAI_MODEL", "gpt-4o-mini"),
				BaseURL:        getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1/"),
				RateLimitRPM:   rpm,
				RateLimitBurst: burst,
			},
			Perplexity: OpenAIConfig{
				APIKey:         getEnv("PERPLEXITY_API_KEY", ""),
				Model:          getEnv("PERPLEXITY_MODEL", "sonar"),
				BaseURL:        getEnv("PERPLEXITY_BASE_URL", "https://api.perplexity.ai/"),
				RateLimitRPM:   rpm,
				RateLimitBurst: burst,
			},
			Gemini: OpenAIConfig{
				APIKey:         getEnv("GEMINI_API_KEY", ""),
				Model:          getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
				BaseURL:        getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/openai/"),
				RateLimitRPM:   rpm,
				RateLimitBurst: burst,
			},
			TimeoutSeconds: getEnvAsInt("AI_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Audit: AuditConfig{
			UserAgent:            getEnv("AUDIT_USER_AGENT", "visibilityscore-auditor/1.0"),
			FetchTimeoutSeconds:  getEnvAsInt("AUDIT_FETCH_TIMEOUT_SECONDS", 15),
			MaxBodyBytes:         getEnvAsInt("AUDIT_MAX_BODY_BYTES", 5*1024*1024),
			GenerativeScoring:    getEnvAsBool("AUDIT_GENERATIVE_SCORING", true),
			ScoreCacheTTLSeconds: getEnvAsInt("AUDIT_SCORE_CACHE_TTL_SECONDS", 7*24*60*60),
		},
		Verification: VerificationConfig{
			CooldownDays: getEnvAsInt("CORRECTION_COOLDOWN_DAYS", 14),
			BatchSize:    getEnvAsInt("CORRECTION_BATCH_SIZE", 50),
			Workers:      getEnvAsInt("CORRECTION_WORKERS", 4),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "visibility"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "visibilityscore"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}

	if cfg.Verification.CooldownDays < 1 {
		return nil, fmt.Errorf("CORRECTION_COOLDOWN_DAYS must be at least 1, got %d", cfg.Verification.CooldownDays)
	}

	return cfg, nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return append([]string(nil), defaultValue...)
	}
	var items []string
	for _, part := range strings.Split(value, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			items = append(items, part)
		}
	}
	return items
}
