package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends
const (
	BackendDynamoDB = "dynamodb"
	BackendMemory   = "memory"
)

// Config holds application configuration loaded from environment variables
type Config struct {
	// AWS
	AWSRegion string

	// HTTP
	Port string

	// Storage
	StoreBackend string
	TenantsTable string
	UsersTable   string
	TurnsTable   string

	// Seed tenant for the memory backend
	SeedTenantID      string
	SeedChannelSecret string
	SeedAccessToken   string
	SeedSystemPrompt  string

	// Bedrock
	BedrockModelID  string
	MaxOutputTokens int

	// Processing
	HistoryLimit        int
	EventTimeoutSeconds int
	MaxConcurrentEvents int
	ReplyRetryDelayMS   int

	// LINE
	LineAPIEndpoint  string
	LineDataEndpoint string
	LineTestToken    string

	// Slack failure alerts (optional)
	SlackBotToken     string
	SlackAlertChannel string

	// Environment
	Environment string
}

// Load reads configuration from environment variables. A .env file in the
// working directory is applied first without overriding the real environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AWSRegion:           getEnv("AWS_REGION", "ap-northeast-1"),
		Port:                getEnv("PORT", "8080"),
		StoreBackend:        getEnv("STORE_BACKEND", BackendDynamoDB),
		TenantsTable:        getEnv("TENANTS_TABLE", "nutricoach-tenants"),
		UsersTable:          getEnv("USERS_TABLE", "nutricoach-users"),
		TurnsTable:          getEnv("TURNS_TABLE", "nutricoach-turns"),
		SeedTenantID:        getEnv("SEED_TENANT_ID", ""),
		SeedChannelSecret:   getEnv("SEED_CHANNEL_SECRET", ""),
		SeedAccessToken:     getEnv("SEED_ACCESS_TOKEN", ""),
		SeedSystemPrompt:    getEnv("SEED_SYSTEM_PROMPT", ""),
		BedrockModelID:      getEnv("BEDROCK_MODEL_ID", "anthropic.claude-3-5-haiku-20241022-v1:0"),
		MaxOutputTokens:     getEnvInt("MAX_OUTPUT_TOKENS", 1024),
		HistoryLimit:        getEnvInt("HISTORY_LIMIT", 10),
		EventTimeoutSeconds: getEnvInt("EVENT_TIMEOUT_SECONDS", 25),
		MaxConcurrentEvents: getEnvInt("MAX_CONCURRENT_EVENTS", 8),
		ReplyRetryDelayMS:   getEnvInt("REPLY_RETRY_DELAY_MS", 500),
		LineAPIEndpoint:     getEnv("LINE_API_ENDPOINT", "https://api.line.me"),
		LineDataEndpoint:    getEnv("LINE_DATA_ENDPOINT", "https://api-data.line.me"),
		LineTestToken:       getEnv("LINE_TEST_TOKEN", "token123"),
		SlackBotToken:       getEnv("SLACK_BOT_TOKEN", ""),
		SlackAlertChannel:   getEnv("SLACK_ALERT_CHANNEL", ""),
		Environment:         getEnv("ENVIRONMENT", "dev"),
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration is present
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendDynamoDB:
		if c.TenantsTable == "" {
			return fmt.Errorf("TENANTS_TABLE is required")
		}
		if c.UsersTable == "" {
			return fmt.Errorf("USERS_TABLE is required")
		}
		if c.TurnsTable == "" {
			return fmt.Errorf("TURNS_TABLE is required")
		}
	case BackendMemory:
		if c.SeedTenantID != "" && c.SeedChannelSecret == "" {
			return fmt.Errorf("SEED_CHANNEL_SECRET is required when SEED_TENANT_ID is set")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendDynamoDB, BackendMemory, c.StoreBackend)
	}

	if c.MaxOutputTokens <= 0 {
		return fmt.Errorf("MAX_OUTPUT_TOKENS must be positive")
	}
	if c.HistoryLimit <= 0 {
		return fmt.Errorf("HISTORY_LIMIT must be positive")
	}
	if c.EventTimeoutSeconds <= 0 {
		return fmt.Errorf("EVENT_TIMEOUT_SECONDS must be positive")
	}
	if c.MaxConcurrentEvents <= 0 {
		return fmt.Errorf("MAX_CONCURRENT_EVENTS must be positive")
	}
	if c.ReplyRetryDelayMS < 0 {
		return fmt.Errorf("REPLY_RETRY_DELAY_MS cannot be negative")
	}
	if c.SlackBotToken != "" && c.SlackAlertChannel == "" {
		return fmt.Errorf("SLACK_ALERT_CHANNEL is required when SLACK_BOT_TOKEN is set")
	}
	return nil
}

// GetEventTimeout returns the per-event processing deadline
func (c *Config) GetEventTimeout() time.Duration {
	return time.Duration(c.EventTimeoutSeconds) * time.Second
}

// GetReplyRetryDelay returns the pause before the single reply retry
func (c *Config) GetReplyRetryDelay() time.Duration {
	return time.Duration(c.ReplyRetryDelayMS) * time.Millisecond
}

// AlertsEnabled reports whether failed events are posted to Slack
func (c *Config) AlertsEnabled() bool {
	return c.SlackBotToken != "" && c.SlackAlertChannel != ""
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, ok := os.LookupEnv(key); ok {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
