// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port           string
	DBPath         string
	AllowedOrigins []string
	CatalogPath    string
	TelegramToken  string

	Access  AccessConfig
	Intent  IntentConfig
	Flow    FlowConfig
	Payment PaymentConfig

	RecordsCacheTTL    time.Duration
	SessionIdleTTL     time.Duration
	RateLimitPerMinute int
}

// AccessConfig controls the start gate.
type AccessConfig struct {
	Mode         string
	InviteTokens []string
}

// IntentConfig points at the remote intent extractor. An empty Addr
// selects the built-in deterministic parser.
type IntentConfig struct {
	Addr    string
	Method  string
	Timeout time.Duration
}

// FlowConfig tunes the conversation.
type FlowConfig struct {
	ResultsPerPage int
	ResultsLimit   int
	CitiesLimit    int
	TopicsLimit    int
	MaxHistory     int
	HistoryTTL     time.Duration
}

// PaymentConfig controls the mock paywall in front of results.
type PaymentConfig struct {
	Mode     string
	Price    int
	Currency string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		DBPath:         getEnv("DB_PATH", "./data/desk.db"),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"*"}),
		CatalogPath:    getEnv("CATALOG_PATH", ""),
		TelegramToken:  getEnv("TELEGRAM_BOT_TOKEN", ""),
		Access: AccessConfig{
			Mode:         strings.ToLower(getEnv("START_MODE", "dev")),
			InviteTokens: getEnvList("INVITE_TOKENS", nil),
		},
		Intent: IntentConfig{
			Addr:    getEnv("INTENT_ADDR", ""),
			Method:  getEnv("INTENT_METHOD", "/intent.v1.IntentService/Extract"),
			Timeout: getEnvDuration("INTENT_TIMEOUT", 3*time.Second),
		},
		Flow: FlowConfig{
			ResultsPerPage: getEnvInt("RESULTS_PER_PAGE", 5),
			ResultsLimit:   getEnvInt("RESULTS_LIMIT", 0),
			CitiesLimit:    getEnvInt("CITIES_LIMIT", 25),
			TopicsLimit:    getEnvInt("TOPICS_LIMIT", 10),
			MaxHistory:     getEnvInt("MAX_HISTORY_TURNS", 12),
			HistoryTTL:     getEnvDuration("HISTORY_TTL", 24*time.Hour),
		},
		Payment: PaymentConfig{
			Mode:     strings.ToLower(getEnv("PAYMENT_MODE", "mock_free")),
			Price:    getEnvInt("PAYMENT_PRICE", 5000),
			Currency: getEnv("PAYMENT_CURRENCY", "KZT"),
		},
		RecordsCacheTTL:    getEnvDuration("RECORDS_CACHE_TTL", 5*time.Minute),
		SessionIdleTTL:     getEnvDuration("SESSION_IDLE_TTL", 0),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	switch c.Access.Mode {
	case "dev", "strict":
	default:
		return fmt.Errorf("START_MODE must be dev or strict, got %q", c.Access.Mode)
	}
	switch c.Payment.Mode {
	case "mock", "mock_free":
	default:
		return fmt.Errorf("PAYMENT_MODE must be mock or mock_free, got %q", c.Payment.Mode)
	}
	if c.Payment.Mode == "mock" && c.Payment.Price <= 0 {
		return fmt.Errorf("PAYMENT_PRICE must be > 0 in mock mode")
	}
	if c.Intent.Addr != "" && !strings.HasPrefix(c.Intent.Method, "/") {
		return fmt.Errorf("INTENT_METHOD must be a full method name like /pkg.Service/Method")
	}
	if c.Intent.Timeout <= 0 {
		return fmt.Errorf("INTENT_TIMEOUT must be > 0")
	}
	if c.Flow.ResultsPerPage <= 0 {
		return fmt.Errorf("RESULTS_PER_PAGE must be > 0")
	}
	if c.Flow.ResultsLimit < 0 || c.Flow.CitiesLimit < 0 || c.Flow.TopicsLimit < 0 {
		return fmt.Errorf("RESULTS_LIMIT, CITIES_LIMIT and TOPICS_LIMIT must be >= 0")
	}
	if c.Flow.MaxHistory < 0 {
		return fmt.Errorf("MAX_HISTORY_TURNS must be >= 0")
	}
	if c.SessionIdleTTL < 0 || c.RecordsCacheTTL < 0 {
		return fmt.Errorf("SESSION_IDLE_TTL and RECORDS_CACHE_TTL must be >= 0")
	}
	return nil
}

// IsDevelopment returns true when every origin is allowed.
func (c *Config) IsDevelopment() bool {
	for _, o := range c.AllowedOrigins {
		if o == "*" || strings.Contains(o, "localhost") || strings.Contains(o, "127.0.0.1") {
			return true
		}
	}
	return len(c.AllowedOrigins) == 0
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

// getEnvDuration accepts Go durations ("90s", "24h") or plain seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if n, err := strconv.Atoi(value); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
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
