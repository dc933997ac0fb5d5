package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port     string
	RedisURL string
	APIKeys  []string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	ToolTimeout        time.Duration
	MaxItemConcurrency int
	MaxItemsPerRequest int

	AIProvider  string
	OpenAIKey   string
	ClaudeKey   string
	AIModel     string
	AIDeepModel string

	LogLevel string
}

// Load reads configuration from the environment with defaults for everything
// except credentials.
func Load() Config {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	v.SetDefault("RATE_LIMIT_REQUESTS", 30)
	v.SetDefault("RATE_LIMIT_WINDOW", 60)
	v.SetDefault("TOOL_TIMEOUT", 45)
	v.SetDefault("MAX_ITEM_CONCURRENCY", 4)
	v.SetDefault("MAX_ITEMS_PER_REQUEST", 25)
	v.SetDefault("AI_PROVIDER", "openai")
	v.SetDefault("AI_MODEL", "gpt-5-mini")
	v.SetDefault("AI_DEEP_MODEL", "gpt-5")
	v.SetDefault("LOG_LEVEL", "info")

	return Config{
		Port:               v.GetString("PORT"),
		RedisURL:           v.GetString("REDIS_URL"),
		APIKeys:            splitKeys(v.GetString("API_KEYS")),
		RateLimitRequests:  v.GetInt("RATE_LIMIT_REQUESTS"),
		RateLimitWindow:    time.Duration(v.GetInt("RATE_LIMIT_WINDOW")) * time.Second,
		ToolTimeout:        time.Duration(v.GetInt("TOOL_TIMEOUT")) * time.Second,
		MaxItemConcurrency: v.GetInt("MAX_ITEM_CONCURRENCY"),
		MaxItemsPerRequest: v.GetInt("MAX_ITEMS_PER_REQUEST"),
		AIProvider:         v.GetString("AI_PROVIDER"),
		OpenAIKey:          v.GetString("OPENAI_API_KEY"),
		ClaudeKey:          v.GetString("CLAUDE_API_KEY"),
		AIModel:            v.GetString("AI_MODEL"),
		AIDeepModel:        v.GetString("AI_DEEP_MODEL"),
		LogLevel:           v.GetString("LOG_LEVEL"),
	}
}

func splitKeys(raw string) []string {
	var keys []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}
