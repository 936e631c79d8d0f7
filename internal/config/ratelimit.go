package config

import (
	"time"

	"github.com/deepgram/pipeview/pkg/logger"
)

type RateLimitConfig struct {
	Enabled bool
	MaxHits int
	Window  time.Duration
}

func GetRateLimitConfig(key string) RateLimitConfig {
	enabled := parseEnvBool("RATELIMIT_ENABLED", false)

	configs := map[string]RateLimitConfig{
		"global": {
			Enabled: enabled,
			MaxHits: parseEnvInt("RATELIMIT_GLOBAL", 600), // 600 requests per minute per client
			Window:  time.Minute,
		},
		"submit": {
			Enabled: enabled,
			MaxHits: parseEnvInt("RATELIMIT_SUBMIT", 30), // 30 pipeline submissions per minute
			Window:  time.Minute,
		},
	}

	if config, exists := configs[key]; exists {
		return config
	}

	logger.Warn(logger.CONFIG, "No rate limit config found for key: %s", key)
	return RateLimitConfig{Enabled: false}
}
