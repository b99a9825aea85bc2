package advisor

import (
	"context"
	"fmt"
	"time"

	"agri-sentinel/internal/agri"
	"agri-sentinel/internal/config"
)

// NewAdvisorFromConfig creates an Advisor based on the advisor config type.
// getenv resolves the API key variable named in the config.
func NewAdvisorFromConfig(ctx context.Context, cfg config.AdvisorConfig, getenv func(string) string) (agri.Advisor, error) {
	switch cfg.Type {
	case "static", "":
		return NewStatic(""), nil
	case "genai":
		if cfg.APIKeyEnv == "" {
			return nil, fmt.Errorf("genai advisor requires api_key_env to be set")
		}
		key := getenv(cfg.APIKeyEnv)
		if key == "" {
			return nil, fmt.Errorf("genai advisor: %s is not set", cfg.APIKeyEnv)
		}
		return NewGenAI(ctx, key, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown advisor type: %s", cfg.Type)
	}
}

// Timeout returns the configured call timeout, or DefaultTimeout.
func Timeout(cfg config.AdvisorConfig) time.Duration {
	if cfg.TimeoutSeconds <= 0 {
		return DefaultTimeout
	}
	return time.Duration(cfg.TimeoutSeconds) * time.Second
}
