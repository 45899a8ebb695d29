package llm

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/xiaot623/librarydesk/internal/config"
)

// Providers selectable through LLM_PROVIDER.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderMock   = "mock"
)

// NewLLMClient creates the client named by cfg.LLMProvider, wrapped with the
// Redis completion cache when cfg.RedisAddr is set.
func NewLLMClient(ctx context.Context, cfg *config.Config) (LLMClient, error) {
	var client LLMClient
	switch cfg.LLMProvider {
	case ProviderMock:
		slog.Info("using mock LLM client")
		client = NewMockClient()
	case ProviderGemini:
		gc, err := NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.LLMModel)
		if err != nil {
			return nil, err
		}
		client = gc
	default:
		client = NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMTimeout(), cfg.LLMMaxRetries)
	}

	if cfg.RedisAddr != "" {
		slog.Info("caching completions in redis", "addr", cfg.RedisAddr, "ttl", cfg.CacheTTL())
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		client = NewCachedClient(client, rdb, cfg.CacheTTL())
	}
	return client, nil
}
