package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "librarydesk:completion:"

// CachedClient stores deterministic completions in Redis. Only requests with
// temperature 0 are cached; Redis failures fall through to the wrapped client.
type CachedClient struct {
	next   LLMClient
	client *redis.Client
	ttl    time.Duration
}

// NewCachedClient wraps next with a Redis completion cache.
func NewCachedClient(next LLMClient, client *redis.Client, ttl time.Duration) *CachedClient {
	return &CachedClient{next: next, client: client, ttl: ttl}
}

// CreateChatCompletion returns a cached reply when one exists.
func (c *CachedClient) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	if req.Temperature == nil || *req.Temperature != 0 {
		return c.next.CreateChatCompletion(ctx, req)
	}

	key, err := cacheKey(req)
	if err != nil {
		return c.next.CreateChatCompletion(ctx, req)
	}

	val, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached ChatCompletionResponse
		if jsonErr := json.Unmarshal(val, &cached); jsonErr == nil {
			slog.Debug("llm cache hit", "key", key)
			return &cached, nil
		}
	case err != redis.Nil:
		slog.Warn("llm cache read failed", "error", err)
	}

	resp, err := c.next.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(resp)
	if err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			slog.Warn("llm cache write failed", "error", err)
		}
	}
	return resp, nil
}

// Close releases the Redis connection and the wrapped client, if it holds one.
func (c *CachedClient) Close() error {
	err := c.client.Close()
	if closer, ok := c.next.(io.Closer); ok {
		err = errors.Join(err, closer.Close())
	}
	return err
}

func cacheKey(req *ChatCompletionRequest) (string, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}
	sum := sha256.Sum256(data)
	return cacheKeyPrefix + hex.EncodeToString(sum[:]), nil
}
