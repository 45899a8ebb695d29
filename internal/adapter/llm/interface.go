// Package llm provides an abstraction for LLM API clients.
package llm

import "context"

// LLMClient defines the interface for LLM API operations.
type LLMClient interface {
	// CreateChatCompletion sends a chat completion request (non-streaming).
	CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error)
}

var (
	_ LLMClient = (*Client)(nil)
	_ LLMClient = (*MockClient)(nil)
	_ LLMClient = (*GeminiClient)(nil)
	_ LLMClient = (*CachedClient)(nil)
)
