package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

const defaultMaxRetries = 2

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	client openai.Client
}

// NewClient creates a new OpenAI-compatible client. baseURL is the server
// root; the /v1/ prefix is added here. Connection errors, 408, 409, 429 and
// 5xx responses are retried up to maxRetries times with backoff; other 4xx
// responses fail immediately. A negative maxRetries uses the default.
func NewClient(baseURL, apiKey string, timeout time.Duration, maxRetries int) *Client {
	if maxRetries < 0 {
		maxRetries = defaultMaxRetries
	}
	opts := []option.RequestOption{
		option.WithBaseURL(strings.TrimSuffix(baseURL, "/") + "/v1/"),
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(maxRetries),
	}
	if timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(timeout))
	}
	return &Client{client: openai.NewClient(opts...)}
}

// CreateChatCompletion sends a chat completion request (non-streaming).
func (c *Client) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	resp, err := c.client.Chat.Completions.New(ctx, toParams(req))
	if err != nil {
		return nil, apiError(err)
	}

	out := &ChatCompletionResponse{
		ID:      resp.ID,
		Object:  string(resp.Object),
		Created: resp.Created,
		Model:   resp.Model,
		Choices: make([]Choice, 0, len(resp.Choices)),
	}
	for _, ch := range resp.Choices {
		out.Choices = append(out.Choices, Choice{
			Index:        int(ch.Index),
			Message:      &ChatMessage{Role: RoleAssistant, Content: ch.Message.Content},
			FinishReason: string(ch.FinishReason),
		})
	}
	if resp.Usage.TotalTokens > 0 {
		out.Usage = &Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		}
	}
	return out, nil
}

func toParams(req *ChatCompletionRequest) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(req.Model),
		Messages: make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)),
	}
	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			params.Messages = append(params.Messages, openai.SystemMessage(msg.Content))
		case RoleAssistant:
			params.Messages = append(params.Messages, openai.AssistantMessage(msg.Content))
		default:
			params.Messages = append(params.Messages, openai.UserMessage(msg.Content))
		}
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if req.TopP != nil {
		params.TopP = openai.Float(*req.TopP)
	}
	if req.MaxTokens != nil {
		params.MaxTokens = openai.Int(int64(*req.MaxTokens))
	}
	if req.WantsJSON() {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}
	return params
}

func apiError(err error) error {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("llm request failed: %w", err)
	}
	msg := apiErr.Message
	if msg == "" {
		msg = http.StatusText(apiErr.StatusCode)
	}
	if apiErr.Type != "" {
		return fmt.Errorf("LLM API error [%d]: %s (type: %s): %w", apiErr.StatusCode, msg, apiErr.Type, err)
	}
	return fmt.Errorf("LLM API error [%d]: %s: %w", apiErr.StatusCode, msg, err)
}
