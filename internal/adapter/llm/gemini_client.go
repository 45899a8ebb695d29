package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-1.5-flash"

// GeminiClient answers chat completions through Google's Gemini API.
type GeminiClient struct {
	client       *genai.Client
	defaultModel string
}

// NewGeminiClient creates a Gemini-backed client.
func NewGeminiClient(ctx context.Context, apiKey, modelID string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, errors.New("gemini API key cannot be empty")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	// The shared LLM_MODEL setting may still name an OpenAI model.
	if !strings.HasPrefix(modelID, "gemini") {
		modelID = defaultGeminiModel
	}
	return &GeminiClient{client: client, defaultModel: modelID}, nil
}

// Close releases the underlying connection.
func (c *GeminiClient) Close() error {
	return c.client.Close()
}

// CreateChatCompletion maps the request onto a Gemini chat. System messages
// become the system instruction; the last message is sent, the rest is history.
func (c *GeminiClient) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	modelID := req.Model
	if modelID == "" || !strings.HasPrefix(modelID, "gemini") {
		modelID = c.defaultModel
	}
	// A model per call keeps per-request settings from leaking between goroutines.
	model := c.client.GenerativeModel(modelID)
	if req.Temperature != nil {
		model.SetTemperature(float32(*req.Temperature))
	}
	if req.MaxTokens != nil {
		model.SetMaxOutputTokens(int32(*req.MaxTokens))
	}
	if req.WantsJSON() {
		model.ResponseMIMEType = "application/json"
	}

	var system []string
	var history []*genai.Content
	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			system = append(system, msg.Content)
		case RoleAssistant:
			history = append(history, &genai.Content{Role: "model", Parts: []genai.Part{genai.Text(msg.Content)}})
		default:
			history = append(history, &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(msg.Content)}})
		}
	}
	if len(history) == 0 {
		return nil, errors.New("gemini: request has no user message")
	}
	if len(system) > 0 {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(strings.Join(system, "\n\n"))}}
	}

	chat := model.StartChat()
	chat.History = history[:len(history)-1]
	last := history[len(history)-1]

	resp, err := chat.SendMessage(ctx, last.Parts...)
	if err != nil {
		return nil, fmt.Errorf("gemini API call failed: %w", err)
	}

	var text strings.Builder
	finish := ""
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if t, ok := part.(genai.Text); ok {
				text.WriteString(string(t))
			}
		}
		finish = strings.ToLower(resp.Candidates[0].FinishReason.String())
	}

	out := &ChatCompletionResponse{
		ID:      fmt.Sprintf("gemini-%d", time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   modelID,
		Choices: []Choice{{
			Index:        0,
			Message:      &ChatMessage{Role: RoleAssistant, Content: text.String()},
			FinishReason: finish,
		}},
	}
	if resp.UsageMetadata != nil {
		out.Usage = &Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	return out, nil
}
