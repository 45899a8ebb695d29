package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/xiaot623/librarydesk/internal/adapter/llm"
	"github.com/xiaot623/librarydesk/internal/domain"
	"github.com/xiaot623/librarydesk/internal/policy"
	"github.com/xiaot623/librarydesk/internal/toolargs"
	"github.com/xiaot623/librarydesk/internal/tools"
)

// ErrEmptyQuery is returned when a chat request carries no text.
var ErrEmptyQuery = errors.New("query is required")

// chainIntent matches requests that want a search followed by a change.
// Keywords match anywhere in the query, so "reorder" counts.
var chainIntent = regexp.MustCompile(`(?i)(order|buy|purchase|restock|add|increase|price)`)

// Chat runs one chat turn. Tool and model failures are reported in the
// response; only an empty query is returned as an error.
func (s *Service) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	resp := &domain.ChatResponse{SessionID: sessionID}
	s.logMessage(ctx, sessionID, domain.RoleUser, query)
	defer func() {
		s.logMessage(ctx, sessionID, domain.RoleAssistant, resp.Summary)
	}()

	call, err := s.interpret(ctx, query)
	if err != nil {
		slog.Warn("failed to interpret request", "session_id", sessionID, "error", err)
		resp.Summary = fmt.Sprintf("Could not interpret your request. (%v)", err)
		return resp, nil
	}

	out := s.execute(ctx, sessionID, call, false)
	applyOutcome(resp, call, out)
	if !out.OK() {
		resp.Summary = failureSummary(out)
		return resp, nil
	}

	if books, ok := out.Result.([]domain.Book); ok && call.Tool == domain.ToolFindBooks && len(books) > 0 && chainIntent.MatchString(query) {
		next, chainErr := s.chain(ctx, sessionID, query, books)
		if chainErr != nil {
			slog.Warn("chained call failed", "session_id", sessionID, "error", chainErr)
			resp.ChainError = chainErr.Error()
		} else {
			applyOutcome(resp, toolargs.RawCall{Tool: next.Tool}, next)
			resp.Chained = true
		}
	}

	resp.Summary = s.summarize(ctx, query, resp.Tool, resp.Response)
	return resp, nil
}

// interpret asks the model which tool the request needs.
func (s *Service) interpret(ctx context.Context, query string) (toolargs.RawCall, error) {
	text, err := s.complete(ctx, s.systemPrompt, query, true)
	if err != nil {
		return toolargs.RawCall{}, err
	}
	return toolargs.ParseSuggestion(text)
}

// chain asks for and runs the follow-up call after a successful search.
func (s *Service) chain(ctx context.Context, sessionID, query string, books []domain.Book) (*tools.Outcome, error) {
	text, err := s.complete(ctx, s.systemPrompt, chainPrompt(query, books), true)
	if err != nil {
		return nil, fmt.Errorf("follow-up completion failed: %w", err)
	}
	call, err := toolargs.ParseSuggestion(text)
	if err != nil {
		return nil, fmt.Errorf("could not interpret follow-up: %w", err)
	}
	out := s.execute(ctx, sessionID, call, true)
	if !out.OK() {
		return nil, fmt.Errorf("follow-up %s failed: %s", call.Tool, out.Err.Message)
	}
	return out, nil
}

// execute checks the tool policy, dispatches the call and records the attempt.
func (s *Service) execute(ctx context.Context, sessionID string, call toolargs.RawCall, chained bool) *tools.Outcome {
	var out *tools.Outcome
	status := domain.ToolCallStatusBlocked

	decision, reason, err := s.policyEngine.Evaluate(ctx, policy.Input{
		ToolName:  string(call.Tool),
		Args:      decodeArgs(call.Args),
		SessionID: sessionID,
		Chained:   chained,
		ReadOnly:  s.config.ReadOnly,
	})
	switch {
	case err != nil:
		slog.Error("policy evaluation failed", "tool", call.Tool, "error", err)
		out = blocked(call.Tool, "tool policy could not be evaluated")
	case decision == policy.DecisionBlock:
		slog.Info("tool call blocked by policy", "tool", call.Tool, "reason", reason, "chained", chained)
		out = blocked(call.Tool, reason)
	default:
		out = s.dispatcher.Dispatch(ctx, call)
		status = domain.ToolCallStatusSucceeded
		if !out.OK() {
			status = domain.ToolCallStatusFailed
		}
	}

	args := call.Args
	if out.Args != nil {
		args = out.ArgsJSON()
	}
	tc := &domain.ToolCall{
		SessionID: sessionID,
		ToolName:  call.Tool,
		Status:    status,
		Args:      args,
		Result:    out.ResultJSON(),
		Error:     out.ErrorJSON(),
		Chained:   chained,
	}
	if err := s.store.CreateToolCall(ctx, tc); err != nil {
		slog.Error("failed to record tool call", "session_id", sessionID, "tool", call.Tool, "error", err)
	}
	s.publisher.Publish(domain.SessionEvent{
		Type:      domain.EventTypeToolCall,
		SessionID: sessionID,
		Payload:   tc,
	})
	return out
}

// summarize turns the final result into user-facing text. A failed summary
// falls back to a fixed message; the structured result is kept either way.
func (s *Service) summarize(ctx context.Context, query string, tool domain.ToolName, result interface{}) string {
	data, err := json.Marshal(result)
	if err != nil {
		data = []byte("null")
	}
	text, err := s.complete(ctx, summarySystemPrompt, summaryPrompt(query, tool, data), false)
	if err == nil && strings.TrimSpace(text) == "" {
		err = errors.New("empty summary")
	}
	if err != nil {
		slog.Warn("summary generation failed", "tool", tool, "error", err)
		return fmt.Sprintf("Tool '%s' executed successfully, but summary generation failed (%v).", tool, err)
	}
	return strings.TrimSpace(text)
}

// complete runs one completion bounded by the configured LLM timeout.
func (s *Service) complete(ctx context.Context, system, user string, wantJSON bool) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.LLMTimeout())
	defer cancel()

	req := &llm.ChatCompletionRequest{
		Model: s.config.LLMModel,
		Messages: []llm.ChatMessage{
			{Role: llm.RoleSystem, Content: system},
			{Role: llm.RoleUser, Content: user},
		},
	}
	if wantJSON {
		req.Temperature = llm.Float64(0)
		req.ResponseFormat = map[string]interface{}{"type": "json_object"}
	}
	resp, err := s.llmClient.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	return resp.Content(), nil
}

func applyOutcome(resp *domain.ChatResponse, call toolargs.RawCall, out *tools.Outcome) {
	resp.Tool = out.Tool
	if out.Args != nil {
		resp.Args = out.ArgsJSON()
	} else {
		resp.Args = call.Args
	}
	resp.Response = out.Result
	resp.Error = out.Err
}

func failureSummary(out *tools.Outcome) string {
	switch out.Err.Code {
	case domain.ErrorCodeUnknownTool:
		return out.Err.Message
	case domain.ErrorCodePolicyDenied:
		return fmt.Sprintf("Tool '%s' was not allowed: %s", out.Tool, out.Err.Message)
	}
	return fmt.Sprintf("Error while executing %s: %s", out.Tool, out.Err.Message)
}

func blocked(tool domain.ToolName, reason string) *tools.Outcome {
	if reason == "" {
		reason = "blocked by tool policy"
	}
	return &tools.Outcome{
		Tool: tool,
		Err:  &domain.ToolError{Code: domain.ErrorCodePolicyDenied, Message: reason},
	}
}

func decodeArgs(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}
