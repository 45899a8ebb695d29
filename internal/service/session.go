package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xiaot623/librarydesk/internal/domain"
)

// logMessage appends a message to the session log. Failures are logged and
// never abort the chat turn.
func (s *Service) logMessage(ctx context.Context, sessionID string, role domain.Role, content string) {
	msg := &domain.Message{
		SessionID: sessionID,
		Role:      role,
		Content:   content,
	}
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		slog.Error("failed to log message", "session_id", sessionID, "role", role, "error", err)
		return
	}
	s.publisher.Publish(domain.SessionEvent{
		Type:      domain.EventTypeMessage,
		SessionID: sessionID,
		Payload:   messageView(*msg),
	})
}

func (s *Service) ListSessions(ctx context.Context) ([]domain.SessionSummary, error) {
	sessions, err := s.store.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// GetMessages returns the replay form of a session, oldest first. An unknown
// session yields an empty list.
func (s *Service) GetMessages(ctx context.Context, sessionID string) ([]domain.MessageView, error) {
	messages, err := s.store.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	views := make([]domain.MessageView, 0, len(messages))
	for _, m := range messages {
		views = append(views, messageView(m))
	}
	return views, nil
}

func (s *Service) GetToolCalls(ctx context.Context, sessionID string) ([]domain.ToolCall, error) {
	calls, err := s.store.ListToolCalls(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tool calls: %w", err)
	}
	return calls, nil
}

func messageView(m domain.Message) domain.MessageView {
	return domain.MessageView{
		Role:      m.Role,
		Content:   m.Content,
		CreatedAt: m.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}
