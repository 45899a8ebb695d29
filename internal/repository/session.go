package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/xiaot623/librarydesk/internal/domain"
)

// CreateMessage appends a message to the session log and sets its ID.
func (s *SQLStore) CreateMessage(ctx context.Context, message *domain.Message) error {
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}
	err := s.db.QueryRowContext(ctx,
		s.rebind(`INSERT INTO messages (session_id, role, content, created_at) VALUES (?, ?, ?, ?) RETURNING id`),
		message.SessionID, string(message.Role), message.Content, message.CreatedAt.UnixMilli()).Scan(&message.ID)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// ListMessages returns the messages of a session in conversation order.
func (s *SQLStore) ListMessages(ctx context.Context, sessionID string) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		s.rebind(`SELECT id, session_id, role, content, created_at FROM messages WHERE session_id = ? ORDER BY created_at ASC, id ASC`),
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []domain.Message{}
	for rows.Next() {
		var msg domain.Message
		var role string
		var createdAt int64
		if err := rows.Scan(&msg.ID, &msg.SessionID, &role, &msg.Content, &createdAt); err != nil {
			return nil, err
		}
		msg.Role = domain.Role(role)
		msg.CreatedAt = time.UnixMilli(createdAt).UTC()
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// ListSessions returns every session that has logged messages, most recently
// active first.
func (s *SQLStore) ListSessions(ctx context.Context) ([]domain.SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, MAX(created_at) AS last_activity
		FROM messages
		GROUP BY session_id
		ORDER BY last_activity DESC, session_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []domain.SessionSummary{}
	for rows.Next() {
		var summary domain.SessionSummary
		var last int64
		if err := rows.Scan(&summary.SessionID, &last); err != nil {
			return nil, err
		}
		summary.LastActivity = time.UnixMilli(last).UTC()
		sessions = append(sessions, summary)
	}
	return sessions, rows.Err()
}

// CreateToolCall records a tool dispatch attempt and sets its ID.
func (s *SQLStore) CreateToolCall(ctx context.Context, toolCall *domain.ToolCall) error {
	if toolCall.CreatedAt.IsZero() {
		toolCall.CreatedAt = time.Now()
	}
	err := s.db.QueryRowContext(ctx,
		s.rebind(`INSERT INTO tool_calls (session_id, tool_name, status, args, result, error, chained, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		toolCall.SessionID, string(toolCall.ToolName), string(toolCall.Status),
		nullStringBytes(toolCall.Args), nullStringBytes(toolCall.Result), nullStringBytes(toolCall.Error),
		toolCall.Chained, toolCall.CreatedAt.UnixMilli()).Scan(&toolCall.ID)
	if err != nil {
		return fmt.Errorf("failed to create tool call: %w", err)
	}
	return nil
}

// ListToolCalls returns the tool calls of a session in dispatch order.
func (s *SQLStore) ListToolCalls(ctx context.Context, sessionID string) ([]domain.ToolCall, error) {
	rows, err := s.db.QueryContext(ctx,
		s.rebind(`SELECT id, session_id, tool_name, status, args, result, error, chained, created_at FROM tool_calls WHERE session_id = ? ORDER BY created_at ASC, id ASC`),
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	calls := []domain.ToolCall{}
	for rows.Next() {
		var tc domain.ToolCall
		var toolName, status string
		var args, result, errData sql.NullString
		var createdAt int64
		if err := rows.Scan(&tc.ID, &tc.SessionID, &toolName, &status, &args, &result, &errData, &tc.Chained, &createdAt); err != nil {
			return nil, err
		}
		tc.ToolName = domain.ToolName(toolName)
		tc.Status = domain.ToolCallStatus(status)
		if args.Valid {
			tc.Args = json.RawMessage(args.String)
		}
		if result.Valid {
			tc.Result = json.RawMessage(result.String)
		}
		if errData.Valid {
			tc.Error = json.RawMessage(errData.String)
		}
		tc.CreatedAt = time.UnixMilli(createdAt).UTC()
		calls = append(calls, tc)
	}
	return calls, rows.Err()
}
