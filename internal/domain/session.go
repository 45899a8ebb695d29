package domain

import (
	"encoding/json"
	"time"
)

// Message represents a single turn in a session.
type Message struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ToolCall represents a tool dispatch attempt, successful or not.
type ToolCall struct {
	ID        int64           `json:"id"`
	SessionID string          `json:"session_id"`
	ToolName  ToolName        `json:"tool_name"`
	Status    ToolCallStatus  `json:"status"`
	Args      json.RawMessage `json:"args"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     json.RawMessage `json:"error,omitempty"`
	Chained   bool            `json:"chained"`
	CreatedAt time.Time       `json:"created_at"`
}

// SessionSummary is a session derived from its logged messages.
type SessionSummary struct {
	SessionID    string    `json:"session_id"`
	LastActivity time.Time `json:"last_activity"`
}

// SessionEvent is pushed to live subscribers of a session.
type SessionEvent struct {
	Type      EventType   `json:"type"`
	SessionID string      `json:"session_id"`
	Ts        int64       `json:"ts"`
	Payload   interface{} `json:"payload"`
}
