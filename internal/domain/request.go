package domain

import "encoding/json"

// ChatRequest is a natural-language request from the librarian.
type ChatRequest struct {
	Query     string `json:"query" validate:"required"`
	SessionID string `json:"session_id,omitempty" validate:"omitempty,max=128"`
}

// ChatResponse is the outcome of one chat turn.
type ChatResponse struct {
	SessionID  string          `json:"session_id"`
	Tool       ToolName        `json:"tool,omitempty"`
	Args       json.RawMessage `json:"args,omitempty"`
	Response   interface{}     `json:"response,omitempty"`
	Summary    string          `json:"summary"`
	Chained    bool            `json:"chained"`
	ChainError string          `json:"chain_error,omitempty"`
	Error      *ToolError      `json:"error,omitempty"`
}

// MessageView is the replay form of a session message.
type MessageView struct {
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}
