package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonRequest(text string) *ChatCompletionRequest {
	return &ChatCompletionRequest{
		Model:          "mock",
		Messages:       []ChatMessage{{Role: RoleSystem, Content: "tools"}, {Role: RoleUser, Content: text}},
		ResponseFormat: map[string]interface{}{"type": "json_object"},
	}
}

func TestMockClientScript(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	m := NewMockClient("first").ScriptError(boom)

	resp, err := m.CreateChatCompletion(ctx, jsonRequest("x"))
	require.NoError(t, err)
	assert.Equal(t, "first", resp.Content())

	_, err = m.CreateChatCompletion(ctx, jsonRequest("x"))
	assert.ErrorIs(t, err, boom)

	resp, err = m.CreateChatCompletion(ctx, &ChatCompletionRequest{Messages: []ChatMessage{{Role: RoleUser, Content: "summarize"}}})
	require.NoError(t, err)
	assert.Equal(t, "[MOCK] summarize", resp.Content())
	assert.Len(t, m.Requests(), 3)
}

func TestMockClientHeuristic(t *testing.T) {
	cases := []struct {
		query string
		tool  string
		args  map[string]interface{}
	}{
		{"Find books by Frank Herbert", "find_books", map[string]interface{}{"q": "Frank Herbert"}},
		{"Which books are running low?", "inventory_summary", map[string]interface{}{}},
		{"What is the status of order #7?", "order_status", map[string]interface{}{"order_id": float64(7)}},
		{"Restock 978-0547928227 with 10 copies", "restock_book", map[string]interface{}{"isbn": "978-0547928227", "qty": float64(10)}},
		{"Set the price of 978-0441172719 to $12.50", "update_price", map[string]interface{}{"isbn": "978-0441172719", "price": 12.5}},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			resp, err := NewMockClient().CreateChatCompletion(context.Background(), jsonRequest(tc.query))
			require.NoError(t, err)

			var got struct {
				Tool string                 `json:"tool"`
				Args map[string]interface{} `json:"args"`
			}
			require.NoError(t, json.Unmarshal([]byte(resp.Content()), &got))
			assert.Equal(t, tc.tool, got.Tool)
			assert.Equal(t, tc.args, got.Args)
		})
	}
}

func TestMockClientCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMockClient("x").CreateChatCompletion(ctx, jsonRequest("x"))
	assert.ErrorIs(t, err, context.Canceled)
}
