package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MockClient is an offline LLMClient. Scripted replies are returned first, in
// order; after that a keyword heuristic picks a tool, or writes a plain
// summary when no JSON reply was requested.
type MockClient struct {
	mu       sync.Mutex
	script   []mockReply
	requests []ChatCompletionRequest
}

type mockReply struct {
	content string
	err     error
}

// NewMockClient creates a new mock LLM client that replies with responses, in order.
func NewMockClient(responses ...string) *MockClient {
	m := &MockClient{}
	for _, r := range responses {
		m.Script(r)
	}
	return m
}

// Script queues a reply.
func (m *MockClient) Script(content string) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, mockReply{content: content})
	return m
}

// ScriptError queues a failure.
func (m *MockClient) ScriptError(err error) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, mockReply{err: err})
	return m
}

// Requests returns the requests received so far.
func (m *MockClient) Requests() []ChatCompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ChatCompletionRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// CreateChatCompletion returns the next scripted reply or a heuristic one.
func (m *MockClient) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.requests = append(m.requests, *req)
	var next *mockReply
	if len(m.script) > 0 {
		next = &m.script[0]
		m.script = m.script[1:]
	}
	m.mu.Unlock()

	var content string
	switch {
	case next != nil && next.err != nil:
		return nil, next.err
	case next != nil:
		content = next.content
	case req.WantsJSON():
		content = suggestTool(req.LastUserMessage())
	default:
		content = summarize(req.LastUserMessage())
	}

	return &ChatCompletionResponse{
		ID:      fmt.Sprintf("mock-chatcmpl-%d", time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []Choice{
			{
				Index: 0,
				Message: &ChatMessage{
					Role:    RoleAssistant,
					Content: content,
				},
				FinishReason: "stop",
			},
		},
		Usage: &Usage{
			PromptTokens:     estimateTokens(req),
			CompletionTokens: len(content) / 4,
			TotalTokens:      estimateTokens(req) + len(content)/4,
		},
		SystemFingerprint: "mock-fp",
	}, nil
}

var (
	mockISBN     = regexp.MustCompile(`\b97[89][-\d]{10,14}\b`)
	mockOrderRef = regexp.MustCompile(`(?i)order\s*(?:#|no\.?|number)?\s*(\d+)`)
	mockCustomer = regexp.MustCompile(`(?i)customer\s*#?\s*(\d+)`)
	mockQty      = regexp.MustCompile(`(?i)(?:\bx\s*|\b)(\d+)\s*(?:copies|copy|units|more)?\b`)
	mockPrice    = regexp.MustCompile(`\$?(\d+\.\d{1,2})`)
	mockFound    = regexp.MustCompile(`(?m)^- (.+) \(isbn ([^)]+)\)$`)
	mockUserSaid = regexp.MustCompile(`^The user said: "(.*)"\.`)
)

// suggestTool maps a request to a tool call using keywords.
// A follow-up prompt quoting the user is read for intent from the quote and
// for ISBNs from the listed books.
func suggestTool(prompt string) string {
	query := prompt
	if m := mockUserSaid.FindStringSubmatch(prompt); m != nil {
		query = m[1]
	}
	lower := strings.ToLower(query)
	isbn := mockISBN.FindString(query)
	if isbn == "" {
		if m := mockFound.FindStringSubmatch(prompt); m != nil {
			isbn = m[2]
		}
	}

	call := func(tool string, args map[string]interface{}) string {
		data, _ := json.Marshal(map[string]interface{}{"tool": tool, "args": args})
		return string(data)
	}

	switch {
	case strings.Contains(lower, "low stock") || strings.Contains(lower, "inventory") || strings.Contains(lower, "running low"):
		return call("inventory_summary", map[string]interface{}{})
	case strings.Contains(lower, "status") || (mockOrderRef.MatchString(query) && !strings.Contains(lower, "customer")):
		if m := mockOrderRef.FindStringSubmatch(query); m != nil {
			id, _ := strconv.Atoi(m[1])
			return call("order_status", map[string]interface{}{"order_id": id})
		}
	case strings.Contains(lower, "price") && isbn != "":
		if m := mockPrice.FindStringSubmatch(query); m != nil {
			price, _ := strconv.ParseFloat(m[1], 64)
			return call("update_price", map[string]interface{}{"isbn": isbn, "price": price})
		}
	case strings.Contains(lower, "restock") && isbn != "":
		return call("restock_book", map[string]interface{}{"isbn": isbn, "qty": firstQty(query, isbn)})
	case (strings.Contains(lower, "order") || strings.Contains(lower, "buy")) && isbn != "":
		customer := 1
		if m := mockCustomer.FindStringSubmatch(query); m != nil {
			customer, _ = strconv.Atoi(m[1])
		}
		return call("create_order", map[string]interface{}{
			"customer_id": customer,
			"items":       []map[string]interface{}{{"isbn": isbn, "qty": firstQty(query, isbn)}},
		})
	}
	return call("find_books", map[string]interface{}{"q": searchText(query)})
}

func firstQty(query, isbn string) int {
	text := strings.ReplaceAll(query, isbn, " ")
	text = mockCustomer.ReplaceAllString(text, " ")
	if m := mockQty.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			return n
		}
	}
	return 1
}

var fillerWords = regexp.MustCompile(`(?i)\b(find|search|for|look|up|show|me|do|you|have|any|books?|by|the|please|and|then|order|buy|purchase|restock|copies|copy|of|x?\d+)\b`)

func searchText(query string) string {
	if i := strings.IndexByte(query, '\n'); i >= 0 {
		query = query[:i]
	}
	text := fillerWords.ReplaceAllString(query, " ")
	text = strings.Trim(strings.Join(strings.Fields(text), " "), " ?.!,")
	if text == "" {
		return strings.TrimSpace(query)
	}
	return text
}

func summarize(prompt string) string {
	return "[MOCK] " + truncate(strings.Join(strings.Fields(prompt), " "), 200)
}

// estimateTokens provides a rough token count estimate.
func estimateTokens(req *ChatCompletionRequest) int {
	total := 0
	for _, msg := range req.Messages {
		total += len(msg.Content) / 4
	}
	return total
}

// truncate truncates a string to the given length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
