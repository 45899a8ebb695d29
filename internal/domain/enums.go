// Package domain defines the core domain models for the library desk assistant.
package domain

// Role is the author of a session message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolName identifies one of the inventory tools the assistant can call.
type ToolName string

const (
	ToolFindBooks        ToolName = "find_books"
	ToolCreateOrder      ToolName = "create_order"
	ToolRestockBook      ToolName = "restock_book"
	ToolUpdatePrice      ToolName = "update_price"
	ToolOrderStatus      ToolName = "order_status"
	ToolInventorySummary ToolName = "inventory_summary"
)

// AllTools lists the tools in catalog order.
var AllTools = []ToolName{
	ToolFindBooks,
	ToolCreateOrder,
	ToolRestockBook,
	ToolUpdatePrice,
	ToolOrderStatus,
	ToolInventorySummary,
}

// Mutating reports whether the tool changes inventory state.
func (t ToolName) Mutating() bool {
	switch t {
	case ToolCreateOrder, ToolRestockBook, ToolUpdatePrice:
		return true
	}
	return false
}

// SearchField selects the book column a search term is matched against.
type SearchField string

const (
	SearchAny    SearchField = ""
	SearchTitle  SearchField = "title"
	SearchAuthor SearchField = "author"
)

// ToolCallStatus represents the status of a tool call.
type ToolCallStatus string

const (
	ToolCallStatusSucceeded ToolCallStatus = "SUCCEEDED"
	ToolCallStatusFailed    ToolCallStatus = "FAILED"
	ToolCallStatusBlocked   ToolCallStatus = "BLOCKED"
)

// EventType represents the type of a session event pushed to live subscribers.
type EventType string

const (
	EventTypeSubscribed EventType = "subscribed"
	EventTypeMessage    EventType = "message"
	EventTypeToolCall   EventType = "tool_call"
)

// Tool error codes.
const (
	ErrorCodeUnknownTool  = "unknown_tool"
	ErrorCodeInvalidArgs  = "invalid_args"
	ErrorCodeNotFound     = "not_found"
	ErrorCodeNoValidItems = "no_valid_items"
	ErrorCodePolicyDenied = "policy_denied"
	ErrorCodeInternal     = "internal"
)
