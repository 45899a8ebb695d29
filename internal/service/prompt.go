package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xiaot623/librarydesk/internal/domain"
	"github.com/xiaot623/librarydesk/internal/tools"
)

const summarySystemPrompt = "You are a friendly library assistant. Summarize tool results for a librarian in one or two short sentences."

func buildSystemPrompt(defs []tools.Definition) string {
	var b strings.Builder
	b.WriteString("You are the assistant of a small bookstore's librarian. ")
	b.WriteString("Translate each request into exactly one call of the tools below.\n\n")
	b.WriteString("Tools:\n")
	for _, def := range defs {
		params, _ := json.Marshal(def.Parameters)
		fmt.Fprintf(&b, "- %s: %s\n  parameters: %s\n", def.Name, def.Description, params)
	}
	b.WriteString("\nReply with a single JSON object and nothing else, in the form ")
	b.WriteString(`{"tool": "<tool name>", "args": {...}}`)
	b.WriteString(".\nIf the request asks to order, restock or reprice a book by title only, call find_books first.\n")
	return b.String()
}

// chainPrompt asks for the follow-up call after a search found books.
func chainPrompt(query string, books []domain.Book) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The user said: %q.\n", query)
	b.WriteString("The following books were found:\n")
	for _, book := range books {
		fmt.Fprintf(&b, "- %s (isbn %s)\n", book.Title, book.ISBN)
	}
	b.WriteString("Now output only one JSON object describing the next tool call.\n")
	b.WriteString("Use the tool matching the intent:\n")
	b.WriteString("- to order or buy, use create_order\n")
	b.WriteString("- to restock or add copies, use restock_book\n")
	b.WriteString("- to change a price, use update_price\n")
	fmt.Fprintf(&b, "Example output: {\"tool\": \"create_order\", \"args\": {\"customer_id\": 1, \"items\": [{\"isbn\": %q, \"qty\": 2}]}}", books[0].ISBN)
	return b.String()
}

func summaryPrompt(query string, tool domain.ToolName, result json.RawMessage) string {
	return fmt.Sprintf("The user asked: %q\nTool used: %s\nResult: %s\nWrite a short, friendly summary for the user.", query, tool, result)
}
