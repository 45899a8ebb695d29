package tools

import "github.com/xiaot623/librarydesk/internal/domain"

// JSONSchema is the subset of JSON Schema used to describe tool parameters.
type JSONSchema struct {
	Type        string                 `json:"type"`
	Description string                 `json:"description,omitempty"`
	Properties  map[string]*JSONSchema `json:"properties,omitempty"`
	Items       *JSONSchema            `json:"items,omitempty"`
	Enum        []string               `json:"enum,omitempty"`
	Required    []string               `json:"required,omitempty"`
}

// Definition describes a tool to the model and to API clients.
type Definition struct {
	Name        domain.ToolName `json:"name"`
	Description string          `json:"description"`
	Mutating    bool            `json:"mutating"`
	Parameters  JSONSchema      `json:"parameters"`
}

func object(required []string, props map[string]*JSONSchema) JSONSchema {
	return JSONSchema{Type: "object", Properties: props, Required: required}
}

func prop(typ, description string) *JSONSchema {
	return &JSONSchema{Type: typ, Description: description}
}

var definitions = map[domain.ToolName]Definition{
	domain.ToolFindBooks: {
		Name:        domain.ToolFindBooks,
		Description: "Search books by title or author. Several terms may be separated by commas or 'and'; each term is searched separately.",
		Parameters: object([]string{"q"}, map[string]*JSONSchema{
			"q": prop("string", "Search text, e.g. 'Dune, Foundation'."),
			"by": {
				Type:        "string",
				Description: "Field to match. Omit to match title or author.",
				Enum:        []string{"title", "author"},
			},
		}),
	},
	domain.ToolCreateOrder: {
		Name:        domain.ToolCreateOrder,
		Description: "Create an order for a customer. Each item names a book by isbn (preferred) or title.",
		Mutating:    true,
		Parameters: object([]string{"customer_id", "items"}, map[string]*JSONSchema{
			"customer_id": prop("integer", "ID of the ordering customer."),
			"items": {
				Type: "array",
				Items: &JSONSchema{
					Type: "object",
					Properties: map[string]*JSONSchema{
						"isbn":  prop("string", "ISBN of the book."),
						"title": prop("string", "Title of the book when the ISBN is unknown."),
						"qty":   prop("integer", "Number of copies, defaults to 1."),
					},
				},
			},
		}),
	},
	domain.ToolRestockBook: {
		Name:        domain.ToolRestockBook,
		Description: "Add copies of a book to stock.",
		Mutating:    true,
		Parameters: object([]string{"isbn", "qty"}, map[string]*JSONSchema{
			"isbn": prop("string", "ISBN of the book."),
			"qty":  prop("integer", "Number of copies to add."),
		}),
	},
	domain.ToolUpdatePrice: {
		Name:        domain.ToolUpdatePrice,
		Description: "Set the price of a book.",
		Mutating:    true,
		Parameters: object([]string{"isbn", "price"}, map[string]*JSONSchema{
			"isbn":  prop("string", "ISBN of the book."),
			"price": prop("number", "New price, not negative."),
		}),
	},
	domain.ToolOrderStatus: {
		Name:        domain.ToolOrderStatus,
		Description: "Show an order with its items.",
		Parameters: object([]string{"order_id"}, map[string]*JSONSchema{
			"order_id": prop("integer", "ID of the order."),
		}),
	},
	domain.ToolInventorySummary: {
		Name:        domain.ToolInventorySummary,
		Description: "List books whose stock is at or below a threshold.",
		Parameters: object(nil, map[string]*JSONSchema{
			"threshold": prop("integer", "Stock threshold, defaults to 5."),
		}),
	},
}
