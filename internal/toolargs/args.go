// Package toolargs turns the loosely shaped arguments a model suggests into
// validated, typed argument records for the inventory tools.
package toolargs

import (
	"encoding/json"

	"github.com/xiaot623/librarydesk/internal/config"
	"github.com/xiaot623/librarydesk/internal/domain"
)

// RawCall is a tool invocation as suggested by the model, before normalization.
type RawCall struct {
	Tool domain.ToolName `json:"tool"`
	Args json.RawMessage `json:"args,omitempty"`
}

// Args is a normalized argument record for one tool.
type Args interface {
	ToolName() domain.ToolName
}

// FindBooksArgs searches the catalog. Query may hold several terms separated
// by commas or "and".
type FindBooksArgs struct {
	Query string             `json:"q" validate:"required"`
	By    domain.SearchField `json:"by,omitempty" validate:"omitempty,oneof=title author"`
}

// CreateOrderArgs places an order. Warnings lists the lines dropped during
// normalization.
type CreateOrderArgs struct {
	CustomerID int64              `json:"customer_id" validate:"gt=0"`
	Items      []domain.OrderLine `json:"items" validate:"dive"`
	Warnings   []string           `json:"-"`
}

// RestockBookArgs adds copies of a book.
type RestockBookArgs struct {
	ISBN string `json:"isbn" validate:"required"`
	Qty  int    `json:"qty" validate:"gt=0"`
}

// UpdatePriceArgs overwrites the price of a book.
type UpdatePriceArgs struct {
	ISBN  string  `json:"isbn" validate:"required"`
	Price float64 `json:"price" validate:"gte=0"`
}

// OrderStatusArgs looks up an order.
type OrderStatusArgs struct {
	OrderID int64 `json:"order_id" validate:"gt=0"`
}

// InventorySummaryArgs lists books at or below Threshold copies.
type InventorySummaryArgs struct {
	Threshold int `json:"threshold" validate:"gte=0"`
}

func (*FindBooksArgs) ToolName() domain.ToolName { return domain.ToolFindBooks }
func (*CreateOrderArgs) ToolName() domain.ToolName { return domain.ToolCreateOrder }
func (*RestockBookArgs) ToolName() domain.ToolName { return domain.ToolRestockBook }
func (*UpdatePriceArgs) ToolName() domain.ToolName { return domain.ToolUpdatePrice }
func (*OrderStatusArgs) ToolName() domain.ToolName { return domain.ToolOrderStatus }
func (*InventorySummaryArgs) ToolName() domain.ToolName { return domain.ToolInventorySummary }

// Defaults are the values filled in when the model leaves a field out.
type Defaults struct {
	RestockQty        int
	OrderQty          int
	LowStockThreshold int
}

// DefaultPolicy returns the built-in defaults.
func DefaultPolicy() Defaults {
	return Defaults{
		RestockQty:        config.DefaultRestockQty,
		OrderQty:          config.DefaultOrderQty,
		LowStockThreshold: config.DefaultLowStockThreshold,
	}
}

// PolicyFromConfig returns the defaults configured for the service.
func PolicyFromConfig(cfg *config.Config) Defaults {
	d := DefaultPolicy()
	if cfg.DefaultRestockQty > 0 {
		d.RestockQty = cfg.DefaultRestockQty
	}
	if cfg.DefaultOrderQty > 0 {
		d.OrderQty = cfg.DefaultOrderQty
	}
	if cfg.LowStockThreshold >= 0 {
		d.LowStockThreshold = cfg.LowStockThreshold
	}
	return d
}
