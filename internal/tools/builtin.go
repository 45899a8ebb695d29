package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/xiaot623/librarydesk/internal/domain"
	"github.com/xiaot623/librarydesk/internal/toolargs"
)

// Inventory is the store surface the tools run against.
type Inventory interface {
	SearchBooks(ctx context.Context, term string, field domain.SearchField) ([]domain.Book, error)
	CreateOrder(ctx context.Context, customerID int64, lines []domain.OrderLine) (*domain.OrderReceipt, error)
	RestockBook(ctx context.Context, isbn string, qty int) (*domain.Book, error)
	UpdatePrice(ctx context.Context, isbn string, price float64) (*domain.Book, error)
	GetOrder(ctx context.Context, orderID int64) (*domain.Order, error)
	ListLowStock(ctx context.Context, threshold int) ([]domain.Book, error)
}

// RestockResult is returned by restock_book.
type RestockResult struct {
	ISBN     string `json:"isbn"`
	Title    string `json:"title"`
	NewStock int    `json:"new_stock"`
}

// PriceResult is returned by update_price.
type PriceResult struct {
	ISBN         string  `json:"isbn"`
	Title        string  `json:"title"`
	UpdatedPrice float64 `json:"updated_price"`
}

// LowStockBook is one entry of an inventory summary.
type LowStockBook struct {
	Title string `json:"title"`
	ISBN  string `json:"isbn"`
	Stock int    `json:"stock"`
}

// InventorySummary is returned by inventory_summary.
type InventorySummary struct {
	Threshold     int            `json:"threshold"`
	LowStockBooks []LowStockBook `json:"low_stock_books"`
	Message       string         `json:"message,omitempty"`
}

// RegisterBuiltins registers the six inventory tools against inv.
func RegisterBuiltins(r *Registry, inv Inventory) {
	for _, name := range domain.AllTools {
		def := definitions[name]
		def.Mutating = name.Mutating()
		r.MustRegister(def, builtinHandler(name, inv))
	}
}

func builtinHandler(name domain.ToolName, inv Inventory) HandlerFunc {
	switch name {
	case domain.ToolFindBooks:
		return func(ctx context.Context, args toolargs.Args) (interface{}, error) {
			return findBooks(ctx, inv, args.(*toolargs.FindBooksArgs))
		}
	case domain.ToolCreateOrder:
		return func(ctx context.Context, args toolargs.Args) (interface{}, error) {
			return createOrder(ctx, inv, args.(*toolargs.CreateOrderArgs))
		}
	case domain.ToolRestockBook:
		return func(ctx context.Context, args toolargs.Args) (interface{}, error) {
			a := args.(*toolargs.RestockBookArgs)
			b, err := inv.RestockBook(ctx, a.ISBN, a.Qty)
			if err != nil {
				return nil, err
			}
			return &RestockResult{ISBN: b.ISBN, Title: b.Title, NewStock: b.Stock}, nil
		}
	case domain.ToolUpdatePrice:
		return func(ctx context.Context, args toolargs.Args) (interface{}, error) {
			a := args.(*toolargs.UpdatePriceArgs)
			b, err := inv.UpdatePrice(ctx, a.ISBN, a.Price)
			if err != nil {
				return nil, err
			}
			return &PriceResult{ISBN: b.ISBN, Title: b.Title, UpdatedPrice: b.Price}, nil
		}
	case domain.ToolOrderStatus:
		return func(ctx context.Context, args toolargs.Args) (interface{}, error) {
			a := args.(*toolargs.OrderStatusArgs)
			order, err := inv.GetOrder(ctx, a.OrderID)
			if err != nil {
				return nil, err
			}
			if order == nil {
				return nil, fmt.Errorf("order %d: %w", a.OrderID, domain.ErrOrderNotFound)
			}
			return order, nil
		}
	case domain.ToolInventorySummary:
		return func(ctx context.Context, args toolargs.Args) (interface{}, error) {
			return inventorySummary(ctx, inv, args.(*toolargs.InventorySummaryArgs))
		}
	}
	panic(fmt.Sprintf("no builtin handler for %s", name))
}

// findBooks searches each term separately and concatenates the matches in
// term order. A book matching two terms appears twice.
func findBooks(ctx context.Context, inv Inventory, args *toolargs.FindBooksArgs) ([]domain.Book, error) {
	books := []domain.Book{}
	for _, term := range toolargs.SplitTerms(args.Query) {
		found, err := inv.SearchBooks(ctx, term, args.By)
		if err != nil {
			return nil, err
		}
		books = append(books, found...)
	}
	return books, nil
}

func createOrder(ctx context.Context, inv Inventory, args *toolargs.CreateOrderArgs) (*domain.OrderReceipt, error) {
	receipt, err := inv.CreateOrder(ctx, args.CustomerID, args.Items)
	if err != nil {
		var nv *domain.NoValidItemsError
		if errors.As(err, &nv) {
			return nil, &domain.NoValidItemsError{Warnings: mergeWarnings(args.Warnings, nv.Warnings)}
		}
		return nil, err
	}
	receipt.Warnings = mergeWarnings(args.Warnings, receipt.Warnings)
	return receipt, nil
}

func mergeWarnings(first, second []string) []string {
	out := make([]string, 0, len(first)+len(second))
	out = append(out, first...)
	return append(out, second...)
}

func inventorySummary(ctx context.Context, inv Inventory, args *toolargs.InventorySummaryArgs) (*InventorySummary, error) {
	books, err := inv.ListLowStock(ctx, args.Threshold)
	if err != nil {
		return nil, err
	}
	summary := &InventorySummary{
		Threshold:     args.Threshold,
		LowStockBooks: make([]LowStockBook, 0, len(books)),
	}
	for _, b := range books {
		summary.LowStockBooks = append(summary.LowStockBooks, LowStockBook{Title: b.Title, ISBN: b.ISBN, Stock: b.Stock})
	}
	if len(books) == 0 {
		summary.Message = fmt.Sprintf("No books found below stock threshold (%d).", args.Threshold)
	}
	return summary, nil
}
