package repository

import (
	"context"

	"github.com/xiaot623/librarydesk/internal/domain"
)

// Store defines the interface for data persistence.
type Store interface {
	// Inventory operations
	SearchBooks(ctx context.Context, term string, field domain.SearchField) ([]domain.Book, error)
	GetBook(ctx context.Context, isbn string) (*domain.Book, error)
	CreateOrder(ctx context.Context, customerID int64, lines []domain.OrderLine) (*domain.OrderReceipt, error)
	RestockBook(ctx context.Context, isbn string, qty int) (*domain.Book, error)
	UpdatePrice(ctx context.Context, isbn string, price float64) (*domain.Book, error)
	GetOrder(ctx context.Context, orderID int64) (*domain.Order, error)
	ListLowStock(ctx context.Context, threshold int) ([]domain.Book, error)
	GetCustomer(ctx context.Context, id int64) (*domain.Customer, error)

	// Session log operations
	CreateMessage(ctx context.Context, message *domain.Message) error
	ListMessages(ctx context.Context, sessionID string) ([]domain.Message, error)
	ListSessions(ctx context.Context) ([]domain.SessionSummary, error)
	CreateToolCall(ctx context.Context, toolCall *domain.ToolCall) error
	ListToolCalls(ctx context.Context, sessionID string) ([]domain.ToolCall, error)

	// Lifecycle
	Ping() error
	Close() error
}

var _ Store = (*SQLStore)(nil)
