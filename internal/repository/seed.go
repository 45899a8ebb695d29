package repository

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/xiaot623/librarydesk/internal/domain"
)

//go:embed seed_data.json
var defaultSeed []byte

// SeedData is the import format for books, customers and historical orders.
type SeedData struct {
	Books     []domain.Book     `json:"books"`
	Customers []domain.Customer `json:"customers"`
	Orders    []SeedOrder       `json:"orders"`
}

// SeedOrder is a historical order. It is imported without touching stock.
type SeedOrder struct {
	CustomerEmail string          `json:"customer_email"`
	CreatedAt     time.Time       `json:"created_at"`
	Items         []SeedOrderItem `json:"items"`
}

// SeedOrderItem is a line of a historical order.
type SeedOrderItem struct {
	ISBN string `json:"isbn"`
	Qty  int    `json:"qty"`
}

// SeedStats counts the rows a seed run inserted.
type SeedStats struct {
	Books     int `json:"books"`
	Customers int `json:"customers"`
	Orders    int `json:"orders"`
}

// SeedDefault imports the bundled sample catalog.
func (s *SQLStore) SeedDefault(ctx context.Context) (*SeedStats, error) {
	return s.seedJSON(ctx, defaultSeed)
}

// SeedFromFile imports seed data from a JSON file.
func (s *SQLStore) SeedFromFile(ctx context.Context, path string) (*SeedStats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return s.seedJSON(ctx, data)
}

func (s *SQLStore) seedJSON(ctx context.Context, raw []byte) (*SeedStats, error) {
	var data SeedData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse seed data: %w", err)
	}
	return s.Seed(ctx, &data)
}

// Seed inserts books whose ISBN is new and customers whose email is new.
// Historical orders are only imported into an empty orders table, so running
// Seed repeatedly is safe.
func (s *SQLStore) Seed(ctx context.Context, data *SeedData) (*SeedStats, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stats := &SeedStats{}
	for _, b := range data.Books {
		res, err := tx.ExecContext(ctx,
			s.rebind(`INSERT INTO books (isbn, title, author, price, stock) VALUES (?, ?, ?, ?, ?) ON CONFLICT (isbn) DO NOTHING`),
			b.ISBN, b.Title, b.Author, b.Price, b.Stock)
		if err != nil {
			return nil, fmt.Errorf("failed to seed book %s: %w", b.ISBN, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			stats.Books++
		}
	}

	for _, c := range data.Customers {
		res, err := tx.ExecContext(ctx,
			s.rebind(`INSERT INTO customers (name, email) VALUES (?, ?) ON CONFLICT (email) DO NOTHING`),
			c.Name, c.Email)
		if err != nil {
			return nil, fmt.Errorf("failed to seed customer %s: %w", c.Email, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			stats.Customers++
		}
	}

	var orderCount int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&orderCount); err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}
	if orderCount == 0 {
		for _, o := range data.Orders {
			var customerID int64
			if err := tx.QueryRowContext(ctx,
				s.rebind(`SELECT id FROM customers WHERE email = ?`), o.CustomerEmail).Scan(&customerID); err != nil {
				return nil, fmt.Errorf("failed to resolve customer %s: %w", o.CustomerEmail, err)
			}
			createdAt := o.CreatedAt
			if createdAt.IsZero() {
				createdAt = time.Now()
			}
			var orderID int64
			if err := tx.QueryRowContext(ctx,
				s.rebind(`INSERT INTO orders (customer_id, created_at) VALUES (?, ?) RETURNING id`),
				customerID, createdAt.UnixMilli()).Scan(&orderID); err != nil {
				return nil, fmt.Errorf("failed to seed order: %w", err)
			}
			for _, item := range o.Items {
				if _, err := tx.ExecContext(ctx,
					s.rebind(`INSERT INTO order_items (order_id, isbn, qty) VALUES (?, ?, ?)`),
					orderID, item.ISBN, item.Qty); err != nil {
					return nil, fmt.Errorf("failed to seed order item %s: %w", item.ISBN, err)
				}
			}
			stats.Orders++
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit seed data: %w", err)
	}
	return stats, nil
}
