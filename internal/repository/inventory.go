package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xiaot623/librarydesk/internal/domain"
)

const bookColumns = `isbn, title, author, price, stock`

var termFolder = strings.NewReplacer(
	"‘", "'", "’", "'",
	"“", `"`, "”", `"`,
	`\`, `\\`, "%", `\%`, "_", `\_`,
)

// likePattern builds a case-insensitive substring pattern for term.
func likePattern(term string) string {
	return "%" + termFolder.Replace(strings.ToLower(strings.TrimSpace(term))) + "%"
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBook(row rowScanner) (*domain.Book, error) {
	var b domain.Book
	if err := row.Scan(&b.ISBN, &b.Title, &b.Author, &b.Price, &b.Stock); err != nil {
		return nil, err
	}
	return &b, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// SearchBooks returns books whose title, author or either contains term,
// ignoring case.
func (s *SQLStore) SearchBooks(ctx context.Context, term string, field domain.SearchField) ([]domain.Book, error) {
	pattern := likePattern(term)
	var where string
	args := []interface{}{pattern}
	switch field {
	case domain.SearchTitle:
		where = `lower(title) LIKE ? ESCAPE '\'`
	case domain.SearchAuthor:
		where = `lower(author) LIKE ? ESCAPE '\'`
	default:
		where = `(lower(title) LIKE ? ESCAPE '\' OR lower(author) LIKE ? ESCAPE '\')`
		args = append(args, pattern)
	}

	rows, err := s.db.QueryContext(ctx,
		s.rebind(`SELECT `+bookColumns+` FROM books WHERE `+where+` ORDER BY title, isbn`), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search books: %w", err)
	}
	defer rows.Close()

	books := []domain.Book{}
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, *b)
	}
	return books, rows.Err()
}

// GetBook retrieves a book by ISBN.
func (s *SQLStore) GetBook(ctx context.Context, isbn string) (*domain.Book, error) {
	return s.getBook(ctx, s.db, isbn)
}

func (s *SQLStore) getBook(ctx context.Context, q queryer, isbn string) (*domain.Book, error) {
	b, err := scanBook(q.QueryRowContext(ctx,
		s.rebind(`SELECT `+bookColumns+` FROM books WHERE isbn = ?`), strings.TrimSpace(isbn)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *SQLStore) findBookByTitle(ctx context.Context, q queryer, title string) (*domain.Book, error) {
	b, err := scanBook(q.QueryRowContext(ctx,
		s.rebind(`SELECT `+bookColumns+` FROM books WHERE lower(title) LIKE ? ESCAPE '\' ORDER BY title, isbn LIMIT 1`),
		likePattern(title)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *SQLStore) resolveBook(ctx context.Context, q queryer, line domain.OrderLine) (*domain.Book, error) {
	if line.ISBN != "" {
		return s.getBook(ctx, q, line.ISBN)
	}
	return s.findBookByTitle(ctx, q, line.Title)
}

// CreateOrder commits an order for customerID with every line that resolves to
// a book with enough stock. Skipped lines are reported as warnings. When no
// line can be fulfilled nothing is written and a *domain.NoValidItemsError is
// returned.
func (s *SQLStore) CreateOrder(ctx context.Context, customerID int64, lines []domain.OrderLine) (*domain.OrderReceipt, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var one int
	err = tx.QueryRowContext(ctx, s.rebind(`SELECT 1 FROM customers WHERE id = ?`), customerID).Scan(&one)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("customer %d: %w", customerID, domain.ErrCustomerNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}

	receipt := &domain.OrderReceipt{
		CustomerID: customerID,
		Processed:  []domain.OrderedItem{},
		Warnings:   []string{},
	}
	createdAt := time.Now().UnixMilli()

	for _, line := range lines {
		book, err := s.resolveBook(ctx, tx, line)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve book %q: %w", line.Label(), err)
		}
		if book == nil {
			receipt.Warnings = append(receipt.Warnings, fmt.Sprintf("Book '%s' not found, skipped.", line.Label()))
			continue
		}

		// The guard keeps stock non-negative under concurrent orders.
		var remaining int
		err = tx.QueryRowContext(ctx,
			s.rebind(`UPDATE books SET stock = stock - ? WHERE isbn = ? AND stock >= ? RETURNING stock`),
			line.Qty, book.ISBN, line.Qty).Scan(&remaining)
		if err == sql.ErrNoRows {
			receipt.Warnings = append(receipt.Warnings, fmt.Sprintf(
				"Not enough stock for '%s'. Requested %d, available %d.", book.Title, line.Qty, book.Stock))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decrement stock: %w", err)
		}

		if receipt.OrderID == 0 {
			err = tx.QueryRowContext(ctx,
				s.rebind(`INSERT INTO orders (customer_id, created_at) VALUES (?, ?) RETURNING id`),
				customerID, createdAt).Scan(&receipt.OrderID)
			if err != nil {
				return nil, fmt.Errorf("failed to create order: %w", err)
			}
		}

		if _, err := tx.ExecContext(ctx,
			s.rebind(`INSERT INTO order_items (order_id, isbn, qty) VALUES (?, ?, ?)`),
			receipt.OrderID, book.ISBN, line.Qty); err != nil {
			return nil, fmt.Errorf("failed to create order item: %w", err)
		}

		receipt.Processed = append(receipt.Processed, domain.OrderedItem{
			Title:          book.Title,
			ISBN:           book.ISBN,
			OrderedQty:     line.Qty,
			RemainingStock: remaining,
		})
	}

	if len(receipt.Processed) == 0 {
		return nil, &domain.NoValidItemsError{Warnings: receipt.Warnings}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit order: %w", err)
	}
	return receipt, nil
}

// RestockBook adds qty copies to a book and returns the updated book.
func (s *SQLStore) RestockBook(ctx context.Context, isbn string, qty int) (*domain.Book, error) {
	isbn = strings.TrimSpace(isbn)
	b, err := scanBook(s.db.QueryRowContext(ctx,
		s.rebind(`UPDATE books SET stock = stock + ? WHERE isbn = ? AND stock + ? >= 0 RETURNING `+bookColumns),
		qty, isbn, qty))
	if err == sql.ErrNoRows {
		existing, getErr := s.GetBook(ctx, isbn)
		if getErr != nil {
			return nil, getErr
		}
		if existing == nil {
			return nil, fmt.Errorf("isbn %s: %w", isbn, domain.ErrBookNotFound)
		}
		return nil, fmt.Errorf("isbn %s: %w", isbn, domain.ErrNegativeStock)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to restock book: %w", err)
	}
	return b, nil
}

// UpdatePrice overwrites the price of a book and returns the updated book.
func (s *SQLStore) UpdatePrice(ctx context.Context, isbn string, price float64) (*domain.Book, error) {
	isbn = strings.TrimSpace(isbn)
	b, err := scanBook(s.db.QueryRowContext(ctx,
		s.rebind(`UPDATE books SET price = ? WHERE isbn = ? RETURNING `+bookColumns),
		price, isbn))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("isbn %s: %w", isbn, domain.ErrBookNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update price: %w", err)
	}
	return b, nil
}

// GetOrder retrieves an order with its lines joined to their books.
func (s *SQLStore) GetOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	var order domain.Order
	var createdAt int64
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT id, customer_id, created_at FROM orders WHERE id = ?`),
		orderID).Scan(&order.ID, &order.CustomerID, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	order.CreatedAt = time.UnixMilli(createdAt).UTC()

	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT b.title, oi.isbn, oi.qty, b.price
		FROM order_items oi
		JOIN books b ON b.isbn = oi.isbn
		WHERE oi.order_id = ?
		ORDER BY oi.id`), orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order items: %w", err)
	}
	defer rows.Close()

	order.Items = []domain.OrderDetail{}
	for rows.Next() {
		var d domain.OrderDetail
		if err := rows.Scan(&d.Title, &d.ISBN, &d.Qty, &d.Price); err != nil {
			return nil, err
		}
		order.Items = append(order.Items, d)
	}
	return &order, rows.Err()
}

// ListLowStock returns books with stock at or below threshold, lowest first.
func (s *SQLStore) ListLowStock(ctx context.Context, threshold int) ([]domain.Book, error) {
	rows, err := s.db.QueryContext(ctx,
		s.rebind(`SELECT `+bookColumns+` FROM books WHERE stock <= ? ORDER BY stock, title`), threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to list low stock books: %w", err)
	}
	defer rows.Close()

	books := []domain.Book{}
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, *b)
	}
	return books, rows.Err()
}

// GetCustomer retrieves a customer by ID.
func (s *SQLStore) GetCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	var c domain.Customer
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT id, name, email FROM customers WHERE id = ?`), id).Scan(&c.ID, &c.Name, &c.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
