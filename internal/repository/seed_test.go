package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestSeedDefaultIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer store.Close()

	stats, err := store.SeedDefault(ctx)
	if err != nil {
		t.Fatalf("SeedDefault failed: %v", err)
	}
	if stats.Books == 0 || stats.Customers == 0 || stats.Orders == 0 {
		t.Fatalf("expected rows to be seeded, got %+v", stats)
	}

	again, err := store.SeedDefault(ctx)
	if err != nil {
		t.Fatalf("second SeedDefault failed: %v", err)
	}
	if again.Books != 0 || again.Customers != 0 || again.Orders != 0 {
		t.Fatalf("second seed inserted rows: %+v", again)
	}

	books, err := store.ListLowStock(ctx, 1000)
	if err != nil {
		t.Fatalf("ListLowStock failed: %v", err)
	}
	if len(books) != stats.Books {
		t.Fatalf("expected %d books, got %d", stats.Books, len(books))
	}
}

func TestSeedFromFile(t *testing.T) {
	ctx := context.Background()
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer store.Close()

	path := filepath.Join(t.TempDir(), "seed.json")
	data := `{
		"books": [{"isbn": "1", "title": "One", "author": "A", "price": 1.5, "stock": 2}],
		"customers": [{"name": "Bo", "email": "bo@example.com"}],
		"orders": [{"customer_email": "bo@example.com", "items": [{"isbn": "1", "qty": 1}]}]
	}`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}

	stats, err := store.SeedFromFile(ctx, path)
	if err != nil {
		t.Fatalf("SeedFromFile failed: %v", err)
	}
	if stats.Books != 1 || stats.Customers != 1 || stats.Orders != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	// Historical orders do not consume stock.
	book, err := store.GetBook(ctx, "1")
	if err != nil || book == nil || book.Stock != 2 {
		t.Fatalf("unexpected book: %+v, %v", book, err)
	}

	customer, err := store.GetCustomer(ctx, 1)
	if err != nil || customer == nil || customer.Email != "bo@example.com" {
		t.Fatalf("unexpected customer: %+v, %v", customer, err)
	}

	if _, err := store.SeedFromFile(ctx, filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
