package helpers

import (
	"context"
	"testing"

	"github.com/xiaot623/librarydesk/internal/domain"
	"github.com/xiaot623/librarydesk/internal/repository"
)

// Catalog ISBNs used across tests.
const (
	ISBNDune       = "978-0441172719"
	ISBNFoundation = "978-0553293357"
	ISBNCleanCode  = "978-0132350884"
	ISBNHobbit     = "978-0547928227"
)

func NewTestSQLiteStore(t *testing.T) *repository.SQLStore {
	t.Helper()

	s, err := repository.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}

// NewSeededStore returns an in-memory store holding a small fixed catalog and
// one customer with ID 1.
func NewSeededStore(t *testing.T) *repository.SQLStore {
	t.Helper()

	s := NewTestSQLiteStore(t)
	_, err := s.Seed(context.Background(), &repository.SeedData{
		Books: []domain.Book{
			{ISBN: ISBNDune, Title: "Dune", Author: "Frank Herbert", Price: 10.99, Stock: 3},
			{ISBN: ISBNFoundation, Title: "Foundation", Author: "Isaac Asimov", Price: 8.99, Stock: 9},
			{ISBN: ISBNCleanCode, Title: "Clean Code", Author: "Robert C. Martin", Price: 37.99, Stock: 12},
			{ISBN: ISBNHobbit, Title: "The Hobbit", Author: "J.R.R. Tolkien", Price: 14.99, Stock: 2},
		},
		Customers: []domain.Customer{
			{Name: "Ada Lovelace", Email: "ada@example.com"},
		},
	})
	if err != nil {
		t.Fatalf("failed to seed store: %v", err)
	}
	return s
}
