// Package repository persists the inventory and the session log.
package repository

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

// SQLStore implements the inventory and session log stores on database/sql.
// SQLite is the default backend; postgres:// DSNs use pgx.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

// New opens the database named by dsn and runs migrations.
func New(dsn string) (*SQLStore, error) {
	driver, d := driverFor(dsn)
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if d == dialectSQLite {
		// For in-memory SQLite, multiple connections create separate databases.
		if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
			db.SetMaxOpenConns(1)
			db.SetMaxIdleConns(1)
		}
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}

	store := &SQLStore{db: db, dialect: d}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func driverFor(dsn string) (string, dialect) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "pgx", dialectPostgres
	}
	return "sqlite3", dialectSQLite
}

func (s *SQLStore) ddl() *strings.Replacer {
	if s.dialect == dialectPostgres {
		return strings.NewReplacer(
			"{{pk}}", "BIGSERIAL PRIMARY KEY",
			"{{real}}", "DOUBLE PRECISION",
		)
	}
	return strings.NewReplacer(
		"{{pk}}", "INTEGER PRIMARY KEY AUTOINCREMENT",
		"{{real}}", "REAL",
	)
}

// migrate runs database migrations.
func (s *SQLStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS books (
			isbn TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			author TEXT NOT NULL DEFAULT '',
			price {{real}} NOT NULL DEFAULT 0 CHECK (price >= 0),
			stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_books_title ON books(title)`,
		`CREATE TABLE IF NOT EXISTS customers (
			id {{pk}},
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id {{pk}},
			customer_id BIGINT NOT NULL REFERENCES customers(id),
			created_at BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS order_items (
			id {{pk}},
			order_id BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
			isbn TEXT NOT NULL REFERENCES books(isbn),
			qty INTEGER NOT NULL CHECK (qty > 0)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id {{pk}},
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS tool_calls (
			id {{pk}},
			session_id TEXT NOT NULL,
			tool_name TEXT NOT NULL,
			status TEXT NOT NULL,
			args TEXT,
			result TEXT,
			error TEXT,
			chained BOOLEAN NOT NULL DEFAULT FALSE,
			created_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tool_calls_session ON tool_calls(session_id, created_at)`,
	}

	r := s.ddl()
	for _, m := range migrations {
		if _, err := s.db.Exec(r.Replace(m)); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *SQLStore) Ping() error {
	return s.db.Ping()
}

// rebind rewrites ? placeholders to $n for Postgres.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != dialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func nullStringBytes(b []byte) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}
