package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"github.com/aluiziolira/books-report/models"
	"github.com/aluiziolira/books-report/parser"
)

const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;

CREATE TABLE IF NOT EXISTS items (
    item_id INTEGER PRIMARY KEY AUTOINCREMENT,
    category TEXT NOT NULL,
    title TEXT NOT NULL,
    rating TEXT NOT NULL,
    rating_numeric INTEGER NOT NULL DEFAULT 0,
    image TEXT NOT NULL,
    price TEXT NOT NULL,
    in_stock BOOLEAN NOT NULL,
    captured_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_items_category ON items(category);
`

// SQLiteStore keeps every category in one items table.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens or creates the database at path and applies the schema.
// Use ":memory:" for a throwaway database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := ensureParent(path); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps writers serialized and ":memory:" shared.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Save inserts item under category and returns its row id.
func (s *SQLiteStore) Save(ctx context.Context, category string, item models.Item) (string, error) {
	if err := validCategory(category); err != nil {
		return "", unavailable("validate category", err)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO items (category, title, rating, rating_numeric, image, price, in_stock, captured_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, category, item.Title, item.Rating, parser.RatingToNumeric(item.Rating), item.Image, item.Price,
		item.InStock, item.CapturedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return "", unavailable("insert item", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return "", unavailable("read item id", err)
	}
	return strconv.FormatInt(id, 10), nil
}

// Items returns the stored items of a category in insertion order.
func (s *SQLiteStore) Items(ctx context.Context, category string) ([]models.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT title, rating, image, price, in_stock, captured_at
		FROM items WHERE category = ? ORDER BY item_id
	`, category)
	if err != nil {
		return nil, unavailable("query items", err)
	}
	defer rows.Close()

	var items []models.Item
	for rows.Next() {
		var (
			item       models.Item
			capturedAt string
		)
		if err := rows.Scan(&item.Title, &item.Rating, &item.Image, &item.Price, &item.InStock, &capturedAt); err != nil {
			return nil, unavailable("scan item", err)
		}
		if item.CapturedAt, err = time.Parse(time.RFC3339Nano, capturedAt); err != nil {
			return nil, fmt.Errorf("parse captured_at %q: %w", capturedAt, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate items", err)
	}
	return items, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
