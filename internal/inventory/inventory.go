// Package inventory persists ingested cards. Copies of the same
// printing in the same condition collapse into one row with a quantity.
package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Item is one inventory row.
type Item struct {
	ID        int64
	CardName  string
	SetName   string
	Condition string
	Foil      bool
	Quantity  int
	PriceUSD  float64
	ImageURL  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store manages the inventory table. It shares the queue's SQLite
// database rather than opening a second file.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS inventory (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    card_name TEXT NOT NULL,
    set_name TEXT NOT NULL,
    condition TEXT NOT NULL,
    foil INTEGER NOT NULL DEFAULT 0,
    quantity INTEGER NOT NULL DEFAULT 0,
    price_usd REAL NOT NULL DEFAULT 0,
    image_url TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    UNIQUE (card_name, set_name, foil, condition)
);
`

// NewStore prepares the inventory table on an open database handle.
func NewStore(db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("db handle is nil")
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("init inventory schema: %w", err)
	}
	return &Store{db: db}, nil
}

// AddCopy records one physical copy. An existing row for the same
// (name, set, foil, condition) key gains quantity; price and image are
// set only on first insert, matching how the first successful scan of
// a printing establishes its listing.
func (s *Store) AddCopy(ctx context.Context, item Item) (*Item, error) {
	if strings.TrimSpace(item.CardName) == "" {
		return nil, errors.New("card name is required")
	}
	if strings.TrimSpace(item.Condition) == "" {
		item.Condition = "NM"
	}
	stamp := time.Now().UTC().Format(time.RFC3339Nano)

	row := s.db.QueryRowContext(
		ctx,
		`INSERT INTO inventory (
            card_name, set_name, condition, foil, quantity, price_usd, image_url,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, 1, ?, ?, ?, ?)
        ON CONFLICT (card_name, set_name, foil, condition) DO UPDATE
            SET quantity = quantity + 1, updated_at = excluded.updated_at
        RETURNING id, card_name, set_name, condition, foil, quantity, price_usd,
                  image_url, created_at, updated_at`,
		item.CardName,
		item.SetName,
		item.Condition,
		boolToInt(item.Foil),
		item.PriceUSD,
		nullableString(item.ImageURL),
		stamp,
		stamp,
	)
	return scanItem(row)
}

// List returns inventory rows, most recently updated first. limit <= 0
// defaults to 200.
func (s *Store) List(ctx context.Context, limit int) ([]*Item, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, card_name, set_name, condition, foil, quantity, price_usd,
                image_url, created_at, updated_at
         FROM inventory ORDER BY updated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// TotalCopies sums quantities across the whole inventory.
func (s *Store) TotalCopies(ctx context.Context) (int, error) {
	var total sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT SUM(quantity) FROM inventory`).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum inventory: %w", err)
	}
	return int(total.Int64), nil
}

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		item       Item
		foil       sql.NullInt64
		imageURL   sql.NullString
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(
		&item.ID, &item.CardName, &item.SetName, &item.Condition, &foil,
		&item.Quantity, &item.PriceUSD, &imageURL, &createdRaw, &updatedRaw,
	); err != nil {
		return nil, fmt.Errorf("scan inventory row: %w", err)
	}
	item.Foil = foil.Int64 != 0
	item.ImageURL = imageURL.String
	if created, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
		item.CreatedAt = created
	}
	if updated, err := time.Parse(time.RFC3339Nano, updatedRaw); err == nil {
		item.UpdatedAt = updated
	}
	return &item, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
