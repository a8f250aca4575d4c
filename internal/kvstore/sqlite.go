package kvstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// SQLite is a local/test-friendly Backend, grounded on the repository
// layer's sqlx connection-pool pattern. It stores every logical table as
// one physical SQL table, key/value shaped ("key" primary key, "attrs" a
// JSON blob), so the same Backend interface serves DynamoDB and SQLite
// without either side needing per-entity SQL.
type SQLite struct {
	db *sqlx.DB
}

// NewSQLite opens (creating if necessary) a SQLite database at path, with
// WAL mode enabled for concurrent readers, matching the teacher's
// connection-pool tuning.
func NewSQLite(path string) (*SQLite, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("kvstore: connecting to sqlite: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS kv_items (
			table_name TEXT NOT NULL,
			item_key   TEXT NOT NULL,
			attrs      TEXT NOT NULL,
			PRIMARY KEY (table_name, item_key)
		)
	`); err != nil {
		return nil, fmt.Errorf("kvstore: creating schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) Get(ctx context.Context, table, key string) (Item, error) {
	var attrs string
	err := s.db.GetContext(ctx, &attrs,
		`SELECT attrs FROM kv_items WHERE table_name = ? AND item_key = ?`, table, key)
	if err == sql.ErrNoRows {
		return Item{}, ErrNotFound
	}
	if err != nil {
		return Item{}, fmt.Errorf("kvstore: get %s/%s: %w", table, key, err)
	}
	item, err := decodeItem(table, key, attrs)
	if err != nil {
		return Item{}, err
	}
	return item, nil
}

func (s *SQLite) Put(ctx context.Context, item Item) error {
	attrs, err := json.Marshal(item.Attrs)
	if err != nil {
		return fmt.Errorf("kvstore: encoding attrs: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO kv_items (table_name, item_key, attrs) VALUES (?, ?, ?)
		 ON CONFLICT (table_name, item_key) DO UPDATE SET attrs = excluded.attrs`,
		item.Table, item.Key, string(attrs))
	if err != nil {
		return fmt.Errorf("kvstore: put %s/%s: %w", item.Table, item.Key, err)
	}
	return nil
}

func (s *SQLite) PutIfAbsent(ctx context.Context, item Item) error {
	attrs, err := json.Marshal(item.Attrs)
	if err != nil {
		return fmt.Errorf("kvstore: encoding attrs: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO kv_items (table_name, item_key, attrs) VALUES (?, ?, ?)
		 ON CONFLICT (table_name, item_key) DO NOTHING`,
		item.Table, item.Key, string(attrs))
	if err != nil {
		return fmt.Errorf("kvstore: put-if-absent %s/%s: %w", item.Table, item.Key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("kvstore: put-if-absent %s/%s: %w", item.Table, item.Key, err)
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

func (s *SQLite) Delete(ctx context.Context, table, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM kv_items WHERE table_name = ? AND item_key = ?`, table, key)
	if err != nil {
		return fmt.Errorf("kvstore: delete %s/%s: %w", table, key, err)
	}
	return nil
}

func (s *SQLite) Scan(ctx context.Context, table string) ([]Item, error) {
	rows, err := s.db.QueryxContext(ctx,
		`SELECT item_key, attrs FROM kv_items WHERE table_name = ?`, table)
	if err != nil {
		return nil, fmt.Errorf("kvstore: scan %s: %w", table, err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var key, attrs string
		if err := rows.Scan(&key, &attrs); err != nil {
			return nil, fmt.Errorf("kvstore: scan %s: %w", table, err)
		}
		item, err := decodeItem(table, key, attrs)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func decodeItem(table, key, attrs string) (Item, error) {
	m := make(map[string]string)
	if err := json.Unmarshal([]byte(attrs), &m); err != nil {
		return Item{}, fmt.Errorf("kvstore: decoding attrs for %s/%s: %w", table, key, err)
	}
	return Item{Table: table, Key: key, Attrs: m}, nil
}
