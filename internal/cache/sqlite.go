package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteTier stores entries in a keyed table, for deployments with more
// than one writer process.
type SQLiteTier struct {
	db *sql.DB
}

func NewSQLiteTier(dbPath string) (*SQLiteTier, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	t := &SQLiteTier{db: db}
	if err := t.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return t, nil
}

func (t *SQLiteTier) migrate() error {
	_, err := t.db.Exec(`
	CREATE TABLE IF NOT EXISTS cache_entries (
		class      TEXT NOT NULL,
		key        TEXT NOT NULL,
		content    TEXT NOT NULL,
		created_at TEXT NOT NULL,
		expires_at TEXT NOT NULL,
		PRIMARY KEY (class, key)
	);
	CREATE INDEX IF NOT EXISTS idx_cache_entries_created ON cache_entries(class, created_at DESC);
	`)
	return err
}

type querier interface {
	Query(query string, args ...any) (*sql.Rows, error)
}

func loadClass(q querier, class Class) (map[string]Entry, error) {
	rows, err := q.Query(`SELECT key, content, created_at, expires_at FROM cache_entries WHERE class = ?`, string(class))
	if err != nil {
		return nil, fmt.Errorf("query %s entries: %w", class, err)
	}
	defer rows.Close()

	entries := make(map[string]Entry)
	for rows.Next() {
		var key, content, created, expires string
		if err := rows.Scan(&key, &content, &created, &expires); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		e := Entry{Content: json.RawMessage(content)}
		e.Timestamp, _ = parseISO(created)
		e.Expiry, _ = parseISO(expires)
		entries[key] = e
	}
	return entries, rows.Err()
}

func (t *SQLiteTier) Load(class Class) (map[string]Entry, error) {
	return loadClass(t.db, class)
}

// Update rewrites the class inside one transaction.
func (t *SQLiteTier) Update(class Class, fn func(map[string]Entry) bool) error {
	tx, err := t.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	entries, err := loadClass(tx, class)
	if err != nil {
		return err
	}
	if !fn(entries) {
		return nil
	}

	if _, err := tx.Exec(`DELETE FROM cache_entries WHERE class = ?`, string(class)); err != nil {
		return fmt.Errorf("delete %s entries: %w", class, err)
	}
	stmt, err := tx.Prepare(`INSERT INTO cache_entries (class, key, content, created_at, expires_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()
	for key, e := range entries {
		_, err := stmt.Exec(string(class), key, string(e.Content),
			e.Timestamp.Format(time.RFC3339Nano), e.Expiry.Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("insert %s: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (t *SQLiteTier) Clear(class Class) error {
	if _, err := t.db.Exec(`DELETE FROM cache_entries WHERE class = ?`, string(class)); err != nil {
		return fmt.Errorf("clear %s entries: %w", class, err)
	}
	return nil
}

func (t *SQLiteTier) Close() error { return t.db.Close() }
