package tombstone

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLite is a Repository backed by an SQLite database file.
type SQLite struct {
	conn *sql.DB
	now  func() time.Time
}

// OpenSQLite opens or creates the tombstone database at path.
func OpenSQLite(path string) (*SQLite, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open tombstone db: %w", err)
	}
	if _, err := conn.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}
	db := &SQLite{conn: conn, now: time.Now}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate tombstone db: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *SQLite) Close() error {
	return db.conn.Close()
}

func (db *SQLite) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tombstones (
		guide_title TEXT NOT NULL,
		match_key TEXT NOT NULL,
		deleted_at INTEGER NOT NULL,
		PRIMARY KEY (guide_title, match_key)
	);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// WasDeleted implements Repository.
func (db *SQLite) WasDeleted(ctx context.Context, guideTitle, key string) (bool, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM tombstones WHERE guide_title = ? AND match_key = ?",
		guideTitle, key).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query tombstone: %w", err)
	}
	return n > 0, nil
}

// Record implements Repository.
func (db *SQLite) Record(ctx context.Context, guideTitle, key string) error {
	at := db.now().UnixMilli()
	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO tombstones (guide_title, match_key, deleted_at) VALUES (?, ?, ?) ON CONFLICT(guide_title, match_key) DO UPDATE SET deleted_at = ?",
		guideTitle, key, at, at)
	if err != nil {
		return fmt.Errorf("record tombstone: %w", err)
	}
	return nil
}

// Purge implements Repository.
func (db *SQLite) Purge(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, "DELETE FROM tombstones"); err != nil {
		return fmt.Errorf("purge tombstones: %w", err)
	}
	return nil
}

// List implements Repository.
func (db *SQLite) List(ctx context.Context) ([]Entry, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT guide_title, match_key, deleted_at FROM tombstones ORDER BY guide_title, match_key")
	if err != nil {
		return nil, fmt.Errorf("list tombstones: %w", err)
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var e Entry
		var at int64
		if err := rows.Scan(&e.GuideTitle, &e.Key, &at); err != nil {
			return nil, err
		}
		e.DeletedAt = time.UnixMilli(at)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
