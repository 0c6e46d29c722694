package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLiteFile is the database name inside the home directory.
const SQLiteFile = "cache.db"

const schema = `
CREATE TABLE IF NOT EXISTS records (
	collection TEXT NOT NULL,
	pos        INTEGER NOT NULL,
	data       TEXT NOT NULL,
	PRIMARY KEY (collection, pos)
);
`

// SQLiteStore keeps every collection in one table of a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens or creates the database at path and applies the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}
	// One connection: writers queue in-process instead of racing for the lock.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect cache database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply cache schema: %w", err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// Path returns the database file location.
func (s *SQLiteStore) Path() string { return s.path }

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Collection returns the handle for name.
func (s *SQLiteStore) Collection(name string) Collection {
	return &SQLiteCollection{store: s, name: name}
}

// tx runs fn in a transaction, rolling back if fn fails.
func (s *SQLiteStore) tx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// SQLiteCollection is one collection inside a SQLiteStore.
type SQLiteCollection struct {
	store *SQLiteStore
	name  string
}

func (c *SQLiteCollection) Name() string { return c.name }

func (c *SQLiteCollection) All(ctx context.Context) ([]Record, error) {
	rows, err := c.store.db.QueryContext(ctx,
		`SELECT data FROM records WHERE collection = ? ORDER BY pos`, c.name)
	if err != nil {
		return nil, fmt.Errorf("query %s cache: %w", c.name, err)
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan %s cache: %w", c.name, err)
		}
		rec := Record{}
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("decode %s cache: %w", c.name, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s cache: %w", c.name, err)
	}
	return out, nil
}

func (c *SQLiteCollection) ReplaceAll(ctx context.Context, recs []Record) error {
	encoded := make([]string, len(recs))
	for i, rec := range recs {
		if rec == nil {
			rec = Record{}
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return writeFailed(c.name, err)
		}
		encoded[i] = string(data)
	}

	err := c.store.tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE collection = ?`, c.name); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO records (collection, pos, data) VALUES (?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for i, data := range encoded {
			if _, err := stmt.ExecContext(ctx, c.name, i+1, data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return writeFailed(c.name, err)
	}
	return nil
}
