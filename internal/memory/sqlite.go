package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// conversationNamespace scopes rows written by the memory store inside
// the shared state table.
const conversationNamespace = "conversation"

// SQLitePersister stores the encoded conversation as one row of a
// namespaced key/value table.
type SQLitePersister struct {
	db   *sql.DB
	path string
	key  string
}

// NewSQLitePersister opens (or creates) the database at dbPath. key
// selects which conversation row this persister owns.
func NewSQLitePersister(dbPath, key string) (*SQLitePersister, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	p := &SQLitePersister{db: db, path: dbPath, key: key}
	if err := p.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return p, nil
}

// Close closes the database connection.
func (p *SQLitePersister) Close() error {
	return p.db.Close()
}

func (p *SQLitePersister) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scout_state (
		namespace  TEXT NOT NULL,
		key        TEXT NOT NULL,
		value      TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (namespace, key)
	);
	`
	_, err := p.db.Exec(schema)
	return err
}

// Load returns the stored conversation, or ErrNotFound if this key has
// never been saved.
func (p *SQLitePersister) Load(ctx context.Context) ([]byte, error) {
	var value string
	err := p.db.QueryRowContext(ctx,
		`SELECT value FROM scout_state WHERE namespace = ? AND key = ?`,
		conversationNamespace, p.key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", conversationNamespace, p.key, err)
	}
	return []byte(value), nil
}

// Save upserts the conversation row.
func (p *SQLitePersister) Save(ctx context.Context, data []byte) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO scout_state (namespace, key, value, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (namespace, key) DO UPDATE
		 SET value = excluded.value, updated_at = excluded.updated_at`,
		conversationNamespace, p.key, string(data), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("set %s/%s: %w", conversationNamespace, p.key, err)
	}
	return nil
}

// Describe returns the database path and key.
func (p *SQLitePersister) Describe() string {
	return fmt.Sprintf("sqlite:%s#%s", p.path, p.key)
}
