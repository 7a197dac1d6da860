package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// History persists the last known status of every item and the transitions
// observed between them, so a restart does not report every item as new.
type History struct {
	db *sql.DB
}

// OpenHistory opens (or creates) the SQLite history at path.
func OpenHistory(path string) (*History, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	// One writer; the workers serialise through database/sql.
	db.SetMaxOpenConns(1)

	h := &History{db: db}
	if err := h.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return h, nil
}

// Close closes the underlying database.
func (h *History) Close() error {
	return h.db.Close()
}

func (h *History) migrate() error {
	schema := `
CREATE TABLE IF NOT EXISTS item_status (
    registry TEXT NOT NULL,
    item_id TEXT NOT NULL,
    status TEXT NOT NULL,
    updated_at INTEGER NOT NULL,
    PRIMARY KEY (registry, item_id)
);

CREATE TABLE IF NOT EXISTS transitions (
    id TEXT PRIMARY KEY,
    registry TEXT NOT NULL,
    item_id TEXT NOT NULL,
    from_status TEXT NOT NULL,
    to_status TEXT NOT NULL,
    observed_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transitions_registry ON transitions(registry, observed_at);
`
	_, err := h.db.Exec(schema)
	return err
}

// LastStatuses returns the stored status of every item of a registry.
func (h *History) LastStatuses(ctx context.Context, registry string) (map[string]string, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT item_id, status FROM item_status WHERE registry = ?`, registry)
	if err != nil {
		return nil, fmt.Errorf("query statuses: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var id, status string
		if err := rows.Scan(&id, &status); err != nil {
			return nil, fmt.Errorf("scan status: %w", err)
		}
		out[id] = status
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate statuses: %w", err)
	}
	return out, nil
}

// Record stores a transition and updates the item's last status atomically.
func (h *History) Record(ctx context.Context, t Transition) error {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	observed := t.ObservedAt.Unix()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO transitions (id, registry, item_id, from_status, to_status, observed_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.Registry, t.ItemID, t.From, t.To, observed); err != nil {
		return fmt.Errorf("insert transition: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO item_status (registry, item_id, status, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(registry, item_id) DO UPDATE SET status = excluded.status, updated_at = excluded.updated_at`,
		t.Registry, t.ItemID, t.To, observed); err != nil {
		return fmt.Errorf("upsert status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Recent returns the latest transitions of a registry, newest first.
func (h *History) Recent(ctx context.Context, registry string, limit int) ([]Transition, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := h.db.QueryContext(ctx, `
		SELECT id, registry, item_id, from_status, to_status, observed_at
		FROM transitions
		WHERE registry = ?
		ORDER BY observed_at DESC, rowid DESC
		LIMIT ?`, registry, limit)
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	defer rows.Close()

	var out []Transition
	for rows.Next() {
		var (
			t        Transition
			observed int64
		)
		if err := rows.Scan(&t.ID, &t.Registry, &t.ItemID, &t.From, &t.To, &observed); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		t.ObservedAt = time.Unix(observed, 0)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transitions: %w", err)
	}
	return out, nil
}
