// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/jeranaias/gemchat/internal/model"
	"github.com/jeranaias/gemchat/internal/store"
)

// schema holds one conversation per row, the record itself as JSON. The
// position column preserves insertion order across round trips.
const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id       TEXT PRIMARY KEY,
	position INTEGER NOT NULL,
	pinned   INTEGER NOT NULL DEFAULT 0,
	data     TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

const metaCurrentID = "current_id"

// SQLiteBackend persists state in a SQLite database, one row per
// conversation.
type SQLiteBackend struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and
// ensures the schema exists.
func OpenSQLite(path string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// The driver serializes access; a single connection avoids
	// SQLITE_BUSY between the save and load paths.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteBackend{db: db}, nil
}

// Save replaces all persisted state with the snapshot, in one
// transaction.
func (b *SQLiteBackend) Save(snap *store.Snapshot) error {
	tx, err := b.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM conversations`); err != nil {
		return fmt.Errorf("failed to clear conversations: %w", err)
	}

	pinned := make(map[string]bool, len(snap.Pinned))
	for _, id := range snap.Pinned {
		pinned[id] = true
	}

	insert, err := tx.Prepare(`INSERT INTO conversations (id, position, pinned, data) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer insert.Close()

	for i, conv := range snap.Conversations {
		data, err := json.Marshal(conv)
		if err != nil {
			return fmt.Errorf("failed to encode conversation %s: %w", conv.ID, err)
		}
		pin := 0
		if pinned[conv.ID] {
			pin = 1
		}
		if _, err := insert.Exec(conv.ID, i, pin, string(data)); err != nil {
			return fmt.Errorf("failed to insert conversation %s: %w", conv.ID, err)
		}
	}

	if _, err := tx.Exec(
		`INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		metaCurrentID, snap.CurrentID,
	); err != nil {
		return fmt.Errorf("failed to save current id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Load reads the full snapshot back. An empty database is ErrNoState.
func (b *SQLiteBackend) Load() (*store.Snapshot, error) {
	rows, err := b.db.Query(`SELECT id, pinned, data FROM conversations ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	snap := &store.Snapshot{}
	for rows.Next() {
		var id, data string
		var pin int
		if err := rows.Scan(&id, &pin, &data); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		var conv model.Conversation
		if err := json.Unmarshal([]byte(data), &conv); err != nil {
			return nil, fmt.Errorf("failed to decode conversation %s: %w", id, err)
		}
		snap.Conversations = append(snap.Conversations, &conv)
		if pin != 0 {
			snap.Pinned = append(snap.Pinned, id)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}
	if len(snap.Conversations) == 0 {
		return nil, ErrNoState
	}

	err = b.db.QueryRow(`SELECT value FROM meta WHERE key = ?`, metaCurrentID).Scan(&snap.CurrentID)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to read current id: %w", err)
	}
	return snap, nil
}

// Close closes the database.
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}
