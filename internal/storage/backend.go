// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"fmt"

	"github.com/jeranaias/gemchat/internal/store"
)

// ErrNoState is returned by Load when nothing has been persisted yet.
// Callers treat it as "start fresh", not as a failure.
var ErrNoState = errors.New("no persisted state")

// Backend saves and loads complete conversation state.
type Backend interface {
	// Save persists the snapshot, replacing any previous state.
	Save(snap *store.Snapshot) error

	// Load returns the last saved snapshot, or ErrNoState.
	Load() (*store.Snapshot, error)

	// Close releases backend resources. Safe to call more than once.
	Close() error
}

// Backend kind names accepted in configuration.
const (
	KindFile   = "file"
	KindSQLite = "sqlite"
)

// Open creates the backend named by kind rooted at path. For KindFile
// the path is the JSON state file; for KindSQLite it is the database
// file.
func Open(kind, path string) (Backend, error) {
	switch kind {
	case KindFile, "":
		return NewFileBackend(path), nil
	case KindSQLite:
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", kind)
	}
}
