// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jeranaias/gemchat/internal/store"
	"github.com/jeranaias/gemchat/internal/util"
)

// stateVersion guards against loading state written by an incompatible
// future layout.
const stateVersion = 1

// stateFile is the on-disk JSON envelope.
type stateFile struct {
	Version  int             `json:"version"`
	Snapshot *store.Snapshot `json:"state"`
}

// FileBackend persists state as a single JSON file, written atomically
// so a crash mid-save never leaves a truncated file.
type FileBackend struct {
	path string
}

// NewFileBackend creates a file backend writing to path.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Save writes the snapshot to the state file.
func (b *FileBackend) Save(snap *store.Snapshot) error {
	data, err := json.MarshalIndent(stateFile{Version: stateVersion, Snapshot: snap}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	if err := util.AtomicWriteFile(b.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}

// Load reads the state file. A missing file is ErrNoState.
func (b *FileBackend) Load() (*store.Snapshot, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoState
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var sf stateFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("failed to decode state file: %w", err)
	}
	if sf.Version != stateVersion {
		return nil, fmt.Errorf("unsupported state version %d", sf.Version)
	}
	if sf.Snapshot == nil {
		return nil, ErrNoState
	}
	return sf.Snapshot, nil
}

// Close is a no-op for the file backend.
func (b *FileBackend) Close() error {
	return nil
}
