// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/gemchat/internal/model"
	"github.com/jeranaias/gemchat/internal/store"
)

// buildSnapshot assembles a representative snapshot through real store
// operations so tests cover the same shape the session layer persists.
func buildSnapshot(t *testing.T) *store.Snapshot {
	t.Helper()
	s := store.New()
	a := s.Create()
	s.AppendMessage(model.NewUserMessage("first question"))
	s.AppendMessage(model.NewModelMessage("first answer"))
	s.Rename(a, "First Topic")
	s.Pin(a)

	s.Create()
	s.AppendMessage(model.NewUserMessage("second question"))
	s.SetSystemInstruction("answer tersely")
	s.SetChatLayout(model.LayoutDoc)

	return s.Snapshot()
}

// roundTrip exercises Save/Load through a backend and verifies the
// snapshot comes back intact.
func roundTrip(t *testing.T, b Backend) {
	t.Helper()
	want := buildSnapshot(t)
	require.NoError(t, b.Save(want))

	got, err := b.Load()
	require.NoError(t, err)

	assert.Equal(t, want.CurrentID, got.CurrentID)
	assert.Equal(t, want.Pinned, got.Pinned)
	require.Len(t, got.Conversations, len(want.Conversations))
	for i, conv := range want.Conversations {
		loaded := got.Conversations[i]
		assert.Equal(t, conv.ID, loaded.ID)
		assert.Equal(t, conv.Title, loaded.Title)
		assert.Equal(t, conv.SystemInstruction, loaded.SystemInstruction)
		assert.Equal(t, conv.ChatLayout, loaded.ChatLayout)
		require.Equal(t, conv.MessageCount(), loaded.MessageCount())
		for j, msg := range conv.Messages {
			assert.Equal(t, msg.Text(), loaded.Messages[j].Text())
			assert.Equal(t, msg.Role, loaded.Messages[j].Role)
		}
	}
}

func TestFileBackendRoundTrip(t *testing.T) {
	b := NewFileBackend(filepath.Join(t.TempDir(), "state.json"))
	roundTrip(t, b)
}

func TestSQLiteBackendRoundTrip(t *testing.T) {
	b, err := OpenSQLite(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer b.Close()
	roundTrip(t, b)
}

func TestFileBackendNoState(t *testing.T) {
	b := NewFileBackend(filepath.Join(t.TempDir(), "missing.json"))
	_, err := b.Load()
	assert.ErrorIs(t, err, ErrNoState)
}

func TestSQLiteBackendNoState(t *testing.T) {
	b, err := OpenSQLite(filepath.Join(t.TempDir(), "empty.db"))
	require.NoError(t, err)
	defer b.Close()
	_, err = b.Load()
	assert.ErrorIs(t, err, ErrNoState)
}

func TestFileBackendRejectsCorruptState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))
	_, err := NewFileBackend(path).Load()
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoState)
}

func TestFileBackendRejectsFutureVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":99,"state":{}}`), 0600))
	_, err := NewFileBackend(path).Load()
	assert.Error(t, err)
}

func TestFileBackendPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	b := NewFileBackend(path)
	require.NoError(t, b.Save(buildSnapshot(t)))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestSQLiteSaveReplacesPreviousState(t *testing.T) {
	b, err := OpenSQLite(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, b.Save(buildSnapshot(t)))

	// Second save with fewer conversations must not leave stale rows.
	small := store.New().Snapshot()
	require.NoError(t, b.Save(small))

	got, err := b.Load()
	require.NoError(t, err)
	assert.Len(t, got.Conversations, 1)
	assert.Equal(t, model.DefaultID, got.Conversations[0].ID)
	assert.Empty(t, got.Pinned)
}

func TestOpenSelectsBackend(t *testing.T) {
	dir := t.TempDir()

	fb, err := Open(KindFile, filepath.Join(dir, "s.json"))
	require.NoError(t, err)
	assert.IsType(t, &FileBackend{}, fb)

	db, err := Open(KindSQLite, filepath.Join(dir, "s.db"))
	require.NoError(t, err)
	assert.IsType(t, &SQLiteBackend{}, db)
	db.Close()

	deflt, err := Open("", filepath.Join(dir, "d.json"))
	require.NoError(t, err)
	assert.IsType(t, &FileBackend{}, deflt)

	_, err = Open("redis", "x")
	assert.Error(t, err)
}

func TestRestoreFromLoadedSnapshot(t *testing.T) {
	b := NewFileBackend(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, b.Save(buildSnapshot(t)))

	snap, err := b.Load()
	require.NoError(t, err)

	s := store.New()
	s.Restore(snap)
	assert.Equal(t, snap.CurrentID, s.CurrentID())
	assert.Equal(t, "answer tersely", s.Current().SystemInstruction)

	var pinnedErr error
	for _, id := range s.PinnedIDs() {
		if !s.Has(id) {
			pinnedErr = errors.New("dangling pin " + id)
		}
	}
	assert.NoError(t, pinnedErr)
}
