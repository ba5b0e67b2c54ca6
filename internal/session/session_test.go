// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jeranaias/gemchat/internal/config"
	"github.com/jeranaias/gemchat/internal/model"
	"github.com/jeranaias/gemchat/internal/storage"
	"github.com/jeranaias/gemchat/internal/store"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.Path = filepath.Join(t.TempDir(), "state.json")
	return cfg
}

func openBackend(t *testing.T, cfg *config.Config) storage.Backend {
	t.Helper()
	path, err := cfg.StatePath()
	if err != nil {
		t.Fatalf("state path: %v", err)
	}
	backend, err := storage.Open(cfg.Storage.Backend, path)
	if err != nil {
		t.Fatalf("open backend: %v", err)
	}
	return backend
}

func TestSessionPersistsAcrossRestarts(t *testing.T) {
	cfg := testConfig(t)

	sess := New(store.New(), openBackend(t, cfg), cfg)
	id := sess.Store.Create()
	sess.Store.AppendMessage(model.NewUserMessage("remember me"))
	sess.Store.Rename(id, "Persistent")
	sess.Store.Pin(id)
	if err := sess.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Second session over the same path sees the saved state.
	sess2 := New(store.New(), openBackend(t, cfg), cfg)
	defer sess2.Close()

	if sess2.Store.CurrentID() != id {
		t.Errorf("current = %s, want %s", sess2.Store.CurrentID(), id)
	}
	conv, err := sess2.Store.Get(id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if conv.Title != "Persistent" {
		t.Errorf("title = %q", conv.Title)
	}
	if conv.MessageCount() != 1 {
		t.Errorf("message count = %d", conv.MessageCount())
	}
	if !sess2.Store.IsPinned(id) {
		t.Error("pin not restored")
	}
}

func TestDirtyTracking(t *testing.T) {
	cfg := testConfig(t)
	sess := New(store.New(), openBackend(t, cfg), cfg)
	defer sess.Close()

	if sess.IsDirty() {
		t.Error("fresh session should be clean")
	}

	sess.Store.AppendMessage(model.NewUserMessage("edit"))
	if !sess.IsDirty() {
		t.Error("mutation should mark session dirty")
	}

	if err := sess.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}
	if sess.IsDirty() {
		t.Error("save should clear dirty flag")
	}
}

func TestSaveIfDirtySkipsCleanSession(t *testing.T) {
	cfg := testConfig(t)
	backend := &countingBackend{Backend: openBackend(t, cfg)}
	sess := New(store.New(), backend, cfg)
	defer sess.Close()

	if err := sess.SaveIfDirty(); err != nil {
		t.Fatalf("SaveIfDirty: %v", err)
	}
	if backend.saves != 0 {
		t.Errorf("clean session saved %d times", backend.saves)
	}

	sess.Store.Create()
	if err := sess.SaveIfDirty(); err != nil {
		t.Fatalf("SaveIfDirty: %v", err)
	}
	if backend.saves != 1 {
		t.Errorf("saves = %d, want 1", backend.saves)
	}
}

func TestCloseFlushesUnsavedChanges(t *testing.T) {
	cfg := testConfig(t)
	sess := New(store.New(), openBackend(t, cfg), cfg)

	id := sess.Store.Create()
	sess.Store.AppendMessage(model.NewUserMessage("unsaved"))
	if err := sess.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Double close is safe.
	if err := sess.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}

	loaded, err := storage.NewFileBackend(cfg.Storage.Path).Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	found := false
	for _, conv := range loaded.Conversations {
		if conv.ID == id && conv.MessageCount() == 1 {
			found = true
		}
	}
	if !found {
		t.Error("live edit not flushed on close")
	}
}

func TestOpenWithSQLiteBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Backend = "sqlite"
	cfg.Storage.Path = filepath.Join(t.TempDir(), "state.db")

	sess, err := Open(cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	id := sess.Store.Create()
	if err := sess.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	sess2, err := Open(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer sess2.Close()
	if !sess2.Store.Has(id) {
		t.Error("sqlite-backed state not restored")
	}
}

func TestCloseJoinsAutosaveLoop(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.AutosaveIntervalSecs = 1

	sess := New(store.New(), openBackend(t, cfg), cfg)
	if sess.autosaveDone == nil {
		t.Fatal("autosave loop not started")
	}

	if err := sess.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Close must not release the backend while the loop can still save.
	select {
	case <-sess.autosaveDone:
	default:
		t.Error("close returned before the autosave loop exited")
	}
}

func TestCorruptStateStartsFresh(t *testing.T) {
	cfg := testConfig(t)
	if err := writeFile(cfg.Storage.Path, "{broken"); err != nil {
		t.Fatalf("write: %v", err)
	}

	sess, err := Open(cfg)
	if err != nil {
		t.Fatalf("open over corrupt state: %v", err)
	}
	defer sess.Close()

	if sess.Store.CurrentID() != model.DefaultID {
		t.Errorf("current = %s, want default", sess.Store.CurrentID())
	}
	if sess.Store.Len() != 1 {
		t.Errorf("len = %d, want 1", sess.Store.Len())
	}
}

// countingBackend wraps a backend and counts saves.
type countingBackend struct {
	storage.Backend
	saves int
}

func (b *countingBackend) Save(snap *store.Snapshot) error {
	b.saves++
	return b.Backend.Save(snap)
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0600)
}
