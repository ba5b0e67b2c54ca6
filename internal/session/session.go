// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jeranaias/gemchat/internal/config"
	"github.com/jeranaias/gemchat/internal/storage"
	"github.com/jeranaias/gemchat/internal/store"
)

// =============================================================================
// SESSION
// =============================================================================

// Session owns a conversation store, its persistence backend and the
// active configuration.
type Session struct {
	Store *store.Store

	mu      sync.Mutex
	cfg     *config.Config
	backend storage.Backend

	isDirty      bool
	lastSave     time.Time
	unsubscribe  func()
	autosaveStop chan struct{}
	autosaveDone chan struct{}
	closed       bool
}

// New creates a session over the given store, backend and config.
// Previously persisted state is loaded into the store; a missing or
// corrupt state file starts fresh (persistence is best effort).
func New(s *store.Store, backend storage.Backend, cfg *config.Config) *Session {
	sess := &Session{
		Store:    s,
		cfg:      cfg,
		backend:  backend,
		lastSave: time.Now(),
	}

	snap, err := backend.Load()
	switch {
	case err == nil:
		s.Restore(snap)
	case errors.Is(err, storage.ErrNoState):
		// First run.
	default:
		log.Printf("session: discarding unreadable state: %v", err)
	}

	// Every store mutation marks the session dirty. The subscription is
	// registered after Restore so loading does not count as an edit.
	sess.unsubscribe = s.Subscribe(func(store.Event) {
		sess.mu.Lock()
		sess.isDirty = true
		sess.mu.Unlock()
	})

	if interval := cfg.Storage.AutosaveIntervalSecs; interval > 0 {
		sess.autosaveStop = make(chan struct{})
		sess.autosaveDone = make(chan struct{})
		go sess.autosaveLoop(time.Duration(interval) * time.Second)
	}

	return sess
}

// Open builds a session from configuration alone: it opens the
// configured backend and loads state.
func Open(cfg *config.Config) (*Session, error) {
	path, err := cfg.StatePath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve state path: %w", err)
	}
	backend, err := storage.Open(cfg.Storage.Backend, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage backend: %w", err)
	}
	return New(store.New(), backend, cfg), nil
}

// Config returns the active configuration.
func (s *Session) Config() *config.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// SetConfig swaps in a new configuration (config hot reload).
func (s *Session) SetConfig(cfg *config.Config) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

// IsDirty reports whether there are unsaved store mutations.
func (s *Session) IsDirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isDirty
}

// =============================================================================
// PERSISTENCE
// =============================================================================

// Save flushes the live buffer and persists the full snapshot.
func (s *Session) Save() error {
	snap := s.Store.Snapshot()
	if err := s.backend.Save(snap); err != nil {
		return fmt.Errorf("failed to persist state: %w", err)
	}

	s.mu.Lock()
	s.isDirty = false
	s.lastSave = time.Now()
	s.mu.Unlock()
	return nil
}

// SaveIfDirty persists only when there are unsaved mutations. The
// shell calls this after every command when autosave is on.
func (s *Session) SaveIfDirty() error {
	if !s.IsDirty() {
		return nil
	}
	return s.Save()
}

// autosaveLoop saves on a timer until Close.
func (s *Session) autosaveLoop(interval time.Duration) {
	defer close(s.autosaveDone)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.autosaveStop:
			return
		case <-ticker.C:
			if err := s.SaveIfDirty(); err != nil {
				log.Printf("session: autosave failed: %v", err)
			}
		}
	}
}

// Close saves outstanding changes and releases the backend. Safe to
// call once; later calls are no-ops.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	// Join the autosave loop so an in-flight save cannot race the
	// backend close below.
	if s.autosaveStop != nil {
		close(s.autosaveStop)
		<-s.autosaveDone
	}
	if s.unsubscribe != nil {
		s.unsubscribe()
	}

	saveErr := s.SaveIfDirty()
	closeErr := s.backend.Close()
	if saveErr != nil {
		return saveErr
	}
	return closeErr
}
