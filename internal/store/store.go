// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"errors"
	"fmt"
	"sync"

	"github.com/jeranaias/gemchat/internal/model"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotFound is returned when an operation names an id that is not
	// in the conversation list. Selecting an unknown id is a caller
	// contract violation, so it fails fast instead of creating an entry.
	ErrNotFound = errors.New("conversation not found")

	// ErrReservedID is returned when a mutating operation targets the
	// reserved "default" conversation.
	ErrReservedID = errors.New("operation not allowed on default conversation")
)

// =============================================================================
// CHANGE EVENTS
// =============================================================================

// EventKind identifies the kind of store mutation.
type EventKind int

const (
	EventSelect EventKind = iota
	EventCreate
	EventPin
	EventUnpin
	EventCopy
	EventRename
	EventRemove
	EventLive
	EventTitle
	EventRestore
)

// Event describes one store mutation, delivered to subscribers.
type Event struct {
	Kind EventKind
	// ID is the conversation the event refers to.
	ID string
}

// =============================================================================
// STORE
// =============================================================================

// Store owns the conversation list, the pinned set, the current id and
// the live conversation buffer. Views are injected with a *Store and talk
// to it through these methods; there is no ambient global state.
type Store struct {
	mu sync.Mutex

	// order holds conversation ids in insertion order; conversations is
	// the list keyed by id. Search results and listings follow order.
	order         []string
	conversations map[string]*model.Conversation

	// pinned is a subset of conversation ids, never containing DefaultID.
	pinned map[string]bool

	// currentID names the conversation loaded into live. Exactly one
	// conversation is current at all times.
	currentID string

	// live is the hot conversation buffer (the message store). It is a
	// private copy: stored entries are only updated through backup.
	live *model.Conversation

	subscribers map[int]func(Event)
	nextSubID   int
}

// New creates a store seeded with the reserved default conversation,
// which is current.
func New() *Store {
	def := model.NewConversation(model.DefaultID)
	s := &Store{
		order:         []string{model.DefaultID},
		conversations: map[string]*model.Conversation{model.DefaultID: def},
		pinned:        make(map[string]bool),
		currentID:     model.DefaultID,
		live:          def.Clone(),
		subscribers:   make(map[int]func(Event)),
	}
	return s
}

// Subscribe registers a callback invoked after every mutation. The
// returned function removes the subscription. Callbacks run with the
// store lock released.
func (s *Store) Subscribe(fn func(Event)) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

// notify delivers an event to all subscribers. Callers must NOT hold the
// lock; the swap protocol completes before any observer runs.
func (s *Store) notify(ev Event) {
	s.mu.Lock()
	fns := make([]func(Event), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// =============================================================================
// ACCESSORS
// =============================================================================

// CurrentID returns the id of the live conversation.
func (s *Store) CurrentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentID
}

// Current returns a deep copy of the live conversation.
func (s *Store) Current() *model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live.Clone()
}

// Get returns a deep copy of the stored conversation under id. For the
// current id this is the last backed-up state, not the live buffer.
func (s *Store) Get(id string) (*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return conv.Clone(), nil
}

// Has reports whether id is in the conversation list.
func (s *Store) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.conversations[id]
	return ok
}

// IDs returns conversation ids in insertion order.
func (s *Store) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

// Len returns the number of conversations in the list.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// IsPinned reports whether id is in the pinned set.
func (s *Store) IsPinned(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pinned[id]
}

// PinnedIDs returns pinned ids in insertion order.
func (s *Store) PinnedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.pinned))
	for _, id := range s.order {
		if s.pinned[id] {
			ids = append(ids, id)
		}
	}
	return ids
}

// =============================================================================
// SWAP PROTOCOL
// =============================================================================

// backupLocked writes a snapshot of the live buffer into the list under
// the current id (insert-or-overwrite). Callers must hold the lock.
func (s *Store) backupLocked() {
	snapshot := s.live.Clone()
	if _, exists := s.conversations[s.currentID]; !exists {
		s.order = append(s.order, s.currentID)
	}
	s.conversations[s.currentID] = snapshot
}

// restoreLocked loads the stored conversation under id into the live
// buffer and makes it current. Callers must hold the lock and must have
// verified that id exists.
func (s *Store) restoreLocked(id string) {
	s.currentID = id
	s.live = s.conversations[id].Clone()
}

// Select switches the live buffer to targetID.
//
// The sequence is: back up the live buffer under the current id, look up
// the target (ErrNotFound if absent), set current, restore the target
// into the live buffer. The backup happens before the lookup, so even a
// failed select persists the live edits. Selecting the current id is a
// valid refresh and performs the full round trip.
func (s *Store) Select(targetID string) error {
	s.mu.Lock()
	s.backupLocked()
	if _, ok := s.conversations[targetID]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, targetID)
	}
	s.restoreLocked(targetID)
	s.mu.Unlock()

	s.notify(Event{Kind: EventSelect, ID: targetID})
	return nil
}

// Create flushes the live buffer, inserts a fresh empty conversation
// under a newly generated id, makes it current and returns the id.
// Creation cannot fail.
func (s *Store) Create() string {
	s.mu.Lock()
	s.backupLocked()

	id := model.NewID()
	conv := model.NewConversation(id)
	s.order = append(s.order, id)
	s.conversations[id] = conv
	s.restoreLocked(id)
	s.mu.Unlock()

	s.notify(Event{Kind: EventCreate, ID: id})
	return id
}

// Flush backs up the live buffer without switching conversations. The
// persistence layer calls this before taking a snapshot so the stored
// list reflects the latest live edits.
func (s *Store) Flush() {
	s.mu.Lock()
	s.backupLocked()
	s.mu.Unlock()
}

// =============================================================================
// LIVE BUFFER MUTATIONS
// =============================================================================

// AppendMessage adds a message to the live conversation.
func (s *Store) AppendMessage(msg *model.Message) {
	s.mu.Lock()
	s.live.AddMessage(msg.Clone())
	id := s.currentID
	s.mu.Unlock()

	s.notify(Event{Kind: EventLive, ID: id})
}

// SetSystemInstruction updates the live conversation's system prompt.
func (s *Store) SetSystemInstruction(text string) {
	s.mu.Lock()
	s.live.SystemInstruction = text
	id := s.currentID
	s.mu.Unlock()

	s.notify(Event{Kind: EventLive, ID: id})
}

// SetChatLayout updates the live conversation's display mode. Unknown
// layouts are ignored.
func (s *Store) SetChatLayout(layout model.ChatLayout) {
	if !layout.Valid() {
		return
	}
	s.mu.Lock()
	s.live.ChatLayout = layout
	id := s.currentID
	s.mu.Unlock()

	s.notify(Event{Kind: EventLive, ID: id})
}
