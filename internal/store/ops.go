// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"fmt"

	"github.com/jeranaias/gemchat/internal/model"
)

// =============================================================================
// PIN / UNPIN
// =============================================================================

// Pin adds id to the pinned set. Pinning the default conversation is a
// silent no-op: the UI never offers it, and the store guards it anyway.
func (s *Store) Pin(id string) error {
	s.mu.Lock()
	if id == model.DefaultID {
		s.mu.Unlock()
		return nil
	}
	if _, ok := s.conversations[id]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.pinned[id] = true
	s.mu.Unlock()

	s.notify(Event{Kind: EventPin, ID: id})
	return nil
}

// Unpin removes id from the pinned set. Unknown or unpinned ids are a
// no-op.
func (s *Store) Unpin(id string) {
	s.mu.Lock()
	delete(s.pinned, id)
	s.mu.Unlock()

	s.notify(Event{Kind: EventUnpin, ID: id})
}

// =============================================================================
// COPY
// =============================================================================

// Copy duplicates the named conversation under a new generated id and
// returns that id. When id is current, the live buffer is the source of
// truth and is copied instead of the possibly stale stored entry. The
// copy is neither pinned nor made current.
func (s *Store) Copy(id string) (string, error) {
	s.mu.Lock()
	var src *model.Conversation
	if id == s.currentID {
		src = s.live
	} else {
		var ok bool
		src, ok = s.conversations[id]
		if !ok {
			s.mu.Unlock()
			return "", fmt.Errorf("%w: %s", ErrNotFound, id)
		}
	}

	newID := model.NewID()
	dup := src.Clone()
	dup.ID = newID
	s.order = append(s.order, newID)
	s.conversations[newID] = dup
	s.mu.Unlock()

	s.notify(Event{Kind: EventCopy, ID: newID})
	return newID, nil
}

// =============================================================================
// RENAME
// =============================================================================

// Rename sets the title of the named conversation. When id is current
// the live title is updated directly (the live copy is the source of
// truth while active); otherwise the stored entry is edited in place.
// The default conversation keeps its localized label and cannot be
// renamed.
func (s *Store) Rename(id, title string) error {
	s.mu.Lock()
	if id == model.DefaultID {
		s.mu.Unlock()
		return ErrReservedID
	}

	if id == s.currentID {
		s.live.Title = title
		s.mu.Unlock()
		s.notify(Event{Kind: EventRename, ID: id})
		return nil
	}

	conv, ok := s.conversations[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	conv.Title = title
	s.mu.Unlock()

	s.notify(Event{Kind: EventRename, ID: id})
	return nil
}

// =============================================================================
// REMOVE
// =============================================================================

// Remove deletes the conversation from the list and the pinned set. The
// default conversation is protected. Removing the current conversation
// falls back to the default conversation as the new current, without
// backing the removed one up first.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	if id == model.DefaultID {
		s.mu.Unlock()
		return ErrReservedID
	}
	if _, ok := s.conversations[id]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	delete(s.conversations, id)
	delete(s.pinned, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}

	// The removed conversation may be live; fall back to default. The
	// default entry always exists, so the restore cannot miss.
	wasCurrent := id == s.currentID
	if wasCurrent {
		s.restoreLocked(model.DefaultID)
	}
	s.mu.Unlock()

	s.notify(Event{Kind: EventRemove, ID: id})
	if wasCurrent {
		s.notify(Event{Kind: EventSelect, ID: model.DefaultID})
	}
	return nil
}

// =============================================================================
// TITLE STREAMING SUPPORT
// =============================================================================

// SetStoredTitle writes title into the list entry under id without
// touching the live buffer. The title summarizer calls this for every
// streamed chunk, always addressing its captured id. Writing to an id
// that was deleted mid-stream recreates the entry, which is benign.
func (s *Store) SetStoredTitle(id, title string) {
	s.mu.Lock()
	conv, ok := s.conversations[id]
	if !ok {
		conv = model.NewConversation(id)
		s.order = append(s.order, id)
		s.conversations[id] = conv
	}
	conv.Title = title
	s.mu.Unlock()

	s.notify(Event{Kind: EventTitle, ID: id})
}

// FinishTitle records the final generated title and the summary state
// under id. If id is still current, the live title is updated too so
// the live and stored copies stay consistent.
func (s *Store) FinishTitle(id, title string, summarizedIDs []string) {
	s.mu.Lock()
	conv, ok := s.conversations[id]
	if !ok {
		conv = model.NewConversation(id)
		s.order = append(s.order, id)
		s.conversations[id] = conv
	}
	conv.Title = title
	conv.Summary = model.Summary{
		IDs:     append([]string(nil), summarizedIDs...),
		Content: title,
	}
	if id == s.currentID {
		s.live.Title = title
		s.live.Summary = conv.Summary.Clone()
	}
	s.mu.Unlock()

	s.notify(Event{Kind: EventTitle, ID: id})
}
