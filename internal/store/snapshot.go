// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"github.com/jeranaias/gemchat/internal/model"
)

// =============================================================================
// SNAPSHOT / RESTORE
// =============================================================================

// Snapshot is the complete serializable store state: the conversation
// list in insertion order, the pinned set and the current id. It round
// trips losslessly through the persistence backends.
type Snapshot struct {
	Conversations []*model.Conversation `json:"conversations"`
	Pinned        []string              `json:"pinned"`
	CurrentID     string                `json:"current_id"`
}

// Snapshot flushes the live buffer and returns a deep copy of the whole
// store state.
func (s *Store) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.backupLocked()

	snap := &Snapshot{
		Conversations: make([]*model.Conversation, 0, len(s.order)),
		CurrentID:     s.currentID,
	}
	for _, id := range s.order {
		snap.Conversations = append(snap.Conversations, s.conversations[id].Clone())
		if s.pinned[id] {
			snap.Pinned = append(snap.Pinned, id)
		}
	}
	return snap
}

// Restore replaces the store state with the snapshot. Invariants are
// re-established on the way in: the default conversation is recreated if
// missing, the default id is dropped from the pinned set, pinned ids
// without a list entry are discarded, and an unknown current id falls
// back to default. The current conversation is loaded into the live
// buffer.
func (s *Store) Restore(snap *Snapshot) {
	s.mu.Lock()

	s.order = s.order[:0]
	s.conversations = make(map[string]*model.Conversation, len(snap.Conversations)+1)
	s.pinned = make(map[string]bool, len(snap.Pinned))

	for _, conv := range snap.Conversations {
		if conv == nil || conv.ID == "" {
			continue
		}
		if _, dup := s.conversations[conv.ID]; dup {
			continue
		}
		s.order = append(s.order, conv.ID)
		s.conversations[conv.ID] = conv.Clone()
	}

	if _, ok := s.conversations[model.DefaultID]; !ok {
		s.order = append([]string{model.DefaultID}, s.order...)
		s.conversations[model.DefaultID] = model.NewConversation(model.DefaultID)
	}

	for _, id := range snap.Pinned {
		if id == model.DefaultID {
			continue
		}
		if _, ok := s.conversations[id]; ok {
			s.pinned[id] = true
		}
	}

	current := snap.CurrentID
	if _, ok := s.conversations[current]; !ok {
		current = model.DefaultID
	}
	s.restoreLocked(current)
	s.mu.Unlock()

	s.notify(Event{Kind: EventRestore, ID: current})
}
