// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"crypto/rand"
	"time"
)

// DefaultID is the reserved id of the conversation that always exists.
// It is never deletable and never pinnable.
const DefaultID = "default"

// =============================================================================
// CHAT LAYOUT
// =============================================================================

// ChatLayout is the display mode for a conversation.
type ChatLayout string

const (
	// LayoutChat is the standard alternating-bubble layout.
	LayoutChat ChatLayout = "chat"
	// LayoutDoc renders the conversation as a single document.
	LayoutDoc ChatLayout = "doc"
)

// Valid reports whether the layout is a known value.
func (l ChatLayout) Valid() bool {
	return l == LayoutChat || l == LayoutDoc
}

// =============================================================================
// SUMMARY STATE
// =============================================================================

// Summary records which messages have already been folded into the
// generated title, so summarization is not redone for unchanged content.
type Summary struct {
	// IDs of messages that contributed to Content, in message order.
	IDs []string `json:"ids"`
	// Content is the generated title text.
	Content string `json:"content"`
}

// Clone returns a deep copy of the summary.
func (s Summary) Clone() Summary {
	clone := s
	clone.IDs = append([]string(nil), s.IDs...)
	return clone
}

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation holds a complete chat conversation with history and metadata.
// An empty Title is a sentinel meaning "use the localized default label".
type Conversation struct {
	ID                string     `json:"id"`
	Title             string     `json:"title"`
	Messages          []*Message `json:"messages"`
	Summary           Summary    `json:"summary"`
	SystemInstruction string     `json:"system_instruction,omitempty"`
	ChatLayout        ChatLayout `json:"chat_layout"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// NewConversation creates an empty conversation under the given id.
func NewConversation(id string) *Conversation {
	now := time.Now()
	return &Conversation{
		ID:         id,
		Messages:   make([]*Message, 0),
		ChatLayout: LayoutChat,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// AddMessage appends a message and bumps the update time.
func (c *Conversation) AddMessage(msg *Message) {
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = time.Now()
}

// MessageCount returns the number of messages.
func (c *Conversation) MessageCount() int {
	return len(c.Messages)
}

// IsEmpty returns true if there are no messages.
func (c *Conversation) IsEmpty() bool {
	return len(c.Messages) == 0
}

// DisplayTitle returns the title, or fallback when the title is the
// empty-string sentinel.
func (c *Conversation) DisplayTitle(fallback string) string {
	if c.Title != "" {
		return c.Title
	}
	return fallback
}

// Preview returns a short single-line preview from the first user message.
func (c *Conversation) Preview(maxLen int) string {
	for _, msg := range c.Messages {
		if msg.Role == RoleUser && !msg.IsEmpty() {
			return msg.Preview(maxLen)
		}
	}
	return ""
}

// Clone returns a deep copy of the conversation. The swap protocol and
// the copy operation both rely on clones so that live edits never alias
// stored state.
func (c *Conversation) Clone() *Conversation {
	clone := &Conversation{
		ID:                c.ID,
		Title:             c.Title,
		Summary:           c.Summary.Clone(),
		SystemInstruction: c.SystemInstruction,
		ChatLayout:        c.ChatLayout,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
		Messages:          make([]*Message, len(c.Messages)),
	}
	for i, msg := range c.Messages {
		clone.Messages[i] = msg.Clone()
	}
	return clone
}

// =============================================================================
// ID GENERATION
// =============================================================================

const idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// idLength is the length of generated conversation ids. At 62^12 the
// collision probability is negligible, so ids are not checked for
// uniqueness against existing conversations.
const idLength = 12

// NewID generates a random 12-character alphanumeric conversation id.
// Random bytes beyond the largest multiple of the alphabet size are
// rejected so every character is equally likely.
func NewID() string {
	id := make([]byte, 0, idLength)
	raw := make([]byte, idLength)
	for len(id) < idLength {
		rand.Read(raw)
		for _, b := range raw {
			idx, ok := idIndex(b)
			if !ok {
				continue
			}
			id = append(id, idAlphabet[idx])
			if len(id) == idLength {
				break
			}
		}
	}
	return string(id)
}

// idIndex maps a random byte onto an alphabet index, rejecting bytes
// that would make low indices more likely than high ones.
func idIndex(b byte) (int, bool) {
	const limit = 256 - 256%len(idAlphabet)
	if int(b) >= limit {
		return 0, false
	}
	return int(b) % len(idAlphabet), true
}
