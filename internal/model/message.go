// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser   Role = "user"
	RoleModel  Role = "model"
	RoleSystem Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleModel:
		return "Gemini"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// =============================================================================
// PART TYPE
// =============================================================================

// Part is one unit of message content. Exactly one of Text or InlineData
// is set; a text part carries prose, an inline-data part carries a
// base64-encoded blob with its MIME type (images, audio clips).
type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inline_data,omitempty"`
}

// InlineData is embedded binary content.
type InlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"` // base64
}

// TextPart creates a text part.
func TextPart(text string) Part {
	return Part{Text: text}
}

// IsText reports whether the part carries text content.
func (p Part) IsText() bool {
	return p.InlineData == nil
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single turn in a conversation.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Parts     []Part    `json:"parts"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage creates a message with a generated id and the given parts.
func NewMessage(role Role, parts ...Part) *Message {
	return &Message{
		ID:        uuid.NewString(),
		Role:      role,
		Parts:     parts,
		Timestamp: time.Now(),
	}
}

// NewUserMessage creates a user message with a single text part.
func NewUserMessage(text string) *Message {
	return NewMessage(RoleUser, TextPart(text))
}

// NewModelMessage creates a model message with a single text part.
func NewModelMessage(text string) *Message {
	return NewMessage(RoleModel, TextPart(text))
}

// Text returns the concatenated text of all text parts.
func (m *Message) Text() string {
	var sb strings.Builder
	for _, p := range m.Parts {
		if p.IsText() {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

// Preview returns a truncated single-line preview of the message text.
// Uses rune-based truncation to handle Unicode correctly.
func (m *Message) Preview(maxLen int) string {
	content := m.Text()
	runes := []rune(content)
	if len(runes) <= maxLen {
		return content
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// IsEmpty returns true if the message has no parts with content.
func (m *Message) IsEmpty() bool {
	for _, p := range m.Parts {
		if p.Text != "" || p.InlineData != nil {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the message.
func (m *Message) Clone() *Message {
	clone := *m
	clone.Parts = make([]Part, len(m.Parts))
	for i, p := range m.Parts {
		clone.Parts[i] = p
		if p.InlineData != nil {
			data := *p.InlineData
			clone.Parts[i].InlineData = &data
		}
	}
	return &clone
}
