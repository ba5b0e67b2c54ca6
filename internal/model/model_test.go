// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"testing"
)

func TestNewID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewID()
		if len(id) != 12 {
			t.Fatalf("id length = %d, want 12", len(id))
		}
		for _, r := range id {
			ok := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
			if !ok {
				t.Fatalf("id %q contains non-alphanumeric rune %q", id, r)
			}
		}
		if seen[id] {
			t.Fatalf("duplicate id %q in 100 draws", id)
		}
		seen[id] = true
	}
}

func TestIDIndexUniform(t *testing.T) {
	// Every accepted byte must map onto the alphabet, every alphabet
	// index must be hit the same number of times, and the tail bytes
	// that would skew the distribution must be rejected.
	counts := make(map[int]int)
	for b := 0; b < 256; b++ {
		idx, ok := idIndex(byte(b))
		if !ok {
			if b < 248 {
				t.Fatalf("byte %d rejected, want accepted", b)
			}
			continue
		}
		if b >= 248 {
			t.Fatalf("byte %d accepted, want rejected", b)
		}
		if idx < 0 || idx >= len(idAlphabet) {
			t.Fatalf("byte %d maps to out-of-range index %d", b, idx)
		}
		counts[idx]++
	}
	if len(counts) != len(idAlphabet) {
		t.Fatalf("indices hit = %d, want %d", len(counts), len(idAlphabet))
	}
	for idx, n := range counts {
		if n != 4 {
			t.Errorf("index %d hit %d times, want 4", idx, n)
		}
	}
}

func TestConversationClone(t *testing.T) {
	conv := NewConversation("abc")
	conv.Title = "original"
	conv.SystemInstruction = "be terse"
	conv.AddMessage(NewUserMessage("hello"))
	conv.AddMessage(NewModelMessage("hi there"))
	conv.Summary = Summary{IDs: []string{conv.Messages[0].ID}, Content: "greeting"}

	clone := conv.Clone()

	// Mutating the clone must not touch the original.
	clone.Title = "changed"
	clone.Messages[0].Parts[0].Text = "tampered"
	clone.Summary.IDs[0] = "x"

	if conv.Title != "original" {
		t.Error("clone title mutation leaked into original")
	}
	if conv.Messages[0].Text() != "hello" {
		t.Error("clone message mutation leaked into original")
	}
	if conv.Summary.IDs[0] == "x" {
		t.Error("clone summary mutation leaked into original")
	}
}

func TestConversationJSONRoundTrip(t *testing.T) {
	conv := NewConversation(NewID())
	conv.Title = "ラウンドトリップ"
	conv.SystemInstruction = "system"
	conv.ChatLayout = LayoutDoc
	msg := NewMessage(RoleUser,
		TextPart("text and "),
		Part{InlineData: &InlineData{MimeType: "image/png", Data: "aGVsbG8="}},
		TextPart("more text"),
	)
	conv.AddMessage(msg)
	conv.Summary = Summary{IDs: []string{msg.ID}, Content: "a title"}

	data, err := json.Marshal(conv)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var back Conversation
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if back.Title != conv.Title || back.SystemInstruction != conv.SystemInstruction {
		t.Error("title or system instruction lost in round trip")
	}
	if back.ChatLayout != LayoutDoc {
		t.Errorf("layout = %q, want %q", back.ChatLayout, LayoutDoc)
	}
	if len(back.Messages) != 1 || len(back.Messages[0].Parts) != 3 {
		t.Fatal("message or part count lost in round trip")
	}
	if back.Messages[0].Parts[1].InlineData == nil ||
		back.Messages[0].Parts[1].InlineData.MimeType != "image/png" {
		t.Error("inline data part lost in round trip")
	}
	if len(back.Summary.IDs) != 1 || back.Summary.IDs[0] != msg.ID {
		t.Error("summary ids lost in round trip")
	}
}

func TestMessageText(t *testing.T) {
	msg := NewMessage(RoleModel,
		TextPart("a"),
		Part{InlineData: &InlineData{MimeType: "audio/wav", Data: "eg=="}},
		TextPart("b"),
	)
	if got := msg.Text(); got != "ab" {
		t.Errorf("Text() = %q, want %q", got, "ab")
	}
}

func TestDisplayTitle(t *testing.T) {
	conv := NewConversation(DefaultID)
	if got := conv.DisplayTitle("New Chat"); got != "New Chat" {
		t.Errorf("DisplayTitle fallback = %q", got)
	}
	conv.Title = "named"
	if got := conv.DisplayTitle("New Chat"); got != "named" {
		t.Errorf("DisplayTitle = %q", got)
	}
}
