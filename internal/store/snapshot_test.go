// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/gemchat/internal/model"
)

func TestSnapshotRoundTrip(t *testing.T) {
	s := New()
	a := s.Create()
	s.AppendMessage(model.NewUserMessage("alpha"))
	s.Rename(a, "Alpha")
	s.Pin(a)

	b := s.Create()
	s.AppendMessage(model.NewUserMessage("beta"))
	s.SetSystemInstruction("be brief")
	s.SetChatLayout(model.LayoutDoc)

	snap := s.Snapshot()

	fresh := New()
	fresh.Restore(snap)

	assert.Equal(t, b, fresh.CurrentID())
	assert.Equal(t, s.IDs(), fresh.IDs())
	assert.Equal(t, []string{a}, fresh.PinnedIDs())

	convA, err := fresh.Get(a)
	require.NoError(t, err)
	assert.Equal(t, "Alpha", convA.Title)
	require.Equal(t, 1, convA.MessageCount())
	assert.Equal(t, "alpha", convA.Messages[0].Text())

	live := fresh.Current()
	assert.Equal(t, "be brief", live.SystemInstruction)
	assert.Equal(t, model.LayoutDoc, live.ChatLayout)
	require.Equal(t, 1, live.MessageCount())
	assert.Equal(t, "beta", live.Messages[0].Text())
}

func TestSnapshotIncludesUnflushedLiveEdits(t *testing.T) {
	s := New()
	s.AppendMessage(model.NewUserMessage("not yet flushed"))

	snap := s.Snapshot()

	require.Len(t, snap.Conversations, 1)
	assert.Equal(t, 1, snap.Conversations[0].MessageCount())
}

func TestRestoreRepairsInvariants(t *testing.T) {
	s := New()

	conv := model.NewConversation("orphan")
	s.Restore(&Snapshot{
		Conversations: []*model.Conversation{conv},
		// default pinned (illegal), ghost pinned (dangling), unknown current
		Pinned:    []string{model.DefaultID, "ghost", "orphan"},
		CurrentID: "missing",
	})

	assert.True(t, s.Has(model.DefaultID), "default recreated")
	assert.Equal(t, model.DefaultID, s.CurrentID(), "current falls back to default")
	assert.Equal(t, []string{"orphan"}, s.PinnedIDs())
}

func TestRestoreIsDeep(t *testing.T) {
	s := New()
	snap := &Snapshot{
		Conversations: []*model.Conversation{
			func() *model.Conversation {
				c := model.NewConversation("x")
				c.AddMessage(model.NewUserMessage("original"))
				return c
			}(),
		},
		CurrentID: "x",
	}

	s.Restore(snap)

	// Mutating the snapshot afterwards must not reach the store.
	snap.Conversations[0].Messages[0].Parts[0].Text = "tampered"
	conv, err := s.Get("x")
	require.NoError(t, err)
	assert.Equal(t, "original", conv.Messages[0].Text())
}
