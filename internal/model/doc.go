// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// A Conversation is a titled sequence of messages plus its own system
// instruction and summary state. Messages are composed of ordered parts
// (text and inline data), mirroring the Gemini content format.
//
// # Key Types
//
//   - Conversation: full conversation record, keyed by an opaque id
//   - Message: one turn, an ordered sequence of Parts
//   - Part: text or inline binary content
//   - Summary: which messages have been summarized, and into what
//
// The reserved id "default" names the conversation that always exists;
// it can never be deleted or pinned.
package model
