// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store implements the conversation store and the live/stored
// swap protocol.
//
// Exactly one conversation is "hot" at a time: its mutable fields live in
// the store's live buffer while every other conversation sits serialized
// in the conversation list. Switching conversations backs the live buffer
// up into the list under the current id, then restores the target entry
// into the live buffer. As long as every switch goes through Select, no
// conversation data is lost.
//
// # Key Operations
//
//   - Select: the swap protocol (backup current, restore target)
//   - Create: flush current, insert a fresh empty conversation
//   - Pin/Unpin, Copy, Rename, Remove: list management
//   - Search: case-insensitive regexp filter over titles, system
//     instructions and message text
//   - Snapshot/Restore: lossless state capture for the persistence layer
//
// The store is safe for concurrent use; all state transitions happen
// under one lock, so observers see either the old or the new conversation,
// never a mix.
package store
