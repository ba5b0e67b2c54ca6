// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session ties the conversation store to its persistence
// backend and owns the lifecycle of one chat session.
//
// The session is the single top-level context: the store, the backend
// and the configuration are explicit fields, never package globals, so
// tests can construct isolated sessions side by side.
package session
