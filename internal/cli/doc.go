// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the interactive gemchat shell.
//
// The shell is a REPL over the session: plain input is sent to the
// model as a chat message, slash commands operate on the conversation
// list (new, open, pin, search, export and friends). Line editing and
// persistent input history come from liner; output styling from
// lipgloss.
package cli
