// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists conversation state across sessions.
//
// Two backends implement the same Backend interface: a JSON file
// written atomically (the default) and a SQLite database for users who
// want per-conversation rows they can inspect and query. Both round
// trip the store snapshot losslessly; the session layer picks one from
// configuration and never cares which.
package storage
