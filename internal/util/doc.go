// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small shared helpers for gemchat.
//
// It contains the atomic file writer used by the persistence layer and
// rune/width-aware string helpers used by the CLI when laying out
// conversation tables.
package util
