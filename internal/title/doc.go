// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package title generates conversation titles by streaming a summary
// from the model.
//
// The summarizer captures the target conversation id by value before
// the stream starts and addresses every write to that captured id. It
// never reads the store's current id inside a stream callback, so a
// conversation switch mid-stream cannot redirect title chunks onto the
// newly active conversation.
package title
