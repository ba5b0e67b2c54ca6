// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gemini provides the HTTP client for the Gemini generative
// language API.
//
// The client supports listing available models and streaming content
// generation over SSE, with retry/backoff for transient failures and a
// client-side request rate limit. Requests can be routed through an API
// proxy guarded by an access password instead of talking to the Google
// endpoint directly.
//
// The title summarizer is the main consumer: it streams a generated
// conversation title chunk by chunk (see the title package).
package gemini
