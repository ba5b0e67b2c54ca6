// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gemini

// =============================================================================
// CONTENT TYPES (wire format)
// =============================================================================

// Part is one unit of content in a request or response.
type Part struct {
	Text string `json:"text,omitempty"`
}

// Content is a role-tagged sequence of parts. Roles on the wire are
// "user" and "model".
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// GenerationConfig tunes content generation.
type GenerationConfig struct {
	Temperature     float64 `json:"temperature,omitempty"`
	TopP            float64 `json:"topP,omitempty"`
	TopK            int     `json:"topK,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

// GenerateRequest is the body of a generateContent call.
type GenerateRequest struct {
	Contents          []Content         `json:"contents"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
}

// generateResponse is one decoded SSE payload from the streaming
// endpoint. Only the fields the client consumes are mapped.
type generateResponse struct {
	Candidates []struct {
		Content      Content `json:"content"`
		FinishReason string  `json:"finishReason,omitempty"`
	} `json:"candidates"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata,omitempty"`
}

// =============================================================================
// STREAM CHUNKS
// =============================================================================

// StreamChunk is one unit of streamed output delivered to callbacks.
type StreamChunk struct {
	// Text is the decoded UTF-8 content of this chunk (may be empty on
	// the final chunk).
	Text string

	// Done is set on the last chunk of the stream.
	Done bool

	// FinishReason is the model's stop reason, if reported.
	FinishReason string

	// Token counts, populated when the stream reports usage.
	PromptTokens     int
	CompletionTokens int

	// Error is set when the stream terminated abnormally; delivered only
	// through the channel variant.
	Error error
}

// StreamCallback is called for each chunk received during streaming, in
// arrival order, on the goroutine driving the stream.
type StreamCallback func(chunk StreamChunk)

// =============================================================================
// MODEL LISTING
// =============================================================================

// ModelInfo describes one available model.
type ModelInfo struct {
	// Name is the full resource name, e.g. "models/gemini-2.0-flash".
	Name string `json:"name"`
	// DisplayName is the human-readable model name.
	DisplayName string `json:"displayName"`
}

// listModelsResponse is the response of the models listing endpoint.
type listModelsResponse struct {
	Models        []ModelInfo `json:"models"`
	NextPageToken string      `json:"nextPageToken,omitempty"`
}

// apiErrorResponse is the error envelope returned by the API.
type apiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// DefaultModels is the static fallback used when the listing endpoint
// returns an empty sequence or cannot be reached.
var DefaultModels = []ModelInfo{
	{Name: "models/gemini-2.0-flash", DisplayName: "Gemini 2.0 Flash"},
	{Name: "models/gemini-2.0-flash-lite", DisplayName: "Gemini 2.0 Flash-Lite"},
	{Name: "models/gemini-1.5-pro", DisplayName: "Gemini 1.5 Pro"},
	{Name: "models/gemini-1.5-flash", DisplayName: "Gemini 1.5 Flash"},
}
