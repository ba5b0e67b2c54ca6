// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gemini

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"
)

// =============================================================================
// SSE READER
// =============================================================================

// SSEReader decodes server-sent events from a response body. Only the
// "data:" field is consumed; comments and other fields are skipped.
type SSEReader struct {
	reader *bufio.Reader
}

// NewSSEReader creates an SSE reader from an io.Reader.
func NewSSEReader(r io.Reader) *SSEReader {
	return &SSEReader{reader: bufio.NewReader(r)}
}

// ReadData returns the next data payload, or io.EOF at end of stream.
func (s *SSEReader) ReadData() ([]byte, error) {
	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF && len(bytes.TrimSpace(line)) == 0 {
				return nil, io.EOF
			}
			if len(bytes.TrimSpace(line)) == 0 {
				return nil, err
			}
			// Fall through: decode the final unterminated line.
		}

		line = bytes.TrimRight(line, "\r\n")
		if len(line) == 0 {
			continue // event separator
		}
		if data, ok := bytes.CutPrefix(line, []byte("data:")); ok {
			return bytes.TrimSpace(data), nil
		}
		// Non-data field (event:, id:, comments) - skip.
	}
}

// =============================================================================
// STREAMING GENERATION
// =============================================================================

// StreamGenerateContent sends a streaming generation request for the
// given model and calls the callback for each chunk, in order, until the
// stream closes. Stream closure is the only end-of-stream signal; the
// final callback carries Done.
//
// Transient failures before the first byte are retried with exponential
// backoff; once chunks have been delivered the stream is never silently
// restarted, since the consumer has already observed partial output.
func (c *Client) StreamGenerateContent(ctx context.Context, model string, genReq GenerateRequest, callback StreamCallback) error {
	if !c.IsConfigured() {
		return &ClientError{Type: ErrTypeNotConfigured, Message: "cannot generate content", Cause: ErrNotConfigured}
	}

	body, err := marshalRequest(genReq)
	if err != nil {
		return err
	}

	url := c.config.BaseURL + "/" + apiVersion + "/" + normalizeModel(model) + ":streamGenerateContent?alt=sse"

	var lastErr error
	for attempt := 0; attempt < c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff(attempt - 1)):
			}
		}

		delivered, err := c.streamOnce(ctx, url, body, callback)
		if err == nil {
			return nil
		}
		if delivered || !isRetryable(err) {
			return err
		}
		lastErr = err
	}
	return &ClientError{Type: ErrTypeConnection, Message: "max retries exceeded", Cause: lastErr}
}

// streamOnce performs a single streaming attempt. It reports whether any
// chunk was delivered to the callback before the error, so the caller
// can decide whether a retry is safe.
func (c *Client) streamOnce(ctx context.Context, url string, body []byte, callback StreamCallback) (bool, error) {
	if err := c.wait(ctx); err != nil {
		return false, &ClientError{Type: ErrTypeRateLimited, Message: "rate limiter wait failed", Cause: err}
	}

	req, err := c.newPostRequest(ctx, url, body)
	if err != nil {
		return false, err
	}
	logRequest(req)

	start := time.Now()
	resp, err := c.streamClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return false, ctx.Err()
		}
		return false, &ClientError{Type: ErrTypeConnection, Message: "stream request failed", Cause: err}
	}
	defer drainAndClose(resp.Body)
	logResponse(resp, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		errBody, _ := readBounded(resp.Body)
		return false, c.errorFromResponse(resp.StatusCode, errBody)
	}

	return c.processStream(ctx, resp.Body, callback)
}

// processStream decodes SSE payloads and feeds the callback.
func (c *Client) processStream(ctx context.Context, body io.Reader, callback StreamCallback) (bool, error) {
	reader := NewSSEReader(body)
	delivered := false
	finishReason := ""
	promptTokens, completionTokens := 0, 0

	for {
		select {
		case <-ctx.Done():
			return delivered, ctx.Err()
		default:
		}

		data, err := reader.ReadData()
		if err != nil {
			if err == io.EOF {
				callback(StreamChunk{
					Done:             true,
					FinishReason:     finishReason,
					PromptTokens:     promptTokens,
					CompletionTokens: completionTokens,
				})
				return true, nil
			}
			return delivered, &ClientError{Type: ErrTypeConnection, Message: "stream read failed", Cause: err}
		}

		// OpenAI-compatible proxies terminate with a [DONE] sentinel.
		if bytes.Equal(data, []byte("[DONE]")) {
			callback(StreamChunk{
				Done:             true,
				FinishReason:     finishReason,
				PromptTokens:     promptTokens,
				CompletionTokens: completionTokens,
			})
			return true, nil
		}

		var response generateResponse
		if err := json.Unmarshal(data, &response); err != nil {
			// Skip malformed payloads.
			continue
		}

		text := ""
		if len(response.Candidates) > 0 {
			for _, part := range response.Candidates[0].Content.Parts {
				text += part.Text
			}
			if fr := response.Candidates[0].FinishReason; fr != "" {
				finishReason = fr
			}
		}
		if response.UsageMetadata != nil {
			promptTokens = response.UsageMetadata.PromptTokenCount
			completionTokens = response.UsageMetadata.CandidatesTokenCount
		}

		if text != "" {
			delivered = true
			callback(StreamChunk{Text: text})
		}
	}
}

// StreamGenerateContentChan is the channel variant of
// StreamGenerateContent. The channel is closed when streaming completes;
// errors are delivered as a final chunk with Error set.
func (c *Client) StreamGenerateContentChan(ctx context.Context, model string, genReq GenerateRequest) <-chan StreamChunk {
	ch := make(chan StreamChunk)

	go func() {
		defer close(ch)

		err := c.StreamGenerateContent(ctx, model, genReq, func(chunk StreamChunk) {
			select {
			case ch <- chunk:
			case <-ctx.Done():
			}
		})
		if err != nil {
			select {
			case ch <- StreamChunk{Error: err, Done: true}:
			case <-ctx.Done():
			}
		}
	}()

	return ch
}

// normalizeModel prefixes bare model names with "models/".
func normalizeModel(model string) string {
	if strings.HasPrefix(model, "models/") {
		return model
	}
	return "models/" + model
}

// =============================================================================
// STREAM ACCUMULATOR
// =============================================================================

// StreamAccumulator collects streamed chunks into the full text.
type StreamAccumulator struct {
	// PERFORMANCE: strings.Builder avoids quadratic allocations.
	content strings.Builder

	Done         bool
	FinishReason string
	Err          error
}

// NewStreamAccumulator creates an empty accumulator.
func NewStreamAccumulator() *StreamAccumulator {
	return &StreamAccumulator{}
}

// Add processes a chunk.
func (a *StreamAccumulator) Add(chunk StreamChunk) {
	if chunk.Error != nil {
		a.Err = chunk.Error
		a.Done = true
		return
	}
	a.content.WriteString(chunk.Text)
	if chunk.Done {
		a.Done = true
		a.FinishReason = chunk.FinishReason
	}
}

// Content returns the accumulated text so far.
func (a *StreamAccumulator) Content() string {
	return a.content.String()
}
