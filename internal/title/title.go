// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package title

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/jeranaias/gemchat/internal/gemini"
	"github.com/jeranaias/gemchat/internal/model"
	"github.com/jeranaias/gemchat/internal/store"
	"github.com/jeranaias/gemchat/internal/util"
)

// ErrNothingToSummarize is returned when the conversation has no text
// content to derive a title from.
var ErrNothingToSummarize = errors.New("conversation has no content to summarize")

const (
	// maxTitleRunes caps the stored title length.
	maxTitleRunes = 60

	// maxPromptMessages bounds how much history is sent; long
	// conversations are summarized from their head, which carries the
	// topic.
	maxPromptMessages = 12

	// maxPartRunes truncates oversized message parts in the prompt.
	maxPartRunes = 2000
)

// Generator streams generated content. *gemini.Client satisfies it; the
// tests substitute a scripted fake.
type Generator interface {
	StreamGenerateContent(ctx context.Context, model string, req gemini.GenerateRequest, callback gemini.StreamCallback) error
}

// Summarizer drives title generation against a conversation store.
type Summarizer struct {
	generator Generator
	store     *store.Store

	// Model used for summarization; a fast cheap model is fine.
	Model string

	// Lang is the BCP-47 UI language tag; titles are requested in it.
	Lang string
}

// NewSummarizer creates a summarizer over the given generator and store.
func NewSummarizer(g Generator, s *store.Store, modelName, lang string) *Summarizer {
	return &Summarizer{
		generator: g,
		store:     s,
		Model:     modelName,
		Lang:      lang,
	}
}

// Summarize generates a title for the conversation under id, streaming
// intermediate chunks into the stored entry as they arrive.
//
// The id is captured here, once, and every subsequent write addresses
// it. A conversation switch while the stream is in flight keeps writing
// to this id and never touches the newly current conversation.
//
// When the conversation's summary already covers exactly the current
// message set, the stream is skipped and the recorded title returned.
func (s *Summarizer) Summarize(ctx context.Context, id string) (string, error) {
	conv, err := s.snapshot(id)
	if err != nil {
		return "", err
	}

	ids := messageIDs(conv)
	if len(ids) == 0 {
		return "", ErrNothingToSummarize
	}
	if sameIDs(conv.Summary.IDs, ids) && conv.Summary.Content != "" {
		return conv.Summary.Content, nil
	}

	req := s.buildRequest(conv)

	var raw strings.Builder
	err = s.generator.StreamGenerateContent(ctx, s.Model, req, func(chunk gemini.StreamChunk) {
		if chunk.Text == "" {
			return
		}
		raw.WriteString(chunk.Text)
		// In-progress write: stored entry only, captured id only.
		s.store.SetStoredTitle(id, CleanTitle(raw.String()))
	})
	if err != nil {
		// Chunks already applied stay; the failure does not roll the
		// title back, and it does not disturb any other conversation.
		log.Printf("title: summarization for %s failed: %v", id, err)
		return "", fmt.Errorf("summarize %s: %w", id, err)
	}

	final := CleanTitle(raw.String())
	if final == "" {
		return "", ErrNothingToSummarize
	}
	s.store.FinishTitle(id, final, ids)
	return final, nil
}

// SummarizeCurrent summarizes the conversation that is current at call
// time. The current id is resolved once, before the stream starts.
func (s *Summarizer) SummarizeCurrent(ctx context.Context) (string, error) {
	return s.Summarize(ctx, s.store.CurrentID())
}

// snapshot returns the freshest view of the conversation: the live
// buffer when id is current, the stored entry otherwise.
func (s *Summarizer) snapshot(id string) (*model.Conversation, error) {
	if id == s.store.CurrentID() {
		return s.store.Current(), nil
	}
	return s.store.Get(id)
}

// buildRequest assembles the summarization request from conversation
// content.
func (s *Summarizer) buildRequest(conv *model.Conversation) gemini.GenerateRequest {
	contents := make([]gemini.Content, 0, maxPromptMessages)
	for _, msg := range conv.Messages {
		if len(contents) == maxPromptMessages {
			break
		}
		text := util.TruncateRunes(msg.Text(), maxPartRunes)
		if text == "" {
			continue
		}
		role := "user"
		if msg.Role == model.RoleModel {
			role = "model"
		}
		contents = append(contents, gemini.Content{
			Role:  role,
			Parts: []gemini.Part{{Text: text}},
		})
	}

	instruction := fmt.Sprintf(
		"Summarize the conversation into a short title of at most 8 words, in %s. "+
			"Reply with the title only: no quotes, no punctuation at the end, no explanation.",
		promptLanguage(s.Lang))
	if conv.SystemInstruction != "" {
		instruction += " Conversation context: " + util.TruncateRunes(conv.SystemInstruction, maxPartRunes)
	}

	return gemini.GenerateRequest{
		Contents:          contents,
		SystemInstruction: &gemini.Content{Parts: []gemini.Part{{Text: instruction}}},
		GenerationConfig:  &gemini.GenerationConfig{Temperature: 0.5, MaxOutputTokens: 40},
	}
}

// CleanTitle normalizes model output into a displayable title: strips
// wrapping quotes and markdown, collapses whitespace and truncates.
func CleanTitle(raw string) string {
	title := strings.TrimSpace(raw)
	title = strings.Trim(title, "\"'`*#")
	title = util.CollapseSpace(title)
	return util.TruncateRunes(title, maxTitleRunes)
}

// messageIDs collects the ids of messages carrying text content, in
// order. These are the ids recorded in the summary state.
func messageIDs(conv *model.Conversation) []string {
	ids := make([]string, 0, len(conv.Messages))
	for _, msg := range conv.Messages {
		if msg.Text() != "" {
			ids = append(ids, msg.ID)
		}
	}
	return ids
}

func sameIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
