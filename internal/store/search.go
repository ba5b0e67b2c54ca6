// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"fmt"
	"regexp"

	"github.com/jeranaias/gemchat/internal/model"
)

// =============================================================================
// SEARCH
// =============================================================================

// Match reports whether a conversation matches a compiled keyword
// pattern: against the title, the system instruction, or any message
// part's text.
func Match(re *regexp.Regexp, conv *model.Conversation) bool {
	if re.MatchString(conv.Title) || re.MatchString(conv.SystemInstruction) {
		return true
	}
	for _, msg := range conv.Messages {
		for _, part := range msg.Parts {
			if part.IsText() && re.MatchString(part.Text) {
				return true
			}
		}
	}
	return false
}

// Search filters conversations by keyword, treated as a case-insensitive
// regular expression. The empty keyword matches everything. A malformed
// keyword is the caller's error and is propagated, not sanitized.
// Results follow input order and are deep copies; searching never
// mutates stored state.
func Search(keyword string, conversations []*model.Conversation) ([]*model.Conversation, error) {
	re, err := regexp.Compile("(?i)" + keyword)
	if err != nil {
		return nil, fmt.Errorf("invalid search keyword %q: %w", keyword, err)
	}

	var results []*model.Conversation
	for _, conv := range conversations {
		if Match(re, conv) {
			results = append(results, conv.Clone())
		}
	}
	return results, nil
}

// Search filters the conversation list by keyword, in insertion order.
// The stored entries are searched; live edits that have not been backed
// up yet are not visible to search.
func (s *Store) Search(keyword string) ([]*model.Conversation, error) {
	re, err := regexp.Compile("(?i)" + keyword)
	if err != nil {
		return nil, fmt.Errorf("invalid search keyword %q: %w", keyword, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var results []*model.Conversation
	for _, id := range s.order {
		if conv := s.conversations[id]; Match(re, conv) {
			results = append(results, conv.Clone())
		}
	}
	return results, nil
}
