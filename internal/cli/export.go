// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// export.go - Conversation export for the gemchat shell.
//
// Builds a markdown document from a conversation and renders it with
// glamour for terminal preview.

package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/gemchat/internal/model"
	"github.com/jeranaias/gemchat/internal/title"
)

func (sh *Shell) cmdExport(args string) {
	conv, err := sh.lookupForDisplay(args)
	if err != nil {
		sh.printError(err)
		return
	}

	fallback := title.DefaultLabel(sh.session.Config().UI.Lang)
	markdown := ExportMarkdown(conv, fallback)

	rendered, err := renderMarkdown(markdown)
	if err != nil {
		// Rendering is cosmetic; fall back to the raw document.
		fmt.Fprintln(sh.out, markdown)
		return
	}
	fmt.Fprintln(sh.out, rendered)
}

func renderMarkdown(markdown string) (string, error) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return "", err
	}
	return renderer.Render(markdown)
}

// ExportMarkdown builds a markdown document from a conversation. The
// doc layout renders messages as running prose without speaker
// headings; the chat layout labels every turn.
func ExportMarkdown(conv *model.Conversation, fallbackTitle string) string {
	var sb strings.Builder

	sb.WriteString("# ")
	sb.WriteString(conv.DisplayTitle(fallbackTitle))
	sb.WriteString("\n\n")

	if conv.SystemInstruction != "" {
		sb.WriteString("> ")
		sb.WriteString(conv.SystemInstruction)
		sb.WriteString("\n\n")
	}

	for _, msg := range conv.Messages {
		text := msg.Text()
		if text == "" {
			continue
		}
		if conv.ChatLayout == model.LayoutDoc {
			sb.WriteString(text)
			sb.WriteString("\n\n")
			continue
		}
		sb.WriteString("**")
		sb.WriteString(msg.Role.DisplayName())
		sb.WriteString("**\n\n")
		sb.WriteString(text)
		sb.WriteString("\n\n")
	}

	return strings.TrimRight(sb.String(), "\n") + "\n"
}
