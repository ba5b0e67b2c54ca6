// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// commands.go - Slash command handlers for the gemchat shell.

package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/gemchat/internal/config"
	"github.com/jeranaias/gemchat/internal/gemini"
	"github.com/jeranaias/gemchat/internal/model"
	"github.com/jeranaias/gemchat/internal/title"
	"github.com/jeranaias/gemchat/internal/util"
)

// =============================================================================
// MESSAGE / REQUEST HELPERS
// =============================================================================

func newUserMessage(text string) *model.Message {
	return model.NewUserMessage(text)
}

func newModelMessage(text string) *model.Message {
	return model.NewModelMessage(text)
}

// buildChatRequest converts a conversation into a generation request
// using the configured parameters.
func buildChatRequest(conv *model.Conversation, cfg *config.Config) gemini.GenerateRequest {
	contents := make([]gemini.Content, 0, len(conv.Messages))
	for _, msg := range conv.Messages {
		text := msg.Text()
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

	req := gemini.GenerateRequest{
		Contents: contents,
		GenerationConfig: &gemini.GenerationConfig{
			Temperature:     cfg.Generation.Temperature,
			TopP:            cfg.Generation.TopP,
			TopK:            cfg.Generation.TopK,
			MaxOutputTokens: cfg.Generation.MaxOutputTokens,
		},
	}
	if conv.SystemInstruction != "" {
		req.SystemInstruction = &gemini.Content{
			Parts: []gemini.Part{{Text: conv.SystemInstruction}},
		}
	}
	return req
}

// =============================================================================
// CONVERSATION MANAGEMENT
// =============================================================================

func (sh *Shell) cmdNew() {
	id := sh.session.Store.Create()
	fmt.Fprintln(sh.out, SuccessStyle.Render("created ")+id)
}

func (sh *Shell) cmdOpen(args string) {
	if args == "" {
		fmt.Fprintln(sh.out, WarningStyle.Render("usage: /open ID"))
		return
	}
	if err := sh.session.Store.Select(args); err != nil {
		sh.printError(err)
		return
	}
	conv := sh.session.Store.Current()
	label := conv.DisplayTitle(title.DefaultLabel(sh.session.Config().UI.Lang))
	fmt.Fprintln(sh.out, SuccessStyle.Render("switched to ")+label)
}

func (sh *Shell) cmdList() {
	s := sh.session.Store
	sh.printTable(s.IDs(), "no conversations")
}

// printTable renders a runewidth-aligned conversation table: pinned
// entries first, then the rest in insertion order.
func (sh *Shell) printTable(ids []string, emptyMsg string) {
	if len(ids) == 0 {
		fmt.Fprintln(sh.out, DimStyle.Render(emptyMsg))
		return
	}

	s := sh.session.Store
	cfg := sh.session.Config()
	fallback := title.DefaultLabel(cfg.UI.Lang)
	titleWidth := cfg.UI.TitlePreviewLen

	ordered := make([]string, 0, len(ids))
	var rest []string
	for _, id := range ids {
		if s.IsPinned(id) {
			ordered = append(ordered, id)
		} else {
			rest = append(rest, id)
		}
	}
	ordered = append(ordered, rest...)

	fmt.Fprintf(sh.out, "  %-14s %s  %s\n",
		DimStyle.Render("ID"),
		DimStyle.Render(util.PadWidth("TITLE", titleWidth)),
		DimStyle.Render("MESSAGES"))

	for _, id := range ordered {
		conv, err := s.Get(id)
		if err != nil {
			continue
		}
		marker := " "
		if s.IsPinned(id) {
			marker = PinStyle.Render("*")
		}
		if id == s.CurrentID() {
			marker = CurrentStyle.Render(">")
		}

		label := util.TruncateWidth(conv.DisplayTitle(fallback), titleWidth)
		fmt.Fprintf(sh.out, "%s %-14s %s  %d\n",
			marker, id, util.PadWidth(label, titleWidth), conv.MessageCount())
	}
}

func (sh *Shell) cmdPin(args string) {
	if args == "" {
		fmt.Fprintln(sh.out, WarningStyle.Render("usage: /pin ID"))
		return
	}
	if err := sh.session.Store.Pin(args); err != nil {
		sh.printError(err)
		return
	}
	fmt.Fprintln(sh.out, SuccessStyle.Render("pinned ")+args)
}

func (sh *Shell) cmdUnpin(args string) {
	if args == "" {
		fmt.Fprintln(sh.out, WarningStyle.Render("usage: /unpin ID"))
		return
	}
	sh.session.Store.Unpin(args)
	fmt.Fprintln(sh.out, SuccessStyle.Render("unpinned ")+args)
}

func (sh *Shell) cmdCopy(args string) {
	if args == "" {
		fmt.Fprintln(sh.out, WarningStyle.Render("usage: /copy ID"))
		return
	}
	newID, err := sh.session.Store.Copy(args)
	if err != nil {
		sh.printError(err)
		return
	}
	fmt.Fprintln(sh.out, SuccessStyle.Render("copied to ")+newID)
}

func (sh *Shell) cmdRename(args string) {
	parts := strings.SplitN(args, " ", 2)
	if len(parts) < 2 || parts[0] == "" {
		fmt.Fprintln(sh.out, WarningStyle.Render("usage: /rename ID TITLE"))
		return
	}
	if err := sh.session.Store.Rename(parts[0], strings.TrimSpace(parts[1])); err != nil {
		sh.printError(err)
		return
	}
	fmt.Fprintln(sh.out, SuccessStyle.Render("renamed ")+parts[0])
}

func (sh *Shell) cmdDelete(args string) {
	if args == "" {
		fmt.Fprintln(sh.out, WarningStyle.Render("usage: /delete ID"))
		return
	}
	if err := sh.session.Store.Remove(args); err != nil {
		sh.printError(err)
		return
	}
	fmt.Fprintln(sh.out, SuccessStyle.Render("deleted ")+args)
}

// =============================================================================
// SEARCH
// =============================================================================

func (sh *Shell) cmdSearch(args string) {
	results, err := sh.session.Store.Search(args)
	if err != nil {
		// Invalid regex is a caller-visible failure, reported as-is.
		sh.printError(err)
		return
	}
	ids := make([]string, 0, len(results))
	for _, conv := range results {
		ids = append(ids, conv.ID)
	}
	sh.printTable(ids, "no matches")
}

// =============================================================================
// TITLE GENERATION
// =============================================================================

func (sh *Shell) cmdTitle(ctx context.Context, args string) {
	id := args
	if id == "" {
		id = sh.session.Store.CurrentID()
	}
	_, summarizer := sh.generators()
	// Stored-title writes stream in while this blocks; the final title
	// is printed when the stream closes.
	generated, err := summarizer.Summarize(ctx, id)
	if err != nil {
		sh.printError(err)
		return
	}
	fmt.Fprintln(sh.out, SuccessStyle.Render("title: ")+generated)
}

// =============================================================================
// MODELS
// =============================================================================

func (sh *Shell) cmdModels(ctx context.Context) {
	reqCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client, _ := sh.generators()
	models, err := client.ListModels(reqCtx)
	if err != nil || len(models) == 0 {
		// Empty sequence or failure: fall back to static defaults.
		if err != nil {
			fmt.Fprintln(sh.out, DimStyle.Render("model listing unavailable, showing defaults"))
		}
		models = gemini.DefaultModels
	}

	active := sh.session.Config().API.Model
	nameWidth := 0
	for _, m := range models {
		if w := runewidth.StringWidth(m.Name); w > nameWidth {
			nameWidth = w
		}
	}
	for _, m := range models {
		marker := " "
		if strings.HasSuffix(m.Name, "/"+active) || m.Name == active {
			marker = CurrentStyle.Render(">")
		}
		fmt.Fprintf(sh.out, "%s %s  %s\n",
			marker, util.PadWidth(m.Name, nameWidth), DimStyle.Render(m.DisplayName))
	}
}

// =============================================================================
// SETTINGS
// =============================================================================

func (sh *Shell) cmdSettings(args string) {
	cfg := sh.session.Config()
	fields := strings.Fields(args)

	switch len(fields) {
	case 0:
		fmt.Fprintln(sh.out, cfg.String())
	case 1:
		val, err := cfg.Get(fields[0])
		if err != nil {
			sh.printError(err)
			return
		}
		fmt.Fprintf(sh.out, "%s = %v\n", fields[0], val)
	default:
		key := fields[0]
		value := strings.TrimSpace(strings.TrimPrefix(args, key))
		updated := cfg.Clone()
		if err := updated.Set(key, value); err != nil {
			sh.printError(err)
			return
		}
		updated.SetDefaults()
		if err := updated.Validate(); err != nil {
			sh.printError(err)
			return
		}
		if err := config.Save(updated); err != nil {
			sh.printError(err)
			return
		}
		sh.ReloadConfig(updated)
		fmt.Fprintln(sh.out, SuccessStyle.Render("set ")+key)
	}
}

// =============================================================================
// LIVE CONVERSATION SETTINGS
// =============================================================================

func (sh *Shell) cmdSystem(args string) {
	sh.session.Store.SetSystemInstruction(args)
	if args == "" {
		fmt.Fprintln(sh.out, SuccessStyle.Render("system instruction cleared"))
	} else {
		fmt.Fprintln(sh.out, SuccessStyle.Render("system instruction set"))
	}
}

func (sh *Shell) cmdLayout(args string) {
	layout := model.ChatLayout(strings.ToLower(args))
	if !layout.Valid() {
		fmt.Fprintln(sh.out, WarningStyle.Render("usage: /layout chat|doc"))
		return
	}
	sh.session.Store.SetChatLayout(layout)
	fmt.Fprintln(sh.out, SuccessStyle.Render("layout set to ")+string(layout))
}

// lookupForDisplay resolves an id (or empty for current) to a fresh
// conversation view.
func (sh *Shell) lookupForDisplay(id string) (*model.Conversation, error) {
	s := sh.session.Store
	if id == "" || id == s.CurrentID() {
		return s.Current(), nil
	}
	conv, err := s.Get(id)
	if err != nil {
		return nil, fmt.Errorf("%w (try /list)", err)
	}
	return conv, nil
}
