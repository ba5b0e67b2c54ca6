// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// shell.go - Interactive REPL for gemchat.
//
// Plain input is sent to the model; slash commands manage the
// conversation list.
//
// Interactive commands:
//   /new                       Create a conversation and switch to it
//   /open ID                   Switch to a conversation
//   /list                      List conversations (pinned first)
//   /pin ID, /unpin ID         Manage the pinned set
//   /copy ID                   Duplicate a conversation
//   /rename ID TITLE           Set a conversation title
//   /delete ID                 Remove a conversation
//   /search KEYWORD            Regex search across conversations
//   /title [ID]                Generate a title from content
//   /models                    List available models
//   /settings ...              Show or edit configuration
//   /system TEXT               Set the system instruction
//   /layout chat|doc           Set the display mode
//   /export [ID]               Render a conversation as markdown
//   /help, /quit
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/peterh/liner"

	"github.com/jeranaias/gemchat/internal/config"
	"github.com/jeranaias/gemchat/internal/gemini"
	"github.com/jeranaias/gemchat/internal/session"
	"github.com/jeranaias/gemchat/internal/title"
)

// =============================================================================
// SHELL
// =============================================================================

// Shell is the interactive gemchat REPL.
type Shell struct {
	session *session.Session

	// mu guards client and summarizer: the config watcher swaps them
	// from its own goroutine while the REPL and detached title
	// goroutines read them.
	mu         sync.Mutex
	client     *gemini.Client
	summarizer *title.Summarizer

	line        *liner.State
	historyFile string
	out         io.Writer
}

// NewShell wires a shell over the session. The gemini client is built
// from the session's configuration.
func NewShell(sess *session.Session) *Shell {
	cfg := sess.Config()
	client := newClient(cfg)

	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	sh := &Shell{
		session:     sess,
		client:      client,
		summarizer:  title.NewSummarizer(client, sess.Store, cfg.API.Model, cfg.UI.Lang),
		line:        line,
		historyFile: filepath.Join(configDir, "history"),
		out:         os.Stdout,
	}
	sh.loadHistory()
	return sh
}

func newClient(cfg *config.Config) *gemini.Client {
	return gemini.NewClient(gemini.ClientConfig{
		APIKey:            cfg.API.Key,
		BaseURL:           cfg.API.BaseURL,
		Password:          cfg.API.ProxyPassword,
		MaxRetries:        cfg.API.MaxRetries,
		RequestsPerMinute: cfg.API.RequestsPerMinute,
	})
}

// ReloadConfig swaps in a fresh configuration, rebuilding the client
// and summarizer. Called by the config watcher, so the new state is
// built outside the lock and assigned in one critical section.
func (sh *Shell) ReloadConfig(cfg *config.Config) {
	sh.session.SetConfig(cfg)
	client := newClient(cfg)
	summarizer := title.NewSummarizer(client, sh.session.Store, cfg.API.Model, cfg.UI.Lang)

	sh.mu.Lock()
	sh.client = client
	sh.summarizer = summarizer
	sh.mu.Unlock()

	fmt.Fprintln(sh.out, DimStyle.Render("configuration reloaded"))
}

// generators returns the current client and summarizer pair under the
// lock. Callers hold the returned values for the whole operation, so a
// reload mid-stream finishes against the old client.
func (sh *Shell) generators() (*gemini.Client, *title.Summarizer) {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return sh.client, sh.summarizer
}

func (sh *Shell) loadHistory() {
	if f, err := os.Open(sh.historyFile); err == nil {
		sh.line.ReadHistory(f)
		f.Close()
	}
}

func (sh *Shell) saveHistory() {
	f, err := os.Create(sh.historyFile)
	if err != nil {
		return
	}
	defer f.Close()
	sh.line.WriteHistory(f)
}

// Close releases the line editor and writes history.
func (sh *Shell) Close() {
	sh.saveHistory()
	sh.line.Close()
}

// =============================================================================
// MAIN LOOP
// =============================================================================

// Run drives the REPL until /quit or EOF.
func (sh *Shell) Run(ctx context.Context) error {
	fmt.Fprintln(sh.out, TitleStyle.Render("gemchat"))
	fmt.Fprintln(sh.out, DimStyle.Render("type /help for commands, Ctrl+D to exit"))

	for {
		input, err := sh.line.Prompt(sh.prompt())
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Fprintln(sh.out)
				return nil
			}
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		sh.line.AppendHistory(input)

		if strings.HasPrefix(input, "/") {
			quit := sh.dispatch(ctx, input)
			if quit {
				return nil
			}
		} else {
			sh.sendMessage(ctx, input)
		}

		if sh.session.Config().Storage.Autosave {
			if err := sh.session.SaveIfDirty(); err != nil {
				fmt.Fprintln(sh.out, WarningStyle.Render("autosave failed: "+err.Error()))
			}
		}
	}
}

// prompt shows the current conversation's display title.
func (sh *Shell) prompt() string {
	conv := sh.session.Store.Current()
	label := conv.DisplayTitle(title.DefaultLabel(sh.session.Config().UI.Lang))
	return PromptStyle.Render(label+" > ") + " "
}

// dispatch routes a slash command. Returns true on /quit.
func (sh *Shell) dispatch(ctx context.Context, input string) bool {
	cmd, args := splitCommand(input)

	switch cmd {
	case "/quit", "/q", "/exit":
		return true
	case "/help", "/h":
		sh.cmdHelp()
	case "/new", "/n":
		sh.cmdNew()
	case "/open", "/o":
		sh.cmdOpen(args)
	case "/list", "/ls", "/l":
		sh.cmdList()
	case "/pin":
		sh.cmdPin(args)
	case "/unpin":
		sh.cmdUnpin(args)
	case "/copy", "/cp":
		sh.cmdCopy(args)
	case "/rename", "/mv":
		sh.cmdRename(args)
	case "/delete", "/rm":
		sh.cmdDelete(args)
	case "/search", "/find":
		sh.cmdSearch(args)
	case "/title", "/t":
		sh.cmdTitle(ctx, args)
	case "/models":
		sh.cmdModels(ctx)
	case "/settings", "/set":
		sh.cmdSettings(args)
	case "/system", "/sys":
		sh.cmdSystem(args)
	case "/layout":
		sh.cmdLayout(args)
	case "/export":
		sh.cmdExport(args)
	case "/save":
		if err := sh.session.Save(); err != nil {
			sh.printError(err)
		} else {
			fmt.Fprintln(sh.out, SuccessStyle.Render("saved"))
		}
	default:
		fmt.Fprintln(sh.out, WarningStyle.Render("unknown command "+cmd+" (try /help)"))
	}
	return false
}

// splitCommand separates the command word from its argument rest.
func splitCommand(input string) (cmd, args string) {
	parts := strings.SplitN(input, " ", 2)
	cmd = strings.ToLower(parts[0])
	if len(parts) == 2 {
		args = strings.TrimSpace(parts[1])
	}
	return cmd, args
}

func (sh *Shell) printError(err error) {
	fmt.Fprintln(sh.out, ErrorStyle.Render("error: ")+err.Error())
}

func (sh *Shell) cmdHelp() {
	help := [][2]string{
		{"/new", "create a conversation and switch to it"},
		{"/open ID", "switch to a conversation"},
		{"/list", "list conversations (pinned first)"},
		{"/pin ID", "pin a conversation"},
		{"/unpin ID", "unpin a conversation"},
		{"/copy ID", "duplicate a conversation"},
		{"/rename ID TITLE", "set a conversation title"},
		{"/delete ID", "remove a conversation"},
		{"/search KEYWORD", "regex search (case-insensitive)"},
		{"/title [ID]", "generate a title from content"},
		{"/models", "list available models"},
		{"/settings [KEY [VALUE]]", "show or edit configuration"},
		{"/system TEXT", "set the system instruction"},
		{"/layout chat|doc", "set the display mode"},
		{"/export [ID]", "render a conversation as markdown"},
		{"/save", "persist state now"},
		{"/quit", "exit"},
	}
	for _, h := range help {
		fmt.Fprintf(sh.out, "  %-26s %s\n", h[0], DimStyle.Render(h[1]))
	}
}

// =============================================================================
// CHAT
// =============================================================================

// sendMessage appends the user's message, streams the model response
// and records it, then kicks off title generation for fresh
// conversations.
func (sh *Shell) sendMessage(ctx context.Context, text string) {
	store := sh.session.Store
	cfg := sh.session.Config()
	client, summarizer := sh.generators()

	store.AppendMessage(newUserMessage(text))

	req := buildChatRequest(store.Current(), cfg)
	acc := gemini.NewStreamAccumulator()

	err := client.StreamGenerateContent(ctx, cfg.API.Model, req, func(chunk gemini.StreamChunk) {
		if chunk.Text != "" {
			fmt.Fprint(sh.out, ModelStyle.Render(chunk.Text))
		}
		acc.Add(chunk)
	})
	fmt.Fprintln(sh.out)
	if err != nil {
		sh.printError(err)
		return
	}

	if reply := acc.Content(); reply != "" {
		store.AppendMessage(newModelMessage(reply))
	}

	// Fresh conversations get a generated title once there is content.
	// The id is captured now; a switch while the stream runs keeps the
	// title writes on this conversation.
	conv := store.Current()
	if conv.Title == "" && conv.MessageCount() >= 2 {
		id := store.CurrentID()
		go func() {
			if _, err := summarizer.Summarize(context.Background(), id); err != nil &&
				!errors.Is(err, title.ErrNothingToSummarize) {
				fmt.Fprintln(sh.out, DimStyle.Render("title generation failed: "+err.Error()))
			}
		}()
	}
}
