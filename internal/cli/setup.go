// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// setup.go - First-run wizard for gemchat.
//
// Walks through API key entry (masked), optional proxy configuration
// and model choice, then writes the config file.

package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/jeranaias/gemchat/internal/config"
)

// RunSetup runs the interactive first-run wizard and saves the
// resulting configuration.
func RunSetup() error {
	fmt.Println(TitleStyle.Render("gemchat setup"))
	fmt.Println(DimStyle.Render("settings are written to ~/.gemchat/config.toml"))
	fmt.Println()

	cfg, err := config.Load()
	if err != nil {
		cfg = config.Default()
	}

	key, err := promptSecret("Gemini API key (input hidden): ")
	if err != nil {
		return err
	}
	if key != "" {
		cfg.API.Key = key
	}

	reader := bufio.NewReader(os.Stdin)

	base := promptLine(reader, "API proxy URL (empty for direct access): ")
	if base != "" {
		cfg.API.BaseURL = base
		pw, err := promptSecret("proxy access password (input hidden, empty for none): ")
		if err != nil {
			return err
		}
		cfg.API.ProxyPassword = pw
	}

	if m := promptLine(reader, fmt.Sprintf("default model [%s]: ", cfg.API.Model)); m != "" {
		cfg.API.Model = m
	}
	if lang := promptLine(reader, fmt.Sprintf("UI language [%s]: ", cfg.UI.Lang)); lang != "" {
		cfg.UI.Lang = lang
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Println(SuccessStyle.Render("setup complete"))
	return nil
}

// promptSecret reads a line without echoing it. Secrets typed at setup
// must not land in terminal scrollback.
func promptSecret(prompt string) (string, error) {
	fmt.Print(prompt)
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		// Piped input (tests, scripts): read plainly.
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(line), nil
	}

	secret, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read secret: %w", err)
	}
	return strings.TrimSpace(string(secret)), nil
}

func promptLine(reader *bufio.Reader, prompt string) string {
	fmt.Print(prompt)
	line, err := reader.ReadString('\n')
	if err != nil {
		return ""
	}
	return strings.TrimSpace(line)
}
