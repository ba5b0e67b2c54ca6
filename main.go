// gemchat - a terminal chat client for the Gemini API.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jeranaias/gemchat/internal/cli"
	"github.com/jeranaias/gemchat/internal/config"
	"github.com/jeranaias/gemchat/internal/session"
)

// Version information (set at build time)
var (
	Version   = "0.3.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "setup", "init":
			if err := cli.RunSetup(); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		case "version", "--version", "-v":
			fmt.Printf("gemchat %s (%s, %s)\n", Version, GitCommit, BuildDate)
			return
		case "help", "--help", "-h":
			printUsage()
			return
		default:
			fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
			printUsage()
			os.Exit(1)
		}
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	sess, err := session.Open(cfg)
	if err != nil {
		return err
	}
	defer sess.Close()

	shell := cli.NewShell(sess)
	defer shell.Close()

	// Reload configuration when the file changes on disk. Watch setup
	// failure is not fatal; editing then requires a restart.
	if path, err := config.ConfigPathTOML(); err == nil {
		if watcher, werr := config.NewWatcher(path, shell.ReloadConfig); werr == nil {
			defer watcher.Close()
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ctrl+C during generation cancels the stream; the session close
	// still flushes state.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	return shell.Run(ctx)
}

func printUsage() {
	fmt.Println(`gemchat - terminal chat client for the Gemini API

Usage:
  gemchat              Start the interactive shell
  gemchat setup        Run the first-run configuration wizard
  gemchat version      Print version information

Configuration lives in ~/.gemchat/config.toml (GEMCHAT_API_KEY and
friends override it). Type /help inside the shell for commands.`)
}
