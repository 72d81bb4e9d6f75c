// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// input.go - The liner-based read loop that feeds the dispatcher.

package cli

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/jeranaias/driftchat/internal/commands"
	"github.com/jeranaias/driftchat/internal/config"
	"github.com/jeranaias/driftchat/internal/output"
	"github.com/jeranaias/driftchat/internal/session"
)

// historyFile is the liner history filename inside the config dir.
const historyFile = "history"

// =============================================================================
// INPUT LOOP
// =============================================================================

// Loop owns the interactive prompt. It reads lines with liner, offers
// command and nickname completion, and hands every line to the
// dispatcher until the user quits.
type Loop struct {
	store      *config.Store
	sink       *output.Sink
	engine     *session.Engine
	dispatcher *commands.Dispatcher
}

// NewLoop wires an input loop over the running session.
func NewLoop(store *config.Store, sink *output.Sink, engine *session.Engine, dispatcher *commands.Dispatcher) *Loop {
	return &Loop{
		store:      store,
		sink:       sink,
		engine:     engine,
		dispatcher: dispatcher,
	}
}

// Prompt resolves the prompt string for the current config. The
// "default" sentinel maps to a unicode chevron, or a plain bracket
// when unicode is disabled.
func Prompt(cfg config.Config) string {
	if cfg.PromptString == "default" {
		if cfg.NoUnicode {
			return "> "
		}
		return "❯ "
	}
	return cfg.PromptString
}

// Run blocks reading input until the user quits or input is closed.
func (l *Loop) Run() error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(l.complete)

	historyPath := l.loadHistory(line)
	defer l.saveHistory(line, historyPath)

	aborted := false
	for {
		input, err := line.Prompt(Prompt(l.store.Snapshot()))
		switch {
		case errors.Is(err, liner.ErrPromptAborted):
			if aborted {
				return nil
			}
			aborted = true
			l.sink.EmitTransient("Press Ctrl+C again to exit")
			continue
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			return err
		}
		aborted = false

		if strings.TrimSpace(input) != "" {
			line.AppendHistory(input)
		}
		if l.dispatcher.Handle(input) == commands.ResultQuit {
			return nil
		}
	}
}

// complete builds completion candidates for the current line, filtered
// by the configured aggressiveness.
func (l *Loop) complete(line string) []string {
	cfg := l.store.Snapshot()
	candidates := commands.Completions(l.dispatcher.Registry(), l.engine.Roster().Nicks(), cfg.IsMod)
	return commands.Complete(candidates, line, cfg.SuggestAggr)
}

// =============================================================================
// HISTORY PERSISTENCE
// =============================================================================

// loadHistory reads prior input history from the config dir. A missing
// file is fine; history starts empty.
func (l *Loop) loadHistory(line *liner.State) string {
	dir, err := config.Dir()
	if err != nil {
		return ""
	}
	path := filepath.Join(dir, historyFile)
	if f, err := os.Open(path); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}
	return path
}

// saveHistory persists input history, readable only by the owner since
// it may contain whispers and passwords.
func (l *Loop) saveHistory(line *liner.State, path string) {
	if path == "" {
		return
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = line.WriteHistory(f)
}
