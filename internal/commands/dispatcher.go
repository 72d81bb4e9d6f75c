// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import "strings"

// =============================================================================
// DISPATCHER
// =============================================================================

// whisperCommands are the inputs still allowed while whisper lock is
// active.
var whisperCommands = map[string]bool{
	"/whisper": true,
	"/w":       true,
	"/reply":   true,
	"/r":       true,
}

// Dispatcher routes input lines to command handlers or the chat send
// path.
type Dispatcher struct {
	registry *Registry
	ctx      *Context
}

// NewDispatcher wires a dispatcher for the given context.
func NewDispatcher(ctx *Context) *Dispatcher {
	d := &Dispatcher{
		registry: NewRegistry(),
		ctx:      ctx,
	}
	ctx.registry = d.registry
	return d
}

// Registry exposes the command set, for completion building.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Handle processes one input line: expands aliases, runs a matching
// client command, or sends the input to the server as chat text.
func (d *Dispatcher) Handle(input string) Result {
	if strings.TrimSpace(input) == "" {
		return ResultHandled
	}

	input = ExpandAliases(input, d.ctx.Store.Snapshot().Aliases)
	parsed := Parse(input)

	if parsed.IsCommand {
		if cmd := d.registry.Get(parsed.CommandName); cmd != nil {
			// ModOnly commands are gated on the live setting, not the
			// startup value. Without is_mod they fall through to the
			// chat path like any unrecognized slash command.
			if !cmd.ModOnly || d.ctx.Store.Snapshot().IsMod {
				return cmd.Handler(d.ctx, parsed.Args, parsed.RawArgs)
			}
		}
	}

	// Everything else travels as chat text; server-side commands like
	// /whisper and /me are parsed by the server.
	if d.ctx.Engine.WhisperLock() {
		first, _, _ := strings.Cut(parsed.RawInput, " ")
		if !whisperCommands[first] || strings.HasPrefix(input, " ") {
			d.ctx.Engine.ClientLine("Whisper lock active, toggle it off to send messages")
			return ResultHandled
		}
	}

	d.ctx.Engine.SendChat(parsed.RawInput)
	return ResultHandled
}
