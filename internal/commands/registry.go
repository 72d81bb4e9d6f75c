// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"sort"

	"github.com/jeranaias/driftchat/internal/config"
	"github.com/jeranaias/driftchat/internal/output"
	"github.com/jeranaias/driftchat/internal/render"
	"github.com/jeranaias/driftchat/internal/session"
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// Result tells the input loop what to do after a dispatch.
type Result int

const (
	// ResultHandled means the input was consumed.
	ResultHandled Result = iota

	// ResultQuit asks the input loop to exit. Handlers never call
	// os.Exit themselves.
	ResultQuit
)

// Command is one client-side slash command.
type Command struct {
	// Name is the primary command name (e.g., "/help")
	Name string

	// Aliases are alternative names (e.g., "/w" for "/whisper")
	Aliases []string

	// Description is shown in help
	Description string

	// Usage shows argument syntax (e.g., "/nick <newnick>")
	Usage string

	// ModOnly commands dispatch only while is_mod is set
	ModOnly bool

	// Handler executes the command. args are the tokenized arguments,
	// raw is the untokenized argument string.
	Handler func(ctx *Context, args []string, raw string) Result
}

// Context carries everything a handler may touch.
type Context struct {
	Engine *session.Engine
	Store  *config.Store
	Sink   *output.Sink

	// Formatter returns the current line formatter; it is a function
	// because config changes swap the formatter out.
	Formatter func() *render.Formatter

	// registry backs the /help listing. Set by NewDispatcher.
	registry *Registry
}

// =============================================================================
// COMMAND REGISTRY
// =============================================================================

// Registry holds the registered client commands.
type Registry struct {
	commands map[string]*Command
	aliases  map[string]*Command
}

// NewRegistry creates a registry with every command, moderator ones
// included. Whether a ModOnly command is usable is decided at dispatch
// time from the live is_mod setting, so /configset can grant and
// revoke moderator commands mid-session.
func NewRegistry() *Registry {
	r := &Registry{
		commands: make(map[string]*Command),
		aliases:  make(map[string]*Command),
	}
	r.registerBuiltins()
	r.registerModCommands()
	return r
}

// Register adds a command to the registry.
func (r *Registry) Register(cmd *Command) {
	r.commands[cmd.Name] = cmd
	for _, alias := range cmd.Aliases {
		r.aliases[alias] = cmd
	}
}

// Get retrieves a command by name or alias.
func (r *Registry) Get(name string) *Command {
	if cmd, ok := r.commands[name]; ok {
		return cmd
	}
	if cmd, ok := r.aliases[name]; ok {
		return cmd
	}
	return nil
}

// Names returns the primary command names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns the registered commands sorted by name.
func (r *Registry) All() []*Command {
	cmds := make([]*Command, 0, len(r.commands))
	for _, name := range r.Names() {
		cmds = append(cmds, r.commands[name])
	}
	return cmds
}
