// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/driftchat/internal/config"
	"github.com/jeranaias/driftchat/internal/protocol"
	"github.com/jeranaias/driftchat/internal/render"
	"github.com/jeranaias/driftchat/internal/session"
)

// =============================================================================
// BUILT-IN COMMANDS
// =============================================================================

func (r *Registry) registerBuiltins() {
	r.Register(&Command{
		Name:        "/help",
		Description: "Show client help, or request server help",
		Usage:       "/help [server|<command>]",
		Handler:     handleHelp,
	})
	r.Register(&Command{
		Name:        "/raw",
		Description: "Send a raw JSON frame to the server",
		Usage:       "/raw <json>",
		Handler:     handleRaw,
	})
	r.Register(&Command{
		Name:        "/list",
		Description: "List users in the channel",
		Handler:     handleList,
	})
	r.Register(&Command{
		Name:        "/profile",
		Description: "Show a user's trip, type, and hash",
		Usage:       "/profile <nick>",
		Handler:     handleProfile,
	})
	r.Register(&Command{
		Name:        "/nick",
		Description: "Change nickname",
		Usage:       "/nick <newnick>",
		Handler:     handleNick,
	})
	r.Register(&Command{
		Name:        "/clear",
		Description: "Clear the terminal",
		Handler:     handleClear,
	})
	r.Register(&Command{
		Name:        "/wlock",
		Description: "Toggle whisper lock (blocks public sends)",
		Handler:     handleWlock,
	})
	r.Register(&Command{
		Name:        "/ignore",
		Description: "Ignore a user by trip and hash",
		Usage:       "/ignore <nick>",
		Handler:     handleIgnore,
	})
	r.Register(&Command{
		Name:        "/unignoreall",
		Description: "Clear all ignore rules",
		Handler:     handleUnignoreAll,
	})
	r.Register(&Command{
		Name:        "/reconnect",
		Description: "Reconnect to the server now",
		Handler:     handleReconnect,
	})
	r.Register(&Command{
		Name:        "/set",
		Description: "Define an input alias",
		Usage:       "/set <alias> <value>",
		Handler:     handleSet,
	})
	r.Register(&Command{
		Name:        "/unset",
		Description: "Remove an input alias",
		Usage:       "/unset <alias>",
		Handler:     handleUnset,
	})
	r.Register(&Command{
		Name:        "/configset",
		Description: "Change a config option for this session",
		Usage:       "/configset <option> <value>",
		Handler:     handleConfigSet,
	})
	r.Register(&Command{
		Name:        "/configdump",
		Description: "Print the active configuration",
		Handler:     handleConfigDump,
	})
	r.Register(&Command{
		Name:        "/save",
		Description: "Write the active configuration to its file",
		Handler:     handleSave,
	})
	r.Register(&Command{
		Name:        "/reprint",
		Description: "Reprint the output history",
		Handler:     handleReprint,
	})
	r.Register(&Command{
		Name:        "/quit",
		Description: "Exit driftchat",
		Handler:     handleQuit,
	})
}

// =============================================================================
// HANDLERS
// =============================================================================

func handleHelp(ctx *Context, args []string, raw string) Result {
	if raw == "" {
		ctx.Sink.Emit(ctx.Formatter().Document(clientHelp(ctx)))
		return ResultHandled
	}
	if raw == "server" {
		ctx.Engine.SendFrame(protocol.NewHelp(""))
		return ResultHandled
	}
	ctx.Engine.SendFrame(protocol.NewHelp(raw))
	return ResultHandled
}

func handleRaw(ctx *Context, args []string, raw string) Result {
	ctx.Engine.SendRaw(raw)
	return ResultHandled
}

func handleList(ctx *Context, args []string, raw string) Result {
	ctx.Engine.ClientLine(fmt.Sprintf("Channel: %s - Users: %s",
		ctx.Engine.Channel(), strings.Join(ctx.Engine.Roster().Nicks(), ", ")))
	return ResultHandled
}

func handleProfile(ctx *Context, args []string, raw string) Result {
	target := strings.TrimPrefix(raw, "@")
	entry, ok := ctx.Engine.Roster().Details(target)
	if !ok {
		ctx.Engine.ClientLine(fmt.Sprintf("No such user: '%s'", target))
		return ResultHandled
	}

	trip := entry.Trip
	if trip == "" {
		trip = "None"
	}
	ignored := "No"
	if ctx.Engine.Roster().IsIgnored(target) {
		ignored = "Yes"
	}
	ctx.Engine.ClientLine(fmt.Sprintf("%s's profile:\nTrip: %s\nType: %s\nHash: %s\nIgnored: %s",
		target, trip, entry.Type, entry.Hash, ignored))
	return ResultHandled
}

func handleNick(ctx *Context, args []string, raw string) Result {
	nick := raw
	if !config.ValidNickname(nick) {
		ctx.Engine.ClientLine("Nickname must consist of up to 24 letters, numbers, and underscores")
		return ResultHandled
	}

	// The local nick changes even while offline so the next join uses
	// it. The server frame is only worth sending when connected.
	if ctx.Engine.State() == session.StateJoined {
		ctx.Engine.SendFrame(protocol.NewChangeNick(nick))
	}
	ctx.Engine.SetNick(nick)
	return ResultHandled
}

func handleClear(ctx *Context, args []string, raw string) Result {
	ctx.Sink.EmitTransient("\033[2J\033[H")
	ctx.Sink.EmitTransient(ctx.Formatter().Client(time.Now(), "Terminal cleared, run `/reprint` to undo"))
	return ResultHandled
}

func handleWlock(ctx *Context, args []string, raw string) Result {
	locked := ctx.Engine.ToggleWhisperLock()
	ctx.Engine.ClientLine(fmt.Sprintf("Toggled whisper lock to %v", locked))
	return ResultHandled
}

func handleIgnore(ctx *Context, args []string, raw string) Result {
	target := strings.TrimPrefix(raw, "@")
	entry, ok := ctx.Engine.Roster().Ignore(target)
	if !ok {
		ctx.Engine.ClientLine(fmt.Sprintf("No such user: '%s'", target))
		return ResultHandled
	}

	persistRules(ctx)

	msg := fmt.Sprintf("Ignoring hash '%s'", entry.Hash)
	if entry.HasTrip() {
		msg = fmt.Sprintf("Ignoring trip '%s' and hash '%s'", entry.Trip, entry.Hash)
	}
	ctx.Engine.ClientLine(msg + ", run `/save` to persist")
	return ResultHandled
}

func handleUnignoreAll(ctx *Context, args []string, raw string) Result {
	ctx.Engine.Roster().UnignoreAll()
	persistRules(ctx)
	ctx.Engine.ClientLine("Unignored all trips/hashes, run `/save` to persist")
	return ResultHandled
}

// persistRules copies the roster's live ignore rules into the config so
// /save writes them out.
func persistRules(ctx *Context) {
	rules := ctx.Engine.Roster().Rules()
	ctx.Store.Update(func(c *config.Config) {
		c.Ignored = rules
	})
}

func handleReconnect(ctx *Context, args []string, raw string) Result {
	ctx.Engine.Reconnect()
	return ResultHandled
}

func handleSet(ctx *Context, args []string, raw string) Result {
	if len(args) < 2 {
		ctx.Engine.ClientLine("Alias/Value cannot be empty")
		return ResultHandled
	}
	name, value := args[0], strings.Join(args[1:], " ")
	ctx.Store.Update(func(c *config.Config) {
		c.Aliases[name] = value
	})
	ctx.Engine.ClientLine(fmt.Sprintf("Set alias '%s' = '%s'", name, value))
	return ResultHandled
}

func handleUnset(ctx *Context, args []string, raw string) Result {
	if raw == "" {
		ctx.Engine.ClientLine("Alias cannot be empty")
		return ResultHandled
	}

	found := false
	ctx.Store.Update(func(c *config.Config) {
		if _, ok := c.Aliases[raw]; ok {
			delete(c.Aliases, raw)
			found = true
		}
	})
	if !found {
		ctx.Engine.ClientLine(fmt.Sprintf("Alias '%s' isn't defined", raw))
		return ResultHandled
	}
	ctx.Engine.ClientLine(fmt.Sprintf("Unset alias '%s'", raw))
	return ResultHandled
}

func handleConfigSet(ctx *Context, args []string, raw string) Result {
	if len(args) < 2 {
		ctx.Engine.ClientLine("Usage: /configset <option> <value>")
		return ResultHandled
	}
	option, value := args[0], strings.Join(args[1:], " ")
	if err := ctx.Store.Set(option, value); err != nil {
		ctx.Engine.ClientLine(fmt.Sprintf("Error setting option '%s': %v\nAvailable options: %s",
			option, err, strings.Join(config.OptionNames(), ", ")))
		return ResultHandled
	}

	ctx.Engine.SetFormatter(render.NewFormatter(ctx.Store.Snapshot()))
	ctx.Engine.ClientLine(fmt.Sprintf("Set option '%s' to '%s'", option, value))
	return ResultHandled
}

func handleConfigDump(ctx *Context, args []string, raw string) Result {
	ctx.Engine.ClientLine("Active configuration:\n" + ctx.Store.Dump())
	return ResultHandled
}

func handleSave(ctx *Context, args []string, raw string) Result {
	if err := ctx.Store.Save(); err != nil {
		ctx.Engine.ClientLine(fmt.Sprintf("Error saving config: %v", err))
		return ResultHandled
	}
	ctx.Engine.ClientLine(fmt.Sprintf("Config saved to %s", ctx.Store.Path()))
	return ResultHandled
}

func handleReprint(ctx *Context, args []string, raw string) Result {
	ctx.Sink.EmitTransient(ctx.Formatter().Client(time.Now(),
		fmt.Sprintf("Re-printing %d messages...", ctx.Sink.HistoryLen())))
	ctx.Sink.Reprint()
	return ResultHandled
}

func handleQuit(ctx *Context, args []string, raw string) Result {
	return ResultQuit
}

// =============================================================================
// HELP TEXT
// =============================================================================

// clientHelp builds the markdown help document from the live registry.
func clientHelp(ctx *Context) string {
	var sb strings.Builder
	sb.WriteString("# driftchat\n\n")
	sb.WriteString("Plain messages are sent to the channel. Server-side commands\n")
	sb.WriteString("(`/whisper`, `/reply`, `/me`, `/stats`) travel as chat text.\n")
	sb.WriteString("Use `/help server` for the server's own help.\n\n")
	sb.WriteString("## Client commands\n\n")
	isMod := ctx.Store.Snapshot().IsMod
	for _, cmd := range ctx.registry.All() {
		if cmd.ModOnly && !isMod {
			continue
		}
		usage := cmd.Usage
		if usage == "" {
			usage = cmd.Name
		}
		fmt.Fprintf(&sb, "- `%s` - %s\n", usage, cmd.Description)
	}
	return sb.String()
}
