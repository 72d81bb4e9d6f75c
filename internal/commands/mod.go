// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import "strings"

// =============================================================================
// MODERATOR COMMANDS
// =============================================================================

// Moderator commands map straight onto server frames. Multi-target
// commands send one frame per target so a single bad nick does not
// spoil the batch; /kickasone sends a list so everyone lands in the
// same room.

// stripAt removes a leading @ from each target.
func stripAt(targets []string) []string {
	out := make([]string, 0, len(targets))
	for _, t := range targets {
		out = append(out, strings.TrimPrefix(t, "@"))
	}
	return out
}

// perTarget registers a command that sends one {cmd, field} frame for
// each whitespace-separated target.
func perTarget(cmd, field string) *Command {
	name := "/" + cmd
	return &Command{
		Name:    name,
		Usage:   name + " <" + field + "...>",
		ModOnly: true,
		Handler: func(ctx *Context, args []string, raw string) Result {
			if len(args) == 0 {
				ctx.Engine.ClientLine("Usage: " + name + " <" + field + "...>")
				return ResultHandled
			}
			for _, target := range stripAt(args) {
				ctx.Engine.SendFrame(map[string]any{"cmd": cmd, field: target})
			}
			return ResultHandled
		},
	}
}

// bare registers an argument-less moderator frame.
func bare(cmd string) *Command {
	name := "/" + cmd
	return &Command{
		Name:    name,
		ModOnly: true,
		Handler: func(ctx *Context, args []string, raw string) Result {
			ctx.Engine.SendFrame(map[string]any{"cmd": cmd})
			return ResultHandled
		},
	}
}

func (r *Registry) registerModCommands() {
	r.Register(perTarget("ban", "nick"))
	r.Register(perTarget("unban", "hash"))
	r.Register(bare("unbanall"))
	r.Register(perTarget("dumb", "nick"))
	r.Register(perTarget("speak", "nick"))
	r.Register(perTarget("kick", "nick"))
	r.Register(perTarget("overflow", "nick"))
	r.Register(perTarget("authtrip", "trip"))
	r.Register(perTarget("deauthtrip", "trip"))
	r.Register(perTarget("uwuify", "nick"))
	r.Register(bare("enablecaptcha"))
	r.Register(bare("disablecaptcha"))
	r.Register(bare("lockroom"))
	r.Register(bare("unlockroom"))
	r.Register(bare("anticmd"))

	r.Register(&Command{
		Name:    "/kickasone",
		Usage:   "/kickasone <nick...>",
		ModOnly: true,
		Handler: func(ctx *Context, args []string, raw string) Result {
			if len(args) == 0 {
				ctx.Engine.ClientLine("Usage: /kickasone <nick...>")
				return ResultHandled
			}
			ctx.Engine.SendFrame(map[string]any{"cmd": "kick", "nick": stripAt(args)})
			return ResultHandled
		},
	})

	r.Register(&Command{
		Name:    "/moveuser",
		Usage:   "/moveuser <nick> <channel>",
		ModOnly: true,
		Handler: func(ctx *Context, args []string, raw string) Result {
			if len(args) != 2 {
				ctx.Engine.ClientLine("Usage: /moveuser <nick> <channel>")
				return ResultHandled
			}
			ctx.Engine.SendFrame(map[string]any{
				"cmd": "moveuser", "nick": strings.TrimPrefix(args[0], "@"), "channel": args[1],
			})
			return ResultHandled
		},
	})

	r.Register(&Command{
		Name:    "/forcecolor",
		Usage:   "/forcecolor <nick> <color>",
		ModOnly: true,
		Handler: func(ctx *Context, args []string, raw string) Result {
			if len(args) != 2 {
				ctx.Engine.ClientLine("Usage: /forcecolor <nick> <color>")
				return ResultHandled
			}
			ctx.Engine.SendFrame(map[string]any{
				"cmd": "forcecolor", "nick": strings.TrimPrefix(args[0], "@"), "color": args[1],
			})
			return ResultHandled
		},
	})
}
