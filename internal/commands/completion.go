// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"sort"
	"strings"
)

// =============================================================================
// COMPLETION
// =============================================================================

// serverCommands travel as chat text but still deserve completion.
var serverCommands = []string{"/whisper", "/reply", "/me", "/stats"}

// Completions builds the full suggestion list: every usable command
// plus @nick entries, bare and behind the commands that take a user
// target. Rebuilt on every completion request so roster changes and a
// live is_mod flip are picked up immediately.
func Completions(registry *Registry, nicks []string, isMod bool) []string {
	out := make([]string, 0, len(nicks)*4)
	for _, cmd := range registry.All() {
		if cmd.ModOnly && !isMod {
			continue
		}
		out = append(out, cmd.Name)
	}
	out = append(out, serverCommands...)

	for _, prefix := range []string{"", "/whisper ", "/profile ", "/ignore "} {
		for _, nick := range nicks {
			out = append(out, prefix+"@"+nick)
		}
	}
	sort.Strings(out)
	return out
}

// Complete returns the candidates matching a line. Aggressiveness
// levels follow suggest_aggr: 0 disables suggestions, 1 completes only
// slash commands and @mentions, 2 completes any prefix, 3 matches
// substrings anywhere in the candidate.
func Complete(candidates []string, line string, aggr int) []string {
	if aggr == 0 || line == "" {
		return nil
	}
	if aggr == 1 && !strings.HasPrefix(line, "/") && !strings.HasPrefix(line, "@") {
		return nil
	}

	match := func(cand string) bool { return strings.HasPrefix(cand, line) }
	if aggr >= 3 {
		lower := strings.ToLower(line)
		match = func(cand string) bool { return strings.Contains(strings.ToLower(cand), lower) }
	}

	var matches []string
	for _, cand := range candidates {
		if match(cand) && cand != line {
			matches = append(matches, cand)
		}
	}
	return matches
}
