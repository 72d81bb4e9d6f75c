// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// COLOR RESOLUTION
// =============================================================================

// ansiNames maps the configurable color names to their ANSI palette
// indices.
var ansiNames = map[string]string{
	"black":   "0",
	"red":     "1",
	"green":   "2",
	"yellow":  "3",
	"blue":    "4",
	"magenta": "5",
	"cyan":    "6",
	"white":   "7",
	"grey":    "8",
	"gray":    "8",
}

// resolveColor turns a configured color value into a lipgloss color.
// Accepts ANSI names, #rrggbb hex values, and 256-palette indices.
// Unknown values fall back to the terminal default foreground.
func resolveColor(value string) lipgloss.TerminalColor {
	if idx, ok := ansiNames[strings.ToLower(value)]; ok {
		return lipgloss.Color(idx)
	}
	if strings.HasPrefix(value, "#") {
		return lipgloss.Color(value)
	}
	if _, err := strconv.Atoi(value); err == nil {
		return lipgloss.Color(value)
	}
	return lipgloss.NoColor{}
}
