// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// terminal.go - Terminal capability detection.

package cli

import (
	"os"
	"sync"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// =============================================================================
// TTY DETECTION
// =============================================================================

// IsTTY reports whether stdin is an interactive terminal.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// IsStdoutTTY reports whether stdout is an interactive terminal.
func IsStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// =============================================================================
// COLOR SUPPORT
// =============================================================================

var (
	colorOnce    sync.Once
	colorEnabled bool
)

// ColorsEnabled reports whether color output should be used. NO_COLOR
// disables it, FORCE_COLOR enables it, otherwise it follows whether
// stdout is a terminal. Latched on first call.
func ColorsEnabled() bool {
	colorOnce.Do(func() {
		colorEnabled = colorsEnabled(os.Getenv, IsStdoutTTY())
	})
	return colorEnabled
}

// colorsEnabled is the decision core, split out so tests can drive the
// env and TTY state directly.
func colorsEnabled(getenv func(string) string, stdoutTTY bool) bool {
	if getenv("NO_COLOR") != "" {
		return false
	}
	if getenv("FORCE_COLOR") != "" {
		return true
	}
	return stdoutTTY
}

// ColorProfile returns the termenv color profile to render with.
func ColorProfile() termenv.Profile {
	if !ColorsEnabled() {
		return termenv.Ascii
	}
	return termenv.ColorProfile()
}
