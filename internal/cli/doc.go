// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli holds the interactive front end: command-line argument
// parsing, terminal capability detection, and the liner-based input
// loop that feeds the command dispatcher.
package cli
