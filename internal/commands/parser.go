// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import "strings"

// =============================================================================
// ALIAS EXPANSION
// =============================================================================

// ExpandAliases replaces `$name` words with their configured values.
// Expansion is word-wise; a `$name` embedded inside a larger word is
// left alone.
func ExpandAliases(input string, aliases map[string]string) string {
	if len(aliases) == 0 {
		return input
	}
	words := strings.Split(input, " ")
	for i, word := range words {
		if !strings.HasPrefix(word, "$") {
			continue
		}
		if value, ok := aliases[word[1:]]; ok {
			words[i] = value
		}
	}
	return strings.Join(words, " ")
}

// =============================================================================
// PARSE RESULT
// =============================================================================

// ParseResult is the outcome of tokenizing one input line.
type ParseResult struct {
	// IsCommand is true if the input starts with /
	IsCommand bool

	// CommandName is the raw command name (e.g., "/nick")
	CommandName string

	// Args are the tokenized arguments
	Args []string

	// RawArgs is the untokenized argument portion
	RawArgs string

	// RawInput is the input after alias expansion
	RawInput string
}

// Parse tokenizes an input line. Quoted arguments keep their embedded
// spaces.
func Parse(input string) ParseResult {
	input = strings.TrimRight(input, " ")

	result := ParseResult{RawInput: input}
	if !strings.HasPrefix(input, "/") {
		return result
	}
	result.IsCommand = true

	name, rest, _ := strings.Cut(input, " ")
	result.CommandName = name
	result.RawArgs = strings.TrimSpace(rest)
	result.Args = splitCommandLine(result.RawArgs)
	return result
}

// =============================================================================
// TOKENIZING
// =============================================================================

// splitCommandLine splits an argument string into tokens, respecting
// single and double quotes.
func splitCommandLine(input string) []string {
	var tokens []string
	var current strings.Builder
	var inSingleQuote, inDoubleQuote bool

	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}

	for _, char := range input {
		switch {
		case char == '\'' && !inDoubleQuote:
			inSingleQuote = !inSingleQuote
		case char == '"' && !inSingleQuote:
			inDoubleQuote = !inDoubleQuote
		case char == ' ' && !inSingleQuote && !inDoubleQuote:
			flush()
		default:
			current.WriteRune(char)
		}
	}
	flush()
	return tokens
}
