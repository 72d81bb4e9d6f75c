// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package commands provides the slash command system for the chat
// input loop.
//
// Input is first expanded against the user's aliases, then parsed.
// Registered client commands run locally; anything else, slash-prefixed
// or not, is sent to the server as chat text, which is how server-side
// commands like /whisper and /me travel. Moderator commands are
// registered only when the client runs in mod mode.
package commands
