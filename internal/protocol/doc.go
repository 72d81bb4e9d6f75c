// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package protocol implements the wire codec for the chat protocol.
//
// The server speaks JSON objects over websocket text frames, tagged by a
// "cmd" field. Decode maps raw frames onto typed inbound structs; the
// outbound constructors build the handful of frames the client sends.
// Decoding is pure: a malformed frame returns an error and nothing else
// happens.
package protocol
