// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session drives the chat connection lifecycle.
//
// The engine owns the websocket, the user roster, and the updatable
// message store. It runs one receive goroutine per connection plus two
// process-lifetime tickers: a keepalive ping and a sweep that expires
// idle updatable messages. A dropped connection arms a one-shot
// reconnect timer; a manual reconnect supersedes it.
package session
