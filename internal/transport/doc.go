// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transport dials the chat websocket and wraps the connection
// with write serialization. Connections can be routed through a SOCKS
// or HTTP proxy given as TYPE:HOST:PORT.
package transport
