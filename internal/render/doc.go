// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render turns chat events into styled terminal lines.
//
// Every line shares the shape
//
//	timestamp|field| body
//
// where the field column carries the tripcode for user messages and a
// fixed tag (CLIENT, SERVER, !WARN!) for everything else. Colors,
// timestamp layout, and markdown handling come from the active
// configuration.
package render
