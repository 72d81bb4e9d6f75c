// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the optional on-disk message archive.
//
// Every remembered output line can be appended to a SQLite database so
// past sessions stay searchable. Writes go through a buffered channel
// and a single background writer, so archiving never blocks the output
// path.
package storage
