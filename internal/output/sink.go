// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package output provides the ordered, thread-safe print sink every
// other component writes through.
//
// The receive, heartbeat, cleanup and input goroutines all emit lines;
// one mutex around each write keeps lines atomic on the terminal. The
// sink also keeps the bounded history that /reprint replays after a
// /clear.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// HistorySize is how many rendered lines /reprint can restore.
const HistorySize = 100

// Archiver receives every remembered line. Implementations must not
// block; the sink calls it while holding its lock.
type Archiver interface {
	Append(line string)
}

// Sink prints lines and keeps the reprint history.
type Sink struct {
	mu      sync.Mutex
	w       io.Writer
	history []string
	archive Archiver
}

// NewSink creates a sink writing to w. Pass os.Stdout in production.
func NewSink(w io.Writer) *Sink {
	if w == nil {
		w = os.Stdout
	}
	return &Sink{w: w}
}

// SetArchiver attaches an archive hook for remembered lines.
func (s *Sink) SetArchiver(a Archiver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.archive = a
}

// Emit prints one line and remembers it for /reprint.
func (s *Sink) Emit(line string) {
	s.emit(line, true)
}

// EmitTransient prints one line without remembering it. Used for output
// that would be confusing to replay, like the /clear confirmation.
func (s *Sink) EmitTransient(line string) {
	s.emit(line, false)
}

func (s *Sink) emit(line string, remember bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fmt.Fprintln(s.w, line)

	if !remember {
		return
	}
	s.history = append(s.history, line)
	if len(s.history) > HistorySize {
		s.history = s.history[len(s.history)-HistorySize:]
	}
	if s.archive != nil {
		s.archive.Append(line)
	}
}

// Reprint replays the remembered history as one atomic block.
func (s *Sink) Reprint() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.history) == 0 {
		return
	}
	fmt.Fprintln(s.w, strings.Join(s.history, "\n"))
}

// HistoryLen returns how many lines a reprint would restore.
func (s *Sink) HistoryLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

// History returns a copy of the remembered lines, oldest first.
func (s *Sink) History() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.history))
	copy(out, s.history)
	return out
}
