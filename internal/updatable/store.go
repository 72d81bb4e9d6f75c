// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package updatable tracks in-flight chat messages the server may still
// be streaming into.
//
// A message becomes updatable when its chat frame carries a customId;
// from then on updateMessage frames keyed by (userid, customId) mutate
// the accumulated text until a complete arrives or the entry idles past
// the expiry window. Entries are swept by a periodic background pass,
// not per-message timers, so high message volume does not balloon the
// timer count.
package updatable

import (
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/driftchat/internal/protocol"
)

// Expiry is how long an entry may idle before the sweep drops it. The
// official web client allows six minutes; we are stricter.
const Expiry = 3 * time.Minute

// =============================================================================
// KEYS AND MESSAGES
// =============================================================================

// Key identifies one live updatable message. The pair is used directly
// rather than a hashed scalar, which removes any cross-message collision
// risk.
type Key struct {
	UserID   int64
	CustomID string
}

// Meta is the display metadata captured when the message begins; it is
// frozen for the lifetime of the entry so mutations render consistently.
type Meta struct {
	Trip string
	Nick string
	Type protocol.UserType
	Self bool
}

// Message is a snapshot of one updatable entry.
type Message struct {
	Key       Key
	Text      string
	Sent      time.Time
	Meta      Meta
	DisplayID string
}

// =============================================================================
// STORE
// =============================================================================

// Store holds the live updatable messages. One mutex covers both the
// receive goroutine (begin/mutate/complete) and the cleanup goroutine
// (sweep), so a sweep can never expire an entry mid-mutation.
type Store struct {
	mu       sync.Mutex
	messages map[Key]*Message
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{messages: make(map[Key]*Message)}
}

// Begin opens an updatable entry and returns its short display id. A
// second begin on the same key supersedes the prior live entry rather
// than duplicating it.
func (s *Store) Begin(key Key, text string, meta Meta) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := &Message{
		Key:       key,
		Text:      text,
		Sent:      time.Now(),
		Meta:      meta,
		DisplayID: displayID(),
	}
	s.messages[key] = msg
	return msg.DisplayID
}

// Mutate applies an overwrite/append/prepend to a live entry. A mutate
// on an absent key is silently ignored: the entry may have completed or
// expired already, which is a race, not an error.
func (s *Store) Mutate(key Key, mode protocol.UpdateMode, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messages[key]
	if !ok {
		return
	}

	switch mode {
	case protocol.ModeOverwrite:
		msg.Text = text
	case protocol.ModeAppend:
		msg.Text += text
	case protocol.ModePrepend:
		msg.Text = text + msg.Text
	}
}

// Complete removes a live entry and returns its final snapshot for one
// last render. Completing an absent key returns ok=false.
func (s *Store) Complete(key Key) (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messages[key]
	if !ok {
		return Message{}, false
	}
	delete(s.messages, key)
	return *msg, true
}

// Sweep removes every entry idle longer than Expiry and returns their
// snapshots for expiry rendering. Called periodically from the cleanup
// goroutine; this is the only place expiry-driven rendering originates.
func (s *Store) Sweep(now time.Time) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []Message
	for key, msg := range s.messages {
		if now.Sub(msg.Sent) > Expiry {
			expired = append(expired, *msg)
			delete(s.messages, key)
		}
	}
	return expired
}

// Len returns the number of live entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// displayID builds the short id shown to the user for manual reference:
// five digits, zero excluded so the id never reads as octal or blank.
func displayID() string {
	const digits = "123456789"
	var b strings.Builder
	for i := 0; i < 5; i++ {
		b.WriteByte(digits[rand.IntN(len(digits))])
	}
	return b.String()
}
