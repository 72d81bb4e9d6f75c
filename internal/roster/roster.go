// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package roster tracks the users currently online and the ignore rules
// applied to them.
//
// The receive goroutine is the only writer during normal operation, but
// the input goroutine reads roster state for /list, /profile and
// completion, so every operation takes the internal lock. Ignore rules
// match on trip or hash, never nickname: a user who leaves and rejoins
// under the same identity stays ignored.
package roster

import (
	"sort"
	"sync"

	"github.com/jeranaias/driftchat/internal/protocol"
)

// =============================================================================
// ENTRIES AND RULES
// =============================================================================

// Entry is one online user.
type Entry struct {
	Nick string
	Trip string
	Type protocol.UserType
	Hash string
}

// HasTrip reports whether the user has opted into a trip code.
func (e Entry) HasTrip() bool { return e.Trip != "" }

// FromUserInfo converts a wire user record into an Entry.
func FromUserInfo(u protocol.UserInfo) Entry {
	return Entry{
		Nick: u.Nick,
		Trip: u.Trip,
		Type: protocol.LevelToType(u.Level),
		Hash: u.Hash,
	}
}

// Rules is the persistable form of the ignore rule set.
type Rules struct {
	Trips  []string `toml:"trips" json:"trips"`
	Hashes []string `toml:"hashes" json:"hashes"`
}

// =============================================================================
// ROSTER
// =============================================================================

// Roster holds online users and the derived set of ignored nicknames.
type Roster struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]Entry

	ignoredTrips  map[string]struct{}
	ignoredHashes map[string]struct{}
	ignoredNicks  map[string]struct{}
}

// New creates an empty roster seeded with the given ignore rules.
func New(rules Rules) *Roster {
	r := &Roster{
		entries:       make(map[string]Entry),
		ignoredTrips:  make(map[string]struct{}),
		ignoredHashes: make(map[string]struct{}),
		ignoredNicks:  make(map[string]struct{}),
	}
	for _, trip := range rules.Trips {
		r.ignoredTrips[trip] = struct{}{}
	}
	for _, hash := range rules.Hashes {
		r.ignoredHashes[hash] = struct{}{}
	}
	return r
}

// ApplySnapshot replaces all roster state with the snapshot's entries.
// Prior entries are discarded unconditionally; the snapshot represents a
// fresh join.
func (r *Roster) ApplySnapshot(entries []Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.order = r.order[:0]
	r.entries = make(map[string]Entry, len(entries))
	r.ignoredNicks = make(map[string]struct{})

	for _, e := range entries {
		if _, seen := r.entries[e.Nick]; !seen {
			r.order = append(r.order, e.Nick)
		}
		r.entries[e.Nick] = e
		r.markIfIgnored(e)
	}
}

// Add inserts or overwrites one entry. Adding an already-present
// nickname replaces its metadata; the protocol can double-deliver
// across reconnects.
func (r *Roster) Add(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[e.Nick]; !exists {
		r.order = append(r.order, e.Nick)
	}
	r.entries[e.Nick] = e
	delete(r.ignoredNicks, e.Nick)
	r.markIfIgnored(e)
}

// Remove deletes an entry. Removing an absent nickname is a no-op.
func (r *Roster) Remove(nick string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[nick]; !exists {
		return
	}
	delete(r.entries, nick)
	delete(r.ignoredNicks, nick)
	for i, n := range r.order {
		if n == nick {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Reset clears all entries while keeping the ignore rules. Used when the
// connection drops.
func (r *Roster) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.order = r.order[:0]
	r.entries = make(map[string]Entry)
	r.ignoredNicks = make(map[string]struct{})
}

// Details returns the entry for a nickname.
func (r *Roster) Details(nick string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[nick]
	return e, ok
}

// Online reports whether a nickname is currently present.
func (r *Roster) Online(nick string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[nick]
	return ok
}

// Nicks returns the nicknames in arrival order.
func (r *Roster) Nicks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of online users.
func (r *Roster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// =============================================================================
// IGNORE RULES
// =============================================================================

// IsIgnored reports whether the user behind a nickname is ignored. The
// answer follows the user's current trip/hash, re-evaluated on every
// roster change rather than cached on the entry.
func (r *Roster) IsIgnored(nick string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.ignoredNicks[nick]
	return ok
}

// Ignore adds the trip and hash of an online user to the rule set.
// Returns the affected entry, or ok=false if the nickname is not
// online.
func (r *Roster) Ignore(nick string) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[nick]
	if !ok {
		return Entry{}, false
	}
	if e.HasTrip() {
		r.ignoredTrips[e.Trip] = struct{}{}
	}
	r.ignoredHashes[e.Hash] = struct{}{}
	r.ignoredNicks[nick] = struct{}{}
	return e, true
}

// UnignoreAll clears every ignore rule and the derived nickname set.
func (r *Roster) UnignoreAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ignoredTrips = make(map[string]struct{})
	r.ignoredHashes = make(map[string]struct{})
	r.ignoredNicks = make(map[string]struct{})
}

// Rules returns the rule set in persistable form, sorted for stable
// config output.
func (r *Roster) Rules() Rules {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rules := Rules{
		Trips:  make([]string, 0, len(r.ignoredTrips)),
		Hashes: make([]string, 0, len(r.ignoredHashes)),
	}
	for trip := range r.ignoredTrips {
		rules.Trips = append(rules.Trips, trip)
	}
	for hash := range r.ignoredHashes {
		rules.Hashes = append(rules.Hashes, hash)
	}
	sort.Strings(rules.Trips)
	sort.Strings(rules.Hashes)
	return rules
}

// markIfIgnored records the nickname in the derived ignore set when its
// trip or hash matches a rule. Caller holds the lock.
func (r *Roster) markIfIgnored(e Entry) {
	if e.HasTrip() {
		if _, ok := r.ignoredTrips[e.Trip]; ok {
			r.ignoredNicks[e.Nick] = struct{}{}
			return
		}
	}
	if _, ok := r.ignoredHashes[e.Hash]; ok {
		r.ignoredNicks[e.Nick] = struct{}{}
	}
}
