// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package roster

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jeranaias/driftchat/internal/protocol"
)

func entry(nick, trip, hash string) Entry {
	return Entry{Nick: nick, Trip: trip, Type: protocol.TypeUser, Hash: hash}
}

func TestSnapshotReplacesPriorState(t *testing.T) {
	r := New(Rules{})

	// Seed with assorted prior churn.
	r.Add(entry("old1", "", "x1"))
	r.Add(entry("old2", "abcdef", "x2"))
	r.Remove("old1")
	r.Add(entry("old3", "", "x3"))

	snap := []Entry{entry("alice", "", "h1"), entry("bob", "qwerty", "h2")}
	r.ApplySnapshot(snap)

	require.Equal(t, []string{"alice", "bob"}, r.Nicks())
	require.Equal(t, 2, r.Len())
	require.False(t, r.Online("old2"))
	require.False(t, r.Online("old3"))
}

func TestAddOverwritesRemoveIdempotent(t *testing.T) {
	r := New(Rules{})

	r.Add(entry("alice", "", "h1"))
	r.Add(Entry{Nick: "alice", Trip: "newtrip", Type: protocol.TypeMod, Hash: "h9"})

	require.Equal(t, 1, r.Len(), "re-add must overwrite, not duplicate")
	e, ok := r.Details("alice")
	require.True(t, ok)
	require.Equal(t, "h9", e.Hash)
	require.Equal(t, protocol.TypeMod, e.Type)

	// Removing an absent nickname is not an error.
	r.Remove("ghost")
	r.Remove("alice")
	r.Remove("alice")
	require.Equal(t, 0, r.Len())
}

func TestIgnoreSurvivesResetAndReAdd(t *testing.T) {
	r := New(Rules{})
	r.Add(entry("alice", "abcdef", "h1"))

	e, ok := r.Ignore("alice")
	require.True(t, ok)
	require.Equal(t, "h1", e.Hash)
	require.True(t, r.IsIgnored("alice"))

	// Connection drop: roster cleared, rules stay.
	r.Reset()
	require.False(t, r.IsIgnored("alice"), "no entry, no ignore match")

	// Rejoin with the same identity is ignored again without /ignore.
	r.Add(entry("alice", "abcdef", "h1"))
	require.True(t, r.IsIgnored("alice"))

	// Same hash under a different nickname is also caught.
	r.Add(entry("alice2", "", "h1"))
	require.True(t, r.IsIgnored("alice2"))
}

func TestIgnoreByHashOnlyWhenNoTrip(t *testing.T) {
	r := New(Rules{})
	r.Add(entry("bob", "", "h2"))

	e, ok := r.Ignore("bob")
	require.True(t, ok)
	require.False(t, e.HasTrip())

	rules := r.Rules()
	require.Empty(t, rules.Trips, "tripless user must not add an empty trip rule")
	require.Equal(t, []string{"h2"}, rules.Hashes)
}

func TestIgnoreUnknownNick(t *testing.T) {
	r := New(Rules{})
	_, ok := r.Ignore("nobody")
	require.False(t, ok)
}

func TestUnignoreAll(t *testing.T) {
	r := New(Rules{Trips: []string{"abcdef"}, Hashes: []string{"h1"}})
	r.Add(entry("alice", "abcdef", "h1"))
	require.True(t, r.IsIgnored("alice"))

	r.UnignoreAll()
	require.False(t, r.IsIgnored("alice"))
	rules := r.Rules()
	require.Empty(t, rules.Trips)
	require.Empty(t, rules.Hashes)

	// Fresh adds after the wipe stay unignored.
	r.Add(entry("carol", "abcdef", "h1"))
	require.False(t, r.IsIgnored("carol"))
}

func TestSeededRulesApplyOnSnapshot(t *testing.T) {
	r := New(Rules{Hashes: []string{"h1"}})
	r.ApplySnapshot([]Entry{entry("alice", "", "h1"), entry("bob", "", "h2")})

	require.True(t, r.IsIgnored("alice"))
	require.False(t, r.IsIgnored("bob"))
}

func TestRulesSorted(t *testing.T) {
	r := New(Rules{})
	r.Add(entry("z", "zzzzzz", "hz"))
	r.Add(entry("a", "aaaaaa", "ha"))
	r.Ignore("z")
	r.Ignore("a")

	rules := r.Rules()
	require.Equal(t, []string{"aaaaaa", "zzzzzz"}, rules.Trips)
	require.Equal(t, []string{"ha", "hz"}, rules.Hashes)
}
