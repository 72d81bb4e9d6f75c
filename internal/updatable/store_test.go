// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package updatable

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jeranaias/driftchat/internal/protocol"
)

var testMeta = Meta{Trip: "abcdef", Nick: "alice", Type: protocol.TypeUser}

func TestBeginMutateComplete(t *testing.T) {
	s := NewStore()
	key := Key{UserID: 7, CustomID: "x"}

	id := s.Begin(key, "hello", testMeta)
	require.Len(t, id, 5)
	require.Equal(t, 1, s.Len())

	s.Mutate(key, protocol.ModeAppend, "!")
	s.Mutate(key, protocol.ModePrepend, ">")
	final, ok := s.Complete(key)
	require.True(t, ok)
	require.Equal(t, ">hello!", final.Text)
	require.Equal(t, testMeta, final.Meta)
	require.Equal(t, id, final.DisplayID)
	require.Equal(t, 0, s.Len(), "complete removes the entry")

	// A second complete finds nothing: the message renders exactly once.
	_, ok = s.Complete(key)
	require.False(t, ok)
}

func TestOverwrite(t *testing.T) {
	s := NewStore()
	key := Key{UserID: 1, CustomID: "a"}
	s.Begin(key, "draft", testMeta)

	s.Mutate(key, protocol.ModeOverwrite, "final")
	msg, ok := s.Complete(key)
	require.True(t, ok)
	require.Equal(t, "final", msg.Text)
}

func TestBeginSupersedes(t *testing.T) {
	s := NewStore()
	key := Key{UserID: 7, CustomID: "x"}

	s.Begin(key, "first", testMeta)
	s.Begin(key, "second", testMeta)
	require.Equal(t, 1, s.Len(), "same key must replace, not duplicate")

	msg, ok := s.Complete(key)
	require.True(t, ok)
	require.Equal(t, "second", msg.Text)
}

func TestDistinctKeysCoexist(t *testing.T) {
	s := NewStore()
	s.Begin(Key{UserID: 7, CustomID: "x"}, "a", testMeta)
	s.Begin(Key{UserID: 7, CustomID: "y"}, "b", testMeta)
	s.Begin(Key{UserID: 8, CustomID: "x"}, "c", testMeta)
	require.Equal(t, 3, s.Len())
}

func TestMutateAbsentKeyIgnored(t *testing.T) {
	s := NewStore()
	s.Mutate(Key{UserID: 99, CustomID: "gone"}, protocol.ModeAppend, "late")
	require.Equal(t, 0, s.Len())
}

func TestSweepExpiresIdleEntries(t *testing.T) {
	s := NewStore()
	old := Key{UserID: 1, CustomID: "old"}
	fresh := Key{UserID: 2, CustomID: "fresh"}

	s.Begin(old, "stale", testMeta)
	s.messages[old].Sent = time.Now().Add(-Expiry - time.Second)
	s.Begin(fresh, "live", testMeta)

	expired := s.Sweep(time.Now())
	require.Len(t, expired, 1)
	require.Equal(t, old, expired[0].Key)
	require.Equal(t, 1, s.Len())
	require.True(t, s.messages[fresh] != nil)
}

func TestCompleteBeatsExpiry(t *testing.T) {
	s := NewStore()
	key := Key{UserID: 3, CustomID: "race"}
	s.Begin(key, "text", testMeta)
	s.messages[key].Sent = time.Now().Add(-Expiry - time.Second)

	// Completion first: the sweep must then find nothing, so the
	// message is never rendered twice.
	_, ok := s.Complete(key)
	require.True(t, ok)
	require.Empty(t, s.Sweep(time.Now()))
}

func TestSweepEmptyStore(t *testing.T) {
	s := NewStore()
	require.Empty(t, s.Sweep(time.Now()))
}
