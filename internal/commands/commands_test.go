// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/driftchat/internal/config"
	"github.com/jeranaias/driftchat/internal/notify"
	"github.com/jeranaias/driftchat/internal/output"
	"github.com/jeranaias/driftchat/internal/protocol"
	"github.com/jeranaias/driftchat/internal/render"
	"github.com/jeranaias/driftchat/internal/roster"
	"github.com/jeranaias/driftchat/internal/session"
)

// =============================================================================
// TEST FIXTURE
// =============================================================================

type fakeConn struct {
	frames chan []byte

	mu     sync.Mutex
	writes []any

	once   sync.Once
	closed chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{frames: make(chan []byte, 8), closed: make(chan struct{})}
}

func (c *fakeConn) ReadFrame() ([]byte, error) {
	select {
	case raw := <-c.frames:
		return raw, nil
	case <-c.closed:
		return nil, errors.New("closed")
	}
}

func (c *fakeConn) WriteJSON(v any) error {
	c.mu.Lock()
	c.writes = append(c.writes, v)
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) sent() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]any(nil), c.writes...)
}

type fixture struct {
	dispatcher *Dispatcher
	engine     *session.Engine
	store      *config.Store
	sink       *output.Sink
	conn       *fakeConn
}

func newFixture(t *testing.T, isMod bool, mutate func(*config.Config)) *fixture {
	t.Helper()

	cfg := config.Default()
	cfg.Nickname = "local"
	cfg.Channel = "lounge"
	cfg.NoMarkdown = true
	cfg.NoUnicode = true
	cfg.IsMod = isMod
	if mutate != nil {
		mutate(cfg)
	}

	f := &fixture{
		store: config.NewStore(cfg, ""),
		sink:  output.NewSink(io.Discard),
		conn:  newFakeConn(),
	}

	ros := roster.New(cfg.Ignored)
	f.engine = session.New(f.store, f.sink, notify.Noop{}, ros, func(ctx context.Context) (session.Conn, error) {
		return f.conn, nil
	})
	f.engine.Start(context.Background())
	t.Cleanup(f.engine.Stop)

	ctx := &Context{
		Engine:    f.engine,
		Store:     f.store,
		Sink:      f.sink,
		Formatter: func() *render.Formatter { return render.NewFormatter(f.store.Snapshot()) },
	}
	f.dispatcher = NewDispatcher(ctx)

	f.join(t)
	return f
}

// join feeds a snapshot so the engine reaches the joined state.
func (f *fixture) join(t *testing.T) {
	t.Helper()
	f.conn.frames <- []byte(`{"cmd":"onlineSet","nicks":["local","alice"],"users":[
		{"nick":"local","trip":"","level":100,"hash":"h0","channel":"lounge"},
		{"nick":"alice","trip":"aB3xYz","level":100,"hash":"h1","channel":"lounge"}]}`)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if f.engine.State() == session.StateJoined {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("engine never joined")
}

func (f *fixture) historyContains(substr string) bool {
	for _, line := range f.sink.History() {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

// chatFrames filters the sent frames down to chat sends.
func (f *fixture) chatFrames() []protocol.ChatSend {
	var out []protocol.ChatSend
	for _, w := range f.conn.sent() {
		if c, ok := w.(protocol.ChatSend); ok {
			out = append(out, c)
		}
	}
	return out
}

// =============================================================================
// PARSER
// =============================================================================

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		command  string
		args     []string
		rawArgs  string
		isSlash  bool
	}{
		{"plain text", "hello world", "", nil, "", false},
		{"bare command", "/quit", "/quit", nil, "", true},
		{"command with args", "/nick newname", "/nick", []string{"newname"}, "newname", true},
		{"quoted arg", `/set greet "hello there"`, "/set", []string{"greet", "hello there"}, `greet "hello there"`, true},
		{"single quotes", "/set x 'a b'", "/set", []string{"x", "a b"}, "'a b'", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.input)
			assert.Equal(t, tt.isSlash, got.IsCommand)
			assert.Equal(t, tt.command, got.CommandName)
			assert.Equal(t, tt.args, got.Args)
		})
	}
}

func TestParseQuotedRawArgs(t *testing.T) {
	got := Parse(`/set greet "hello there"`)
	assert.Equal(t, `greet "hello there"`, got.RawArgs)
}

func TestExpandAliases(t *testing.T) {
	aliases := map[string]string{"brb": "be right back", "ch": "programming"}

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"single alias", "$brb", "be right back"},
		{"alias mid-sentence", "ok $brb now", "ok be right back now"},
		{"embedded not expanded", "x$brb", "x$brb"},
		{"unknown alias kept", "$nope", "$nope"},
		{"no aliases", "plain text", "plain text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandAliases(tt.input, aliases))
		})
	}
}

// =============================================================================
// DISPATCH
// =============================================================================

func TestPlainTextSentAsChat(t *testing.T) {
	f := newFixture(t, false, nil)

	res := f.dispatcher.Handle("hello everyone")
	assert.Equal(t, ResultHandled, res)

	require.Len(t, f.chatFrames(), 1)
	assert.Equal(t, "hello everyone", f.chatFrames()[0].Text)
}

func TestUnknownSlashPassedToServer(t *testing.T) {
	f := newFixture(t, false, nil)

	f.dispatcher.Handle("/me waves")

	require.Len(t, f.chatFrames(), 1)
	assert.Equal(t, "/me waves", f.chatFrames()[0].Text)
}

func TestEmptyInputIgnored(t *testing.T) {
	f := newFixture(t, false, nil)
	f.dispatcher.Handle("   ")
	assert.Empty(t, f.chatFrames())
}

func TestQuitReturnsSentinel(t *testing.T) {
	f := newFixture(t, false, nil)
	assert.Equal(t, ResultQuit, f.dispatcher.Handle("/quit"))
}

func TestWhisperLockGating(t *testing.T) {
	f := newFixture(t, false, nil)

	f.dispatcher.Handle("/wlock")
	assert.True(t, f.engine.WhisperLock())
	assert.True(t, f.historyContains("Toggled whisper lock to true"))

	f.dispatcher.Handle("public message")
	assert.Empty(t, f.chatFrames())
	assert.True(t, f.historyContains("Whisper lock active"))

	f.dispatcher.Handle("/w alice psst")
	require.Len(t, f.chatFrames(), 1)
	assert.Equal(t, "/w alice psst", f.chatFrames()[0].Text)

	f.dispatcher.Handle("/wlock")
	assert.False(t, f.engine.WhisperLock())
}

func TestNickRejectedLocally(t *testing.T) {
	f := newFixture(t, false, nil)

	f.dispatcher.Handle("/nick bad name!")

	assert.True(t, f.historyContains("Nickname must consist"))
	assert.Equal(t, "local", f.engine.Nick())
	for _, w := range f.conn.sent() {
		if _, ok := w.(protocol.ChangeNick); ok {
			t.Fatal("changenick frame sent for invalid nickname")
		}
	}
}

func TestNickChanged(t *testing.T) {
	f := newFixture(t, false, nil)

	f.dispatcher.Handle("/nick fresh_name")

	assert.Equal(t, "fresh_name", f.engine.Nick())
	var found bool
	for _, w := range f.conn.sent() {
		if cn, ok := w.(protocol.ChangeNick); ok {
			found = true
			assert.Equal(t, "fresh_name", cn.Nick)
		}
	}
	assert.True(t, found, "changenick frame not sent")
}

func TestAliasLifecycle(t *testing.T) {
	f := newFixture(t, false, nil)

	f.dispatcher.Handle("/set brb be right back")
	assert.Equal(t, "be right back", f.store.Snapshot().Aliases["brb"])

	f.dispatcher.Handle("$brb")
	require.Len(t, f.chatFrames(), 1)
	assert.Equal(t, "be right back", f.chatFrames()[0].Text)

	f.dispatcher.Handle("/unset brb")
	assert.NotContains(t, f.store.Snapshot().Aliases, "brb")

	f.dispatcher.Handle("/unset brb")
	assert.True(t, f.historyContains("isn't defined"))
}

func TestConfigSet(t *testing.T) {
	f := newFixture(t, false, nil)

	f.dispatcher.Handle("/configset no_notify true")
	assert.True(t, f.store.Snapshot().NoNotify)

	f.dispatcher.Handle("/configset nickname sneaky")
	assert.True(t, f.historyContains("Error setting option 'nickname'"))

	f.dispatcher.Handle("/configset nope 1")
	assert.True(t, f.historyContains("Available options:"))
}

func TestConfigDump(t *testing.T) {
	f := newFixture(t, false, nil)
	f.dispatcher.Handle("/configdump")
	assert.True(t, f.historyContains("websocket_address"))
}

func TestIgnorePersistsRules(t *testing.T) {
	f := newFixture(t, false, nil)

	f.dispatcher.Handle("/ignore @alice")

	assert.True(t, f.engine.Roster().IsIgnored("alice"))
	assert.True(t, f.historyContains("Ignoring trip 'aB3xYz'"))
	assert.Contains(t, f.store.Snapshot().Ignored.Trips, "aB3xYz")

	f.dispatcher.Handle("/unignoreall")
	assert.False(t, f.engine.Roster().IsIgnored("alice"))
	assert.Empty(t, f.store.Snapshot().Ignored.Trips)
}

func TestIgnoreUnknownUser(t *testing.T) {
	f := newFixture(t, false, nil)
	f.dispatcher.Handle("/ignore ghost")
	assert.True(t, f.historyContains("No such user: 'ghost'"))
}

func TestProfile(t *testing.T) {
	f := newFixture(t, false, nil)

	f.dispatcher.Handle("/profile @alice")
	assert.True(t, f.historyContains("alice's profile:"))
	assert.True(t, f.historyContains("aB3xYz"))

	f.dispatcher.Handle("/profile nobody")
	assert.True(t, f.historyContains("No such user: 'nobody'"))
}

func TestList(t *testing.T) {
	f := newFixture(t, false, nil)
	f.dispatcher.Handle("/list")
	assert.True(t, f.historyContains("Channel: lounge - Users: local, alice"))
}

func TestSaveWithoutFile(t *testing.T) {
	f := newFixture(t, false, nil)
	f.dispatcher.Handle("/save")
	assert.True(t, f.historyContains("Error saving config"))
}

func TestReprintAnnouncesCount(t *testing.T) {
	var buf strings.Builder
	sink := output.NewSink(&buf)
	sink.Emit("one")
	sink.Emit("two")

	cfg := config.Default()
	cfg.NoMarkdown = true
	cfg.NoUnicode = true
	ctx := &Context{
		Sink:      sink,
		Formatter: func() *render.Formatter { return render.NewFormatter(*cfg) },
	}

	handleReprint(ctx, nil, "")

	out := buf.String()
	assert.Contains(t, out, "Re-printing 2 messages...")
	assert.Contains(t, out, "one\ntwo")
}

// =============================================================================
// MODERATOR COMMANDS
// =============================================================================

func TestModCommandsGated(t *testing.T) {
	f := newFixture(t, false, nil)

	// Without mod mode /ban is not a client command and travels as
	// chat text.
	f.dispatcher.Handle("/ban troll")
	require.Len(t, f.chatFrames(), 1)
	assert.Equal(t, "/ban troll", f.chatFrames()[0].Text)
}

func TestConfigSetIsModEnablesModCommandsLive(t *testing.T) {
	f := newFixture(t, false, nil)

	// Not a client command yet, so it travels as chat text.
	f.dispatcher.Handle("/lockroom")
	require.Len(t, f.chatFrames(), 1)
	assert.Equal(t, "/lockroom", f.chatFrames()[0].Text)

	f.dispatcher.Handle("/configset is_mod true")
	require.True(t, f.store.Snapshot().IsMod)

	f.dispatcher.Handle("/lockroom")
	var locked bool
	for _, w := range f.conn.sent() {
		if m, ok := w.(map[string]any); ok && m["cmd"] == "lockroom" {
			locked = true
		}
	}
	assert.True(t, locked, "lockroom frame not sent after enabling is_mod")
	assert.Len(t, f.chatFrames(), 1, "mod command sent as chat text after enabling is_mod")

	// And revoking takes effect just as immediately.
	f.dispatcher.Handle("/configset is_mod false")
	f.dispatcher.Handle("/lockroom")
	assert.Len(t, f.chatFrames(), 2)
}

func TestModBanPerTarget(t *testing.T) {
	f := newFixture(t, true, nil)

	f.dispatcher.Handle("/ban @troll1 troll2")

	var bans []map[string]any
	for _, w := range f.conn.sent() {
		if m, ok := w.(map[string]any); ok && m["cmd"] == "ban" {
			bans = append(bans, m)
		}
	}
	require.Len(t, bans, 2)
	assert.Equal(t, "troll1", bans[0]["nick"])
	assert.Equal(t, "troll2", bans[1]["nick"])
}

func TestModKickAsOne(t *testing.T) {
	f := newFixture(t, true, nil)

	f.dispatcher.Handle("/kickasone a b")

	var found bool
	for _, w := range f.conn.sent() {
		if m, ok := w.(map[string]any); ok && m["cmd"] == "kick" {
			found = true
			assert.Equal(t, []string{"a", "b"}, m["nick"])
		}
	}
	assert.True(t, found)
}

func TestModMoveUser(t *testing.T) {
	f := newFixture(t, true, nil)

	f.dispatcher.Handle("/moveuser @alice quiet")

	var found bool
	for _, w := range f.conn.sent() {
		if m, ok := w.(map[string]any); ok && m["cmd"] == "moveuser" {
			found = true
			assert.Equal(t, "alice", m["nick"])
			assert.Equal(t, "quiet", m["channel"])
		}
	}
	assert.True(t, found)
}

// =============================================================================
// COMPLETION
// =============================================================================

func TestCompletions(t *testing.T) {
	reg := NewRegistry()
	list := Completions(reg, []string{"alice", "bob"}, false)

	assert.Contains(t, list, "/help")
	assert.Contains(t, list, "/whisper")
	assert.Contains(t, list, "@alice")
	assert.Contains(t, list, "/whisper @bob")
	assert.Contains(t, list, "/ignore @alice")
	assert.NotContains(t, list, "/ban")

	modList := Completions(reg, nil, true)
	assert.Contains(t, modList, "/ban")
}

func TestComplete(t *testing.T) {
	candidates := []string{"/help", "/ignore @alice", "@alice", "hello"}

	assert.Nil(t, Complete(candidates, "/he", 0))
	assert.Equal(t, []string{"/help"}, Complete(candidates, "/he", 1))
	assert.Nil(t, Complete(candidates, "he", 1))
	assert.Equal(t, []string{"hello"}, Complete(candidates, "he", 2))
	assert.Equal(t, []string{"@alice"}, Complete(candidates, "@al", 1))
}

func TestCompleteSubstringAtLevelThree(t *testing.T) {
	candidates := []string{"/help", "/ignore @alice", "@alice", "hello"}

	// Level 2 is prefix-only; level 3 matches anywhere in the
	// candidate, case-insensitively.
	assert.Nil(t, Complete(candidates, "lice", 2))
	assert.Equal(t, []string{"/ignore @alice", "@alice"}, Complete(candidates, "lice", 3))
	assert.Equal(t, []string{"/help", "hello"}, Complete(candidates, "HE", 3))
}
