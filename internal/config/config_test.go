// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	cfg.fillDefaults()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "wss://hack.chat/chat-ws", cfg.WebsocketAddress)
	assert.Equal(t, "monokai", cfg.HighlightTheme)
	assert.Equal(t, "15:04", cfg.TimestampFormat)
	assert.Equal(t, 1, cfg.SuggestAggr)
	assert.Equal(t, "magenta", cfg.Colors.SelfNickname)
	assert.Equal(t, "red", cfg.Colors.AdminNickname)
}

func TestValidNickname(t *testing.T) {
	tests := []struct {
		name string
		nick string
		want bool
	}{
		{"simple", "alice", true},
		{"digits and underscore", "user_42", true},
		{"max length", "abcdefghijklmnopqrstuvwx", true},
		{"too long", "abcdefghijklmnopqrstuvwxy", false},
		{"empty", "", false},
		{"spaces", "a b", false},
		{"punctuation", "nick!", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidNickname(tt.nick))
		})
	}
}

func TestValidProxy(t *testing.T) {
	tests := []struct {
		name  string
		proxy string
		want  bool
	}{
		{"socks5", "socks5:127.0.0.1:9050", true},
		{"socks5h", "socks5h:localhost:1080", true},
		{"http", "http:proxy.example.com:8080", true},
		{"bad scheme", "ftp:host:21", false},
		{"missing port", "socks5:127.0.0.1", false},
		{"bad port", "socks5:host:notaport", false},
		{"port out of range", "socks5:host:70000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidProxy(tt.proxy))
		})
	}
}

func TestValidColor(t *testing.T) {
	assert.True(t, ValidColor("magenta"))
	assert.True(t, ValidColor("#ff00aa"))
	assert.True(t, ValidColor("238"))
	assert.False(t, ValidColor("256"))
	assert.False(t, ValidColor("chartreuse-ish"))
	assert.False(t, ValidColor("#ff00a"))
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad address scheme", func(c *Config) { c.WebsocketAddress = "https://hack.chat" }},
		{"bad proxy", func(c *Config) { c.Proxy = "socks5:nohost" }},
		{"suggest_aggr too high", func(c *Config) { c.SuggestAggr = 4 }},
		{"bad color", func(c *Config) { c.Colors.Warning = "blurple" }},
		{"bad nickname", func(c *Config) { c.Nickname = "no spaces" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.fillDefaults()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadTOMLRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := `
trip_password = "hunter2"
no_notify = true
suggest_aggr = 2

[colors]
nickname = "cyan"

[ignored]
trips = ["abc123"]
hashes = []

[aliases]
brb = "be right back"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, path, loaded)

	// Explicit values survive, gaps are backfilled with defaults.
	assert.Equal(t, "hunter2", cfg.TripPassword)
	assert.True(t, cfg.NoNotify)
	assert.Equal(t, 2, cfg.SuggestAggr)
	assert.Equal(t, "cyan", cfg.Colors.Nickname)
	assert.Equal(t, "white", cfg.Colors.Message)
	assert.Equal(t, "wss://hack.chat/chat-ws", cfg.WebsocketAddress)
	assert.Equal(t, []string{"abc123"}, cfg.Ignored.Trips)
	assert.Equal(t, "be right back", cfg.Aliases["brb"])
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	content := `{"websocket_address": "wss://example.org/chat-ws", "is_mod": true}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, _, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "wss://example.org/chat-ws", cfg.WebsocketAddress)
	assert.True(t, cfg.IsMod)
}

func TestSaveExcludesIdentity(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg := Default()
	cfg.fillDefaults()
	cfg.Nickname = "alice"
	cfg.Channel = "lounge"
	cfg.TripPassword = "secret"

	require.NoError(t, Save(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "alice")
	assert.NotContains(t, string(data), "lounge")
	assert.Contains(t, string(data), "secret")

	// Saved file loads back cleanly.
	reloaded, _, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "secret", reloaded.TripPassword)
	assert.Empty(t, reloaded.Nickname)
}

func TestSaveWithoutPathFails(t *testing.T) {
	assert.Error(t, Save(Default(), ""))
}

func TestStoreSet(t *testing.T) {
	store := NewStore(Default(), "")

	require.NoError(t, store.Set("no_parse", "true"))
	assert.True(t, store.Snapshot().NoParse)

	require.NoError(t, store.Set("colors.warning", "red"))
	assert.Equal(t, "red", store.Snapshot().Colors.Warning)

	require.NoError(t, store.Set("suggest_aggr", "3"))
	assert.Equal(t, 3, store.Snapshot().SuggestAggr)
}

func TestStoreSetRejects(t *testing.T) {
	store := NewStore(Default(), "")

	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"read-only nickname", "nickname", "bob"},
		{"read-only channel", "channel", "lounge"},
		{"read-only config_file", "config_file", "/tmp/x"},
		{"unknown option", "nope", "1"},
		{"bad bool", "no_parse", "maybe"},
		{"bad color", "colors.message", "blurple"},
		{"bad suggest_aggr", "suggest_aggr", "9"},
		{"bad proxy", "proxy", "ftp:host:21"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, store.Set(tt.key, tt.value))
		})
	}
}

func TestSnapshotIsIsolated(t *testing.T) {
	store := NewStore(Default(), "")
	snap := store.Snapshot()
	snap.Aliases["x"] = "y"
	snap.Ignored.Trips = append(snap.Ignored.Trips, "abc")

	fresh := store.Snapshot()
	assert.Empty(t, fresh.Aliases)
	assert.Empty(t, fresh.Ignored.Trips)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DRIFTCHAT_ADDRESS", "wss://alt.example/chat-ws")
	t.Setenv("DRIFTCHAT_PROXY", "socks5:127.0.0.1:9050")

	cfg := Default()
	cfg.ApplyEnvOverrides()
	assert.Equal(t, "wss://alt.example/chat-ws", cfg.WebsocketAddress)
	assert.Equal(t, "socks5:127.0.0.1:9050", cfg.Proxy)
}

func TestOptionNamesSortedAndWritable(t *testing.T) {
	names := OptionNames()
	require.NotEmpty(t, names)
	assert.IsType(t, []string{}, names)
	for _, name := range names {
		assert.False(t, ReadOnly(name), name)
	}
	for i := 1; i < len(names); i++ {
		assert.LessOrEqual(t, names[i-1], names[i])
	}
}

func TestReloadPreservesRuntimeRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, Save(Default(), path))

	loaded, _, err := LoadFromPath(path)
	require.NoError(t, err)
	store := NewStore(loaded, path)

	// Rules added mid-session via /ignore and /set live only in the
	// store until the user runs /save.
	store.Update(func(c *Config) {
		c.Ignored.Hashes = append(c.Ignored.Hashes, "h1")
		c.Ignored.Trips = append(c.Ignored.Trips, "aB3xYz")
		c.Aliases["greet"] = "hello there"
	})

	// An on-disk edit must not clobber them.
	require.NoError(t, store.reload())

	snap := store.Snapshot()
	assert.Contains(t, snap.Ignored.Hashes, "h1")
	assert.Contains(t, snap.Ignored.Trips, "aB3xYz")
	assert.Equal(t, "hello there", snap.Aliases["greet"])
}

func TestReloadKeepsIdentity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, Save(Default(), path))

	loaded, _, err := LoadFromPath(path)
	require.NoError(t, err)
	loaded.Nickname = "river"
	loaded.Channel = "lounge"
	store := NewStore(loaded, path)

	require.NoError(t, store.reload())

	snap := store.Snapshot()
	assert.Equal(t, "river", snap.Nickname)
	assert.Equal(t, "lounge", snap.Channel)
}
