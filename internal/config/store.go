// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// =============================================================================
// LIVE CONFIG STORE
// =============================================================================

// Store holds the active configuration and serializes access from the
// input loop, the render path, and the file watcher.
type Store struct {
	mu   sync.RWMutex
	cfg  *Config
	path string

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewStore wraps a loaded configuration. path may be empty when running
// on built-in defaults.
func NewStore(cfg *Config, path string) *Store {
	return &Store{cfg: cfg, path: path}
}

// Snapshot returns a copy of the current configuration. The copy is
// safe to read without holding any lock; the Ignored slices and Aliases
// map are cloned.
func (s *Store) Snapshot() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := *s.cfg
	out.Ignored.Trips = append([]string(nil), s.cfg.Ignored.Trips...)
	out.Ignored.Hashes = append([]string(nil), s.cfg.Ignored.Hashes...)
	out.Aliases = make(map[string]string, len(s.cfg.Aliases))
	for k, v := range s.cfg.Aliases {
		out.Aliases[k] = v
	}
	return out
}

// Path returns the file the configuration was loaded from, if any.
func (s *Store) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.path
}

// Update applies fn to the configuration under the write lock.
func (s *Store) Update(fn func(*Config)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.cfg)
}

// Save writes the current configuration to its file.
func (s *Store) Save() error {
	s.mu.RLock()
	cfg := *s.cfg
	path := s.path
	s.mu.RUnlock()
	return Save(&cfg, path)
}

// =============================================================================
// OPTION ACCESS BY NAME
// =============================================================================

// readOnlyOptions cannot be changed at runtime. Channel and nickname
// have dedicated commands, and the rule and alias collections have
// their own editing commands.
var readOnlyOptions = map[string]bool{
	"config_file": true,
	"channel":     true,
	"nickname":    true,
	"aliases":     true,
	"ignored":     true,
}

// ReadOnly reports whether an option may not be set by name.
func ReadOnly(key string) bool {
	return readOnlyOptions[key]
}

// OptionNames returns the settable option names in sorted order.
func OptionNames() []string {
	names := make([]string, 0, len(optionSetters))
	for name := range optionSetters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type setter func(*Config, string) error

func boolSetter(dst func(*Config) *bool) setter {
	return func(c *Config, raw string) error {
		v, err := strconv.ParseBool(strings.ToLower(raw))
		if err != nil {
			return fmt.Errorf("expected true or false, got %q", raw)
		}
		*dst(c) = v
		return nil
	}
}

func stringSetter(dst func(*Config) *string, check func(string) error) setter {
	return func(c *Config, raw string) error {
		if check != nil {
			if err := check(raw); err != nil {
				return err
			}
		}
		*dst(c) = raw
		return nil
	}
}

func colorSetter(dst func(*Config) *string) setter {
	return stringSetter(dst, func(raw string) error {
		if !ValidColor(raw) {
			return fmt.Errorf("unknown color %q", raw)
		}
		return nil
	})
}

var optionSetters = map[string]setter{
	"trip_password": stringSetter(func(c *Config) *string { return &c.TripPassword }, nil),
	"websocket_address": stringSetter(func(c *Config) *string { return &c.WebsocketAddress }, func(raw string) error {
		if !strings.HasPrefix(raw, "ws://") && !strings.HasPrefix(raw, "wss://") {
			return fmt.Errorf("must be a ws:// or wss:// URL")
		}
		return nil
	}),
	"proxy": stringSetter(func(c *Config) *string { return &c.Proxy }, func(raw string) error {
		if raw != "" && !ValidProxy(raw) {
			return fmt.Errorf("must be TYPE:HOST:PORT with a socks or http scheme")
		}
		return nil
	}),

	"no_parse":    boolSetter(func(c *Config) *bool { return &c.NoParse }),
	"clear":       boolSetter(func(c *Config) *bool { return &c.ClearOnStart }),
	"is_mod":      boolSetter(func(c *Config) *bool { return &c.IsMod }),
	"no_unicode":  boolSetter(func(c *Config) *bool { return &c.NoUnicode }),
	"no_markdown": boolSetter(func(c *Config) *bool { return &c.NoMarkdown }),
	"no_notify":   boolSetter(func(c *Config) *bool { return &c.NoNotify }),

	"highlight_theme":  stringSetter(func(c *Config) *string { return &c.HighlightTheme }, nil),
	"prompt_string":    stringSetter(func(c *Config) *string { return &c.PromptString }, nil),
	"timestamp_format": stringSetter(func(c *Config) *string { return &c.TimestampFormat }, nil),
	"suggest_aggr": func(c *Config, raw string) error {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > 3 {
			return fmt.Errorf("must be a number between 0 and 3")
		}
		c.SuggestAggr = n
		return nil
	},
	"backticks_bg": func(c *Config, raw string) error {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > 255 {
			return fmt.Errorf("must be a number between 0 and 255")
		}
		c.BackticksBG = n
		return nil
	},

	"archive_enabled": boolSetter(func(c *Config) *bool { return &c.ArchiveEnabled }),
	"archive_path":    stringSetter(func(c *Config) *string { return &c.ArchivePath }, nil),

	"colors.message":        colorSetter(func(c *Config) *string { return &c.Colors.Message }),
	"colors.whisper":        colorSetter(func(c *Config) *string { return &c.Colors.Whisper }),
	"colors.emote":          colorSetter(func(c *Config) *string { return &c.Colors.Emote }),
	"colors.nickname":       colorSetter(func(c *Config) *string { return &c.Colors.Nickname }),
	"colors.self_nickname":  colorSetter(func(c *Config) *string { return &c.Colors.SelfNickname }),
	"colors.warning":        colorSetter(func(c *Config) *string { return &c.Colors.Warning }),
	"colors.server":         colorSetter(func(c *Config) *string { return &c.Colors.Server }),
	"colors.client":         colorSetter(func(c *Config) *string { return &c.Colors.Client }),
	"colors.timestamp":      colorSetter(func(c *Config) *string { return &c.Colors.Timestamp }),
	"colors.mod_nickname":   colorSetter(func(c *Config) *string { return &c.Colors.ModNickname }),
	"colors.admin_nickname": colorSetter(func(c *Config) *string { return &c.Colors.AdminNickname }),
}

// Set changes one option by name, parsing the value per the option's
// type. Read-only options and unknown names return an error.
func (s *Store) Set(key, value string) error {
	key = strings.ToLower(strings.TrimSpace(key))
	if ReadOnly(key) {
		return fmt.Errorf("%s is read-only", key)
	}
	set, ok := optionSetters[key]
	if !ok {
		return fmt.Errorf("unknown option %q", key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return set(s.cfg, value)
}

// Dump renders every option and its current value, one per line, in
// sorted order.
func (s *Store) Dump() string {
	cfg := s.Snapshot()

	lines := []string{
		fmt.Sprintf("config_file = %q", s.Path()),
		fmt.Sprintf("nickname = %q", cfg.Nickname),
		fmt.Sprintf("channel = %q", cfg.Channel),
		fmt.Sprintf("trip_password = %q", cfg.TripPassword),
		fmt.Sprintf("websocket_address = %q", cfg.WebsocketAddress),
		fmt.Sprintf("proxy = %q", cfg.Proxy),
		fmt.Sprintf("no_parse = %v", cfg.NoParse),
		fmt.Sprintf("clear = %v", cfg.ClearOnStart),
		fmt.Sprintf("is_mod = %v", cfg.IsMod),
		fmt.Sprintf("no_unicode = %v", cfg.NoUnicode),
		fmt.Sprintf("no_markdown = %v", cfg.NoMarkdown),
		fmt.Sprintf("no_notify = %v", cfg.NoNotify),
		fmt.Sprintf("highlight_theme = %q", cfg.HighlightTheme),
		fmt.Sprintf("prompt_string = %q", cfg.PromptString),
		fmt.Sprintf("timestamp_format = %q", cfg.TimestampFormat),
		fmt.Sprintf("suggest_aggr = %d", cfg.SuggestAggr),
		fmt.Sprintf("backticks_bg = %d", cfg.BackticksBG),
		fmt.Sprintf("archive_enabled = %v", cfg.ArchiveEnabled),
		fmt.Sprintf("archive_path = %q", cfg.ArchivePath),
		fmt.Sprintf("colors.message = %q", cfg.Colors.Message),
		fmt.Sprintf("colors.whisper = %q", cfg.Colors.Whisper),
		fmt.Sprintf("colors.emote = %q", cfg.Colors.Emote),
		fmt.Sprintf("colors.nickname = %q", cfg.Colors.Nickname),
		fmt.Sprintf("colors.self_nickname = %q", cfg.Colors.SelfNickname),
		fmt.Sprintf("colors.warning = %q", cfg.Colors.Warning),
		fmt.Sprintf("colors.server = %q", cfg.Colors.Server),
		fmt.Sprintf("colors.client = %q", cfg.Colors.Client),
		fmt.Sprintf("colors.timestamp = %q", cfg.Colors.Timestamp),
		fmt.Sprintf("colors.mod_nickname = %q", cfg.Colors.ModNickname),
		fmt.Sprintf("colors.admin_nickname = %q", cfg.Colors.AdminNickname),
		fmt.Sprintf("ignored.trips = %v", cfg.Ignored.Trips),
		fmt.Sprintf("ignored.hashes = %v", cfg.Ignored.Hashes),
	}
	return strings.Join(lines, "\n")
}

// =============================================================================
// FILE WATCHING
// =============================================================================

// Watch reloads the configuration whenever its file changes on disk.
// Reloads that fail validation are dropped and reported through onErr.
// Identity fields and runtime-edited rule lists survive the reload.
// No-op when running on built-in defaults.
func (s *Store) Watch(onReload func(), onErr func(error)) error {
	if s.path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}

	// Watch the parent directory so atomic rename-into-place saves are
	// still observed.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch config directory: %w", err)
	}

	s.watcher = watcher
	s.done = make(chan struct{})

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != s.path {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if err := s.reload(); err != nil {
					if onErr != nil {
						onErr(err)
					}
					continue
				}
				if onReload != nil {
					onReload()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				if onErr != nil {
					onErr(err)
				}
			case <-s.done:
				return
			}
		}
	}()
	return nil
}

// CloseWatch stops the file watcher if one is running.
func (s *Store) CloseWatch() {
	if s.watcher == nil {
		return
	}
	close(s.done)
	s.watcher.Close()
	s.watcher = nil
}

func (s *Store) reload() error {
	fresh, _, err := LoadFromPath(s.path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	fresh.Nickname = s.cfg.Nickname
	fresh.Channel = s.cfg.Channel

	// Ignore rules and aliases are runtime-edited (via /ignore and
	// /set) and read-only for the watcher; the live lists win over
	// whatever the file says until the user runs /save.
	fresh.Ignored = s.cfg.Ignored
	fresh.Aliases = s.cfg.Aliases

	s.cfg = fresh
	return nil
}
