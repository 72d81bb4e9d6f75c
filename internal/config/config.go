// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for
// driftchat.
//
// Supports both TOML and JSON formats with sensible defaults,
// environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - path given with --load-config
//   - ~/.driftchat/config.toml
//   - ~/.driftchat/config.json
//   - Built-in defaults
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/driftchat/internal/roster"
	"github.com/jeranaias/driftchat/internal/util"
)

// =============================================================================
// CONFIG STRUCTURE
// =============================================================================

// Config is the complete driftchat configuration. The session identity
// fields (Nickname, Channel) come from the command line and are never
// written back to disk.
type Config struct {
	// Session identity
	Nickname string `toml:"-" json:"-"`
	Channel  string `toml:"-" json:"-"`

	// Connection
	TripPassword     string `toml:"trip_password" json:"trip_password"`
	WebsocketAddress string `toml:"websocket_address" json:"websocket_address"`
	Proxy            string `toml:"proxy" json:"proxy"`

	// Behavior toggles
	NoParse      bool `toml:"no_parse" json:"no_parse"`
	ClearOnStart bool `toml:"clear" json:"clear"`
	IsMod        bool `toml:"is_mod" json:"is_mod"`
	NoUnicode    bool `toml:"no_unicode" json:"no_unicode"`
	NoMarkdown   bool `toml:"no_markdown" json:"no_markdown"`
	NoNotify     bool `toml:"no_notify" json:"no_notify"`

	// Rendering
	HighlightTheme  string `toml:"highlight_theme" json:"highlight_theme"`
	PromptString    string `toml:"prompt_string" json:"prompt_string"`
	TimestampFormat string `toml:"timestamp_format" json:"timestamp_format"`
	SuggestAggr     int    `toml:"suggest_aggr" json:"suggest_aggr"`
	BackticksBG     int    `toml:"backticks_bg" json:"backticks_bg"`

	// Colors for each line element, by name
	Colors ColorConfig `toml:"colors" json:"colors"`

	// Message archive
	ArchiveEnabled bool   `toml:"archive_enabled" json:"archive_enabled"`
	ArchivePath    string `toml:"archive_path" json:"archive_path"`

	// Persistent ignore rules and input aliases
	Ignored roster.Rules      `toml:"ignored" json:"ignored"`
	Aliases map[string]string `toml:"aliases" json:"aliases"`
}

// ColorConfig names the color used for each element of a rendered line.
type ColorConfig struct {
	Message       string `toml:"message" json:"message"`
	Whisper       string `toml:"whisper" json:"whisper"`
	Emote         string `toml:"emote" json:"emote"`
	Nickname      string `toml:"nickname" json:"nickname"`
	SelfNickname  string `toml:"self_nickname" json:"self_nickname"`
	Warning       string `toml:"warning" json:"warning"`
	Server        string `toml:"server" json:"server"`
	Client        string `toml:"client" json:"client"`
	Timestamp     string `toml:"timestamp" json:"timestamp"`
	ModNickname   string `toml:"mod_nickname" json:"mod_nickname"`
	AdminNickname string `toml:"admin_nickname" json:"admin_nickname"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		TripPassword:     "",
		WebsocketAddress: "wss://hack.chat/chat-ws",
		Proxy:            "",

		HighlightTheme:  "monokai",
		PromptString:    "default",
		TimestampFormat: "15:04",
		SuggestAggr:     1,
		BackticksBG:     238,

		Colors: ColorConfig{
			Message:       "white",
			Whisper:       "green",
			Emote:         "green",
			Nickname:      "blue",
			SelfNickname:  "magenta",
			Warning:       "yellow",
			Server:        "green",
			Client:        "green",
			Timestamp:     "white",
			ModNickname:   "cyan",
			AdminNickname: "red",
		},

		ArchivePath: "", // resolved to ~/.driftchat/archive.db when enabled

		Ignored: roster.Rules{Trips: []string{}, Hashes: []string{}},
		Aliases: map[string]string{},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// Dir returns the driftchat configuration directory path.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".driftchat"), nil
}

// PathTOML returns the path to the default TOML config file.
func PathTOML() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// PathJSON returns the path to the default JSON config file.
func PathJSON() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureDir ensures the config directory exists.
func EnsureDir() error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// DefaultArchivePath returns the archive database location used when
// archive_path is left empty.
func DefaultArchivePath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "archive.db"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the default locations, TOML first, then
// JSON, then built-in defaults. Env overrides are applied last, before
// validation. Returns the config and the path it was loaded from (empty
// when running on defaults).
func Load() (*Config, string, error) {
	cfg := Default()

	if path, err := PathTOML(); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			if err := loadFile(cfg, path); err != nil {
				return nil, "", err
			}
			return finish(cfg, path)
		}
	}

	if path, err := PathJSON(); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			if err := loadFile(cfg, path); err != nil {
				return nil, "", err
			}
			return finish(cfg, path)
		}
	}

	return finish(cfg, "")
}

// LoadFromPath loads configuration from a specific file.
func LoadFromPath(path string) (*Config, string, error) {
	cfg := Default()
	if err := loadFile(cfg, path); err != nil {
		return nil, "", err
	}
	return finish(cfg, path)
}

func loadFile(cfg *Config, path string) error {
	if strings.HasSuffix(path, ".json") {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to decode JSON config: %w", err)
		}
		return nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML config: %w", err)
	}
	return nil
}

func finish(cfg *Config, path string) (*Config, string, error) {
	cfg.ApplyEnvOverrides()
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid config: %w", err)
	}
	return cfg, path, nil
}

// ApplyEnvOverrides applies DRIFTCHAT_* environment variables over the
// loaded values.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("DRIFTCHAT_ADDRESS"); v != "" {
		c.WebsocketAddress = v
	}
	if v := os.Getenv("DRIFTCHAT_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("DRIFTCHAT_TRIP_PASSWORD"); v != "" {
		c.TripPassword = v
	}
}

// fillDefaults backfills zero values left by a sparse config file.
func (c *Config) fillDefaults() {
	defaults := Default()

	if c.WebsocketAddress == "" {
		c.WebsocketAddress = defaults.WebsocketAddress
	}
	if c.HighlightTheme == "" {
		c.HighlightTheme = defaults.HighlightTheme
	}
	if c.PromptString == "" {
		c.PromptString = defaults.PromptString
	}
	if c.TimestampFormat == "" {
		c.TimestampFormat = defaults.TimestampFormat
	}

	dc := defaults.Colors
	fill := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	fill(&c.Colors.Message, dc.Message)
	fill(&c.Colors.Whisper, dc.Whisper)
	fill(&c.Colors.Emote, dc.Emote)
	fill(&c.Colors.Nickname, dc.Nickname)
	fill(&c.Colors.SelfNickname, dc.SelfNickname)
	fill(&c.Colors.Warning, dc.Warning)
	fill(&c.Colors.Server, dc.Server)
	fill(&c.Colors.Client, dc.Client)
	fill(&c.Colors.Timestamp, dc.Timestamp)
	fill(&c.Colors.ModNickname, dc.ModNickname)
	fill(&c.Colors.AdminNickname, dc.AdminNickname)

	if c.Ignored.Trips == nil {
		c.Ignored.Trips = []string{}
	}
	if c.Ignored.Hashes == nil {
		c.Ignored.Hashes = []string{}
	}
	if c.Aliases == nil {
		c.Aliases = map[string]string{}
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes the configuration back to path atomically with 0600
// permissions. The format follows the file extension; identity fields
// are excluded by their struct tags.
func Save(cfg *Config, path string) error {
	if path == "" {
		return fmt.Errorf("no config file loaded")
	}

	var data []byte
	var err error
	if strings.HasSuffix(path, ".json") {
		data, err = json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
	} else {
		var sb strings.Builder
		sb.WriteString("# driftchat configuration file\n")
		sb.WriteString("# Generated by driftchat - edit with care\n\n")
		if err := toml.NewEncoder(&sb).Encode(cfg); err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		data = []byte(sb.String())
	}

	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError reports one invalid configuration value.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NicknamePattern is the accepted nickname shape: letters, digits and
// underscores, 1-24 characters.
var NicknamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{1,24}$`)

// ValidNickname reports whether a nickname matches the accepted shape.
func ValidNickname(nick string) bool {
	return NicknamePattern.MatchString(nick)
}

// namedColors are the color names accepted for the per-element colors,
// matching the standard ANSI palette.
var namedColors = map[string]bool{
	"black": true, "red": true, "green": true, "yellow": true,
	"blue": true, "magenta": true, "cyan": true, "white": true,
	"grey": true, "gray": true,
}

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// ColorNames returns the accepted ANSI color names, sorted.
func ColorNames() []string {
	names := make([]string, 0, len(namedColors))
	for name := range namedColors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidColor reports whether a value is a usable color: an ANSI name, a
// hex value, or a 256-palette index.
func ValidColor(value string) bool {
	if namedColors[strings.ToLower(value)] {
		return true
	}
	if hexColor.MatchString(value) {
		return true
	}
	if n, err := strconv.Atoi(value); err == nil {
		return n >= 0 && n <= 255
	}
	return false
}

// ValidProxy reports whether a proxy spec matches scheme:host:port with
// a supported scheme.
func ValidProxy(value string) bool {
	parts := strings.SplitN(value, ":", 3)
	if len(parts) != 3 || parts[1] == "" {
		return false
	}
	switch strings.ToLower(parts[0]) {
	case "socks5", "socks5h", "socks4", "http", "https":
	default:
		return false
	}
	port, err := strconv.Atoi(parts[2])
	return err == nil && port > 0 && port <= 65535
}

// Validate checks the whole configuration.
func (c *Config) Validate() error {
	if c.Nickname != "" && !ValidNickname(c.Nickname) {
		return ValidationError{"nickname", "must consist of up to 24 letters, numbers, and underscores"}
	}

	if !strings.HasPrefix(c.WebsocketAddress, "ws://") && !strings.HasPrefix(c.WebsocketAddress, "wss://") {
		return ValidationError{"websocket_address", "must be a ws:// or wss:// URL"}
	}

	if c.Proxy != "" && !ValidProxy(c.Proxy) {
		return ValidationError{"proxy", "must be TYPE:HOST:PORT with a socks or http scheme"}
	}

	if c.SuggestAggr < 0 || c.SuggestAggr > 3 {
		return ValidationError{"suggest_aggr", "must be between 0 and 3"}
	}

	if c.BackticksBG < 0 || c.BackticksBG > 255 {
		return ValidationError{"backticks_bg", "must be between 0 and 255"}
	}

	colors := map[string]string{
		"colors.message":        c.Colors.Message,
		"colors.whisper":        c.Colors.Whisper,
		"colors.emote":          c.Colors.Emote,
		"colors.nickname":       c.Colors.Nickname,
		"colors.self_nickname":  c.Colors.SelfNickname,
		"colors.warning":        c.Colors.Warning,
		"colors.server":         c.Colors.Server,
		"colors.client":         c.Colors.Client,
		"colors.timestamp":      c.Colors.Timestamp,
		"colors.mod_nickname":   c.Colors.ModNickname,
		"colors.admin_nickname": c.Colors.AdminNickname,
	}
	for field, value := range colors {
		if !ValidColor(value) {
			return ValidationError{field, fmt.Sprintf("unknown color %q", value)}
		}
	}

	return nil
}
