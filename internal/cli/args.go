// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// args.go - Command-line argument parsing for driftchat.
//
// Flags override config file values, which override the built-in
// defaults. Channel and nickname are the only required inputs; when
// absent and stdin is a terminal, they are prompted for instead.

package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jeranaias/driftchat/internal/config"
)

// =============================================================================
// PARSED ARGUMENTS
// =============================================================================

// Args is the parsed command line.
type Args struct {
	// Session identity
	Channel  string
	Nickname string

	// Modes that short-circuit the client
	ShowVersion  bool
	ShowDefaults bool
	ShowColors   bool
	ShowThemes   bool
	GenConfig    bool

	// Config file handling
	ConfigFile string
	NoConfig   bool

	// Overrides applied on top of the loaded config. Only flags the
	// user actually passed are recorded.
	overrides []func(*config.Config)
}

// Apply copies the flag overrides onto a loaded config.
func (a *Args) Apply(cfg *config.Config) {
	cfg.Channel = a.Channel
	cfg.Nickname = a.Nickname
	for _, o := range a.overrides {
		o(cfg)
	}
}

// =============================================================================
// PARSING
// =============================================================================

// Usage is the help text printed for -h/--help.
const Usage = `usage: driftchat -c CHANNEL -n NICKNAME [options]

commands:
  -h, --help               display this help message
  -v, --version            display version information
  --gen-config             generate a config file
  --defaults               display default config values
  --colors                 display valid color values
  --themes                 display valid highlight themes

required arguments:
  -c, --channel CHANNEL    set channel to join
  -n, --nickname NICKNAME  set nickname to use

optional arguments:
  -p, --password PASSWORD  specify tripcode password
  -w, --websocket ADDRESS  specify alternate websocket
  -l, --load-config FILE   specify config file to load
  --no-config              ignore global config file
  --no-parse               log received packets as JSON
  --clear                  clear console before joining
  --is-mod                 enable moderator commands
  --no-unicode             disable unicode UI elements
  --no-markdown            disable markdown formatting
  --no-notify              disable desktop notifications
  --highlight-theme THEME  set highlight theme
  --backticks-bg 0-255     set backticks background color
  --prompt-string STRING   set custom prompt string
  --timestamp-format FMT   set timestamp format
  --suggest-aggr 0-3       set suggestion aggressiveness
  --proxy TYPE:HOST:PORT   specify proxy to use
  --archive                enable the message archive`

// ErrShowUsage is returned when the user asked for help.
var ErrShowUsage = errors.New("usage requested")

// ParseArgs parses the raw command line (without the program name).
func ParseArgs(raw []string) (*Args, error) {
	args := &Args{}

	override := func(fn func(*config.Config)) {
		args.overrides = append(args.overrides, fn)
	}

	takeValue := func(i *int, name string) (string, error) {
		// Accept both "--flag value" and "--flag=value".
		if eq := strings.IndexByte(raw[*i], '='); eq >= 0 {
			return raw[*i][eq+1:], nil
		}
		*i++
		if *i >= len(raw) {
			return "", fmt.Errorf("%s requires a value", name)
		}
		return raw[*i], nil
	}

	for i := 0; i < len(raw); i++ {
		arg := raw[i]
		name := arg
		if eq := strings.IndexByte(arg, '='); eq >= 0 {
			name = arg[:eq]
		}

		switch name {
		case "-h", "--help":
			return nil, ErrShowUsage
		case "-v", "--version":
			args.ShowVersion = true
		case "--gen-config":
			args.GenConfig = true
		case "--defaults":
			args.ShowDefaults = true
		case "--colors":
			args.ShowColors = true
		case "--themes":
			args.ShowThemes = true

		case "-c", "--channel":
			v, err := takeValue(&i, name)
			if err != nil {
				return nil, err
			}
			args.Channel = v
		case "-n", "--nickname":
			v, err := takeValue(&i, name)
			if err != nil {
				return nil, err
			}
			args.Nickname = v
		case "-l", "--load-config":
			v, err := takeValue(&i, name)
			if err != nil {
				return nil, err
			}
			args.ConfigFile = v
		case "--no-config":
			args.NoConfig = true

		case "-p", "--password":
			v, err := takeValue(&i, name)
			if err != nil {
				return nil, err
			}
			override(func(c *config.Config) { c.TripPassword = v })
		case "-w", "--websocket":
			v, err := takeValue(&i, name)
			if err != nil {
				return nil, err
			}
			override(func(c *config.Config) { c.WebsocketAddress = v })
		case "--proxy":
			v, err := takeValue(&i, name)
			if err != nil {
				return nil, err
			}
			override(func(c *config.Config) { c.Proxy = v })
		case "--highlight-theme":
			v, err := takeValue(&i, name)
			if err != nil {
				return nil, err
			}
			override(func(c *config.Config) { c.HighlightTheme = v })
		case "--prompt-string":
			v, err := takeValue(&i, name)
			if err != nil {
				return nil, err
			}
			override(func(c *config.Config) { c.PromptString = v })
		case "--timestamp-format":
			v, err := takeValue(&i, name)
			if err != nil {
				return nil, err
			}
			override(func(c *config.Config) { c.TimestampFormat = v })
		case "--suggest-aggr":
			v, err := takeValue(&i, name)
			if err != nil {
				return nil, err
			}
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("--suggest-aggr must be a number")
			}
			override(func(c *config.Config) { c.SuggestAggr = n })
		case "--backticks-bg":
			v, err := takeValue(&i, name)
			if err != nil {
				return nil, err
			}
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("--backticks-bg must be a number")
			}
			override(func(c *config.Config) { c.BackticksBG = n })

		case "--no-parse":
			override(func(c *config.Config) { c.NoParse = true })
		case "--clear":
			override(func(c *config.Config) { c.ClearOnStart = true })
		case "--is-mod":
			override(func(c *config.Config) { c.IsMod = true })
		case "--no-unicode":
			override(func(c *config.Config) { c.NoUnicode = true })
		case "--no-markdown":
			override(func(c *config.Config) { c.NoMarkdown = true })
		case "--no-notify":
			override(func(c *config.Config) { c.NoNotify = true })
		case "--archive":
			override(func(c *config.Config) { c.ArchiveEnabled = true })

		default:
			return nil, fmt.Errorf("unknown argument: %s", arg)
		}
	}

	return args, nil
}
