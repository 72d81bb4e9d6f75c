// driftchat - A terminal client for hack.chat.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/driftchat/internal/cli"
	"github.com/jeranaias/driftchat/internal/commands"
	"github.com/jeranaias/driftchat/internal/config"
	"github.com/jeranaias/driftchat/internal/notify"
	"github.com/jeranaias/driftchat/internal/output"
	"github.com/jeranaias/driftchat/internal/render"
	"github.com/jeranaias/driftchat/internal/roster"
	"github.com/jeranaias/driftchat/internal/session"
	"github.com/jeranaias/driftchat/internal/storage"
	"github.com/jeranaias/driftchat/internal/transport"
)

// Version information (set at build time)
var (
	Version   = "1.0.0"
	GitCommit = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	args, err := cli.ParseArgs(os.Args[1:])
	if errors.Is(err, cli.ErrShowUsage) {
		fmt.Println(cli.Usage)
		return 0
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "driftchat:", err)
		return 2
	}

	switch {
	case args.ShowVersion:
		fmt.Printf("driftchat %s (%s)\n", Version, GitCommit)
		return 0
	case args.ShowDefaults:
		fmt.Print(config.NewStore(config.Default(), "").Dump())
		return 0
	case args.ShowColors:
		fmt.Println("Valid colors:")
		for _, name := range config.ColorNames() {
			fmt.Println(" ", name)
		}
		fmt.Println("Hex values (#rrggbb) and 256-palette indices (0-255) also work.")
		return 0
	case args.ShowThemes:
		fmt.Println("Valid themes:")
		for _, name := range render.HighlightThemes() {
			fmt.Println(" ", name)
		}
		return 0
	case args.GenConfig:
		return genConfig()
	}

	cfg, path, err := loadConfig(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "driftchat:", err)
		return 1
	}
	args.Apply(cfg)

	if err := resolveIdentity(cfg); err != nil {
		fmt.Fprintln(os.Stderr, "driftchat:", err)
		return 1
	}

	if err := runClient(cfg, path); err != nil {
		fmt.Fprintln(os.Stderr, "driftchat:", err)
		return 1
	}
	return 0
}

// loadConfig picks the config source: an explicit file, the default
// locations, or built-in defaults when --no-config is set.
func loadConfig(args *cli.Args) (*config.Config, string, error) {
	if args.NoConfig {
		return config.Default(), "", nil
	}
	if args.ConfigFile != "" {
		return config.LoadFromPath(args.ConfigFile)
	}
	return config.Load()
}

// genConfig writes a default config file and reports where it went.
func genConfig() int {
	if err := config.EnsureDir(); err != nil {
		fmt.Fprintln(os.Stderr, "driftchat:", err)
		return 1
	}
	path, err := config.PathTOML()
	if err != nil {
		fmt.Fprintln(os.Stderr, "driftchat:", err)
		return 1
	}
	if err := config.Save(config.Default(), path); err != nil {
		fmt.Fprintln(os.Stderr, "driftchat:", err)
		return 1
	}
	fmt.Println("Config file generated at", path)
	return 0
}

// resolveIdentity fills in channel and nickname, prompting on a
// terminal when flags left them empty.
func resolveIdentity(cfg *config.Config) error {
	reader := bufio.NewReader(os.Stdin)
	prompt := func(label string) (string, error) {
		if !cli.IsTTY() {
			return "", fmt.Errorf("%s required, pass it as a flag", label)
		}
		fmt.Printf("%s: ", label)
		value, err := reader.ReadString('\n')
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(value), nil
	}

	var err error
	if cfg.Channel == "" {
		if cfg.Channel, err = prompt("Channel"); err != nil {
			return err
		}
	}
	if cfg.Nickname == "" {
		if cfg.Nickname, err = prompt("Nickname"); err != nil {
			return err
		}
	}

	if cfg.Channel == "" {
		return fmt.Errorf("channel cannot be empty")
	}
	if !config.ValidNickname(cfg.Nickname) {
		return fmt.Errorf("nickname must consist of up to 24 letters, numbers, and underscores")
	}
	return nil
}

// runClient assembles the session and blocks on the input loop.
func runClient(cfg *config.Config, path string) error {
	// Degrade every styled line for NO_COLOR and non-TTY output before
	// the first formatter is built.
	lipgloss.SetColorProfile(cli.ColorProfile())

	store := config.NewStore(cfg, path)
	sink := output.NewSink(os.Stdout)
	users := roster.New(cfg.Ignored)
	notifier := notify.ForConfig(cfg.NoNotify)

	if cfg.ArchiveEnabled {
		archivePath := cfg.ArchivePath
		if archivePath == "" {
			var err error
			if archivePath, err = config.DefaultArchivePath(); err != nil {
				return err
			}
		}
		archive, err := storage.Open(archivePath, cfg.Channel)
		if err != nil {
			return fmt.Errorf("failed to open archive: %w", err)
		}
		defer archive.Close()
		sink.SetArchiver(archive)
	}

	dial := func(ctx context.Context) (session.Conn, error) {
		snap := store.Snapshot()
		return transport.Dial(ctx, snap.WebsocketAddress, snap.Proxy)
	}
	engine := session.New(store, sink, notifier, users, dial)

	cmdCtx := &commands.Context{
		Engine: engine,
		Store:  store,
		Sink:   sink,
		Formatter: func() *render.Formatter {
			return render.NewFormatter(store.Snapshot())
		},
	}
	dispatcher := commands.NewDispatcher(cmdCtx)

	// Live-reload the config file; an edit swaps the formatter in place.
	if path != "" {
		err := store.Watch(
			func() {
				engine.SetFormatter(render.NewFormatter(store.Snapshot()))
				engine.ClientLine("Configuration reloaded")
			},
			func(err error) {
				engine.ClientLine(fmt.Sprintf("Configuration reload failed: %v", err))
			},
		)
		if err == nil {
			defer store.CloseWatch()
		}
	}

	if cfg.ClearOnStart {
		sink.EmitTransient("\033[2J\033[H")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	engine.Start(ctx)
	defer engine.Stop()

	loop := cli.NewLoop(store, sink, engine, dispatcher)
	return loop.Run()
}
