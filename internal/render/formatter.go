// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/driftchat/internal/config"
	"github.com/jeranaias/driftchat/internal/protocol"
)

// =============================================================================
// FORMATTER
// =============================================================================

// NoTrip is shown in the trip column for users whose tripcode is absent
// or too short to be real.
const NoTrip = "NOTRIP"

// fieldWidth is the width of the column between the pipes. Real trips
// are six characters, as are the CLIENT, SERVER, and !WARN! tags.
const fieldWidth = 6

// Formatter renders chat events as styled terminal lines.
type Formatter struct {
	timestampLayout string
	noUnicode       bool

	timestamp lipgloss.Style
	message   lipgloss.Style
	whisper   lipgloss.Style
	emote     lipgloss.Style
	warning   lipgloss.Style
	server    lipgloss.Style
	client    lipgloss.Style

	nickname      lipgloss.Style
	selfNickname  lipgloss.Style
	modNickname   lipgloss.Style
	adminNickname lipgloss.Style

	markdown *markdownRenderer
}

// UpdatableState tags the lifecycle phase shown next to a streaming
// message's display id.
type UpdatableState int

const (
	NotUpdatable UpdatableState = iota
	UpdatablePending
	UpdatableCompleted
	UpdatableExpired
)

// ChatLine is one public chat message ready for display.
type ChatLine struct {
	Nick        string
	Trip        string
	Type        protocol.UserType
	Self        bool
	Text        string
	UpdatableID string
	Updatable   UpdatableState
}

// NewFormatter builds a formatter from the active configuration.
func NewFormatter(cfg config.Config) *Formatter {
	style := func(color string) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(resolveColor(color))
	}

	f := &Formatter{
		timestampLayout: cfg.TimestampFormat,
		noUnicode:       cfg.NoUnicode,

		timestamp: style(cfg.Colors.Timestamp),
		message:   style(cfg.Colors.Message),
		whisper:   style(cfg.Colors.Whisper),
		emote:     style(cfg.Colors.Emote),
		warning:   style(cfg.Colors.Warning),
		server:    style(cfg.Colors.Server),
		client:    style(cfg.Colors.Client),

		nickname:      style(cfg.Colors.Nickname),
		selfNickname:  style(cfg.Colors.SelfNickname),
		modNickname:   style(cfg.Colors.ModNickname),
		adminNickname: style(cfg.Colors.AdminNickname),
	}

	if !cfg.NoMarkdown {
		f.markdown = newMarkdownRenderer(cfg.HighlightTheme, cfg.BackticksBG, f.client)
	}
	return f
}

// DisplayTrip maps a raw tripcode to its display form. Admins show
// "Admin" regardless of trip; anything shorter than six characters
// shows the NoTrip sentinel.
func DisplayTrip(trip string, utype protocol.UserType) string {
	if utype == protocol.TypeAdmin {
		return "Admin"
	}
	if len(trip) < 6 {
		return NoTrip
	}
	return trip
}

// nickStyle picks the nickname color. The local user's own color wins
// over role colors.
func (f *Formatter) nickStyle(utype protocol.UserType, self bool) lipgloss.Style {
	if self {
		return f.selfNickname
	}
	switch utype {
	case protocol.TypeAdmin:
		return f.adminNickname
	case protocol.TypeMod:
		return f.modNickname
	default:
		return f.nickname
	}
}

// badge prefixes elevated users with a star unless unicode is off.
func (f *Formatter) badge(nick string, utype protocol.UserType) string {
	if f.noUnicode || utype == protocol.TypeUser {
		return nick
	}
	return "⭐ " + nick
}

// prefix builds the shared "timestamp|field| " head of every line.
func (f *Formatter) prefix(t time.Time, field string, fieldStyle lipgloss.Style) string {
	padded := runewidth.FillRight(field, fieldWidth)
	return f.timestamp.Render(t.Format(f.timestampLayout)) + "|" + fieldStyle.Render(padded) + "| "
}

// body runs message text through the markdown pipeline when enabled.
func (f *Formatter) body(text string, base lipgloss.Style) string {
	if f.markdown != nil {
		text = f.markdown.inline(text, base)
	}
	return base.Render(text)
}

// =============================================================================
// LINE BUILDERS
// =============================================================================

// Chat renders a public chat message.
func (f *Formatter) Chat(t time.Time, line ChatLine) string {
	style := f.nickStyle(line.Type, line.Self)
	trip := DisplayTrip(line.Trip, line.Type)
	nick := f.badge(line.Nick, line.Type)

	head := f.prefix(t, trip, style)
	if line.Updatable != NotUpdatable || line.UpdatableID != "" {
		tag := f.updatableTag(line)
		return head + fmt.Sprintf("[%s] [%s] %s", tag, style.Render(nick), f.body(line.Text, f.message))
	}
	return head + fmt.Sprintf("[%s] %s", style.Render(nick), f.body(line.Text, f.message))
}

// updatableTag renders the lifecycle marker shown before the nickname
// of a streaming message.
func (f *Formatter) updatableTag(line ChatLine) string {
	if f.noUnicode {
		switch line.Updatable {
		case UpdatableCompleted:
			return "Completed.ID: " + line.UpdatableID
		case UpdatableExpired:
			return "Expired.ID: " + line.UpdatableID
		default:
			return "Updatable.ID: " + line.UpdatableID
		}
	}
	switch line.Updatable {
	case UpdatableCompleted:
		return "✓ " + line.UpdatableID
	case UpdatableExpired:
		return "✗ " + line.UpdatableID
	default:
		return "⧗ " + line.UpdatableID
	}
}

// Whisper renders an incoming or outgoing private message. The text
// already carries the "x whispered:" framing from the server.
func (f *Formatter) Whisper(t time.Time, trip, text string) string {
	if len(trip) < 6 {
		trip = NoTrip
	}
	return f.prefix(t, trip, f.whisper) + f.body(text, f.whisper)
}

// Emote renders a third-person action line.
func (f *Formatter) Emote(t time.Time, trip, text string) string {
	if len(trip) < 6 {
		trip = NoTrip
	}
	return f.prefix(t, trip, f.emote) + f.body(text, f.emote)
}

// Warn renders a server warning.
func (f *Formatter) Warn(t time.Time, text string) string {
	return f.prefix(t, "!WARN!", f.warning) + f.warning.Render(text)
}

// Server renders a server informational line.
func (f *Formatter) Server(t time.Time, text string) string {
	return f.prefix(t, "SERVER", f.server) + f.server.Render(text)
}

// Client renders a line generated by the client itself.
func (f *Formatter) Client(t time.Time, text string) string {
	return f.prefix(t, "CLIENT", f.client) + f.client.Render(text)
}

// Document renders a multi-line markdown document, used for help and
// profile output. Falls back to the raw text when markdown is off or
// the renderer is unavailable.
func (f *Formatter) Document(md string) string {
	if f.markdown == nil {
		return md
	}
	return f.markdown.document(md)
}
