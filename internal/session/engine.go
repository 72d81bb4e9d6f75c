// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/driftchat/internal/config"
	"github.com/jeranaias/driftchat/internal/notify"
	"github.com/jeranaias/driftchat/internal/output"
	"github.com/jeranaias/driftchat/internal/protocol"
	"github.com/jeranaias/driftchat/internal/render"
	"github.com/jeranaias/driftchat/internal/roster"
	"github.com/jeranaias/driftchat/internal/updatable"
)

// =============================================================================
// STATES AND TIMING
// =============================================================================

// State is the connection lifecycle phase.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateJoined
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateJoined:
		return "joined"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

const (
	// ReconnectDelay is how long after an unexpected disconnect the
	// automatic reconnect fires.
	ReconnectDelay = 60 * time.Second

	// HeartbeatInterval is the keepalive ping cadence.
	HeartbeatInterval = 60 * time.Second

	// SweepInterval is how often idle updatable messages are expired.
	SweepInterval = 30 * time.Second
)

// Outbound chat is token-bucket limited; the server kicks clients that
// flood.
const (
	chatRate  = rate.Limit(2)
	chatBurst = 4
)

// =============================================================================
// CONNECTION ABSTRACTION
// =============================================================================

// Conn is the wire connection the engine drives. Satisfied by
// transport.Conn; tests substitute a scripted implementation.
type Conn interface {
	ReadFrame() ([]byte, error)
	WriteJSON(v any) error
	Close() error
}

// DialFunc opens a new connection.
type DialFunc func(ctx context.Context) (Conn, error)

// =============================================================================
// ENGINE
// =============================================================================

// Engine owns the chat session: the connection, the roster, the
// updatable store, and the background keepalive and sweep loops.
type Engine struct {
	store    *config.Store
	sink     *output.Sink
	notifier notify.Notifier
	dial     DialFunc

	roster     *roster.Roster
	updatables *updatable.Store
	limiter    *rate.Limiter

	fmtr atomic.Pointer[render.Formatter]

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu             sync.Mutex
	conn           Conn
	state          State
	nick           string
	channel        string
	whisperLock    bool
	reconnectTimer *time.Timer
	manual         bool
	recvDone       chan struct{}
}

// New assembles an engine. Start must be called before any send.
func New(store *config.Store, sink *output.Sink, notifier notify.Notifier, ros *roster.Roster, dial DialFunc) *Engine {
	cfg := store.Snapshot()
	e := &Engine{
		store:      store,
		sink:       sink,
		notifier:   notifier,
		dial:       dial,
		roster:     ros,
		updatables: updatable.NewStore(),
		limiter:    rate.NewLimiter(chatRate, chatBurst),
		nick:       cfg.Nickname,
		channel:    cfg.Channel,
	}
	e.fmtr.Store(render.NewFormatter(cfg))
	return e
}

// SetFormatter swaps the line formatter, typically after a config
// change.
func (e *Engine) SetFormatter(f *render.Formatter) {
	e.fmtr.Store(f)
}

func (e *Engine) formatter() *render.Formatter {
	return e.fmtr.Load()
}

// Start launches the keepalive and sweep loops and opens the first
// connection.
func (e *Engine) Start(ctx context.Context) {
	e.ctx, e.cancel = context.WithCancel(ctx)

	e.wg.Add(2)
	go e.heartbeatLoop()
	go e.sweepLoop()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.runConnection()
	}()
}

// Stop tears the session down and waits for all goroutines.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.reconnectTimer != nil {
		e.reconnectTimer.Stop()
		e.reconnectTimer = nil
	}
	conn := e.conn
	e.mu.Unlock()

	if e.cancel != nil {
		e.cancel()
	}
	if conn != nil {
		conn.Close()
	}
	e.wg.Wait()
}

// =============================================================================
// ACCESSORS
// =============================================================================

// State returns the current lifecycle phase.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Nick returns the local nickname.
func (e *Engine) Nick() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.nick
}

// SetNick records a local rename. The server frame is sent separately.
func (e *Engine) SetNick(nick string) {
	e.mu.Lock()
	e.nick = nick
	e.mu.Unlock()
}

// Channel returns the channel confirmed by the last join snapshot.
func (e *Engine) Channel() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.channel
}

// Roster exposes the online user roster.
func (e *Engine) Roster() *roster.Roster {
	return e.roster
}

// WhisperLock reports whether non-whisper sends are currently blocked.
func (e *Engine) WhisperLock() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.whisperLock
}

// ToggleWhisperLock flips the whisper lock and returns the new value.
func (e *Engine) ToggleWhisperLock() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.whisperLock = !e.whisperLock
	return e.whisperLock
}

// =============================================================================
// SENDING
// =============================================================================

func (e *Engine) connected() (Conn, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.conn == nil || e.state == StateDisconnected {
		return nil, false
	}
	return e.conn, true
}

// notConnectedNotice is printed for any send attempted while offline.
func (e *Engine) notConnectedNotice() {
	e.ClientLine("Can't send packet, not connected to server. Run `/reconnect`")
}

// SendChat publishes a chat message, subject to the rate limiter.
func (e *Engine) SendChat(text string) {
	conn, ok := e.connected()
	if !ok {
		e.notConnectedNotice()
		return
	}
	if !e.limiter.Allow() {
		e.ClientLine("Sending too fast, message dropped")
		return
	}
	if err := conn.WriteJSON(protocol.NewChat(text)); err != nil {
		e.ClientLine(fmt.Sprintf("Error sending packet: %v", err))
	}
}

// SendFrame sends an arbitrary outbound frame. Used by commands and raw
// passthrough; not rate limited.
func (e *Engine) SendFrame(frame any) {
	conn, ok := e.connected()
	if !ok {
		e.notConnectedNotice()
		return
	}
	if err := conn.WriteJSON(frame); err != nil {
		e.ClientLine(fmt.Sprintf("Error sending packet: %v", err))
	}
}

// ClientLine prints a client-origin notice line.
func (e *Engine) ClientLine(text string) {
	e.sink.Emit(e.formatter().Client(time.Now(), text))
}

// ServerLine prints a server-origin notice line.
func (e *Engine) ServerLine(text string) {
	e.sink.Emit(e.formatter().Server(time.Now(), text))
}

// =============================================================================
// CONNECTION LIFECYCLE
// =============================================================================

// runConnection dials, joins, and pumps frames until the connection
// drops, then decides whether to schedule an automatic reconnect.
func (e *Engine) runConnection() {
	cfg := e.store.Snapshot()

	status := fmt.Sprintf("Connecting to %s...", cfg.WebsocketAddress)
	if cfg.Proxy != "" {
		status = fmt.Sprintf("Connecting to %s through proxy %s...", cfg.WebsocketAddress, cfg.Proxy)
	}
	e.ClientLine(status)

	e.mu.Lock()
	e.state = StateConnecting
	done := make(chan struct{})
	e.recvDone = done
	e.mu.Unlock()
	defer close(done)

	conn, err := e.dial(e.ctx)
	if err != nil {
		e.onDisconnect(err)
		return
	}

	e.mu.Lock()
	e.conn = conn
	e.mu.Unlock()

	nick := e.Nick()
	if err := conn.WriteJSON(protocol.NewJoin(cfg.Channel, nick, cfg.TripPassword)); err != nil {
		conn.Close()
		e.onDisconnect(err)
		return
	}

	for {
		raw, err := conn.ReadFrame()
		if err != nil {
			e.onDisconnect(err)
			return
		}
		e.handleRaw(raw, time.Now())
	}
}

// onDisconnect resets per-connection state and arms the reconnect
// timer, unless a manual reconnect is already driving the cycle.
func (e *Engine) onDisconnect(err error) {
	e.mu.Lock()
	e.conn = nil
	e.state = StateDisconnected
	e.channel = ""
	manual := e.manual
	e.mu.Unlock()

	e.roster.Reset()

	if manual || e.ctx.Err() != nil {
		return
	}

	e.ClientLine(fmt.Sprintf("Disconnected from server: %v", err))
	e.ClientLine("Reconnecting in 60 seconds, run `/reconnect` to do it immediately")

	e.mu.Lock()
	e.state = StateReconnecting
	e.reconnectTimer = time.AfterFunc(ReconnectDelay, e.timedReconnect)
	e.mu.Unlock()
}

// timedReconnect fires when the reconnect delay elapses. A manual
// /reconnect disarms the timer by clearing reconnectTimer; a callback
// that lost that race must not start a second connection cycle.
func (e *Engine) timedReconnect() {
	e.mu.Lock()
	if e.reconnectTimer == nil {
		e.mu.Unlock()
		return
	}
	e.reconnectTimer = nil
	e.mu.Unlock()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.runConnection()
	}()
}

// Reconnect tears down the current connection immediately and starts a
// fresh one, superseding any pending automatic reconnect.
func (e *Engine) Reconnect() {
	e.mu.Lock()
	if e.reconnectTimer != nil {
		e.reconnectTimer.Stop()
		e.reconnectTimer = nil
	}
	e.manual = true
	conn := e.conn
	done := e.recvDone
	e.mu.Unlock()

	e.ClientLine("Initiating reconnect...")

	if conn != nil {
		conn.Close()
	}
	if done != nil {
		<-done
	}

	e.mu.Lock()
	e.manual = false
	e.mu.Unlock()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.runConnection()
	}()
}

// =============================================================================
// BACKGROUND LOOPS
// =============================================================================

// heartbeatLoop pings the server on a fixed cadence for the lifetime of
// the process. Send failures are swallowed; the receive loop notices a
// dead connection soon enough.
func (e *Engine) heartbeatLoop() {
	defer e.wg.Done()
	ticker := time.NewTicker(HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if conn, ok := e.connected(); ok {
				_ = conn.WriteJSON(protocol.NewPing())
			}
		case <-e.ctx.Done():
			return
		}
	}
}

// sweepLoop expires idle updatable messages, printing their final text.
func (e *Engine) sweepLoop() {
	defer e.wg.Done()
	ticker := time.NewTicker(SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.sweepUpdatables(time.Now())
		case <-e.ctx.Done():
			return
		}
	}
}

func (e *Engine) sweepUpdatables(now time.Time) {
	for _, msg := range e.updatables.Sweep(now) {
		e.sink.Emit(e.formatter().Chat(now, render.ChatLine{
			Nick:        msg.Meta.Nick,
			Trip:        msg.Meta.Trip,
			Type:        msg.Meta.Type,
			Self:        msg.Meta.Self,
			Text:        msg.Text,
			UpdatableID: msg.DisplayID,
			Updatable:   render.UpdatableExpired,
		}))
	}
}

// =============================================================================
// INBOUND DISPATCH
// =============================================================================

// handleRaw decodes one wire frame and dispatches it. In raw
// passthrough mode the undecoded JSON is printed instead.
func (e *Engine) handleRaw(raw []byte, now time.Time) {
	cfg := e.store.Snapshot()

	if cfg.NoParse {
		e.sink.Emit("\n" + now.Format(cfg.TimestampFormat) + "|" + string(raw))
		return
	}

	frame, err := protocol.Decode(raw)
	if err != nil {
		// A malformed frame never mutates local state.
		return
	}
	e.handleFrame(frame, now)
}

func (e *Engine) handleFrame(frame protocol.Frame, now time.Time) {
	switch f := frame.(type) {
	case protocol.OnlineSet:
		e.handleOnlineSet(f, now)
	case protocol.OnlineAdd:
		e.handleOnlineAdd(f, now)
	case protocol.OnlineRemove:
		e.handleOnlineRemove(f, now)
	case protocol.Chat:
		e.handleChat(f, now)
	case protocol.UpdateMessage:
		e.handleUpdateMessage(f, now)
	case protocol.Info:
		e.handleInfo(f, now)
	case protocol.Emote:
		e.handleEmote(f, now)
	case protocol.Warn:
		e.handleWarn(f, now)
	case protocol.Unknown:
		// Tolerated silently outside raw mode.
	}
}

func (e *Engine) handleOnlineSet(f protocol.OnlineSet, now time.Time) {
	entries := make([]roster.Entry, 0, len(f.Users))
	for _, u := range f.Users {
		entries = append(entries, roster.FromUserInfo(u))
	}
	e.roster.ApplySnapshot(entries)

	channel := ""
	if len(f.Users) > 0 {
		channel = f.Users[0].Channel
	}

	e.mu.Lock()
	e.state = StateJoined
	if channel != "" {
		e.channel = channel
	}
	channel = e.channel
	e.mu.Unlock()

	e.sink.Emit(e.formatter().Server(now, fmt.Sprintf(
		"Channel: %s - Users: %s", channel, strings.Join(e.roster.Nicks(), ", "))))
}

func (e *Engine) handleOnlineAdd(f protocol.OnlineAdd, now time.Time) {
	e.roster.Add(roster.Entry{
		Nick: f.Nick,
		Trip: f.Trip,
		Type: protocol.LevelToType(f.Level),
		Hash: f.Hash,
	})
	e.sink.Emit(e.formatter().Server(now, f.Nick+" joined"))
}

func (e *Engine) handleOnlineRemove(f protocol.OnlineRemove, now time.Time) {
	e.roster.Remove(f.Nick)
	e.sink.Emit(e.formatter().Server(now, f.Nick+" left"))
}

func (e *Engine) handleChat(f protocol.Chat, now time.Time) {
	if e.roster.IsIgnored(f.Nick) {
		return
	}

	utype := protocol.LevelToType(f.Level)
	self := f.Nick == e.Nick()

	if !self && strings.Contains(f.Text, "@"+e.Nick()) {
		e.notifier.Push("driftchat", fmt.Sprintf("[%s] %s", f.Nick, f.Text))
	}

	line := render.ChatLine{
		Nick: f.Nick,
		Trip: f.Trip,
		Type: utype,
		Self: self,
		Text: f.Text,
	}

	if f.Updatable() {
		key := updatable.Key{UserID: f.UserID, CustomID: f.CustomID}
		line.UpdatableID = e.updatables.Begin(key, f.Text, updatable.Meta{
			Trip: f.Trip,
			Nick: f.Nick,
			Type: utype,
			Self: self,
		})
		line.Updatable = render.UpdatablePending
	}

	e.sink.Emit(e.formatter().Chat(now, line))
}

func (e *Engine) handleUpdateMessage(f protocol.UpdateMessage, now time.Time) {
	key := updatable.Key{UserID: f.UserID, CustomID: f.CustomID}

	if f.Mode != protocol.ModeComplete {
		e.updatables.Mutate(key, f.Mode, f.Text)
		return
	}

	msg, ok := e.updatables.Complete(key)
	if !ok {
		return
	}
	e.sink.Emit(e.formatter().Chat(now, render.ChatLine{
		Nick:        msg.Meta.Nick,
		Trip:        msg.Meta.Trip,
		Type:        msg.Meta.Type,
		Self:        msg.Meta.Self,
		Text:        msg.Text,
		UpdatableID: msg.DisplayID,
		Updatable:   render.UpdatableCompleted,
	}))
}

func (e *Engine) handleInfo(f protocol.Info, now time.Time) {
	if !f.Whisper() {
		e.sink.Emit(e.formatter().Server(now, f.Text))
		return
	}

	if e.roster.IsIgnored(f.From) {
		return
	}
	if e.roster.Online(f.From) {
		e.notifier.Push("driftchat", f.Text)
	}
	e.sink.Emit(e.formatter().Whisper(now, f.Trip, f.Text))
}

func (e *Engine) handleEmote(f protocol.Emote, now time.Time) {
	if e.roster.IsIgnored(f.Nick) {
		return
	}
	e.sink.Emit(e.formatter().Emote(now, f.Trip, f.Text))
}

func (e *Engine) handleWarn(f protocol.Warn, now time.Time) {
	e.sink.Emit(e.formatter().Warn(now, f.Text))
	if strings.HasPrefix(f.Text, "Nickname") {
		e.ClientLine("Try running `/nick <newnick>` and `/reconnect`")
	}
}

// =============================================================================
// RAW INPUT
// =============================================================================

// SendRaw decodes user-provided JSON and sends it verbatim.
func (e *Engine) SendRaw(rawJSON string) {
	var payload any
	if err := json.Unmarshal([]byte(rawJSON), &payload); err != nil {
		e.ClientLine(fmt.Sprintf("Error sending json: %v", err))
		return
	}
	e.SendFrame(payload)
}
