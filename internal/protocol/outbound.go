// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package protocol

import "encoding/json"

// =============================================================================
// OUTBOUND FRAMES
// =============================================================================

// Outbound frames are plain structs with a fixed cmd tag. The send path
// marshals whatever it is given, so /raw can inject arbitrary decoded
// JSON without going through these constructors.

// Join requests entry into a channel. Nick carries the trip password as
// "nickname#password"; the separator is sent even with an empty
// password.
type Join struct {
	Cmd     string `json:"cmd"`
	Channel string `json:"channel"`
	Nick    string `json:"nick"`
}

// NewJoin builds a join frame.
func NewJoin(channel, nick, tripPassword string) Join {
	return Join{Cmd: "join", Channel: channel, Nick: nick + "#" + tripPassword}
}

// ChatSend publishes a chat message.
type ChatSend struct {
	Cmd  string `json:"cmd"`
	Text string `json:"text"`
}

// NewChat builds a chat frame.
func NewChat(text string) ChatSend {
	return ChatSend{Cmd: "chat", Text: text}
}

// Ping is the keepalive frame.
type Ping struct {
	Cmd string `json:"cmd"`
}

// NewPing builds a ping frame.
func NewPing() Ping {
	return Ping{Cmd: "ping"}
}

// ChangeNick asks the server to rename the local user.
type ChangeNick struct {
	Cmd  string `json:"cmd"`
	Nick string `json:"nick"`
}

// NewChangeNick builds a changenick frame.
func NewChangeNick(nick string) ChangeNick {
	return ChangeNick{Cmd: "changenick", Nick: nick}
}

// Help requests the server help text, optionally for one command.
type Help struct {
	Cmd     string `json:"cmd"`
	Command string `json:"command,omitempty"`
}

// NewHelp builds a help frame.
func NewHelp(command string) Help {
	return Help{Cmd: "help", Command: command}
}

// Encode marshals an outbound frame (or any /raw payload) to the wire
// representation.
func Encode(frame any) ([]byte, error) {
	return json.Marshal(frame)
}
