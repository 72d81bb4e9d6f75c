// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package protocol

import (
	"encoding/json"
	"fmt"
)

// =============================================================================
// USER LEVELS
// =============================================================================

// UserType is the role derived from the server's numeric level field.
type UserType int

const (
	TypeUser UserType = iota
	TypeMod
	TypeAdmin
)

// Server level values for the elevated roles.
const (
	levelMod   = 999999
	levelAdmin = 9999999
)

// LevelToType maps a numeric level from the server to a UserType.
func LevelToType(level int) UserType {
	switch level {
	case levelAdmin:
		return TypeAdmin
	case levelMod:
		return TypeMod
	default:
		return TypeUser
	}
}

// String returns the display name used in profiles and summaries.
func (t UserType) String() string {
	switch t {
	case TypeAdmin:
		return "Admin"
	case TypeMod:
		return "Mod"
	default:
		return "User"
	}
}

// =============================================================================
// UPDATE MODES
// =============================================================================

// UpdateMode describes how an updateMessage frame mutates an in-flight
// message.
type UpdateMode string

const (
	ModeOverwrite UpdateMode = "overwrite"
	ModeAppend    UpdateMode = "append"
	ModePrepend   UpdateMode = "prepend"
	ModeComplete  UpdateMode = "complete"
)

// =============================================================================
// INBOUND FRAMES
// =============================================================================

// Frame is one decoded inbound protocol message.
type Frame interface {
	frame()
}

// UserInfo is one user entry inside an onlineSet snapshot.
type UserInfo struct {
	Nick    string `json:"nick"`
	Trip    string `json:"trip"`
	Level   int    `json:"level"`
	Hash    string `json:"hash"`
	Channel string `json:"channel"`
}

// OnlineSet is the join snapshot sent once after a successful join.
type OnlineSet struct {
	Nicks []string   `json:"nicks"`
	Users []UserInfo `json:"users"`
}

// OnlineAdd announces a user joining the channel.
type OnlineAdd struct {
	Nick  string `json:"nick"`
	Trip  string `json:"trip"`
	Level int    `json:"level"`
	Hash  string `json:"hash"`
}

// OnlineRemove announces a user leaving the channel.
type OnlineRemove struct {
	Nick string `json:"nick"`
}

// Chat is a public chat message. A non-empty CustomID marks the message
// as updatable: the server may keep streaming into it via UpdateMessage
// frames keyed by (UserID, CustomID).
type Chat struct {
	Nick     string `json:"nick"`
	Trip     string `json:"trip"`
	Level    int    `json:"level"`
	Text     string `json:"text"`
	UserID   int64  `json:"userid"`
	CustomID string `json:"customId"`
}

// Updatable reports whether this message opens an updatable entry.
func (c Chat) Updatable() bool { return c.CustomID != "" }

// UpdateMessage mutates a previously delivered updatable chat message.
type UpdateMessage struct {
	UserID   int64      `json:"userid"`
	CustomID string     `json:"customId"`
	Mode     UpdateMode `json:"mode"`
	Text     string     `json:"text"`
}

// Info is a server informational line. Whispers arrive as info frames
// with Type set to "whisper".
type Info struct {
	Type string `json:"type"`
	From string `json:"from"`
	Trip string `json:"trip"`
	Text string `json:"text"`
}

// Whisper reports whether this info frame is a private message.
func (i Info) Whisper() bool { return i.Type == "whisper" }

// Emote is a third-person action line.
type Emote struct {
	Nick string `json:"nick"`
	Trip string `json:"trip"`
	Text string `json:"text"`
}

// Warn is a server warning.
type Warn struct {
	Text string `json:"text"`
}

// Unknown carries a frame with an unrecognized cmd tag. It is kept
// rather than dropped so raw passthrough mode can print it; everything
// else ignores it.
type Unknown struct {
	Cmd string
	Raw json.RawMessage
}

func (OnlineSet) frame()     {}
func (OnlineAdd) frame()     {}
func (OnlineRemove) frame()  {}
func (Chat) frame()          {}
func (UpdateMessage) frame() {}
func (Info) frame()          {}
func (Emote) frame()         {}
func (Warn) frame()          {}
func (Unknown) frame()       {}

// =============================================================================
// DECODE
// =============================================================================

// envelope peels off the cmd tag before the payload decode.
type envelope struct {
	Cmd string `json:"cmd"`
}

// Decode converts one raw websocket text frame into a typed Frame.
// Unknown cmd values decode into Unknown, not an error; an error is
// returned only for malformed JSON or a payload that does not match its
// tag.
func Decode(raw []byte) (Frame, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", err)
	}

	decodeInto := func(v Frame) (Frame, error) {
		if err := json.Unmarshal(raw, v); err != nil {
			return nil, fmt.Errorf("bad %s payload: %w", env.Cmd, err)
		}
		return v, nil
	}

	switch env.Cmd {
	case "onlineSet":
		f, err := decodeInto(&OnlineSet{})
		if err != nil {
			return nil, err
		}
		return *f.(*OnlineSet), nil
	case "onlineAdd":
		f, err := decodeInto(&OnlineAdd{})
		if err != nil {
			return nil, err
		}
		return *f.(*OnlineAdd), nil
	case "onlineRemove":
		f, err := decodeInto(&OnlineRemove{})
		if err != nil {
			return nil, err
		}
		return *f.(*OnlineRemove), nil
	case "chat":
		f, err := decodeInto(&Chat{})
		if err != nil {
			return nil, err
		}
		return *f.(*Chat), nil
	case "updateMessage":
		f, err := decodeInto(&UpdateMessage{})
		if err != nil {
			return nil, err
		}
		return *f.(*UpdateMessage), nil
	case "info":
		f, err := decodeInto(&Info{})
		if err != nil {
			return nil, err
		}
		return *f.(*Info), nil
	case "emote":
		f, err := decodeInto(&Emote{})
		if err != nil {
			return nil, err
		}
		return *f.(*Emote), nil
	case "warn":
		f, err := decodeInto(&Warn{})
		if err != nil {
			return nil, err
		}
		return *f.(*Warn), nil
	default:
		return Unknown{Cmd: env.Cmd, Raw: json.RawMessage(raw)}, nil
	}
}
