// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package notify delivers desktop notifications for mentions and
// whispers.
package notify

import "github.com/gen2brain/beeep"

// Notifier pushes a message to the user's attention outside the
// terminal.
type Notifier interface {
	Push(title, body string)
}

// Desktop sends notifications through the platform notification
// service. Delivery failures are ignored; a missed notification is not
// worth interrupting the chat for.
type Desktop struct{}

// Push implements Notifier.
func (Desktop) Push(title, body string) {
	_ = beeep.Notify(title, body, "")
}

// Noop discards all notifications. Used when notifications are disabled
// in the configuration.
type Noop struct{}

// Push implements Notifier.
func (Noop) Push(title, body string) {}

// ForConfig picks the notifier matching the no_notify setting.
func ForConfig(disabled bool) Notifier {
	if disabled {
		return Noop{}
	}
	return Desktop{}
}
