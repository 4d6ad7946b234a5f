// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the Bubble Tea chat view bound to a session.Session.

The view never owns conversation state. Every redraw reads a session
snapshot; user commands call the session's methods. The session reports
changes through a Notifier, which coalesces them into a single pending
wake-up so a busy stream cannot flood the program's message queue:

	notifier := chat.NewNotifier()
	sess := session.New(b, bus, session.Options{Listener: notifier.Listen})
	m := chat.New(chat.Options{Session: sess, Notifier: notifier, Theme: theme})
	tea.NewProgram(m, tea.WithAltScreen()).Run()

# Key Bindings

	Enter      send the draft
	Alt+Enter  insert a newline
	Ctrl+T     toggle streaming/batch mode
	Ctrl+L     clear the conversation (asks y/n when confirmation is on)
	Ctrl+Y     copy the last assistant reply
	PgUp/PgDn  scroll the transcript
	Ctrl+C/Esc quit
*/
package chat
