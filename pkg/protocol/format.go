package protocol

import (
	"sort"
	"strings"
)

// Fixed server→client lines. Every line shape the server emits is defined in
// this file so the wire text exists in exactly one place.
const (
	NameTakenPrompt = "Username taken. Please enter another username:"
	EmptyNamePrompt = "Username cannot be empty. Please enter a username:"
	BlockedNotice   = "Message not sent - contains banned phrase"
	PrivateUsage    = "Invalid private message format. Usage: @user message"
	UnknownCommand  = "Unknown command. Type /help for instructions."
	Disconnected    = "disconnected"

	HelpText = "Available commands:\n" +
		"@user message - Send private message to one user\n" +
		"@user1,user2,user3 message - Send private message to multiple users\n" +
		"!user message - Send to all except user\n" +
		"/users - List connected users\n" +
		"/banned - List banned phrases\n" +
		"/help - Show this message\n" +
		"/threads - List the active server tasks\n" +
		"/quit - Disconnect"
)

// FormatWelcome greets a freshly registered user.
func FormatWelcome(name string) string {
	return "Welcome " + name + "!"
}

// FormatBroadcast renders a plain broadcast as seen by every recipient.
func FormatBroadcast(sender, text string) string {
	return sender + ": " + text
}

// FormatPrivateFrom renders a private delivery as seen by the recipient.
func FormatPrivateFrom(sender, content string) string {
	return "(Private from " + sender + "): " + content
}

// FormatPrivateTo renders the sender's consolidated confirmation. The list is
// echoed exactly as the sender typed it.
func FormatPrivateTo(recipientList, content string) string {
	return "(Private to " + recipientList + "): " + content
}

// FormatExclusion renders an all-but-one broadcast.
func FormatExclusion(sender, excluded, content string) string {
	return sender + " (excluding " + excluded + "): " + content
}

// FormatSystem renders a system notice.
func FormatSystem(text string) string {
	return "SYSTEM: " + text
}

// FormatUserNotFound tells a sender that a private recipient does not exist.
func FormatUserNotFound(name string) string {
	return "User '" + name + "' not found."
}

// FormatRoster renders the connected-user list. Names are sorted so the
// roster is deterministic for clients and tests.
func FormatRoster(names []string) string {
	sorted := make([]string, len(names))
	copy(sorted, names)
	sort.Strings(sorted)
	return "Connected users: [" + strings.Join(sorted, ", ") + "]"
}

// FormatBannedPhrases renders the banned-phrase listing for /banned.
func FormatBannedPhrases(phrases []string) string {
	sorted := make([]string, len(phrases))
	copy(sorted, phrases)
	sort.Strings(sorted)
	return "Banned phrases: [" + strings.Join(sorted, ", ") + "]"
}
