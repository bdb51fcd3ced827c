package protocol

import (
	"errors"
	"strings"
)

// Message kinds, selected by line prefix in a single classification step.
const (
	KindBroadcast Kind = iota // plain text, fan out to everyone
	KindPrivate               // @a,b,c content
	KindExclusion             // !user content
	KindCommand               // /users, /banned, /help, /threads, /quit
)

var (
	ErrMalformedPrivate   = errors.New("private message missing content")
	ErrMalformedExclusion = errors.New("exclusion message missing content")
)

// Kind identifies the addressing mode of a client line.
type Kind uint8

func (k Kind) String() string {
	switch k {
	case KindBroadcast:
		return "broadcast"
	case KindPrivate:
		return "private"
	case KindExclusion:
		return "exclusion"
	case KindCommand:
		return "command"
	default:
		return "unknown"
	}
}

// Message is one classified client line. Only the fields relevant to its
// Kind are populated.
type Message struct {
	Kind Kind

	// Body is the message content for broadcast, private and exclusion lines.
	Body string

	// Recipients holds the trimmed private recipient names. RecipientList is
	// the list exactly as the sender typed it, used for the confirmation echo.
	Recipients    []string
	RecipientList string

	// Excluded is the name excluded from an exclusion broadcast.
	Excluded string

	// Command is the full command line, lowercased.
	Command string
}

// Classify parses a single inbound line into its addressing mode. Prefix
// checks happen here and nowhere else.
func Classify(line string) (Message, error) {
	switch {
	case strings.HasPrefix(line, "/"):
		return Message{Kind: KindCommand, Command: strings.ToLower(line)}, nil

	case strings.HasPrefix(line, "@"):
		space := strings.Index(line, " ")
		if space == -1 {
			return Message{Kind: KindPrivate}, ErrMalformedPrivate
		}
		list := line[1:space]
		recipients := strings.Split(list, ",")
		for i := range recipients {
			recipients[i] = strings.TrimSpace(recipients[i])
		}
		return Message{
			Kind:          KindPrivate,
			Body:          line[space+1:],
			Recipients:    recipients,
			RecipientList: list,
		}, nil

	case strings.HasPrefix(line, "!"):
		space := strings.Index(line, " ")
		if space == -1 {
			return Message{Kind: KindExclusion}, ErrMalformedExclusion
		}
		return Message{
			Kind:     KindExclusion,
			Body:     line[space+1:],
			Excluded: line[1:space],
		}, nil

	default:
		return Message{Kind: KindBroadcast, Body: line}, nil
	}
}
