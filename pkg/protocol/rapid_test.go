package protocol

import (
	"strings"
	"testing"

	"pgregory.net/rapid"
)

// Property: classification never panics, and every line lands in exactly one
// addressing mode determined by its first character.
func TestClassifyPropertyBased(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		line := rapid.String().Draw(t, "line")

		msg, err := Classify(line)

		switch {
		case strings.HasPrefix(line, "/"):
			if msg.Kind != KindCommand {
				t.Fatalf("expected command for %q, got %v", line, msg.Kind)
			}
			if msg.Command != strings.ToLower(line) {
				t.Fatalf("command not lowercased: %q", msg.Command)
			}
		case strings.HasPrefix(line, "@"):
			if msg.Kind != KindPrivate {
				t.Fatalf("expected private for %q, got %v", line, msg.Kind)
			}
		case strings.HasPrefix(line, "!"):
			if msg.Kind != KindExclusion {
				t.Fatalf("expected exclusion for %q, got %v", line, msg.Kind)
			}
		default:
			if msg.Kind != KindBroadcast {
				t.Fatalf("expected broadcast for %q, got %v", line, msg.Kind)
			}
			if err != nil {
				t.Fatalf("broadcast classification returned error: %v", err)
			}
			if msg.Body != line {
				t.Fatalf("broadcast body mangled: %q != %q", msg.Body, line)
			}
		}
	})
}

// Property: a well-formed private line round-trips its recipients and body.
func TestClassifyPrivateRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		names := rapid.SliceOfN(rapid.StringMatching(`[a-zA-Z0-9_-]{1,8}`), 1, 5).Draw(t, "names")
		body := rapid.StringMatching(`[^\x00]{0,64}`).Draw(t, "body")

		line := "@" + strings.Join(names, ",") + " " + body
		msg, err := Classify(line)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(msg.Recipients) != len(names) {
			t.Fatalf("recipient count %d != %d", len(msg.Recipients), len(names))
		}
		for i, name := range names {
			if msg.Recipients[i] != name {
				t.Fatalf("recipient %d: %q != %q", i, msg.Recipients[i], name)
			}
		}
		// Names contain no spaces, so the first space is the separator and
		// the body survives byte for byte.
		if msg.Body != body {
			t.Fatalf("body %q != %q", msg.Body, body)
		}
	})
}
