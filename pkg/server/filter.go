package server

import (
	"fmt"
	"sort"
	"strings"

	goahocorasick "github.com/anknown/ahocorasick"
)

// Filter is the banned-phrase predicate: an immutable set of lowercase
// phrases compiled once into an Aho-Corasick automaton, so a single pass
// answers "does any banned phrase occur as a substring" regardless of how
// many phrases are loaded.
type Filter struct {
	matcher *goahocorasick.Machine
	phrases []string
}

// NewFilter builds a filter from the given phrases. Phrases are lowercased
// and deduplicated; blank entries are dropped. A nil or empty list yields a
// filter that bans nothing.
func NewFilter(phrases []string) (*Filter, error) {
	seen := make(map[string]bool, len(phrases))
	kept := make([]string, 0, len(phrases))
	for _, phrase := range phrases {
		phrase = strings.ToLower(strings.TrimSpace(phrase))
		if phrase == "" || seen[phrase] {
			continue
		}
		seen[phrase] = true
		kept = append(kept, phrase)
	}
	sort.Strings(kept)

	f := &Filter{phrases: kept}
	if len(kept) == 0 {
		return f, nil
	}

	patterns := make([][]rune, len(kept))
	for i, phrase := range kept {
		patterns[i] = []rune(phrase)
	}

	machine := new(goahocorasick.Machine)
	if err := machine.Build(patterns); err != nil {
		return nil, fmt.Errorf("failed to build phrase matcher: %w", err)
	}
	f.matcher = machine
	return f, nil
}

// ContainsBanned reports whether any banned phrase occurs in text,
// case-insensitively. Empty input is never banned.
func (f *Filter) ContainsBanned(text string) bool {
	if text == "" || f.matcher == nil {
		return false
	}
	content := []rune(strings.ToLower(text))
	return len(f.matcher.MultiPatternSearch(content, true)) > 0
}

// Phrases returns the loaded phrases, sorted.
func (f *Filter) Phrases() []string {
	out := make([]string, len(f.phrases))
	copy(out, f.phrases)
	return out
}
