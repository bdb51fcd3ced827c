package server

import (
	"reflect"
	"testing"
)

func TestFilterContainsBanned(t *testing.T) {
	f, err := NewFilter([]string{"badword", "spam phrase"})
	if err != nil {
		t.Fatalf("NewFilter failed: %v", err)
	}

	tests := []struct {
		name string
		text string
		want bool
	}{
		{"ExactMatch", "badword", true},
		{"Substring", "this contains badword in the middle", true},
		{"CaseInsensitive", "BADWORD", true},
		{"MixedCase", "some BaDwOrD here", true},
		{"MultiWordPhrase", "that is pure spam phrase right there", true},
		{"CleanText", "a perfectly fine message", false},
		{"PartialPhrase", "spam alone is fine", false},
		{"EmptyText", "", false},
		{"NoWordBoundary", "embeddedbadwordhere", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.ContainsBanned(tt.text); got != tt.want {
				t.Errorf("ContainsBanned(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestFilterEmpty(t *testing.T) {
	f, err := NewFilter(nil)
	if err != nil {
		t.Fatalf("NewFilter failed: %v", err)
	}

	if f.ContainsBanned("anything at all") {
		t.Error("Empty filter should ban nothing")
	}
	if len(f.Phrases()) != 0 {
		t.Errorf("Expected no phrases, got %v", f.Phrases())
	}
}

func TestFilterNormalizesPhrases(t *testing.T) {
	f, err := NewFilter([]string{"  Zebra  ", "apple", "APPLE", "", "   "})
	if err != nil {
		t.Fatalf("NewFilter failed: %v", err)
	}

	want := []string{"apple", "zebra"}
	if got := f.Phrases(); !reflect.DeepEqual(got, want) {
		t.Errorf("Phrases() = %v, want %v", got, want)
	}

	if !f.ContainsBanned("I like Apple pie") {
		t.Error("Lowercased phrase should match mixed-case text")
	}
	if !f.ContainsBanned("a zebra crossed") {
		t.Error("Trimmed phrase should match")
	}
}

func TestFilterUnicode(t *testing.T) {
	f, err := NewFilter([]string{"café"})
	if err != nil {
		t.Fatalf("NewFilter failed: %v", err)
	}

	if !f.ContainsBanned("meet me at the café later") {
		t.Error("Expected unicode phrase to match")
	}
	if f.ContainsBanned("meet me at the cafe later") {
		t.Error("ASCII variant should not match the accented phrase")
	}
}

func TestFilterPhrasesCopy(t *testing.T) {
	f, err := NewFilter([]string{"one", "two"})
	if err != nil {
		t.Fatalf("NewFilter failed: %v", err)
	}

	phrases := f.Phrases()
	phrases[0] = "mutated"

	if got := f.Phrases(); got[0] != "one" {
		t.Errorf("Phrases() should return a copy, internal state became %v", got)
	}
}
