package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatBroadcast(t *testing.T) {
	assert.Equal(t, "alice: hello", FormatBroadcast("alice", "hello"))
}

func TestFormatPrivateLines(t *testing.T) {
	assert.Equal(t, "(Private from alice): hi", FormatPrivateFrom("alice", "hi"))
	assert.Equal(t, "(Private to bob,carol): hi", FormatPrivateTo("bob,carol", "hi"))
}

func TestFormatExclusion(t *testing.T) {
	assert.Equal(t, "alice (excluding bob): psst", FormatExclusion("alice", "bob", "psst"))
}

func TestFormatSystem(t *testing.T) {
	assert.Equal(t, "SYSTEM: bob joined", FormatSystem("bob joined"))
}

func TestFormatRosterSortsNames(t *testing.T) {
	assert.Equal(t, "Connected users: [alice, bob, carol]",
		FormatRoster([]string{"carol", "alice", "bob"}))
}

func TestFormatRosterEmpty(t *testing.T) {
	assert.Equal(t, "Connected users: []", FormatRoster(nil))
}

func TestFormatRosterDoesNotMutateInput(t *testing.T) {
	names := []string{"zed", "alice"}
	FormatRoster(names)
	assert.Equal(t, []string{"zed", "alice"}, names)
}

func TestFormatBannedPhrases(t *testing.T) {
	assert.Equal(t, "Banned phrases: [badger, spam]",
		FormatBannedPhrases([]string{"spam", "badger"}))
}

func TestFormatUserNotFound(t *testing.T) {
	assert.Equal(t, "User 'ghost' not found.", FormatUserNotFound("ghost"))
}
