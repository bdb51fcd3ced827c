package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "parley.db")
	st, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st, path
}

func TestEmptyStoreHasNoPhrases(t *testing.T) {
	st, _ := openTestStore(t)

	phrases, err := st.BannedPhrases()
	require.NoError(t, err)
	assert.Empty(t, phrases)
}

func TestAddAndListPhrases(t *testing.T) {
	st, _ := openTestStore(t)

	require.NoError(t, st.AddPhrase("spam"))
	require.NoError(t, st.AddPhrase("Badger"))

	phrases, err := st.BannedPhrases()
	require.NoError(t, err)
	assert.Equal(t, []string{"badger", "spam"}, phrases)
}

func TestAddPhraseIsIdempotent(t *testing.T) {
	st, _ := openTestStore(t)

	require.NoError(t, st.AddPhrase("spam"))
	require.NoError(t, st.AddPhrase("SPAM"))
	require.NoError(t, st.AddPhrase(" spam "))

	phrases, err := st.BannedPhrases()
	require.NoError(t, err)
	assert.Equal(t, []string{"spam"}, phrases)
}

func TestAddEmptyPhraseFails(t *testing.T) {
	st, _ := openTestStore(t)

	assert.Error(t, st.AddPhrase("   "))
}

func TestRemovePhrase(t *testing.T) {
	st, _ := openTestStore(t)

	require.NoError(t, st.AddPhrase("spam"))
	require.NoError(t, st.RemovePhrase("Spam"))
	require.NoError(t, st.RemovePhrase("never-added"))

	phrases, err := st.BannedPhrases()
	require.NoError(t, err)
	assert.Empty(t, phrases)
}

func TestPhrasesSurviveReopen(t *testing.T) {
	st, path := openTestStore(t)

	require.NoError(t, st.AddPhrase("spam"))
	require.NoError(t, st.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	phrases, err := reopened.BannedPhrases()
	require.NoError(t, err)
	assert.Equal(t, []string{"spam"}, phrases)
}
