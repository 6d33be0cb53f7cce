package refactor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJournalRecordAndList(t *testing.T) {
	root := t.TempDir()
	j := NewJournal(root)
	assert.Equal(t, filepath.Join(root, ".constprop", "history"), j.Dir())

	entries, err := j.List()
	require.NoError(t, err)
	assert.Empty(t, entries)
	last, err := j.Last()
	require.NoError(t, err)
	assert.Nil(t, last)

	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	j.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	edits := []FileEdit{
		{Path: filepath.Join(root, "A.java"), Before: "return 5;\n", After: "return FIVE;\n"},
		{Path: filepath.Join(root, "PConstantsIF.java"), After: "interface PConstantsIF {}\n", Created: true},
	}
	first, err := j.Record("IntroduceAndPropagateConstant", "FIVE", "p.A", edits)
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	second, err := j.Record("IntroduceAndPropagateConstant", "SIX", "p.A", edits[:1])
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	entries, err = j.List()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, first.ID, entries[0].ID)
	assert.Equal(t, "FIVE", entries[0].Field)
	assert.Equal(t, edits, entries[0].Files)

	last, err = j.Last()
	require.NoError(t, err)
	assert.Equal(t, second.ID, last.ID)
}

func TestJournalRemove(t *testing.T) {
	j := NewJournal(t.TempDir())
	entry, err := j.Record("IntroduceAndPropagateConstant", "X", "", nil)
	require.NoError(t, err)

	require.NoError(t, j.Remove(entry))
	entries, err := j.List()
	require.NoError(t, err)
	assert.Empty(t, entries)

	// removing twice is not an error
	require.NoError(t, j.Remove(entry))
}

func TestJournalIgnoresForeignFiles(t *testing.T) {
	j := NewJournal(t.TempDir())
	require.NoError(t, os.MkdirAll(j.Dir(), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(j.Dir(), "notes.txt"), []byte("x"), 0644))

	entries, err := j.List()
	require.NoError(t, err)
	assert.Empty(t, entries)
}
