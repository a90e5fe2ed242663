package ledger

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger_Load_MissingFileIsEmpty(t *testing.T) {
	l := New(t.TempDir())

	entries := l.Load()
	require.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestLedger_Load_CorruptFileIsEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("{not json"), 0o644))

	l := New(dir)
	entries := l.Load()
	require.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestLedger_Update_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	l := New(dir)

	created := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	require.NoError(t, l.Update(func(entries map[string]time.Time) {
		entries["clip.mp4"] = created
	}))

	// A fresh Ledger against the same file sees the persisted entry.
	got := New(dir).Load()
	require.Len(t, got, 1)
	assert.True(t, got["clip.mp4"].Equal(created))
}

func TestLedger_Update_RemovesEntries(t *testing.T) {
	dir := t.TempDir()
	l := New(dir)

	require.NoError(t, l.Update(func(entries map[string]time.Time) {
		entries["a.mp3"] = time.Now()
		entries["b.mp3"] = time.Now()
	}))
	require.NoError(t, l.Update(func(entries map[string]time.Time) {
		delete(entries, "a.mp3")
	}))

	got := l.Load()
	assert.Len(t, got, 1)
	assert.Contains(t, got, "b.mp3")
}

func TestLedger_Update_SaveErrorPropagates(t *testing.T) {
	dir := t.TempDir()
	l := New(dir)
	require.NoError(t, os.RemoveAll(dir))

	err := l.Update(func(entries map[string]time.Time) {
		entries["x.mp4"] = time.Now()
	})
	require.Error(t, err)
}

func TestLedger_Path(t *testing.T) {
	dir := t.TempDir()
	l := New(dir)
	assert.Equal(t, filepath.Join(dir, FileName), l.Path())
}
