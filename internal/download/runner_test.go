package download

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yunseo-dev/tubedl/internal/ledger"
)

// writeStub creates a fake extraction tool emitting the given shell body.
func writeStub(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ytdlp-stub")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestRunner_Run_Success_RegistersLedgerEntry(t *testing.T) {
	dir := t.TempDir()
	stub := writeStub(t, `
echo '[youtube] abc123: Downloading webpage'
echo '[download] Destination: /ignored/My Video.f137.mp4'
echo '[Merger] Merging formats into "/ignored/My Video.mp4"'
exit 0
`)

	led := ledger.New(dir)
	r := NewRunner(stub, dir, led)

	before := time.Now()
	name, err := r.Run(context.Background(), "https://example.com/watch?v=abc123", "mp4")
	after := time.Now()

	require.NoError(t, err)
	assert.Equal(t, "My Video.mp4", name)

	entries := led.Load()
	require.Contains(t, entries, "My Video.mp4")
	created := entries["My Video.mp4"]
	assert.False(t, created.Before(before.Truncate(time.Second)))
	assert.False(t, created.After(after.Add(time.Second)))
}

func TestRunner_Run_ExitZeroWithoutDestinationFails(t *testing.T) {
	dir := t.TempDir()
	stub := writeStub(t, `
echo '[youtube] abc123: Downloading webpage'
exit 0
`)

	r := NewRunner(stub, dir, ledger.New(dir))
	_, err := r.Run(context.Background(), "https://example.com/v", "mp4")
	require.Error(t, err)

	var extraction *ExtractionError
	require.ErrorAs(t, err, &extraction)
	assert.Equal(t, 0, extraction.ExitCode)
}

func TestRunner_Run_NonzeroExitCarriesCodeAndDiagnostic(t *testing.T) {
	dir := t.TempDir()
	stub := writeStub(t, `
echo '[download] Destination: /ignored/Clip.mp4'
echo 'ERROR: unable to download video data' >&2
exit 3
`)

	r := NewRunner(stub, dir, ledger.New(dir))
	_, err := r.Run(context.Background(), "https://example.com/v", "mp4")
	require.Error(t, err)

	var extraction *ExtractionError
	require.ErrorAs(t, err, &extraction)
	assert.Equal(t, 3, extraction.ExitCode)
	assert.Contains(t, extraction.Diagnostic, "unable to download")

	// A failed run must not touch the ledger.
	assert.Empty(t, ledger.New(dir).Load())
}

func TestRunner_Run_InvalidFormatSkipsSubprocess(t *testing.T) {
	dir := t.TempDir()
	// A nonexistent binary: if the runner tried to spawn it, the error
	// would be a start failure, not an InvalidFormatError.
	r := NewRunner(filepath.Join(dir, "does-not-exist"), dir, ledger.New(dir))

	_, err := r.Run(context.Background(), "https://example.com/v", "exe")
	require.Error(t, err)

	var invalid *InvalidFormatError
	require.ErrorAs(t, err, &invalid)
}

func TestRunner_BuildArgs_AudioStrategy(t *testing.T) {
	r := NewRunner("yt-dlp", "/srv/downloads", nil)
	args := r.buildArgs("mp3", KindAudio, "https://example.com/v")

	assert.Equal(t, []string{
		"-x", "--audio-format", "mp3",
		"--user-agent", userAgent,
		"-o", "/srv/downloads/%(title)s.%(ext)s",
		"--no-overwrites",
		"--no-playlist",
		"https://example.com/v",
	}, args)
}

func TestRunner_BuildArgs_VideoStrategy(t *testing.T) {
	r := NewRunner("yt-dlp", "/srv/downloads", nil)
	args := r.buildArgs("mkv", KindVideo, "https://example.com/v")

	assert.Equal(t, []string{
		"-f", "bestvideo+bestaudio", "--merge-output-format", "mkv",
		"--user-agent", userAgent,
		"-o", "/srv/downloads/%(title)s.%(ext)s",
		"--no-overwrites",
		"--no-playlist",
		"https://example.com/v",
	}, args)
}
