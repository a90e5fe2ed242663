package download

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/yunseo-dev/tubedl/internal/ledger"
)

// userAgent is sent to the remote site by the extraction tool.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Runner drives the external extraction tool as a subprocess and
// recovers the produced filename from its progress output. Each Run is
// independent; concurrent runs serialize only at the ledger write.
type Runner struct {
	bin    string
	dir    string
	ledger *ledger.Ledger

	now func() time.Time
}

// NewRunner returns a Runner that invokes bin and writes into dir,
// registering finished files in led.
func NewRunner(bin, dir string, led *ledger.Ledger) *Runner {
	return &Runner{
		bin:    bin,
		dir:    dir,
		ledger: led,
		now:    time.Now,
	}
}

// Run extracts rawURL into the requested output format and returns the
// produced file's base name. The subprocess is awaited to completion;
// no internal deadline is imposed beyond ctx, which kills the process
// when it expires so it cannot leak.
func (r *Runner) Run(ctx context.Context, rawURL, format string) (string, error) {
	f, kind, err := NormalizeFormat(format)
	if err != nil {
		return "", err
	}

	cmd := exec.CommandContext(ctx, r.bin, r.buildArgs(f, kind, rawURL)...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return "", fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("start %s: %w", r.bin, err)
	}
	log.Info().Str("url", rawURL).Str("format", f).Msg("extraction started")

	scanner := &destScanner{}
	var lastStderr string
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		lines := bufio.NewScanner(stdout)
		for lines.Scan() {
			line := lines.Text()
			log.Debug().Str("line", line).Msg("extractor stdout")
			scanner.scan(line)
		}
	}()

	go func() {
		defer wg.Done()
		lines := bufio.NewScanner(stderr)
		for lines.Scan() {
			line := lines.Text()
			lastStderr = line
			log.Error().Str("line", line).Msg("extractor stderr")
		}
	}()

	// Both pipes must be drained before Wait closes them.
	wg.Wait()
	waitErr := cmd.Wait()

	exitCode := 0
	if waitErr != nil {
		exitCode = -1
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
	}

	name, found := scanner.fileName()
	if waitErr != nil || !found {
		return "", &ExtractionError{ExitCode: exitCode, Diagnostic: lastStderr}
	}

	// Register the new file. A ledger write failure must not fail the
	// extraction itself: the file exists and is servable, but its age
	// now diverges from the ledger until the next successful write.
	if err := r.ledger.Update(func(entries map[string]time.Time) {
		entries[name] = r.now()
	}); err != nil {
		log.Error().Err(err).Str("file", name).Msg("failed to record file in ledger")
	}

	log.Info().Str("file", name).Msg("extraction completed")
	return name, nil
}

func (r *Runner) buildArgs(format string, kind Kind, rawURL string) []string {
	var args []string
	if kind == KindAudio {
		args = append(args, "-x", "--audio-format", format)
	} else {
		args = append(args, "-f", "bestvideo+bestaudio", "--merge-output-format", format)
	}
	return append(args,
		"--user-agent", userAgent,
		"-o", filepath.Join(r.dir, "%(title)s.%(ext)s"),
		"--no-overwrites",
		"--no-playlist",
		rawURL,
	)
}
