package cleanup

import (
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/yunseo-dev/tubedl/internal/ledger"
	"github.com/yunseo-dev/tubedl/internal/metrics"
)

// Sweeper deletes stored files once their age exceeds the retention
// window. The ledger is the authoritative age source; files without an
// entry (pre-existing, or recorded before a crash lost the write) fall
// back to their filesystem modification time.
type Sweeper struct {
	dir    string
	ledger *ledger.Ledger
	maxAge time.Duration

	now func() time.Time
}

// Option is a function type for configuring Sweeper
type Option func(*Sweeper)

// WithNow overrides the sweeper's clock.
func WithNow(now func() time.Time) Option {
	return func(s *Sweeper) { s.now = now }
}

// WithMaxAge overrides the 24h retention window.
func WithMaxAge(maxAge time.Duration) Option {
	return func(s *Sweeper) { s.maxAge = maxAge }
}

func New(dir string, led *ledger.Ledger, opts ...Option) *Sweeper {
	s := &Sweeper{
		dir:    dir,
		ledger: led,
		maxAge: 24 * time.Hour,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sweep runs one full pass over the storage directory and returns the
// number of files deleted. The whole pass runs inside the ledger's
// critical section, so it cannot race an extraction completion's ledger
// write; the mutated ledger is persisted in a single write at the end.
// Per-file errors are logged and the file skipped.
func (s *Sweeper) Sweep() int {
	log.Info().Msg("starting cleanup of old files")

	deleted := 0
	err := s.ledger.Update(func(entries map[string]time.Time) {
		dirEntries, err := os.ReadDir(s.dir)
		if err != nil {
			log.Error().Err(err).Str("dir", s.dir).Msg("failed to read storage directory")
			return
		}

		now := s.now()
		for _, ent := range dirEntries {
			name := ent.Name()
			if name == ledger.FileName || ent.IsDir() {
				continue
			}

			createdAt, ok := entries[name]
			if !ok {
				info, err := ent.Info()
				if err != nil {
					log.Error().Err(err).Str("file", name).Msg("failed to stat file, skipping")
					continue
				}
				createdAt = info.ModTime()
			}

			if now.Sub(createdAt) < s.maxAge {
				continue
			}

			if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
				log.Error().Err(err).Str("file", name).Msg("failed to delete file, skipping")
				continue
			}
			delete(entries, name)
			deleted++
			log.Info().Str("file", name).Msg("deleted old file")
		}
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to persist ledger after sweep")
	}

	metrics.AddFilesSwept(deleted)
	log.Info().Int("deleted", deleted).Msg("cleanup completed")
	return deleted
}
