package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// FileName is the ledger's backing file inside the storage directory.
// It is excluded from sweeping and from being served.
const FileName = ".metadata.json"

// Ledger is a durable filename -> creation-time mapping. It is the
// authoritative age source for eviction decisions and survives process
// restarts. Callers always read the whole mapping, mutate it in memory
// and write the whole mapping back; Update serializes those cycles.
type Ledger struct {
	path string

	mu sync.Mutex
}

// New returns a Ledger backed by dir/.metadata.json.
func New(dir string) *Ledger {
	return &Ledger{path: filepath.Join(dir, FileName)}
}

// Path returns the ledger's backing file path.
func (l *Ledger) Path() string { return l.path }

// Load returns the current mapping. It fails open: a missing or corrupt
// backing file yields an empty mapping, never an error, so ledger damage
// can never block extraction or serving.
func (l *Ledger) Load() map[string]time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loadLocked()
}

// Update runs one read-modify-write cycle under the ledger lock: the
// current mapping is loaded, handed to mutate, then persisted in a single
// write. Concurrent Update calls (extraction completion vs sweep) are
// mutually exclusive. The returned error is the save error, if any; the
// mutation itself cannot fail.
func (l *Ledger) Update(mutate func(entries map[string]time.Time)) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries := l.loadLocked()
	mutate(entries)
	return l.saveLocked(entries)
}

func (l *Ledger) loadLocked() map[string]time.Time {
	entries := make(map[string]time.Time)

	data, err := os.ReadFile(l.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", l.path).Msg("ledger unreadable, starting empty")
		}
		return entries
	}

	if err := json.Unmarshal(data, &entries); err != nil {
		log.Warn().Err(err).Str("path", l.path).Msg("ledger corrupt, starting empty")
		return make(map[string]time.Time)
	}
	return entries
}

func (l *Ledger) saveLocked(entries map[string]time.Time) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	if err := os.WriteFile(l.path, data, 0o644); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	return nil
}
