// Package counter persists call accounting across pipeline runs. The state
// file is the sole source of truth for rate limiting: every invocation is a
// fresh process that reconstructs its history from disk.
package counter

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/logsentry/logsentry/internal/core"
)

// DefaultRetention bounds the persisted history. Records older than this are
// discarded on load, keeping the file bounded indefinitely.
const DefaultRetention = 24 * time.Hour

// ErrCorrupt wraps a parse failure on load. Callers log it and proceed with
// empty state; losing rate-limit history must not wedge the pipeline.
var ErrCorrupt = errors.New("counter state unreadable")

// Store reads and writes the counter state file.
type Store struct {
	Path      string
	Retention time.Duration
	Clock     func() time.Time
}

// NewStore returns a store with defaults applied.
func NewStore(path string) *Store {
	return &Store{Path: path, Retention: DefaultRetention}
}

// Load reads the state file, pruning records outside the retention window.
// A missing file yields empty state with no error. A malformed file yields
// empty state and an error wrapping ErrCorrupt.
func (s *Store) Load() (*core.CounterState, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return &core.CounterState{}, nil
		}
		return &core.CounterState{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	state := &core.CounterState{}
	if err := json.Unmarshal(data, state); err != nil {
		return &core.CounterState{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	s.prune(state)
	return state, nil
}

// Save writes the state atomically: temp file in the target directory, then
// rename. A crash mid-write never leaves a half-written file visible.
func (s *Store) Save(state *core.CounterState) error {
	if state == nil {
		return errors.New("counter state is required")
	}

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode counter state: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.Path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write counter state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp state file: %w", err)
	}

	if err := os.Rename(tmpName, s.Path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace counter state: %w", err)
	}
	return nil
}

func (s *Store) prune(state *core.CounterState) {
	retention := s.Retention
	if retention <= 0 {
		retention = DefaultRetention
	}
	cutoff := s.now().Add(-retention)

	kept := state.Records[:0]
	for _, rec := range state.Records {
		if rec.Timestamp.After(cutoff) {
			kept = append(kept, rec)
		}
	}
	state.Records = kept
}

func (s *Store) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now().UTC()
}
