// Package lockfile provides cross-process mutual exclusion on a well-known
// filesystem path. There is no long-lived process to hold an in-memory
// mutex, so exclusion relies on atomic exclusive file creation.
package lockfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultStaleAfter is the ceiling past which a leftover lock from a dead
// holder is reclaimed. Roughly 10x the worst-case run duration.
const DefaultStaleAfter = 30 * time.Minute

// ErrHeld is returned when another run holds the lock. Acquisition is not
// retried within a run; the pipeline exits immediately.
var ErrHeld = errors.New("another run holds the lock")

type lockInfo struct {
	PID        int       `json:"pid"`
	Hostname   string    `json:"hostname"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// Handle is a scoped lock whose Release is safe to call on every exit path.
type Handle struct {
	path     string
	released bool
}

// Acquirer creates exclusion locks at a fixed path.
type Acquirer struct {
	Path       string
	StaleAfter time.Duration
	Clock      func() time.Time
}

// New returns an acquirer with defaults applied.
func New(path string) *Acquirer {
	return &Acquirer{Path: path, StaleAfter: DefaultStaleAfter}
}

// Acquire creates the lock file exclusively, or fails with ErrHeld if a live
// holder exists. A lock older than StaleAfter is reclaimed once, so a crashed
// holder cannot block runs forever.
func (a *Acquirer) Acquire() (*Handle, error) {
	handle, err := a.tryCreate()
	if err == nil {
		return handle, nil
	}
	if !os.IsExist(err) {
		return nil, fmt.Errorf("create lock file: %w", err)
	}

	if a.isStale() {
		// Reclaim and retry once. A race here resolves to ErrHeld, which is
		// the safe answer.
		_ = os.Remove(a.Path)
		handle, err := a.tryCreate()
		if err == nil {
			return handle, nil
		}
	}

	return nil, ErrHeld
}

func (a *Acquirer) tryCreate() (*Handle, error) {
	if dir := filepath.Dir(a.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	// O_EXCL makes creation atomic: a second concurrent process reliably
	// fails rather than racing a check-then-create.
	f, err := os.OpenFile(a.Path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, err
	}

	hostname, _ := os.Hostname()
	info := lockInfo{PID: os.Getpid(), Hostname: hostname, AcquiredAt: a.now()}
	if data, err := json.Marshal(info); err == nil {
		_, _ = f.Write(data)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(a.Path)
		return nil, err
	}

	return &Handle{path: a.Path}, nil
}

func (a *Acquirer) isStale() bool {
	staleAfter := a.StaleAfter
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}

	data, err := os.ReadFile(a.Path)
	if err != nil {
		return false
	}

	var info lockInfo
	if err := json.Unmarshal(data, &info); err != nil || info.AcquiredAt.IsZero() {
		// Unparsable lock body: fall back to file mtime.
		fi, statErr := os.Stat(a.Path)
		if statErr != nil {
			return false
		}
		return a.now().Sub(fi.ModTime()) > staleAfter
	}

	return a.now().Sub(info.AcquiredAt) > staleAfter
}

func (a *Acquirer) now() time.Time {
	if a.Clock != nil {
		return a.Clock()
	}
	return time.Now().UTC()
}

// Release removes the lock file. It is idempotent.
func (h *Handle) Release() error {
	if h == nil || h.released {
		return nil
	}
	h.released = true
	if err := os.Remove(h.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove lock file: %w", err)
	}
	return nil
}
