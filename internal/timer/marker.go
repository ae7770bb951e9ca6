package timer

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Marker is the liveness token proving a manual session is (or recently was)
// active. The conflict resolver consults presence + age only; it never reads
// the session duration.
type Marker interface {
	// Create records the session start, replacing any previous marker.
	Create(at time.Time) error
	// Age reports how old the marker is. ok is false when no marker exists.
	Age(now time.Time) (age time.Duration, ok bool, err error)
	// Clear removes the marker. Clearing a missing marker is a no-op.
	Clear() error
}

// FileMarker persists the marker so it survives process restarts. The write
// goes through a temp file + rename so a concurrent reader never sees a
// partial timestamp.
type FileMarker struct {
	path string
}

func NewFileMarker(path string) *FileMarker {
	return &FileMarker{path: path}
}

func (m *FileMarker) Create(at time.Time) error {
	dir := filepath.Dir(m.path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(at.Format(time.RFC3339Nano)+"\n"), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, m.path)
}

func (m *FileMarker) Age(now time.Time) (time.Duration, bool, error) {
	b, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}
		return 0, false, err
	}
	at, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(string(b)))
	if err != nil {
		// A corrupt marker is treated as absent rather than blocking
		// scheduled shutdowns forever.
		return 0, false, nil
	}
	return now.Sub(at), true, nil
}

func (m *FileMarker) Clear() error {
	err := os.Remove(m.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// MemMarker is the in-memory Marker used by tests.
type MemMarker struct {
	mu  sync.Mutex
	at  time.Time
	set bool
}

func NewMemMarker() *MemMarker { return &MemMarker{} }

func (m *MemMarker) Create(at time.Time) error {
	m.mu.Lock()
	m.at, m.set = at, true
	m.mu.Unlock()
	return nil
}

func (m *MemMarker) Age(now time.Time) (time.Duration, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.set {
		return 0, false, nil
	}
	return now.Sub(m.at), true, nil
}

func (m *MemMarker) Clear() error {
	m.mu.Lock()
	m.set = false
	m.mu.Unlock()
	return nil
}
