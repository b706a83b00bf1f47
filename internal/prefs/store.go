package prefs

import (
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/BlueWaves-afk/marketguard.ai-sub000/internal/config"
)

// PrefsFileName is the preference file name inside the XDG config directory.
const PrefsFileName = "prefs.yml"

// fileState mirrors State but uses pointers for fields whose zero value is
// meaningful. A missing "threshold" key falls back to the default, while an
// explicit "threshold: 0" is honored as "surface everything".
type fileState struct {
	Threshold     *float64 `yaml:"threshold"`
	PauseScanning *bool    `yaml:"pauseScanning"`
	Theme         string   `yaml:"theme"`
	DefaultMode   string   `yaml:"defaultMode"`
	Animation     string   `yaml:"animation"`
}

// Store provides concurrency-safe access to the preference file.
//
// Design decision: the Store caches the last loaded state under a mutex
// rather than re-reading the file on every access. Watch-mode sessions read
// preferences on every scan cycle; hitting the disk each time would be
// wasteful, and the file watcher invalidates the cache on external edits.
type Store struct {
	path string

	mu    sync.RWMutex
	state State
}

// DefaultPath returns the preference file path in the XDG config directory.
// On Linux: ~/.config/marketguard/prefs.yml
func DefaultPath() string {
	return filepath.Join(config.XDGConfigDir(), PrefsFileName)
}

// NewStore creates a Store backed by the given file path.
// If path is empty, the XDG default location is used.
// The file is loaded immediately; a missing file yields defaults.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = DefaultPath()
	}
	s := &Store{path: path}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the preference file path.
func (s *Store) Path() string {
	return s.path
}

// State returns the current cached preferences.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Reload re-reads the preference file, replacing the cached state.
// A missing file resets to defaults rather than failing, since the file is
// optional and may be deleted at any time.
func (s *Store) Reload() error {
	st, err := loadFile(s.path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	return nil
}

// Update applies fn to a copy of the current state, validates the result,
// persists it, and swaps it in. The file write happens under the lock so
// concurrent updates cannot interleave their read-modify-write cycles.
func (s *Store) Update(fn func(*State)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state
	fn(&next)
	next = next.withDefaults()

	if err := next.Validate(); err != nil {
		return err
	}
	if err := saveFile(s.path, next); err != nil {
		return err
	}

	s.state = next
	return nil
}

// SetThreshold persists a new risk threshold.
func (s *Store) SetThreshold(v float64) error {
	return s.Update(func(st *State) { st.Threshold = v })
}

// SetPaused persists the pause-scanning flag.
func (s *Store) SetPaused(paused bool) error {
	return s.Update(func(st *State) { st.PauseScanning = paused })
}

// loadFile reads and validates a preference file.
// Missing file or missing keys fall back to defaults.
func loadFile(path string) (State, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the user's own flag
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultState(), nil
		}
		return State{}, err
	}

	var fs fileState
	if err := yaml.Unmarshal(data, &fs); err != nil {
		return State{}, err
	}

	st := DefaultState()
	if fs.Threshold != nil {
		st.Threshold = *fs.Threshold
	}
	if fs.PauseScanning != nil {
		st.PauseScanning = *fs.PauseScanning
	}
	if fs.Theme != "" {
		st.Theme = fs.Theme
	}
	if fs.DefaultMode != "" {
		st.DefaultMode = fs.DefaultMode
	}
	if fs.Animation != "" {
		st.Animation = fs.Animation
	}

	if err := st.Validate(); err != nil {
		return State{}, err
	}
	return st, nil
}

// saveFile writes the state atomically: marshal to a temp file in the same
// directory, then rename over the target. Readers never observe a torn file.
func saveFile(path string, st State) error {
	data, err := yaml.Marshal(st)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, PrefsFileName+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	return os.Rename(tmpName, path)
}
