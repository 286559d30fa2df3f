package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrIO marks a storage backend failure. The caller reports the mutation as
// failed and discards the in-memory change; there is no automatic retry,
// since replaying a read-modify-write without isolation risks clobbering a
// concurrent writer's update.
var ErrIO = errors.New("state: storage failure")

// Backend persists the whole document. Load returns (nil, nil) when nothing
// has been persisted yet.
type Backend interface {
	Load() (*AppState, error)
	Save(*AppState) error
}

// Store wraps a Backend with the read-modify-write cycle every mutation
// goes through. The mutex serializes writers within this process only;
// across processes the consistency model is last-writer-wins.
type Store struct {
	mu      sync.Mutex
	backend Backend
}

func NewStore(backend Backend) *Store {
	return &Store{backend: backend}
}

// Load returns the current document, or the default empty document if
// nothing is persisted or the persisted bytes do not decode.
func (s *Store) Load() (*AppState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) loadLocked() (*AppState, error) {
	data, err := s.backend.Load()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	if data == nil {
		return Default(), nil
	}
	data.Normalize()
	return data, nil
}

// Update runs one atomic read-modify-write cycle: load the document, apply
// fn to it, and persist the result. If fn returns an error the document is
// not written.
func (s *Store) Update(fn func(*AppState) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.loadLocked()
	if err != nil {
		return err
	}
	if err := fn(data); err != nil {
		return err
	}
	if err := s.backend.Save(data); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	return nil
}

// FileBackend keeps the document in accounts.json under dataDir.
type FileBackend struct {
	dataDir string
}

func NewFileBackend(dataDir string) *FileBackend {
	if dataDir == "" {
		dataDir = "data"
	}
	return &FileBackend{dataDir: dataDir}
}

func (f *FileBackend) path() string {
	return filepath.Join(f.dataDir, "accounts.json")
}

func (f *FileBackend) Load() (*AppState, error) {
	raw, err := os.ReadFile(f.path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var data AppState
	if err := json.Unmarshal(raw, &data); err != nil {
		// A corrupt file reads as empty rather than wedging the casino.
		return nil, nil
	}
	return &data, nil
}

func (f *FileBackend) Save(data *AppState) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(f.dataDir, 0755); err != nil {
		return err
	}
	return os.WriteFile(f.path(), raw, 0644)
}
