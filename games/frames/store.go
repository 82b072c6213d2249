/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package frames

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
)

// Store persists the snapshot of one session slot.
type Store interface {
	// Load returns ErrNoSnapshot if nothing is stored, and an error
	// wrapping ErrMalformedSnapshot if the stored data cannot be decoded.
	Load() (State, error)
	Save(State) error
	Purge() error
}

// Backend hands out stores for named slots.
type Backend interface {
	Slot(name string) (Store, error)
	Close() error
}

// DefaultSlot is the slot used when a single local game is played.
const DefaultSlot = "movieGameState"

var ErrInvalidSlot = errors.New("invalid slot name")

var slotPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

func validateSlot(name string) error {
	if !slotPattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidSlot, name)
	}
	return nil
}

// Discard is a Store that keeps nothing.
var Discard Store = discard{}

type discard struct{}

func (discard) Load() (State, error) { return State{}, ErrNoSnapshot }
func (discard) Save(State) error     { return nil }
func (discard) Purge() error         { return nil }

// MemoryBackend keeps encoded snapshots in process memory.
type MemoryBackend struct {
	mu    sync.Mutex
	slots map[string][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{slots: make(map[string][]byte)}
}

func (b *MemoryBackend) Slot(name string) (Store, error) {
	if err := validateSlot(name); err != nil {
		return nil, err
	}
	return &memoryStore{backend: b, slot: name}, nil
}

func (b *MemoryBackend) Close() error { return nil }

type memoryStore struct {
	backend *MemoryBackend
	slot    string
}

func (m *memoryStore) Load() (State, error) {
	m.backend.mu.Lock()
	data, ok := m.backend.slots[m.slot]
	m.backend.mu.Unlock()

	if !ok {
		return State{}, ErrNoSnapshot
	}
	return decodeState(data)
}

func (m *memoryStore) Save(s State) error {
	data, err := encodeState(s)
	if err != nil {
		return err
	}

	m.backend.mu.Lock()
	m.backend.slots[m.slot] = data
	m.backend.mu.Unlock()

	return nil
}

func (m *memoryStore) Purge() error {
	m.backend.mu.Lock()
	delete(m.backend.slots, m.slot)
	m.backend.mu.Unlock()

	return nil
}

// FileBackend stores each slot as <dir>/<slot>.json.
type FileBackend struct {
	dir string
}

func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &FileBackend{dir: dir}, nil
}

func (b *FileBackend) Slot(name string) (Store, error) {
	if err := validateSlot(name); err != nil {
		return nil, err
	}
	return &fileStore{dir: b.dir, path: filepath.Join(b.dir, name+".json")}, nil
}

func (b *FileBackend) Close() error { return nil }

type fileStore struct {
	dir  string
	path string
}

func (f *fileStore) Load() (State, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return State{}, ErrNoSnapshot
		}
		return State{}, fmt.Errorf("read snapshot: %w", err)
	}
	return decodeState(data)
}

// Save writes to a temporary file and renames it over the old snapshot,
// so a crash never leaves a half-written file behind.
func (f *fileStore) Save(s State) error {
	data, err := encodeState(s)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.dir, filepath.Base(f.path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp snapshot: %w", err)
	}

	if err := os.Rename(tmpName, f.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace snapshot: %w", err)
	}

	return nil
}

func (f *fileStore) Purge() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove snapshot: %w", err)
	}
	return nil
}
