package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

// JSONFileTier keeps one JSON file per class and rewrites it wholesale.
// A process mutex plus an advisory file lock serialize writers.
type JSONFileTier struct {
	dir string
	mu  sync.Mutex
}

func NewJSONFileTier(dir string) (*JSONFileTier, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure cache dir: %w", err)
	}
	return &JSONFileTier{dir: dir}, nil
}

func (t *JSONFileTier) path(class Class) string {
	return filepath.Join(t.dir, string(class)+"_cache.json")
}

func (t *JSONFileTier) lock(class Class) (*flock.Flock, error) {
	fl := flock.New(t.path(class) + ".lock")
	if err := fl.Lock(); err != nil {
		return nil, fmt.Errorf("lock %s cache: %w", class, err)
	}
	return fl, nil
}

func (t *JSONFileTier) Load(class Class) (map[string]Entry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fl, err := t.lock(class)
	if err != nil {
		return nil, err
	}
	defer fl.Unlock()
	return t.loadUnlocked(class), nil
}

func (t *JSONFileTier) Update(class Class, fn func(map[string]Entry) bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	fl, err := t.lock(class)
	if err != nil {
		return err
	}
	defer fl.Unlock()

	entries := t.loadUnlocked(class)
	if !fn(entries) {
		return nil
	}
	return t.saveUnlocked(class, entries)
}

func (t *JSONFileTier) Clear(class Class) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	fl, err := t.lock(class)
	if err != nil {
		return err
	}
	defer fl.Unlock()
	if err := os.Remove(t.path(class)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s cache: %w", class, err)
	}
	return nil
}

func (t *JSONFileTier) Close() error { return nil }

// loadUnlocked treats a missing or malformed file as empty.
func (t *JSONFileTier) loadUnlocked(class Class) map[string]Entry {
	entries := make(map[string]Entry)
	data, err := os.ReadFile(t.path(class))
	if errors.Is(err, os.ErrNotExist) {
		return entries
	}
	if err != nil {
		log.Printf("❌ Error loading cache file %s: %v", t.path(class), err)
		return entries
	}
	if len(data) == 0 {
		return entries
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		log.Printf("⚠️ Cache file %s is malformed, treating as empty: %v", t.path(class), err)
		return make(map[string]Entry)
	}
	return entries
}

// saveUnlocked writes through a temp file so readers never see a partial file.
func (t *JSONFileTier) saveUnlocked(class Class, entries map[string]Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s cache: %w", class, err)
	}
	tmp, err := os.CreateTemp(t.dir, string(class)+"_cache-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), t.path(class)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace %s cache: %w", class, err)
	}
	return nil
}
