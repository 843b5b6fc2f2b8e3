package storage

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileRecorder keeps one JSONL file per day: debug_YYYYMMDD.jsonl.
type FileRecorder struct {
	dir string
	mu  sync.Mutex
}

func NewFileRecorder(dir string) (*FileRecorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to ensure log dir: %w", err)
	}
	return &FileRecorder{dir: dir}, nil
}

func (r *FileRecorder) PathFor(day time.Time) string {
	return filepath.Join(r.dir, "debug_"+day.Format("20060102")+".jsonl")
}

func (r *FileRecorder) AppendSession(s Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	day := s.EndedAt
	if day.IsZero() {
		day = time.Now()
	}
	f, err := os.OpenFile(r.PathFor(day), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open append: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(s); err != nil {
		return fmt.Errorf("encode append: %w", err)
	}
	return nil
}

// LoadSessions returns the sessions stored for day in append order.
// A missing file is not an error.
func (r *FileRecorder) LoadSessions(day time.Time) ([]Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, err := os.Open(r.PathFor(day))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open read: %w", err)
	}
	defer f.Close()
	s := bufio.NewScanner(f)
	buf := make([]byte, 0, 1024*1024)
	s.Buffer(buf, 10*1024*1024)
	var sessions []Session
	for s.Scan() {
		line := s.Bytes()
		if len(line) == 0 {
			continue
		}
		var sess Session
		if err := json.Unmarshal(line, &sess); err != nil {
			log.Printf("⚠️ skipping malformed session line in %s: %v", f.Name(), err)
			continue
		}
		sessions = append(sessions, sess)
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	return sessions, nil
}
