// Package memory keeps an append-only log of past question/answer pairs and
// retrieves the ones relevant to a new query.
package memory

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"github.com/boxcoder/boxcoder/internal/sandbox"
)

// Record is one remembered exchange. Records are never modified after they
// are written.
type Record struct {
	ID        int    `json:"id"`
	User      string `json:"user"`
	Assistant string `json:"assistant"`
}

// Store persists records as a single JSON array in one file. Writes go to a
// temp file that is renamed over the original, under an advisory lock so
// two processes never interleave an append.
type Store struct {
	path string
	mu   sync.Mutex
}

// Open returns a Store backed by path. The file need not exist.
func Open(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// All returns every record in insertion (id) order. A missing or corrupt file
// reads as an empty log.
func (s *Store) All() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Append stores a new exchange and returns its id, max(existing)+1.
func (s *Store) Append(user, assistant string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return 0, sandbox.Wrap(sandbox.KindPersistence, s.path, err, "create memory directory")
	}

	lock := flock.New(s.path + ".lock")
	if err := lock.Lock(); err != nil {
		return 0, sandbox.Wrap(sandbox.KindPersistence, s.path, err, "lock memory file")
	}
	defer lock.Unlock()

	records := s.load()
	id := 1
	for _, r := range records {
		if r.ID >= id {
			id = r.ID + 1
		}
	}
	records = append(records, Record{ID: id, User: user, Assistant: assistant})

	if err := s.write(records); err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Store) load() []Record {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return []Record{}
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil || records == nil {
		return []Record{}
	}
	return records
}

func (s *Store) write(records []Record) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return sandbox.Wrap(sandbox.KindPersistence, s.path, err, "encode memory")
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return sandbox.Wrap(sandbox.KindPersistence, s.path, err, "write memory")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return sandbox.Wrap(sandbox.KindPersistence, s.path, err, "replace memory file")
	}
	return nil
}
