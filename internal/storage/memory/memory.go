// Package memory is an in-process snapshot repository for tests and the
// memory data backend.
package memory

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// ErrUnavailable is returned by every call after Fail was set.
var ErrUnavailable = errors.New("memory store unavailable")

type Store struct {
	mu     sync.Mutex
	states map[string][]byte
	fail   bool
}

func New() *Store {
	return &Store{states: make(map[string][]byte)}
}

// NewFromDir seeds the store with every <user>.json file found in base.
// Unreadable files are skipped.
func NewFromDir(base string) *Store {
	s := New()
	entries, err := os.ReadDir(base)
	if err != nil {
		return s
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(base, e.Name()))
		if err != nil {
			slog.Warn("Skipping seed snapshot", "file", e.Name(), "error", err)
			continue
		}
		s.states[strings.TrimSuffix(e.Name(), ".json")] = data
	}
	return s
}

// Fail makes every following call return ErrUnavailable until reset with false.
func (s *Store) Fail(fail bool) {
	s.mu.Lock()
	s.fail = fail
	s.mu.Unlock()
}

func (s *Store) GetSnapshot(_ context.Context, userID string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return nil, false, ErrUnavailable
	}
	data, ok := s.states[userID]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

func (s *Store) PutSnapshot(_ context.Context, userID string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return ErrUnavailable
	}
	s.states[userID] = append([]byte(nil), data...)
	return nil
}

func (s *Store) DeleteSnapshot(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return ErrUnavailable
	}
	delete(s.states, userID)
	return nil
}

// ListUsers returns the stored user ids, sorted.
func (s *Store) ListUsers(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return nil, ErrUnavailable
	}
	out := make([]string, 0, len(s.states))
	for id := range s.states {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) Close() error { return nil }
