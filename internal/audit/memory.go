package audit

import (
	"context"
	"sync"
)

var (
	_ Sink   = (*MemorySink)(nil)
	_ Lister = (*MemorySink)(nil)
)

// MemorySink keeps entries in process memory. Used when no database is
// configured and in tests. Bounded to the most recent maxEntries.
type MemorySink struct {
	mu      sync.RWMutex
	entries []Entry
	max     int
}

const defaultMaxEntries = 10_000

func NewMemorySink() *MemorySink {
	return &MemorySink{max: defaultMaxEntries}
}

func (s *MemorySink) Append(ctx context.Context, e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, *e)
	if len(s.entries) > s.max {
		s.entries = s.entries[len(s.entries)-s.max:]
	}
	return nil
}

// List returns the most recent entries, newest first.
func (s *MemorySink) List(ctx context.Context, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.entries) {
		limit = len(s.entries)
	}
	res := make([]Entry, 0, limit)
	for i := len(s.entries) - 1; i >= 0 && len(res) < limit; i-- {
		res = append(res, s.entries[i])
	}
	return res, nil
}
