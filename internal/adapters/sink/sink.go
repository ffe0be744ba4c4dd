// Package sink implements the append-only notification log.
package sink

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/bezboss20/Dashboard-sub001/internal/domain/model"
	"github.com/bezboss20/Dashboard-sub001/pkg/metrics"
)

// Sink is an append-only notification log.
type Sink interface {
	Append(ctx context.Context, e model.NotificationEntry) error
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewEntryID returns a time-ordered unique id for an entry stamped at t.
func NewEntryID(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// prepare fills the id and timestamp of e when missing.
func prepare(e model.NotificationEntry) model.NotificationEntry {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if e.ID == "" {
		e.ID = NewEntryID(e.Timestamp)
	}
	return e
}

// Memory keeps entries in process, newest last. A positive limit keeps only
// the most recent entries.
type Memory struct {
	mu      sync.RWMutex
	entries []model.NotificationEntry
	limit   int
}

// NewMemory creates an in-memory sink.
func NewMemory(limit int) *Memory {
	return &Memory{limit: limit}
}

// Append implements Sink.
func (m *Memory) Append(_ context.Context, e model.NotificationEntry) error {
	e = prepare(e)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	if m.limit > 0 && len(m.entries) > m.limit {
		m.entries = append([]model.NotificationEntry(nil), m.entries[len(m.entries)-m.limit:]...)
	}
	metrics.RecordSinkWrite("ok")
	return nil
}

// Entries returns a copy of the stored entries, oldest first.
func (m *Memory) Entries() []model.NotificationEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]model.NotificationEntry(nil), m.entries...)
}

// Len returns the number of stored entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Tee writes every entry to each sink in order and stops at the first
// failure. Put the authoritative sink first and mirrors after it: a failed
// write then leaves no copy behind, so a retried transition logs once. The
// id is assigned once so every sink stores the same entry.
type Tee []Sink

// Append implements Sink.
func (t Tee) Append(ctx context.Context, e model.NotificationEntry) error {
	e = prepare(e)
	for _, s := range t {
		if err := s.Append(ctx, e); err != nil {
			if errors.Is(err, ErrSinkWrite) {
				return err
			}
			return fmt.Errorf("%w: %w", ErrSinkWrite, err)
		}
	}
	return nil
}
