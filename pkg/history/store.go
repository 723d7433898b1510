// Package history stores the append-only event log the pattern analyzer reads.
package history

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/codeGROOVE-dev/orbit/pkg/behavior"
)

// ErrNoUser is returned when a call has no user id.
var ErrNoUser = errors.New("history: user id required")

// Reader returns a user's events at or after since, oldest first. A zero
// since returns everything.
type Reader interface {
	Events(ctx context.Context, userID string, since time.Time) ([]behavior.HistoryEvent, error)
}

// Writer appends events.
type Writer interface {
	Append(ctx context.Context, userID string, events ...behavior.HistoryEvent) error
}

// Store reads and writes.
type Store interface {
	Reader
	Writer
}

// Memory is an in-process Store.
type Memory struct {
	events map[string][]behavior.HistoryEvent
	mu     sync.RWMutex
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{events: make(map[string][]behavior.HistoryEvent)}
}

// Events implements Reader.
func (m *Memory) Events(ctx context.Context, userID string, since time.Time) ([]behavior.HistoryEvent, error) {
	if userID == "" {
		return nil, ErrNoUser
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []behavior.HistoryEvent
	for _, e := range m.events[userID] {
		if !since.IsZero() && e.Timestamp.Before(since) {
			continue
		}
		out = append(out, clone(e))
	}
	sortEvents(out)
	return out, nil
}

// Append implements Writer.
func (m *Memory) Append(ctx context.Context, userID string, events ...behavior.HistoryEvent) error {
	if userID == "" {
		return ErrNoUser
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range events {
		m.events[userID] = append(m.events[userID], clone(e))
	}
	return nil
}

func clone(e behavior.HistoryEvent) behavior.HistoryEvent {
	e.Context = maps.Clone(e.Context)
	if e.Complied != nil {
		v := *e.Complied
		e.Complied = &v
	}
	return e
}

func sortEvents(events []behavior.HistoryEvent) {
	slices.SortStableFunc(events, func(a, b behavior.HistoryEvent) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
}
