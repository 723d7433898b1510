package history

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/codeGROOVE-dev/orbit/pkg/behavior"
)

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "history-test.db"))
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func boolPtr(b bool) *bool { return &b }

func sampleEvents() []behavior.HistoryEvent {
	base := time.Date(2026, 2, 2, 7, 0, 0, 0, time.UTC)
	return []behavior.HistoryEvent{
		{
			Timestamp: base.Add(48 * time.Hour),
			Domain:    behavior.Health,
			Complied:  boolPtr(false),
			Technique: "habit_stacking",
			Kind:      behavior.KindResponse,
		},
		{
			Timestamp: base,
			Domain:    behavior.Health,
			Complied:  boolPtr(true),
			Technique: "implementation_intentions",
			Energy:    behavior.EnergyHigh,
			Context:   map[string]string{"location": "home"},
			Kind:      behavior.KindResponse,
		},
		{
			Timestamp: base.Add(24 * time.Hour),
			Domain:    behavior.Learning,
			Kind:      behavior.KindDelivered,
		},
	}
}

func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"memory": NewMemory(),
		"sqlite": newTestSQLite(t),
	}
}

func TestStoreRoundTrip(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := s.Append(ctx, "u1", sampleEvents()...); err != nil {
				t.Fatalf("Append: %v", err)
			}
			if err := s.Append(ctx, "u2", behavior.HistoryEvent{Timestamp: time.Now(), Domain: behavior.Finance}); err != nil {
				t.Fatalf("Append: %v", err)
			}

			got, err := s.Events(ctx, "u1", time.Time{})
			if err != nil {
				t.Fatalf("Events: %v", err)
			}
			if len(got) != 3 {
				t.Fatalf("got %d events, want 3", len(got))
			}
			for i := 1; i < len(got); i++ {
				if got[i].Timestamp.Before(got[i-1].Timestamp) {
					t.Errorf("events not ordered: %v before %v", got[i-1].Timestamp, got[i].Timestamp)
				}
			}
			first := got[0]
			if first.Complied == nil || !*first.Complied {
				t.Errorf("first event complied = %v, want true", first.Complied)
			}
			if first.Context["location"] != "home" {
				t.Errorf("context = %v, want location=home", first.Context)
			}
			if first.Energy != behavior.EnergyHigh || first.Technique != "implementation_intentions" {
				t.Errorf("first event = %+v", first)
			}
			if got[1].Complied != nil {
				t.Errorf("unrated event came back rated: %v", *got[1].Complied)
			}
		})
	}
}

func TestStoreKeepsLocalWallClock(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	newYork := time.FixedZone("EST", -5*3600)
	events := []behavior.HistoryEvent{
		{Timestamp: time.Date(2026, 2, 2, 23, 30, 0, 0, tokyo), Domain: behavior.Learning, Complied: boolPtr(true)},
		{Timestamp: time.Date(2026, 2, 3, 6, 15, 0, 0, newYork), Domain: behavior.Learning, Complied: boolPtr(false)},
	}
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := s.Append(ctx, "traveler", events...); err != nil {
				t.Fatalf("Append: %v", err)
			}
			got, err := s.Events(ctx, "traveler", time.Time{})
			if err != nil {
				t.Fatalf("Events: %v", err)
			}
			if len(got) != len(events) {
				t.Fatalf("got %d events, want %d", len(got), len(events))
			}
			for i, want := range events {
				ts := got[i].Timestamp
				if !ts.Equal(want.Timestamp) {
					t.Errorf("event %d instant = %v, want %v", i, ts, want.Timestamp)
				}
				if ts.Hour() != want.Timestamp.Hour() || ts.Weekday() != want.Timestamp.Weekday() {
					t.Errorf("event %d wall clock = %s, want %s", i, ts.Format("Mon 15:04"), want.Timestamp.Format("Mon 15:04"))
				}
			}
		})
	}
}

func TestSQLiteUpgradesOldSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := db.Exec(`CREATE TABLE history_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT, user_id TEXT NOT NULL, occurred_at INTEGER NOT NULL,
		domain TEXT DEFAULT '', kind TEXT DEFAULT '', technique_id TEXT DEFAULT '',
		energy_level TEXT DEFAULT '', complied INTEGER, context TEXT DEFAULT '')`); err != nil {
		t.Fatalf("create old table: %v", err)
	}
	ts := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	if _, err := db.Exec(`INSERT INTO history_events (user_id, occurred_at, domain) VALUES ('u1', ?, 'health')`, ts.UnixMilli()); err != nil {
		t.Fatalf("insert: %v", err)
	}
	_ = db.Close()

	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer func() { _ = s.Close() }()
	got, err := s.Events(context.Background(), "u1", time.Time{})
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(got) != 1 || !got[0].Timestamp.Equal(ts) || got[0].Timestamp.Location() != time.UTC {
		t.Errorf("events = %+v, want one UTC event at %v", got, ts)
	}
}

func TestStoreSince(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := s.Append(ctx, "u1", sampleEvents()...); err != nil {
				t.Fatalf("Append: %v", err)
			}
			since := time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC)
			got, err := s.Events(ctx, "u1", since)
			if err != nil {
				t.Fatalf("Events: %v", err)
			}
			if len(got) != 2 {
				t.Fatalf("got %d events since %v, want 2", len(got), since)
			}
			if got[0].Domain != behavior.Learning {
				t.Errorf("first domain = %s, want learning", got[0].Domain)
			}
		})
	}
}

func TestStoreRequiresUser(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.Events(context.Background(), "", time.Time{}); !errors.Is(err, ErrNoUser) {
				t.Errorf("Events err = %v, want ErrNoUser", err)
			}
			if err := s.Append(context.Background(), ""); !errors.Is(err, ErrNoUser) {
				t.Errorf("Append err = %v, want ErrNoUser", err)
			}
		})
	}
}

func TestMemoryReturnsCopies(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	ev := sampleEvents()[1]
	if err := m.Append(ctx, "u1", ev); err != nil {
		t.Fatalf("Append: %v", err)
	}
	ev.Context["location"] = "office"
	*ev.Complied = false

	got, err := m.Events(ctx, "u1", time.Time{})
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	got[0].Context["location"] = "gym"

	again, err := m.Events(ctx, "u1", time.Time{})
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if again[0].Context["location"] != "home" || !*again[0].Complied {
		t.Errorf("stored event was mutated: %+v", again[0])
	}
}
