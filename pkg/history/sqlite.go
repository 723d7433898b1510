package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/codeGROOVE-dev/orbit/pkg/behavior"
)

const schema = `
CREATE TABLE IF NOT EXISTS history_events (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id      TEXT NOT NULL,
	occurred_at  INTEGER NOT NULL,
	utc_offset   INTEGER NOT NULL DEFAULT 0,
	domain       TEXT DEFAULT '',
	kind         TEXT DEFAULT '',
	technique_id TEXT DEFAULT '',
	energy_level TEXT DEFAULT '',
	complied     INTEGER,
	context      TEXT DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_history_user_time ON history_events(user_id, occurred_at);
`

// SQLite is a Store backed by a SQLite database file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating history schema: %w", err)
	}
	if err := addOffsetColumn(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

// addOffsetColumn upgrades databases created before offsets were stored.
// Their events read back in UTC.
func addOffsetColumn(db *sql.DB) error {
	var n int
	if err := db.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info('history_events') WHERE name = 'utc_offset'`).Scan(&n); err != nil {
		return fmt.Errorf("inspecting history schema: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := db.Exec(`ALTER TABLE history_events ADD COLUMN utc_offset INTEGER NOT NULL DEFAULT 0`); err != nil {
		return fmt.Errorf("migrating history schema: %w", err)
	}
	return nil
}

// zoneFor rebuilds the event's location from its stored offset so hour and
// weekday analysis sees the same wall clock the event was recorded in.
func zoneFor(offset int) *time.Location {
	if offset == 0 {
		return time.UTC
	}
	return time.FixedZone("", offset)
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Append implements Writer. All events are written in one transaction.
func (s *SQLite) Append(ctx context.Context, userID string, events ...behavior.HistoryEvent) error {
	if userID == "" {
		return ErrNoUser
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO history_events (user_id, occurred_at, utc_offset, domain, kind, technique_id, energy_level, complied, context)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close() //nolint:errcheck // closed with the transaction

	for _, e := range events {
		var complied sql.NullBool
		if e.Complied != nil {
			complied = sql.NullBool{Bool: *e.Complied, Valid: true}
		}
		var ctxJSON string
		if len(e.Context) > 0 {
			b, err := json.Marshal(e.Context)
			if err != nil {
				return fmt.Errorf("encoding event context: %w", err)
			}
			ctxJSON = string(b)
		}
		_, offset := e.Timestamp.Zone()
		if _, err := stmt.ExecContext(ctx, userID, e.Timestamp.UnixMilli(), offset, string(e.Domain), e.Kind,
			e.Technique, string(e.Energy), complied, ctxJSON); err != nil {
			return fmt.Errorf("inserting history event: %w", err)
		}
	}
	return tx.Commit()
}

// Events implements Reader.
func (s *SQLite) Events(ctx context.Context, userID string, since time.Time) ([]behavior.HistoryEvent, error) {
	if userID == "" {
		return nil, ErrNoUser
	}
	from := int64(math.MinInt64)
	if !since.IsZero() {
		from = since.UnixMilli()
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT occurred_at, utc_offset, domain, kind, technique_id, energy_level, complied, context
		 FROM history_events WHERE user_id = ? AND occurred_at >= ?
		 ORDER BY occurred_at, id`, userID, from)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only

	var out []behavior.HistoryEvent
	for rows.Next() {
		var (
			ms                            int64
			offset                        int
			domain, kind, tech, energy, c string
			complied                      sql.NullBool
		)
		if err := rows.Scan(&ms, &offset, &domain, &kind, &tech, &energy, &complied, &c); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		e := behavior.HistoryEvent{
			Timestamp: time.UnixMilli(ms).In(zoneFor(offset)),
			Domain:    behavior.Domain(domain),
			Kind:      kind,
			Technique: tech,
			Energy:    behavior.Energy(energy),
		}
		if complied.Valid {
			v := complied.Bool
			e.Complied = &v
		}
		if c != "" {
			if err := json.Unmarshal([]byte(c), &e.Context); err != nil {
				return nil, fmt.Errorf("decoding event context: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
