package db

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	_ "modernc.org/sqlite"

	"github.com/zsprackett/audioid-web/internal/events"
)

type DB struct {
	sql *sql.DB
}

func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	conn.SetMaxOpenConns(1)
	for _, pragma := range []string{"PRAGMA journal_mode = WAL", "PRAGMA busy_timeout = 5000"} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("open db: %s: %w", pragma, err)
		}
	}
	return &DB{sql: conn}, nil
}

func (d *DB) Close() error {
	return d.sql.Close()
}

func (d *DB) Migrate() error {
	_, err := d.sql.Exec(`
		CREATE TABLE IF NOT EXISTS audio_events (
			id         TEXT PRIMARY KEY,
			time       REAL,
			type       TEXT NOT NULL DEFAULT '',
			label      TEXT NOT NULL DEFAULT '',
			duration   REAL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			updates    INTEGER NOT NULL DEFAULT 0
		)
	`)
	if err != nil {
		return fmt.Errorf("create audio_events: %w", err)
	}

	if _, err := d.sql.Exec(`CREATE INDEX IF NOT EXISTS idx_audio_events_created ON audio_events(created_at DESC)`); err != nil {
		return fmt.Errorf("index audio_events: %w", err)
	}
	return nil
}

// UpsertEvent inserts a new journal row or, when the id is already known,
// revises its duration and updated time.
func (d *DB) UpsertEvent(e events.Event) error {
	if e.ID == "" {
		return fmt.Errorf("upsert event: missing id")
	}
	_, err := d.sql.Exec(`
		INSERT INTO audio_events (id, time, type, label, duration, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			duration   = excluded.duration,
			updated_at = excluded.updated_at,
			updates    = updates + 1`,
		e.ID, nullFloat(e.Time), e.Type, e.Label, nullFloat(e.Duration),
		e.Created.UnixMilli(), e.Updated.UnixMilli(),
	)
	return err
}

// RecentEvents returns up to limit journal rows, newest first.
func (d *DB) RecentEvents(limit int) ([]JournalEvent, error) {
	rows, err := d.sql.Query(`
		SELECT id, time, type, label, duration, created_at, updated_at, updates
		FROM audio_events
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []JournalEvent
	for rows.Next() {
		var je JournalEvent
		var tm, dur sql.NullFloat64
		var created, updated int64
		if err := rows.Scan(&je.ID, &tm, &je.Type, &je.Label, &dur, &created, &updated, &je.Updates); err != nil {
			return nil, err
		}
		je.Time = floatOrNaN(tm)
		je.Duration = floatOrNaN(dur)
		je.Created = time.UnixMilli(created)
		je.Updated = time.UnixMilli(updated)
		out = append(out, je)
	}
	return out, rows.Err()
}

// PruneBefore deletes rows last updated before cutoff.
func (d *DB) PruneBefore(cutoff time.Time) (int64, error) {
	res, err := d.sql.Exec("DELETE FROM audio_events WHERE updated_at < ?", cutoff.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (d *DB) CountEvents() (int, error) {
	var count int
	err := d.sql.QueryRow("SELECT COUNT(*) FROM audio_events").Scan(&count)
	return count, err
}

func nullFloat(f float64) sql.NullFloat64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: f, Valid: true}
}

func floatOrNaN(f sql.NullFloat64) float64 {
	if !f.Valid {
		return math.NaN()
	}
	return f.Float64
}
