// Package sqlite persists raw readings so the processing pass can read a
// bounded recent window independently of the ingest stream.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/hazard-engine/internal/domain"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS readings (
	id          TEXT PRIMARY KEY,
	location    TEXT NOT NULL,
	lat         REAL NOT NULL,
	lon         REAL NOT NULL,
	observed_at INTEGER NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	population  INTEGER NOT NULL DEFAULT 0,
	fields      TEXT NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_readings_observed_at ON readings(observed_at);
CREATE INDEX IF NOT EXISTS idx_readings_location ON readings(location, observed_at);`

// Store is the SQLite-backed event store for raw readings.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates the database file and its directory if needed and applies
// the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// CheckReadiness verifies the database answers.
func (s *Store) CheckReadiness(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SaveReadings upserts readings in one transaction. A reading with an
// existing id replaces the stored row.
func (s *Store) SaveReadings(ctx context.Context, readings []domain.RawReading) error {
	if len(readings) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO readings(id, location, lat, lon, observed_at, description, population, fields)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			location=excluded.location,
			lat=excluded.lat,
			lon=excluded.lon,
			observed_at=excluded.observed_at,
			description=excluded.description,
			population=excluded.population,
			fields=excluded.fields`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range readings {
		fields, err := json.Marshal(r.Fields)
		if err != nil {
			return fmt.Errorf("encode fields for %s: %w", r.ID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			r.ID, r.Location, r.Lat, r.Lon, r.ObservedAt.UnixMilli(),
			r.Description, r.Population, string(fields),
		); err != nil {
			return fmt.Errorf("insert reading %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// RecentReadings returns up to limit readings observed at or after since,
// newest first.
func (s *Store) RecentReadings(ctx context.Context, since time.Time, limit int) ([]domain.RawReading, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, location, lat, lon, observed_at, description, population, fields
		FROM readings
		WHERE observed_at >= ?
		ORDER BY observed_at DESC, id
		LIMIT ?`, since.UnixMilli(), limit)
	if err != nil {
		return nil, fmt.Errorf("query recent readings: %w", err)
	}
	return scanReadings(rows)
}

// LatestPerLocation returns the newest reading of every location.
func (s *Store) LatestPerLocation(ctx context.Context) ([]domain.RawReading, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.location, r.lat, r.lon, r.observed_at, r.description, r.population, r.fields
		FROM readings r
		JOIN (
			SELECT location, MAX(observed_at) AS observed_at
			FROM readings
			GROUP BY location
		) latest ON latest.location = r.location AND latest.observed_at = r.observed_at
		ORDER BY r.location, r.id`)
	if err != nil {
		return nil, fmt.Errorf("query latest readings: %w", err)
	}
	return scanReadings(rows)
}

// Prune deletes readings observed before cutoff and returns how many went.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM readings WHERE observed_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune readings: %w", err)
	}
	return res.RowsAffected()
}

func scanReadings(rows *sql.Rows) ([]domain.RawReading, error) {
	defer rows.Close()

	var out []domain.RawReading
	for rows.Next() {
		var (
			r        domain.RawReading
			observed int64
			fields   string
		)
		if err := rows.Scan(&r.ID, &r.Location, &r.Lat, &r.Lon, &observed, &r.Description, &r.Population, &fields); err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		r.ObservedAt = time.UnixMilli(observed).UTC()
		if err := json.Unmarshal([]byte(fields), &r.Fields); err != nil {
			return nil, fmt.Errorf("decode fields for %s: %w", r.ID, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate readings: %w", err)
	}
	return out, nil
}
