// Package repository persists the last successful fetch so a restarted
// process comes up with stale-but-available data instead of an empty screen,
// and so the new-severe diff has a baseline across restarts. The in-memory
// store stays authoritative; this is a cache of its last-good state.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/alindq/go-road-disruptions/internal/models"
)

// SnapshotStore is what the disruption store needs from persistence.
type SnapshotStore interface {
	Save(ctx context.Context, records []*models.DisruptionRecord, fetchedAt time.Time) error
	Load(ctx context.Context) ([]*models.DisruptionRecord, time.Time, error)
}

type SQLiteDB struct {
	db *sql.DB
}

func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}

	s := &SQLiteDB{
		db: db,
	}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("error while migrating database: %w", err)
	}

	return s, nil
}

func (s *SQLiteDB) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS disruptions (
			id TEXT PRIMARY KEY,
			location TEXT NOT NULL,
			severity TEXT NOT NULL,
			description TEXT NOT NULL,
			status_note TEXT NOT NULL,
			status TEXT NOT NULL,
			lon REAL,
			lat REAL
		);

		CREATE TABLE IF NOT EXISTS snapshot_meta (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			fetched_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_disruptions_severity ON disruptions(severity);
  	`

	_, err := s.db.Exec(schema)
	return err
}

// Save replaces the stored snapshot wholesale, mirroring the store's
// replace-on-success semantics.
func (s *SQLiteDB) Save(ctx context.Context, records []*models.DisruptionRecord, fetchedAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM disruptions`); err != nil {
		return fmt.Errorf("error clearing snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO disruptions (id, location, severity, description, status_note, status, lon, lat)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("error preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		var lon, lat sql.NullFloat64
		if rec.HasCoordinates() {
			lon = sql.NullFloat64{Float64: rec.Coordinates.Lon, Valid: true}
			lat = sql.NullFloat64{Float64: rec.Coordinates.Lat, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			rec.ID, rec.Location, string(rec.Severity), rec.Description,
			rec.StatusNote, string(rec.Status), lon, lat,
		); err != nil {
			return fmt.Errorf("error inserting disruption %s: %w", rec.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO snapshot_meta (id, fetched_at) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET fetched_at = excluded.fetched_at
	`, fetchedAt.UTC()); err != nil {
		return fmt.Errorf("error updating snapshot meta: %w", err)
	}

	return tx.Commit()
}

// Load returns the stored snapshot and its fetch time. A zero time means no
// snapshot has ever been saved.
func (s *SQLiteDB) Load(ctx context.Context) ([]*models.DisruptionRecord, time.Time, error) {
	var fetchedAt time.Time
	err := s.db.QueryRowContext(ctx, `SELECT fetched_at FROM snapshot_meta WHERE id = 1`).Scan(&fetchedAt)
	if err == sql.ErrNoRows {
		return nil, time.Time{}, nil
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("error reading snapshot meta: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, location, severity, description, status_note, status, lon, lat
		FROM disruptions
	`)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("error reading snapshot: %w", err)
	}
	defer rows.Close()

	var records []*models.DisruptionRecord
	for rows.Next() {
		var (
			rec      models.DisruptionRecord
			severity string
			status   string
			lon, lat sql.NullFloat64
		)
		if err := rows.Scan(&rec.ID, &rec.Location, &severity, &rec.Description,
			&rec.StatusNote, &status, &lon, &lat); err != nil {
			return nil, time.Time{}, fmt.Errorf("error scanning disruption: %w", err)
		}
		rec.Severity = models.Severity(severity)
		rec.Status = models.Status(status)
		if lon.Valid && lat.Valid {
			rec.Coordinates = &models.Coordinates{Lon: lon.Float64, Lat: lat.Float64}
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, time.Time{}, fmt.Errorf("error iterating snapshot: %w", err)
	}

	return records, fetchedAt, nil
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}
