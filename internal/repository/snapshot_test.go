package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alindq/go-road-disruptions/internal/models"
)

func setupTestDB(t *testing.T) *SQLiteDB {
	db, err := NewSQLiteDB(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLiteDB_LoadEmpty(t *testing.T) {
	db := setupTestDB(t)

	records, fetchedAt, err := db.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected no records, got %d", len(records))
	}
	if !fetchedAt.IsZero() {
		t.Errorf("expected zero fetch time, got %v", fetchedAt)
	}
}

func TestSQLiteDB_SaveLoadRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	fetchedAt := time.Date(2026, 8, 25, 9, 30, 0, 0, time.UTC)
	records := []*models.DisruptionRecord{
		{
			ID:          "d1",
			Location:    "Oxford St",
			Severity:    models.SeveritySevere,
			Description: "Burst water main",
			StatusNote:  "Lane one closed",
			Status:      models.StatusActive,
			Coordinates: &models.Coordinates{Lon: -0.141, Lat: 51.515},
		},
		{
			ID:          "d2",
			Location:    "Strand",
			Severity:    models.SeverityMinor,
			Description: "Roadworks",
			StatusNote:  "Expect delays",
			Status:      models.StatusInactive,
			// no coordinates: list-only record
		},
	}

	if err := db.Save(ctx, records, fetchedAt); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, gotAt, err := db.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !gotAt.Equal(fetchedAt) {
		t.Errorf("expected fetch time %v, got %v", fetchedAt, gotAt)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}

	byID := make(map[string]*models.DisruptionRecord, len(got))
	for _, r := range got {
		byID[r.ID] = r
	}

	d1 := byID["d1"]
	if d1 == nil {
		t.Fatal("d1 missing from snapshot")
	}
	if d1.Location != "Oxford St" || d1.Severity != models.SeveritySevere {
		t.Errorf("d1 fields mismatched: %+v", d1)
	}
	if !d1.HasCoordinates() || d1.Coordinates.Lon != -0.141 || d1.Coordinates.Lat != 51.515 {
		t.Errorf("d1 coordinates mismatched: %+v", d1.Coordinates)
	}

	d2 := byID["d2"]
	if d2 == nil {
		t.Fatal("d2 missing from snapshot")
	}
	if d2.HasCoordinates() {
		t.Errorf("d2 should have no coordinates, got %+v", d2.Coordinates)
	}
	if d2.Status != models.StatusInactive {
		t.Errorf("expected d2 Inactive, got %s", d2.Status)
	}
}

func TestSQLiteDB_SaveReplacesWholesale(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	first := []*models.DisruptionRecord{
		{ID: "old", Location: "Euston Rd", Severity: models.SeverityModerate,
			Description: "x", StatusNote: "x", Status: models.StatusActive},
	}
	if err := db.Save(ctx, first, time.Now()); err != nil {
		t.Fatalf("first Save failed: %v", err)
	}

	second := []*models.DisruptionRecord{
		{ID: "new", Location: "Mall", Severity: models.SeverityMinor,
			Description: "y", StatusNote: "y", Status: models.StatusActive},
	}
	laterAt := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	if err := db.Save(ctx, second, laterAt); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	got, gotAt, err := db.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "new" {
		t.Errorf("expected only the new record, got %+v", got)
	}
	if !gotAt.Equal(laterAt) {
		t.Errorf("expected fetch time %v, got %v", laterAt, gotAt)
	}
}

func TestSQLiteDB_SaveEmptySet(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	seed := []*models.DisruptionRecord{
		{ID: "d1", Location: "Oxford St", Severity: models.SeveritySevere,
			Description: "x", StatusNote: "x", Status: models.StatusActive},
	}
	if err := db.Save(ctx, seed, time.Now()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// An upstream feed with zero disruptions is a valid successful fetch.
	at := time.Now().UTC()
	if err := db.Save(ctx, nil, at); err != nil {
		t.Fatalf("Save of empty set failed: %v", err)
	}

	got, gotAt, err := db.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty snapshot, got %d records", len(got))
	}
	if gotAt.IsZero() {
		t.Error("expected non-zero fetch time for saved empty snapshot")
	}
}
