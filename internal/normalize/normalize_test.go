package normalize

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alindq/go-road-disruptions/internal/models"
)

func TestSeverity_Closure(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want models.Severity
	}{
		{"exact severe", "Severe", models.SeveritySevere},
		{"severe incident phrase", "Severe incident reported", models.SeveritySevere},
		{"major", "Major delays", models.SeveritySevere},
		{"high", "HIGH impact", models.SeveritySevere},
		{"moderate", "Moderate", models.SeverityModerate},
		{"medium", "medium disruption", models.SeverityModerate},
		{"minor", "Minor", models.SeverityMinor},
		{"minimal", "Minimal", models.SeverityMinor},
		{"unrecognized", "banana", models.SeverityMinor},
		{"empty string", "", models.SeverityMinor},
		{"nil", nil, models.SeverityMinor},
		{"non-string", 42.0, models.SeverityMinor},
		{"bool", true, models.SeverityMinor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Severity(tt.in))
		})
	}
}

func TestSeverity_PriorityOrder(t *testing.T) {
	// A value matching both severe and moderate tokens resolves severe-first.
	assert.Equal(t, models.SeveritySevere, Severity("severe to moderate"))
}

func TestStatus_Closure(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want models.Status
	}{
		{"active", "Active", models.StatusActive},
		{"inactive", "Inactive", models.StatusInactive},
		{"closed", "Road Closed - cleared", models.StatusInactive},
		{"resolved", "resolved", models.StatusInactive},
		{"unrecognized fails open", "pending review", models.StatusActive},
		{"empty", "", models.StatusActive},
		{"nil", nil, models.StatusActive},
		{"non-string", 1.0, models.StatusActive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Status(tt.in))
		})
	}
}

func TestRecord_FullUpstreamShape(t *testing.T) {
	raw := map[string]any{
		"id":            "1",
		"location":      "Oxford St",
		"severityLevel": "Severe incident",
		"status":        "active",
		"comments":      "Burst water main",
		"currentUpdate": "Lane one closed",
		"lat":           51.515,
		"lon":           -0.141,
	}

	rec, ok := Record(raw)
	require.True(t, ok)
	assert.Equal(t, "1", rec.ID)
	assert.Equal(t, "Oxford St", rec.Location)
	assert.Equal(t, models.SeveritySevere, rec.Severity)
	assert.Equal(t, models.StatusActive, rec.Status)
	assert.Equal(t, "Burst water main", rec.Description)
	assert.Equal(t, "Lane one closed", rec.StatusNote)
	require.NotNil(t, rec.Coordinates)
	assert.Equal(t, -0.141, rec.Coordinates.Lon)
	assert.Equal(t, 51.515, rec.Coordinates.Lat)
}

func TestRecord_CoordinateShapes(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
		want *models.Coordinates
	}{
		{
			name: "nested geography",
			raw: map[string]any{
				"location":  "A40 Westway",
				"geography": map[string]any{"coordinates": []any{-0.21, 51.52}},
			},
			want: &models.Coordinates{Lon: -0.21, Lat: 51.52},
		},
		{
			name: "nested point",
			raw: map[string]any{
				"location": "A40 Westway",
				"point":    map[string]any{"coordinates": []any{-0.21, 51.52}},
			},
			want: &models.Coordinates{Lon: -0.21, Lat: 51.52},
		},
		{
			name: "flat lat lon",
			raw:  map[string]any{"location": "A40 Westway", "lat": 51.52, "lon": -0.21},
			want: &models.Coordinates{Lon: -0.21, Lat: 51.52},
		},
		{
			name: "geography wins over flat",
			raw: map[string]any{
				"location":  "A40 Westway",
				"geography": map[string]any{"coordinates": []any{-0.1, 51.5}},
				"lat":       0.0, "lon": 0.0,
			},
			want: &models.Coordinates{Lon: -0.1, Lat: 51.5},
		},
		{
			name: "trailing altitude ignored",
			raw: map[string]any{
				"location": "A40 Westway",
				"point":    map[string]any{"coordinates": []any{-0.21, 51.52, 35.0}},
			},
			want: &models.Coordinates{Lon: -0.21, Lat: 51.52},
		},
		{
			name: "no coordinates retained list-only",
			raw:  map[string]any{"location": "A40 Westway"},
			want: nil,
		},
		{
			name: "malformed pair retained list-only",
			raw: map[string]any{
				"location":  "A40 Westway",
				"geography": map[string]any{"coordinates": []any{"x", "y"}},
			},
			want: nil,
		},
		{
			name: "lat without lon retained list-only",
			raw:  map[string]any{"location": "A40 Westway", "lat": 51.5},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, ok := Record(tt.raw)
			require.True(t, ok)
			assert.Equal(t, tt.want, rec.Coordinates)
		})
	}
}

func TestRecord_Fallbacks(t *testing.T) {
	rec, ok := Record(map[string]any{"location": "Marble Arch"})
	require.True(t, ok)

	assert.NotEmpty(t, rec.ID, "missing upstream id must be synthesized")
	assert.Equal(t, FallbackDescription, rec.Description)
	assert.Equal(t, FallbackStatusNote, rec.StatusNote)
	assert.Equal(t, models.SeverityMinor, rec.Severity)
	assert.Equal(t, models.StatusActive, rec.Status)
}

func TestRecord_Dropped(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
	}{
		{"nil item", nil},
		{"empty item", map[string]any{}},
		{"whitespace location", map[string]any{"location": "   "}},
		{"non-string location", map[string]any{"location": 12.0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, ok := Record(tt.raw)
			assert.False(t, ok)
			assert.Nil(t, rec)
		})
	}
}

// Normalizing a record's own JSON form must reproduce it exactly.
func TestRecord_Idempotent(t *testing.T) {
	first, ok := Record(map[string]any{
		"id":            "d42",
		"location":      "Hyde Park Corner",
		"severityLevel": "Moderate",
		"status":        "Active",
		"description":   "Roadworks",
		"statusNote":    "Expect delays",
		"lat":           51.503, "lon": -0.152,
	})
	require.True(t, ok)

	data, err := json.Marshal(first)
	require.NoError(t, err)

	var roundTripped map[string]any
	require.NoError(t, json.Unmarshal(data, &roundTripped))

	second, ok := Record(roundTripped)
	require.True(t, ok)
	assert.Equal(t, first, second)
}
