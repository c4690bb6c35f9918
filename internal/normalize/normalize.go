// Package normalize coerces loosely-structured upstream disruption items
// into the strict internal record shape. The upstream schema is not
// guaranteed, so every extraction here is defensive: unknown severities fall
// back to Minor, unknown statuses fail open to Active, and coordinates are
// probed across the several shapes the feed has been observed to use.
package normalize

import (
	"strings"

	"github.com/google/uuid"

	"github.com/alindq/go-road-disruptions/internal/models"
)

const (
	// FallbackDescription fills Description when the upstream item has none.
	FallbackDescription = "No description provided"
	// FallbackStatusNote fills StatusNote when the upstream item has none.
	FallbackStatusNote = "No status update available"
)

// Record normalizes one raw feed item. It returns (nil, false) when the item
// cannot be normalized, which callers treat as "drop this record" — an
// expected outcome given the uncontrolled upstream schema, not an error.
//
// Policy: records without extractable coordinates are retained list-only
// (lenient mode). A record is only dropped when no usable location can be
// found, since a disruption with no describable place cannot be listed.
func Record(raw map[string]any) (*models.DisruptionRecord, bool) {
	if raw == nil {
		return nil, false
	}

	location := firstString(raw, "location", "roadName", "displayName")
	if location == "" {
		return nil, false
	}

	id := firstString(raw, "id", "disruptionId")
	if id == "" {
		id = uuid.NewString()
	}

	description := firstString(raw, "description", "comments")
	if description == "" {
		description = FallbackDescription
	}

	statusNote := firstString(raw, "statusNote", "currentUpdate", "statusDescription")
	if statusNote == "" {
		statusNote = FallbackStatusNote
	}

	rec := &models.DisruptionRecord{
		ID:          id,
		Location:    location,
		Severity:    Severity(firstValue(raw, "severity", "severityLevel", "severityDescription")),
		Description: description,
		StatusNote:  statusNote,
		Status:      Status(raw["status"]),
		Coordinates: coordinates(raw),
	}
	return rec, true
}

// Severity maps an arbitrary upstream severity value onto the closed
// three-level set by case-insensitive substring matching, priority order
// Severe > Moderate > Minor. Anything unrecognized, including non-strings,
// becomes Minor.
func Severity(raw any) models.Severity {
	s, ok := raw.(string)
	if !ok {
		return models.SeverityMinor
	}
	lower := strings.ToLower(s)
	switch {
	case containsAny(lower, "severe", "major", "high"):
		return models.SeveritySevere
	case containsAny(lower, "moderate", "medium"):
		return models.SeverityModerate
	default:
		return models.SeverityMinor
	}
}

// Status maps an arbitrary upstream status value onto Active/Inactive.
// Unrecognized values fail open to Active so disruptions are never silently
// hidden by a schema change. Inactive-like tokens are checked first because
// "inactive" contains "active".
func Status(raw any) models.Status {
	s, ok := raw.(string)
	if !ok {
		return models.StatusActive
	}
	lower := strings.ToLower(s)
	if containsAny(lower, "inactive", "closed", "cleared", "resolved", "ended") {
		return models.StatusInactive
	}
	return models.StatusActive
}

// coordinates probes the upstream shapes in priority order, first match
// wins:
//
//  1. {"geography": {"coordinates": [lon, lat]}}
//  2. {"point": {"coordinates": [lon, lat]}}
//  3. {"coordinates": [lon, lat]} (our own normalized shape, round-trip safe)
//  4. flat {"lat": ..., "lon": ...} scalars
//
// Returns nil when no shape yields a usable pair.
func coordinates(raw map[string]any) *models.Coordinates {
	for _, key := range []string{"geography", "point"} {
		if nested, ok := raw[key].(map[string]any); ok {
			if c := lonLatPair(nested["coordinates"]); c != nil {
				return c
			}
		}
	}
	if c := lonLatPair(raw["coordinates"]); c != nil {
		return c
	}

	lat, latOK := toFloat(raw["lat"])
	lon, lonOK := toFloat(raw["lon"])
	if latOK && lonOK {
		return &models.Coordinates{Lon: lon, Lat: lat}
	}
	return nil
}

// lonLatPair extracts a [lon, lat] pair from a decoded JSON array. Arrays
// with extra elements (e.g. an altitude) keep the first two; anything that
// is not at least two numbers is rejected.
func lonLatPair(raw any) *models.Coordinates {
	arr, ok := raw.([]any)
	if !ok || len(arr) < 2 {
		return nil
	}
	lon, lonOK := toFloat(arr[0])
	lat, latOK := toFloat(arr[1])
	if !lonOK || !latOK {
		return nil
	}
	return &models.Coordinates{Lon: lon, Lat: lat}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// firstString returns the first key whose value is a non-empty string after
// trimming.
func firstString(raw map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := raw[key].(string); ok {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

// firstValue returns the first key present with a non-nil value, for fields
// whose type is probed downstream.
func firstValue(raw map[string]any, keys ...string) any {
	for _, key := range keys {
		if v, ok := raw[key]; ok && v != nil {
			if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
				continue
			}
			return v
		}
	}
	return nil
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
