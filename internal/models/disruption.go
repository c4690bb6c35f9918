package models

import (
	"encoding/json"
	"fmt"
)

// Severity is the closed three-level classification used for filtering and
// visual coding. Upstream free-text severities are coerced into this set by
// the normalizer and never pass through verbatim.
type Severity string

const (
	SeveritySevere   Severity = "Severe"
	SeverityModerate Severity = "Moderate"
	SeverityMinor    Severity = "Minor"
)

// AllSeverities lists the closed set in display order.
var AllSeverities = []Severity{SeveritySevere, SeverityModerate, SeverityMinor}

// Status marks whether a disruption is currently in effect.
type Status string

const (
	StatusActive   Status = "Active"
	StatusInactive Status = "Inactive"
)

// Coordinates is a WGS-84 position. It marshals as a [lon, lat] pair to match
// the GeoJSON axis order used by the map layer.
type Coordinates struct {
	Lon float64
	Lat float64
}

func (c Coordinates) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{c.Lon, c.Lat})
}

func (c *Coordinates) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("coordinates: expected [lon, lat], got %d elements", len(pair))
	}
	c.Lon, c.Lat = pair[0], pair[1]
	return nil
}

// DisruptionRecord is the strict internal shape every upstream item is
// normalized into. Location and Description are never empty; Coordinates is
// nil when no usable position could be extracted (such records are listed
// and counted but never get a map marker).
type DisruptionRecord struct {
	ID          string       `json:"id"`
	Location    string       `json:"location"`
	Severity    Severity     `json:"severity"`
	Description string       `json:"description"`
	StatusNote  string       `json:"statusNote"`
	Status      Status       `json:"status"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

func (r *DisruptionRecord) HasCoordinates() bool {
	return r != nil && r.Coordinates != nil
}

// SeveritySet is the set of severities currently selected in the filter.
// An empty set hides every record.
type SeveritySet map[Severity]struct{}

func NewSeveritySet(severities ...Severity) SeveritySet {
	s := make(SeveritySet, len(severities))
	for _, sv := range severities {
		s[sv] = struct{}{}
	}
	return s
}

func (s SeveritySet) Has(sv Severity) bool {
	_, ok := s[sv]
	return ok
}

// MarshalJSON emits the set as an array in display order so the wire shape
// is stable regardless of map iteration order.
func (s SeveritySet) MarshalJSON() ([]byte, error) {
	out := make([]Severity, 0, len(s))
	for _, sv := range AllSeverities {
		if s.Has(sv) {
			out = append(out, sv)
		}
	}
	return json.Marshal(out)
}

func (s *SeveritySet) UnmarshalJSON(data []byte) error {
	var in []Severity
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	set := make(SeveritySet, len(in))
	for _, sv := range in {
		switch sv {
		case SeveritySevere, SeverityModerate, SeverityMinor:
			set[sv] = struct{}{}
		default:
			return fmt.Errorf("unknown severity %q", sv)
		}
	}
	*s = set
	return nil
}

// FilterCriteria selects the visible subset of records. Filtering is always
// conjunctive: a record is visible iff it is Active, its severity is in
// Severities, and (SearchText is empty or Location contains it,
// case-insensitive).
type FilterCriteria struct {
	Severities SeveritySet `json:"severities"`
	SearchText string      `json:"searchText"`
}

// DefaultCriteria returns the reset state: all severities selected, no
// search text.
func DefaultCriteria() FilterCriteria {
	return FilterCriteria{
		Severities: NewSeveritySet(AllSeverities...),
		SearchText: "",
	}
}

// SeverityCounts is derived fresh on every filter application from the full
// active record set, regardless of which severities are currently selected,
// so users can see what toggling a severity would reveal.
type SeverityCounts struct {
	Severe   int `json:"severe"`
	Moderate int `json:"moderate"`
	Minor    int `json:"minor"`
	Total    int `json:"total"`
}

// BoundingBox approximates the metro area. Markers are only emitted for
// coordinates inside it; out-of-bounds records stay in the list and counts.
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

func (b BoundingBox) Contains(c Coordinates) bool {
	return c.Lat >= b.MinLat && c.Lat <= b.MaxLat &&
		c.Lon >= b.MinLon && c.Lon <= b.MaxLon
}
