// Package filter is the pure visibility predicate over normalized records.
package filter

import (
	"strings"

	"github.com/alindq/go-road-disruptions/internal/models"
)

// Result pairs the visible subset with the derived severity counts.
type Result struct {
	Visible []*models.DisruptionRecord `json:"visible"`
	Counts  models.SeverityCounts      `json:"counts"`
}

// Apply computes the visible subset and severity counts in one O(n) pass.
// Visibility is conjunctive: Active AND severity selected AND (search empty
// OR location contains search, case-insensitive). Counts cover every Active
// record regardless of the current severity selection or search text, so the
// tallies show what toggling a severity would reveal. Records are never
// mutated or copied; Visible shares the input's pointers.
func Apply(records []*models.DisruptionRecord, criteria models.FilterCriteria) Result {
	search := strings.ToLower(strings.TrimSpace(criteria.SearchText))

	res := Result{Visible: make([]*models.DisruptionRecord, 0, len(records))}
	for _, rec := range records {
		if rec.Status != models.StatusActive {
			continue
		}

		switch rec.Severity {
		case models.SeveritySevere:
			res.Counts.Severe++
		case models.SeverityModerate:
			res.Counts.Moderate++
		case models.SeverityMinor:
			res.Counts.Minor++
		}
		res.Counts.Total++

		if !criteria.Severities.Has(rec.Severity) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(rec.Location), search) {
			continue
		}
		res.Visible = append(res.Visible, rec)
	}
	return res
}
