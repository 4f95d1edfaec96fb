// Package models defines the core domain entities: snapshot rows, derived
// series, breakdowns, alerts and the published dashboard.
package models

import (
	"errors"
	"math"
)

// SnapshotRow is one record of a day's curated dataset.
type SnapshotRow struct {
	Brand     string  `json:"brand"`
	Retailer  string  `json:"retailer"`
	Channel   string  `json:"channel"`
	Date      string  `json:"date,omitempty"`
	NSV       float64 `json:"nsv"`
	TargetNSV float64 `json:"target_nsv,omitempty"`
}

// Validate checks row field constraints.
func (r *SnapshotRow) Validate() error {
	if math.IsNaN(r.NSV) || math.IsInf(r.NSV, 0) {
		return errors.New("nsv must be a finite number")
	}
	if math.IsNaN(r.TargetNSV) || math.IsInf(r.TargetNSV, 0) {
		return errors.New("target nsv must be a finite number")
	}
	return nil
}

// DaySnapshot is the full row set fetched for one calendar day.
// OK is false when the fetch for Date failed; Rows is nil in that case.
type DaySnapshot struct {
	Date string
	Rows []SnapshotRow
	OK   bool
}

// LastSuccessful returns the most recent day in days that was fetched
// successfully. days must be in ascending date order.
func LastSuccessful(days []DaySnapshot) (DaySnapshot, bool) {
	for i := len(days) - 1; i >= 0; i-- {
		if days[i].OK {
			return days[i], true
		}
	}
	return DaySnapshot{}, false
}
