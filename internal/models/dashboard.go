package models

import "time"

// Dashboard is the complete result set of one refresh cycle. It holds no
// wall-clock timestamps so identical inputs produce identical values.
type Dashboard struct {
	Brand        string             `json:"brand"`
	RunDate      string             `json:"run_date"`
	WindowDays   int                `json:"window_days"`
	SelectedDate string             `json:"selected_date,omitempty"`
	LatestValue  *float64           `json:"latest_value,omitempty"`
	Series       []DailyPoint       `json:"series"`
	Growth       GrowthMetric       `json:"growth"`
	Share        []ShareEntry       `json:"share"`
	Retailers    []GroupTotal       `json:"retailers"`
	Penetration  []PenetrationPoint `json:"penetration"`
	Alerts       []Alert            `json:"alerts"`
	Forecast     ForecastSeries     `json:"forecast"`
}

// Report is an archived publication of a Dashboard.
type Report struct {
	ID         string
	Generation uint64
	Dashboard  Dashboard
	CreatedAt  time.Time
}
