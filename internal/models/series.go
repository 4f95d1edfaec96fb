package models

// DailyPoint is one aggregated value per successfully fetched day.
type DailyPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// DailyRecord carries a day's value alongside its target baseline.
type DailyRecord struct {
	Date   string  `json:"date"`
	Value  float64 `json:"value"`
	Target float64 `json:"target"`
}

// GrowthMetric is week-over-week growth. RatioPercent is nil when growth is
// undefined: too little history or a non-positive baseline.
type GrowthMetric struct {
	RatioPercent *float64 `json:"ratio_percent,omitempty"`
}

// Defined reports whether a growth value is available.
func (g GrowthMetric) Defined() bool {
	return g.RatioPercent != nil
}

// ShareEntry is one label's share of a day's total, in percent.
type ShareEntry struct {
	Label          string  `json:"label"`
	PercentOfTotal float64 `json:"percent_of_total"`
}

// GroupTotal is the summed value for one group key.
type GroupTotal struct {
	Label string  `json:"label"`
	Total float64 `json:"total"`
}

// PenetrationPoint is the percent of a day's total contributed by a subset.
type PenetrationPoint struct {
	Date    string  `json:"date"`
	Percent float64 `json:"percent"`
}

type HistoricalPoint struct {
	Date             string  `json:"date"`
	Actual           float64 `json:"actual"`
	ForecastBaseline float64 `json:"forecast_baseline"`
}

type ForecastPoint struct {
	Date            string  `json:"date"`
	ForecastValue   float64 `json:"forecast_value"`
	ConfidenceUpper float64 `json:"confidence_upper"`
	ConfidenceLower float64 `json:"confidence_lower"`
	ScenarioValue   float64 `json:"scenario_value"`
}

// ForecastSeries splits a record sequence into a historical and a forward
// segment. The two may overlap on short sequences.
type ForecastSeries struct {
	Historical []HistoricalPoint `json:"historical"`
	Forecast   []ForecastPoint   `json:"forecast"`
}
