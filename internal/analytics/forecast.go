package analytics

import "github.com/rewired-gh/dcompulse/internal/models"

// ComposeForecast takes the first HistoricalCount records as history and the
// last ForecastCount records as the forward segment. On short sequences the
// segments overlap; that is accepted as is.
func (a *Analyzer) ComposeForecast(records []models.DailyRecord) models.ForecastSeries {
	h := min(a.config.HistoricalCount, len(records))
	f := min(a.config.ForecastCount, len(records))

	series := models.ForecastSeries{
		Historical: make([]models.HistoricalPoint, 0, h),
		Forecast:   make([]models.ForecastPoint, 0, f),
	}
	for _, r := range records[:h] {
		series.Historical = append(series.Historical, models.HistoricalPoint{
			Date:             r.Date,
			Actual:           r.Value,
			ForecastBaseline: r.Target,
		})
	}
	band := a.config.ConfidenceBand
	for _, r := range records[len(records)-f:] {
		series.Forecast = append(series.Forecast, models.ForecastPoint{
			Date:            r.Date,
			ForecastValue:   r.Value,
			ConfidenceUpper: r.Value * (1 + band),
			ConfidenceLower: r.Value * (1 - band),
			ScenarioValue:   a.config.Scenario(r.Value),
		})
	}
	return series
}
