package analytics

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/rewired-gh/dcompulse/internal/models"
)

// BuildSeries sums the filtered NSV of each successfully fetched day.
// Failed days are omitted, never zero-filled.
func BuildSeries(days []models.DaySnapshot, filter RowFilter) []models.DailyPoint {
	series := make([]models.DailyPoint, 0, len(days))
	for _, day := range days {
		if !day.OK {
			continue
		}
		series = append(series, models.DailyPoint{
			Date:  day.Date,
			Value: sumRows(day.Rows, filter),
		})
	}
	return series
}

// BuildDailyRecords is BuildSeries with the day's target NSV alongside.
func BuildDailyRecords(days []models.DaySnapshot, filter RowFilter) []models.DailyRecord {
	records := make([]models.DailyRecord, 0, len(days))
	for _, day := range days {
		if !day.OK {
			continue
		}
		target := decimal.Zero
		for _, r := range day.Rows {
			if filter.match(r) && !math.IsNaN(r.TargetNSV) && !math.IsInf(r.TargetNSV, 0) {
				target = target.Add(decimal.NewFromFloat(r.TargetNSV))
			}
		}
		records = append(records, models.DailyRecord{
			Date:   day.Date,
			Value:  sumRows(day.Rows, filter),
			Target: target.InexactFloat64(),
		})
	}
	return records
}

// ComputeGrowth compares the last point with the one seven positions
// earlier. It needs at least eight points and a positive baseline.
func ComputeGrowth(series []models.DailyPoint) models.GrowthMetric {
	n := len(series)
	if n < growthLag+1 {
		return models.GrowthMetric{}
	}
	last := series[n-1].Value
	weekAgo := series[n-1-growthLag].Value
	if !(weekAgo > 0) {
		return models.GrowthMetric{}
	}
	ratio := (last - weekAgo) / weekAgo * 100
	return models.GrowthMetric{RatioPercent: &ratio}
}
