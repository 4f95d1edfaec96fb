package analytics

import "github.com/rewired-gh/dcompulse/internal/models"

// BuildShare returns each group's percent of the rows' total, in first-seen
// order. A zero total is replaced by the denominator floor.
func (a *Analyzer) BuildShare(rows []models.SnapshotRow, field GroupField) []models.ShareEntry {
	order, sums := groupSums(rows, field)
	total := sumRows(rows, nil)
	denom := a.denominator(total)

	shares := make([]models.ShareEntry, 0, len(order))
	for _, key := range order {
		shares = append(shares, models.ShareEntry{
			Label:          key,
			PercentOfTotal: sums[key].InexactFloat64() / denom * 100,
		})
	}
	return shares
}

// BuildGroupTotals sums NSV per group key, in first-seen order.
func BuildGroupTotals(rows []models.SnapshotRow, field GroupField) []models.GroupTotal {
	order, sums := groupSums(rows, field)
	totals := make([]models.GroupTotal, 0, len(order))
	for _, key := range order {
		totals = append(totals, models.GroupTotal{
			Label: key,
			Total: sums[key].InexactFloat64(),
		})
	}
	return totals
}

// BuildPenetration computes, per successfully fetched day, the percent of
// the day's total NSV contributed by rows matching subset.
func (a *Analyzer) BuildPenetration(days []models.DaySnapshot, subset RowFilter) []models.PenetrationPoint {
	points := make([]models.PenetrationPoint, 0, len(days))
	for _, day := range days {
		if !day.OK {
			continue
		}
		part := sumRows(day.Rows, subset)
		total := a.denominator(sumRows(day.Rows, nil))
		points = append(points, models.PenetrationPoint{
			Date:    day.Date,
			Percent: part / total * 100,
		})
	}
	return points
}
