package analytics

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rewired-gh/dcompulse/internal/models"
)

// DeriveAlerts scans a DQ log for null-fraction metrics above the threshold.
// Keys without the null suffix, non-numeric values and values at or below
// the threshold are skipped. Alerts are ordered by metric key.
func (a *Analyzer) DeriveAlerts(log map[string]any) []models.Alert {
	keys := make([]string, 0, len(log))
	for k := range log {
		if strings.HasSuffix(k, a.config.NullSuffix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	alerts := make([]models.Alert, 0, len(keys))
	for _, k := range keys {
		v, ok := numeric(log[k])
		if !ok || !(v > a.config.Threshold) {
			continue
		}
		label := strings.TrimSuffix(k, a.config.NullSuffix)
		alerts = append(alerts, models.Alert{
			Metric:          k,
			Message:         fmt.Sprintf("%s has %.0f%% nulls", label, math.Round(v*100)),
			Impact:          a.config.Impact(v),
			ConfidenceLabel: fmt.Sprintf("%.0f%%", confidence(v)),
			Value:           v,
		})
	}
	return alerts
}

// confidence is the percent of non-null values, kept within [0, 100].
func confidence(v float64) float64 {
	c := math.Round(math.Min(math.Max(1-v, 0), 1) * 100)
	return c + 0 // normalize -0
}

// numeric reports the value of v if it holds a finite number.
func numeric(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
