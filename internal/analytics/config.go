// Package analytics turns daily snapshots and DQ logs into the series,
// breakdowns, alerts and forecasts a dashboard renders.
package analytics

import (
	"math"

	"github.com/rewired-gh/dcompulse/internal/models"
)

const (
	DefaultNullSuffix       = "_null_pct"
	DefaultThreshold        = 0.05
	DefaultDenominatorFloor = 1.0
	DefaultConfidenceBand   = 0.05
	DefaultHistoricalCount  = 6
	DefaultForecastCount    = 6

	// growthLag is the number of points between the compared values.
	growthLag = 7
)

// ImpactFunc grades an alert from the offending null fraction.
type ImpactFunc func(value float64) models.Impact

// ScenarioFunc maps a point forecast to its scenario value.
type ScenarioFunc func(forecast float64) float64

type Config struct {
	// DenominatorFloor replaces a zero total in share and penetration ratios.
	DenominatorFloor float64
	NullSuffix       string
	Threshold        float64
	Impact           ImpactFunc
	ConfidenceBand   float64
	Scenario         ScenarioFunc
	HistoricalCount  int
	ForecastCount    int
}

func DefaultConfig() Config {
	return Config{
		DenominatorFloor: DefaultDenominatorFloor,
		NullSuffix:       DefaultNullSuffix,
		Threshold:        DefaultThreshold,
		Impact:           ConstantImpact(models.ImpactMedium),
		ConfidenceBand:   DefaultConfidenceBand,
		Scenario:         MirrorScenario,
		HistoricalCount:  DefaultHistoricalCount,
		ForecastCount:    DefaultForecastCount,
	}
}

// ConstantImpact grades every alert the same.
func ConstantImpact(impact models.Impact) ImpactFunc {
	return func(float64) models.Impact { return impact }
}

// MagnitudeImpact grades alerts High at or above high, Low below low and
// Medium in between.
func MagnitudeImpact(low, high float64) ImpactFunc {
	return func(v float64) models.Impact {
		switch {
		case v >= high:
			return models.ImpactHigh
		case v < low:
			return models.ImpactLow
		default:
			return models.ImpactMedium
		}
	}
}

// MirrorScenario returns the point forecast unchanged.
func MirrorScenario(forecast float64) float64 {
	return forecast
}

// UpliftScenario scales the point forecast by (1 + pct/100).
func UpliftScenario(pct float64) ScenarioFunc {
	if pct == 0 {
		return MirrorScenario
	}
	factor := 1 + pct/100
	return func(forecast float64) float64 {
		return forecast * factor
	}
}

// Analyzer applies the configured policies to the aggregations that need them.
type Analyzer struct {
	config Config
}

// New returns an Analyzer. A zero DenominatorFloor, an empty NullSuffix and
// nil Impact or Scenario fall back to the defaults. Threshold, ConfidenceBand
// and the forecast counts are used as given, so zero means zero; start from
// DefaultConfig to get the standard values.
func New(config Config) *Analyzer {
	def := DefaultConfig()
	if config.DenominatorFloor == 0 {
		config.DenominatorFloor = def.DenominatorFloor
	}
	if config.NullSuffix == "" {
		config.NullSuffix = def.NullSuffix
	}
	if config.Impact == nil {
		config.Impact = def.Impact
	}
	if config.Scenario == nil {
		config.Scenario = def.Scenario
	}
	if config.HistoricalCount < 0 {
		config.HistoricalCount = 0
	}
	if config.ForecastCount < 0 {
		config.ForecastCount = 0
	}
	return &Analyzer{config: config}
}

// Config returns the policies in effect.
func (a *Analyzer) Config() Config {
	return a.config
}

func (a *Analyzer) denominator(total float64) float64 {
	if total == 0 || math.IsNaN(total) {
		return a.config.DenominatorFloor
	}
	return total
}
