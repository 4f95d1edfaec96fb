package analytics

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/rewired-gh/dcompulse/internal/models"
)

const epsilon = 1e-9

func approx(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

func day(date string, rows ...models.SnapshotRow) models.DaySnapshot {
	return models.DaySnapshot{Date: date, Rows: rows, OK: true}
}

func failed(date string) models.DaySnapshot {
	return models.DaySnapshot{Date: date}
}

func row(brand, retailer, channel string, nsv float64) models.SnapshotRow {
	return models.SnapshotRow{Brand: brand, Retailer: retailer, Channel: channel, NSV: nsv}
}

func seriesOf(values ...float64) []models.DailyPoint {
	series := make([]models.DailyPoint, len(values))
	for i, v := range values {
		series[i] = models.DailyPoint{Date: fmt.Sprintf("2024-01-%02d", i+1), Value: v}
	}
	return series
}

func TestBuildSeries_AllDaysSucceed(t *testing.T) {
	days := make([]models.DaySnapshot, 0, 10)
	for i := 1; i <= 10; i++ {
		days = append(days, day(fmt.Sprintf("2024-03-%02d", i), row("A", "R", "store", float64(i))))
	}

	series := BuildSeries(days, nil)
	if len(series) != 10 {
		t.Fatalf("got %d points, want 10", len(series))
	}
	for i := 1; i < len(series); i++ {
		if series[i-1].Date >= series[i].Date {
			t.Errorf("dates not strictly ascending at %d: %s >= %s", i, series[i-1].Date, series[i].Date)
		}
	}
	if series[9].Value != 10 {
		t.Errorf("last value = %f, want 10", series[9].Value)
	}
}

func TestBuildSeries_OmitsFailedDays(t *testing.T) {
	days := []models.DaySnapshot{
		day("2024-03-01", row("A", "R", "store", 1)),
		failed("2024-03-02"),
		day("2024-03-03", row("A", "R", "store", 3)),
	}

	series := BuildSeries(days, nil)
	if len(series) != 2 {
		t.Fatalf("got %d points, want 2", len(series))
	}
	if series[0].Date != "2024-03-01" || series[1].Date != "2024-03-03" {
		t.Errorf("unexpected dates: %s, %s", series[0].Date, series[1].Date)
	}
	if series[1].Value != 3 {
		t.Errorf("2024-03-03 value = %f, want 3", series[1].Value)
	}
}

func TestBuildSeries_BrandFilterIgnoresCase(t *testing.T) {
	days := []models.DaySnapshot{
		day("2024-03-01",
			row("Acme", "R", "store", 10),
			row("ACME", "R", "digital", 5),
			row("Other", "R", "store", 100),
		),
	}

	series := BuildSeries(days, BrandFilter("acme"))
	if series[0].Value != 15 {
		t.Errorf("filtered value = %f, want 15", series[0].Value)
	}

	all := BuildSeries(days, BrandFilter("All"))
	if all[0].Value != 115 {
		t.Errorf("unfiltered value = %f, want 115", all[0].Value)
	}
}

func TestBuildDailyRecords(t *testing.T) {
	r1 := row("A", "R", "store", 10)
	r1.TargetNSV = 12
	r2 := row("B", "R", "store", 5)
	r2.TargetNSV = 4

	records := BuildDailyRecords([]models.DaySnapshot{day("2024-03-01", r1, r2), failed("2024-03-02")}, nil)
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].Value != 15 || records[0].Target != 16 {
		t.Errorf("unexpected record: %+v", records[0])
	}
}

func TestComputeGrowth(t *testing.T) {
	tests := []struct {
		name    string
		series  []models.DailyPoint
		defined bool
		want    float64
	}{
		{
			name:    "too short",
			series:  seriesOf(1, 2, 3, 4, 5, 6, 7),
			defined: false,
		},
		{
			name:    "empty",
			series:  nil,
			defined: false,
		},
		{
			name:    "ten percent",
			series:  seriesOf(100, 101, 102, 103, 104, 105, 106, 110),
			defined: true,
			want:    10,
		},
		{
			name:    "uses point seven back",
			series:  seriesOf(1, 1, 50, 0, 0, 0, 0, 0, 0, 75),
			defined: true,
			want:    50,
		},
		{
			name:    "zero baseline",
			series:  seriesOf(0, 1, 2, 3, 4, 5, 6, 7),
			defined: false,
		},
		{
			name:    "negative baseline",
			series:  seriesOf(-5, 1, 2, 3, 4, 5, 6, 7),
			defined: false,
		},
		{
			name:    "decline",
			series:  seriesOf(200, 0, 0, 0, 0, 0, 0, 150),
			defined: true,
			want:    -25,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeGrowth(tt.series)
			if got.Defined() != tt.defined {
				t.Fatalf("Defined() = %v, want %v", got.Defined(), tt.defined)
			}
			if tt.defined && !approx(*got.RatioPercent, tt.want) {
				t.Errorf("growth = %f, want %f", *got.RatioPercent, tt.want)
			}
		})
	}
}

func TestBuildShare(t *testing.T) {
	a := New(DefaultConfig())
	rows := []models.SnapshotRow{
		{Brand: "A", NSV: 60},
		{Brand: "B", NSV: 40},
	}

	shares := a.BuildShare(rows, FieldBrand)
	if len(shares) != 2 {
		t.Fatalf("got %d entries, want 2", len(shares))
	}
	if shares[0].Label != "A" || !approx(shares[0].PercentOfTotal, 60) {
		t.Errorf("first entry = %+v, want A 60%%", shares[0])
	}
	if shares[1].Label != "B" || !approx(shares[1].PercentOfTotal, 40) {
		t.Errorf("second entry = %+v, want B 40%%", shares[1])
	}

	var sum float64
	for _, s := range shares {
		sum += s.PercentOfTotal
	}
	if !approx(sum, 100) {
		t.Errorf("shares sum to %f, want 100", sum)
	}
}

func TestBuildShare_Empty(t *testing.T) {
	a := New(DefaultConfig())
	shares := a.BuildShare(nil, FieldBrand)
	if shares == nil || len(shares) != 0 {
		t.Errorf("expected empty non-nil list, got %#v", shares)
	}
}

func TestBuildShare_ZeroTotalUsesFloor(t *testing.T) {
	a := New(DefaultConfig())
	rows := []models.SnapshotRow{{Brand: "A"}, {Brand: "B"}}

	shares := a.BuildShare(rows, FieldBrand)
	for _, s := range shares {
		if s.PercentOfTotal != 0 || math.IsNaN(s.PercentOfTotal) {
			t.Errorf("entry %s = %f, want 0", s.Label, s.PercentOfTotal)
		}
	}
}

func TestBuildShare_GroupingIsCaseSensitive(t *testing.T) {
	a := New(DefaultConfig())
	rows := []models.SnapshotRow{
		{Brand: "Acme", NSV: 1},
		{Brand: "acme", NSV: 1},
	}
	if got := len(a.BuildShare(rows, FieldBrand)); got != 2 {
		t.Errorf("got %d groups, want 2", got)
	}
}

func TestBuildGroupTotals(t *testing.T) {
	rows := []models.SnapshotRow{
		row("A", "Walmart", "store", 10),
		row("B", "Target", "store", 5),
		row("C", "Walmart", "digital", 2.5),
	}

	totals := BuildGroupTotals(rows, FieldRetailer)
	want := []models.GroupTotal{{Label: "Walmart", Total: 12.5}, {Label: "Target", Total: 5}}
	if len(totals) != len(want) {
		t.Fatalf("got %d totals, want %d", len(totals), len(want))
	}
	for i := range want {
		if totals[i] != want[i] {
			t.Errorf("totals[%d] = %+v, want %+v", i, totals[i], want[i])
		}
	}

	if got := BuildGroupTotals(nil, FieldRetailer); got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil totals, got %#v", got)
	}
}

func TestBuildPenetration(t *testing.T) {
	a := New(DefaultConfig())
	days := []models.DaySnapshot{
		day("2024-03-01", row("A", "R", "digital", 25), row("A", "R", "store", 75)),
		failed("2024-03-02"),
		day("2024-03-03"),
		day("2024-03-04", row("A", "R", "Digital", 10), row("A", "R", "store", 10)),
	}

	points := a.BuildPenetration(days, ChannelEquals("digital"))
	if len(points) != 3 {
		t.Fatalf("got %d points, want 3", len(points))
	}
	if points[0].Date != "2024-03-01" || !approx(points[0].Percent, 25) {
		t.Errorf("points[0] = %+v, want 25%%", points[0])
	}
	if points[1].Date != "2024-03-03" || points[1].Percent != 0 {
		t.Errorf("points[1] = %+v, want 0%% for empty day", points[1])
	}
	if points[2].Percent != 0 {
		t.Errorf("channel match should be exact, got %f", points[2].Percent)
	}
}

func TestDeriveAlerts(t *testing.T) {
	a := New(DefaultConfig())
	alerts := a.DeriveAlerts(map[string]any{
		"x_null_pct": 0.10,
		"y_null_pct": 0.02,
		"z_other":    0.9,
	})

	if len(alerts) != 1 {
		t.Fatalf("got %d alerts, want 1: %+v", len(alerts), alerts)
	}
	got := alerts[0]
	if !strings.HasPrefix(got.Message, "x ") || !strings.Contains(got.Message, "10% nulls") {
		t.Errorf("unexpected message %q", got.Message)
	}
	if got.ConfidenceLabel != "90%" {
		t.Errorf("confidence = %q, want 90%%", got.ConfidenceLabel)
	}
	if got.Impact != models.ImpactMedium {
		t.Errorf("impact = %v, want Medium", got.Impact)
	}
}

func TestDeriveAlerts_SkipsNonConforming(t *testing.T) {
	a := New(DefaultConfig())
	alerts := a.DeriveAlerts(map[string]any{
		"text_null_pct":   "0.5",
		"bool_null_pct":   true,
		"nil_null_pct":    nil,
		"exact_null_pct":  0.05,
		"b_null_pct":      0.2,
		"a_null_pct":      0.3,
		"null_pct_prefix": 0.8,
	})

	if len(alerts) != 2 {
		t.Fatalf("got %d alerts, want 2: %+v", len(alerts), alerts)
	}
	if alerts[0].Metric != "a_null_pct" || alerts[1].Metric != "b_null_pct" {
		t.Errorf("alerts not ordered by key: %s, %s", alerts[0].Metric, alerts[1].Metric)
	}

	if got := a.DeriveAlerts(nil); got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil alerts for nil log, got %#v", got)
	}
}

func TestDeriveAlerts_MagnitudeImpact(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Impact = MagnitudeImpact(0.10, 0.25)
	a := New(cfg)

	alerts := a.DeriveAlerts(map[string]any{
		"a_null_pct": 0.06,
		"b_null_pct": 0.15,
		"c_null_pct": 0.40,
	})
	want := []models.Impact{models.ImpactLow, models.ImpactMedium, models.ImpactHigh}
	for i, w := range want {
		if alerts[i].Impact != w {
			t.Errorf("alerts[%d].Impact = %v, want %v", i, alerts[i].Impact, w)
		}
	}
}

func records(n int) []models.DailyRecord {
	out := make([]models.DailyRecord, n)
	for i := range out {
		out[i] = models.DailyRecord{
			Date:   fmt.Sprintf("2024-05-%02d", i+1),
			Value:  float64(100 + i),
			Target: float64(90 + i),
		}
	}
	return out
}

func TestComposeForecast_NonOverlapping(t *testing.T) {
	a := New(DefaultConfig())
	series := a.ComposeForecast(records(12))

	if len(series.Historical) != 6 || len(series.Forecast) != 6 {
		t.Fatalf("got %d/%d points, want 6/6", len(series.Historical), len(series.Forecast))
	}
	if series.Historical[5].Date != "2024-05-06" || series.Forecast[0].Date != "2024-05-07" {
		t.Errorf("segments overlap or skip: %s, %s", series.Historical[5].Date, series.Forecast[0].Date)
	}
	if series.Historical[0].Actual != 100 || series.Historical[0].ForecastBaseline != 90 {
		t.Errorf("unexpected historical point %+v", series.Historical[0])
	}

	fp := series.Forecast[0]
	if !approx(fp.ConfidenceUpper, fp.ForecastValue*1.05) || !approx(fp.ConfidenceLower, fp.ForecastValue*0.95) {
		t.Errorf("unexpected confidence band %+v", fp)
	}
	if fp.ScenarioValue != fp.ForecastValue {
		t.Errorf("scenario = %f, want mirror of %f", fp.ScenarioValue, fp.ForecastValue)
	}
}

func TestComposeForecast_FullOverlap(t *testing.T) {
	a := New(DefaultConfig())
	series := a.ComposeForecast(records(6))

	if len(series.Historical) != 6 || len(series.Forecast) != 6 {
		t.Fatalf("got %d/%d points, want 6/6", len(series.Historical), len(series.Forecast))
	}
	for i := range series.Historical {
		if series.Historical[i].Date != series.Forecast[i].Date {
			t.Errorf("segment mismatch at %d: %s vs %s", i, series.Historical[i].Date, series.Forecast[i].Date)
		}
	}
}

func TestComposeForecast_ShortAndEmpty(t *testing.T) {
	a := New(DefaultConfig())

	short := a.ComposeForecast(records(3))
	if len(short.Historical) != 3 || len(short.Forecast) != 3 {
		t.Errorf("got %d/%d points, want 3/3", len(short.Historical), len(short.Forecast))
	}

	empty := a.ComposeForecast(nil)
	if empty.Historical == nil || empty.Forecast == nil || len(empty.Historical) != 0 || len(empty.Forecast) != 0 {
		t.Errorf("expected empty non-nil segments, got %#v", empty)
	}
}

func TestUpliftScenario(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Scenario = UpliftScenario(10)
	a := New(cfg)

	series := a.ComposeForecast(records(1))
	if !approx(series.Forecast[0].ScenarioValue, 110) {
		t.Errorf("scenario = %f, want 110", series.Forecast[0].ScenarioValue)
	}

	if got := UpliftScenario(0)(42); got != 42 {
		t.Errorf("zero uplift = %f, want 42", got)
	}
}

func TestNew_FillsDefaults(t *testing.T) {
	a := New(Config{Threshold: 0.1})
	cfg := a.Config()
	if cfg.DenominatorFloor != DefaultDenominatorFloor {
		t.Errorf("floor = %f, want default", cfg.DenominatorFloor)
	}
	if cfg.NullSuffix != DefaultNullSuffix {
		t.Errorf("suffix = %q, want default", cfg.NullSuffix)
	}
	if cfg.Impact == nil || cfg.Scenario == nil {
		t.Error("policy functions should be defaulted")
	}
	if cfg.Threshold != 0.1 {
		t.Errorf("threshold = %f, want 0.1", cfg.Threshold)
	}
	// zero is a valid band and count, not "unset"
	if cfg.ConfidenceBand != 0 || cfg.HistoricalCount != 0 || cfg.ForecastCount != 0 {
		t.Errorf("explicit zero values should be kept, got %+v", cfg)
	}
	series := a.ComposeForecast(records(3))
	if len(series.Historical) != 0 || len(series.Forecast) != 0 {
		t.Errorf("zero counts should yield empty segments, got %d/%d", len(series.Historical), len(series.Forecast))
	}
}

func TestDeriveAlerts_ConfidenceClamped(t *testing.T) {
	a := New(DefaultConfig())
	alerts := a.DeriveAlerts(map[string]any{
		"over_null_pct": 1.004,
		"full_null_pct": 1.0,
		"way_null_pct":  1.7,
	})
	if len(alerts) != 3 {
		t.Fatalf("got %d alerts, want 3", len(alerts))
	}
	for _, al := range alerts {
		if al.ConfidenceLabel != "0%" {
			t.Errorf("%s confidence = %q, want 0%%", al.Metric, al.ConfidenceLabel)
		}
	}
}
