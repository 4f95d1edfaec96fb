package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rewired-gh/dcompulse/internal/analytics"
	"github.com/rewired-gh/dcompulse/internal/logger"
	"github.com/rewired-gh/dcompulse/internal/models"
)

// ErrSuperseded is returned by Refresh when a newer refresh started before
// this one finished. Its result is discarded.
var ErrSuperseded = errors.New("refresh superseded by a newer one")

type Config struct {
	WindowDays       int
	DigitalChannel   string
	FetchConcurrency int
}

func DefaultConfig() Config {
	return Config{
		WindowDays:       91,
		DigitalChannel:   "digital",
		FetchConcurrency: 16,
	}
}

// Publication is a Dashboard together with the refresh generation that
// produced it.
type Publication struct {
	Generation uint64
	Dashboard  models.Dashboard
}

// Pipeline coordinates refresh cycles. Only the most recently started
// refresh may publish; older ones are cancelled and their results dropped.
type Pipeline struct {
	source   Source
	analyzer *analytics.Analyzer
	config   Config
	now      func() time.Time

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	current    *Publication
}

func New(source Source, analyzer *analytics.Analyzer, config Config) *Pipeline {
	if config.WindowDays <= 0 {
		config.WindowDays = DefaultConfig().WindowDays
	}
	if config.DigitalChannel == "" {
		config.DigitalChannel = DefaultConfig().DigitalChannel
	}
	return &Pipeline{
		source:   source,
		analyzer: analyzer,
		config:   config,
		now:      time.Now,
	}
}

// SetClock replaces the time source used to compute the date window.
func (p *Pipeline) SetClock(now func() time.Time) {
	p.now = now
}

// Refresh runs one refresh cycle for brand and publishes it unless a newer
// refresh has started in the meantime.
func (p *Pipeline) Refresh(ctx context.Context, brand string) (Publication, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p.mu.Lock()
	p.generation++
	gen := p.generation
	if p.cancel != nil {
		p.cancel()
	}
	p.cancel = cancel
	p.mu.Unlock()

	log := logger.With("pipeline")
	start := time.Now()
	dates := WindowDates(p.now(), p.config.WindowDays)
	runDate := dates[len(dates)-1]

	var (
		days  []models.DaySnapshot
		dqLog map[string]any
		wg    sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		days = FetchWindow(ctx, p.source, dates, p.config.FetchConcurrency)
	}()
	go func() {
		defer wg.Done()
		var err error
		dqLog, err = p.source.FetchDQLog(ctx, runDate)
		if err != nil {
			log.Debug("No DQ log for %s: %v", runDate, err)
			dqLog = nil
		}
	}()
	wg.Wait()

	d := p.Build(brand, runDate, days, dqLog)

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.generation {
		log.Debug("Discarding refresh %d for brand %q: generation %d is current", gen, brand, p.generation)
		return Publication{}, ErrSuperseded
	}
	p.cancel = nil
	pub := Publication{Generation: gen, Dashboard: d}
	p.current = &pub

	log.Info("Published refresh %d for brand %q: %d/%d days, %d alerts in %v",
		gen, brand, len(d.Series), len(dates), len(d.Alerts), time.Since(start))
	return pub, nil
}

// Current returns the last published result.
func (p *Pipeline) Current() (Publication, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return Publication{}, false
	}
	return *p.current, true
}

// Build assembles a Dashboard from already fetched data. It does no I/O.
// Breakdowns use the last successfully fetched day of the window.
func (p *Pipeline) Build(brand, runDate string, days []models.DaySnapshot, dqLog map[string]any) models.Dashboard {
	if brand == "" {
		brand = analytics.AllBrands
	}
	filter := analytics.BrandFilter(brand)
	series := analytics.BuildSeries(days, filter)

	d := models.Dashboard{
		Brand:       brand,
		RunDate:     runDate,
		WindowDays:  len(days),
		Series:      series,
		Growth:      analytics.ComputeGrowth(series),
		Share:       []models.ShareEntry{},
		Retailers:   []models.GroupTotal{},
		Penetration: p.analyzer.BuildPenetration(days, analytics.ChannelEquals(p.config.DigitalChannel)),
		Alerts:      p.analyzer.DeriveAlerts(dqLog),
		Forecast:    p.analyzer.ComposeForecast(analytics.BuildDailyRecords(days, filter)),
	}
	if len(series) > 0 {
		latest := series[len(series)-1].Value
		d.LatestValue = &latest
	}
	if selected, ok := models.LastSuccessful(days); ok {
		d.SelectedDate = selected.Date
		d.Share = p.analyzer.BuildShare(selected.Rows, analytics.FieldBrand)
		d.Retailers = analytics.BuildGroupTotals(selected.Rows, analytics.FieldRetailer)
	}
	return d
}
