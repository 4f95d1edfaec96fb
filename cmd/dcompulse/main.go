package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rewired-gh/dcompulse/internal/analytics"
	"github.com/rewired-gh/dcompulse/internal/config"
	"github.com/rewired-gh/dcompulse/internal/curated"
	"github.com/rewired-gh/dcompulse/internal/dashboard"
	"github.com/rewired-gh/dcompulse/internal/logger"
	"github.com/rewired-gh/dcompulse/internal/models"
	"github.com/rewired-gh/dcompulse/internal/storage"
	"github.com/rewired-gh/dcompulse/internal/telegram"
)

var (
	configPath = flag.String("config", "", "Path to configuration file (optional; DCOMPULSE_* env vars override)")
	once       = flag.Bool("once", false, "Run a single refresh, print the dashboard as JSON and exit")
	brandFlag  = flag.String("brand", "", "Brand filter, overrides dashboard.brand")
	history    = flag.Int("history", 0, "Print the N newest archived reports as JSON and exit")
)

type refreshResult struct {
	pub dashboard.Publication
	err error
}

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	if *configPath != "" {
		logger.Info("Configuration loaded from %s", *configPath)
	}

	brand := cfg.Dashboard.Brand
	if *brandFlag != "" {
		brand = *brandFlag
	}

	source := curated.NewClient(cfg.API.BaseURL, cfg.API.Timeout, curated.ClientConfig{
		MaxIdleConns:        cfg.API.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.API.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.API.IdleConnTimeout,
	})
	pipe := dashboard.New(source, analytics.New(analyzerConfig(cfg)), dashboard.Config{
		WindowDays:       cfg.Dashboard.WindowDays,
		DigitalChannel:   cfg.Dashboard.DigitalChannel,
		FetchConcurrency: cfg.Dashboard.FetchConcurrency,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *once {
		pub, err := pipe.Refresh(ctx, brand)
		if err != nil {
			logger.Fatal("Refresh failed: %v", err)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(pub.Dashboard); err != nil {
			logger.Fatal("Failed to encode dashboard: %v", err)
		}
		return
	}

	var store *storage.Storage
	if cfg.Storage.Enabled {
		store, err = storage.New(cfg.Storage.MaxReports, cfg.Storage.DBPath)
		if err != nil {
			logger.Fatal("Failed to initialize storage: %v", err)
		}
		defer func() {
			if err := store.Close(); err != nil {
				logger.Error("Failed to close storage: %v", err)
			}
		}()
	} else {
		logger.Debug("Report archive disabled")
	}

	if *history > 0 {
		if store == nil {
			logger.Fatal("-history needs storage.enabled")
		}
		if err := printHistory(os.Stdout, store, *history); err != nil {
			logger.Fatal("Failed to list reports: %v", err)
		}
		return
	}

	var telegramClient *telegram.Client
	if cfg.Telegram.Enabled {
		telegramClient, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram client: %v", err)
		}
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cleaning up...")
		cancel()
	}()

	// read by the command listener, written by the loop below
	var activeBrand atomic.Value
	activeBrand.Store(brand)

	brandChan := make(chan string, 1)
	if telegramClient != nil {
		telegramClient.ListenForCommands(ctx, telegram.Commands{
			Summary: func() (models.Dashboard, bool) {
				return summary(pipe, store, activeBrand.Load().(string))
			},
			SelectBrand: func(b string) {
				select {
				case brandChan <- b:
				case <-ctx.Done():
				}
			},
		})
	}

	results := make(chan refreshResult)
	startRefresh := func(b string) {
		logger.Debug("Starting refresh for brand %q", b)
		go func() {
			pub, err := pipe.Refresh(ctx, b)
			select {
			case results <- refreshResult{pub: pub, err: err}:
			case <-ctx.Done():
			}
		}()
	}

	logger.Info("Starting dashboard service (interval: %v, window_days: %d, brand: %q)",
		cfg.Dashboard.RefreshInterval, cfg.Dashboard.WindowDays, brand)

	ticker := time.NewTicker(cfg.Dashboard.RefreshInterval)
	defer ticker.Stop()

	consecutiveFailures := 0

	handleResult := func(res refreshResult) {
		if errors.Is(res.err, dashboard.ErrSuperseded) {
			logger.Debug("Dropped superseded refresh")
			return
		}
		err := res.err
		if err == nil && len(res.pub.Dashboard.Series) == 0 {
			err = fmt.Errorf("no snapshot data in the %d days ending %s", res.pub.Dashboard.WindowDays, res.pub.Dashboard.RunDate)
		}
		if err != nil {
			consecutiveFailures++
			logger.Error("Refresh failed: %v", err)
			if consecutiveFailures == 1 && telegramClient != nil {
				if sendErr := telegramClient.SendError(err); sendErr != nil {
					logger.Warn("Failed to send error notification to Telegram: %v", sendErr)
				}
			}
			return
		}
		if consecutiveFailures > 0 && telegramClient != nil {
			if sendErr := telegramClient.SendRecovery(consecutiveFailures); sendErr != nil {
				logger.Warn("Failed to send recovery notification to Telegram: %v", sendErr)
			}
		}
		consecutiveFailures = 0
		publish(res.pub, store, telegramClient)
	}

	startRefresh(brand)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Service stopped")
			return

		case res := <-results:
			handleResult(res)

		case b := <-brandChan:
			logger.Info("Brand filter changed from %q to %q", brand, b)
			brand = b
			activeBrand.Store(brand)
			startRefresh(brand)

		case <-ticker.C:
			startRefresh(brand)
			if store != nil {
				if err := store.RotateReports(); err != nil {
					logger.Warn("Failed to rotate reports: %v", err)
				}
			}
		}
	}
}

// publish archives a publication and pushes it to Telegram. Alerts already
// pushed for the same run date are left out of the message.
func publish(pub dashboard.Publication, store *storage.Storage, telegramClient *telegram.Client) {
	d := pub.Dashboard

	if store != nil {
		report := &models.Report{Generation: pub.Generation, Dashboard: d}
		if err := store.SaveReport(report); err != nil {
			logger.Warn("Failed to archive report: %v", err)
		} else {
			logger.Debug("Archived report %s (generation %d)", report.ID, pub.Generation)
		}
	}

	if telegramClient == nil {
		return
	}

	alerts := d.Alerts
	if store != nil {
		fresh, err := store.FilterUnnotified(d.RunDate, alerts)
		if err != nil {
			logger.Warn("Failed to filter notified alerts: %v", err)
		} else {
			alerts = fresh
		}
	}

	if err := telegramClient.SendDashboard(d, alerts); err != nil {
		logger.Error("Failed to send Telegram notification: %v", err)
		return
	}
	logger.Info("Sent Telegram summary with %d alerts", len(alerts))

	if store != nil {
		if err := store.MarkAlertsNotified(d.RunDate, alerts); err != nil {
			logger.Warn("Failed to record notified alerts: %v", err)
		}
	}
}

// summary returns the live dashboard. Before the first refresh publishes it
// falls back to the newest archived report for brand.
func summary(pipe *dashboard.Pipeline, store *storage.Storage, brand string) (models.Dashboard, bool) {
	if pub, ok := pipe.Current(); ok {
		return pub.Dashboard, true
	}
	if store == nil {
		return models.Dashboard{}, false
	}
	report, err := store.LatestReport(brand)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logger.Warn("Failed to load archived report: %v", err)
		}
		return models.Dashboard{}, false
	}
	logger.Debug("Serving archived report %s for /summary", report.ID)
	return report.Dashboard, true
}

// printHistory writes the n newest archived reports to w, one JSON object per line.
func printHistory(w io.Writer, store *storage.Storage, n int) error {
	reports, err := store.ListReports(n)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	for _, r := range reports {
		entry := struct {
			ID         string           `json:"id"`
			Generation uint64           `json:"generation"`
			CreatedAt  time.Time        `json:"created_at"`
			Dashboard  models.Dashboard `json:"dashboard"`
		}{r.ID, r.Generation, r.CreatedAt, r.Dashboard}
		if err := enc.Encode(entry); err != nil {
			return err
		}
	}
	return nil
}

// analyzerConfig maps configuration onto aggregation policies.
func analyzerConfig(cfg *config.Config) analytics.Config {
	ac := analytics.Config{
		DenominatorFloor: cfg.Dashboard.DenominatorFloor,
		NullSuffix:       cfg.Alerts.NullSuffix,
		Threshold:        cfg.Alerts.Threshold,
		ConfidenceBand:   cfg.Forecast.ConfidenceBand,
		Scenario:         analytics.UpliftScenario(cfg.Forecast.ScenarioUplift),
		HistoricalCount:  cfg.Forecast.HistoricalCount,
		ForecastCount:    cfg.Forecast.ForecastCount,
	}
	switch cfg.Alerts.ImpactMode {
	case "magnitude":
		ac.Impact = analytics.MagnitudeImpact(cfg.Alerts.ImpactLow, cfg.Alerts.ImpactHigh)
	default:
		impact, err := models.ParseImpact(cfg.Alerts.Impact)
		if err != nil {
			impact = models.ImpactMedium
		}
		ac.Impact = analytics.ConstantImpact(impact)
	}
	return ac
}
