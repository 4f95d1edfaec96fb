// Package dashboard runs refresh cycles: it fetches a window of daily
// snapshots, feeds them through the aggregators and publishes the result.
package dashboard

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rewired-gh/dcompulse/internal/logger"
	"github.com/rewired-gh/dcompulse/internal/models"
)

const dateLayout = "2006-01-02"

// Source is the remote data the pipeline reads. curated.Client implements it.
type Source interface {
	FetchSnapshot(ctx context.Context, date string) ([]models.SnapshotRow, error)
	FetchDQLog(ctx context.Context, date string) (map[string]any, error)
}

// WindowDates returns the n calendar days ending with now's UTC date,
// oldest first.
func WindowDates(now time.Time, n int) []string {
	if n <= 0 {
		return []string{}
	}
	today := now.UTC()
	dates := make([]string, n)
	for i := 0; i < n; i++ {
		dates[i] = today.AddDate(0, 0, -(n - 1 - i)).Format(dateLayout)
	}
	return dates
}

// FetchWindow fetches every date concurrently and waits for all of them.
// Slot i always holds dates[i]; a failed fetch leaves OK false and does not
// affect the other slots.
func FetchWindow(ctx context.Context, src Source, dates []string, concurrency int) []models.DaySnapshot {
	log := logger.With("fetch")
	days := make([]models.DaySnapshot, len(dates))

	var g errgroup.Group
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for i, date := range dates {
		days[i].Date = date
		g.Go(func() error {
			rows, err := src.FetchSnapshot(ctx, date)
			if err != nil {
				log.Debug("No data for %s: %v", date, err)
				return nil
			}
			days[i].Rows = rows
			days[i].OK = true
			return nil
		})
	}
	_ = g.Wait()

	return days
}
