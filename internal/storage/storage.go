// Package storage provides SQLite-backed archiving of published dashboards
// and the record of which DQ alerts were already pushed.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/rewired-gh/dcompulse/internal/models"
)

// ErrNotFound is returned when no report matches a lookup.
var ErrNotFound = errors.New("report not found")

// Storage wraps a SQLite database for all persistence operations.
type Storage struct {
	db         *sql.DB
	maxReports int
}

// New opens or creates the SQLite database at dbPath.
// An empty dbPath defaults to $TMPDIR/dcompulse/data.db.
func New(maxReports int, dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "dcompulse", "data.db")
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	s := &Storage{db: db, maxReports: maxReports}
	if err := s.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS reports (
			id          TEXT PRIMARY KEY,
			generation  INTEGER NOT NULL,
			brand       TEXT NOT NULL,
			run_date    TEXT NOT NULL,
			payload     TEXT NOT NULL,
			created_at  INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_reports_brand ON reports(brand, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS alert_notifications (
			run_date  TEXT NOT NULL,
			metric    TEXT NOT NULL,
			sent_at   INTEGER NOT NULL,
			PRIMARY KEY (run_date, metric)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveReport archives a publication. An empty ID is filled with a new UUID
// and a zero CreatedAt with the current time.
func (s *Storage) SaveReport(report *models.Report) error {
	if report.ID == "" {
		report.ID = uuid.New().String()
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now()
	}
	payload, err := json.Marshal(report.Dashboard)
	if err != nil {
		return fmt.Errorf("failed to marshal dashboard: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.Exec(`
		INSERT INTO reports (id, generation, brand, run_date, payload, created_at)
		VALUES (?,?,?,?,?,?)`,
		report.ID, int64(report.Generation), report.Dashboard.Brand, report.Dashboard.RunDate,
		string(payload), report.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}

	if err := rotate(tx, s.maxReports); err != nil {
		return err
	}

	return tx.Commit()
}

// LatestReport returns the newest report for brand.
func (s *Storage) LatestReport(brand string) (*models.Report, error) {
	row := s.db.QueryRow(`SELECT `+reportCols+` FROM reports
		WHERE brand = ? ORDER BY created_at DESC LIMIT 1`, brand)
	r, err := scanReport(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: brand %s", ErrNotFound, brand)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return r, nil
}

// ListReports returns up to limit reports, newest first.
func (s *Storage) ListReports(limit int) ([]*models.Report, error) {
	rows, err := s.db.Query(`SELECT `+reportCols+` FROM reports
		ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	reports := []*models.Report{}
	for rows.Next() {
		r, err := scanReport(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// RotateReports keeps at most maxReports newest reports by created_at.
func (s *Storage) RotateReports() error {
	return rotate(s.db, s.maxReports)
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func rotate(db execer, maxReports int) error {
	_, err := db.Exec(`
		DELETE FROM reports WHERE id NOT IN (
			SELECT id FROM reports ORDER BY created_at DESC LIMIT ?
		)`, maxReports)
	if err != nil {
		return fmt.Errorf("failed to rotate reports: %w", err)
	}
	return nil
}

// FilterUnnotified drops alerts already pushed for runDate.
func (s *Storage) FilterUnnotified(runDate string, alerts []models.Alert) ([]models.Alert, error) {
	result := make([]models.Alert, 0, len(alerts))
	for _, a := range alerts {
		var n int
		err := s.db.QueryRow(`SELECT COUNT(*) FROM alert_notifications WHERE run_date = ? AND metric = ?`,
			runDate, a.Metric).Scan(&n)
		if err != nil {
			return nil, fmt.Errorf("failed to query notifications: %w", err)
		}
		if n == 0 {
			result = append(result, a)
		}
	}
	return result, nil
}

// MarkAlertsNotified records alerts as pushed for runDate.
func (s *Storage) MarkAlertsNotified(runDate string, alerts []models.Alert) error {
	now := time.Now().UnixNano()
	for _, a := range alerts {
		_, err := s.db.Exec(`INSERT OR REPLACE INTO alert_notifications (run_date, metric, sent_at)
			VALUES (?,?,?)`, runDate, a.Metric, now)
		if err != nil {
			return fmt.Errorf("failed to record notification: %w", err)
		}
	}
	return nil
}

const reportCols = `id, generation, payload, created_at`

func scanReport(scan func(...any) error) (*models.Report, error) {
	var r models.Report
	var generation, createdAtNano int64
	var payload string
	if err := scan(&r.ID, &generation, &payload, &createdAtNano); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(payload), &r.Dashboard); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dashboard: %w", err)
	}
	r.Generation = uint64(generation)
	r.CreatedAt = time.Unix(0, createdAtNano)
	return &r, nil
}
