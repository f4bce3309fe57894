// Package history persists cycle results so the dashboard can show past
// monitoring outcomes across restarts.
package history

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/phishguard/driftmon/internal/monitor"
)

// CycleRecord is the persisted form of a cycle result. The drift report is
// stored as JSON since only the dashboard reads it back.
type CycleRecord struct {
	ID                  string    `gorm:"primaryKey" json:"id"`
	CreatedAt           time.Time `json:"created_at"`
	BatchSize           int       `json:"batch_size"`
	DriftKind           string    `json:"drift_kind"`
	DriftDetected       bool      `json:"drift_detected"`
	Retrained           bool      `json:"retrained"`
	ReferenceGeneration uint64    `json:"reference_generation"`
	DurationMillis      int64     `json:"duration_ms"`
	ReportJSON          string    `json:"-"`
	Error               string    `json:"error,omitempty"`
}

// Store records cycle results in a sqlite database.
type Store struct {
	db *gorm.DB
}

// Open creates (or opens) the history database and migrates the schema.
// Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	if err := db.AutoMigrate(&CycleRecord{}); err != nil {
		return nil, fmt.Errorf("history: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Record persists one cycle result.
func (s *Store) Record(result *monitor.CycleResult) error {
	record := &CycleRecord{
		ID:                  result.ID,
		CreatedAt:           result.Timestamp,
		BatchSize:           result.BatchSize,
		DriftKind:           result.DriftKind,
		DriftDetected:       result.DriftDetected,
		Retrained:           result.Retrained,
		ReferenceGeneration: result.ReferenceGeneration,
		DurationMillis:      result.Duration.Milliseconds(),
		Error:               result.Error,
	}
	if result.Report != nil {
		raw, err := json.Marshal(result.Report)
		if err != nil {
			return fmt.Errorf("history: marshal report: %w", err)
		}
		record.ReportJSON = string(raw)
	}
	if err := s.db.Create(record).Error; err != nil {
		return fmt.Errorf("history: record cycle %s: %w", result.ID, err)
	}
	return nil
}

// Recent returns the most recent cycle records, newest first.
func (s *Store) Recent(limit int) ([]CycleRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var records []CycleRecord
	if err := s.db.Order("created_at desc").Limit(limit).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("history: query recent: %w", err)
	}
	return records, nil
}
