// Package repository persists verification outcomes as queryable history.
//
// Runs, their metrics and their constraint outcomes land in three relational
// tables, so that dashboards and later runs can compare against past values.
package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/veridata/veridata/internal/verification"
)

// VerificationRun is one persisted run header.
type VerificationRun struct {
	ID         uint   `gorm:"primaryKey"`
	RunID      string `gorm:"uniqueIndex;size:36"`
	TableName  string `gorm:"index"`
	Status     string
	StartedAt  time.Time
	FinishedAt time.Time
}

// MetricRecord is one persisted metric of a run.
type MetricRecord struct {
	ID        uint   `gorm:"primaryKey"`
	RunID     string `gorm:"index;size:36"`
	Entity    string
	Name      string
	Instance  string
	Qualifier string
	Value     float64
	Defined   bool
	Approx    bool
	Error     string
}

// ConstraintRecord is one persisted constraint outcome of a run.
type ConstraintRecord struct {
	ID         uint   `gorm:"primaryKey"`
	RunID      string `gorm:"index;size:36"`
	CheckName  string
	Level      string
	Constraint string
	Status     string
	Message    string
}

// Repository writes verification history through a GORM handle.
type Repository struct {
	db *gorm.DB
}

// New creates the repository and migrates its tables.
func New(db *gorm.DB) (*Repository, error) {
	err := db.AutoMigrate(&VerificationRun{}, &MetricRecord{}, &ConstraintRecord{})
	if err != nil {
		return nil, fmt.Errorf("migrate verification history: %w", err)
	}

	return &Repository{db: db}, nil
}

// Store persists one run with all its metrics and constraint outcomes in a
// single transaction.
func (r *Repository) Store(ctx context.Context, result *verification.Result) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		run := VerificationRun{
			RunID:      result.RunID,
			TableName:  result.Table,
			Status:     result.Status.String(),
			StartedAt:  result.StartedAt,
			FinishedAt: result.FinishedAt,
		}

		if err := tx.Create(&run).Error; err != nil {
			return err
		}

		metrics := metricRecords(result)
		if len(metrics) > 0 {
			if err := tx.Create(&metrics).Error; err != nil {
				return err
			}
		}

		constraints := constraintRecords(result)
		if len(constraints) > 0 {
			if err := tx.Create(&constraints).Error; err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("store verification run %s: %w", result.RunID, err)
	}

	return nil
}

func metricRecords(result *verification.Result) []MetricRecord {
	all := result.Metrics().All()
	records := make([]MetricRecord, 0, len(all))

	for _, m := range all {
		record := MetricRecord{
			RunID:     result.RunID,
			Entity:    string(m.Entity),
			Name:      m.Name,
			Instance:  m.Instance,
			Qualifier: m.Qualifier,
			Approx:    m.Approx,
		}

		if value, err := m.Value.Float64(); err == nil {
			record.Value = value
			record.Defined = true
		} else {
			record.Error = err.Error()
		}

		records = append(records, record)
	}

	return records
}

func constraintRecords(result *verification.Result) []ConstraintRecord {
	var records []ConstraintRecord

	for _, checkResult := range result.Checks {
		for _, cons := range checkResult.Constraints {
			records = append(records, ConstraintRecord{
				RunID:      result.RunID,
				CheckName:  checkResult.Description,
				Level:      checkResult.Level.String(),
				Constraint: cons.Constraint,
				Status:     cons.Status.String(),
				Message:    cons.Message,
			})
		}
	}

	return records
}

// History returns the most recent persisted runs for a table, newest first.
func (r *Repository) History(ctx context.Context, table string, limit int) ([]VerificationRun, error) {
	var runs []VerificationRun

	err := r.db.WithContext(ctx).
		Where("table_name = ?", table).
		Order("started_at DESC, id DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("load verification history for %s: %w", table, err)
	}

	return runs, nil
}

// MetricsOf returns the metrics persisted for one run.
func (r *Repository) MetricsOf(ctx context.Context, runID string) ([]MetricRecord, error) {
	var records []MetricRecord

	err := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("entity, name, instance").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("load metrics of run %s: %w", runID, err)
	}

	return records, nil
}
