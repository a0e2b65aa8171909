package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/SamuelRM25/codispro/pkg/metrics"
)

const (
	// DefaultHistoryLimit is applied when a history request omits the limit.
	DefaultHistoryLimit = 50

	// MaxHistoryLimit caps a single history response to bound memory use.
	MaxHistoryLimit = 500
)

// StorageError wraps any fault from the underlying database so callers can
// distinguish storage failures from validation failures.
type StorageError struct {
	Err error
	Op  string
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying database error.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// HistoryFilter selects historical samples. Zero-value fields are ignored.
type HistoryFilter struct {
	SubjectID string
	VehicleID string
	Limit     int
}

// Normalize applies the default limit and enforces the maximum.
func (f HistoryFilter) Normalize() HistoryFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultHistoryLimit
	}
	if f.Limit > MaxHistoryLimit {
		f.Limit = MaxHistoryLimit
	}
	return f
}

// LocationStore is the persistence gateway for location samples.
// This interface enables easier testing through mocking and dependency injection.
type LocationStore interface {
	// Append durably records a single sample. Samples are immutable once
	// written.
	Append(ctx context.Context, sample *LocationLog) error

	// Query returns historical samples matching the filter, newest first.
	Query(ctx context.Context, filter HistoryFilter) ([]LocationLog, error)

	// DeleteOlderThan removes all samples captured before the cutoff and
	// returns the number of rows deleted.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Store is the GORM-backed LocationStore implementation.
type Store struct {
	logger  *slog.Logger
	db      *gorm.DB
	metrics *metrics.TrackerMetrics // Optional metrics
}

// Ensure Store implements LocationStore.
var _ LocationStore = (*Store)(nil)

// NewStore creates a new Store instance.
func NewStore(logger *slog.Logger, db *gorm.DB, m *metrics.TrackerMetrics) (*Store, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if db == nil {
		return nil, errors.New("database cannot be nil")
	}

	return &Store{
		logger:  logger,
		db:      db,
		metrics: m,
	}, nil
}

// Append durably records a single sample.
func (s *Store) Append(ctx context.Context, sample *LocationLog) error {
	var timer *prometheus.Timer
	if s.metrics != nil {
		timer = prometheus.NewTimer(s.metrics.StoreOperationDuration.WithLabelValues("append"))
		defer timer.ObserveDuration()
	}

	if err := s.db.WithContext(ctx).Create(sample).Error; err != nil {
		if s.metrics != nil {
			s.metrics.StoreOperationsTotal.WithLabelValues("append", "error").Inc()
		}
		return &StorageError{Op: "append", Err: err}
	}

	if s.metrics != nil {
		s.metrics.StoreOperationsTotal.WithLabelValues("append", "success").Inc()
	}

	return nil
}

// Query returns historical samples matching the filter, newest first.
func (s *Store) Query(ctx context.Context, filter HistoryFilter) ([]LocationLog, error) {
	var timer *prometheus.Timer
	if s.metrics != nil {
		timer = prometheus.NewTimer(s.metrics.StoreOperationDuration.WithLabelValues("query"))
		defer timer.ObserveDuration()
	}

	filter = filter.Normalize()

	query := s.db.WithContext(ctx).
		Order("captured_at DESC").
		Limit(filter.Limit)

	if filter.SubjectID != "" {
		query = query.Where("subject_id = ?", filter.SubjectID)
	}
	if filter.VehicleID != "" {
		query = query.Where("vehicle_id = ?", filter.VehicleID)
	}

	var samples []LocationLog
	if err := query.Find(&samples).Error; err != nil {
		if s.metrics != nil {
			s.metrics.StoreOperationsTotal.WithLabelValues("query", "error").Inc()
		}
		return nil, &StorageError{Op: "query", Err: err}
	}

	if s.metrics != nil {
		s.metrics.StoreOperationsTotal.WithLabelValues("query", "success").Inc()
	}

	return samples, nil
}

// DeleteOlderThan removes all samples captured before the cutoff.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var timer *prometheus.Timer
	if s.metrics != nil {
		timer = prometheus.NewTimer(s.metrics.StoreOperationDuration.WithLabelValues("delete"))
		defer timer.ObserveDuration()
	}

	result := s.db.WithContext(ctx).
		Where("captured_at < ?", cutoff).
		Delete(&LocationLog{})
	if result.Error != nil {
		if s.metrics != nil {
			s.metrics.StoreOperationsTotal.WithLabelValues("delete", "error").Inc()
		}
		return 0, &StorageError{Op: "delete", Err: result.Error}
	}

	if s.metrics != nil {
		s.metrics.StoreOperationsTotal.WithLabelValues("delete", "success").Inc()
	}

	return result.RowsAffected, nil
}
