// Package repository provides GORM-backed persistence for job history.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmylchreest/streamsift/internal/models"
	"gorm.io/gorm"
)

const defaultListLimit = 50

// JobRecordFilter narrows a history listing.
type JobRecordFilter struct {
	Status  models.JobStatus
	VideoID string
	Since   time.Time
	Limit   int
}

// JobRecordRepository defines operations for job history.
type JobRecordRepository interface {
	Create(ctx context.Context, record *models.JobRecord) error
	GetByID(ctx context.Context, id models.ULID) (*models.JobRecord, error)
	List(ctx context.Context, filter JobRecordFilter) ([]*models.JobRecord, error)
	Count(ctx context.Context) (int64, error)
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}

type jobRecordRepo struct {
	db *gorm.DB
}

// NewJobRecordRepository creates a new JobRecordRepository.
func NewJobRecordRepository(db *gorm.DB) JobRecordRepository {
	return &jobRecordRepo{db: db}
}

// Create stores a new record.
func (r *jobRecordRepo) Create(ctx context.Context, record *models.JobRecord) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("creating job record: %w", err)
	}
	return nil
}

// GetByID returns nil without error when no record matches.
func (r *jobRecordRepo) GetByID(ctx context.Context, id models.ULID) (*models.JobRecord, error) {
	var record models.JobRecord
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting job record by ID: %w", err)
	}
	return &record, nil
}

// List returns records newest first.
func (r *jobRecordRepo) List(ctx context.Context, filter JobRecordFilter) ([]*models.JobRecord, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := r.db.WithContext(ctx).Model(&models.JobRecord{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.VideoID != "" {
		query = query.Where("video_id = ?", filter.VideoID)
	}
	if !filter.Since.IsZero() {
		query = query.Where("started_at >= ?", filter.Since)
	}

	var records []*models.JobRecord
	if err := query.Order("started_at DESC").Order("id DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("listing job records: %w", err)
	}
	return records, nil
}

// Count returns the number of stored records.
func (r *jobRecordRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.JobRecord{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("counting job records: %w", err)
	}
	return count, nil
}

// DeleteOlderThan removes records that started before the cutoff.
func (r *jobRecordRepo) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("started_at < ?", before).Delete(&models.JobRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("deleting job records: %w", result.Error)
	}
	return result.RowsAffected, nil
}
