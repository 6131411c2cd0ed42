package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/careportal/access-core/internal/database"
	"github.com/careportal/access-core/internal/models"
)

// AuditRepository handles audit event database operations. There is no
// update path: events are appended, queried, and eventually purged by the
// retention sweep, nothing else.
type AuditRepository struct{}

// NewAuditRepository creates a new audit repository
func NewAuditRepository() *AuditRepository {
	return &AuditRepository{}
}

// Create appends an audit event
func (r *AuditRepository) Create(ctx context.Context, event *models.AuditEvent) error {
	if err := database.DB.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("failed to create audit event: %w", err)
	}
	return nil
}

// Query retrieves audit events matching the filter, newest first.
func (r *AuditRepository) Query(ctx context.Context, filter models.AuditFilter) ([]models.AuditEvent, error) {
	var events []models.AuditEvent
	query := database.DB.WithContext(ctx).Order("created_at DESC")

	if filter.ActorID != nil {
		query = query.Where("actor_id = ?", *filter.ActorID)
	}
	if filter.Kind != "" {
		query = query.Where("kind = ?", filter.Kind)
	}
	if !filter.Since.IsZero() {
		query = query.Where("created_at >= ?", filter.Since)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	if err := query.Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	return events, nil
}

// PurgeBefore deletes events older than cutoff in one bounded batch and
// returns the number of rows removed. Callers loop until zero.
func (r *AuditRepository) PurgeBefore(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
	result := database.DB.WithContext(ctx).
		Where("id IN (?)", database.DB.
			Model(&models.AuditEvent{}).
			Select("id").
			Where("created_at < ?", cutoff).
			Limit(batchSize),
		).
		Delete(&models.AuditEvent{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge audit events: %w", result.Error)
	}
	return result.RowsAffected, nil
}
