package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/careportal/access-core/internal/database"
	"github.com/careportal/access-core/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrRequestNotFound is returned when a data-subject request is missing.
var ErrRequestNotFound = errors.New("data-subject request not found")

// ErrRequestTerminal is returned when resolving or cancelling a request
// that has already reached Completed or Rejected.
var ErrRequestTerminal = errors.New("data-subject request already settled")

// RequestRepository handles data-subject request database operations
type RequestRepository struct{}

// NewRequestRepository creates a new request repository
func NewRequestRepository() *RequestRepository {
	return &RequestRepository{}
}

// Create inserts a pending request
func (r *RequestRepository) Create(ctx context.Context, req *models.DataSubjectRequest) error {
	req.Status = models.RequestPending
	if err := database.DB.WithContext(ctx).Create(req).Error; err != nil {
		return fmt.Errorf("failed to create data-subject request: %w", err)
	}
	return nil
}

// Resolve moves a pending request to a terminal state. The WHERE clause
// pins status to pending so a settled request can never transition again.
func (r *RequestRepository) Resolve(ctx context.Context, id uuid.UUID, status models.RequestStatus, resolution string) error {
	result := database.DB.WithContext(ctx).
		Model(&models.DataSubjectRequest{}).
		Where("id = ? AND status = ?", id, models.RequestPending).
		Updates(map[string]interface{}{
			"status":     status,
			"resolution": resolution,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to resolve request: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRequestTerminal
	}
	return nil
}

// GetByID retrieves a request
func (r *RequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.DataSubjectRequest, error) {
	var req models.DataSubjectRequest
	err := database.DB.WithContext(ctx).Where("id = ?", id).First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	return &req, nil
}

// ListByTarget lists requests targeting an account, newest first.
func (r *RequestRepository) ListByTarget(ctx context.Context, targetID uuid.UUID) ([]models.DataSubjectRequest, error) {
	var reqs []models.DataSubjectRequest
	err := database.DB.WithContext(ctx).
		Where("target_id = ?", targetID).
		Order("created_at DESC").
		Find(&reqs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	return reqs, nil
}
