package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/careportal/access-core/internal/database"
	"github.com/careportal/access-core/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConsentRepository handles consent record database operations. Consent
// history is append-only so the state at any past moment stays provable.
type ConsentRepository struct{}

// NewConsentRepository creates a new consent repository
func NewConsentRepository() *ConsentRepository {
	return &ConsentRepository{}
}

// Append records the next version of an account's consent for a purpose.
// The version number is assigned inside the transaction so concurrent
// updates for the same purpose cannot collide.
func (r *ConsentRepository) Append(ctx context.Context, accountID uuid.UUID, purpose models.ConsentPurpose, granted bool) (*models.ConsentRecord, error) {
	record := &models.ConsentRecord{
		AccountID: accountID,
		Purpose:   purpose,
		Granted:   granted,
	}

	err := database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var latest models.ConsentRecord
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("account_id = ? AND purpose = ?", accountID, purpose).
			Order("version DESC").
			First(&latest).Error
		switch {
		case err == nil:
			record.Version = latest.Version + 1
		case errors.Is(err, gorm.ErrRecordNotFound):
			record.Version = 1
		default:
			return fmt.Errorf("failed to read latest consent: %w", err)
		}

		if err := tx.Create(record).Error; err != nil {
			return fmt.Errorf("failed to append consent record: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// History returns every consent version for an account, oldest first.
func (r *ConsentRepository) History(ctx context.Context, accountID uuid.UUID) ([]models.ConsentRecord, error) {
	var records []models.ConsentRecord
	err := database.DB.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("purpose ASC, version ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load consent history: %w", err)
	}
	return records, nil
}

// Latest returns the current consent version per purpose.
func (r *ConsentRepository) Latest(ctx context.Context, accountID uuid.UUID) ([]models.ConsentRecord, error) {
	var records []models.ConsentRecord
	err := database.DB.WithContext(ctx).
		Raw(`SELECT DISTINCT ON (purpose) * FROM consent_records
		     WHERE account_id = ? ORDER BY purpose, version DESC`, accountID).
		Scan(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load current consent: %w", err)
	}
	return records, nil
}
