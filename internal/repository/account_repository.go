package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/careportal/access-core/internal/auth"
	"github.com/careportal/access-core/internal/database"
	"github.com/careportal/access-core/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrDuplicateIdentity is returned when an email is already registered,
// in either role. Login identity is unique across patients and clinicians.
var ErrDuplicateIdentity = errors.New("email already registered")

// ErrAccountNotFound mirrors auth.ErrAccountNotFound for storage callers.
var ErrAccountNotFound = auth.ErrAccountNotFound

// AccountRepository handles account database operations
type AccountRepository struct{}

// NewAccountRepository creates a new account repository
func NewAccountRepository() *AccountRepository {
	return &AccountRepository{}
}

// Create inserts a new account. Emails are stored lowercase; a unique
// index enforces cross-role uniqueness and surfaces ErrDuplicateIdentity.
func (r *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	account.Email = strings.ToLower(account.Email)
	if err := database.DB.WithContext(ctx).Create(account).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateIdentity
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// FindByEmail retrieves an account by email, case-insensitively.
func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	err := database.DB.WithContext(ctx).
		Where("email = ?", strings.ToLower(email)).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	return &account, nil
}

// GetByID retrieves an account by ID
func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var account models.Account
	err := database.DB.WithContext(ctx).Where("id = ?", id).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

// AccountState implements auth.AccountStateSource for token verification.
func (r *AccountRepository) AccountState(ctx context.Context, id uuid.UUID) (auth.AccountState, error) {
	var account models.Account
	err := database.DB.WithContext(ctx).
		Select("token_epoch", "status").
		Where("id = ?", id).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return auth.AccountState{}, auth.ErrAccountNotFound
		}
		return auth.AccountState{}, fmt.Errorf("failed to load account state: %w", err)
	}
	return auth.AccountState{Epoch: account.TokenEpoch, Status: account.Status}, nil
}

// UpdateFields applies a field-level update to an account.
func (r *AccountRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	err := database.DB.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ?", id).
		Updates(fields).Error
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateIdentity
		}
		return fmt.Errorf("failed to update account: %w", err)
	}
	return nil
}

// RotateCredential replaces the stored secret hash.
func (r *AccountRepository) RotateCredential(ctx context.Context, id uuid.UUID, hash string, version int) error {
	err := database.DB.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"password_hash": hash,
			"hash_version":  version,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to rotate credential: %w", err)
	}
	return nil
}

// BumpEpoch atomically increments the account's revocation epoch,
// invalidating every outstanding token, and returns the new epoch.
func (r *AccountRepository) BumpEpoch(ctx context.Context, id uuid.UUID) (int64, error) {
	var account models.Account
	err := database.DB.WithContext(ctx).
		Model(&account).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "token_epoch"}}}).
		Where("id = ?", id).
		Update("token_epoch", gorm.Expr("token_epoch + 1")).Error
	if err != nil {
		return 0, fmt.Errorf("failed to bump token epoch: %w", err)
	}
	return account.TokenEpoch, nil
}

// ListByRole lists active accounts of a role for directory endpoints.
func (r *AccountRepository) ListByRole(ctx context.Context, role models.Role) ([]models.Account, error) {
	var accounts []models.Account
	err := database.DB.WithContext(ctx).
		Where("role = ? AND status = ?", role, models.StatusActive).
		Order("last_name ASC, first_name ASC").
		Find(&accounts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

// ListRestricted lists accounts awaiting promotion from restricted to
// erased once their retained rows age out.
func (r *AccountRepository) ListRestricted(ctx context.Context) ([]models.Account, error) {
	var accounts []models.Account
	err := database.DB.WithContext(ctx).
		Where("status = ?", models.StatusRestricted).
		Find(&accounts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list restricted accounts: %w", err)
	}
	return accounts, nil
}

// EraseOutcome reports how an erasure attempt resolved.
type EraseOutcome struct {
	Erased               bool
	RetainedNotes        int64
	RetainedAppointments int64
}

// EraseOrRestrict runs the erase-vs-retention arbitration in one
// transaction, holding a row lock on the account so no clinical write can
// race the check-and-act sequence. Rows whose retention anchor is newer
// than its cutoff must be kept: if any exist, the account is restricted
// and tombstoned; otherwise dependent rows are deleted outright and the
// account is marked erased. The tombstone keeps the row (audit events and
// requests reference it weakly) with personal fields nulled. Either way
// the token epoch is bumped so live sessions die.
func (r *AccountRepository) EraseOrRestrict(ctx context.Context, id uuid.UUID, noteCutoff, apptCutoff time.Time) (*EraseOutcome, error) {
	outcome := &EraseOutcome{}

	err := database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var account models.Account
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			First(&account).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAccountNotFound
			}
			return fmt.Errorf("failed to lock account: %w", err)
		}

		ownerColumn := "patient_id"
		if account.Role == models.RoleClinician {
			ownerColumn = "doctor_id"
		}

		if err := tx.Model(&models.MedicalNote{}).
			Where(ownerColumn+" = ? AND note_date > ?", id, noteCutoff).
			Count(&outcome.RetainedNotes).Error; err != nil {
			return fmt.Errorf("failed to count retained notes: %w", err)
		}
		if err := tx.Model(&models.Appointment{}).
			Where(ownerColumn+" = ? AND appointment_date > ?", id, apptCutoff).
			Count(&outcome.RetainedAppointments).Error; err != nil {
			return fmt.Errorf("failed to count retained appointments: %w", err)
		}

		now := time.Now().UTC()
		tombstone := map[string]interface{}{
			"first_name":    "",
			"last_name":     "",
			"phone":         "",
			"gender":        "",
			"address":       "",
			"specialty":     "",
			"date_of_birth": nil,
			"email":         fmt.Sprintf("erased+%s@invalid", id),
			"token_epoch":   gorm.Expr("token_epoch + 1"),
		}

		if outcome.RetainedNotes == 0 && outcome.RetainedAppointments == 0 {
			// Nothing under mandatory retention: true deletion.
			if err := tx.Where(ownerColumn+" = ?", id).Delete(&models.MedicalNote{}).Error; err != nil {
				return fmt.Errorf("failed to delete notes: %w", err)
			}
			if err := tx.Where(ownerColumn+" = ?", id).Delete(&models.Appointment{}).Error; err != nil {
				return fmt.Errorf("failed to delete appointments: %w", err)
			}
			outcome.Erased = true
			tombstone["status"] = models.StatusErased
			tombstone["erased_at"] = now
		} else {
			// Statutory retention wins over erasure for the rows still in
			// their window. The account is barred instead.
			tombstone["status"] = models.StatusRestricted
			tombstone["restricted_at"] = now
		}

		if err := tx.Model(&models.Account{}).Where("id = ?", id).Updates(tombstone).Error; err != nil {
			return fmt.Errorf("failed to tombstone account: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// isUniqueViolation detects a PostgreSQL unique constraint error.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "23505")
}
