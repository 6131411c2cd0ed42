package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/careportal/access-core/internal/database"
	"github.com/careportal/access-core/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrAccountNotActive rejects an insert referencing an account that is
// no longer active by the time the row lock is held. Surfaced when an
// erasure settles between the caller's status check and the insert.
var ErrAccountNotActive = errors.New("account is not active")

// ClinicalRepository handles appointment and medical note rows. The core
// only mediates access to them; scheduling and clinical semantics live
// elsewhere.
type ClinicalRepository struct{}

// NewClinicalRepository creates a new clinical repository
func NewClinicalRepository() *ClinicalRepository {
	return &ClinicalRepository{}
}

// createGuarded inserts a row in one transaction with a share lock on
// every referenced account. The share lock queues behind the update lock
// EraseOrRestrict holds, so the status re-read here sees the settled
// outcome and no row can land on an account mid-erasure.
func (r *ClinicalRepository) createGuarded(ctx context.Context, accountIDs []uuid.UUID, row interface{}) error {
	return database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var accounts []models.Account
		err := tx.Clauses(clause.Locking{Strength: "SHARE"}).
			Select("id", "status").
			Where("id IN ?", accountIDs).
			Find(&accounts).Error
		if err != nil {
			return fmt.Errorf("failed to lock accounts: %w", err)
		}
		if len(accounts) != len(accountIDs) {
			return ErrAccountNotFound
		}
		for _, account := range accounts {
			if account.Status != models.StatusActive {
				return ErrAccountNotActive
			}
		}
		return tx.Create(row).Error
	})
}

// CreateAppointment inserts an appointment row, guarded by locks on both
// participating accounts.
func (r *ClinicalRepository) CreateAppointment(ctx context.Context, appt *models.Appointment) error {
	err := r.createGuarded(ctx, []uuid.UUID{appt.PatientID, appt.DoctorID}, appt)
	if err != nil {
		if errors.Is(err, ErrAccountNotActive) || errors.Is(err, ErrAccountNotFound) {
			return err
		}
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

// AppointmentsByPatient lists a patient's appointments, newest first.
func (r *ClinicalRepository) AppointmentsByPatient(ctx context.Context, patientID uuid.UUID) ([]models.Appointment, error) {
	return r.appointmentsBy(ctx, "patient_id", patientID)
}

// AppointmentsByDoctor lists a clinician's appointments, newest first.
func (r *ClinicalRepository) AppointmentsByDoctor(ctx context.Context, doctorID uuid.UUID) ([]models.Appointment, error) {
	return r.appointmentsBy(ctx, "doctor_id", doctorID)
}

func (r *ClinicalRepository) appointmentsBy(ctx context.Context, column string, id uuid.UUID) ([]models.Appointment, error) {
	var appts []models.Appointment
	err := database.DB.WithContext(ctx).
		Where(column+" = ?", id).
		Order("appointment_date DESC, appointment_time DESC, id ASC").
		Find(&appts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appts, nil
}

// CreateNote inserts a medical note row, guarded by locks on both
// participating accounts.
func (r *ClinicalRepository) CreateNote(ctx context.Context, note *models.MedicalNote) error {
	err := r.createGuarded(ctx, []uuid.UUID{note.PatientID, note.DoctorID}, note)
	if err != nil {
		if errors.Is(err, ErrAccountNotActive) || errors.Is(err, ErrAccountNotFound) {
			return err
		}
		return fmt.Errorf("failed to create medical note: %w", err)
	}
	return nil
}

// NotesByPatient lists notes concerning a patient, newest first.
func (r *ClinicalRepository) NotesByPatient(ctx context.Context, patientID uuid.UUID) ([]models.MedicalNote, error) {
	return r.notesBy(ctx, "patient_id", patientID)
}

// NotesByDoctor lists notes authored by a clinician, newest first.
func (r *ClinicalRepository) NotesByDoctor(ctx context.Context, doctorID uuid.UUID) ([]models.MedicalNote, error) {
	return r.notesBy(ctx, "doctor_id", doctorID)
}

func (r *ClinicalRepository) notesBy(ctx context.Context, column string, id uuid.UUID) ([]models.MedicalNote, error) {
	var notes []models.MedicalNote
	err := database.DB.WithContext(ctx).
		Where(column+" = ?", id).
		Order("note_date DESC, id ASC").
		Find(&notes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list medical notes: %w", err)
	}
	return notes, nil
}

// CountRetained counts an account's clinical rows still inside their
// retention windows. Used by the sweep to decide whether a restricted
// account can finally be erased.
func (r *ClinicalRepository) CountRetained(ctx context.Context, accountID uuid.UUID, role models.Role, noteCutoff, apptCutoff time.Time) (int64, error) {
	column := "patient_id"
	if role == models.RoleClinician {
		column = "doctor_id"
	}

	var notes, appts int64
	if err := database.DB.WithContext(ctx).Model(&models.MedicalNote{}).
		Where(column+" = ? AND note_date > ?", accountID, noteCutoff).
		Count(&notes).Error; err != nil {
		return 0, fmt.Errorf("failed to count retained notes: %w", err)
	}
	if err := database.DB.WithContext(ctx).Model(&models.Appointment{}).
		Where(column+" = ? AND appointment_date > ?", accountID, apptCutoff).
		Count(&appts).Error; err != nil {
		return 0, fmt.Errorf("failed to count retained appointments: %w", err)
	}
	return notes + appts, nil
}

// PurgeNotesBefore deletes one bounded batch of notes whose anchor date
// predates cutoff and returns the rows removed.
func (r *ClinicalRepository) PurgeNotesBefore(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
	result := database.DB.WithContext(ctx).
		Where("id IN (?)", database.DB.
			Model(&models.MedicalNote{}).
			Select("id").
			Where("note_date < ?", cutoff).
			Limit(batchSize),
		).
		Delete(&models.MedicalNote{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge medical notes: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// PurgeAppointmentsBefore deletes one bounded batch of appointments whose
// anchor date predates cutoff and returns the rows removed.
func (r *ClinicalRepository) PurgeAppointmentsBefore(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
	result := database.DB.WithContext(ctx).
		Where("id IN (?)", database.DB.
			Model(&models.Appointment{}).
			Select("id").
			Where("appointment_date < ?", cutoff).
			Limit(batchSize),
		).
		Delete(&models.Appointment{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge appointments: %w", result.Error)
	}
	return result.RowsAffected, nil
}
