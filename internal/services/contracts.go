package services

import (
	"context"
	"time"

	"github.com/careportal/access-core/internal/models"
	"github.com/careportal/access-core/internal/repository"
	"github.com/google/uuid"
)

// Storage contracts consumed by the services. The gorm implementations
// live in internal/repository; tests substitute func-field mocks.

// AccountStore persists accounts and their credentials.
type AccountStore interface {
	Create(ctx context.Context, account *models.Account) error
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	RotateCredential(ctx context.Context, id uuid.UUID, hash string, version int) error
	BumpEpoch(ctx context.Context, id uuid.UUID) (int64, error)
	ListByRole(ctx context.Context, role models.Role) ([]models.Account, error)
	ListRestricted(ctx context.Context) ([]models.Account, error)
	EraseOrRestrict(ctx context.Context, id uuid.UUID, noteCutoff, apptCutoff time.Time) (*repository.EraseOutcome, error)
}

// AuditStore appends and queries the audit trail.
type AuditStore interface {
	Create(ctx context.Context, event *models.AuditEvent) error
	Query(ctx context.Context, filter models.AuditFilter) ([]models.AuditEvent, error)
	PurgeBefore(ctx context.Context, cutoff time.Time, batchSize int) (int64, error)
}

// ConsentStore appends and reads consent history.
type ConsentStore interface {
	Append(ctx context.Context, accountID uuid.UUID, purpose models.ConsentPurpose, granted bool) (*models.ConsentRecord, error)
	History(ctx context.Context, accountID uuid.UUID) ([]models.ConsentRecord, error)
	Latest(ctx context.Context, accountID uuid.UUID) ([]models.ConsentRecord, error)
}

// ClinicalStore persists the appointment and note rows the core mediates.
type ClinicalStore interface {
	CreateAppointment(ctx context.Context, appt *models.Appointment) error
	AppointmentsByPatient(ctx context.Context, patientID uuid.UUID) ([]models.Appointment, error)
	AppointmentsByDoctor(ctx context.Context, doctorID uuid.UUID) ([]models.Appointment, error)
	CreateNote(ctx context.Context, note *models.MedicalNote) error
	NotesByPatient(ctx context.Context, patientID uuid.UUID) ([]models.MedicalNote, error)
	NotesByDoctor(ctx context.Context, doctorID uuid.UUID) ([]models.MedicalNote, error)
	CountRetained(ctx context.Context, accountID uuid.UUID, role models.Role, noteCutoff, apptCutoff time.Time) (int64, error)
	PurgeNotesBefore(ctx context.Context, cutoff time.Time, batchSize int) (int64, error)
	PurgeAppointmentsBefore(ctx context.Context, cutoff time.Time, batchSize int) (int64, error)
}

// RequestStore persists data-subject requests.
type RequestStore interface {
	Create(ctx context.Context, req *models.DataSubjectRequest) error
	Resolve(ctx context.Context, id uuid.UUID, status models.RequestStatus, resolution string) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.DataSubjectRequest, error)
	ListByTarget(ctx context.Context, targetID uuid.UUID) ([]models.DataSubjectRequest, error)
}
