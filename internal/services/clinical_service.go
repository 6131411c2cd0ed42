package services

import (
	"context"
	"errors"
	"time"

	"github.com/careportal/access-core/internal/authz"
	"github.com/careportal/access-core/internal/models"
	"github.com/careportal/access-core/internal/repository"
	"github.com/google/uuid"
)

// AppointmentRequest carries a booking made by a patient.
type AppointmentRequest struct {
	DoctorID        uuid.UUID `json:"doctor_id"`
	AppointmentDate string    `json:"appointment_date"`
	AppointmentTime string    `json:"appointment_time"`
	Reason          string    `json:"reason,omitempty"`
}

// NoteRequest carries a medical note written by a clinician.
type NoteRequest struct {
	PatientID  uuid.UUID `json:"patient_id"`
	NoteDate   string    `json:"note_date"`
	Details    string    `json:"note_details"`
	Medication string    `json:"medication,omitempty"`
	Treatment  string    `json:"treatment,omitempty"`
}

// ClinicalService mediates access to appointment and note rows. It does
// no scheduling or clinical validation; it decides who may read and write
// which rows, audits the writes, and nothing more.
type ClinicalService struct {
	clinical ClinicalStore
	accounts AccountStore
	audit    *AuditService
}

// NewClinicalService creates a new clinical service
func NewClinicalService(clinical ClinicalStore, accounts AccountStore, audit *AuditService) *ClinicalService {
	return &ClinicalService{
		clinical: clinical,
		accounts: accounts,
		audit:    audit,
	}
}

// BookAppointment creates an appointment for the calling patient.
func (s *ClinicalService) BookAppointment(ctx context.Context, actor authz.Actor, req AppointmentRequest) (*models.Appointment, error) {
	res := authz.Resource{
		Type:      authz.ResourceAppointment,
		PatientID: actor.ID,
		DoctorID:  req.DoctorID,
	}
	if denied := s.audit.Authorize(ctx, actor, authz.ActionWrite, res); denied != nil {
		return nil, denied
	}

	date, err := time.Parse("2006-01-02", req.AppointmentDate)
	if err != nil {
		return nil, &ValidationError{Reasons: []string{"appointment_date must be YYYY-MM-DD"}}
	}
	if req.AppointmentTime == "" {
		return nil, &ValidationError{Reasons: []string{"appointment_time is required"}}
	}

	// A clinician mid-erasure or restricted cannot accrue new rows.
	if err := s.requireActive(ctx, req.DoctorID); err != nil {
		return nil, err
	}

	appt := &models.Appointment{
		PatientID:       actor.ID,
		DoctorID:        req.DoctorID,
		AppointmentDate: date,
		AppointmentTime: req.AppointmentTime,
		Reason:          req.Reason,
	}
	// The insert re-checks both accounts under a row lock, so an erasure
	// settling after the check above still rejects this write.
	if err := s.clinical.CreateAppointment(ctx, appt); err != nil {
		if errors.Is(err, repository.ErrAccountNotActive) {
			return nil, ErrAccountRestricted
		}
		return nil, err
	}
	return appt, nil
}

// Appointments lists the appointments the actor owns: booked by them for
// patients, booked with them for clinicians.
func (s *ClinicalService) Appointments(ctx context.Context, actor authz.Actor) ([]models.Appointment, error) {
	res := authz.Resource{Type: authz.ResourceAppointment, PatientID: actor.ID, DoctorID: actor.ID}
	if denied := s.audit.Authorize(ctx, actor, authz.ActionRead, res); denied != nil {
		return nil, denied
	}

	if actor.Role == models.RoleClinician {
		return s.clinical.AppointmentsByDoctor(ctx, actor.ID)
	}
	return s.clinical.AppointmentsByPatient(ctx, actor.ID)
}

// WriteNote records a medical note authored by the calling clinician.
// Writes referencing a restricted patient are rejected outright: once an
// erasure request enters processing, no new rows may name that account.
func (s *ClinicalService) WriteNote(ctx context.Context, actor authz.Actor, req NoteRequest) (*models.MedicalNote, error) {
	res := authz.Resource{
		Type:      authz.ResourceMedicalNote,
		PatientID: req.PatientID,
		DoctorID:  actor.ID,
	}
	if denied := s.audit.Authorize(ctx, actor, authz.ActionWrite, res); denied != nil {
		return nil, denied
	}

	date, err := time.Parse("2006-01-02", req.NoteDate)
	if err != nil {
		return nil, &ValidationError{Reasons: []string{"note_date must be YYYY-MM-DD"}}
	}

	if err := s.requireActive(ctx, req.PatientID); err != nil {
		return nil, err
	}

	note := &models.MedicalNote{
		PatientID:  req.PatientID,
		DoctorID:   actor.ID,
		NoteDate:   date,
		Details:    req.Details,
		Medication: req.Medication,
		Treatment:  req.Treatment,
	}
	if err := s.clinical.CreateNote(ctx, note); err != nil {
		if errors.Is(err, repository.ErrAccountNotActive) {
			return nil, ErrAccountRestricted
		}
		return nil, err
	}

	noteID := note.ID
	s.audit.Record(ctx, &models.AuditEvent{
		ActorID:      actorRef(actor.ID),
		Kind:         models.AuditNoteWritten,
		Outcome:      models.OutcomeSuccess,
		ResourceType: string(authz.ResourceMedicalNote),
		ResourceID:   &noteID,
	})
	return note, nil
}

// Notes lists the notes visible to the actor: concerning them for
// patients, authored by them for clinicians.
func (s *ClinicalService) Notes(ctx context.Context, actor authz.Actor) ([]models.MedicalNote, error) {
	res := authz.Resource{Type: authz.ResourceMedicalNote, PatientID: actor.ID, DoctorID: actor.ID}
	if denied := s.audit.Authorize(ctx, actor, authz.ActionRead, res); denied != nil {
		return nil, denied
	}

	if actor.Role == models.RoleClinician {
		return s.clinical.NotesByDoctor(ctx, actor.ID)
	}
	return s.clinical.NotesByPatient(ctx, actor.ID)
}

// Directory lists the accounts in the requested directory. The listing
// is named by the caller, not inferred from their role, so the policy
// engine sees exactly what was asked for and denies same-role requests.
func (s *ClinicalService) Directory(ctx context.Context, actor authz.Actor, target models.Role) ([]models.Account, error) {
	listing := authz.ResourceDoctorListing
	if target == models.RolePatient {
		listing = authz.ResourcePatientListing
	}

	if denied := s.audit.Authorize(ctx, actor, authz.ActionList, authz.Resource{Type: listing}); denied != nil {
		return nil, denied
	}
	return s.accounts.ListByRole(ctx, target)
}

// requireActive rejects writes naming a non-active account.
func (s *ClinicalService) requireActive(ctx context.Context, accountID uuid.UUID) error {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if account.Status != models.StatusActive {
		return ErrAccountRestricted
	}
	return nil
}
