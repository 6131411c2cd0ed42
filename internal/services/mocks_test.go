package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/careportal/access-core/internal/models"
	"github.com/careportal/access-core/internal/repository"
	"github.com/google/uuid"
)

// Compile-time checks that the mocks satisfy the storage contracts.
var (
	_ AccountStore  = (*MockAccountStore)(nil)
	_ AuditStore    = (*MockAuditStore)(nil)
	_ ConsentStore  = (*MockConsentStore)(nil)
	_ ClinicalStore = (*MockClinicalStore)(nil)
	_ RequestStore  = (*MockRequestStore)(nil)
)

// MockAccountStore is a func-field mock over an in-memory account map.
type MockAccountStore struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*models.Account

	CreateFunc          func(ctx context.Context, account *models.Account) error
	EraseOrRestrictFunc func(ctx context.Context, id uuid.UUID, noteCutoff, apptCutoff time.Time) (*repository.EraseOutcome, error)
	UpdateFieldsFunc    func(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	ListRestrictedFunc  func(ctx context.Context) ([]models.Account, error)
}

func NewMockAccountStore(accounts ...*models.Account) *MockAccountStore {
	m := &MockAccountStore{accounts: make(map[uuid.UUID]*models.Account)}
	for _, a := range accounts {
		m.accounts[a.ID] = a
	}
	return m
}

func (m *MockAccountStore) Create(ctx context.Context, account *models.Account) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, account)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.accounts {
		if existing.Email == account.Email {
			return repository.ErrDuplicateIdentity
		}
	}
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	m.accounts[account.ID] = account
	return nil
}

func (m *MockAccountStore) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Email == email {
			return a, nil
		}
	}
	return nil, repository.ErrAccountNotFound
}

func (m *MockAccountStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.accounts[id]; ok {
		return a, nil
	}
	return nil, repository.ErrAccountNotFound
}

func (m *MockAccountStore) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	if m.UpdateFieldsFunc != nil {
		return m.UpdateFieldsFunc(ctx, id, fields)
	}
	return nil
}

func (m *MockAccountStore) RotateCredential(ctx context.Context, id uuid.UUID, hash string, version int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.accounts[id]; ok {
		a.PasswordHash = hash
		a.HashVersion = version
		return nil
	}
	return repository.ErrAccountNotFound
}

func (m *MockAccountStore) BumpEpoch(ctx context.Context, id uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.accounts[id]; ok {
		a.TokenEpoch++
		return a.TokenEpoch, nil
	}
	return 0, repository.ErrAccountNotFound
}

func (m *MockAccountStore) ListByRole(ctx context.Context, role models.Role) ([]models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Account
	for _, a := range m.accounts {
		if a.Role == role && a.Status == models.StatusActive {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *MockAccountStore) ListRestricted(ctx context.Context) ([]models.Account, error) {
	if m.ListRestrictedFunc != nil {
		return m.ListRestrictedFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Account
	for _, a := range m.accounts {
		if a.Status == models.StatusRestricted {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *MockAccountStore) EraseOrRestrict(ctx context.Context, id uuid.UUID, noteCutoff, apptCutoff time.Time) (*repository.EraseOutcome, error) {
	if m.EraseOrRestrictFunc != nil {
		return m.EraseOrRestrictFunc(ctx, id, noteCutoff, apptCutoff)
	}
	return nil, errors.New("EraseOrRestrictFunc not implemented in mock")
}

// MockAuditStore collects appended events for assertions.
type MockAuditStore struct {
	mu     sync.Mutex
	Events []models.AuditEvent

	CreateFunc      func(ctx context.Context, event *models.AuditEvent) error
	PurgeBeforeFunc func(ctx context.Context, cutoff time.Time, batchSize int) (int64, error)
}

func (m *MockAuditStore) Create(ctx context.Context, event *models.AuditEvent) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, event)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, *event)
	return nil
}

func (m *MockAuditStore) Query(ctx context.Context, filter models.AuditFilter) ([]models.AuditEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AuditEvent
	for _, e := range m.Events {
		if filter.ActorID != nil && (e.ActorID == nil || *e.ActorID != *filter.ActorID) {
			continue
		}
		if filter.Kind != "" && e.Kind != filter.Kind {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *MockAuditStore) PurgeBefore(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
	if m.PurgeBeforeFunc != nil {
		return m.PurgeBeforeFunc(ctx, cutoff, batchSize)
	}
	return 0, nil
}

// Counted returns how many recorded events match kind and outcome.
func (m *MockAuditStore) Counted(kind models.AuditKind, outcome models.AuditOutcome) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.Events {
		if e.Kind == kind && e.Outcome == outcome {
			n++
		}
	}
	return n
}

// MockConsentStore appends to an in-memory history.
type MockConsentStore struct {
	mu      sync.Mutex
	Records []models.ConsentRecord

	AppendFunc func(ctx context.Context, accountID uuid.UUID, purpose models.ConsentPurpose, granted bool) (*models.ConsentRecord, error)
}

func (m *MockConsentStore) Append(ctx context.Context, accountID uuid.UUID, purpose models.ConsentPurpose, granted bool) (*models.ConsentRecord, error) {
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, accountID, purpose, granted)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	version := 1
	for _, r := range m.Records {
		if r.AccountID == accountID && r.Purpose == purpose && r.Version >= version {
			version = r.Version + 1
		}
	}
	record := models.ConsentRecord{
		ID:        uuid.New(),
		AccountID: accountID,
		Purpose:   purpose,
		Granted:   granted,
		Version:   version,
	}
	m.Records = append(m.Records, record)
	return &record, nil
}

func (m *MockConsentStore) History(ctx context.Context, accountID uuid.UUID) ([]models.ConsentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ConsentRecord
	for _, r := range m.Records {
		if r.AccountID == accountID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MockConsentStore) Latest(ctx context.Context, accountID uuid.UUID) ([]models.ConsentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	latest := make(map[models.ConsentPurpose]models.ConsentRecord)
	for _, r := range m.Records {
		if r.AccountID != accountID {
			continue
		}
		if cur, ok := latest[r.Purpose]; !ok || r.Version > cur.Version {
			latest[r.Purpose] = r
		}
	}
	var out []models.ConsentRecord
	for _, r := range latest {
		out = append(out, r)
	}
	return out, nil
}

// MockClinicalStore serves canned rows.
type MockClinicalStore struct {
	Appointments []models.Appointment
	Notes        []models.MedicalNote

	CreateAppointmentFunc       func(ctx context.Context, appt *models.Appointment) error
	CreateNoteFunc              func(ctx context.Context, note *models.MedicalNote) error
	CountRetainedFunc           func(ctx context.Context, accountID uuid.UUID, role models.Role, noteCutoff, apptCutoff time.Time) (int64, error)
	PurgeNotesBeforeFunc        func(ctx context.Context, cutoff time.Time, batchSize int) (int64, error)
	PurgeAppointmentsBeforeFunc func(ctx context.Context, cutoff time.Time, batchSize int) (int64, error)
}

func (m *MockClinicalStore) CreateAppointment(ctx context.Context, appt *models.Appointment) error {
	if m.CreateAppointmentFunc != nil {
		return m.CreateAppointmentFunc(ctx, appt)
	}
	appt.ID = uuid.New()
	m.Appointments = append(m.Appointments, *appt)
	return nil
}

func (m *MockClinicalStore) AppointmentsByPatient(ctx context.Context, patientID uuid.UUID) ([]models.Appointment, error) {
	var out []models.Appointment
	for _, a := range m.Appointments {
		if a.PatientID == patientID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *MockClinicalStore) AppointmentsByDoctor(ctx context.Context, doctorID uuid.UUID) ([]models.Appointment, error) {
	var out []models.Appointment
	for _, a := range m.Appointments {
		if a.DoctorID == doctorID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *MockClinicalStore) CreateNote(ctx context.Context, note *models.MedicalNote) error {
	if m.CreateNoteFunc != nil {
		return m.CreateNoteFunc(ctx, note)
	}
	note.ID = uuid.New()
	m.Notes = append(m.Notes, *note)
	return nil
}

func (m *MockClinicalStore) NotesByPatient(ctx context.Context, patientID uuid.UUID) ([]models.MedicalNote, error) {
	var out []models.MedicalNote
	for _, n := range m.Notes {
		if n.PatientID == patientID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *MockClinicalStore) NotesByDoctor(ctx context.Context, doctorID uuid.UUID) ([]models.MedicalNote, error) {
	var out []models.MedicalNote
	for _, n := range m.Notes {
		if n.DoctorID == doctorID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *MockClinicalStore) CountRetained(ctx context.Context, accountID uuid.UUID, role models.Role, noteCutoff, apptCutoff time.Time) (int64, error) {
	if m.CountRetainedFunc != nil {
		return m.CountRetainedFunc(ctx, accountID, role, noteCutoff, apptCutoff)
	}
	return 0, nil
}

func (m *MockClinicalStore) PurgeNotesBefore(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
	if m.PurgeNotesBeforeFunc != nil {
		return m.PurgeNotesBeforeFunc(ctx, cutoff, batchSize)
	}
	return 0, nil
}

func (m *MockClinicalStore) PurgeAppointmentsBefore(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
	if m.PurgeAppointmentsBeforeFunc != nil {
		return m.PurgeAppointmentsBeforeFunc(ctx, cutoff, batchSize)
	}
	return 0, nil
}

// MockRequestStore keeps requests in memory with pending-only resolution.
type MockRequestStore struct {
	mu       sync.Mutex
	Requests []*models.DataSubjectRequest

	ResolveFunc func(ctx context.Context, id uuid.UUID, status models.RequestStatus, resolution string) error
}

func (m *MockRequestStore) Create(ctx context.Context, req *models.DataSubjectRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req.ID = uuid.New()
	req.Status = models.RequestPending
	m.Requests = append(m.Requests, req)
	return nil
}

func (m *MockRequestStore) Resolve(ctx context.Context, id uuid.UUID, status models.RequestStatus, resolution string) error {
	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx, id, status, resolution)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.Requests {
		if r.ID == id {
			if r.Status != models.RequestPending {
				return repository.ErrRequestTerminal
			}
			r.Status = status
			r.Resolution = resolution
			return nil
		}
	}
	return repository.ErrRequestNotFound
}

func (m *MockRequestStore) GetByID(ctx context.Context, id uuid.UUID) (*models.DataSubjectRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.Requests {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, repository.ErrRequestNotFound
}

func (m *MockRequestStore) ListByTarget(ctx context.Context, targetID uuid.UUID) ([]models.DataSubjectRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.DataSubjectRequest
	for _, r := range m.Requests {
		if r.TargetID == targetID {
			out = append(out, *r)
		}
	}
	return out, nil
}
