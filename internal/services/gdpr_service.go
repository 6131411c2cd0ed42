package services

import (
	"context"
	"fmt"
	"time"

	"github.com/careportal/access-core/internal/authz"
	"github.com/careportal/access-core/internal/metrics"
	"github.com/careportal/access-core/internal/models"
	"github.com/google/uuid"
)

// EraseResult reports the two-outcome resolution of an erasure request.
// Erasure is never a single unconditional delete: rows still inside a
// statutory retention window always win over the request, in which case
// the account is restricted instead.
type EraseResult struct {
	Erased       bool                 `json:"erased"`
	Status       models.AccountStatus `json:"status"`
	RetainedRows int64                `json:"retained_rows,omitempty"`
	Reason       string               `json:"reason,omitempty"`
}

// rectifiable lists the account fields each role may rectify. Identity
// fields (id, email, role) are excluded: changing them through this path
// could break uniqueness invariants.
var rectifiable = map[models.Role]map[string]bool{
	models.RolePatient: {
		"first_name": true, "last_name": true, "phone": true,
		"date_of_birth": true, "gender": true, "address": true,
	},
	models.RoleClinician: {
		"first_name": true, "last_name": true, "phone": true,
		"specialty": true,
	},
}

// GDPRService executes data-subject requests: export, rectification,
// erasure/restriction and consent updates, each recorded as a
// DataSubjectRequest and audited.
type GDPRService struct {
	accounts AccountStore
	clinical ClinicalStore
	consents ConsentStore
	requests RequestStore
	audit    *AuditService
	policies []models.RetentionPolicy
	now      func() time.Time
}

// NewGDPRService creates a new GDPR service
func NewGDPRService(accounts AccountStore, clinical ClinicalStore, consents ConsentStore, requests RequestStore, audit *AuditService, policies []models.RetentionPolicy) *GDPRService {
	return &GDPRService{
		accounts: accounts,
		clinical: clinical,
		consents: consents,
		requests: requests,
		audit:    audit,
		policies: policies,
		now:      time.Now,
	}
}

// authorizeSelf checks the self-service rule for a data-subject request.
func (s *GDPRService) authorizeSelf(ctx context.Context, actor authz.Actor, target uuid.UUID) error {
	res := authz.Resource{Type: authz.ResourceGDPRRequest, OwnerID: target}
	if denied := s.audit.Authorize(ctx, actor, authz.ActionWrite, res); denied != nil {
		return denied
	}
	return nil
}

// open creates the pending request row for an operation.
func (s *GDPRService) open(ctx context.Context, kind models.RequestKind, actor authz.Actor) (*models.DataSubjectRequest, error) {
	req := &models.DataSubjectRequest{
		Kind:        kind,
		RequesterID: actor.ID,
		TargetID:    actor.ID,
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// settle resolves the request and counts the outcome.
func (s *GDPRService) settle(ctx context.Context, req *models.DataSubjectRequest, status models.RequestStatus, resolution string) {
	if err := s.requests.Resolve(ctx, req.ID, status, resolution); err != nil {
		s.audit.Record(ctx, &models.AuditEvent{
			ActorID: actorRef(req.RequesterID),
			Kind:    auditKindFor(req.Kind),
			Outcome: models.OutcomeError,
			Detail:  fmt.Sprintf("failed to settle request %s: %v", req.ID, err),
		})
		return
	}
	metrics.GDPRRequests.WithLabelValues(string(req.Kind), string(status)).Inc()
}

// auditKindFor maps a request kind to the audit kind covering it.
func auditKindFor(kind models.RequestKind) models.AuditKind {
	switch kind {
	case models.RequestExport:
		return models.AuditGDPRExport
	case models.RequestRectify:
		return models.AuditGDPRRectify
	case models.RequestRestrict:
		return models.AuditGDPRRestrict
	case models.RequestConsentUpdate:
		return models.AuditGDPRConsent
	default:
		return models.AuditGDPRErase
	}
}

// Export assembles the portable snapshot of everything the portal holds
// about the subject. Read-only and deterministic: repeated exports with
// no intervening writes must serialize identically, so the bundle stamp
// is the account's last-write time rather than the wall clock.
func (s *GDPRService) Export(ctx context.Context, actor authz.Actor) (*models.ExportBundle, error) {
	if err := s.authorizeSelf(ctx, actor, actor.ID); err != nil {
		return nil, err
	}

	req, err := s.open(ctx, models.RequestExport, actor)
	if err != nil {
		return nil, err
	}

	account, err := s.accounts.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	consents, err := s.consents.History(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	var appts []models.Appointment
	var notes []models.MedicalNote
	if account.Role == models.RoleClinician {
		appts, err = s.clinical.AppointmentsByDoctor(ctx, actor.ID)
		if err == nil {
			notes, err = s.clinical.NotesByDoctor(ctx, actor.ID)
		}
	} else {
		appts, err = s.clinical.AppointmentsByPatient(ctx, actor.ID)
		if err == nil {
			notes, err = s.clinical.NotesByPatient(ctx, actor.ID)
		}
	}
	if err != nil {
		return nil, err
	}

	bundle := &models.ExportBundle{
		ExportedAt:   account.UpdatedAt.UTC().Truncate(time.Second),
		DataSubject:  account.Role,
		Profile:      account.Profile(),
		Consents:     consents,
		Appointments: appts,
		MedicalNotes: notes,
	}

	s.settle(ctx, req, models.RequestCompleted, "export delivered")
	s.audit.Record(ctx, &models.AuditEvent{
		ActorID: actorRef(actor.ID),
		Kind:    models.AuditGDPRExport,
		Outcome: models.OutcomeSuccess,
	})
	return bundle, nil
}

// Rectify applies a field-level correction to the subject's own profile.
// Only the role's rectifiable fields are accepted; anything else rejects
// the whole request.
func (s *GDPRService) Rectify(ctx context.Context, actor authz.Actor, fields map[string]interface{}) error {
	if err := s.authorizeSelf(ctx, actor, actor.ID); err != nil {
		return err
	}

	allowed := rectifiable[actor.Role]
	var reasons []string
	updates := make(map[string]interface{}, len(fields))
	for field, value := range fields {
		if !allowed[field] {
			reasons = append(reasons, fmt.Sprintf("field %q cannot be rectified", field))
			continue
		}
		if field == "date_of_birth" {
			str, ok := value.(string)
			if !ok {
				reasons = append(reasons, "date_of_birth must be YYYY-MM-DD")
				continue
			}
			dob, err := time.Parse("2006-01-02", str)
			if err != nil {
				reasons = append(reasons, "date_of_birth must be YYYY-MM-DD")
				continue
			}
			updates[field] = dob
			continue
		}
		updates[field] = value
	}
	if len(reasons) > 0 {
		return &ValidationError{Reasons: reasons}
	}
	if len(updates) == 0 {
		return &ValidationError{Reasons: []string{"no rectifiable fields supplied"}}
	}

	req, err := s.open(ctx, models.RequestRectify, actor)
	if err != nil {
		return err
	}

	if err := s.accounts.UpdateFields(ctx, actor.ID, updates); err != nil {
		s.settle(ctx, req, models.RequestRejected, err.Error())
		return err
	}

	s.settle(ctx, req, models.RequestCompleted, fmt.Sprintf("%d fields rectified", len(updates)))
	s.audit.Record(ctx, &models.AuditEvent{
		ActorID: actorRef(actor.ID),
		Kind:    models.AuditGDPRRectify,
		Outcome: models.OutcomeSuccess,
		Detail:  fmt.Sprintf("%d fields rectified", len(updates)),
	})
	return nil
}

// Erase executes the erasure arbitration for the subject's own account.
// A storage failure mid-transaction aborts atomically and leaves the
// request pending for retry.
func (s *GDPRService) Erase(ctx context.Context, actor authz.Actor) (*EraseResult, error) {
	if err := s.authorizeSelf(ctx, actor, actor.ID); err != nil {
		return nil, err
	}

	req, err := s.open(ctx, models.RequestErase, actor)
	if err != nil {
		return nil, err
	}

	noteCutoff, apptCutoff := s.cutoffs()
	outcome, err := s.accounts.EraseOrRestrict(ctx, actor.ID, noteCutoff, apptCutoff)
	if err != nil {
		s.audit.Record(ctx, &models.AuditEvent{
			ActorID: actorRef(actor.ID),
			Kind:    models.AuditGDPRErase,
			Outcome: models.OutcomeError,
			Detail:  err.Error(),
		})
		return nil, err
	}

	if outcome.Erased {
		s.settle(ctx, req, models.RequestCompleted, "account erased")
		s.audit.Record(ctx, &models.AuditEvent{
			ActorID: actorRef(actor.ID),
			Kind:    models.AuditGDPRErase,
			Outcome: models.OutcomeSuccess,
		})
		return &EraseResult{Erased: true, Status: models.StatusErased}, nil
	}

	retained := outcome.RetainedNotes + outcome.RetainedAppointments
	reason := fmt.Sprintf("%d records remain under statutory retention", retained)
	s.settle(ctx, req, models.RequestCompleted, "account restricted: "+reason)
	s.audit.Record(ctx, &models.AuditEvent{
		ActorID: actorRef(actor.ID),
		Kind:    models.AuditGDPRRestrict,
		Outcome: models.OutcomeSuccess,
		Detail:  reason,
	})
	return &EraseResult{
		Erased:       false,
		Status:       models.StatusRestricted,
		RetainedRows: retained,
		Reason:       reason,
	}, nil
}

// ConsentStatus returns the current consent version per purpose.
func (s *GDPRService) ConsentStatus(ctx context.Context, actor authz.Actor) ([]models.ConsentRecord, error) {
	if err := s.authorizeSelf(ctx, actor, actor.ID); err != nil {
		return nil, err
	}
	return s.consents.Latest(ctx, actor.ID)
}

// UpdateConsent appends the next consent version for a purpose. History
// is never overwritten.
func (s *GDPRService) UpdateConsent(ctx context.Context, actor authz.Actor, purpose models.ConsentPurpose, granted bool) (*models.ConsentRecord, error) {
	if err := s.authorizeSelf(ctx, actor, actor.ID); err != nil {
		return nil, err
	}
	if !models.ValidPurpose(purpose) {
		return nil, &ValidationError{Reasons: []string{fmt.Sprintf("unknown consent purpose %q", purpose)}}
	}

	req, err := s.open(ctx, models.RequestConsentUpdate, actor)
	if err != nil {
		return nil, err
	}

	record, err := s.consents.Append(ctx, actor.ID, purpose, granted)
	if err != nil {
		return nil, err
	}

	s.settle(ctx, req, models.RequestCompleted, fmt.Sprintf("%s=%t at version %d", purpose, granted, record.Version))
	s.audit.Record(ctx, &models.AuditEvent{
		ActorID: actorRef(actor.ID),
		Kind:    models.AuditGDPRConsent,
		Outcome: models.OutcomeSuccess,
		Detail:  fmt.Sprintf("%s=%t", purpose, granted),
	})
	return record, nil
}

// Requests lists the actor's own data-subject requests.
func (s *GDPRService) Requests(ctx context.Context, actor authz.Actor) ([]models.DataSubjectRequest, error) {
	res := authz.Resource{Type: authz.ResourceGDPRRequest, OwnerID: actor.ID}
	if denied := s.audit.Authorize(ctx, actor, authz.ActionRead, res); denied != nil {
		return nil, denied
	}
	return s.requests.ListByTarget(ctx, actor.ID)
}

// CancelRequest abandons one of the actor's own requests. Only pending
// requests can be abandoned; settled ones are immutable.
func (s *GDPRService) CancelRequest(ctx context.Context, actor authz.Actor, id uuid.UUID) error {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return err
	}

	res := authz.Resource{Type: authz.ResourceGDPRRequest, OwnerID: req.TargetID}
	if denied := s.audit.Authorize(ctx, actor, authz.ActionWrite, res); denied != nil {
		return denied
	}

	return s.requests.Resolve(ctx, id, models.RequestRejected, "cancelled by subject")
}

// cutoffs derives the retention cutoffs for the erase arbitration from
// the configured policies.
func (s *GDPRService) cutoffs() (noteCutoff, apptCutoff time.Time) {
	now := s.now().UTC()
	noteCutoff = now
	apptCutoff = now
	if p, ok := models.PolicyFor(s.policies, "medical_notes"); ok {
		noteCutoff = now.Add(-p.Window)
	}
	if p, ok := models.PolicyFor(s.policies, "appointments"); ok {
		apptCutoff = now.Add(-p.Window)
	}
	return noteCutoff, apptCutoff
}
