package services

import (
	"context"

	"github.com/careportal/access-core/internal/authz"
	"github.com/careportal/access-core/internal/metrics"
	"github.com/careportal/access-core/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// AuditService is the single write path to the audit trail. Every denial
// and every failure is itself a security-relevant fact, so Record never
// silently drops an event: a storage failure is logged loudly because
// there is nowhere better for it to go.
type AuditService struct {
	audit AuditStore
}

// NewAuditService creates a new audit service
func NewAuditService(audit AuditStore) *AuditService {
	return &AuditService{audit: audit}
}

// Record appends an audit event.
func (s *AuditService) Record(ctx context.Context, event *models.AuditEvent) {
	if err := s.audit.Create(ctx, event); err != nil {
		log.Error().
			Err(err).
			Str("kind", string(event.Kind)).
			Str("outcome", string(event.Outcome)).
			Msg("Failed to persist audit event")
	}
}

// RecordDenial appends the audit event for an authorization denial and
// returns the transport error for the handler.
func (s *AuditService) RecordDenial(ctx context.Context, actor authz.Actor, action authz.Action, res authz.Resource, decision authz.Decision) *DeniedError {
	metrics.AuthzDecisions.WithLabelValues("denied").Inc()
	actorID := actor.ID
	s.Record(ctx, &models.AuditEvent{
		ActorID:      &actorID,
		Kind:         models.AuditAuthzDenied,
		Outcome:      models.OutcomeDenied,
		ResourceType: string(res.Type),
		Detail:       string(action) + ": " + decision.Reason,
	})
	return &DeniedError{Reason: decision.Reason}
}

// Query returns audit events, strictly scoped to the caller's own
// activity. No administrative capability exists in this deployment, so
// the actor filter is pinned to the caller regardless of input.
func (s *AuditService) Query(ctx context.Context, actor authz.Actor, filter models.AuditFilter) ([]models.AuditEvent, error) {
	res := authz.Resource{Type: authz.ResourceAuditTrail, OwnerID: actor.ID}
	if d := authz.Decide(actor, authz.ActionRead, res); !d.Allowed {
		return nil, s.RecordDenial(ctx, actor, authz.ActionRead, res, d)
	}
	metrics.AuthzDecisions.WithLabelValues("allowed").Inc()

	self := actor.ID
	filter.ActorID = &self
	return s.audit.Query(ctx, filter)
}

// Authorize evaluates the policy engine for a caller and audits a denial.
// Allowed decisions are counted but not individually audited.
func (s *AuditService) Authorize(ctx context.Context, actor authz.Actor, action authz.Action, res authz.Resource) *DeniedError {
	if d := authz.Decide(actor, action, res); !d.Allowed {
		return s.RecordDenial(ctx, actor, action, res, d)
	}
	metrics.AuthzDecisions.WithLabelValues("allowed").Inc()
	return nil
}

// actorRef converts an account id to the nullable actor reference used
// by audit events.
func actorRef(id uuid.UUID) *uuid.UUID {
	ref := id
	return &ref
}
