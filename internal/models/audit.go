package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditKind classifies a security-relevant event
type AuditKind string

const (
	AuditLogin          AuditKind = "login"
	AuditRegistration   AuditKind = "registration"
	AuditTokenIssued    AuditKind = "token_issued"
	AuditTokenRevoked   AuditKind = "token_revoked"
	AuditAuthzDenied    AuditKind = "authz_denied"
	AuditNoteWritten    AuditKind = "note_written"
	AuditGDPRExport     AuditKind = "gdpr_export"
	AuditGDPRRectify    AuditKind = "gdpr_rectify"
	AuditGDPRErase      AuditKind = "gdpr_erase"
	AuditGDPRRestrict   AuditKind = "gdpr_restrict"
	AuditGDPRConsent    AuditKind = "gdpr_consent"
	AuditRetentionSweep AuditKind = "retention_sweep"
)

// AuditOutcome records how the audited action ended
type AuditOutcome string

const (
	OutcomeSuccess AuditOutcome = "success"
	OutcomeDenied  AuditOutcome = "denied"
	OutcomeError   AuditOutcome = "error"
)

// AuditEvent is an append-only record of a security-relevant event.
// Rows are never updated; the only deletion path is the retention sweep
// once an entry leaves the audit window. ActorID is a weak reference:
// the event must survive erasure of the account it names.
type AuditEvent struct {
	ID           uuid.UUID    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ActorID      *uuid.UUID   `gorm:"type:uuid;index" json:"actor_id,omitempty"`
	Kind         AuditKind    `gorm:"type:varchar(50);not null;index" json:"kind"`
	Outcome      AuditOutcome `gorm:"type:varchar(20);not null;index" json:"outcome"`
	ResourceType string       `gorm:"type:varchar(50);index" json:"resource_type,omitempty"`
	ResourceID   *uuid.UUID   `gorm:"type:uuid;index" json:"resource_id,omitempty"`
	Detail       string       `gorm:"type:text" json:"detail,omitempty"`
	IPAddress    string       `gorm:"type:varchar(45)" json:"ip_address,omitempty"`
	CreatedAt    time.Time    `gorm:"index" json:"timestamp"`
}

// TableName overrides the table name
func (AuditEvent) TableName() string {
	return "audit_events"
}

// BeforeCreate hook
func (a *AuditEvent) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// AuditFilter narrows an audit query. The service layer pins ActorID to
// the caller for non-administrative queries.
type AuditFilter struct {
	ActorID *uuid.UUID
	Kind    AuditKind
	Since   time.Time
	Limit   int
	Offset  int
}
