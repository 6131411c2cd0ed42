package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RequestKind is the type of data-subject operation requested
type RequestKind string

const (
	RequestExport        RequestKind = "export"
	RequestRectify       RequestKind = "rectify"
	RequestErase         RequestKind = "erase"
	RequestRestrict      RequestKind = "restrict"
	RequestConsentUpdate RequestKind = "consent_update"
)

// RequestStatus tracks the lifecycle of a data-subject request
type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestCompleted RequestStatus = "completed"
	RequestRejected  RequestStatus = "rejected"
)

// DataSubjectRequest is an in-flight or settled GDPR operation. Pending is
// the only non-terminal state; Completed and Rejected are final. Like audit
// events, requests reference the account weakly and survive its erasure.
type DataSubjectRequest struct {
	ID          uuid.UUID     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Kind        RequestKind   `gorm:"type:varchar(30);not null;index" json:"kind"`
	RequesterID uuid.UUID     `gorm:"type:uuid;not null;index" json:"requester_id"`
	TargetID    uuid.UUID     `gorm:"type:uuid;not null;index" json:"target_id"`
	Status      RequestStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Resolution  string        `gorm:"type:text" json:"resolution,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// TableName overrides the table name
func (DataSubjectRequest) TableName() string {
	return "data_subject_requests"
}

// BeforeCreate hook
func (d *DataSubjectRequest) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// Terminal reports whether the request has reached a final state.
func (d *DataSubjectRequest) Terminal() bool {
	return d.Status == RequestCompleted || d.Status == RequestRejected
}

// ExportBundle is the portable snapshot returned by a data export.
// Field order and slice ordering are deterministic so that two exports
// with no intervening writes serialize identically.
type ExportBundle struct {
	ExportedAt   time.Time              `json:"export_date"`
	DataSubject  Role                   `json:"data_subject"`
	Profile      map[string]interface{} `json:"profile"`
	Consents     []ConsentRecord        `json:"consent_history"`
	Appointments []Appointment          `json:"appointments"`
	MedicalNotes []MedicalNote          `json:"medical_notes"`
}
