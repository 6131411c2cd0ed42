package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Appointment is a booking between a patient and a clinician. The core
// mediates who may read and write these rows; scheduling semantics live
// outside it.
type Appointment struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	PatientID       uuid.UUID `gorm:"type:uuid;not null;index" json:"patient_id"`
	DoctorID        uuid.UUID `gorm:"type:uuid;not null;index" json:"doctor_id"`
	AppointmentDate time.Time `gorm:"type:date;not null;index" json:"appointment_date"`
	AppointmentTime string    `gorm:"type:varchar(10);not null" json:"appointment_time"`
	Reason          string    `gorm:"type:text" json:"reason,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// TableName overrides the table name
func (Appointment) TableName() string {
	return "appointments"
}

// BeforeCreate hook
func (a *Appointment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// MedicalNote is a clinical record authored by a clinician about a patient.
// Ownership is fixed at creation: only the authoring clinician may write it,
// the named patient may read it. NoteDate anchors the 7-year retention
// window.
type MedicalNote struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	PatientID  uuid.UUID `gorm:"type:uuid;not null;index" json:"patient_id"`
	DoctorID   uuid.UUID `gorm:"type:uuid;not null;index" json:"doctor_id"`
	NoteDate   time.Time `gorm:"type:date;not null;index" json:"note_date"`
	Details    string    `gorm:"type:text" json:"note_details,omitempty"`
	Medication string    `gorm:"type:text" json:"medication,omitempty"`
	Treatment  string    `gorm:"type:text" json:"treatment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName overrides the table name
func (MedicalNote) TableName() string {
	return "medical_notes"
}

// BeforeCreate hook
func (m *MedicalNote) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
