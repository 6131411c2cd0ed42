package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role identifies the class of an account
type Role string

const (
	RolePatient   Role = "patient"
	RoleClinician Role = "clinician"
)

// AccountStatus is the GDPR lifecycle state of an account
type AccountStatus string

const (
	StatusActive     AccountStatus = "active"
	StatusRestricted AccountStatus = "restricted"
	StatusErased     AccountStatus = "erased"
)

// Account is the identity record for a patient or clinician.
// The credential (hash + algorithm version) is bound 1:1 to the account
// and lives on the same row. Status transitions only happen through the
// GDPR engine; an erased account becomes a tombstone, never a deleted row,
// while any dependent record is still under mandatory retention.
type Account struct {
	ID           uuid.UUID     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Role         Role          `gorm:"type:varchar(20);not null;index" json:"role"`
	Email        string        `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`
	PasswordHash string        `gorm:"type:text;not null" json:"-"`
	HashVersion  int           `gorm:"not null;default:1" json:"-"`
	TokenEpoch   int64         `gorm:"not null;default:0" json:"-"`
	Status       AccountStatus `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`

	FirstName string `gorm:"type:varchar(255)" json:"first_name"`
	LastName  string `gorm:"type:varchar(255)" json:"last_name"`
	Phone     string `gorm:"type:varchar(50)" json:"phone,omitempty"`

	// Patient profile
	DateOfBirth *time.Time `gorm:"type:date" json:"date_of_birth,omitempty"`
	Gender      string     `gorm:"type:varchar(50)" json:"gender,omitempty"`
	Address     string     `gorm:"type:text" json:"address,omitempty"`

	// Clinician profile
	Specialty string `gorm:"type:varchar(255)" json:"specialty,omitempty"`

	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	RestrictedAt *time.Time `json:"restricted_at,omitempty"`
	ErasedAt     *time.Time `json:"erased_at,omitempty"`
}

// TableName overrides the table name
func (Account) TableName() string {
	return "accounts"
}

// BeforeCreate hook
func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// Profile returns the exportable, role-appropriate view of the account.
func (a *Account) Profile() map[string]interface{} {
	p := map[string]interface{}{
		"id":         a.ID,
		"role":       a.Role,
		"email":      a.Email,
		"first_name": a.FirstName,
		"last_name":  a.LastName,
		"phone":      a.Phone,
		"created_at": a.CreatedAt,
	}
	switch a.Role {
	case RolePatient:
		p["gender"] = a.Gender
		p["address"] = a.Address
		if a.DateOfBirth != nil {
			p["date_of_birth"] = a.DateOfBirth.Format("2006-01-02")
		}
	case RoleClinician:
		p["specialty"] = a.Specialty
	}
	return p
}
