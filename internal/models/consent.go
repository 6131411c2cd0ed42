package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ConsentPurpose names a processing purpose consent can be given for
type ConsentPurpose string

const (
	PurposeDataProcessing ConsentPurpose = "data_processing"
	PurposeMarketing      ConsentPurpose = "marketing"
	PurposeAnalytics      ConsentPurpose = "analytics"
)

// KnownPurposes lists every purpose the portal processes data under.
var KnownPurposes = []ConsentPurpose{
	PurposeDataProcessing,
	PurposeMarketing,
	PurposeAnalytics,
}

// ConsentRecord is one version of an account's consent for a purpose.
// Records are append-only: a consent change inserts the next version,
// so the historical consent state at any point in time stays provable.
type ConsentRecord struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	AccountID uuid.UUID      `gorm:"type:uuid;not null;index:idx_consent_account_purpose" json:"account_id"`
	Purpose   ConsentPurpose `gorm:"type:varchar(50);not null;index:idx_consent_account_purpose" json:"purpose"`
	Granted   bool           `gorm:"not null" json:"granted"`
	Version   int            `gorm:"not null" json:"version"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
}

// TableName overrides the table name
func (ConsentRecord) TableName() string {
	return "consent_records"
}

// BeforeCreate hook
func (c *ConsentRecord) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// ValidPurpose reports whether p is a purpose the portal knows about.
func ValidPurpose(p ConsentPurpose) bool {
	for _, known := range KnownPurposes {
		if p == known {
			return true
		}
	}
	return false
}
