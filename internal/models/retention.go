package models

import "time"

// RetentionPolicy fixes the minimum period rows in a table must be kept,
// measured from a per-table anchor column. Policies are static
// configuration, never mutated at runtime.
type RetentionPolicy struct {
	Table        string
	Window       time.Duration
	AnchorColumn string
	LegalBasis   string
}

const day = 24 * time.Hour

// DefaultRetentionPolicies are the portal's statutory retention windows:
// medical records 7 years from the note date, appointment data 2 years
// from the appointment date, audit logs 1 year.
func DefaultRetentionPolicies() []RetentionPolicy {
	return []RetentionPolicy{
		{
			Table:        "medical_notes",
			Window:       7 * 365 * day,
			AnchorColumn: "note_date",
			LegalBasis:   "Legal obligation and vital interests",
		},
		{
			Table:        "appointments",
			Window:       2 * 365 * day,
			AnchorColumn: "appointment_date",
			LegalBasis:   "Contract performance",
		},
		{
			Table:        "audit_events",
			Window:       365 * day,
			AnchorColumn: "created_at",
			LegalBasis:   "Legitimate interests",
		},
	}
}

// PolicyFor returns the policy covering table, if any.
func PolicyFor(policies []RetentionPolicy, table string) (RetentionPolicy, bool) {
	for _, p := range policies {
		if p.Table == table {
			return p, true
		}
	}
	return RetentionPolicy{}, false
}
