// Package authz is the access-control decision core. Decide is a pure,
// total function: no I/O, no logging, no panics, the same inputs always
// produce the same decision. Auditing of denials happens at call sites.
package authz

import (
	"github.com/careportal/access-core/internal/models"
	"github.com/google/uuid"
)

// Action is what the actor wants to do with the resource
type Action string

const (
	ActionRead  Action = "read"
	ActionWrite Action = "write"
	ActionList  Action = "list"
)

// ResourceType names the kinds of resources the core mediates
type ResourceType string

const (
	ResourceAppointment     ResourceType = "appointment"
	ResourceMedicalNote     ResourceType = "medical_note"
	ResourcePatientListing  ResourceType = "patient_listing"
	ResourceDoctorListing   ResourceType = "doctor_listing"
	ResourceGDPRRequest     ResourceType = "gdpr_request"
	ResourceAuditTrail      ResourceType = "audit_trail"
	ResourceAccountProfile  ResourceType = "account_profile"
)

// Resource identifies the target of an action. PatientID and DoctorID
// carry row ownership for clinical resources; OwnerID carries subject
// ownership for GDPR requests, audit trails and profiles.
type Resource struct {
	Type      ResourceType
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	OwnerID   uuid.UUID
}

// Actor is the authenticated caller. Status comes from the account row at
// request time, not from the token, so a restriction applies immediately.
type Actor struct {
	ID     uuid.UUID
	Role   models.Role
	Status models.AccountStatus
}

// Decision is the outcome of an authorization check
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// Decide evaluates the policy rules in precedence order, first match wins:
//
//  1. Restricted or erased accounts may touch nothing but their own GDPR
//     requests.
//  2. A patient may read their own appointments and medical notes, and
//     write their own appointments. A patient never writes a medical note.
//  3. A clinician may read and write medical notes they authored, and read
//     appointments booked with them. Note ownership is set at creation and
//     never moves.
//  4. Directory listings are cross-role: clinicians list patients,
//     patients list clinicians.
//  5. Anything else is denied.
func Decide(actor Actor, action Action, res Resource) Decision {
	// Rule 1: lockdown for restricted and erased accounts.
	if actor.Status == models.StatusRestricted || actor.Status == models.StatusErased {
		if res.Type == ResourceGDPRRequest && res.OwnerID == actor.ID {
			return allow()
		}
		return deny("account is " + string(actor.Status))
	}

	switch res.Type {
	case ResourceAppointment:
		switch actor.Role {
		case models.RolePatient:
			if res.PatientID != actor.ID {
				return deny("appointment belongs to another patient")
			}
			if action == ActionRead || action == ActionWrite {
				return allow()
			}
			return deny("unsupported appointment action")
		case models.RoleClinician:
			if res.DoctorID != actor.ID {
				return deny("appointment belongs to another clinician")
			}
			if action == ActionRead {
				return allow()
			}
			return deny("clinicians may only read appointments")
		}

	case ResourceMedicalNote:
		switch actor.Role {
		case models.RolePatient:
			if action == ActionWrite {
				return deny("patients may not write medical notes")
			}
			if res.PatientID != actor.ID {
				return deny("note concerns another patient")
			}
			if action == ActionRead {
				return allow()
			}
			return deny("unsupported note action")
		case models.RoleClinician:
			if res.DoctorID != actor.ID {
				return deny("note authored by another clinician")
			}
			if action == ActionRead || action == ActionWrite {
				return allow()
			}
			return deny("unsupported note action")
		}

	case ResourcePatientListing:
		if action == ActionList && actor.Role == models.RoleClinician {
			return allow()
		}
		return deny("patient directory is clinician-only")

	case ResourceDoctorListing:
		if action == ActionList && actor.Role == models.RolePatient {
			return allow()
		}
		return deny("clinician directory is patient-only")

	case ResourceGDPRRequest:
		if res.OwnerID == actor.ID {
			return allow()
		}
		return deny("data-subject requests are self-service only")

	case ResourceAuditTrail:
		if action == ActionRead && res.OwnerID == actor.ID {
			return allow()
		}
		return deny("audit queries are self-scoped")

	case ResourceAccountProfile:
		if res.OwnerID == actor.ID {
			return allow()
		}
		return deny("profile belongs to another account")
	}

	return deny("no rule permits this action")
}
