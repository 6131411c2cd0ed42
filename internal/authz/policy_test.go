package authz

import (
	"testing"

	"github.com/careportal/access-core/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

var (
	patientID   = uuid.New()
	clinicianID = uuid.New()
	otherID     = uuid.New()
)

func patient() Actor {
	return Actor{ID: patientID, Role: models.RolePatient, Status: models.StatusActive}
}

func clinician() Actor {
	return Actor{ID: clinicianID, Role: models.RoleClinician, Status: models.StatusActive}
}

func TestDecideClinicalResources(t *testing.T) {
	tests := []struct {
		name   string
		actor  Actor
		action Action
		res    Resource
		allow  bool
	}{
		{
			"patient reads own appointment",
			patient(), ActionRead,
			Resource{Type: ResourceAppointment, PatientID: patientID, DoctorID: clinicianID},
			true,
		},
		{
			"patient books own appointment",
			patient(), ActionWrite,
			Resource{Type: ResourceAppointment, PatientID: patientID, DoctorID: clinicianID},
			true,
		},
		{
			"patient reads another patient's appointment",
			patient(), ActionRead,
			Resource{Type: ResourceAppointment, PatientID: otherID, DoctorID: clinicianID},
			false,
		},
		{
			"patient reads own medical note",
			patient(), ActionRead,
			Resource{Type: ResourceMedicalNote, PatientID: patientID, DoctorID: clinicianID},
			true,
		},
		{
			"patient reads another patient's note",
			patient(), ActionRead,
			Resource{Type: ResourceMedicalNote, PatientID: otherID, DoctorID: clinicianID},
			false,
		},
		{
			"clinician reads own-authored note",
			clinician(), ActionRead,
			Resource{Type: ResourceMedicalNote, PatientID: patientID, DoctorID: clinicianID},
			true,
		},
		{
			"clinician writes own-authored note",
			clinician(), ActionWrite,
			Resource{Type: ResourceMedicalNote, PatientID: patientID, DoctorID: clinicianID},
			true,
		},
		{
			"clinician writes another clinician's note",
			clinician(), ActionWrite,
			Resource{Type: ResourceMedicalNote, PatientID: patientID, DoctorID: otherID},
			false,
		},
		{
			"clinician reads own appointment",
			clinician(), ActionRead,
			Resource{Type: ResourceAppointment, PatientID: patientID, DoctorID: clinicianID},
			true,
		},
		{
			"clinician writes appointment",
			clinician(), ActionWrite,
			Resource{Type: ResourceAppointment, PatientID: patientID, DoctorID: clinicianID},
			false,
		},
		{
			"clinician reads another clinician's appointment",
			clinician(), ActionRead,
			Resource{Type: ResourceAppointment, PatientID: patientID, DoctorID: otherID},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.actor, tt.action, tt.res)
			assert.Equal(t, tt.allow, d.Allowed)
			if !tt.allow {
				assert.NotEmpty(t, d.Reason)
			}
		})
	}
}

// A patient never gets write access to a medical note, whatever the
// ownership fields claim.
func TestPatientNeverWritesMedicalNote(t *testing.T) {
	owners := []uuid.UUID{patientID, clinicianID, otherID, uuid.Nil}
	for _, pid := range owners {
		for _, did := range owners {
			d := Decide(patient(), ActionWrite, Resource{
				Type:      ResourceMedicalNote,
				PatientID: pid,
				DoctorID:  did,
			})
			assert.False(t, d.Allowed, "patient_id=%s doctor_id=%s", pid, did)
		}
	}
}

func TestDirectoryListings(t *testing.T) {
	assert.True(t, Decide(clinician(), ActionList, Resource{Type: ResourcePatientListing}).Allowed)
	assert.False(t, Decide(patient(), ActionList, Resource{Type: ResourcePatientListing}).Allowed)

	assert.True(t, Decide(patient(), ActionList, Resource{Type: ResourceDoctorListing}).Allowed)
	assert.False(t, Decide(clinician(), ActionList, Resource{Type: ResourceDoctorListing}).Allowed)
}

func TestRestrictedAccountLockdown(t *testing.T) {
	for _, status := range []models.AccountStatus{models.StatusRestricted, models.StatusErased} {
		actor := Actor{ID: patientID, Role: models.RolePatient, Status: status}

		// Everything clinical is denied, including the actor's own rows.
		d := Decide(actor, ActionRead, Resource{Type: ResourceAppointment, PatientID: patientID})
		assert.False(t, d.Allowed, "status %s", status)
		d = Decide(actor, ActionRead, Resource{Type: ResourceMedicalNote, PatientID: patientID})
		assert.False(t, d.Allowed, "status %s", status)
		d = Decide(actor, ActionList, Resource{Type: ResourceDoctorListing})
		assert.False(t, d.Allowed, "status %s", status)

		// The single carve-out: the actor's own GDPR requests.
		d = Decide(actor, ActionRead, Resource{Type: ResourceGDPRRequest, OwnerID: patientID})
		assert.True(t, d.Allowed, "status %s", status)
		d = Decide(actor, ActionRead, Resource{Type: ResourceGDPRRequest, OwnerID: otherID})
		assert.False(t, d.Allowed, "status %s", status)
	}
}

func TestSelfScopedResources(t *testing.T) {
	assert.True(t, Decide(patient(), ActionRead, Resource{Type: ResourceAuditTrail, OwnerID: patientID}).Allowed)
	assert.False(t, Decide(patient(), ActionRead, Resource{Type: ResourceAuditTrail, OwnerID: otherID}).Allowed)

	assert.True(t, Decide(patient(), ActionWrite, Resource{Type: ResourceGDPRRequest, OwnerID: patientID}).Allowed)
	assert.False(t, Decide(patient(), ActionWrite, Resource{Type: ResourceGDPRRequest, OwnerID: otherID}).Allowed)

	assert.True(t, Decide(clinician(), ActionRead, Resource{Type: ResourceAccountProfile, OwnerID: clinicianID}).Allowed)
	assert.False(t, Decide(clinician(), ActionRead, Resource{Type: ResourceAccountProfile, OwnerID: patientID}).Allowed)
}

// Decide must be total: any combination of inputs yields a decision with
// a reason on denial, never a panic, and the same inputs always produce
// the same decision.
func TestDecideTotalAndDeterministic(t *testing.T) {
	actors := []Actor{
		patient(),
		clinician(),
		{ID: patientID, Role: models.RolePatient, Status: models.StatusRestricted},
		{ID: clinicianID, Role: models.RoleClinician, Status: models.StatusErased},
		{ID: otherID, Role: "unknown", Status: models.StatusActive},
	}
	actions := []Action{ActionRead, ActionWrite, ActionList, Action("bogus")}
	resources := []Resource{
		{Type: ResourceAppointment, PatientID: patientID, DoctorID: clinicianID},
		{Type: ResourceMedicalNote, PatientID: otherID, DoctorID: otherID},
		{Type: ResourcePatientListing},
		{Type: ResourceDoctorListing},
		{Type: ResourceGDPRRequest, OwnerID: patientID},
		{Type: ResourceAuditTrail, OwnerID: clinicianID},
		{Type: ResourceAccountProfile, OwnerID: otherID},
		{Type: ResourceType("bogus")},
		{},
	}

	for _, actor := range actors {
		for _, action := range actions {
			for _, res := range resources {
				first := Decide(actor, action, res)
				second := Decide(actor, action, res)
				assert.Equal(t, first, second)
				if !first.Allowed {
					assert.NotEmpty(t, first.Reason)
				}
			}
		}
	}
}
