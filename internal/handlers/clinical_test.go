package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/careportal/access-core/internal/authz"
	"github.com/careportal/access-core/internal/middleware"
	"github.com/careportal/access-core/internal/models"
	"github.com/careportal/access-core/internal/services"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAccountDirectory struct {
	services.AccountStore
	byRole map[models.Role][]models.Account
}

func (s *stubAccountDirectory) ListByRole(ctx context.Context, role models.Role) ([]models.Account, error) {
	return s.byRole[role], nil
}

type stubAuditTrail struct {
	services.AuditStore
	events []models.AuditEvent
}

func (s *stubAuditTrail) Create(ctx context.Context, event *models.AuditEvent) error {
	s.events = append(s.events, *event)
	return nil
}

func newDirectoryFixture(t *testing.T) (*ClinicalHandler, *stubAuditTrail, models.Account, models.Account) {
	t.Helper()

	patient := models.Account{ID: uuid.New(), Role: models.RolePatient, Email: "ama@example.com"}
	doctor := models.Account{ID: uuid.New(), Role: models.RoleClinician, Email: "dr.owusu@example.com"}

	accounts := &stubAccountDirectory{byRole: map[models.Role][]models.Account{
		models.RolePatient:   {patient},
		models.RoleClinician: {doctor},
	}}
	audit := &stubAuditTrail{}
	svc := services.NewClinicalService(struct{ services.ClinicalStore }{}, accounts, services.NewAuditService(audit))
	return NewClinicalHandler(svc), audit, patient, doctor
}

func getDirectory(t *testing.T, handler http.HandlerFunc, path string, actor authz.Actor) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	req = req.WithContext(middleware.WithActor(req.Context(), actor))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestPatientListingIsClinicianOnly(t *testing.T) {
	h, audit, patient, _ := newDirectoryFixture(t)
	actor := authz.Actor{ID: patient.ID, Role: models.RolePatient, Status: models.StatusActive}

	rec := getDirectory(t, h.Patients, "/api/patients", actor)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.NotContains(t, body, "patients")
	assert.NotContains(t, body, "doctors")

	require.Len(t, audit.events, 1)
	assert.Equal(t, models.AuditAuthzDenied, audit.events[0].Kind)
	assert.Equal(t, models.OutcomeDenied, audit.events[0].Outcome)
}

func TestDoctorListingIsPatientOnly(t *testing.T) {
	h, audit, _, doctor := newDirectoryFixture(t)
	actor := authz.Actor{ID: doctor.ID, Role: models.RoleClinician, Status: models.StatusActive}

	rec := getDirectory(t, h.Doctors, "/api/doctors", actor)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	require.Len(t, audit.events, 1)
	assert.Equal(t, models.AuditAuthzDenied, audit.events[0].Kind)
}

func TestDirectoryRoutesServeTheNamedListing(t *testing.T) {
	h, _, patient, doctor := newDirectoryFixture(t)

	rec := getDirectory(t, h.Doctors, "/api/doctors",
		authz.Actor{ID: patient.ID, Role: models.RolePatient, Status: models.StatusActive})
	require.Equal(t, http.StatusOK, rec.Code)

	var doctors map[string][]map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&doctors))
	require.Len(t, doctors["doctors"], 1)
	assert.Equal(t, doctor.Email, doctors["doctors"][0]["email"])

	rec = getDirectory(t, h.Patients, "/api/patients",
		authz.Actor{ID: doctor.ID, Role: models.RoleClinician, Status: models.StatusActive})
	require.Equal(t, http.StatusOK, rec.Code)

	var patients map[string][]map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&patients))
	require.Len(t, patients["patients"], 1)
	assert.Equal(t, patient.Email, patients["patients"][0]["email"])
}
