package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/careportal/access-core/internal/middleware"
	"github.com/careportal/access-core/internal/models"
	"github.com/careportal/access-core/internal/services"
)

// ClinicalHandler serves the mediated appointment and note endpoints
type ClinicalHandler struct {
	clinicalService *services.ClinicalService
}

// NewClinicalHandler creates a new clinical handler
func NewClinicalHandler(clinicalService *services.ClinicalService) *ClinicalHandler {
	return &ClinicalHandler{clinicalService: clinicalService}
}

// BookAppointment creates an appointment for the calling patient
func (h *ClinicalHandler) BookAppointment(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req services.AppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	appt, err := h.clinicalService.BookAppointment(r.Context(), actor, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, appt)
}

// Appointments lists the caller's appointments
func (h *ClinicalHandler) Appointments(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	appts, err := h.clinicalService.Appointments(r.Context(), actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"appointments": appts})
}

// WriteNote records a medical note authored by the calling clinician
func (h *ClinicalHandler) WriteNote(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req services.NoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	note, err := h.clinicalService.WriteNote(r.Context(), actor, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// Notes lists the notes visible to the caller
func (h *ClinicalHandler) Notes(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	notes, err := h.clinicalService.Notes(r.Context(), actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"notes": notes})
}

// Patients lists the patient directory; the policy engine denies anyone
// but a clinician.
func (h *ClinicalHandler) Patients(w http.ResponseWriter, r *http.Request) {
	h.directory(w, r, models.RolePatient, "patients")
}

// Doctors lists the clinician directory; the policy engine denies anyone
// but a patient.
func (h *ClinicalHandler) Doctors(w http.ResponseWriter, r *http.Request) {
	h.directory(w, r, models.RoleClinician, "doctors")
}

// directory serves the listing the route names. The requested directory,
// not the caller's role, is what gets authorized.
func (h *ClinicalHandler) directory(w http.ResponseWriter, r *http.Request, target models.Role, key string) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	accounts, err := h.clinicalService.Directory(r.Context(), actor, target)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	listing := make([]map[string]interface{}, 0, len(accounts))
	for i := range accounts {
		listing = append(listing, accounts[i].Profile())
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{key: listing})
}
