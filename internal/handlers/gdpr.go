package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/careportal/access-core/internal/middleware"
	"github.com/careportal/access-core/internal/models"
	"github.com/careportal/access-core/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// GDPRHandler serves the data-subject rights endpoints
type GDPRHandler struct {
	gdprService *services.GDPRService
}

// NewGDPRHandler creates a new GDPR handler
func NewGDPRHandler(gdprService *services.GDPRService) *GDPRHandler {
	return &GDPRHandler{gdprService: gdprService}
}

// Export returns the caller's complete data bundle (Article 20)
func (h *GDPRHandler) Export(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	bundle, err := h.gdprService.Export(r.Context(), actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bundle)
}

// Rectify applies a field-level profile correction (Article 16)
func (h *GDPRHandler) Rectify(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var fields map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.gdprService.Rectify(r.Context(), actor, fields); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "data updated successfully"})
}

// Erase requests erasure of the caller's account (Article 17). The
// response distinguishes the two lawful outcomes: erased, or restricted
// because records remain under statutory retention.
func (h *GDPRHandler) Erase(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	result, err := h.gdprService.Erase(r.Context(), actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ConsentStatus returns the caller's current consent per purpose
func (h *GDPRHandler) ConsentStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	records, err := h.gdprService.ConsentStatus(r.Context(), actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"consents": records})
}

type consentRequest struct {
	Purpose models.ConsentPurpose `json:"purpose"`
	Granted bool                  `json:"granted"`
}

// UpdateConsent appends a new consent version
func (h *GDPRHandler) UpdateConsent(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req consentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	record, err := h.gdprService.UpdateConsent(r.Context(), actor, req.Purpose, req.Granted)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// Requests lists the caller's data-subject requests
func (h *GDPRHandler) Requests(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	requests, err := h.gdprService.Requests(r.Context(), actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"requests": requests})
}

// CancelRequest abandons a pending request
func (h *GDPRHandler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request ID")
		return
	}

	if err := h.gdprService.CancelRequest(r.Context(), actor, id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "request cancelled"})
}

// ProcessingPurposes is the public statement of processing purposes,
// retention periods and data-subject rights (Articles 13/14).
func (h *GDPRHandler) ProcessingPurposes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"purposes": []map[string]string{
			{
				"purpose":          "Healthcare Service Delivery",
				"legal_basis":      "Vital interests and consent",
				"retention_period": "7 years after last treatment",
			},
			{
				"purpose":          "Appointment Management",
				"legal_basis":      "Contract performance and consent",
				"retention_period": "2 years after appointment",
			},
			{
				"purpose":          "System Security and Audit",
				"legal_basis":      "Legitimate interests",
				"retention_period": "1 year",
			},
		},
		"rights": []string{
			"Right to access your data",
			"Right to rectify inaccurate data",
			"Right to erase your data",
			"Right to restrict processing",
			"Right to data portability",
			"Right to withdraw consent",
		},
	})
}
