package handlers

import (
	"net/http"
	"strconv"

	"github.com/careportal/access-core/internal/middleware"
	"github.com/careportal/access-core/internal/models"
	"github.com/careportal/access-core/internal/services"
)

// AuditHandler serves self-scoped audit trail queries
type AuditHandler struct {
	auditService *services.AuditService
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(auditService *services.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// Events returns the caller's own audit trail
func (h *AuditHandler) Events(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	filter := models.AuditFilter{
		Kind:  models.AuditKind(r.URL.Query().Get("kind")),
		Limit: 100,
	}
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit > 0 && limit <= 1000 {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && offset > 0 {
		filter.Offset = offset
	}

	events, err := h.auditService.Query(r.Context(), actor, filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}
