package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/careportal/access-core/internal/middleware"
	"github.com/careportal/access-core/internal/models"
	"github.com/careportal/access-core/internal/services"
	"github.com/go-chi/chi/v5"
)

// AuthHandler serves registration, login, logout and profile endpoints
type AuthHandler struct {
	authService *services.AuthService
	accounts    services.AccountStore
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *services.AuthService, accounts services.AccountStore) *AuthHandler {
	return &AuthHandler{authService: authService, accounts: accounts}
}

func roleParam(r *http.Request) (models.Role, bool) {
	switch chi.URLParam(r, "role") {
	case "patient":
		return models.RolePatient, true
	case "doctor", "clinician":
		return models.RoleClinician, true
	}
	return "", false
}

// Register creates a new patient or clinician account
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	role, ok := roleParam(r)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown role")
		return
	}

	var req services.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	account, err := h.authService.Register(r.Context(), role, req, clientIP(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": string(role) + " registered successfully",
		"id":      account.ID,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates a credential pair and returns a session token
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	role, ok := roleParam(r)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown role")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	token, account, err := h.authService.Login(r.Context(), role, req.Email, req.Password, clientIP(r), clientIP(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"access_token": token,
		"user":         account.Profile(),
	})
}

// Logout revokes every outstanding token for the caller
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	if err := h.authService.Logout(r.Context(), actor.ID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// Profile returns the caller's own account profile
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	account, err := h.accounts.GetByID(r.Context(), actor.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account.Profile())
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword rotates the caller's credential
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.authService.ChangePassword(r.Context(), actor.ID, req.CurrentPassword, req.NewPassword); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "password changed"})
}
