package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/careportal/access-core/internal/auth"
	"github.com/careportal/access-core/internal/metrics"
	"github.com/careportal/access-core/internal/models"
	"github.com/careportal/access-core/internal/repository"
	"github.com/google/uuid"
)

// RegisterRequest carries the fields accepted at registration.
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone,omitempty"`
	// Patient profile
	DateOfBirth string `json:"date_of_birth,omitempty"`
	Gender      string `json:"gender,omitempty"`
	Address     string `json:"address,omitempty"`
	// Clinician profile
	Specialty string `json:"specialty,omitempty"`
}

// AuthService implements registration, login, logout and credential
// rotation: the credential store, rate limiter and token service wired
// together behind the audit log.
type AuthService struct {
	accounts AccountStore
	audit    *AuditService
	tokens   *auth.TokenService
	limiter  *auth.RateLimiter
}

// NewAuthService creates a new auth service
func NewAuthService(accounts AccountStore, audit *AuditService, tokens *auth.TokenService, limiter *auth.RateLimiter) *AuthService {
	return &AuthService{
		accounts: accounts,
		audit:    audit,
		tokens:   tokens,
		limiter:  limiter,
	}
}

// Register creates a new account after input and password-policy checks.
func (s *AuthService) Register(ctx context.Context, role models.Role, req RegisterRequest, ip string) (*models.Account, error) {
	var reasons []string
	if req.FirstName == "" {
		reasons = append(reasons, "first_name is required")
	}
	if req.LastName == "" {
		reasons = append(reasons, "last_name is required")
	}
	if req.Email == "" {
		reasons = append(reasons, "email is required")
	} else if _, err := mail.ParseAddress(req.Email); err != nil {
		reasons = append(reasons, "email must be a valid email address")
	}
	if len(reasons) > 0 {
		return nil, &ValidationError{Reasons: reasons}
	}

	if err := auth.ValidatePassword(req.Password); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	account := &models.Account{
		Role:         role,
		Email:        strings.ToLower(req.Email),
		PasswordHash: hash,
		HashVersion:  auth.CurrentHashVersion,
		Status:       models.StatusActive,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
		Gender:       req.Gender,
		Address:      req.Address,
		Specialty:    req.Specialty,
	}
	if req.DateOfBirth != "" {
		dob, err := time.Parse("2006-01-02", req.DateOfBirth)
		if err != nil {
			return nil, &ValidationError{Reasons: []string{"date_of_birth must be YYYY-MM-DD"}}
		}
		account.DateOfBirth = &dob
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicateIdentity) {
			s.audit.Record(ctx, &models.AuditEvent{
				Kind:      models.AuditRegistration,
				Outcome:   models.OutcomeDenied,
				Detail:    "duplicate identity",
				IPAddress: ip,
			})
			return nil, err
		}
		return nil, err
	}

	s.audit.Record(ctx, &models.AuditEvent{
		ActorID:   actorRef(account.ID),
		Kind:      models.AuditRegistration,
		Outcome:   models.OutcomeSuccess,
		Detail:    string(role) + " registered",
		IPAddress: ip,
	})
	return account, nil
}

// Login authenticates a credential pair and issues a session token.
// Every distinct failure cause (unknown email, wrong password, role
// mismatch, restricted account) collapses into the same generic
// auth.ErrAuthFailed so nothing about the account leaks.
func (s *AuthService) Login(ctx context.Context, role models.Role, email, password, origin, ip string) (string, *models.Account, error) {
	identity := strings.ToLower(email)

	if err := s.limiter.Check(ctx, identity, origin); err != nil {
		var locked *auth.LockedError
		if errors.As(err, &locked) {
			metrics.LoginAttempts.WithLabelValues("locked").Inc()
			s.audit.Record(ctx, &models.AuditEvent{
				Kind:      models.AuditLogin,
				Outcome:   models.OutcomeDenied,
				Detail:    fmt.Sprintf("locked out, retry after %s", locked.RetryAfter.Round(time.Second)),
				IPAddress: ip,
			})
			return "", nil, locked
		}
		return "", nil, err
	}

	account, err := s.accounts.FindByEmail(ctx, identity)
	if err != nil && !errors.Is(err, repository.ErrAccountNotFound) {
		return "", nil, err
	}

	storedHash := ""
	if account != nil {
		storedHash = account.PasswordHash
	}
	credentialOK := auth.CheckPassword(storedHash, password) == nil
	accountOK := account != nil && account.Role == role && account.Status == models.StatusActive

	if !credentialOK || !accountOK {
		return "", nil, s.failLogin(ctx, identity, origin, ip)
	}

	if err := s.limiter.RecordSuccess(ctx, identity, origin); err != nil {
		return "", nil, err
	}

	token, err := s.tokens.Issue(account.ID, account.Role, account.TokenEpoch)
	if err != nil {
		return "", nil, err
	}

	metrics.LoginAttempts.WithLabelValues("success").Inc()
	s.audit.Record(ctx, &models.AuditEvent{
		ActorID:   actorRef(account.ID),
		Kind:      models.AuditLogin,
		Outcome:   models.OutcomeSuccess,
		IPAddress: ip,
	})
	s.audit.Record(ctx, &models.AuditEvent{
		ActorID: actorRef(account.ID),
		Kind:    models.AuditTokenIssued,
		Outcome: models.OutcomeSuccess,
	})
	return token, account, nil
}

// failLogin counts the failure, audits it with the rate-limiter outcome
// and returns the generic failure.
func (s *AuthService) failLogin(ctx context.Context, identity, origin, ip string) error {
	locked, err := s.limiter.RecordFailure(ctx, identity, origin)
	if err != nil {
		return err
	}

	detail := "invalid credentials"
	if locked != nil {
		detail = fmt.Sprintf("invalid credentials, lockout triggered for %s", locked.RetryAfter.Round(time.Second))
	}
	metrics.LoginAttempts.WithLabelValues("failure").Inc()
	s.audit.Record(ctx, &models.AuditEvent{
		Kind:      models.AuditLogin,
		Outcome:   models.OutcomeDenied,
		Detail:    detail,
		IPAddress: ip,
	})
	return auth.ErrAuthFailed
}

// Logout revokes every outstanding token for the account by bumping its
// revocation epoch.
func (s *AuthService) Logout(ctx context.Context, accountID uuid.UUID) error {
	if _, err := s.accounts.BumpEpoch(ctx, accountID); err != nil {
		return err
	}
	s.audit.Record(ctx, &models.AuditEvent{
		ActorID: actorRef(accountID),
		Kind:    models.AuditTokenRevoked,
		Outcome: models.OutcomeSuccess,
		Detail:  "logout",
	})
	return nil
}

// ChangePassword rotates the account credential after verifying the
// current secret and checking policy on the new one. The rotation revokes
// existing sessions.
func (s *AuthService) ChangePassword(ctx context.Context, accountID uuid.UUID, current, next string) error {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if err := auth.CheckPassword(account.PasswordHash, current); err != nil {
		return err
	}
	if err := auth.ValidatePassword(next); err != nil {
		return err
	}

	hash, err := auth.HashPassword(next)
	if err != nil {
		return err
	}
	if err := s.accounts.RotateCredential(ctx, accountID, hash, auth.CurrentHashVersion); err != nil {
		return err
	}
	if _, err := s.accounts.BumpEpoch(ctx, accountID); err != nil {
		return err
	}

	s.audit.Record(ctx, &models.AuditEvent{
		ActorID: actorRef(accountID),
		Kind:    models.AuditTokenRevoked,
		Outcome: models.OutcomeSuccess,
		Detail:  "credential rotated",
	})
	return nil
}
