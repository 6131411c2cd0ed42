package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/careportal/access-core/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token errors
var (
	ErrTokenExpired        = errors.New("token expired")
	ErrTokenMalformed      = errors.New("token malformed")
	ErrTokenEpochStale     = errors.New("token revoked")
	ErrTokenUnknownSubject = errors.New("token subject unknown")
)

// Claims is the authenticated identity carried by a session token.
// Epoch pins the token to the account's revocation epoch at issue time;
// a logout or erasure bumps the epoch and strands every older token.
type Claims struct {
	AccountID uuid.UUID   `json:"account_id"`
	Role      models.Role `json:"role"`
	Epoch     int64       `json:"epoch"`
	jwt.RegisteredClaims
}

// AccountState is the slice of account state token verification needs.
type AccountState struct {
	Epoch  int64
	Status models.AccountStatus
}

// AccountStateSource resolves the current revocation epoch and status of
// an account.
type AccountStateSource interface {
	AccountState(ctx context.Context, id uuid.UUID) (AccountState, error)
}

// ErrAccountNotFound is returned by AccountStateSource implementations
// when the subject does not exist.
var ErrAccountNotFound = errors.New("account not found")

// TokenService issues and verifies signed session tokens. Tokens are
// stateless; the only persisted revocation state is the per-account epoch.
type TokenService struct {
	secret   []byte
	ttl      time.Duration
	accounts AccountStateSource
	now      func() time.Time
}

// NewTokenService creates a token service signing with HMAC-SHA256.
func NewTokenService(secret []byte, ttl time.Duration, accounts AccountStateSource) *TokenService {
	return &TokenService{
		secret:   secret,
		ttl:      ttl,
		accounts: accounts,
		now:      time.Now,
	}
}

// Issue creates a signed token for the account with the given epoch.
func (s *TokenService) Issue(accountID uuid.UUID, role models.Role, epoch int64) (string, error) {
	now := s.now()
	claims := Claims{
		AccountID: accountID,
		Role:      role,
		Epoch:     epoch,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify validates signature and expiry, then checks the embedded epoch
// against the account's current one. Tokens issued before the latest
// revocation, and tokens for erased or missing subjects, are rejected.
// The account state read for the epoch check is returned so callers do
// not load it a second time.
func (s *TokenService) Verify(ctx context.Context, tokenString string) (*Claims, AccountState, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, AccountState{}, ErrTokenExpired
		}
		return nil, AccountState{}, ErrTokenMalformed
	}
	if !token.Valid {
		return nil, AccountState{}, ErrTokenMalformed
	}

	state, err := s.accounts.AccountState(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, AccountState{}, ErrTokenUnknownSubject
		}
		return nil, AccountState{}, fmt.Errorf("failed to load account state: %w", err)
	}
	if state.Status == models.StatusErased {
		return nil, AccountState{}, ErrTokenUnknownSubject
	}
	if claims.Epoch != state.Epoch {
		return nil, AccountState{}, ErrTokenEpochStale
	}

	return claims, state, nil
}
