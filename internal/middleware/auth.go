package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/careportal/access-core/internal/auth"
	"github.com/careportal/access-core/internal/authz"
	"github.com/rs/zerolog/log"
)

type contextKey string

const actorKey contextKey = "actor"

// Authenticator verifies bearer tokens and injects the resulting actor
// into the request context. Claims are derived fresh from the token on
// every request; nothing is cached as ambient state.
type Authenticator struct {
	tokens *auth.TokenService
}

// NewAuthenticator creates the authentication middleware
func NewAuthenticator(tokens *auth.TokenService) *Authenticator {
	return &Authenticator{tokens: tokens}
}

// Require rejects requests without a valid bearer token.
func (a *Authenticator) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeAuthError(w, "missing bearer token")
			return
		}

		// Verify reads the account state for its epoch check; its status
		// comes from that same request-time read, so a restriction applied
		// after token issue still locks the account down immediately.
		claims, state, err := a.tokens.Verify(r.Context(), strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			log.Debug().Err(err).Str("path", r.URL.Path).Msg("Token rejected")
			writeAuthError(w, tokenErrorCode(err))
			return
		}

		actor := authz.Actor{
			ID:     claims.AccountID,
			Role:   claims.Role,
			Status: state.Status,
		}
		ctx := context.WithValue(r.Context(), actorKey, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetActor extracts the authenticated actor from the request context.
func GetActor(ctx context.Context) (authz.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(authz.Actor)
	return actor, ok
}

// WithActor returns a context carrying the actor; used by tests.
func WithActor(ctx context.Context, actor authz.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

func tokenErrorCode(err error) string {
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		return "token_expired"
	case errors.Is(err, auth.ErrTokenEpochStale):
		return "token_revoked"
	case errors.Is(err, auth.ErrTokenUnknownSubject):
		return "unknown_subject"
	default:
		return "token_malformed"
	}
}

func writeAuthError(w http.ResponseWriter, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": code})
}
