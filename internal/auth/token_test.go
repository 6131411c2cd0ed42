package auth

import (
	"context"
	"testing"
	"time"

	"github.com/careportal/access-core/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubStateSource serves account state from a map.
type stubStateSource struct {
	states map[uuid.UUID]AccountState
}

func (s *stubStateSource) AccountState(ctx context.Context, id uuid.UUID) (AccountState, error) {
	state, ok := s.states[id]
	if !ok {
		return AccountState{}, ErrAccountNotFound
	}
	return state, nil
}

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func TestTokenRoundTrip(t *testing.T) {
	accountID := uuid.New()
	source := &stubStateSource{states: map[uuid.UUID]AccountState{
		accountID: {Epoch: 0, Status: models.StatusActive},
	}}
	svc := NewTokenService(testSecret, 30*time.Minute, source)

	token, err := svc.Issue(accountID, models.RolePatient, 0)
	require.NoError(t, err)

	claims, state, err := svc.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, accountID, claims.AccountID)
	assert.Equal(t, models.RolePatient, claims.Role)
	assert.Equal(t, int64(0), claims.Epoch)
	assert.Equal(t, models.StatusActive, state.Status)
}

func TestTokenExpired(t *testing.T) {
	accountID := uuid.New()
	source := &stubStateSource{states: map[uuid.UUID]AccountState{
		accountID: {Epoch: 0, Status: models.StatusActive},
	}}
	svc := NewTokenService(testSecret, 30*time.Minute, source)

	issued := time.Now()
	svc.now = func() time.Time { return issued }
	token, err := svc.Issue(accountID, models.RolePatient, 0)
	require.NoError(t, err)

	svc.now = func() time.Time { return issued.Add(31 * time.Minute) }
	_, _, err = svc.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenMalformed(t *testing.T) {
	svc := NewTokenService(testSecret, 30*time.Minute, &stubStateSource{})

	_, _, err := svc.Verify(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

func TestTokenWrongKeyRejected(t *testing.T) {
	accountID := uuid.New()
	source := &stubStateSource{states: map[uuid.UUID]AccountState{
		accountID: {Epoch: 0, Status: models.StatusActive},
	}}
	issuer := NewTokenService([]byte("another-secret-another-secret-32"), 30*time.Minute, source)
	verifier := NewTokenService(testSecret, 30*time.Minute, source)

	token, err := issuer.Issue(accountID, models.RolePatient, 0)
	require.NoError(t, err)

	_, _, err = verifier.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

func TestTokenEpochStaleAfterRevocation(t *testing.T) {
	accountID := uuid.New()
	source := &stubStateSource{states: map[uuid.UUID]AccountState{
		accountID: {Epoch: 0, Status: models.StatusActive},
	}}
	svc := NewTokenService(testSecret, 30*time.Minute, source)

	token, err := svc.Issue(accountID, models.RoleClinician, 0)
	require.NoError(t, err)

	// Epoch bump (logout) strands every previously issued token.
	source.states[accountID] = AccountState{Epoch: 1, Status: models.StatusActive}

	_, _, err = svc.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrTokenEpochStale)

	// A token carrying the new epoch verifies again.
	token, err = svc.Issue(accountID, models.RoleClinician, 1)
	require.NoError(t, err)
	_, _, err = svc.Verify(context.Background(), token)
	assert.NoError(t, err)
}

func TestTokenUnknownSubject(t *testing.T) {
	accountID := uuid.New()
	source := &stubStateSource{states: map[uuid.UUID]AccountState{
		accountID: {Epoch: 0, Status: models.StatusActive},
	}}
	svc := NewTokenService(testSecret, 30*time.Minute, source)

	token, err := svc.Issue(accountID, models.RolePatient, 0)
	require.NoError(t, err)

	// Erased subject: the token still parses but the subject is gone.
	source.states[accountID] = AccountState{Epoch: 1, Status: models.StatusErased}
	_, _, err = svc.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrTokenUnknownSubject)

	// Deleted subject behaves the same.
	delete(source.states, accountID)
	_, _, err = svc.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrTokenUnknownSubject)
}
