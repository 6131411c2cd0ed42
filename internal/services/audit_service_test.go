package services

import (
	"context"
	"errors"
	"testing"

	"github.com/careportal/access-core/internal/authz"
	"github.com/careportal/access-core/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditQueryIsPinnedToTheCaller(t *testing.T) {
	store := &MockAuditStore{}
	svc := NewAuditService(store)
	ctx := context.Background()

	self := uuid.New()
	other := uuid.New()
	store.Events = []models.AuditEvent{
		{ActorID: &self, Kind: models.AuditLogin, Outcome: models.OutcomeSuccess},
		{ActorID: &other, Kind: models.AuditLogin, Outcome: models.OutcomeSuccess},
	}

	actor := authz.Actor{ID: self, Role: models.RolePatient, Status: models.StatusActive}

	// Even a filter naming someone else is pinned back to the caller.
	events, err := svc.Query(ctx, actor, models.AuditFilter{ActorID: &other})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, self, *events[0].ActorID)
}

func TestAuditQueryDeniedForRestrictedActor(t *testing.T) {
	store := &MockAuditStore{}
	svc := NewAuditService(store)

	actor := authz.Actor{ID: uuid.New(), Role: models.RolePatient, Status: models.StatusRestricted}
	_, err := svc.Query(context.Background(), actor, models.AuditFilter{})

	var denied *DeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, 1, store.Counted(models.AuditAuthzDenied, models.OutcomeDenied))
}

func TestRecordSurvivesStorageFailure(t *testing.T) {
	store := &MockAuditStore{
		CreateFunc: func(ctx context.Context, event *models.AuditEvent) error {
			return errors.New("audit store down")
		},
	}
	svc := NewAuditService(store)

	// Record must not panic or propagate; the failure is logged.
	svc.Record(context.Background(), &models.AuditEvent{
		Kind:    models.AuditLogin,
		Outcome: models.OutcomeSuccess,
	})
}
