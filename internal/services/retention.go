package services

import (
	"context"
	"math/rand"
	"time"

	"github.com/careportal/access-core/internal/metrics"
	"github.com/careportal/access-core/internal/models"
	"github.com/rs/zerolog/log"
)

// RetentionScheduler sweeps rows that have aged past their retention
// windows. It runs off the request path on a fixed interval, deletes in
// bounded batches so no lock is held long, and finally promotes
// restricted accounts to full erasure once their last retained row has
// aged out.
type RetentionScheduler struct {
	accounts  AccountStore
	clinical  ClinicalStore
	audit     *AuditService
	policies  []models.RetentionPolicy
	interval  time.Duration
	batchSize int
	now       func() time.Time
}

// NewRetentionScheduler creates a retention scheduler
func NewRetentionScheduler(accounts AccountStore, clinical ClinicalStore, audit *AuditService, policies []models.RetentionPolicy, interval time.Duration, batchSize int) *RetentionScheduler {
	return &RetentionScheduler{
		accounts:  accounts,
		clinical:  clinical,
		audit:     audit,
		policies:  policies,
		interval:  interval,
		batchSize: batchSize,
		now:       time.Now,
	}
}

// Run sweeps once immediately, then on every tick until ctx is cancelled.
func (s *RetentionScheduler) Run(ctx context.Context) {
	log.Info().Dur("interval", s.interval).Msg("Retention scheduler started")

	s.Sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep(ctx)
		case <-ctx.Done():
			log.Info().Msg("Retention scheduler stopped")
			return
		}
	}
}

// Sweep runs one pass over every policy. Policies are evaluated
// independently: audit and domain windows never gate each other, and a
// failed batch aborts only its own transaction.
func (s *RetentionScheduler) Sweep(ctx context.Context) {
	now := s.now().UTC()

	for _, policy := range s.policies {
		cutoff := now.Add(-policy.Window)
		purged, err := s.purgeTable(ctx, policy.Table, cutoff)
		if err != nil {
			log.Error().Err(err).Str("table", policy.Table).Msg("Retention purge failed")
			continue
		}
		if purged > 0 {
			metrics.RetentionPurged.WithLabelValues(policy.Table).Add(float64(purged))
			log.Info().
				Str("table", policy.Table).
				Int64("rows", purged).
				Time("cutoff", cutoff).
				Msg("Retention purge completed")
			s.audit.Record(ctx, &models.AuditEvent{
				Kind:         models.AuditRetentionSweep,
				Outcome:      models.OutcomeSuccess,
				ResourceType: policy.Table,
				Detail:       policy.LegalBasis,
			})
		}
	}

	s.promoteRestricted(ctx, now)
}

// purgeTable deletes aged rows for one policy in bounded batches.
func (s *RetentionScheduler) purgeTable(ctx context.Context, table string, cutoff time.Time) (int64, error) {
	var total int64
	for {
		var purged int64
		err := withRetry(ctx, func() error {
			var batchErr error
			switch table {
			case "audit_events":
				purged, batchErr = s.audit.audit.PurgeBefore(ctx, cutoff, s.batchSize)
			case "medical_notes":
				purged, batchErr = s.clinical.PurgeNotesBefore(ctx, cutoff, s.batchSize)
			case "appointments":
				purged, batchErr = s.clinical.PurgeAppointmentsBefore(ctx, cutoff, s.batchSize)
			}
			return batchErr
		})
		if err != nil {
			return total, err
		}
		total += purged
		if purged < int64(s.batchSize) {
			return total, nil
		}
	}
}

// promoteRestricted re-runs the erase arbitration for accounts parked in
// restricted state. When the sweep has removed the last row that forced
// the restriction, the pending erasure finally completes.
func (s *RetentionScheduler) promoteRestricted(ctx context.Context, now time.Time) {
	noteCutoff := now
	apptCutoff := now
	if p, ok := models.PolicyFor(s.policies, "medical_notes"); ok {
		noteCutoff = now.Add(-p.Window)
	}
	if p, ok := models.PolicyFor(s.policies, "appointments"); ok {
		apptCutoff = now.Add(-p.Window)
	}

	restricted, err := s.accounts.ListRestricted(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list restricted accounts")
		return
	}

	for _, account := range restricted {
		retained, err := s.clinical.CountRetained(ctx, account.ID, account.Role, noteCutoff, apptCutoff)
		if err != nil {
			log.Error().Err(err).Str("account_id", account.ID.String()).Msg("Failed to count retained rows")
			continue
		}
		if retained > 0 {
			continue
		}

		outcome, err := s.accounts.EraseOrRestrict(ctx, account.ID, noteCutoff, apptCutoff)
		if err != nil {
			log.Error().Err(err).Str("account_id", account.ID.String()).Msg("Failed to promote restricted account")
			continue
		}
		if outcome.Erased {
			s.audit.Record(ctx, &models.AuditEvent{
				ActorID: actorRef(account.ID),
				Kind:    models.AuditGDPRErase,
				Outcome: models.OutcomeSuccess,
				Detail:  "restriction lifted by retention sweep, account erased",
			})
		}
	}
}

// withRetry retries a transient storage failure with bounded, jittered
// backoff. The sweep is a background process; a read hiccup should not
// abandon the pass.
func withRetry(ctx context.Context, fn func() error) error {
	const attempts = 3
	backoff := 200 * time.Millisecond

	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff + time.Duration(rand.Int63n(int64(backoff)))):
		}
		backoff *= 2
	}
	return err
}
