package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/event-service/internal/domain"
	"github.com/spec-kit/event-service/internal/events"
	"github.com/spec-kit/event-service/internal/observability"
	"github.com/spec-kit/event-service/internal/repository"
)

// IdentityLookup resolves a user identifier to its record. Absence is
// signalled with pgx.ErrNoRows. Satisfied by repository.UserRepository.
type IdentityLookup interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// EnrichedParticipant pairs a participant identifier with the resolved
// display name.
type EnrichedParticipant struct {
	ID   string
	Name string
}

// RosterReconciler validates participant references on every read and prunes
// the ones that no longer resolve. It is a lazy garbage collection of
// dangling references: it runs only as a side effect of reads, and a failed
// persist of the corrected roster never fails the enclosing read.
type RosterReconciler struct {
	identity   IdentityLookup
	events     repository.EventRepository
	audit      repository.AuditRepository
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewRosterReconciler constructs the reconciler.
func NewRosterReconciler(identity IdentityLookup, eventRepo repository.EventRepository, audit repository.AuditRepository, dispatcher events.Dispatcher, metrics *observability.Metrics, logger *zap.Logger) *RosterReconciler {
	return &RosterReconciler{
		identity:   identity,
		events:     eventRepo,
		audit:      audit,
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger,
	}
}

// Reconcile resolves each participant of the event in roster order and
// returns the enriched projection. Identifiers that no longer resolve are
// dropped from the record and the corrected roster is persisted before
// returning. The host identifier is never dropped, even when the host user
// itself no longer resolves; it is then projected with an empty name.
// Reconciling an already-clean event is a no-op.
func (r *RosterReconciler) Reconcile(ctx context.Context, event *domain.Event) ([]EnrichedParticipant, error) {
	kept := make([]string, 0, len(event.Participants))
	enriched := make([]EnrichedParticipant, 0, len(event.Participants))
	var pruned []string

	for _, id := range event.Participants {
		user, err := r.identity.GetByID(ctx, id)
		switch {
		case err == nil:
			kept = append(kept, id)
			enriched = append(enriched, EnrichedParticipant{ID: user.ID, Name: user.Name})
		case errors.Is(err, pgx.ErrNoRows):
			if event.IsHost(id) {
				// The host reference stays on the record; without it the
				// host invariant could not be re-established.
				kept = append(kept, id)
				enriched = append(enriched, EnrichedParticipant{ID: id})
				continue
			}
			pruned = append(pruned, id)
		default:
			return nil, err
		}
	}

	if len(pruned) == 0 {
		return enriched, nil
	}

	r.persistPrune(ctx, event, kept, pruned)
	return enriched, nil
}

// persistPrune writes the corrected roster back. Best effort: a version
// conflict or storage failure is logged and the read still succeeds.
func (r *RosterReconciler) persistPrune(ctx context.Context, event *domain.Event, kept, pruned []string) {
	updated, err := r.events.ReplaceParticipants(ctx, event.ID, event.Version, kept)
	if err != nil {
		r.logger.Warn("roster prune not persisted",
			zap.String("event_id", event.ID),
			zap.Strings("pruned", pruned),
			zap.Error(err))
		return
	}
	*event = *updated

	r.metrics.RecordRosterPrune(len(pruned))
	r.logger.Info("pruned dangling participants",
		zap.String("event_id", event.ID),
		zap.Strings("pruned", pruned))

	if r.audit != nil {
		entry := &repository.EventAudit{
			EventID:    event.ID,
			ChangeType: repository.AuditChangeRosterPruned,
			OldValue:   map[string]any{"removed": pruned},
			NewValue:   map[string]any{"participants": kept},
		}
		if err := r.audit.Create(ctx, entry); err != nil {
			r.logger.Warn("audit write failed", zap.String("event_id", event.ID), zap.Error(err))
		}
	}
	if r.dispatcher != nil {
		_ = r.dispatcher.Publish(ctx, events.Event{
			Type:      events.EventRosterPruned,
			EventID:   event.ID,
			Timestamp: time.Now(),
			Payload:   events.RosterPrunedPayload{Removed: pruned},
		})
	}
}
