package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/event-service/internal/domain"
	"github.com/spec-kit/event-service/internal/events"
	"github.com/spec-kit/event-service/internal/repository"
	apperrors "github.com/spec-kit/event-service/pkg/util"
)

// rosterWriteAttempts bounds the optimistic-concurrency retry loop.
const rosterWriteAttempts = 3

// RosterMutator applies add/remove operations to an event's participant set
// under the host-protection and no-duplicate invariants. Writes are
// conditional on the version read; a conflicting write is retried against
// the refreshed record with all checks re-evaluated.
type RosterMutator struct {
	events     repository.EventRepository
	audit      repository.AuditRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewRosterMutator constructs the mutator.
func NewRosterMutator(eventRepo repository.EventRepository, audit repository.AuditRepository, dispatcher events.Dispatcher, logger *zap.Logger) *RosterMutator {
	return &RosterMutator{events: eventRepo, audit: audit, dispatcher: dispatcher, logger: logger}
}

// AddParticipant appends targetID to the roster. Fails with Conflict when
// the identifier is already present.
func (m *RosterMutator) AddParticipant(ctx context.Context, actorID string, event *domain.Event, targetID string) (*domain.Event, error) {
	current := event
	for attempt := 0; attempt < rosterWriteAttempts; attempt++ {
		if current.HasParticipant(targetID) {
			return nil, apperrors.NewRosterConflict("already a participant", map[string]any{"user_id": targetID})
		}
		roster := append(append([]string{}, current.Participants...), targetID)

		updated, err := m.events.ReplaceParticipants(ctx, current.ID, current.Version, roster)
		if err == nil {
			m.record(ctx, actorID, updated, repository.AuditChangeParticipantAdded, events.EventParticipantAdded, targetID)
			return updated, nil
		}
		current, err = m.refetch(ctx, current.ID, err)
		if err != nil {
			return nil, err
		}
	}
	return nil, apperrors.NewConflict("concurrent roster update, retry", nil)
}

// RemoveParticipant drops targetID from the roster, preserving the order of
// the remaining entries. The host can never be removed, regardless of who
// is asking; removing an absent identifier fails with Conflict.
func (m *RosterMutator) RemoveParticipant(ctx context.Context, actorID string, event *domain.Event, targetID string) (*domain.Event, error) {
	current := event
	for attempt := 0; attempt < rosterWriteAttempts; attempt++ {
		if current.IsHost(targetID) {
			return nil, apperrors.NewForbidden("cannot remove the host")
		}
		if !current.HasParticipant(targetID) {
			return nil, apperrors.NewRosterConflict("not a participant", map[string]any{"user_id": targetID})
		}
		roster := make([]string, 0, len(current.Participants)-1)
		for _, id := range current.Participants {
			if domain.CanonicalID(id) == domain.CanonicalID(targetID) {
				continue
			}
			roster = append(roster, id)
		}

		updated, err := m.events.ReplaceParticipants(ctx, current.ID, current.Version, roster)
		if err == nil {
			m.record(ctx, actorID, updated, repository.AuditChangeParticipantLeft, events.EventParticipantRemoved, targetID)
			return updated, nil
		}
		current, err = m.refetch(ctx, current.ID, err)
		if err != nil {
			return nil, err
		}
	}
	return nil, apperrors.NewConflict("concurrent roster update, retry", nil)
}

// refetch reloads the event after a version conflict; any other error is
// passed through.
func (m *RosterMutator) refetch(ctx context.Context, id string, cause error) (*domain.Event, error) {
	if !errors.Is(cause, repository.ErrVersionConflict) {
		return nil, cause
	}
	m.logger.Debug("roster write conflicted, retrying", zap.String("event_id", id))
	fresh, err := m.events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("event", map[string]any{"id": id})
		}
		return nil, err
	}
	return fresh, nil
}

func (m *RosterMutator) record(ctx context.Context, actorID string, event *domain.Event, change repository.AuditChangeType, eventType events.EventType, targetID string) {
	if m.audit != nil {
		entry := &repository.EventAudit{
			EventID:    event.ID,
			ActorID:    &actorID,
			ChangeType: change,
			NewValue:   map[string]any{"user_id": targetID, "participants": event.Participants},
		}
		if err := m.audit.Create(ctx, entry); err != nil {
			m.logger.Warn("audit write failed", zap.String("event_id", event.ID), zap.Error(err))
		}
	}
	if m.dispatcher != nil {
		_ = m.dispatcher.Publish(ctx, events.Event{
			Type:      eventType,
			EventID:   event.ID,
			ActorID:   actorID,
			Timestamp: time.Now(),
			Payload:   events.ParticipantPayload{UserID: targetID},
		})
	}
}
