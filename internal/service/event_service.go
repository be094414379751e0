package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/event-service/internal/domain"
	"github.com/spec-kit/event-service/internal/events"
	"github.com/spec-kit/event-service/internal/observability"
	"github.com/spec-kit/event-service/internal/repository"
	apperrors "github.com/spec-kit/event-service/pkg/util"
)

// EventService orchestrates event lifecycle: create, read (with roster
// reconciliation), patch, roster mutation and delete.
type EventService struct {
	events     repository.EventRepository
	audit      repository.AuditRepository
	reconciler *RosterReconciler
	access     *AccessController
	roster     *RosterMutator
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// EventDependencies bundles collaborators for the event service.
type EventDependencies struct {
	EventRepo  repository.EventRepository
	UserRepo   repository.UserRepository
	AuditRepo  repository.AuditRepository
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// EventCreateInput describes event creation payload.
type EventCreateInput struct {
	ImgURL      string
	Title       string
	Description string
	Date        int64
}

// EventProjection is the read shape: the stored record plus its roster
// enriched with display names.
type EventProjection struct {
	Event  *domain.Event
	Roster []EnrichedParticipant
}

// NewEventService constructs the service and its core collaborators.
func NewEventService(deps EventDependencies) *EventService {
	return &EventService{
		events:     deps.EventRepo,
		audit:      deps.AuditRepo,
		reconciler: NewRosterReconciler(deps.UserRepo, deps.EventRepo, deps.AuditRepo, deps.Dispatcher, deps.Metrics, deps.Logger),
		access:     NewAccessController(),
		roster:     NewRosterMutator(deps.EventRepo, deps.AuditRepo, deps.Dispatcher, deps.Logger),
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// Create persists a new event hosted by the caller. The caller is the sole
// initial participant.
func (s *EventService) Create(ctx context.Context, callerID string, input EventCreateInput) (*domain.Event, error) {
	if domain.CanonicalID(callerID) == "" {
		return nil, apperrors.NewUnauthorized("caller identity required")
	}
	if err := validateEventFields(input.ImgURL, input.Title, input.Description, input.Date); err != nil {
		return nil, err
	}

	host := domain.CanonicalID(callerID)
	event := &domain.Event{
		ImgURL:       input.ImgURL,
		Title:        input.Title,
		Description:  input.Description,
		Date:         input.Date,
		Host:         host,
		Participants: []string{host},
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, &host, event.ID, repository.AuditChangeCreated, nil, map[string]any{
		"title": event.Title,
		"host":  event.Host,
	})
	s.publish(ctx, events.EventCreated, event.ID, host, events.CreatedPayload{
		Title: event.Title,
		Host:  event.Host,
		Date:  event.Date,
	})
	return event, nil
}

// Get fetches a single event by id and returns its reconciled projection.
func (s *EventService) Get(ctx context.Context, id string) (*EventProjection, error) {
	event, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	roster, err := s.reconciler.Reconcile(ctx, event)
	if err != nil {
		return nil, err
	}
	return &EventProjection{Event: event, Roster: roster}, nil
}

// List returns all events, optionally restricted to those whose stored
// roster (pre-reconciliation) includes participantID. Each record is
// reconciled before projection.
func (s *EventService) List(ctx context.Context, participantID string) ([]EventProjection, error) {
	var (
		records []domain.Event
		err     error
	)
	if participantID != "" {
		records, err = s.events.ListByParticipant(ctx, domain.CanonicalID(participantID))
	} else {
		records, err = s.events.List(ctx)
	}
	if err != nil {
		return nil, err
	}

	projections := make([]EventProjection, 0, len(records))
	for i := range records {
		roster, err := s.reconciler.Reconcile(ctx, &records[i])
		if err != nil {
			return nil, err
		}
		projections = append(projections, EventProjection{Event: &records[i], Roster: roster})
	}
	return projections, nil
}

// Patch applies the fields present in the patch to the event. Host only.
// Absent fields are left untouched; present fields are re-validated against
// the same bounds as creation.
func (s *EventService) Patch(ctx context.Context, callerID, id string, patch repository.EventPatch) (*domain.Event, error) {
	if err := validateEventPatch(patch); err != nil {
		return nil, err
	}

	current, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	for attempt := 0; attempt < rosterWriteAttempts; attempt++ {
		if err := s.access.AuthorizeHostAction(current, callerID); err != nil {
			return nil, err
		}

		updated, err := s.events.UpdateFields(ctx, current.ID, current.Version, patch)
		if err == nil {
			s.recordAudit(ctx, &callerID, updated.ID, repository.AuditChangeFieldsUpdated, nil, map[string]any{
				"fields": patchedFields(patch),
			})
			s.publish(ctx, events.EventUpdated, updated.ID, callerID, events.UpdatedPayload{Fields: patchedFields(patch)})
			return updated, nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("event", map[string]any{"id": id})
			}
			return nil, err
		}
		if current, err = s.fetch(ctx, id); err != nil {
			return nil, err
		}
	}
	return nil, apperrors.NewConflict("concurrent event update, retry", nil)
}

// Delete removes the event permanently. Host only, irreversible.
func (s *EventService) Delete(ctx context.Context, callerID, id string) error {
	event, err := s.fetch(ctx, id)
	if err != nil {
		return err
	}
	if err := s.access.AuthorizeHostAction(event, callerID); err != nil {
		return err
	}
	if err := s.events.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("event", map[string]any{"id": id})
		}
		return err
	}

	s.recordAudit(ctx, &callerID, id, repository.AuditChangeDeleted, map[string]any{"title": event.Title}, nil)
	s.publish(ctx, events.EventDeleted, id, callerID, events.DeletedPayload{Title: event.Title})
	return nil
}

// MutateRoster processes exactly one of an add or a remove against the
// event's participant set.
func (s *EventService) MutateRoster(ctx context.Context, callerID, id, addID, removeID string) (*domain.Event, error) {
	addID = domain.CanonicalID(addID)
	removeID = domain.CanonicalID(removeID)
	if (addID == "") == (removeID == "") {
		return nil, apperrors.NewValidationError("exactly one of addid or removeid is required", nil)
	}

	event, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if addID != "" {
		return s.roster.AddParticipant(ctx, callerID, event, addID)
	}
	return s.roster.RemoveParticipant(ctx, callerID, event, removeID)
}

// AuditTrail returns the recorded change history of an event, newest first.
// Host only; the trail exposes actor identifiers and raw change payloads.
func (s *EventService) AuditTrail(ctx context.Context, callerID, id string, limit, offset int) ([]repository.EventAudit, error) {
	event, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.access.AuthorizeHostAction(event, callerID); err != nil {
		return nil, err
	}
	if s.audit == nil {
		return []repository.EventAudit{}, nil
	}
	return s.audit.ListByEvent(ctx, event.ID, limit, offset)
}

func (s *EventService) fetch(ctx context.Context, id string) (*domain.Event, error) {
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("event", map[string]any{"id": id})
		}
		return nil, err
	}
	return event, nil
}

func (s *EventService) recordAudit(ctx context.Context, actorID *string, eventID string, change repository.AuditChangeType, oldValue, newValue map[string]any) {
	if s.audit == nil {
		return
	}
	entry := &repository.EventAudit{
		EventID:    eventID,
		ActorID:    actorID,
		ChangeType: change,
		OldValue:   oldValue,
		NewValue:   newValue,
	}
	if err := s.audit.Create(ctx, entry); err != nil {
		s.logger.Warn("audit write failed", zap.String("event_id", eventID), zap.Error(err))
	}
}

func (s *EventService) publish(ctx context.Context, eventType events.EventType, eventID, actorID string, payload any) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		Type:      eventType,
		EventID:   eventID,
		ActorID:   actorID,
		Timestamp: time.Now(),
		Payload:   payload,
	})
}

const (
	titleMinLen       = 3
	titleMaxLen       = 50
	descriptionMinLen = 3
	descriptionMaxLen = 255
)

func validateEventFields(imgURL, title, description string, date int64) error {
	details := map[string]any{}
	if imgURL == "" {
		details["imgUrl"] = "an image url is required"
	}
	if err := boundedField(title, titleMinLen, titleMaxLen); err != "" {
		details["title"] = err
	}
	if err := boundedField(description, descriptionMinLen, descriptionMaxLen); err != "" {
		details["description"] = err
	}
	if date <= 0 {
		details["date"] = "date must be a positive integer timestamp"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid event fields", details)
	}
	return nil
}

func validateEventPatch(patch repository.EventPatch) error {
	details := map[string]any{}
	if patch.ImgURL != nil && *patch.ImgURL == "" {
		details["imgUrl"] = "an image url is required"
	}
	if patch.Title != nil {
		if err := boundedField(*patch.Title, titleMinLen, titleMaxLen); err != "" {
			details["title"] = err
		}
	}
	if patch.Description != nil {
		if err := boundedField(*patch.Description, descriptionMinLen, descriptionMaxLen); err != "" {
			details["description"] = err
		}
	}
	if patch.Date != nil && *patch.Date <= 0 {
		details["date"] = "date must be a positive integer timestamp"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid event fields", details)
	}
	return nil
}

func boundedField(value string, min, max int) string {
	runes := len([]rune(value))
	switch {
	case runes < min:
		return fmt.Sprintf("must be at least %d characters long", min)
	case runes > max:
		return fmt.Sprintf("must not exceed %d characters", max)
	default:
		return ""
	}
}

func patchedFields(patch repository.EventPatch) []string {
	fields := []string{}
	if patch.ImgURL != nil {
		fields = append(fields, "imgUrl")
	}
	if patch.Title != nil {
		fields = append(fields, "title")
	}
	if patch.Description != nil {
		fields = append(fields, "description")
	}
	if patch.Date != nil {
		fields = append(fields, "date")
	}
	return fields
}
