package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/event-service/internal/api/dto"
	"github.com/spec-kit/event-service/internal/auth"
	"github.com/spec-kit/event-service/internal/domain"
	"github.com/spec-kit/event-service/internal/repository"
	"github.com/spec-kit/event-service/internal/service"
	apperrors "github.com/spec-kit/event-service/pkg/util"
)

// EventsHandler manages the event endpoints.
type EventsHandler struct {
	service *service.EventService
}

// NewEventsHandler constructs handler.
func NewEventsHandler(eventService *service.EventService) *EventsHandler {
	return &EventsHandler{service: eventService}
}

// GetEvents handles GET /events?id=&userid=. With an id, a single enriched
// event; without, all events, optionally filtered by participant. When both
// are supplied, id wins and the participant filter is ignored.
func (h *EventsHandler) GetEvents(c *fiber.Ctx) error {
	if id := c.Query("id"); id != "" {
		projection, err := h.service.Get(c.Context(), id)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"data": eventResponse(projection)})
	}

	projections, err := h.service.List(c.Context(), c.Query("userid"))
	if err != nil {
		return err
	}
	items := make([]dto.EventResponse, 0, len(projections))
	for i := range projections {
		items = append(items, eventResponse(&projections[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateEvent handles POST /events.
func (h *EventsHandler) CreateEvent(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.CreateEventRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	event, err := h.service.Create(c.Context(), principal.User.ID, service.EventCreateInput{
		ImgURL:      req.ImgURL,
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": createdEventResponse(event)})
}

// UpdateEvent handles PUT /events?id=. Host only; applies only the fields
// present in the payload.
func (h *EventsHandler) UpdateEvent(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	id := c.Query("id")
	if id == "" {
		return apperrors.NewValidationError("id query parameter is required", nil)
	}
	var req dto.UpdateEventRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	event, err := h.service.Patch(c.Context(), principal.User.ID, id, repository.EventPatch{
		ImgURL:      req.ImgURL,
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": createdEventResponse(event)})
}

// UpdateParticipants handles PUT /events/participants?id= with an addid or
// removeid in the body.
func (h *EventsHandler) UpdateParticipants(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	id := c.Query("id")
	if id == "" {
		return apperrors.NewValidationError("id query parameter is required", nil)
	}
	var req dto.RosterUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	event, err := h.service.MutateRoster(c.Context(), principal.User.ID, id, req.AddID, req.RemoveID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": createdEventResponse(event)})
}

// GetEventAudit handles GET /events/audit?id=. Host only.
func (h *EventsHandler) GetEventAudit(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	id := c.Query("id")
	if id == "" {
		return apperrors.NewValidationError("id query parameter is required", nil)
	}

	entries, err := h.service.AuditTrail(c.Context(), principal.User.ID, id, c.QueryInt("limit", 50), c.QueryInt("offset", 0))
	if err != nil {
		return err
	}
	items := make([]dto.AuditEntryResponse, 0, len(entries))
	for i := range entries {
		items = append(items, auditEntryResponse(&entries[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// DeleteEvent handles DELETE /events?id=. Host only, irreversible.
func (h *EventsHandler) DeleteEvent(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	id := c.Query("id")
	if id == "" {
		return apperrors.NewValidationError("id query parameter is required", nil)
	}

	if err := h.service.Delete(c.Context(), principal.User.ID, id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"id": id, "deleted": true}})
}

func auditEntryResponse(entry *repository.EventAudit) dto.AuditEntryResponse {
	return dto.AuditEntryResponse{
		ID:         entry.ID,
		EventID:    entry.EventID,
		ActorID:    entry.ActorID,
		ChangeType: string(entry.ChangeType),
		OldValue:   entry.OldValue,
		NewValue:   entry.NewValue,
		CreatedAt:  entry.CreatedAt,
	}
}

func eventResponse(projection *service.EventProjection) dto.EventResponse {
	event := projection.Event
	participants := make([]dto.ParticipantView, 0, len(projection.Roster))
	for _, p := range projection.Roster {
		participants = append(participants, dto.ParticipantView{ID: p.ID, Name: p.Name})
	}
	return dto.EventResponse{
		ID:           event.ID,
		ImgURL:       event.ImgURL,
		Title:        event.Title,
		Description:  event.Description,
		Date:         event.Date,
		Host:         event.Host,
		Participants: participants,
		CreatedAt:    event.CreatedAt,
		UpdatedAt:    event.UpdatedAt,
	}
}

// createdEventResponse projects a bare record without identity enrichment;
// mutation responses return raw participant identifiers.
func createdEventResponse(event *domain.Event) dto.EventResponse {
	participants := make([]dto.ParticipantView, 0, len(event.Participants))
	for _, id := range event.Participants {
		participants = append(participants, dto.ParticipantView{ID: id})
	}
	return dto.EventResponse{
		ID:           event.ID,
		ImgURL:       event.ImgURL,
		Title:        event.Title,
		Description:  event.Description,
		Date:         event.Date,
		Host:         event.Host,
		Participants: participants,
		CreatedAt:    event.CreatedAt,
		UpdatedAt:    event.UpdatedAt,
	}
}
