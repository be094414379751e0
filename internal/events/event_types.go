package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventCreated            EventType = "event_created"
	EventUpdated            EventType = "event_updated"
	EventDeleted            EventType = "event_deleted"
	EventParticipantAdded   EventType = "participant_added"
	EventParticipantRemoved EventType = "participant_removed"
	EventRosterPruned       EventType = "roster_pruned"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	EventID   string      `json:"event_id"`
	ActorID   string      `json:"actor_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// CreatedPayload payload.
type CreatedPayload struct {
	Title string `json:"title"`
	Host  string `json:"host"`
	Date  int64  `json:"date"`
}

// UpdatedPayload payload.
type UpdatedPayload struct {
	Fields []string `json:"fields"`
}

// DeletedPayload payload.
type DeletedPayload struct {
	Title string `json:"title"`
}

// ParticipantPayload payload for add/remove.
type ParticipantPayload struct {
	UserID string `json:"user_id"`
}

// RosterPrunedPayload payload.
type RosterPrunedPayload struct {
	Removed []string `json:"removed"`
}
