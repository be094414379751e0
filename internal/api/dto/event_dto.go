package dto

import "time"

// CreateEventRequest payload.
type CreateEventRequest struct {
	ImgURL      string `json:"imgUrl"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        int64  `json:"date"`
}

// UpdateEventRequest payload. Pointer fields so that field presence is
// decided by the JSON keys in the request, not by zero values.
type UpdateEventRequest struct {
	ImgURL      *string `json:"imgUrl"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Date        *int64  `json:"date"`
}

// RosterUpdateRequest payload for PUT /events/participants.
type RosterUpdateRequest struct {
	AddID    string `json:"addid"`
	RemoveID string `json:"removeid"`
}

// ParticipantView pairs a participant id with its resolved display name.
type ParticipantView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AuditEntryResponse is one recorded change of an event.
type AuditEntryResponse struct {
	ID         string         `json:"id"`
	EventID    string         `json:"event_id"`
	ActorID    *string        `json:"actor_id,omitempty"`
	ChangeType string         `json:"change_type"`
	OldValue   map[string]any `json:"old_value,omitempty"`
	NewValue   map[string]any `json:"new_value,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// EventResponse is the enriched event projection returned by reads.
type EventResponse struct {
	ID           string            `json:"id"`
	ImgURL       string            `json:"imgUrl"`
	Title        string            `json:"title"`
	Description  string            `json:"description"`
	Date         int64             `json:"date"`
	Host         string            `json:"host"`
	Participants []ParticipantView `json:"participants"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}
