package domain

import (
	"strings"
	"time"
)

// Event is the aggregate for hosted gatherings. Participants is an ordered
// list of user identifiers; the host is always one of them. Version backs
// conditional updates in the repository layer.
type Event struct {
	ID           string
	ImgURL       string
	Title        string
	Description  string
	Date         int64
	Host         string
	Participants []string
	Version      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasParticipant reports whether id is on the roster. Identifiers are
// compared by their canonical string form.
func (e *Event) HasParticipant(id string) bool {
	for _, p := range e.Participants {
		if CanonicalID(p) == CanonicalID(id) {
			return true
		}
	}
	return false
}

// IsHost reports whether id identifies the event host.
func (e *Event) IsHost(id string) bool {
	return CanonicalID(e.Host) == CanonicalID(id)
}

// CanonicalID normalizes a user identifier for comparison.
func CanonicalID(id string) string {
	return strings.TrimSpace(id)
}
