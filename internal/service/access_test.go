package service

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/event-service/internal/domain"
)

func TestAuthorizeHostAction(t *testing.T) {
	access := NewAccessController()
	event := &domain.Event{Host: "u1", Participants: []string{"u1", "u2"}}

	tests := []struct {
		name     string
		callerID string
		allowed  bool
	}{
		{"host allowed", "u1", true},
		{"host with whitespace representation", " u1 ", true},
		{"participant denied", "u2", false},
		{"stranger denied", "u9", false},
		{"empty caller denied", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := access.AuthorizeHostAction(event, tc.callerID)
			if tc.allowed {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, http.StatusForbidden, domainErr(t, err).HTTPStatus)
		})
	}
}
