package service

import (
	"github.com/spec-kit/event-service/internal/domain"
	apperrors "github.com/spec-kit/event-service/pkg/util"
)

// AccessController evaluates host-only authorization for mutating and
// destructive event operations. Existence checks are the caller's job and
// must happen before authorization.
type AccessController struct{}

// NewAccessController constructs the controller.
func NewAccessController() *AccessController {
	return &AccessController{}
}

// AuthorizeHostAction allows the action iff callerID identifies the event
// host. Identifiers are compared by canonical string form.
func (a *AccessController) AuthorizeHostAction(event *domain.Event, callerID string) error {
	if event.IsHost(callerID) {
		return nil
	}
	return apperrors.NewForbidden("only the event host may perform this action")
}
