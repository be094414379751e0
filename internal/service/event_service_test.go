package service

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/event-service/internal/domain"
	"github.com/spec-kit/event-service/internal/events"
	"github.com/spec-kit/event-service/internal/observability"
	"github.com/spec-kit/event-service/internal/repository"
	apperrors "github.com/spec-kit/event-service/pkg/util"
)

func testUser(id, name string) *domain.User {
	return &domain.User{ID: id, Name: name, Email: name + "@example.com", Role: domain.UserRoleStandard}
}

func newTestEnv(t *testing.T, users ...*domain.User) (*EventService, *fakeEventRepo, *fakeUserRepo, *fakeAuditRepo) {
	t.Helper()
	eventRepo := newFakeEventRepo()
	userRepo := newFakeUserRepo(users...)
	audit := &fakeAuditRepo{}
	svc := NewEventService(EventDependencies{
		EventRepo:  eventRepo,
		UserRepo:   userRepo,
		AuditRepo:  audit,
		Dispatcher: events.NewInMemoryDispatcher(),
		Metrics:    observability.NewMetrics(),
		Logger:     zap.NewNop(),
	})
	return svc, eventRepo, userRepo, audit
}

func validInput() EventCreateInput {
	return EventCreateInput{
		ImgURL:      "https://example.com/party.png",
		Title:       "Garden party",
		Description: "Bring your own chair",
		Date:        1767225600,
	}
}

func domainErr(t *testing.T, err error) *apperrors.DomainError {
	t.Helper()
	require.Error(t, err)
	return apperrors.ToDomainError(err)
}

func TestCreateSetsHostAsSoleParticipant(t *testing.T) {
	svc, repo, _, audit := newTestEnv(t, testUser("u1", "Ada"))

	event, err := svc.Create(context.Background(), "u1", validInput())
	require.NoError(t, err)

	assert.Equal(t, "u1", event.Host)
	assert.Equal(t, []string{"u1"}, event.Participants)
	assert.True(t, event.HasParticipant(event.Host))
	assert.NotEmpty(t, event.ID)

	stored := repo.stored(event.ID)
	require.NotNil(t, stored)
	assert.Equal(t, []string{"u1"}, stored.Participants)
	assert.Contains(t, audit.changeTypes(), repository.AuditChangeCreated)
}

func TestCreateRejectsInvalidFields(t *testing.T) {
	svc, _, _, _ := newTestEnv(t, testUser("u1", "Ada"))

	tests := []struct {
		name   string
		mutate func(*EventCreateInput)
	}{
		{"short title", func(in *EventCreateInput) { in.Title = "ab" }},
		{"long title", func(in *EventCreateInput) { in.Title = strings.Repeat("a", 51) }},
		{"short description", func(in *EventCreateInput) { in.Description = "x" }},
		{"missing image", func(in *EventCreateInput) { in.ImgURL = "" }},
		{"zero date", func(in *EventCreateInput) { in.Date = 0 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			input := validInput()
			tc.mutate(&input)
			_, err := svc.Create(context.Background(), "u1", input)
			assert.Equal(t, http.StatusBadRequest, domainErr(t, err).HTTPStatus)
		})
	}
}

func TestCreateRequiresCallerIdentity(t *testing.T) {
	svc, _, _, _ := newTestEnv(t)
	_, err := svc.Create(context.Background(), "  ", validInput())
	assert.Equal(t, http.StatusUnauthorized, domainErr(t, err).HTTPStatus)
}

func TestGetUnknownEventIsNotFound(t *testing.T) {
	svc, _, _, _ := newTestEnv(t)
	_, err := svc.Get(context.Background(), "missing")
	assert.Equal(t, http.StatusNotFound, domainErr(t, err).HTTPStatus)
}

func TestListFiltersByStoredParticipant(t *testing.T) {
	svc, _, _, _ := newTestEnv(t, testUser("u1", "Ada"), testUser("u2", "Grace"))
	ctx := context.Background()

	first, err := svc.Create(ctx, "u1", validInput())
	require.NoError(t, err)
	_, err = svc.Create(ctx, "u2", validInput())
	require.NoError(t, err)
	_, err = svc.MutateRoster(ctx, "u1", first.ID, "u2", "")
	require.NoError(t, err)

	all, err := svc.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := svc.List(ctx, "u2")
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	hosted, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, hosted, 1)
	assert.Equal(t, first.ID, hosted[0].Event.ID)
}

func TestPatchAppliesOnlyPresentFields(t *testing.T) {
	svc, repo, _, _ := newTestEnv(t, testUser("u1", "Ada"))
	ctx := context.Background()

	event, err := svc.Create(ctx, "u1", validInput())
	require.NoError(t, err)

	title := "Rooftop party"
	updated, err := svc.Patch(ctx, "u1", event.ID, repository.EventPatch{Title: &title})
	require.NoError(t, err)

	assert.Equal(t, "Rooftop party", updated.Title)
	assert.Equal(t, event.Description, updated.Description)
	assert.Equal(t, event.Date, updated.Date)
	assert.Equal(t, "Rooftop party", repo.stored(event.ID).Title)
}

func TestPatchExplicitEmptyFieldIsValidationError(t *testing.T) {
	svc, _, _, _ := newTestEnv(t, testUser("u1", "Ada"))
	ctx := context.Background()

	event, err := svc.Create(ctx, "u1", validInput())
	require.NoError(t, err)

	empty := ""
	_, err = svc.Patch(ctx, "u1", event.ID, repository.EventPatch{Title: &empty})
	assert.Equal(t, http.StatusBadRequest, domainErr(t, err).HTTPStatus)
}

func TestPatchByNonHostIsForbidden(t *testing.T) {
	svc, repo, _, _ := newTestEnv(t, testUser("u1", "Ada"), testUser("u2", "Grace"))
	ctx := context.Background()

	event, err := svc.Create(ctx, "u1", validInput())
	require.NoError(t, err)

	title := "Hijacked"
	_, err = svc.Patch(ctx, "u2", event.ID, repository.EventPatch{Title: &title})
	assert.Equal(t, http.StatusForbidden, domainErr(t, err).HTTPStatus)
	assert.Equal(t, "Garden party", repo.stored(event.ID).Title)
}

func TestPatchMissingEventIsNotFoundBeforeForbidden(t *testing.T) {
	svc, _, _, _ := newTestEnv(t, testUser("u2", "Grace"))

	title := "Anything"
	_, err := svc.Patch(context.Background(), "u2", "missing", repository.EventPatch{Title: &title})
	assert.Equal(t, http.StatusNotFound, domainErr(t, err).HTTPStatus)
}

func TestPatchRetriesOnVersionConflict(t *testing.T) {
	svc, repo, _, _ := newTestEnv(t, testUser("u1", "Ada"))
	ctx := context.Background()

	event, err := svc.Create(ctx, "u1", validInput())
	require.NoError(t, err)

	repo.conflictsLeft = 1
	title := "Second draft"
	updated, err := svc.Patch(ctx, "u1", event.ID, repository.EventPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Second draft", updated.Title)
}

func TestAuditTrailIsVisibleToHostOnly(t *testing.T) {
	svc, _, _, _ := newTestEnv(t, testUser("u1", "Ada"), testUser("u2", "Grace"))
	ctx := context.Background()

	event, err := svc.Create(ctx, "u1", validInput())
	require.NoError(t, err)
	_, err = svc.MutateRoster(ctx, "u2", event.ID, "u2", "")
	require.NoError(t, err)

	entries, err := svc.AuditTrail(ctx, "u1", event.ID, 50, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	types := make([]repository.AuditChangeType, 0, len(entries))
	for _, entry := range entries {
		assert.Equal(t, event.ID, entry.EventID)
		types = append(types, entry.ChangeType)
	}
	assert.Contains(t, types, repository.AuditChangeCreated)
	assert.Contains(t, types, repository.AuditChangeParticipantAdded)

	_, err = svc.AuditTrail(ctx, "u2", event.ID, 50, 0)
	assert.Equal(t, http.StatusForbidden, domainErr(t, err).HTTPStatus)

	_, err = svc.AuditTrail(ctx, "u1", "missing", 50, 0)
	assert.Equal(t, http.StatusNotFound, domainErr(t, err).HTTPStatus)
}

func TestDeleteByNonHostIsForbiddenAndKeepsEvent(t *testing.T) {
	svc, _, _, _ := newTestEnv(t, testUser("u1", "Ada"), testUser("u2", "Grace"))
	ctx := context.Background()

	event, err := svc.Create(ctx, "u1", validInput())
	require.NoError(t, err)

	err = svc.Delete(ctx, "u2", event.ID)
	assert.Equal(t, http.StatusForbidden, domainErr(t, err).HTTPStatus)

	projection, err := svc.Get(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, event.ID, projection.Event.ID)
}

func TestDeleteByHostRemovesEvent(t *testing.T) {
	svc, repo, _, audit := newTestEnv(t, testUser("u1", "Ada"))
	ctx := context.Background()

	event, err := svc.Create(ctx, "u1", validInput())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "u1", event.ID))
	assert.Nil(t, repo.stored(event.ID))
	assert.Contains(t, audit.changeTypes(), repository.AuditChangeDeleted)

	_, err = svc.Get(ctx, event.ID)
	assert.Equal(t, http.StatusNotFound, domainErr(t, err).HTTPStatus)
}
