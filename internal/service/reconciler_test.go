package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/event-service/internal/events"
	"github.com/spec-kit/event-service/internal/observability"
	"github.com/spec-kit/event-service/internal/repository"
)

func newTestReconciler(userRepo *fakeUserRepo, eventRepo *fakeEventRepo, audit *fakeAuditRepo) *RosterReconciler {
	return NewRosterReconciler(userRepo, eventRepo, audit, events.NewInMemoryDispatcher(), observability.NewMetrics(), zap.NewNop())
}

func TestReconcileCleanEventIsNoOp(t *testing.T) {
	svc, repo, users, _ := newTestEnv(t, testUser("u1", "Ada"), testUser("u2", "Grace"))
	ctx := context.Background()

	event, err := svc.Create(ctx, "u1", validInput())
	require.NoError(t, err)
	_, err = svc.MutateRoster(ctx, "u2", event.ID, "u2", "")
	require.NoError(t, err)

	before := repo.stored(event.ID)
	reconciler := newTestReconciler(users, repo, &fakeAuditRepo{})

	current, err := repo.GetByID(ctx, event.ID)
	require.NoError(t, err)
	roster, err := reconciler.Reconcile(ctx, current)
	require.NoError(t, err)

	assert.Equal(t, []EnrichedParticipant{{ID: "u1", Name: "Ada"}, {ID: "u2", Name: "Grace"}}, roster)
	after := repo.stored(event.ID)
	assert.Equal(t, before.Version, after.Version)
	assert.Equal(t, before.Participants, after.Participants)
}

func TestReconcilePrunesDeletedParticipant(t *testing.T) {
	svc, repo, users, audit := newTestEnv(t,
		testUser("u1", "Ada"), testUser("u2", "Grace"), testUser("u3", "Edsger"))
	ctx := context.Background()

	event, err := svc.Create(ctx, "u1", validInput())
	require.NoError(t, err)
	_, err = svc.MutateRoster(ctx, "u2", event.ID, "u2", "")
	require.NoError(t, err)
	_, err = svc.MutateRoster(ctx, "u3", event.ID, "u3", "")
	require.NoError(t, err)

	require.NoError(t, users.Delete(ctx, "u2"))

	projection, err := svc.Get(ctx, event.ID)
	require.NoError(t, err)

	assert.Equal(t, []EnrichedParticipant{{ID: "u1", Name: "Ada"}, {ID: "u3", Name: "Edsger"}}, projection.Roster)
	assert.Equal(t, []string{"u1", "u3"}, repo.stored(event.ID).Participants)
	assert.Contains(t, audit.changeTypes(), repository.AuditChangeRosterPruned)

	// Second read observes a clean record.
	again, err := svc.Get(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, projection.Roster, again.Roster)
}

func TestReconcileNeverPrunesHost(t *testing.T) {
	svc, repo, users, _ := newTestEnv(t, testUser("u1", "Ada"), testUser("u2", "Grace"))
	ctx := context.Background()

	event, err := svc.Create(ctx, "u1", validInput())
	require.NoError(t, err)
	_, err = svc.MutateRoster(ctx, "u2", event.ID, "u2", "")
	require.NoError(t, err)

	require.NoError(t, users.Delete(ctx, "u1"))

	projection, err := svc.Get(ctx, event.ID)
	require.NoError(t, err)

	require.Len(t, projection.Roster, 2)
	assert.Equal(t, EnrichedParticipant{ID: "u1", Name: ""}, projection.Roster[0])
	assert.Equal(t, EnrichedParticipant{ID: "u2", Name: "Grace"}, projection.Roster[1])
	assert.Equal(t, []string{"u1", "u2"}, repo.stored(event.ID).Participants)
}

func TestReconcilePersistFailureDoesNotFailRead(t *testing.T) {
	svc, repo, users, _ := newTestEnv(t, testUser("u1", "Ada"), testUser("u2", "Grace"))
	ctx := context.Background()

	event, err := svc.Create(ctx, "u1", validInput())
	require.NoError(t, err)
	_, err = svc.MutateRoster(ctx, "u2", event.ID, "u2", "")
	require.NoError(t, err)
	require.NoError(t, users.Delete(ctx, "u2"))

	repo.replaceErr = repository.ErrVersionConflict
	projection, err := svc.Get(ctx, event.ID)
	require.NoError(t, err)

	// The projection omits the dangling reference even though the prune
	// could not be persisted this time around.
	assert.Equal(t, []EnrichedParticipant{{ID: "u1", Name: "Ada"}}, projection.Roster)
	assert.Equal(t, []string{"u1", "u2"}, repo.stored(event.ID).Participants)
}

func TestReconcilePropagatesLookupFailure(t *testing.T) {
	svc, repo, users, _ := newTestEnv(t, testUser("u1", "Ada"), testUser("u2", "Grace"))
	ctx := context.Background()

	event, err := svc.Create(ctx, "u1", validInput())
	require.NoError(t, err)
	_, err = svc.MutateRoster(ctx, "u2", event.ID, "u2", "")
	require.NoError(t, err)

	boom := errors.New("identity store down")
	users.failIDs["u2"] = boom

	_, err = svc.Get(ctx, event.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"u1", "u2"}, repo.stored(event.ID).Participants)
}
