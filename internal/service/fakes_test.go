package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/event-service/internal/domain"
	"github.com/spec-kit/event-service/internal/repository"
)

// fakeEventRepo is an in-memory EventRepository with the same conditional
// write semantics as the Postgres implementation.
type fakeEventRepo struct {
	mu            sync.Mutex
	events        map[string]*domain.Event
	order         []string
	conflictsLeft int
	replaceErr    error
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{events: map[string]*domain.Event{}}
}

func (r *fakeEventRepo) Create(_ context.Context, event *domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	event.ID = uuid.NewString()
	event.Version = 1
	event.CreatedAt = time.Now()
	event.UpdatedAt = event.CreatedAt
	r.events[event.ID] = copyEvent(event)
	r.order = append(r.order, event.ID)
	return nil
}

func (r *fakeEventRepo) GetByID(_ context.Context, id string) (*domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.events[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return copyEvent(stored), nil
}

func (r *fakeEventRepo) List(_ context.Context) ([]domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]domain.Event, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, *copyEvent(r.events[id]))
	}
	return result, nil
}

func (r *fakeEventRepo) ListByParticipant(ctx context.Context, userID string) ([]domain.Event, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	var result []domain.Event
	for i := range all {
		if all[i].HasParticipant(userID) {
			result = append(result, all[i])
		}
	}
	return result, nil
}

func (r *fakeEventRepo) UpdateFields(_ context.Context, id string, version int64, patch repository.EventPatch) (*domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.events[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if r.conflictsLeft > 0 {
		r.conflictsLeft--
		return nil, repository.ErrVersionConflict
	}
	if stored.Version != version {
		return nil, repository.ErrVersionConflict
	}
	if patch.ImgURL != nil {
		stored.ImgURL = *patch.ImgURL
	}
	if patch.Title != nil {
		stored.Title = *patch.Title
	}
	if patch.Description != nil {
		stored.Description = *patch.Description
	}
	if patch.Date != nil {
		stored.Date = *patch.Date
	}
	if !patch.IsEmpty() {
		stored.Version++
		stored.UpdatedAt = time.Now()
	}
	return copyEvent(stored), nil
}

func (r *fakeEventRepo) ReplaceParticipants(_ context.Context, id string, version int64, participants []string) (*domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.replaceErr != nil {
		err := r.replaceErr
		r.replaceErr = nil
		return nil, err
	}
	stored, ok := r.events[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if r.conflictsLeft > 0 {
		r.conflictsLeft--
		return nil, repository.ErrVersionConflict
	}
	if stored.Version != version {
		return nil, repository.ErrVersionConflict
	}
	stored.Participants = append([]string{}, participants...)
	stored.Version++
	stored.UpdatedAt = time.Now()
	return copyEvent(stored), nil
}

func (r *fakeEventRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.events, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *fakeEventRepo) stored(id string) *domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if stored, ok := r.events[id]; ok {
		return copyEvent(stored)
	}
	return nil
}

func copyEvent(event *domain.Event) *domain.Event {
	clone := *event
	clone.Participants = append([]string{}, event.Participants...)
	return &clone
}

// fakeUserRepo backs both UserRepository and the identity lookup.
type fakeUserRepo struct {
	mu      sync.Mutex
	users   map[string]*domain.User
	failIDs map[string]error
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: map[string]*domain.User{}, failIDs: map[string]error{}}
	for _, user := range users {
		repo.users[user.ID] = user
	}
	return repo
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.failIDs[id]; ok {
		return nil, err
	}
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return user, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) List(_ context.Context) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]domain.User, 0, len(r.users))
	for _, user := range r.users {
		result = append(result, *user)
	}
	return result, nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.users, id)
	return nil
}

// fakeAuditRepo records entries in memory.
type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []repository.EventAudit
}

func (r *fakeAuditRepo) Create(_ context.Context, entry *repository.EventAudit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = uuid.NewString()
	entry.CreatedAt = time.Now()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeAuditRepo) ListByEvent(_ context.Context, eventID string, _, _ int) ([]repository.EventAudit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []repository.EventAudit
	for _, entry := range r.entries {
		if entry.EventID == eventID {
			result = append(result, entry)
		}
	}
	return result, nil
}

func (r *fakeAuditRepo) changeTypes() []repository.AuditChangeType {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]repository.AuditChangeType, 0, len(r.entries))
	for _, entry := range r.entries {
		types = append(types, entry.ChangeType)
	}
	return types
}
