package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/event-service/internal/auth"
	"github.com/spec-kit/event-service/internal/domain"
	"github.com/spec-kit/event-service/internal/repository"
	apperrors "github.com/spec-kit/event-service/pkg/util"
)

// UserPatch carries a partial user update; nil fields are left untouched.
type UserPatch struct {
	Name     *string
	Phone    *string
	Age      *int
	Role     *domain.UserRole
	Password *string
}

// UserService covers member management outside of authentication.
type UserService struct {
	users      repository.UserRepository
	bcryptCost int
}

// NewUserService builds the service.
func NewUserService(users repository.UserRepository, bcryptCost int) *UserService {
	return &UserService{users: users, bcryptCost: bcryptCost}
}

// Get fetches one user by id.
func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"id": id})
		}
		return nil, err
	}
	return user, nil
}

// List returns all users.
func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	return s.users.List(ctx)
}

// Update applies present fields to the target user. Role changes require an
// admin caller; otherwise callers may only update themselves.
func (s *UserService) Update(ctx context.Context, caller *domain.User, id string, patch UserPatch) (*domain.User, error) {
	if !caller.IsAdmin() && domain.CanonicalID(caller.ID) != domain.CanonicalID(id) {
		return nil, apperrors.NewForbidden("cannot update another user")
	}
	if patch.Role != nil && !caller.IsAdmin() {
		return nil, apperrors.NewForbidden("only admins may change roles")
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		if msg := boundedField(*patch.Name, 3, 50); msg != "" {
			return nil, apperrors.NewValidationError("invalid user fields", map[string]any{"name": msg})
		}
		user.Name = *patch.Name
	}
	if patch.Phone != nil {
		if !phonePattern.MatchString(*patch.Phone) {
			return nil, apperrors.NewValidationError("invalid user fields", map[string]any{"phoneNum": "phone number must have 10 digits"})
		}
		user.Phone = *patch.Phone
	}
	if patch.Age != nil {
		if *patch.Age < 1 || *patch.Age > 100 {
			return nil, apperrors.NewValidationError("invalid user fields", map[string]any{"age": "age must be between 1 and 100"})
		}
		user.Age = *patch.Age
	}
	if patch.Role != nil {
		user.Role = *patch.Role
	}
	if patch.Password != nil {
		if len(*patch.Password) < 6 || len(*patch.Password) > 30 {
			return nil, apperrors.NewValidationError("invalid user fields", map[string]any{"password": "password must be 6 to 30 characters long"})
		}
		hash, err := auth.HashPassword(*patch.Password, s.bcryptCost)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Delete removes a user account. Dangling participant references left on
// events repair themselves on the next read of each event.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("user", map[string]any{"id": id})
		}
		return err
	}
	return nil
}
