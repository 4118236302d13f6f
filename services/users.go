package services

import (
	"context"

	"github.com/bellapacxx/guba-backend/models"
	"github.com/bellapacxx/guba-backend/store"
	"github.com/bellapacxx/guba-backend/utils/logger"
)

// UserService backs the admin console's customer management.
type UserService struct {
	users store.UserStore
	auth  *AuthService
}

func NewUserService(users store.UserStore, auth *AuthService) *UserService {
	return &UserService{users: users, auth: auth}
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	return s.users.ListUsers(ctx)
}

// Create adds an account with the requested role (defaults to user).
func (s *UserService) Create(ctx context.Context, in RegisterInput) (*models.User, error) {
	return s.auth.createUser(ctx, in)
}

func (s *UserService) UpdateRole(ctx context.Context, id, role string) (*models.User, error) {
	if !models.ValidRole(role) {
		return nil, invalidf("role must be one of: %s %s", models.RoleUser, models.RoleAdmin)
	}
	u, err := s.users.UpdateUserRole(ctx, id, role)
	if err != nil {
		return nil, err
	}
	logger.Infow("user role changed", "user", id, "role", role)
	return u, nil
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.users.DeleteUser(ctx, id); err != nil {
		return err
	}
	logger.Infow("user deleted", "user", id)
	return nil
}
