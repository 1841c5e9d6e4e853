package services

import (
	"context"

	"github.com/isdelr/nota-be/internal/models"
)

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	GetProfile(ctx context.Context, username string) (models.Profile, error)
}

// UserService provides public profile lookups.
type UserService struct {
	users UserRepository
}

// NewUserService creates a new UserService.
func NewUserService(users UserRepository) *UserService {
	return &UserService{users: users}
}

// GetProfile returns the public profile of the user with the given username.
func (s *UserService) GetProfile(ctx context.Context, username string) (models.Profile, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return models.Profile{}, err
	}
	return user.Profile(), nil
}
