package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/nota-be/internal/apperrors"
	"github.com/isdelr/nota-be/internal/auth"
	"github.com/isdelr/nota-be/internal/models"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

const invalidCredentials = "username, email, or password is incorrect"

// UserRepository is the credential store used by the auth and user services.
type UserRepository interface {
	Create(ctx context.Context, user models.User) error
	GetByID(ctx context.Context, id string) (models.User, error)
	GetByUsername(ctx context.Context, username string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	GetByUsernameOrEmail(ctx context.Context, identifier string) (models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// TokenRevoker is the token revocation list.
type TokenRevoker interface {
	Add(ctx context.Context, token string) error
	Contains(ctx context.Context, token string) (bool, error)
}

// SessionCloser ends live sessions that were opened with a token.
type SessionCloser interface {
	DropToken(token string)
}

// AuthServiceProvider defines the interface for authentication services.
type AuthServiceProvider interface {
	Register(ctx context.Context, username, email, password string) (string, error)
	Login(ctx context.Context, identifier, password string) (string, error)
	Logout(ctx context.Context, token string) error
	Authenticate(ctx context.Context, token string) (auth.Identity, error)
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
}

// AuthService provides registration, login and token checks.
type AuthService struct {
	users      UserRepository
	revoked    TokenRevoker
	tokens     *auth.TokenIssuer
	sessions   SessionCloser
	bcryptCost int
	now        func() time.Time
}

// NewAuthService creates a new AuthService. sessions may be nil.
func NewAuthService(users UserRepository, revoked TokenRevoker, tokens *auth.TokenIssuer, sessions SessionCloser, bcryptCost int) *AuthService {
	return &AuthService{
		users:      users,
		revoked:    revoked,
		tokens:     tokens,
		sessions:   sessions,
		bcryptCost: bcryptCost,
		now:        time.Now,
	}
}

// Register creates a new user and returns its ID.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (string, error) {
	if err := s.ensureAbsent(ctx, s.users.GetByUsername, username, "username already exists"); err != nil {
		return "", err
	}
	if err := s.ensureAbsent(ctx, s.users.GetByEmail, email, "email already exists"); err != nil {
		return "", err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hashedPassword),
		CreatedAt:    s.now(),
	}
	// A concurrent registration can still win the race; the store reports it as a conflict.
	if err := s.users.Create(ctx, user); err != nil {
		return "", err
	}

	log.Info().Str("user_id", user.ID).Str("username", username).Msg("User registered")
	return user.ID, nil
}

func (s *AuthService) ensureAbsent(ctx context.Context, lookup func(context.Context, string) (models.User, error), value, conflictMsg string) error {
	_, err := lookup(ctx, value)
	switch {
	case err == nil:
		return apperrors.Conflict(conflictMsg)
	case errors.Is(err, apperrors.ErrNotFound):
		return nil
	default:
		return err
	}
}

// Login verifies credentials and returns a signed access token. The identifier
// may be a username or an email.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (string, error) {
	user, err := s.users.GetByUsernameOrEmail(ctx, identifier)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			log.Warn().Str("identifier", identifier).Msg("Login failed: unknown user")
			return "", apperrors.Unauthorized(invalidCredentials)
		}
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		log.Warn().Str("user_id", user.ID).Msg("Login failed: invalid password")
		return "", apperrors.Unauthorized(invalidCredentials)
	}

	token, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

// Logout revokes the token and closes any live feed opened with it.
// Revoking a token twice is not an error.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if err := s.revoked.Add(ctx, token); err != nil {
		return err
	}
	if s.sessions != nil {
		s.sessions.DropToken(token)
	}
	log.Info().Msg("Token revoked")
	return nil
}

// Authenticate checks the token's signature, expiry and revocation state.
func (s *AuthService) Authenticate(ctx context.Context, token string) (auth.Identity, error) {
	id, err := s.tokens.Parse(token)
	if err != nil {
		return auth.Identity{}, apperrors.Unauthorized("invalid or expired token")
	}

	revoked, err := s.revoked.Contains(ctx, token)
	if err != nil {
		return auth.Identity{}, err
	}
	if revoked {
		return auth.Identity{}, apperrors.Unauthorized("token has been revoked")
	}
	return id, nil
}

// ChangePassword verifies the current password, then stores a hash of the new one.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return apperrors.Unauthorized("current password is incorrect")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash new password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, string(hashedPassword)); err != nil {
		return err
	}

	log.Info().Str("user_id", userID).Msg("Password changed")
	return nil
}
