// Package service holds the Warbler business rules on top of the repositories.
package service

import (
	"context"
	"strings"

	"warbler/internal/auth"
	"warbler/internal/models"
	"warbler/internal/observability"
	"warbler/internal/repository"
	"warbler/internal/validation"
)

// SignupInput carries the fields accepted at signup. ID is optional; zero lets
// the store assign one. Explicit ids are meant for fixtures and imports, and
// the postgres id sequence is moved past them on insert.
type SignupInput struct {
	ID       uint
	Username string
	Email    string
	Password string
	ImageURL string
}

// UserService is the user directory: signup, authentication and user queries.
type UserService struct {
	userRepo    repository.UserRepository
	followRepo  repository.FollowRepository
	credentials auth.Credentials
}

// NewUserService returns a new UserService.
func NewUserService(userRepo repository.UserRepository, followRepo repository.FollowRepository, credentials auth.Credentials) *UserService {
	return &UserService{
		userRepo:    userRepo,
		followRepo:  followRepo,
		credentials: credentials,
	}
}

// Signup validates the input, hashes the password and stores the new user.
// Nothing is written when validation or hashing fails.
func (s *UserService) Signup(ctx context.Context, in SignupInput) (user *models.User, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "UserService", "Signup")
	defer func() { observability.EndSpan(span, err) }()

	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	username := strings.TrimSpace(in.Username)
	if err := validation.ValidateUsername(username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	email := strings.TrimSpace(in.Email)
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	digest, err := s.credentials.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user = &models.User{
		ID:       in.ID,
		Username: username,
		Email:    email,
		Password: digest,
		ImageURL: strings.TrimSpace(in.ImageURL),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	observability.RecordEvent(observability.EventSignup)
	return user, nil
}

// Authenticate returns the user when username and password match.
// An unknown username or a wrong password yields (nil, nil).
func (s *UserService) Authenticate(ctx context.Context, username, password string) (user *models.User, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "UserService", "Authenticate")
	defer func() { observability.EndSpan(span, err) }()

	user, err = s.userRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if user == nil || !s.credentials.Verify(password, user.Password) {
		observability.RecordEvent(observability.EventLoginFailed)
		return nil, nil
	}

	observability.RecordEvent(observability.EventLogin)
	return user, nil
}

// GetUser returns the user or a NotFound error.
func (s *UserService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// GetProfile returns the user with its message, follower, following and like counts.
func (s *UserService) GetProfile(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetProfile(ctx, id)
}

// ListUsers returns users whose username contains query, ordered by username.
func (s *UserService) ListUsers(ctx context.Context, query string, limit, offset int) ([]models.User, error) {
	return s.userRepo.List(ctx, strings.TrimSpace(query), limit, offset)
}

// IsFollowing reports whether a follows b.
func (s *UserService) IsFollowing(ctx context.Context, a, b uint) (bool, error) {
	return s.followRepo.Exists(ctx, a, b)
}

// IsFollowedBy reports whether b follows a.
func (s *UserService) IsFollowedBy(ctx context.Context, a, b uint) (bool, error) {
	return s.followRepo.Exists(ctx, b, a)
}

// DeleteAccount removes the user along with its messages, likes and follow edges.
func (s *UserService) DeleteAccount(ctx context.Context, id uint) (err error) {
	ctx, span := observability.StartServiceSpan(ctx, "UserService", "DeleteAccount")
	defer func() { observability.EndSpan(span, err) }()

	if err := s.userRepo.Delete(ctx, id); err != nil {
		return err
	}
	observability.RecordEvent(observability.EventAccountDeleted)
	return nil
}
