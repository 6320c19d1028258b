package service

import (
	"context"
	"strings"
	"testing"

	"warbler/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserServiceSignupValidation(t *testing.T) {
	ctx := context.Background()
	created := 0
	repo := &userRepoStub{
		createFn: func(_ context.Context, _ *models.User) error {
			created++
			return nil
		},
	}
	svc := NewUserService(repo, &followRepoStub{}, plainCredentials{})

	tests := []struct {
		name  string
		input SignupInput
	}{
		{name: "empty password", input: SignupInput{Username: "alice", Email: "alice@example.com"}},
		{name: "password over 72 bytes", input: SignupInput{Username: "alice", Email: "alice@example.com", Password: strings.Repeat("x", 73)}},
		{name: "empty username", input: SignupInput{Email: "alice@example.com", Password: "secret"}},
		{name: "bad username", input: SignupInput{Username: "a b", Email: "alice@example.com", Password: "secret"}},
		{name: "empty email", input: SignupInput{Username: "alice", Password: "secret"}},
		{name: "bad email", input: SignupInput{Username: "alice", Email: "nope", Password: "secret"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := svc.Signup(ctx, tt.input)
			assert.Nil(t, user)
			assert.True(t, models.IsValidation(err), "got %v", err)
		})
	}
	assert.Zero(t, created, "no record may be written when validation fails")
}

func TestUserServiceSignupHashesPassword(t *testing.T) {
	var stored *models.User
	repo := &userRepoStub{
		createFn: func(_ context.Context, u *models.User) error {
			stored = u
			return nil
		},
	}
	svc := NewUserService(repo, &followRepoStub{}, plainCredentials{})

	user, err := svc.Signup(context.Background(), SignupInput{
		ID: 1111, Username: " alice ", Email: "alice@example.com", Password: "secret",
	})
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, uint(1111), user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "plain:secret", stored.Password)
}

func TestUserServiceSignupPropagatesIntegrity(t *testing.T) {
	repo := &userRepoStub{
		createFn: func(_ context.Context, _ *models.User) error {
			return models.NewIntegrityError("User already exists or is incomplete", nil)
		},
	}
	svc := NewUserService(repo, &followRepoStub{}, plainCredentials{})

	_, err := svc.Signup(context.Background(), SignupInput{Username: "alice", Email: "a@example.com", Password: "secret"})
	assert.True(t, models.IsIntegrity(err))
}

func TestUserServiceAuthenticate(t *testing.T) {
	repo := &userRepoStub{
		getByUsernameFn: func(_ context.Context, username string) (*models.User, error) {
			if username == "alice" {
				return &models.User{ID: 1, Username: "alice", Password: "plain:secret"}, nil
			}
			return nil, nil
		},
	}
	svc := NewUserService(repo, &followRepoStub{}, plainCredentials{})
	ctx := context.Background()

	user, err := svc.Authenticate(ctx, "alice", "secret")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, uint(1), user.ID)

	user, err = svc.Authenticate(ctx, "alice", "wrong")
	assert.NoError(t, err)
	assert.Nil(t, user)

	user, err = svc.Authenticate(ctx, "bob", "secret")
	assert.NoError(t, err)
	assert.Nil(t, user)
}

func TestUserServiceFollowQueries(t *testing.T) {
	edges := map[[2]uint]bool{{1, 2}: true}
	follows := &followRepoStub{
		existsFn: func(_ context.Context, a, b uint) (bool, error) {
			return edges[[2]uint{a, b}], nil
		},
	}
	svc := NewUserService(&userRepoStub{}, follows, plainCredentials{})
	ctx := context.Background()

	ok, err := svc.IsFollowing(ctx, 1, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.IsFollowedBy(ctx, 2, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.IsFollowedBy(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.IsFollowing(ctx, 1, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}
