package service

import (
	"context"

	"warbler/internal/models"
)

type userRepoStub struct {
	getByIDFn       func(context.Context, uint) (*models.User, error)
	getByEmailFn    func(context.Context, string) (*models.User, error)
	getByUsernameFn func(context.Context, string) (*models.User, error)
	getProfileFn    func(context.Context, uint) (*models.User, error)
	existsFn        func(context.Context, uint) (bool, error)
	createFn        func(context.Context, *models.User) error
	deleteFn        func(context.Context, uint) error
	listFn          func(context.Context, string, int, int) ([]models.User, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) GetProfile(ctx context.Context, id uint) (*models.User, error) {
	return s.getProfileFn(ctx, id)
}
func (s *userRepoStub) Exists(ctx context.Context, id uint) (bool, error) {
	return s.existsFn(ctx, id)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *userRepoStub) List(ctx context.Context, query string, limit, offset int) ([]models.User, error) {
	return s.listFn(ctx, query, limit, offset)
}

type followRepoStub struct {
	createFn    func(context.Context, uint, uint) error
	deleteFn    func(context.Context, uint, uint) error
	existsFn    func(context.Context, uint, uint) (bool, error)
	followersFn func(context.Context, uint) ([]models.User, error)
	followingFn func(context.Context, uint) ([]models.User, error)
}

func (s *followRepoStub) Create(ctx context.Context, followerID, followedID uint) error {
	return s.createFn(ctx, followerID, followedID)
}
func (s *followRepoStub) Delete(ctx context.Context, followerID, followedID uint) error {
	return s.deleteFn(ctx, followerID, followedID)
}
func (s *followRepoStub) Exists(ctx context.Context, followerID, followedID uint) (bool, error) {
	return s.existsFn(ctx, followerID, followedID)
}
func (s *followRepoStub) Followers(ctx context.Context, userID uint) ([]models.User, error) {
	return s.followersFn(ctx, userID)
}
func (s *followRepoStub) Following(ctx context.Context, userID uint) ([]models.User, error) {
	return s.followingFn(ctx, userID)
}

type messageRepoStub struct {
	createFn     func(context.Context, *models.Message) error
	getByIDFn    func(context.Context, uint) (*models.Message, error)
	listByUserFn func(context.Context, uint, int, int) ([]models.Message, error)
	timelineFn   func(context.Context, uint, int) ([]models.Message, error)
	deleteFn     func(context.Context, uint) error
}

func (s *messageRepoStub) Create(ctx context.Context, m *models.Message) error {
	return s.createFn(ctx, m)
}
func (s *messageRepoStub) GetByID(ctx context.Context, id uint) (*models.Message, error) {
	return s.getByIDFn(ctx, id)
}
func (s *messageRepoStub) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.Message, error) {
	return s.listByUserFn(ctx, userID, limit, offset)
}
func (s *messageRepoStub) Timeline(ctx context.Context, userID uint, limit int) ([]models.Message, error) {
	return s.timelineFn(ctx, userID, limit)
}
func (s *messageRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}

type likeRepoStub struct {
	createFn        func(context.Context, uint, uint) error
	deleteFn        func(context.Context, uint, uint) error
	existsFn        func(context.Context, uint, uint) (bool, error)
	likedMessagesFn func(context.Context, uint) ([]models.Message, error)
}

func (s *likeRepoStub) Create(ctx context.Context, userID, messageID uint) error {
	return s.createFn(ctx, userID, messageID)
}
func (s *likeRepoStub) Delete(ctx context.Context, userID, messageID uint) error {
	return s.deleteFn(ctx, userID, messageID)
}
func (s *likeRepoStub) Exists(ctx context.Context, userID, messageID uint) (bool, error) {
	return s.existsFn(ctx, userID, messageID)
}
func (s *likeRepoStub) LikedMessages(ctx context.Context, userID uint) ([]models.Message, error) {
	return s.likedMessagesFn(ctx, userID)
}

// plainCredentials stores passwords with a visible prefix so tests run without bcrypt.
type plainCredentials struct{}

func (plainCredentials) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", models.NewValidationError("password is required")
	}
	return "plain:" + plaintext, nil
}

func (plainCredentials) Verify(plaintext, digest string) bool {
	return plaintext != "" && digest == "plain:"+plaintext
}
