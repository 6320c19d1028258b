package seed

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"warbler/internal/models"
	"warbler/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Factory builds domain entities and persists them through the repositories.
// It is a thin helper used by the seeder and by tests.
type Factory struct {
	faker    *gofakeit.Faker
	digest   string
	maxDays  int
	sequence int

	users    repository.UserRepository
	messages repository.MessageRepository
	follows  repository.FollowRepository
	likes    repository.LikeRepository
}

// NewFactory creates a Factory bound to db. Every user it creates gets the
// password behind digest. A zero seed picks a time-based one.
func NewFactory(db *gorm.DB, digest string, seed int64, maxDays int) *Factory {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if maxDays <= 0 {
		maxDays = 90
	}
	return &Factory{
		faker:    gofakeit.New(seed),
		digest:   digest,
		maxDays:  maxDays,
		users:    repository.NewUserRepository(db),
		messages: repository.NewMessageRepository(db),
		follows:  repository.NewFollowRepository(db),
		likes:    repository.NewLikeRepository(db),
	}
}

// username returns a fresh name that passes signup validation.
func (f *Factory) username() string {
	f.sequence++
	base := strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return unicode.ToLower(r)
		}
		return -1
	}, f.faker.FirstName()+f.faker.LastName())
	if len(base) > 20 {
		base = base[:20]
	}
	if base == "" {
		base = "warbler"
	}
	return fmt.Sprintf("%s%d", base, f.sequence)
}

// CreateUser constructs and persists a sample user.
func (f *Factory) CreateUser(ctx context.Context, overrides ...func(*models.User)) (*models.User, error) {
	username := f.username()
	user := &models.User{
		Username: username,
		Email:    username + "@warbler." + f.faker.DomainSuffix(),
		Password: f.digest,
		Bio:      f.faker.Sentence(10),
		Location: f.faker.City(),
	}
	for _, override := range overrides {
		override(user)
	}

	if err := f.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// BuildMessage constructs a message for user without persisting it.
// Timestamps are spread over the last maxDays days.
func (f *Factory) BuildMessage(user *models.User) *models.Message {
	text := []rune(f.faker.Sentence(f.faker.Number(4, 18)))
	if len(text) > models.MaxMessageLength {
		text = text[:models.MaxMessageLength]
	}
	now := time.Now().UTC()
	return &models.Message{
		Text:      strings.TrimSpace(string(text)),
		UserID:    user.ID,
		Timestamp: f.faker.DateRange(now.AddDate(0, 0, -f.maxDays), now),
	}
}

// CreateMessage persists a sample message authored by user.
func (f *Factory) CreateMessage(ctx context.Context, user *models.User, overrides ...func(*models.Message)) (*models.Message, error) {
	msg := f.BuildMessage(user)
	for _, override := range overrides {
		override(msg)
	}
	if err := f.messages.Create(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// CreateFollow makes follower follow followed. Existing edges are kept.
func (f *Factory) CreateFollow(ctx context.Context, follower, followed *models.User) error {
	return f.follows.Create(ctx, follower.ID, followed.ID)
}

// CreateLike records user liking msg. Existing edges are kept.
func (f *Factory) CreateLike(ctx context.Context, user *models.User, msg *models.Message) error {
	return f.likes.Create(ctx, user.ID, msg.ID)
}

// pick returns a random index in [0, n).
func (f *Factory) pick(n int) int {
	return f.faker.Number(0, n-1)
}
