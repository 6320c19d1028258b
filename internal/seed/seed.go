// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"context"
	"errors"
	"fmt"

	"warbler/internal/auth"
	"warbler/internal/middleware"
	"warbler/internal/models"

	"gorm.io/gorm"
)

// DefaultPassword is the password of every seeded user unless overridden.
const DefaultPassword = "password123"

// Options configuration for the seeder
type Options struct {
	NumUsers        int
	MessagesPerUser int
	FollowsPerUser  int
	LikesPerUser    int
	ShouldClean     bool
	Password        string
	BcryptCost      int
	RandomSeed      int64
	MaxDays         int
}

// Summary counts what a seeding run wrote.
type Summary struct {
	Users    int
	Messages int
	Follows  int
	Likes    int
}

// Seed populates the database with users, messages, follows and likes.
func Seed(ctx context.Context, db *gorm.DB, opts Options) (*Summary, error) {
	if opts.NumUsers <= 0 {
		return nil, errors.New("at least one user is required")
	}
	if opts.Password == "" {
		opts.Password = DefaultPassword
	}

	middleware.Logger.InfoContext(ctx, "starting database seeding",
		"users", opts.NumUsers, "messages_per_user", opts.MessagesPerUser)

	if opts.ShouldClean {
		if err := ClearData(ctx, db); err != nil {
			return nil, fmt.Errorf("failed to clear data: %w", err)
		}
	}

	// One digest for every user keeps large runs fast
	digest, err := auth.NewBcryptCredentials(opts.BcryptCost).Hash(opts.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash seed password: %w", err)
	}

	f := NewFactory(db, digest, opts.RandomSeed, opts.MaxDays)
	summary := &Summary{}

	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		user, err := f.CreateUser(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		users = append(users, user)
	}
	summary.Users = len(users)

	var messages []*models.Message
	for _, user := range users {
		for i := 0; i < opts.MessagesPerUser; i++ {
			msg, err := f.CreateMessage(ctx, user)
			if err != nil {
				return nil, fmt.Errorf("failed to create message: %w", err)
			}
			messages = append(messages, msg)
		}
	}
	summary.Messages = len(messages)

	if len(users) > 1 {
		follows, err := seedFollows(ctx, f, users, opts.FollowsPerUser)
		if err != nil {
			return nil, err
		}
		summary.Follows = follows
	}

	if len(messages) > 0 {
		likes, err := seedLikes(ctx, f, users, messages, opts.LikesPerUser)
		if err != nil {
			return nil, err
		}
		summary.Likes = likes
	}

	middleware.Logger.InfoContext(ctx, "database seeding completed",
		"users", summary.Users, "messages", summary.Messages,
		"follows", summary.Follows, "likes", summary.Likes)
	return summary, nil
}

// seedFollows gives each user up to perUser distinct followed users, never itself.
func seedFollows(ctx context.Context, f *Factory, users []*models.User, perUser int) (int, error) {
	total := 0
	for _, follower := range users {
		seen := map[uint]bool{follower.ID: true}
		for i := 0; i < perUser && len(seen) < len(users); i++ {
			followed := users[f.pick(len(users))]
			if seen[followed.ID] {
				continue
			}
			seen[followed.ID] = true
			if err := f.CreateFollow(ctx, follower, followed); err != nil {
				return total, fmt.Errorf("failed to create follow: %w", err)
			}
			total++
		}
	}
	return total, nil
}

// seedLikes gives each user up to perUser distinct likes on other users' messages.
func seedLikes(ctx context.Context, f *Factory, users []*models.User, messages []*models.Message, perUser int) (int, error) {
	total := 0
	for _, user := range users {
		seen := map[uint]bool{}
		for i := 0; i < perUser; i++ {
			msg := messages[f.pick(len(messages))]
			if msg.UserID == user.ID || seen[msg.ID] {
				continue
			}
			seen[msg.ID] = true
			if err := f.CreateLike(ctx, user, msg); err != nil {
				return total, fmt.Errorf("failed to create like: %w", err)
			}
			total++
		}
	}
	return total, nil
}

// ClearData removes every row from the Warbler tables, edges first.
func ClearData(ctx context.Context, db *gorm.DB) error {
	middleware.Logger.InfoContext(ctx, "clearing existing data")
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		for _, model := range []any{&models.Like{}, &models.Follow{}, &models.Message{}, &models.User{}} {
			if err := all.Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
