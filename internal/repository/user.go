package repository

import (
	"context"
	"errors"
	"strings"

	"warbler/internal/cache"
	"warbler/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetProfile(ctx context.Context, id uint) (*models.User, error)
	Exists(ctx context.Context, id uint) (bool, error)
	Create(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, query string, limit, offset int) ([]models.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// profileSelect loads a user together with its derived counts.
const profileSelect = `users.*,
	(SELECT COUNT(*) FROM messages WHERE messages.user_id = users.id) AS messages_count,
	(SELECT COUNT(*) FROM follows WHERE follows.followed_id = users.id) AS followers_count,
	(SELECT COUNT(*) FROM follows WHERE follows.follower_id = users.id) AS following_count,
	(SELECT COUNT(*) FROM likes WHERE likes.user_id = users.id) AS likes_count`

// GetByID returns the user without its password digest; the result may come from cache.
func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	key := cache.UserKey(id)

	err := cache.Aside(ctx, key, &user, cache.UserTTL, func() error {
		if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("User", id)
			}
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

// GetByUsername always reads the store so the password digest is present.
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) GetProfile(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := cache.Aside(ctx, cache.ProfileKey(id), &user, cache.ProfileTTL, func() error {
		if err := r.db.WithContext(ctx).Model(&models.User{}).
			Select(profileSelect).
			Where("users.id = ?", id).
			Take(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("User", id)
			}
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

// Create inserts the user in its own transaction. Duplicate usernames or
// emails and missing required columns surface as IntegrityError.
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	explicitID := user.ID != 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		// Explicit ids bypass the postgres serial sequence; move it past them.
		if explicitID && tx.Dialector.Name() == "postgres" {
			return tx.Exec(syncUserSequence).Error
		}
		return nil
	})
	if err != nil {
		return classifyError(err, "User already exists or is incomplete")
	}
	return nil
}

const syncUserSequence = `SELECT setval(
	pg_get_serial_sequence('users', 'id'),
	GREATEST((SELECT COALESCE(MAX(id), 1) FROM users), 1),
	true
)`

// Delete removes the user and everything that references it in one transaction.
func (r *userRepository) Delete(ctx context.Context, id uint) error {
	var affected []uint

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Select("id").First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("User", id)
			}
			return models.NewInternalError(err)
		}

		if err := tx.Raw(`SELECT followed_id FROM follows WHERE follower_id = ?
			UNION SELECT follower_id FROM follows WHERE followed_id = ?
			UNION SELECT likes.user_id FROM likes JOIN messages ON messages.id = likes.message_id WHERE messages.user_id = ?`,
			id, id, id).Scan(&affected).Error; err != nil {
			return models.NewInternalError(err)
		}

		deletes := []func() error{
			func() error {
				return tx.Where("message_id IN (SELECT id FROM messages WHERE user_id = ?)", id).Delete(&models.Like{}).Error
			},
			func() error { return tx.Where("user_id = ?", id).Delete(&models.Like{}).Error },
			func() error {
				return tx.Where("follower_id = ? OR followed_id = ?", id, id).Delete(&models.Follow{}).Error
			},
			func() error { return tx.Where("user_id = ?", id).Delete(&models.Message{}).Error },
			func() error { return tx.Delete(&models.User{}, id).Error },
		}
		for _, del := range deletes {
			if err := del(); err != nil {
				return models.NewInternalError(err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	cache.InvalidateUser(ctx, id)
	cache.InvalidateProfiles(ctx, affected...)
	return nil
}

// likeEscaper makes user input match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// List returns users ordered by username, optionally filtered by a username substring.
func (r *userRepository) List(ctx context.Context, query string, limit, offset int) ([]models.User, error) {
	var users []models.User
	q := r.db.WithContext(ctx).Model(&models.User{})
	if query != "" {
		q = q.Where("username LIKE ? ESCAPE '\\'", "%"+likeEscaper.Replace(query)+"%")
	}
	if offset < 0 {
		offset = 0
	}
	if err := q.Order("username ASC").Limit(clampLimit(limit, 50, 100)).Offset(offset).Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}
