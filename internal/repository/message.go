package repository

import (
	"context"
	"errors"

	"warbler/internal/cache"
	"warbler/internal/models"

	"gorm.io/gorm"
)

// MessageRepository defines persistence operations for messages.
type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	GetByID(ctx context.Context, id uint) (*models.Message, error)
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.Message, error)
	Timeline(ctx context.Context, userID uint, limit int) ([]models.Message, error)
	Delete(ctx context.Context, id uint) error
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository returns a new MessageRepository implementation.
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

const messageSelect = `messages.*,
	(SELECT COUNT(*) FROM likes WHERE likes.message_id = messages.id) AS likes_count`

const newestFirst = "messages.timestamp DESC, messages.id DESC"

// withAuthor loads the message author alongside the message.
func withAuthor(db *gorm.DB) *gorm.DB {
	return db.Model(&models.Message{}).Select(messageSelect).Preload("User")
}

func (r *messageRepository) Create(ctx context.Context, message *models.Message) error {
	if err := r.db.WithContext(ctx).Omit("User").Create(message).Error; err != nil {
		return classifyError(err, "Message could not be stored")
	}
	cache.InvalidateProfiles(ctx, message.UserID)
	return nil
}

func (r *messageRepository) GetByID(ctx context.Context, id uint) (*models.Message, error) {
	var message models.Message
	if err := withAuthor(r.db.WithContext(ctx)).Where("messages.id = ?", id).Take(&message).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Message", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &message, nil
}

func (r *messageRepository) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.Message, error) {
	var messages []models.Message
	if offset < 0 {
		offset = 0
	}
	if err := withAuthor(r.db.WithContext(ctx)).
		Where("messages.user_id = ?", userID).
		Order(newestFirst).
		Limit(clampLimit(limit, 100, 500)).
		Offset(offset).
		Find(&messages).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return messages, nil
}

// Timeline returns the newest messages written by userID or by anyone userID follows.
func (r *messageRepository) Timeline(ctx context.Context, userID uint, limit int) ([]models.Message, error) {
	var messages []models.Message
	if err := withAuthor(r.db.WithContext(ctx)).
		Where("messages.user_id = ? OR messages.user_id IN (SELECT followed_id FROM follows WHERE follower_id = ?)", userID, userID).
		Order(newestFirst).
		Limit(clampLimit(limit, 100, 500)).
		Find(&messages).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return messages, nil
}

// Delete removes the message and its likes in one transaction.
func (r *messageRepository) Delete(ctx context.Context, id uint) error {
	var affected []uint
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var message models.Message
		if err := tx.Select("id", "user_id").First(&message, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Message", id)
			}
			return models.NewInternalError(err)
		}
		// Likers lose a like along with the message
		if err := tx.Model(&models.Like{}).Where("message_id = ?", id).Pluck("user_id", &affected).Error; err != nil {
			return models.NewInternalError(err)
		}
		affected = append(affected, message.UserID)

		if err := tx.Where("message_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return models.NewInternalError(err)
		}
		if err := tx.Delete(&models.Message{}, id).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	cache.InvalidateProfiles(ctx, affected...)
	return nil
}
