package service

import (
	"context"

	"warbler/internal/models"
	"warbler/internal/observability"
	"warbler/internal/repository"
	"warbler/internal/validation"
)

// DefaultTimelineLimit is the number of messages on the home timeline.
const DefaultTimelineLimit = 100

// MessageService provides message business logic.
type MessageService struct {
	messageRepo repository.MessageRepository
	userRepo    repository.UserRepository
}

// NewMessageService returns a new MessageService.
func NewMessageService(messageRepo repository.MessageRepository, userRepo repository.UserRepository) *MessageService {
	return &MessageService{
		messageRepo: messageRepo,
		userRepo:    userRepo,
	}
}

// Create stores a message by authorID. The text is trimmed and must hold 1 to 140 characters.
func (s *MessageService) Create(ctx context.Context, authorID uint, text string) (msg *models.Message, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "MessageService", "Create")
	defer func() { observability.EndSpan(span, err) }()

	exists, err := s.userRepo.Exists(ctx, authorID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, models.NewNotFoundError("User", authorID)
	}

	body, err := validation.ValidateMessageText(text, models.MaxMessageLength)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	msg = &models.Message{UserID: authorID, Text: body}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, err
	}

	observability.RecordEvent(observability.EventMessageCreated)
	return s.messageRepo.GetByID(ctx, msg.ID)
}

// Get returns the message or a NotFound error.
func (s *MessageService) Get(ctx context.Context, id uint) (*models.Message, error) {
	return s.messageRepo.GetByID(ctx, id)
}

// Delete removes the message when requestingUserID wrote it. Anyone else gets
// an Unauthorized error and the message is left untouched.
func (s *MessageService) Delete(ctx context.Context, id, requestingUserID uint) (err error) {
	ctx, span := observability.StartServiceSpan(ctx, "MessageService", "Delete")
	defer func() { observability.EndSpan(span, err) }()

	msg, err := s.messageRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if msg.UserID != requestingUserID {
		observability.RecordEvent(observability.EventUnauthorized)
		return models.NewUnauthorizedError("Access unauthorized")
	}

	if err := s.messageRepo.Delete(ctx, id); err != nil {
		return err
	}
	observability.RecordEvent(observability.EventMessageDeleted)
	return nil
}

// ListByUser returns the user's messages, newest first.
func (s *MessageService) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.Message, error) {
	return s.messageRepo.ListByUser(ctx, userID, limit, offset)
}

// Timeline returns the newest messages from userID and the users it follows.
func (s *MessageService) Timeline(ctx context.Context, userID uint, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = DefaultTimelineLimit
	}
	return s.messageRepo.Timeline(ctx, userID, limit)
}
