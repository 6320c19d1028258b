package service

import (
	"context"

	"warbler/internal/models"
	"warbler/internal/observability"
	"warbler/internal/repository"
)

// GraphService manages follow and like edges.
type GraphService struct {
	followRepo  repository.FollowRepository
	likeRepo    repository.LikeRepository
	userRepo    repository.UserRepository
	messageRepo repository.MessageRepository
}

// NewGraphService returns a new GraphService.
func NewGraphService(
	followRepo repository.FollowRepository,
	likeRepo repository.LikeRepository,
	userRepo repository.UserRepository,
	messageRepo repository.MessageRepository,
) *GraphService {
	return &GraphService{
		followRepo:  followRepo,
		likeRepo:    likeRepo,
		userRepo:    userRepo,
		messageRepo: messageRepo,
	}
}

func (s *GraphService) requireUser(ctx context.Context, id uint) error {
	exists, err := s.userRepo.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return models.NewNotFoundError("User", id)
	}
	return nil
}

// Follow makes followerID follow followedID. Following twice is a no-op.
func (s *GraphService) Follow(ctx context.Context, followerID, followedID uint) (err error) {
	ctx, span := observability.StartServiceSpan(ctx, "GraphService", "Follow")
	defer func() { observability.EndSpan(span, err) }()

	if followerID == followedID {
		return models.NewValidationError("Cannot follow yourself")
	}
	if err := s.requireUser(ctx, followerID); err != nil {
		return err
	}
	if err := s.requireUser(ctx, followedID); err != nil {
		return err
	}
	if err := s.followRepo.Create(ctx, followerID, followedID); err != nil {
		return err
	}
	observability.RecordEvent(observability.EventFollow)
	return nil
}

// Unfollow removes the edge if present.
func (s *GraphService) Unfollow(ctx context.Context, followerID, followedID uint) (err error) {
	ctx, span := observability.StartServiceSpan(ctx, "GraphService", "Unfollow")
	defer func() { observability.EndSpan(span, err) }()

	if err := s.followRepo.Delete(ctx, followerID, followedID); err != nil {
		return err
	}
	observability.RecordEvent(observability.EventUnfollow)
	return nil
}

// Like records that userID likes messageID. Liking twice is a no-op.
func (s *GraphService) Like(ctx context.Context, userID, messageID uint) (err error) {
	ctx, span := observability.StartServiceSpan(ctx, "GraphService", "Like")
	defer func() { observability.EndSpan(span, err) }()

	if err := s.requireUser(ctx, userID); err != nil {
		return err
	}
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.UserID == userID {
		return models.NewValidationError("Cannot like your own message")
	}
	if err := s.likeRepo.Create(ctx, userID, messageID); err != nil {
		return err
	}
	observability.RecordEvent(observability.EventLike)
	return nil
}

// Unlike removes the like if present.
func (s *GraphService) Unlike(ctx context.Context, userID, messageID uint) (err error) {
	ctx, span := observability.StartServiceSpan(ctx, "GraphService", "Unlike")
	defer func() { observability.EndSpan(span, err) }()

	if err := s.likeRepo.Delete(ctx, userID, messageID); err != nil {
		return err
	}
	observability.RecordEvent(observability.EventUnlike)
	return nil
}

// Followers returns the users following userID.
func (s *GraphService) Followers(ctx context.Context, userID uint) ([]models.User, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.followRepo.Followers(ctx, userID)
}

// Following returns the users userID follows.
func (s *GraphService) Following(ctx context.Context, userID uint) ([]models.User, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.followRepo.Following(ctx, userID)
}

// LikedMessages returns the messages userID liked.
func (s *GraphService) LikedMessages(ctx context.Context, userID uint) ([]models.Message, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.likeRepo.LikedMessages(ctx, userID)
}
