package server

import (
	"warbler/internal/middleware"
	"warbler/internal/models"
	"warbler/internal/service"
	"warbler/internal/session"

	"github.com/gofiber/fiber/v2"
)

// Home handles GET /. Signed-in users get their timeline; anonymous visitors get an empty one.
func (s *Server) Home(c *fiber.Ctx) error {
	ctx := c.UserContext()
	user, err := s.gate.CurrentUser(ctx, currentSession(c))
	if err != nil {
		return respondAppError(c, err)
	}
	if user == nil {
		return c.JSON(fiber.Map{
			"authenticated": false,
			"messages":      []models.Message{},
		})
	}

	p := parsePagination(c, service.DefaultTimelineLimit)
	messages, err := s.messageSvc.Timeline(ctx, user.ID, p.Limit)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(fiber.Map{
		"authenticated": true,
		"user":          user,
		"messages":      messages,
	})
}

// ListUsers handles GET /users?q=
func (s *Server) ListUsers(c *fiber.Ctx) error {
	p := parsePagination(c, 50)
	users, err := s.userSvc.ListUsers(c.UserContext(), c.Query("q"), p.Limit, p.Offset)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(fiber.Map{"users": users})
}

// GetUser handles GET /users/:id: the profile with counts and the user's messages.
func (s *Server) GetUser(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	ctx := c.UserContext()

	profile, err := s.userSvc.GetProfile(ctx, id)
	if err != nil {
		return respondAppError(c, err)
	}

	p := parsePagination(c, service.DefaultTimelineLimit)
	messages, err := s.messageSvc.ListByUser(ctx, id, p.Limit, p.Offset)
	if err != nil {
		return respondAppError(c, err)
	}

	resp := fiber.Map{
		"user":     profile,
		"messages": messages,
	}

	if sess := currentSession(c); !sess.IsAnonymous() && sess.UserID != id {
		following, err := s.userSvc.IsFollowing(ctx, sess.UserID, id)
		if err != nil {
			return respondAppError(c, err)
		}
		followedBy, err := s.userSvc.IsFollowedBy(ctx, sess.UserID, id)
		if err != nil {
			return respondAppError(c, err)
		}
		resp["is_following"] = following
		resp["is_followed_by"] = followedBy
	}

	return c.JSON(resp)
}

// GetFollowing handles GET /users/:id/following
func (s *Server) GetFollowing(c *fiber.Ctx) error {
	return s.viewFollows(c, func(id uint) (any, error) {
		return s.graphSvc.Following(c.UserContext(), id)
	}, "users")
}

// GetFollowers handles GET /users/:id/followers
func (s *Server) GetFollowers(c *fiber.Ctx) error {
	return s.viewFollows(c, func(id uint) (any, error) {
		return s.graphSvc.Followers(c.UserContext(), id)
	}, "users")
}

// GetLikes handles GET /users/:id/likes
func (s *Server) GetLikes(c *fiber.Ctx) error {
	return s.viewFollows(c, func(id uint) (any, error) {
		return s.graphSvc.LikedMessages(c.UserContext(), id)
	}, "messages")
}

// viewFollows gates the follow and like listings on a signed-in user.
func (s *Server) viewFollows(c *fiber.Ctx, load func(id uint) (any, error), field string) error {
	if _, err := s.gate.Authorize(c.UserContext(), currentSession(c), session.ActionViewFollows, nil); err != nil {
		return respondAppError(c, err)
	}

	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	result, err := load(id)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(fiber.Map{
		"user_id": id,
		field:     result,
	})
}

// Follow handles POST /users/follow/:id
func (s *Server) Follow(c *fiber.Ctx) error {
	ctx := c.UserContext()
	user, err := s.gate.Authorize(ctx, currentSession(c), session.ActionFollow, nil)
	if err != nil {
		return respondAppError(c, err)
	}

	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.graphSvc.Follow(ctx, user.ID, id); err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(fiber.Map{"following": true, "user_id": id})
}

// StopFollowing handles POST /users/stop-following/:id
func (s *Server) StopFollowing(c *fiber.Ctx) error {
	ctx := c.UserContext()
	user, err := s.gate.Authorize(ctx, currentSession(c), session.ActionFollow, nil)
	if err != nil {
		return respondAppError(c, err)
	}

	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.graphSvc.Unfollow(ctx, user.ID, id); err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(fiber.Map{"following": false, "user_id": id})
}

// DeleteAccount handles POST /users/delete. The session ends with the account.
func (s *Server) DeleteAccount(c *fiber.Ctx) error {
	ctx := c.UserContext()
	sess := currentSession(c)

	user, err := s.gate.Authorize(ctx, sess, session.ActionDeleteAccount, &models.User{ID: sess.UserID})
	if err != nil {
		return respondAppError(c, err)
	}

	if err := s.userSvc.DeleteAccount(ctx, user.ID); err != nil {
		return respondAppError(c, err)
	}

	if err := s.gate.Revoke(ctx, sess); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to revoke session after account deletion", "error", err)
	}
	s.clearSessionCookie(c)

	return c.JSON(fiber.Map{"message": "Account deleted"})
}
