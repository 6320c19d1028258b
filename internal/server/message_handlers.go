package server

import (
	"warbler/internal/models"
	"warbler/internal/session"

	"github.com/gofiber/fiber/v2"
)

// CreateMessage handles POST /messages/new
// @Summary Post a message
// @Accept json
// @Produce json
// @Success 201 {object} models.Message
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /messages/new [post]
func (s *Server) CreateMessage(c *fiber.Ctx) error {
	ctx := c.UserContext()
	user, err := s.gate.Authorize(ctx, currentSession(c), session.ActionCreateMessage, nil)
	if err != nil {
		return respondAppError(c, err)
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := c.BodyParser(&req); err != nil {
		return RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	msg, err := s.messageSvc.Create(ctx, user.ID, req.Text)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// GetMessage handles GET /messages/:id
func (s *Server) GetMessage(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	msg, err := s.messageSvc.Get(c.UserContext(), id)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(msg)
}

// DeleteMessage handles POST /messages/:id/delete. Only the author may delete.
func (s *Server) DeleteMessage(c *fiber.Ctx) error {
	ctx := c.UserContext()
	sess := currentSession(c)

	// Anonymous and stale sessions are turned away before the lookup
	user, err := s.gate.CurrentUser(ctx, sess)
	if err != nil {
		return respondAppError(c, err)
	}
	if user == nil {
		return RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Access unauthorized"))
	}

	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	msg, err := s.messageSvc.Get(ctx, id)
	if err != nil {
		return respondAppError(c, err)
	}
	if _, err := s.gate.Authorize(ctx, sess, session.ActionDeleteMessage, msg); err != nil {
		return respondAppError(c, err)
	}

	if err := s.messageSvc.Delete(ctx, id, user.ID); err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Message deleted", "id": id})
}

// LikeMessage handles POST /messages/:id/like
func (s *Server) LikeMessage(c *fiber.Ctx) error {
	return s.toggleLike(c, true)
}

// UnlikeMessage handles POST /messages/:id/unlike
func (s *Server) UnlikeMessage(c *fiber.Ctx) error {
	return s.toggleLike(c, false)
}

func (s *Server) toggleLike(c *fiber.Ctx, like bool) error {
	ctx := c.UserContext()
	user, err := s.gate.Authorize(ctx, currentSession(c), session.ActionLike, nil)
	if err != nil {
		return respondAppError(c, err)
	}

	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	if like {
		err = s.graphSvc.Like(ctx, user.ID, id)
	} else {
		err = s.graphSvc.Unlike(ctx, user.ID, id)
	}
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(fiber.Map{"liked": like, "message_id": id})
}
