package server

import (
	"warbler/internal/middleware"
	"warbler/internal/models"
	"warbler/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Signup handles POST /signup
// @Summary User signup
// @Description Register a new account and start a session for it
// @Accept json
// @Produce json
// @Success 201 {object} object{token=string,user=models.User}
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /signup [post]
func (s *Server) Signup(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
		ImageURL string `json:"image_url"`
	}
	if err := c.BodyParser(&req); err != nil {
		return RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userSvc.Signup(c.UserContext(), service.SignupInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		if models.IsIntegrity(err) {
			return RespondWithError(c, fiber.StatusConflict,
				models.NewIntegrityError("Username or email already taken", nil))
		}
		return respondAppError(c, err)
	}

	token, sess, err := s.gate.Issue(user)
	if err != nil {
		return RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}
	s.setSessionCookie(c, token, sess)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

// Login handles POST /login
// @Summary User login
// @Accept json
// @Produce json
// @Success 200 {object} object{token=string,user=models.User}
// @Failure 401 {object} ErrorResponse
// @Router /login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userSvc.Authenticate(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return respondAppError(c, err)
	}
	if user == nil {
		return RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid credentials"))
	}

	token, sess, err := s.gate.Issue(user)
	if err != nil {
		return RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}
	s.setSessionCookie(c, token, sess)

	return c.JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

// Logout handles POST /logout. It always succeeds; the token is revoked when present.
func (s *Server) Logout(c *fiber.Ctx) error {
	if err := s.gate.Revoke(c.UserContext(), currentSession(c)); err != nil {
		middleware.Logger.WarnContext(c.UserContext(), "failed to revoke session", "error", err)
	}
	s.clearSessionCookie(c)
	return c.JSON(fiber.Map{"message": "Logged out"})
}
