package server

import (
	"strings"
	"time"

	"warbler/internal/session"

	"github.com/gofiber/fiber/v2"
)

const sessionLocalsKey = "session"

// LoadSession resolves the request's session token and stores the Session in
// locals. Requests without a valid token carry an anonymous session.
func (s *Server) LoadSession() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess := s.gate.Resolve(c.UserContext(), sessionToken(c))
		c.Locals(sessionLocalsKey, sess)
		if !sess.IsAnonymous() {
			c.Locals("userID", sess.UserID)
		}
		return c.Next()
	}
}

// sessionToken reads the session cookie, falling back to a bearer token.
func sessionToken(c *fiber.Ctx) string {
	if token := c.Cookies(session.CookieName); token != "" {
		return token
	}
	authHeader := c.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

// currentSession returns the session LoadSession attached to the request.
func currentSession(c *fiber.Ctx) session.Session {
	if sess, ok := c.Locals(sessionLocalsKey).(session.Session); ok {
		return sess
	}
	return session.Anonymous()
}

func (s *Server) setSessionCookie(c *fiber.Ctx, token string, sess session.Session) {
	c.Cookie(&fiber.Cookie{
		Name:     session.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
