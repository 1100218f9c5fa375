package posapi

import (
	"kasir-sync/internal/session"

	"github.com/gofiber/fiber/v2"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// GET /api/session
func SessionStateHandler(s *session.Session) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(s.State())
	}
}

// POST /api/session/login. A successful login kicks off a sync pass.
func LoginHandler(s *session.Session, auth session.Authenticator, sync Syncer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body loginRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		st, err := s.Login(c.UserContext(), auth, body.Email, body.Password)
		if err != nil {
			return toFiber(err)
		}
		if sync != nil {
			sync.Request()
		}
		return c.JSON(st)
	}
}

// POST /api/session/logout
func LogoutHandler(s *session.Session) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s.Logout()
		return c.JSON(s.State())
	}
}
