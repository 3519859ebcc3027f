package controllers

import (
	"schooldesk_go/middleware"
	"schooldesk_go/services/people"

	"github.com/gofiber/fiber/v2"
)

type AuthController struct {
	people   *people.Service
	auth     *middleware.Auth
	activity middleware.ActivityRecorder
}

func NewAuthController(p *people.Service, auth *middleware.Auth, rec middleware.ActivityRecorder) *AuthController {
	return &AuthController{people: p, auth: auth, activity: rec}
}

// Login authenticates a user and returns a JWT token
func (ac *AuthController) Login(c *fiber.Ctx) error {
	var req people.LoginInput
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	user, err := ac.people.Authenticate(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}
	token, err := ac.auth.GenerateToken(user)
	if err != nil {
		return respondError(c, err)
	}
	account, err := ac.people.Account(c.UserContext(), user.ID)
	if err != nil {
		return respondError(c, err)
	}

	c.Locals("user", user)
	middleware.LogActivity(c, ac.activity, "LOGIN", "auth", user.ID, fiber.Map{"username": user.Username})

	return c.JSON(fiber.Map{
		"message": "Login successful",
		"token":   token,
		"user":    account,
	})
}

// Me returns the current account with its profile
func (ac *AuthController) Me(c *fiber.Ctx) error {
	account, err := ac.people.Account(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"user": account})
}

// Logout blacklists the current token until it expires
func (ac *AuthController) Logout(c *fiber.Ctx) error {
	if err := ac.auth.Logout(c); err != nil {
		return respondError(c, err)
	}
	middleware.LogActivity(c, ac.activity, "LOGOUT", "auth", currentUserID(c), nil)
	return c.JSON(fiber.Map{"message": "Logged out successfully"})
}
