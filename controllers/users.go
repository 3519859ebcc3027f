package controllers

import (
	"schooldesk_go/services/people"

	"github.com/gofiber/fiber/v2"
)

type UserController struct {
	people *people.Service
}

func NewUserController(p *people.Service) *UserController {
	return &UserController{people: p}
}

// GetUsers lists accounts, optionally for one role
func (uc *UserController) GetUsers(c *fiber.Ctx) error {
	users, err := uc.people.ListUsers(c.UserContext(), c.Query("role"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"users": users, "count": len(users)})
}

func (uc *UserController) GetUser(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	acc, err := uc.people.Account(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"user": acc})
}

type statusRequest struct {
	IsActive *bool `json:"is_active"`
}

// SetStatus activates or deactivates a user
func (uc *UserController) SetStatus(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req statusRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	if req.IsActive == nil {
		return badRequest(c, "is_active is required")
	}
	if id == currentUserID(c) && !*req.IsActive {
		return badRequest(c, "You cannot deactivate your own account")
	}
	acc, err := uc.people.SetActive(c.UserContext(), id, *req.IsActive)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "User status updated", "user": acc})
}
