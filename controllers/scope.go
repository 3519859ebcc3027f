package controllers

import (
	"schooldesk_go/apperrors"
	"schooldesk_go/middleware"
	"schooldesk_go/models"
	"schooldesk_go/services/people"

	"github.com/gofiber/fiber/v2"
)

// ensureTeaches lets admins through and restricts teachers to their own
// class/section assignments.
func ensureTeaches(c *fiber.Ctx, p *people.Service, class, section string) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return err
	}
	if claims.Role == models.RoleAdmin {
		return nil
	}
	t, err := p.TeacherByUser(c.UserContext(), claims.UserID)
	if err != nil {
		return err
	}
	if !t.Teaches(class, section) {
		return apperrors.Forbidden("Not authorized for class %s section %s", class, section)
	}
	return nil
}
