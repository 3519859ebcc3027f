package controllers

import (
	"schooldesk_go/services/health"

	"github.com/gofiber/fiber/v2"
)

type HealthController struct {
	checker *health.Checker
}

func NewHealthController(checker *health.Checker) *HealthController {
	if checker == nil {
		checker = health.NewChecker("", "", nil, nil, false, nil)
	}
	return &HealthController{checker: checker}
}

// GetHealthStatus returns the aggregated health report; 503 when MySQL is down.
func (hc *HealthController) GetHealthStatus(c *fiber.Ctx) error {
	report := hc.checker.Check(c.UserContext())
	return c.Status(health.HTTPStatus(report.Status)).JSON(report)
}
