package controllers

import (
	"schooldesk_go/services/stats"

	"github.com/gofiber/fiber/v2"
)

type StatsController struct {
	stats *stats.Service
}

func NewStatsController(s *stats.Service) *StatsController {
	return &StatsController{stats: s}
}

// GetDashboard returns the admin dashboard counters
func (sc *StatsController) GetDashboard(c *fiber.Ctx) error {
	d, err := sc.stats.Dashboard(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(d)
}
