package controllers

import (
	"schooldesk_go/services/earlyleave"
	"schooldesk_go/services/people"
	"schooldesk_go/store"

	"github.com/gofiber/fiber/v2"
)

type EarlyLeaveController struct {
	earlyLeave *earlyleave.Service
	people     *people.Service
}

func NewEarlyLeaveController(e *earlyleave.Service, p *people.Service) *EarlyLeaveController {
	return &EarlyLeaveController{earlyLeave: e, people: p}
}

// RecordEarlyLeave stores a pickup and messages the guardian
func (ec *EarlyLeaveController) RecordEarlyLeave(c *fiber.Ctx) error {
	var in earlyleave.RecordInput
	if err := parseBody(c, &in); err != nil {
		return respondError(c, err)
	}
	if in.StudentID != 0 {
		st, err := ec.people.GetStudent(c.UserContext(), in.StudentID)
		if err != nil {
			return respondError(c, err)
		}
		if err := ensureTeaches(c, ec.people, st.Class, st.Section); err != nil {
			return respondError(c, err)
		}
	}
	res, err := ec.earlyLeave.Record(c.UserContext(), in, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":      "Early leave recorded",
		"earlyLeave":   res.EarlyLeave,
		"notification": res.Notification,
	})
}

// GetEarlyLeaves lists early leaves by class, section and date
func (ec *EarlyLeaveController) GetEarlyLeaves(c *fiber.Ctx) error {
	class, section := c.Query("class"), c.Query("section")
	if class != "" && section != "" {
		if err := ensureTeaches(c, ec.people, class, section); err != nil {
			return respondError(c, err)
		}
	} else if err := ensureTeaches(c, ec.people, "", ""); err != nil {
		// only admins may list across classes
		return respondError(c, err)
	}
	date, err := queryDate(c, "date")
	if err != nil {
		return respondError(c, err)
	}
	studentID, err := queryUint(c, "student_id")
	if err != nil {
		return respondError(c, err)
	}
	rows, err := ec.earlyLeave.List(c.UserContext(), store.EarlyLeaveQuery{StudentID: studentID, Class: class, Section: section, Date: date})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"earlyLeaves": rows, "count": len(rows)})
}
