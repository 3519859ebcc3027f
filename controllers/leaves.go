package controllers

import (
	"schooldesk_go/services/leaves"
	"schooldesk_go/store"

	"github.com/gofiber/fiber/v2"
)

type LeaveController struct {
	leaves *leaves.Service
}

func NewLeaveController(l *leaves.Service) *LeaveController {
	return &LeaveController{leaves: l}
}

type applyLeaveRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Reason    string `json:"reason"`
}

// ApplyLeave files a leave request for the acting teacher
func (lc *LeaveController) ApplyLeave(c *fiber.Ctx) error {
	var req applyLeaveRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	start, err := optionalDate(req.StartDate)
	if err != nil {
		return respondError(c, err)
	}
	end, err := optionalDate(req.EndDate)
	if err != nil {
		return respondError(c, err)
	}
	leave, err := lc.leaves.Apply(c.UserContext(), currentUserID(c), leaves.ApplyInput{StartDate: start, EndDate: end, Reason: req.Reason})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Leave application submitted", "leave": leave})
}

func (lc *LeaveController) GetMyLeaves(c *fiber.Ctx) error {
	rows, err := lc.leaves.ForTeacher(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"leaves": rows, "count": len(rows)})
}

func (lc *LeaveController) GetLeaves(c *fiber.Ctx) error {
	teacherID, err := queryUint(c, "teacher_id")
	if err != nil {
		return respondError(c, err)
	}
	rows, err := lc.leaves.List(c.UserContext(), store.LeaveQuery{TeacherID: teacherID, Status: c.Query("status")})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"leaves": rows, "count": len(rows)})
}

func (lc *LeaveController) GetLeave(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	leave, err := lc.leaves.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"leave": leave})
}

// ReviewLeave approves or rejects a leave and notifies the teacher
func (lc *LeaveController) ReviewLeave(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var in leaves.ReviewInput
	if err := parseBody(c, &in); err != nil {
		return respondError(c, err)
	}
	leave, err := lc.leaves.Review(c.UserContext(), id, in, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Leave " + leave.Status, "leave": leave})
}
