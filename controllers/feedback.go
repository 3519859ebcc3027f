package controllers

import (
	"schooldesk_go/services/feedback"
	"schooldesk_go/store"

	"github.com/gofiber/fiber/v2"
)

type FeedbackController struct {
	feedback *feedback.Service
}

func NewFeedbackController(f *feedback.Service) *FeedbackController {
	return &FeedbackController{feedback: f}
}

// SubmitFeedback records feedback from the acting student
func (fc *FeedbackController) SubmitFeedback(c *fiber.Ctx) error {
	var in feedback.SubmitInput
	if err := parseBody(c, &in); err != nil {
		return respondError(c, err)
	}
	fb, err := fc.feedback.Submit(c.UserContext(), currentUserID(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Feedback submitted", "feedback": fb})
}

func (fc *FeedbackController) GetMyFeedback(c *fiber.Ctx) error {
	rows, err := fc.feedback.ForStudent(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"feedback": rows, "count": len(rows)})
}

func (fc *FeedbackController) GetFeedback(c *fiber.Ctx) error {
	studentID, err := queryUint(c, "student_id")
	if err != nil {
		return respondError(c, err)
	}
	rows, err := fc.feedback.List(c.UserContext(), store.FeedbackQuery{StudentID: studentID, Status: c.Query("status")})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"feedback": rows, "count": len(rows)})
}

func (fc *FeedbackController) GetFeedbackByID(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	fb, err := fc.feedback.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"feedback": fb})
}

// ReviewFeedback sets the status and response and notifies the student
func (fc *FeedbackController) ReviewFeedback(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var in feedback.ReviewInput
	if err := parseBody(c, &in); err != nil {
		return respondError(c, err)
	}
	fb, err := fc.feedback.Review(c.UserContext(), id, in, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Feedback updated", "feedback": fb})
}
