package controllers

import (
	"schooldesk_go/services/marks"
	"schooldesk_go/services/people"
	"schooldesk_go/store"

	"github.com/gofiber/fiber/v2"
)

type MarksController struct {
	marks  *marks.Service
	people *people.Service
}

func NewMarksController(m *marks.Service, p *people.Service) *MarksController {
	return &MarksController{marks: m, people: p}
}

// UploadMarks stores one exam's marks for a class/section and subject
func (mc *MarksController) UploadMarks(c *fiber.Ctx) error {
	var in marks.UploadInput
	if err := parseBody(c, &in); err != nil {
		return respondError(c, err)
	}
	if err := ensureTeaches(c, mc.people, in.Class, in.Section); err != nil {
		return respondError(c, err)
	}
	rows, err := mc.marks.UploadMarks(c.UserContext(), in, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Marks uploaded successfully", "marks": rows, "count": len(rows)})
}

// GetClassMarks lists marks of a class/section the caller may see
func (mc *MarksController) GetClassMarks(c *fiber.Ctx) error {
	class, section := c.Query("class"), c.Query("section")
	if err := ensureTeaches(c, mc.people, class, section); err != nil {
		return respondError(c, err)
	}
	rows, err := mc.marks.List(c.UserContext(), store.MarkQuery{
		Class: class, Section: section, Subject: c.Query("subject"), ExamType: c.Query("exam_type"),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"marks": rows, "count": len(rows)})
}

// GetMarks is the admin listing
func (mc *MarksController) GetMarks(c *fiber.Ctx) error {
	studentID, err := queryUint(c, "student_id")
	if err != nil {
		return respondError(c, err)
	}
	rows, err := mc.marks.List(c.UserContext(), store.MarkQuery{
		StudentID: studentID,
		Class:     c.Query("class"),
		Section:   c.Query("section"),
		Subject:   c.Query("subject"),
		ExamType:  c.Query("exam_type"),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"marks": rows, "count": len(rows)})
}

// GetMyMarks returns the acting student's report
func (mc *MarksController) GetMyMarks(c *fiber.Ctx) error {
	st, err := mc.people.StudentByUser(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	report, err := mc.marks.StudentReport(c.UserContext(), st.ID, c.Query("subject"), c.Query("exam_type"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(report)
}
