package controllers

import (
	"schooldesk_go/services/people"
	"schooldesk_go/store"

	"github.com/gofiber/fiber/v2"
)

type TeacherController struct {
	people *people.Service
}

func NewTeacherController(p *people.Service) *TeacherController {
	return &TeacherController{people: p}
}

type teacherRequest struct {
	people.TeacherInput
	JoiningDate string `json:"joining_date"`
}

func (tc *TeacherController) CreateTeacher(c *fiber.Ctx) error {
	var req teacherRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	in := req.TeacherInput
	joined, err := optionalDate(req.JoiningDate)
	if err != nil {
		return respondError(c, err)
	}
	in.JoiningDate = joined
	t, err := tc.people.CreateTeacher(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Teacher created successfully", "teacher": t})
}

func (tc *TeacherController) GetTeachers(c *fiber.Ctx) error {
	rows, err := tc.people.ListTeachers(c.UserContext(), store.TeacherQuery{
		Class:      c.Query("class"),
		Section:    c.Query("section"),
		ActiveOnly: c.QueryBool("active"),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"teachers": rows, "count": len(rows)})
}

func (tc *TeacherController) GetTeacher(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	t, err := tc.people.GetTeacher(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"teacher": t})
}

func (tc *TeacherController) UpdateTeacher(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var in people.TeacherUpdate
	if err := parseBody(c, &in); err != nil {
		return respondError(c, err)
	}
	t, err := tc.people.UpdateTeacher(c.UserContext(), id, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Teacher updated successfully", "teacher": t})
}

// AssignClass sets the class/section a teacher is responsible for
func (tc *TeacherController) AssignClass(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var in people.ClassAssignmentInput
	if err := parseBody(c, &in); err != nil {
		return respondError(c, err)
	}
	t, err := tc.people.AssignClass(c.UserContext(), id, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Class assigned successfully", "teacher": t})
}

func (tc *TeacherController) DeleteTeacher(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	if err := tc.people.DeleteTeacher(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Teacher deleted successfully"})
}

// GetMyProfile returns the acting teacher's record
func (tc *TeacherController) GetMyProfile(c *fiber.Ctx) error {
	t, err := tc.people.TeacherByUser(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"teacher": t})
}
