package controllers

import (
	"time"

	"schooldesk_go/apperrors"
	"schooldesk_go/services/attendance"
	"schooldesk_go/services/people"
	"schooldesk_go/services/reports"
	"schooldesk_go/store"
	"schooldesk_go/utils"

	"github.com/gofiber/fiber/v2"
)

type AttendanceController struct {
	attendance *attendance.Service
	people     *people.Service
}

func NewAttendanceController(a *attendance.Service, p *people.Service) *AttendanceController {
	return &AttendanceController{attendance: a, people: p}
}

type markAttendanceRequest struct {
	Class      string                   `json:"class"`
	Section    string                   `json:"section"`
	Subject    string                   `json:"subject"`
	Date       string                   `json:"date"`
	Attendance []attendance.RecordInput `json:"attendance"`
}

// MarkAttendance replaces the attendance of one class, subject and day
func (ac *AttendanceController) MarkAttendance(c *fiber.Ctx) error {
	var req markAttendanceRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	if err := ensureTeaches(c, ac.people, req.Class, req.Section); err != nil {
		return respondError(c, err)
	}
	date, err := optionalDate(req.Date)
	if err != nil {
		return respondError(c, err)
	}
	rows, err := ac.attendance.MarkAttendance(c.UserContext(), attendance.MarkInput{
		Class:   req.Class,
		Section: req.Section,
		Subject: req.Subject,
		Date:    date,
		Records: req.Attendance,
	}, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Attendance marked successfully", "attendance": rows, "count": len(rows)})
}

// GetClassAttendance returns one day's attendance with the class roster
func (ac *AttendanceController) GetClassAttendance(c *fiber.Ctx) error {
	class, section := c.Query("class"), c.Query("section")
	if err := ensureTeaches(c, ac.people, class, section); err != nil {
		return respondError(c, err)
	}
	day, err := queryDate(c, "date")
	if err != nil {
		return respondError(c, err)
	}
	if day == nil {
		today := store.DateOnly(time.Now())
		day = &today
	}
	roster, err := ac.attendance.Roster(c.UserContext(), class, section)
	if err != nil {
		return respondError(c, err)
	}
	rows, err := ac.attendance.ForDay(c.UserContext(), class, section, c.Query("subject"), *day)
	if err != nil {
		return respondError(c, err)
	}
	students := make([]*utils.StudentShort, 0, len(roster))
	for i := range roster {
		students = append(students, utils.ToStudentShort(&roster[i]))
	}
	return c.JSON(fiber.Map{"students": students, "attendance": rows})
}

// GetStatistics aggregates a class/section per subject
func (ac *AttendanceController) GetStatistics(c *fiber.Ctx) error {
	class, section := c.Query("class"), c.Query("section")
	if err := ensureTeaches(c, ac.people, class, section); err != nil {
		return respondError(c, err)
	}
	from, err := queryDate(c, "start_date")
	if err != nil {
		return respondError(c, err)
	}
	to, err := queryDate(c, "end_date")
	if err != nil {
		return respondError(c, err)
	}
	stats, err := ac.attendance.ComputeAttendanceStatistics(c.UserContext(), attendance.StatsQuery{
		Class: class, Section: section, Subject: c.Query("subject"), From: from, To: to,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}

func attendanceQuery(c *fiber.Ctx) (store.AttendanceQuery, error) {
	studentID, err := queryUint(c, "student_id")
	if err != nil {
		return store.AttendanceQuery{}, err
	}
	from, err := queryDate(c, "start_date")
	if err != nil {
		return store.AttendanceQuery{}, err
	}
	to, err := queryDate(c, "end_date")
	if err != nil {
		return store.AttendanceQuery{}, err
	}
	return store.AttendanceQuery{
		StudentID: studentID,
		Class:     c.Query("class"),
		Section:   c.Query("section"),
		Subject:   c.Query("subject"),
		From:      from,
		To:        to,
	}, nil
}

// GetAttendance is the admin listing
func (ac *AttendanceController) GetAttendance(c *fiber.Ctx) error {
	q, err := attendanceQuery(c)
	if err != nil {
		return respondError(c, err)
	}
	rows, err := ac.attendance.List(c.UserContext(), q)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"attendance": rows, "count": len(rows)})
}

// ExportAttendance downloads the filtered rows as XLSX
func (ac *AttendanceController) ExportAttendance(c *fiber.Ctx) error {
	q, err := attendanceQuery(c)
	if err != nil {
		return respondError(c, err)
	}
	rows, err := ac.attendance.List(c.UserContext(), q)
	if err != nil {
		return respondError(c, err)
	}
	buf, err := reports.Attendance(rows)
	if err != nil {
		return respondError(c, apperrors.Internal(err, "failed to build attendance export"))
	}
	return sendXLSX(c, "attendance_"+time.Now().Format("20060102")+".xlsx", buf.Bytes())
}

// GetMyAttendance returns the acting student's attendance and statistics
func (ac *AttendanceController) GetMyAttendance(c *fiber.Ctx) error {
	st, err := ac.people.StudentByUser(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	from, err := queryDate(c, "start_date")
	if err != nil {
		return respondError(c, err)
	}
	to, err := queryDate(c, "end_date")
	if err != nil {
		return respondError(c, err)
	}
	rows, stats, err := ac.attendance.StudentAttendance(c.UserContext(), st.ID, from, to)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"attendance": rows, "statistics": stats})
}
