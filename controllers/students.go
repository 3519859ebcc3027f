package controllers

import (
	"context"
	"io"

	"schooldesk_go/apperrors"
	"schooldesk_go/middleware"
	"schooldesk_go/models"
	"schooldesk_go/services/people"
	"schooldesk_go/services/reports"
	"schooldesk_go/storage"
	"schooldesk_go/store"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// PhotoUploader stores an image and returns its URL.
type PhotoUploader interface {
	UploadPhoto(ctx context.Context, folder string, ownerID uint, filename string, content []byte) (string, error)
	DeleteFile(ctx context.Context, fileURL string) error
}

type StudentController struct {
	people   *people.Service
	photos   PhotoUploader
	activity middleware.ActivityRecorder
}

func NewStudentController(p *people.Service, photos PhotoUploader, rec middleware.ActivityRecorder) *StudentController {
	return &StudentController{people: p, photos: photos, activity: rec}
}

type studentRequest struct {
	Name           string `json:"name"`
	Class          string `json:"class"`
	Section        string `json:"section"`
	DOB            string `json:"dob"`
	FatherName     string `json:"father_name"`
	MotherName     string `json:"mother_name"`
	GuardianPhone  string `json:"guardian_phone"`
	GuardianLineID string `json:"guardian_line_id"`
	Address        string `json:"address"`
	Photo          string `json:"photo"`
	AdmissionDate  string `json:"admission_date"`
}

func (r studentRequest) toInput() (people.StudentInput, error) {
	dob, err := optionalDate(r.DOB)
	if err != nil {
		return people.StudentInput{}, err
	}
	admission, err := optionalDate(r.AdmissionDate)
	if err != nil {
		return people.StudentInput{}, err
	}
	return people.StudentInput{
		Name:           r.Name,
		Class:          r.Class,
		Section:        r.Section,
		DOB:            dob,
		FatherName:     r.FatherName,
		MotherName:     r.MotherName,
		GuardianPhone:  r.GuardianPhone,
		GuardianLineID: r.GuardianLineID,
		Address:        r.Address,
		Photo:          r.Photo,
		AdmissionDate:  admission,
	}, nil
}

type studentUpdateRequest struct {
	people.StudentUpdate
	DOB *string `json:"dob"`
}

func (sc *StudentController) createdResponse(c *fiber.Ctx, st *models.Student, creds *people.Credentials) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":     "Student created successfully",
		"student":     st,
		"credentials": creds,
	})
}

// CreateStudent creates a student and its login (admin)
func (sc *StudentController) CreateStudent(c *fiber.Ctx) error {
	var req studentRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	in, err := req.toInput()
	if err != nil {
		return respondError(c, err)
	}
	st, creds, err := sc.people.CreateStudent(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return sc.createdResponse(c, st, creds)
}

// GetStudents lists students filtered by class, section and search
func (sc *StudentController) GetStudents(c *fiber.Ctx) error {
	rows, err := sc.people.ListStudents(c.UserContext(), store.StudentQuery{
		Class:   c.Query("class"),
		Section: c.Query("section"),
		Search:  c.Query("search"),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"students": rows, "count": len(rows)})
}

func (sc *StudentController) GetStudent(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	st, err := sc.people.GetStudent(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"student": st})
}

func (sc *StudentController) UpdateStudent(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req studentUpdateRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	in := req.StudentUpdate
	if req.DOB != nil {
		if in.DOB, err = optionalDate(*req.DOB); err != nil {
			return respondError(c, err)
		}
	}
	st, err := sc.people.UpdateStudent(c.UserContext(), id, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Student updated successfully", "student": st})
}

func (sc *StudentController) DeleteStudent(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	if err := sc.people.DeleteStudent(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Student deleted successfully"})
}

// UploadPhoto stores a multipart "photo" file on S3 and saves its URL
func (sc *StudentController) UploadPhoto(c *fiber.Ctx) error {
	if sc.photos == nil {
		return respondError(c, apperrors.Validation("Photo storage is not configured"))
	}
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	current, err := sc.people.GetStudent(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	fh, err := c.FormFile("photo")
	if err != nil {
		return badRequest(c, "photo file is required")
	}
	if fh.Size > storage.MaxPhotoSize {
		return badRequest(c, "photo must be 5MB or smaller")
	}
	f, err := fh.Open()
	if err != nil {
		return badRequest(c, "could not read photo")
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return badRequest(c, "could not read photo")
	}

	url, err := sc.photos.UploadPhoto(c.UserContext(), "students", id, fh.Filename, content)
	if err == storage.ErrUnsupportedType {
		return badRequest(c, "photo must be jpg, png, webp or gif")
	}
	if err != nil {
		return respondError(c, apperrors.Internal(err, "failed to upload photo"))
	}
	st, err := sc.people.UpdateStudent(c.UserContext(), id, people.StudentUpdate{Photo: &url})
	if err != nil {
		return respondError(c, err)
	}
	if current.Photo != "" && current.Photo != url {
		if err := sc.photos.DeleteFile(c.UserContext(), current.Photo); err != nil {
			logrus.WithError(err).WithField("student_id", id).Warn("Failed to delete previous photo")
		}
	}
	return c.JSON(fiber.Map{"message": "Photo uploaded successfully", "student": st})
}

// ImportStudents creates one student per row of an uploaded XLSX "file".
// Rows that fail are reported and do not stop the rest.
func (sc *StudentController) ImportStudents(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "file is required")
	}
	f, err := fh.Open()
	if err != nil {
		return badRequest(c, "could not read file")
	}
	defer f.Close()

	rows, rowErrs, err := reports.StudentRows(f)
	if err != nil {
		return respondError(c, err)
	}
	type created struct {
		Row         int                 `json:"row"`
		StudentID   uint                `json:"student_id"`
		Credentials *people.Credentials `json:"credentials"`
	}
	results := []created{}
	for _, row := range rows {
		st, creds, err := sc.people.CreateStudent(c.UserContext(), row.Input)
		if err != nil {
			rowErrs = append(rowErrs, reports.RowError{Row: row.Row, Message: err.Error()})
			continue
		}
		results = append(results, created{Row: row.Row, StudentID: st.ID, Credentials: creds})
	}
	middleware.LogActivity(c, sc.activity, "IMPORT", "students", 0, fiber.Map{"created": len(results), "failed": len(rowErrs)})
	return c.JSON(fiber.Map{
		"message": "Import finished",
		"created": results,
		"errors":  rowErrs,
	})
}

// GetTeacherStudents lists the acting teacher's students
func (sc *StudentController) GetTeacherStudents(c *fiber.Ctx) error {
	rows, err := sc.people.TeacherStudents(c.UserContext(), currentUserID(c), c.Query("class"), c.Query("section"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"students": rows, "count": len(rows)})
}

func (sc *StudentController) TeacherCreateStudent(c *fiber.Ctx) error {
	var req studentRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	in, err := req.toInput()
	if err != nil {
		return respondError(c, err)
	}
	st, creds, err := sc.people.TeacherCreateStudent(c.UserContext(), currentUserID(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return sc.createdResponse(c, st, creds)
}

func (sc *StudentController) TeacherDeleteStudent(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	if err := sc.people.TeacherDeleteStudent(c.UserContext(), currentUserID(c), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Student deleted successfully"})
}

// GetMyProfile returns the acting student's record
func (sc *StudentController) GetMyProfile(c *fiber.Ctx) error {
	st, err := sc.people.StudentByUser(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"student": st})
}
