// Package people manages the user accounts behind admins, teachers and
// students, and the student and teacher records attached to them.
package people

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"schooldesk_go/apperrors"
	"schooldesk_go/models"
	"schooldesk_go/services/messaging"
	"schooldesk_go/store"
	"schooldesk_go/utils"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type Repository interface {
	store.UserStore
	store.StudentStore
	store.TeacherStore
}

type Service struct {
	repo        Repository
	countryCode string
	log         *logrus.Entry
}

func NewService(repo Repository, countryCode string) *Service {
	if countryCode == "" {
		countryCode = messaging.DefaultCountryCode
	}
	return &Service{repo: repo, countryCode: countryCode, log: logrus.WithField("component", "people")}
}

type StudentInput struct {
	Name           string     `json:"name" validate:"required"`
	Class          string     `json:"class" validate:"required"`
	Section        string     `json:"section" validate:"required"`
	DOB            *time.Time `json:"dob" validate:"required"`
	FatherName     string     `json:"father_name"`
	MotherName     string     `json:"mother_name"`
	GuardianPhone  string     `json:"guardian_phone" validate:"required"`
	GuardianLineID string     `json:"guardian_line_id"`
	Address        string     `json:"address"`
	Photo          string     `json:"photo"`
	AdmissionDate  *time.Time `json:"admission_date"`
}

// StudentUpdate applies only the fields that are set.
type StudentUpdate struct {
	Name           *string    `json:"name"`
	Class          *string    `json:"class"`
	Section        *string    `json:"section"`
	DOB            *time.Time `json:"dob"`
	FatherName     *string    `json:"father_name"`
	MotherName     *string    `json:"mother_name"`
	GuardianPhone  *string    `json:"guardian_phone"`
	GuardianLineID *string    `json:"guardian_line_id"`
	Address        *string    `json:"address"`
	Photo          *string    `json:"photo"`
}

// Credentials are returned once, when an account is generated.
type Credentials struct {
	Username        string `json:"username"`
	DefaultPassword string `json:"default_password"`
}

var whitespace = regexp.MustCompile(`\s+`)

// BaseUsername is name_class_section, lower-cased with whitespace runs
// collapsed to underscores.
func BaseUsername(name, class, section string) string {
	slug := whitespace.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "_")
	return fmt.Sprintf("%s_%s_%s", slug, class, section)
}

// DefaultPassword is the date of birth as DDMMYYYY.
func DefaultPassword(dob time.Time) string {
	return dob.Format("02012006")
}

func (s *Service) normalizeGuardianPhone(raw string) (string, error) {
	phone, ok := messaging.NormalizePhone(raw, s.countryCode)
	if !ok {
		return "", apperrors.Validation("guardian_phone %q is not a valid mobile number", raw)
	}
	return phone, nil
}

// uniqueUsername appends _1, _2, ... to base until no user holds it.
func (s *Service) uniqueUsername(ctx context.Context, base string) (string, error) {
	candidate := base
	for i := 1; ; i++ {
		_, err := s.repo.GetUserByUsername(ctx, candidate)
		if errors.Is(err, store.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", apperrors.Internal(err, "failed to check username")
		}
		candidate = fmt.Sprintf("%s_%d", base, i)
	}
}

// CreateStudent creates the student's login and profile.
func (s *Service) CreateStudent(ctx context.Context, in StudentInput) (*models.Student, *Credentials, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, nil, err
	}
	phone, err := s.normalizeGuardianPhone(in.GuardianPhone)
	if err != nil {
		return nil, nil, err
	}
	guardianLine := strings.TrimSpace(in.GuardianLineID)

	name := utils.SanitizeString(in.Name)
	username, err := s.uniqueUsername(ctx, BaseUsername(name, in.Class, in.Section))
	if err != nil {
		return nil, nil, err
	}
	password := DefaultPassword(*in.DOB)
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, nil, apperrors.Internal(err, "failed to hash password")
	}

	user := &models.User{Username: username, Password: hash, Phone: phone, Role: models.RoleStudent, IsActive: true}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, nil, apperrors.Conflict("Username already exists")
		}
		return nil, nil, apperrors.Internal(err, "failed to create user")
	}

	admission := time.Now()
	if in.AdmissionDate != nil {
		admission = *in.AdmissionDate
	}
	dob := store.DateOnly(*in.DOB)
	student := &models.Student{
		UserID:         user.ID,
		Name:           name,
		Class:          in.Class,
		Section:        in.Section,
		DOB:            &dob,
		FatherName:     utils.SanitizeString(in.FatherName),
		MotherName:     utils.SanitizeString(in.MotherName),
		GuardianPhone:  phone,
		GuardianLineID: guardianLine,
		Address:        utils.SanitizeString(in.Address),
		Photo:          in.Photo,
		AdmissionDate:  admission,
	}
	if err := s.repo.CreateStudent(ctx, student); err != nil {
		if delErr := s.repo.DeleteUser(ctx, user.ID); delErr != nil {
			s.log.WithError(delErr).WithField("user_id", user.ID).Error("Failed to remove orphaned user")
		}
		return nil, nil, apperrors.Internal(err, "failed to create student")
	}

	s.log.WithFields(logrus.Fields{"student_id": student.ID, "username": username}).Info("Student created")
	return student, &Credentials{Username: username, DefaultPassword: password}, nil
}

func (s *Service) GetStudent(ctx context.Context, id uint) (*models.Student, error) {
	st, err := s.repo.GetStudent(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Student")
	}
	return st, nil
}

func (s *Service) StudentByUser(ctx context.Context, userID uint) (*models.Student, error) {
	st, err := s.repo.GetStudentByUserID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "Student profile")
	}
	return st, nil
}

func (s *Service) ListStudents(ctx context.Context, q store.StudentQuery) ([]models.Student, error) {
	rows, err := s.repo.ListStudents(ctx, q)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to list students")
	}
	return rows, nil
}

func (s *Service) UpdateStudent(ctx context.Context, id uint, in StudentUpdate) (*models.Student, error) {
	st, err := s.repo.GetStudent(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Student")
	}
	setString(&st.Name, in.Name)
	setString(&st.Class, in.Class)
	setString(&st.Section, in.Section)
	setString(&st.FatherName, in.FatherName)
	setString(&st.MotherName, in.MotherName)
	setString(&st.Address, in.Address)
	setString(&st.Photo, in.Photo)
	if in.GuardianLineID != nil {
		st.GuardianLineID = strings.TrimSpace(*in.GuardianLineID)
	}
	if in.DOB != nil {
		dob := store.DateOnly(*in.DOB)
		st.DOB = &dob
	}
	if in.GuardianPhone != nil && strings.TrimSpace(*in.GuardianPhone) != "" {
		phone, err := s.normalizeGuardianPhone(*in.GuardianPhone)
		if err != nil {
			return nil, err
		}
		st.GuardianPhone = phone
	}
	if err := s.repo.UpdateStudent(ctx, st); err != nil {
		return nil, apperrors.Internal(err, "failed to update student")
	}
	return st, nil
}

// DeleteStudent removes the profile and its login.
func (s *Service) DeleteStudent(ctx context.Context, id uint) error {
	st, err := s.repo.GetStudent(ctx, id)
	if err != nil {
		return notFoundOr(err, "Student")
	}
	if err := s.repo.DeleteUser(ctx, st.UserID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return apperrors.Internal(err, "failed to delete user")
	}
	if err := s.repo.DeleteStudent(ctx, id); err != nil {
		return notFoundOr(err, "Student")
	}
	s.log.WithField("student_id", id).Info("Student deleted")
	return nil
}

// TeacherCreateStudent is CreateStudent restricted to the acting teacher's classes.
func (s *Service) TeacherCreateStudent(ctx context.Context, teacherUserID uint, in StudentInput) (*models.Student, *Credentials, error) {
	t, err := s.TeacherByUser(ctx, teacherUserID)
	if err != nil {
		return nil, nil, err
	}
	if !t.Teaches(in.Class, in.Section) {
		return nil, nil, apperrors.Forbidden("Not authorized to add students to this class")
	}
	return s.CreateStudent(ctx, in)
}

// TeacherDeleteStudent is DeleteStudent restricted to the acting teacher's classes.
func (s *Service) TeacherDeleteStudent(ctx context.Context, teacherUserID, studentID uint) error {
	t, err := s.TeacherByUser(ctx, teacherUserID)
	if err != nil {
		return err
	}
	st, err := s.GetStudent(ctx, studentID)
	if err != nil {
		return err
	}
	if !t.Teaches(st.Class, st.Section) {
		return apperrors.Forbidden("Not authorized to delete this student")
	}
	return s.DeleteStudent(ctx, studentID)
}

// TeacherStudents lists the students a teacher sees. An explicit class and
// section are honoured as given; otherwise the teacher's primary assignment
// is used, and a teacher with none sees nobody.
func (s *Service) TeacherStudents(ctx context.Context, teacherUserID uint, class, section string) ([]models.Student, error) {
	if class != "" && section != "" {
		return s.ListStudents(ctx, store.StudentQuery{Class: class, Section: section})
	}
	t, err := s.TeacherByUser(ctx, teacherUserID)
	if err != nil {
		return nil, err
	}
	if t.AssignedClass == "" || t.AssignedSection == "" {
		return []models.Student{}, nil
	}
	return s.ListStudents(ctx, store.StudentQuery{Class: t.AssignedClass, Section: t.AssignedSection})
}

func setString(dst *string, v *string) {
	if v != nil && strings.TrimSpace(*v) != "" {
		*dst = utils.SanitizeString(*v)
	}
}

func notFoundOr(err error, resource string) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperrors.NotFound(resource)
	}
	return apperrors.Internal(err, "failed to load "+strings.ToLower(resource))
}
