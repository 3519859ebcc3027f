package people

import (
	"context"
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

type TeacherInput struct {
	Name            string                   `json:"name" validate:"required"`
	Username        string                   `json:"username" validate:"required,min=3"`
	Password        string                   `json:"password" validate:"required,min=6"`
	Email           string                   `json:"email" validate:"omitempty,email"`
	Phone           string                   `json:"phone"`
	Subject         string                   `json:"subject"`
	Qualification   string                   `json:"qualification"`
	Experience      int                      `json:"experience" validate:"gte=0"`
	AssignedClass   string                   `json:"assigned_class"`
	AssignedSection string                   `json:"assigned_section"`
	AssignedClasses []models.ClassAssignment `json:"assigned_classes"`
	JoiningDate     *time.Time               `json:"joining_date"`
}

type TeacherUpdate struct {
	Name            *string                  `json:"name"`
	Email           *string                  `json:"email"`
	Phone           *string                  `json:"phone"`
	Subject         *string                  `json:"subject"`
	Qualification   *string                  `json:"qualification"`
	Experience      *int                     `json:"experience"`
	AssignedClass   *string                  `json:"assigned_class"`
	AssignedSection *string                  `json:"assigned_section"`
	AssignedClasses *[]models.ClassAssignment `json:"assigned_classes"`
}

type ClassAssignmentInput struct {
	AssignedClass   string                   `json:"assigned_class"`
	AssignedSection string                   `json:"assigned_section"`
	AssignedClasses []models.ClassAssignment `json:"assigned_classes"`
}

func (s *Service) normalizePhone(raw string) (string, error) {
	phone, ok := messaging.NormalizeOptionalPhone(raw, s.countryCode)
	if !ok {
		return "", apperrors.Validation("phone %q is not a valid mobile number", raw)
	}
	return phone, nil
}

func (s *Service) ensureEmailFree(ctx context.Context, email string, self uint) error {
	if email == "" {
		return nil
	}
	teachers, err := s.repo.ListTeachers(ctx, store.TeacherQuery{})
	if err != nil {
		return apperrors.Internal(err, "failed to check email")
	}
	for _, t := range teachers {
		if t.ID != self && strings.EqualFold(t.Email, email) {
			return apperrors.Conflict("Email already in use")
		}
	}
	return nil
}

// CreateTeacher creates the teacher's login and profile.
func (s *Service) CreateTeacher(ctx context.Context, in TeacherInput) (*models.Teacher, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	phone, err := s.normalizePhone(in.Phone)
	if err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if err := s.ensureEmailFree(ctx, email, 0); err != nil {
		return nil, err
	}
	username := strings.TrimSpace(in.Username)
	if _, err := s.repo.GetUserByUsername(ctx, username); err == nil {
		return nil, apperrors.Conflict("Username already exists")
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.Internal(err, "failed to check username")
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to hash password")
	}
	user := &models.User{Username: username, Password: hash, Email: email, Phone: phone, Role: models.RoleTeacher, IsActive: true}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperrors.Conflict("Username already exists")
		}
		return nil, apperrors.Internal(err, "failed to create user")
	}

	joined := time.Now()
	if in.JoiningDate != nil {
		joined = *in.JoiningDate
	}
	teacher := &models.Teacher{
		UserID:          user.ID,
		Name:            utils.SanitizeString(in.Name),
		Email:           email,
		Phone:           phone,
		Subject:         utils.SanitizeString(in.Subject),
		Qualification:   utils.SanitizeString(in.Qualification),
		Experience:      in.Experience,
		AssignedClass:   strings.TrimSpace(in.AssignedClass),
		AssignedSection: strings.TrimSpace(in.AssignedSection),
		AssignedClasses: in.AssignedClasses,
		JoiningDate:     joined,
		IsActive:        true,
	}
	if err := s.repo.CreateTeacher(ctx, teacher); err != nil {
		if delErr := s.repo.DeleteUser(ctx, user.ID); delErr != nil {
			s.log.WithError(delErr).WithField("user_id", user.ID).Error("Failed to remove orphaned user")
		}
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperrors.Conflict("Email already in use")
		}
		return nil, apperrors.Internal(err, "failed to create teacher")
	}
	s.log.WithFields(logrus.Fields{"teacher_id": teacher.ID, "username": username}).Info("Teacher created")
	return teacher, nil
}

func (s *Service) GetTeacher(ctx context.Context, id uint) (*models.Teacher, error) {
	t, err := s.repo.GetTeacher(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Teacher")
	}
	return t, nil
}

func (s *Service) TeacherByUser(ctx context.Context, userID uint) (*models.Teacher, error) {
	t, err := s.repo.GetTeacherByUserID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "Teacher profile")
	}
	return t, nil
}

func (s *Service) ListTeachers(ctx context.Context, q store.TeacherQuery) ([]models.Teacher, error) {
	rows, err := s.repo.ListTeachers(ctx, q)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to list teachers")
	}
	return rows, nil
}

// UpdateTeacher applies the set fields. Email and phone are mirrored onto the
// teacher's user account.
func (s *Service) UpdateTeacher(ctx context.Context, id uint, in TeacherUpdate) (*models.Teacher, error) {
	t, err := s.repo.GetTeacher(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Teacher")
	}
	if in.Name != nil {
		t.Name = utils.SanitizeString(*in.Name)
	}
	if in.Subject != nil {
		t.Subject = utils.SanitizeString(*in.Subject)
	}
	if in.Qualification != nil {
		t.Qualification = utils.SanitizeString(*in.Qualification)
	}
	if in.Experience != nil {
		if *in.Experience < 0 {
			return nil, apperrors.Validation("experience must be 0 or more")
		}
		t.Experience = *in.Experience
	}
	if in.AssignedClass != nil {
		t.AssignedClass = strings.TrimSpace(*in.AssignedClass)
	}
	if in.AssignedSection != nil {
		t.AssignedSection = strings.TrimSpace(*in.AssignedSection)
	}
	if in.AssignedClasses != nil {
		t.AssignedClasses = *in.AssignedClasses
	}
	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		if err := s.ensureEmailFree(ctx, email, t.ID); err != nil {
			return nil, err
		}
		t.Email = email
	}
	if in.Phone != nil {
		phone, err := s.normalizePhone(*in.Phone)
		if err != nil {
			return nil, err
		}
		t.Phone = phone
	}
	if err := s.repo.UpdateTeacher(ctx, t); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperrors.Conflict("Email already in use")
		}
		return nil, apperrors.Internal(err, "failed to update teacher")
	}

	if in.Email != nil || in.Phone != nil {
		user, err := s.repo.GetUser(ctx, t.UserID)
		switch {
		case errors.Is(err, store.ErrNotFound):
		case err != nil:
			return nil, apperrors.Internal(err, "failed to load user")
		default:
			if in.Email != nil {
				user.Email = t.Email
			}
			if in.Phone != nil {
				user.Phone = t.Phone
			}
			if err := s.repo.UpdateUser(ctx, user); err != nil {
				return nil, apperrors.Internal(err, "failed to update user")
			}
		}
	}
	return t, nil
}

// AssignClass replaces the teacher's class assignment; blanks clear it.
func (s *Service) AssignClass(ctx context.Context, id uint, in ClassAssignmentInput) (*models.Teacher, error) {
	t, err := s.repo.GetTeacher(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Teacher")
	}
	t.AssignedClass = strings.TrimSpace(in.AssignedClass)
	t.AssignedSection = strings.TrimSpace(in.AssignedSection)
	if in.AssignedClasses != nil {
		t.AssignedClasses = in.AssignedClasses
	}
	if err := s.repo.UpdateTeacher(ctx, t); err != nil {
		return nil, apperrors.Internal(err, "failed to assign class")
	}
	s.log.WithFields(logrus.Fields{"teacher_id": id, "class": t.AssignedClass, "section": t.AssignedSection}).Info("Class assignment updated")
	return t, nil
}

// DeleteTeacher removes the profile and its login.
func (s *Service) DeleteTeacher(ctx context.Context, id uint) error {
	t, err := s.repo.GetTeacher(ctx, id)
	if err != nil {
		return notFoundOr(err, "Teacher")
	}
	if err := s.repo.DeleteUser(ctx, t.UserID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return apperrors.Internal(err, "failed to delete user")
	}
	if err := s.repo.DeleteTeacher(ctx, id); err != nil {
		return notFoundOr(err, "Teacher")
	}
	s.log.WithField("teacher_id", id).Info("Teacher deleted")
	return nil
}
