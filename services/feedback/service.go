// Package feedback handles student feedback and its review.
package feedback

import (
	"context"
	"fmt"
	"strings"

	"schooldesk_go/apperrors"
	"schooldesk_go/models"
	"schooldesk_go/services/notifications"
	"schooldesk_go/store"
	"schooldesk_go/utils"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type Repository interface {
	store.FeedbackStore
	GetStudent(ctx context.Context, id uint) (*models.Student, error)
	GetStudentByUserID(ctx context.Context, userID uint) (*models.Student, error)
	GetTeacher(ctx context.Context, id uint) (*models.Teacher, error)
}

type Notifier interface {
	Notify(ctx context.Context, userID uint, n notifications.Notice)
}

type Service struct {
	repo     Repository
	notifier Notifier
	log      *logrus.Entry
}

func NewService(repo Repository, notifier Notifier) *Service {
	return &Service{repo: repo, notifier: notifier, log: logrus.WithField("component", "feedback")}
}

type SubmitInput struct {
	TeacherID *uint  `json:"teacher_id"`
	Subject   string `json:"subject"`
	Message   string `json:"message" validate:"required"`
	Rating    *int   `json:"rating" validate:"omitempty,min=1,max=5"`
}

type ReviewInput struct {
	Status        string `json:"status" validate:"required,oneof=pending reviewed resolved"`
	AdminResponse string `json:"admin_response"`
}

// Submit records feedback from the student behind studentUserID.
func (s *Service) Submit(ctx context.Context, studentUserID uint, in SubmitInput) (*models.Feedback, error) {
	if strings.TrimSpace(in.Message) == "" {
		return nil, apperrors.Validation("Please provide feedback message")
	}
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	student, err := s.repo.GetStudentByUserID(ctx, studentUserID)
	if err != nil {
		return nil, notFoundOr(err, "Student profile")
	}
	if in.TeacherID != nil && *in.TeacherID != 0 {
		if _, err := s.repo.GetTeacher(ctx, *in.TeacherID); err != nil {
			return nil, notFoundOr(err, "Teacher")
		}
	} else {
		in.TeacherID = nil
	}
	fb := &models.Feedback{
		StudentID: student.ID,
		TeacherID: in.TeacherID,
		Subject:   utils.SanitizeString(in.Subject),
		Message:   utils.SanitizeString(in.Message),
		Rating:    in.Rating,
		Status:    models.FeedbackPending,
	}
	if err := s.repo.CreateFeedback(ctx, fb); err != nil {
		return nil, apperrors.Internal(err, "failed to save feedback")
	}
	s.log.WithFields(logrus.Fields{"feedback_id": fb.ID, "student_id": student.ID}).Info("Feedback submitted")
	return fb, nil
}

// ForStudent lists the student's own feedback, newest first.
func (s *Service) ForStudent(ctx context.Context, studentUserID uint) ([]models.Feedback, error) {
	student, err := s.repo.GetStudentByUserID(ctx, studentUserID)
	if err != nil {
		return nil, notFoundOr(err, "Student profile")
	}
	return s.List(ctx, store.FeedbackQuery{StudentID: student.ID})
}

func (s *Service) List(ctx context.Context, q store.FeedbackQuery) ([]models.Feedback, error) {
	rows, err := s.repo.ListFeedback(ctx, q)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to list feedback")
	}
	return rows, nil
}

func (s *Service) Get(ctx context.Context, id uint) (*models.Feedback, error) {
	fb, err := s.repo.GetFeedback(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Feedback")
	}
	return fb, nil
}

// Review sets the status and response and tells the student.
func (s *Service) Review(ctx context.Context, id uint, in ReviewInput, reviewerID uint) (*models.Feedback, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, apperrors.Validation("Please provide valid status (pending/reviewed/resolved)")
	}
	fb, err := s.repo.GetFeedback(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Feedback")
	}
	fb.Status = in.Status
	fb.ReviewedBy = &reviewerID
	if resp := strings.TrimSpace(in.AdminResponse); resp != "" {
		fb.AdminResponse = utils.SanitizeString(resp)
	}
	if err := s.repo.UpdateFeedback(ctx, fb); err != nil {
		return nil, apperrors.Internal(err, "failed to update feedback")
	}

	if student, err := s.repo.GetStudent(ctx, fb.StudentID); err == nil && s.notifier != nil {
		s.notifier.Notify(ctx, student.UserID, notifications.Notice{
			Title:   "Feedback " + in.Status,
			Message: strings.TrimSpace(fmt.Sprintf("Your feedback was marked as %s. %s", in.Status, fb.AdminResponse)),
			Type:    "info",
			Data:    map[string]interface{}{"feedback_id": fb.ID, "status": in.Status},
		})
	}
	s.log.WithFields(logrus.Fields{"feedback_id": id, "status": in.Status}).Info("Feedback reviewed")
	return fb, nil
}

func notFoundOr(err error, resource string) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperrors.NotFound(resource)
	}
	return apperrors.Internal(err, "failed to load "+strings.ToLower(resource))
}
