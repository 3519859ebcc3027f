// Package leaves handles teacher leave requests and their review.
package leaves

import (
	"context"
	"fmt"
	"strings"
	"time"

	"schooldesk_go/apperrors"
	"schooldesk_go/models"
	"schooldesk_go/services/notifications"
	"schooldesk_go/store"
	"schooldesk_go/utils"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type Repository interface {
	store.LeaveStore
	GetTeacher(ctx context.Context, id uint) (*models.Teacher, error)
	GetTeacherByUserID(ctx context.Context, userID uint) (*models.Teacher, error)
}

// Notifier receives in-app notices; *notifications.Service satisfies it.
type Notifier interface {
	Notify(ctx context.Context, userID uint, n notifications.Notice)
}

type Service struct {
	repo     Repository
	notifier Notifier
	log      *logrus.Entry
}

func NewService(repo Repository, notifier Notifier) *Service {
	return &Service{repo: repo, notifier: notifier, log: logrus.WithField("component", "leaves")}
}

type ApplyInput struct {
	StartDate *time.Time `json:"start_date" validate:"required"`
	EndDate   *time.Time `json:"end_date" validate:"required"`
	Reason    string     `json:"reason" validate:"required"`
}

type ReviewInput struct {
	Status        string `json:"status" validate:"required,oneof=approved rejected"`
	AdminResponse string `json:"admin_response"`
}

// Apply files a pending leave for the teacher behind teacherUserID.
func (s *Service) Apply(ctx context.Context, teacherUserID uint, in ApplyInput) (*models.Leave, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, apperrors.Validation("Please provide start date, end date, and reason")
	}
	if strings.TrimSpace(in.Reason) == "" {
		return nil, apperrors.Validation("Please provide start date, end date, and reason")
	}
	if in.EndDate.Before(*in.StartDate) {
		return nil, apperrors.Validation("end_date must not be before start_date")
	}
	teacher, err := s.repo.GetTeacherByUserID(ctx, teacherUserID)
	if err != nil {
		return nil, notFoundOr(err, "Teacher profile")
	}
	leave := &models.Leave{
		TeacherID: teacher.ID,
		StartDate: *in.StartDate,
		EndDate:   *in.EndDate,
		Reason:    utils.SanitizeString(in.Reason),
		Status:    models.LeavePending,
	}
	if err := s.repo.CreateLeave(ctx, leave); err != nil {
		return nil, apperrors.Internal(err, "failed to save leave")
	}
	s.log.WithFields(logrus.Fields{"leave_id": leave.ID, "teacher_id": teacher.ID}).Info("Leave applied")
	return leave, nil
}

// ForTeacher lists the teacher's own leaves, newest first.
func (s *Service) ForTeacher(ctx context.Context, teacherUserID uint) ([]models.Leave, error) {
	teacher, err := s.repo.GetTeacherByUserID(ctx, teacherUserID)
	if err != nil {
		return nil, notFoundOr(err, "Teacher profile")
	}
	return s.List(ctx, store.LeaveQuery{TeacherID: teacher.ID})
}

func (s *Service) List(ctx context.Context, q store.LeaveQuery) ([]models.Leave, error) {
	rows, err := s.repo.ListLeaves(ctx, q)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to list leaves")
	}
	return rows, nil
}

func (s *Service) Get(ctx context.Context, id uint) (*models.Leave, error) {
	leave, err := s.repo.GetLeave(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Leave")
	}
	return leave, nil
}

// Review approves or rejects a leave and tells the teacher.
func (s *Service) Review(ctx context.Context, id uint, in ReviewInput, reviewerID uint) (*models.Leave, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, apperrors.Validation("Please provide valid status (approved/rejected)")
	}
	leave, err := s.repo.GetLeave(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Leave")
	}
	leave.Status = in.Status
	leave.ReviewedBy = &reviewerID
	if resp := strings.TrimSpace(in.AdminResponse); resp != "" {
		leave.AdminResponse = utils.SanitizeString(resp)
	}
	if err := s.repo.UpdateLeave(ctx, leave); err != nil {
		return nil, apperrors.Internal(err, "failed to update leave")
	}

	if teacher, err := s.repo.GetTeacher(ctx, leave.TeacherID); err == nil && s.notifier != nil {
		typ := "success"
		if in.Status == models.LeaveRejected {
			typ = "warning"
		}
		s.notifier.Notify(ctx, teacher.UserID, notifications.Notice{
			Title:   fmt.Sprintf("Leave %s", in.Status),
			Message: strings.TrimSpace(fmt.Sprintf("Your leave from %s to %s was %s. %s", leave.StartDate.Format("02 Jan 2006"), leave.EndDate.Format("02 Jan 2006"), in.Status, leave.AdminResponse)),
			Type:    typ,
			Data:    map[string]interface{}{"leave_id": leave.ID, "status": in.Status},
		})
	}
	s.log.WithFields(logrus.Fields{"leave_id": id, "status": in.Status, "reviewed_by": reviewerID}).Info("Leave reviewed")
	return leave, nil
}

func notFoundOr(err error, resource string) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperrors.NotFound(resource)
	}
	return apperrors.Internal(err, "failed to load "+strings.ToLower(resource))
}
