// Package stats computes the admin dashboard counters.
package stats

import (
	"context"

	"schooldesk_go/apperrors"
	"schooldesk_go/models"
	"schooldesk_go/store"
)

type Repository interface {
	ListStudents(ctx context.Context, q store.StudentQuery) ([]models.Student, error)
	ListTeachers(ctx context.Context, q store.TeacherQuery) ([]models.Teacher, error)
	ListLeaves(ctx context.Context, q store.LeaveQuery) ([]models.Leave, error)
	ListFeedback(ctx context.Context, q store.FeedbackQuery) ([]models.Feedback, error)
	ListFees(ctx context.Context, q store.FeeQuery) ([]models.Fee, error)
}

type Dashboard struct {
	TotalStudents   int `json:"totalStudents"`
	TotalTeachers   int `json:"totalTeachers"`
	PendingLeaves   int `json:"pendingLeaves"`
	PendingFeedback int `json:"pendingFeedback"`
	PendingFees     int `json:"pendingFees"`
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	students, err := s.repo.ListStudents(ctx, store.StudentQuery{})
	if err != nil {
		return nil, apperrors.Internal(err, "failed to count students")
	}
	teachers, err := s.repo.ListTeachers(ctx, store.TeacherQuery{})
	if err != nil {
		return nil, apperrors.Internal(err, "failed to count teachers")
	}
	leaves, err := s.repo.ListLeaves(ctx, store.LeaveQuery{Status: models.LeavePending})
	if err != nil {
		return nil, apperrors.Internal(err, "failed to count leaves")
	}
	feedback, err := s.repo.ListFeedback(ctx, store.FeedbackQuery{Status: models.FeedbackPending})
	if err != nil {
		return nil, apperrors.Internal(err, "failed to count feedback")
	}
	fees, err := s.repo.ListFees(ctx, store.FeeQuery{Status: models.FeeStatusPending})
	if err != nil {
		return nil, apperrors.Internal(err, "failed to count fees")
	}
	return &Dashboard{
		TotalStudents:   len(students),
		TotalTeachers:   len(teachers),
		PendingLeaves:   len(leaves),
		PendingFeedback: len(feedback),
		PendingFees:     len(fees),
	}, nil
}
