// Package marks stores exam scores and derives grades and summaries from them.
package marks

import (
	"context"

	"schooldesk_go/apperrors"
	"schooldesk_go/models"
	"schooldesk_go/store"
	"schooldesk_go/utils"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type Repository interface {
	store.MarkStore
	GetStudent(ctx context.Context, id uint) (*models.Student, error)
	ListStudents(ctx context.Context, q store.StudentQuery) ([]models.Student, error)
}

type Service struct {
	repo Repository
	log  *logrus.Entry
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, log: logrus.WithField("component", "marks")}
}

type EntryInput struct {
	StudentID     uint    `json:"student_id" validate:"required"`
	MarksObtained float64 `json:"marks_obtained" validate:"gte=0"`
	TotalMarks    float64 `json:"total_marks" validate:"gt=0"`
}

type UploadInput struct {
	Class    string       `json:"class" validate:"required"`
	Section  string       `json:"section" validate:"required"`
	Subject  string       `json:"subject" validate:"required"`
	ExamType string       `json:"exam_type" validate:"required,oneof=unit_test mid_term final assignment quiz"`
	Marks    []EntryInput `json:"marks" validate:"min=1,dive"`
}

// Report is a student's marks with grouped and summarized views.
type Report struct {
	Marks          []ScoredMark      `json:"marks"`
	MarksBySubject []SubjectGroup    `json:"marksBySubject"`
	ExamSummaries  []ExamTypeSummary `json:"examSummaries"`
}

// UploadMarks stores one mark per entry, replacing an earlier upload for the
// same student, subject and exam type. Every entry is checked before anything
// is written.
func (s *Service) UploadMarks(ctx context.Context, in UploadInput, actorID uint) ([]models.Mark, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	roster, err := s.repo.ListStudents(ctx, store.StudentQuery{Class: in.Class, Section: in.Section})
	if err != nil {
		return nil, apperrors.Internal(err, "failed to load class roster")
	}
	enrolled := make(map[uint]bool, len(roster))
	for _, st := range roster {
		enrolled[st.ID] = true
	}

	rows := make([]models.Mark, 0, len(in.Marks))
	seen := make(map[uint]bool, len(in.Marks))
	for _, e := range in.Marks {
		if seen[e.StudentID] {
			return nil, apperrors.Validation("student %d appears more than once", e.StudentID)
		}
		seen[e.StudentID] = true
		if e.MarksObtained > e.TotalMarks {
			return nil, apperrors.Validation("marks_obtained (%v) exceeds total_marks (%v) for student %d", e.MarksObtained, e.TotalMarks, e.StudentID)
		}
		if !enrolled[e.StudentID] {
			return nil, apperrors.Validation("student %d is not in class %s-%s", e.StudentID, in.Class, in.Section)
		}
		rows = append(rows, models.Mark{
			StudentID:     e.StudentID,
			Class:         in.Class,
			Section:       in.Section,
			Subject:       utils.SanitizeString(in.Subject),
			ExamType:      in.ExamType,
			MarksObtained: e.MarksObtained,
			TotalMarks:    e.TotalMarks,
			UploadedBy:    actorID,
		})
	}
	if err := s.repo.ReplaceMarks(ctx, rows); err != nil {
		return nil, apperrors.Internal(err, "failed to save marks")
	}
	s.log.WithFields(logrus.Fields{
		"class":     in.Class,
		"section":   in.Section,
		"subject":   in.Subject,
		"exam_type": in.ExamType,
		"count":     len(rows),
	}).Info("Marks uploaded")
	return rows, nil
}

// List returns scored marks for the filter.
func (s *Service) List(ctx context.Context, q store.MarkQuery) ([]ScoredMark, error) {
	rows, err := s.repo.ListMarks(ctx, q)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to list marks")
	}
	out := make([]ScoredMark, 0, len(rows))
	for _, m := range rows {
		out = append(out, Score(m))
	}
	return out, nil
}

// StudentReport builds the student-facing marks view.
func (s *Service) StudentReport(ctx context.Context, studentID uint, subject, examType string) (*Report, error) {
	if _, err := s.repo.GetStudent(ctx, studentID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("Student")
		}
		return nil, apperrors.Internal(err, "failed to load student")
	}
	rows, err := s.repo.ListMarks(ctx, store.MarkQuery{StudentID: studentID, Subject: subject, ExamType: examType})
	if err != nil {
		return nil, apperrors.Internal(err, "failed to list marks")
	}
	scored := make([]ScoredMark, 0, len(rows))
	for _, m := range rows {
		scored = append(scored, Score(m))
	}
	return &Report{
		Marks:          scored,
		MarksBySubject: GroupMarksBySubjectAndExam(rows),
		ExamSummaries:  SummarizeByExamType(rows),
	}, nil
}
