// Package attendance records class attendance with replace-on-resubmit
// semantics and aggregates it per subject and per student.
package attendance

import (
	"context"
	"time"

	"schooldesk_go/apperrors"
	"schooldesk_go/models"
	"schooldesk_go/store"
	"schooldesk_go/utils"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type Repository interface {
	store.AttendanceStore
	GetStudent(ctx context.Context, id uint) (*models.Student, error)
	ListStudents(ctx context.Context, q store.StudentQuery) ([]models.Student, error)
}

type Service struct {
	repo Repository
	log  *logrus.Entry
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, log: logrus.WithField("component", "attendance")}
}

type RecordInput struct {
	StudentID uint   `json:"student_id" validate:"required"`
	Status    string `json:"status" validate:"required,oneof=present absent late"`
}

type MarkInput struct {
	Class   string        `json:"class" validate:"required"`
	Section string        `json:"section" validate:"required"`
	Subject string        `json:"subject"`
	Date    *time.Time    `json:"date" validate:"required"`
	Records []RecordInput `json:"attendance" validate:"dive"`
}

// StatsQuery filters the rows fed to ComputeAttendanceStatistics. Subject
// "all" or empty means every subject bucket.
type StatsQuery struct {
	Class   string
	Section string
	Subject string
	From    *time.Time
	To      *time.Time
}

func subjectOrAll(s string) string {
	if s == "" {
		return models.SubjectAll
	}
	return s
}

// subjectFilter turns the read-side "all" into no filter.
func subjectFilter(s string) string {
	if s == models.SubjectAll {
		return ""
	}
	return s
}

// MarkAttendance replaces the whole (class, section, subject, date) bucket
// with records. Submitting the same roster twice leaves one copy.
func (s *Service) MarkAttendance(ctx context.Context, in MarkInput, actorID uint) ([]models.Attendance, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	subject := subjectOrAll(utils.SanitizeString(in.Subject))
	day := store.DateOnly(*in.Date)

	roster, err := s.repo.ListStudents(ctx, store.StudentQuery{Class: in.Class, Section: in.Section})
	if err != nil {
		return nil, apperrors.Internal(err, "failed to load class roster")
	}
	enrolled := make(map[uint]bool, len(roster))
	for _, st := range roster {
		enrolled[st.ID] = true
	}

	seen := make(map[uint]bool, len(in.Records))
	rows := make([]models.Attendance, 0, len(in.Records))
	for _, r := range in.Records {
		if seen[r.StudentID] {
			return nil, apperrors.Validation("student %d appears more than once", r.StudentID)
		}
		seen[r.StudentID] = true
		if !enrolled[r.StudentID] {
			return nil, apperrors.Validation("student %d is not in class %s-%s", r.StudentID, in.Class, in.Section)
		}
		rows = append(rows, models.Attendance{
			StudentID: r.StudentID,
			Class:     in.Class,
			Section:   in.Section,
			Subject:   subject,
			Date:      day,
			Status:    r.Status,
			MarkedBy:  actorID,
		})
	}

	key := store.AttendanceKey{Class: in.Class, Section: in.Section, Subject: subject, Date: day}
	if err := s.repo.ReplaceAttendance(ctx, key, rows); err != nil {
		return nil, apperrors.Internal(err, "failed to save attendance")
	}
	s.log.WithFields(logrus.Fields{
		"class":   in.Class,
		"section": in.Section,
		"subject": subject,
		"date":    day.Format("2006-01-02"),
		"count":   len(rows),
	}).Info("Attendance marked")
	return rows, nil
}

// Roster lists the students of a class/section, ordered by name.
func (s *Service) Roster(ctx context.Context, class, section string) ([]models.Student, error) {
	if class == "" || section == "" {
		return nil, apperrors.Validation("class and section are required")
	}
	students, err := s.repo.ListStudents(ctx, store.StudentQuery{Class: class, Section: section})
	if err != nil {
		return nil, apperrors.Internal(err, "failed to list students")
	}
	return students, nil
}

// ForDay returns the rows of one class/section/day, optionally one subject.
func (s *Service) ForDay(ctx context.Context, class, section, subject string, day time.Time) ([]models.Attendance, error) {
	if class == "" || section == "" {
		return nil, apperrors.Validation("class and section are required")
	}
	return s.list(ctx, store.AttendanceQuery{
		Class:   class,
		Section: section,
		Subject: subjectFilter(subject),
		From:    &day,
		To:      &day,
	})
}

// List is the unscoped admin view.
func (s *Service) List(ctx context.Context, q store.AttendanceQuery) ([]models.Attendance, error) {
	q.Subject = subjectFilter(q.Subject)
	return s.list(ctx, q)
}

func (s *Service) list(ctx context.Context, q store.AttendanceQuery) ([]models.Attendance, error) {
	rows, err := s.repo.ListAttendance(ctx, q)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to list attendance")
	}
	return rows, nil
}

// ComputeAttendanceStatistics aggregates one class/section per subject bucket.
func (s *Service) ComputeAttendanceStatistics(ctx context.Context, q StatsQuery) (*ClassStatistics, error) {
	if q.Class == "" || q.Section == "" {
		return nil, apperrors.Validation("class and section are required")
	}
	rows, err := s.list(ctx, store.AttendanceQuery{
		Class:   q.Class,
		Section: q.Section,
		Subject: subjectFilter(q.Subject),
		From:    q.From,
		To:      q.To,
	})
	if err != nil {
		return nil, err
	}
	stats := AggregateBySubject(rows)
	return &stats, nil
}

// StudentAttendance returns a student's rows (newest first) and their summary.
func (s *Service) StudentAttendance(ctx context.Context, studentID uint, from, to *time.Time) ([]models.Attendance, StudentStatistics, error) {
	if _, err := s.repo.GetStudent(ctx, studentID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, StudentStatistics{}, apperrors.NotFound("Student")
		}
		return nil, StudentStatistics{}, apperrors.Internal(err, "failed to load student")
	}
	rows, err := s.list(ctx, store.AttendanceQuery{StudentID: studentID, From: from, To: to})
	if err != nil {
		return nil, StudentStatistics{}, err
	}
	return rows, SummarizeStudent(rows), nil
}

func (s *Service) ComputeStudentAttendanceStatistics(ctx context.Context, studentID uint, from, to *time.Time) (StudentStatistics, error) {
	_, stats, err := s.StudentAttendance(ctx, studentID, from, to)
	return stats, err
}
