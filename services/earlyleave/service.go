// Package earlyleave records students picked up before the end of the day
// and tells their guardian over SMS and WhatsApp.
package earlyleave

import (
	"context"
	"fmt"
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
	store.EarlyLeaveStore
	GetStudent(ctx context.Context, id uint) (*models.Student, error)
}

type Service struct {
	repo          Repository
	notifier      messaging.Notifier
	notifyTimeout time.Duration
	now           func() time.Time
	loc           *time.Location
	log           *logrus.Entry
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the zone the pickup time is written in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithNotifyTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.notifyTimeout = d
		}
	}
}

func NewService(repo Repository, notifier messaging.Notifier, opts ...Option) *Service {
	s := &Service{
		repo:          repo,
		notifier:      notifier,
		notifyTimeout: 15 * time.Second,
		now:           time.Now,
		loc:           time.Local,
		log:           logrus.WithField("component", "earlyleave"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

type RecordInput struct {
	StudentID        uint   `json:"student_id" validate:"required"`
	PickupPersonName string `json:"pickup_person_name" validate:"required"`
	Relation         string `json:"relation" validate:"required"`
}

// Result is the stored record plus what each channel reported.
type Result struct {
	EarlyLeave   *models.EarlyLeave `json:"early_leave"`
	Notification messaging.Outcome  `json:"notification"`
}

// FormatMessage is the guardian text, with a 12-hour clock time.
func FormatMessage(studentName string, at time.Time, pickup, relation string) string {
	return fmt.Sprintf("Your child %s left school at %s with %s, Relation: %s",
		studentName, at.Format("03:04 PM"), pickup, relation)
}

// Record notifies the guardian and stores the event once, with the outcome.
func (s *Service) Record(ctx context.Context, in RecordInput, actorID uint) (*Result, error) {
	in.PickupPersonName = utils.SanitizeString(in.PickupPersonName)
	in.Relation = utils.SanitizeString(in.Relation)
	if err := utils.ValidateStruct(in); err != nil {
		return nil, apperrors.Validation("Please provide student ID, pickup person name, and relation")
	}
	student, err := s.repo.GetStudent(ctx, in.StudentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("Student")
		}
		return nil, apperrors.Internal(err, "failed to load student")
	}

	leftAt := s.now().In(s.loc)
	record := &models.EarlyLeave{
		StudentID:        student.ID,
		StudentName:      student.Name,
		Class:            student.Class,
		Section:          student.Section,
		PickupPersonName: in.PickupPersonName,
		Relation:         in.Relation,
		LeaveTime:        leftAt,
		ParentMobile:     student.GuardianPhone,
		SMSStatus:        models.SMSStatusFailed,
		MarkedBy:         actorID,
	}

	outcome := messaging.Skipped("student has no guardian phone")
	if strings.TrimSpace(student.GuardianPhone) != "" {
		nctx, cancel := context.WithTimeout(ctx, s.notifyTimeout)
		outcome = s.notifier.SendAll(nctx, student.GuardianPhone,
			FormatMessage(student.Name, leftAt, in.PickupPersonName, in.Relation),
			messaging.ChannelSMS, messaging.ChannelWhatsApp)
		cancel()
	}
	if outcome.AnySucceeded() {
		record.SMSSent = true
		record.SMSStatus = models.SMSStatusSent
	}

	if err := s.repo.CreateEarlyLeave(ctx, record); err != nil {
		return nil, apperrors.Internal(err, "failed to save early leave")
	}
	s.log.WithFields(logrus.Fields{
		"early_leave_id": record.ID,
		"student_id":     student.ID,
		"sms_status":     record.SMSStatus,
	}).Info("Early leave recorded")
	return &Result{EarlyLeave: record, Notification: outcome}, nil
}

// List filters by class, section and calendar day of the pickup.
func (s *Service) List(ctx context.Context, q store.EarlyLeaveQuery) ([]models.EarlyLeave, error) {
	rows, err := s.repo.ListEarlyLeaves(ctx, q)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to list early leaves")
	}
	return rows, nil
}
