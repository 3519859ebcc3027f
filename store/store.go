// Package store is the persistence boundary. Services depend on the narrow
// per-entity interfaces; GormStore backs production and Memory backs tests
// and local development.
package store

import (
	"context"
	"time"

	"schooldesk_go/models"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned when a row does not exist (or is soft-deleted).
	ErrNotFound = errors.New("store: record not found")
	// ErrVersionConflict is returned by conditional fee writes when the stored
	// version no longer matches the version the caller read.
	ErrVersionConflict = errors.New("store: version conflict")
	// ErrDuplicate is returned on unique-key collisions (usernames, emails).
	ErrDuplicate = errors.New("store: duplicate key")
)

type StudentQuery struct {
	Class   string
	Section string
	Search  string
}

type TeacherQuery struct {
	Class      string
	Section    string
	ActiveOnly bool
}

type FeeQuery struct {
	StudentID     uint
	StudentIDs    []uint
	Class         string
	Status        string
	FeeType       string
	IncludeVoided bool
}

// AttendanceKey identifies one replace-on-write attendance bucket.
type AttendanceKey struct {
	Class   string
	Section string
	Subject string
	Date    time.Time
}

type AttendanceQuery struct {
	StudentID uint
	Class     string
	Section   string
	Subject   string // empty means any subject
	From      *time.Time
	To        *time.Time
}

type MarkQuery struct {
	StudentID uint
	Class     string
	Section   string
	Subject   string
	ExamType  string
}

type LeaveQuery struct {
	TeacherID uint
	Status    string
}

type FeedbackQuery struct {
	StudentID uint
	Status    string
}

type EarlyLeaveQuery struct {
	StudentID uint
	Class     string
	Section   string
	Date      *time.Time
}

type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id uint) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateUser(ctx context.Context, u *models.User) error
	ListUsers(ctx context.Context, role string) ([]models.User, error)
	DeleteUser(ctx context.Context, id uint) error
}

type StudentStore interface {
	CreateStudent(ctx context.Context, s *models.Student) error
	GetStudent(ctx context.Context, id uint) (*models.Student, error)
	GetStudentByUserID(ctx context.Context, userID uint) (*models.Student, error)
	ListStudents(ctx context.Context, q StudentQuery) ([]models.Student, error)
	UpdateStudent(ctx context.Context, s *models.Student) error
	DeleteStudent(ctx context.Context, id uint) error
}

type TeacherStore interface {
	CreateTeacher(ctx context.Context, t *models.Teacher) error
	GetTeacher(ctx context.Context, id uint) (*models.Teacher, error)
	GetTeacherByUserID(ctx context.Context, userID uint) (*models.Teacher, error)
	ListTeachers(ctx context.Context, q TeacherQuery) ([]models.Teacher, error)
	UpdateTeacher(ctx context.Context, t *models.Teacher) error
	DeleteTeacher(ctx context.Context, id uint) error
}

type FeeStore interface {
	CreateFee(ctx context.Context, f *models.Fee) error
	// GetFee loads the fee together with its payment history, oldest first.
	GetFee(ctx context.Context, id uint) (*models.Fee, error)
	ListFees(ctx context.Context, q FeeQuery) ([]models.Fee, error)
	// SaveFee writes the mutable fee columns iff the stored version equals
	// expectedVersion, and bumps Version on success.
	SaveFee(ctx context.Context, f *models.Fee, expectedVersion uint) error
	// CommitPayment is SaveFee plus the insert of entry, in one transaction.
	CommitPayment(ctx context.Context, f *models.Fee, expectedVersion uint, entry *models.FeePayment) error
	// DeleteFee removes the fee iff its stored version equals expectedVersion
	// and it has no payment entries. Returns ErrVersionConflict otherwise.
	DeleteFee(ctx context.Context, id uint, expectedVersion uint) error
}

type AttendanceStore interface {
	// ReplaceAttendance deletes every row in key's bucket and inserts rows, atomically.
	ReplaceAttendance(ctx context.Context, key AttendanceKey, rows []models.Attendance) error
	ListAttendance(ctx context.Context, q AttendanceQuery) ([]models.Attendance, error)
}

type MarkStore interface {
	// ReplaceMarks stores marks, removing any existing row with the same
	// (student, subject, exam type) first, atomically.
	ReplaceMarks(ctx context.Context, marks []models.Mark) error
	ListMarks(ctx context.Context, q MarkQuery) ([]models.Mark, error)
}

type LeaveStore interface {
	CreateLeave(ctx context.Context, l *models.Leave) error
	GetLeave(ctx context.Context, id uint) (*models.Leave, error)
	ListLeaves(ctx context.Context, q LeaveQuery) ([]models.Leave, error)
	UpdateLeave(ctx context.Context, l *models.Leave) error
}

type FeedbackStore interface {
	CreateFeedback(ctx context.Context, f *models.Feedback) error
	GetFeedback(ctx context.Context, id uint) (*models.Feedback, error)
	ListFeedback(ctx context.Context, q FeedbackQuery) ([]models.Feedback, error)
	UpdateFeedback(ctx context.Context, f *models.Feedback) error
}

type EarlyLeaveStore interface {
	CreateEarlyLeave(ctx context.Context, e *models.EarlyLeave) error
	ListEarlyLeaves(ctx context.Context, q EarlyLeaveQuery) ([]models.EarlyLeave, error)
}

type NotificationStore interface {
	CreateNotifications(ctx context.Context, n []models.Notification) error
	ListNotifications(ctx context.Context, userID uint, unreadOnly bool, limit int) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID uint) (int64, error)
	MarkNotificationRead(ctx context.Context, id, userID uint) error
	MarkAllNotificationsRead(ctx context.Context, userID uint) error
}

type ActivityQuery struct {
	UserID   uint
	Action   string
	Resource string
	From     *time.Time
	To       *time.Time // exclusive
	Limit    int
	Offset   int
}

// ActivityStore holds the audit trail and the records of its S3 archives.
type ActivityStore interface {
	CreateActivityLogs(ctx context.Context, logs []models.ActivityLog) error
	// ListActivityLogs returns one page, oldest first, and the total match count.
	ListActivityLogs(ctx context.Context, q ActivityQuery) ([]models.ActivityLog, int64, error)
	DeleteActivityLogsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	CreateLogArchive(ctx context.Context, a *models.LogArchive) error
	ListLogArchives(ctx context.Context) ([]models.LogArchive, error)
	GetLogArchive(ctx context.Context, id uint) (*models.LogArchive, error)
}

// Store is the full persistence surface wired in main.
type Store interface {
	UserStore
	StudentStore
	TeacherStore
	FeeStore
	AttendanceStore
	MarkStore
	LeaveStore
	FeedbackStore
	EarlyLeaveStore
	NotificationStore
	ActivityStore
}

// DateOnly truncates t to midnight UTC of its calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
