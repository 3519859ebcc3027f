package store

import (
	"context"
	"strings"
	"time"

	"schooldesk_go/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// GormStore implements Store on MySQL through GORM.
type GormStore struct {
	db *gorm.DB
}

var _ Store = (*GormStore)(nil)

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// DB exposes the handle for infrastructure that is not part of the Store
// surface (activity logs, archives).
func (s *GormStore) DB() *gorm.DB {
	return s.db
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey), strings.Contains(err.Error(), "Duplicate entry"):
		return ErrDuplicate
	}
	return err
}

func (s *GormStore) first(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return translate(s.db.WithContext(ctx).Where(query, args...).First(dest).Error)
}

func (s *GormStore) deleteByID(ctx context.Context, model interface{}, id uint) error {
	res := s.db.WithContext(ctx).Delete(model, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Users

func (s *GormStore) CreateUser(ctx context.Context, u *models.User) error {
	return translate(s.db.WithContext(ctx).Create(u).Error)
}

func (s *GormStore) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.first(ctx, &u, "id = ?", id); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *GormStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := s.first(ctx, &u, "username = ?", username); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *GormStore) UpdateUser(ctx context.Context, u *models.User) error {
	return translate(s.db.WithContext(ctx).Save(u).Error)
}

func (s *GormStore) ListUsers(ctx context.Context, role string) ([]models.User, error) {
	var users []models.User
	q := s.db.WithContext(ctx).Order("role ASC, username ASC")
	if role != "" {
		q = q.Where("role = ?", role)
	}
	return users, q.Find(&users).Error
}

func (s *GormStore) DeleteUser(ctx context.Context, id uint) error {
	return s.deleteByID(ctx, &models.User{}, id)
}

// Students

func (s *GormStore) CreateStudent(ctx context.Context, st *models.Student) error {
	return translate(s.db.WithContext(ctx).Create(st).Error)
}

func (s *GormStore) GetStudent(ctx context.Context, id uint) (*models.Student, error) {
	var st models.Student
	if err := s.first(ctx, &st, "id = ?", id); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *GormStore) GetStudentByUserID(ctx context.Context, userID uint) (*models.Student, error) {
	var st models.Student
	if err := s.first(ctx, &st, "user_id = ?", userID); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *GormStore) ListStudents(ctx context.Context, q StudentQuery) ([]models.Student, error) {
	var students []models.Student
	db := s.db.WithContext(ctx).Order("class ASC, section ASC, name ASC, id ASC")
	if q.Class != "" {
		db = db.Where("class = ?", q.Class)
	}
	if q.Section != "" {
		db = db.Where("section = ?", q.Section)
	}
	if q.Search != "" {
		db = db.Where("name LIKE ?", "%"+q.Search+"%")
	}
	return students, db.Find(&students).Error
}

func (s *GormStore) UpdateStudent(ctx context.Context, st *models.Student) error {
	return translate(s.db.WithContext(ctx).Save(st).Error)
}

func (s *GormStore) DeleteStudent(ctx context.Context, id uint) error {
	return s.deleteByID(ctx, &models.Student{}, id)
}

// Teachers

func (s *GormStore) CreateTeacher(ctx context.Context, t *models.Teacher) error {
	return translate(s.db.WithContext(ctx).Create(t).Error)
}

func (s *GormStore) GetTeacher(ctx context.Context, id uint) (*models.Teacher, error) {
	var t models.Teacher
	if err := s.first(ctx, &t, "id = ?", id); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *GormStore) GetTeacherByUserID(ctx context.Context, userID uint) (*models.Teacher, error) {
	var t models.Teacher
	if err := s.first(ctx, &t, "user_id = ?", userID); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *GormStore) ListTeachers(ctx context.Context, q TeacherQuery) ([]models.Teacher, error) {
	var teachers []models.Teacher
	db := s.db.WithContext(ctx).Order("name ASC, id ASC")
	if q.ActiveOnly {
		db = db.Where("is_active = ?", true)
	}
	if err := db.Find(&teachers).Error; err != nil {
		return nil, err
	}
	if q.Class == "" {
		return teachers, nil
	}
	// AssignedClasses is a JSON column; filter in Go.
	out := teachers[:0]
	for _, t := range teachers {
		if t.Teaches(q.Class, q.Section) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *GormStore) UpdateTeacher(ctx context.Context, t *models.Teacher) error {
	return translate(s.db.WithContext(ctx).Save(t).Error)
}

func (s *GormStore) DeleteTeacher(ctx context.Context, id uint) error {
	return s.deleteByID(ctx, &models.Teacher{}, id)
}

// Fees

func (s *GormStore) CreateFee(ctx context.Context, f *models.Fee) error {
	return s.db.WithContext(ctx).Omit("Student", "Payments").Create(f).Error
}

func (s *GormStore) GetFee(ctx context.Context, id uint) (*models.Fee, error) {
	var f models.Fee
	err := s.db.WithContext(ctx).
		Preload("Student").
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&f, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &f, nil
}

func (s *GormStore) ListFees(ctx context.Context, q FeeQuery) ([]models.Fee, error) {
	var fees []models.Fee
	db := s.db.WithContext(ctx).
		Preload("Student").
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Order("due_date ASC, id ASC")
	if !q.IncludeVoided {
		db = db.Where("voided = ?", false)
	}
	if q.StudentID != 0 {
		db = db.Where("student_id = ?", q.StudentID)
	}
	if q.StudentIDs != nil {
		if len(q.StudentIDs) == 0 {
			return []models.Fee{}, nil
		}
		db = db.Where("student_id IN ?", q.StudentIDs)
	}
	if q.Class != "" {
		db = db.Where("class = ?", q.Class)
	}
	if q.Status != "" {
		db = db.Where("status = ?", q.Status)
	}
	if q.FeeType != "" {
		db = db.Where("fee_type = ?", q.FeeType)
	}
	return fees, db.Find(&fees).Error
}

// conditionalFeeUpdate is the compare-and-swap on fees.version.
func conditionalFeeUpdate(tx *gorm.DB, f *models.Fee, expectedVersion uint) error {
	res := tx.Model(&models.Fee{}).
		Where("id = ? AND version = ?", f.ID, expectedVersion).
		Updates(map[string]interface{}{
			"amount":         f.Amount,
			"amount_paid":    f.AmountPaid,
			"due_date":       f.DueDate,
			"paid_date":      f.PaidDate,
			"status":         f.Status,
			"payment_method": f.PaymentMethod,
			"remarks":        f.Remarks,
			"updated_by":     f.UpdatedBy,
			"is_overridden":  f.IsOverridden,
			"voided":         f.Voided,
			"void_reason":    f.VoidReason,
			"version":        expectedVersion + 1,
			"updated_at":     time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := tx.Model(&models.Fee{}).Where("id = ?", f.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	return nil
}

func (s *GormStore) SaveFee(ctx context.Context, f *models.Fee, expectedVersion uint) error {
	if err := conditionalFeeUpdate(s.db.WithContext(ctx), f, expectedVersion); err != nil {
		return err
	}
	f.Version = expectedVersion + 1
	return nil
}

func (s *GormStore) CommitPayment(ctx context.Context, f *models.Fee, expectedVersion uint, entry *models.FeePayment) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := conditionalFeeUpdate(tx, f, expectedVersion); err != nil {
			return err
		}
		entry.FeeID = f.ID
		return tx.Create(entry).Error
	})
	if err != nil {
		return err
	}
	f.Version = expectedVersion + 1
	f.Payments = append(f.Payments, *entry)
	return nil
}

func (s *GormStore) DeleteFee(ctx context.Context, id uint, expectedVersion uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND version = ?", id, expectedVersion).
			Where("NOT EXISTS (SELECT 1 FROM fee_payments WHERE fee_payments.fee_id = ?)", id).
			Delete(&models.Fee{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.Fee{}).Where("id = ?", id).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ErrNotFound
			}
			return ErrVersionConflict
		}
		return nil
	})
}

// Attendance

func (s *GormStore) ReplaceAttendance(ctx context.Context, key AttendanceKey, rows []models.Attendance) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Unscoped().
			Where("class = ? AND section = ? AND subject = ? AND date = ?", key.Class, key.Section, key.Subject, DateOnly(key.Date)).
			Delete(&models.Attendance{}).Error
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Omit("Student").Create(&rows).Error
	})
}

func (s *GormStore) ListAttendance(ctx context.Context, q AttendanceQuery) ([]models.Attendance, error) {
	var rows []models.Attendance
	db := s.db.WithContext(ctx).Preload("Student").Order("date DESC, id ASC")
	if q.StudentID != 0 {
		db = db.Where("student_id = ?", q.StudentID)
	}
	if q.Class != "" {
		db = db.Where("class = ?", q.Class)
	}
	if q.Section != "" {
		db = db.Where("section = ?", q.Section)
	}
	if q.Subject != "" {
		db = db.Where("subject = ?", q.Subject)
	}
	if q.From != nil {
		db = db.Where("date >= ?", DateOnly(*q.From))
	}
	if q.To != nil {
		db = db.Where("date <= ?", DateOnly(*q.To))
	}
	return rows, db.Find(&rows).Error
}

// Marks

func (s *GormStore) ReplaceMarks(ctx context.Context, marks []models.Mark) error {
	if len(marks) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range marks {
			err := tx.Unscoped().
				Where("student_id = ? AND subject = ? AND exam_type = ?", m.StudentID, m.Subject, m.ExamType).
				Delete(&models.Mark{}).Error
			if err != nil {
				return err
			}
		}
		return tx.Omit("Student").Create(&marks).Error
	})
}

func (s *GormStore) ListMarks(ctx context.Context, q MarkQuery) ([]models.Mark, error) {
	var marks []models.Mark
	db := s.db.WithContext(ctx).Preload("Student").Order("id ASC")
	if q.StudentID != 0 {
		db = db.Where("student_id = ?", q.StudentID)
	}
	if q.Class != "" {
		db = db.Where("class = ?", q.Class)
	}
	if q.Section != "" {
		db = db.Where("section = ?", q.Section)
	}
	if q.Subject != "" {
		db = db.Where("subject = ?", q.Subject)
	}
	if q.ExamType != "" {
		db = db.Where("exam_type = ?", q.ExamType)
	}
	return marks, db.Find(&marks).Error
}

// Leaves

func (s *GormStore) CreateLeave(ctx context.Context, l *models.Leave) error {
	return s.db.WithContext(ctx).Omit("Teacher").Create(l).Error
}

func (s *GormStore) GetLeave(ctx context.Context, id uint) (*models.Leave, error) {
	var l models.Leave
	if err := s.first(ctx, &l, "id = ?", id); err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *GormStore) ListLeaves(ctx context.Context, q LeaveQuery) ([]models.Leave, error) {
	var leaves []models.Leave
	db := s.db.WithContext(ctx).Preload("Teacher").Order("created_at DESC, id DESC")
	if q.TeacherID != 0 {
		db = db.Where("teacher_id = ?", q.TeacherID)
	}
	if q.Status != "" {
		db = db.Where("status = ?", q.Status)
	}
	return leaves, db.Find(&leaves).Error
}

func (s *GormStore) UpdateLeave(ctx context.Context, l *models.Leave) error {
	return s.db.WithContext(ctx).Omit("Teacher").Save(l).Error
}

// Feedback

func (s *GormStore) CreateFeedback(ctx context.Context, f *models.Feedback) error {
	return s.db.WithContext(ctx).Omit("Student").Create(f).Error
}

func (s *GormStore) GetFeedback(ctx context.Context, id uint) (*models.Feedback, error) {
	var f models.Feedback
	if err := s.first(ctx, &f, "id = ?", id); err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *GormStore) ListFeedback(ctx context.Context, q FeedbackQuery) ([]models.Feedback, error) {
	var out []models.Feedback
	db := s.db.WithContext(ctx).Preload("Student").Order("created_at DESC, id DESC")
	if q.StudentID != 0 {
		db = db.Where("student_id = ?", q.StudentID)
	}
	if q.Status != "" {
		db = db.Where("status = ?", q.Status)
	}
	return out, db.Find(&out).Error
}

func (s *GormStore) UpdateFeedback(ctx context.Context, f *models.Feedback) error {
	return s.db.WithContext(ctx).Omit("Student").Save(f).Error
}

// Early leaves

func (s *GormStore) CreateEarlyLeave(ctx context.Context, e *models.EarlyLeave) error {
	return s.db.WithContext(ctx).Create(e).Error
}

func (s *GormStore) ListEarlyLeaves(ctx context.Context, q EarlyLeaveQuery) ([]models.EarlyLeave, error) {
	var out []models.EarlyLeave
	db := s.db.WithContext(ctx).Order("leave_time DESC, id DESC")
	if q.StudentID != 0 {
		db = db.Where("student_id = ?", q.StudentID)
	}
	if q.Class != "" {
		db = db.Where("class = ?", q.Class)
	}
	if q.Section != "" {
		db = db.Where("section = ?", q.Section)
	}
	if q.Date != nil {
		day := DateOnly(*q.Date)
		db = db.Where("leave_time >= ? AND leave_time < ?", day, day.AddDate(0, 0, 1))
	}
	return out, db.Find(&out).Error
}

// Notifications

func (s *GormStore) CreateNotifications(ctx context.Context, n []models.Notification) error {
	if len(n) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Create(&n).Error
}

func (s *GormStore) ListNotifications(ctx context.Context, userID uint, unreadOnly bool, limit int) ([]models.Notification, error) {
	var out []models.Notification
	db := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC, id DESC")
	if unreadOnly {
		db = db.Where("`read` = ?", false)
	}
	if limit > 0 {
		db = db.Limit(limit)
	}
	return out, db.Find(&out).Error
}

func (s *GormStore) CountUnread(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND `read` = ?", userID, false).
		Count(&count).Error
	return count, err
}

func (s *GormStore) MarkNotificationRead(ctx context.Context, id, userID uint) error {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]interface{}{"read": true, "read_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) MarkAllNotificationsRead(ctx context.Context, userID uint) error {
	return s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND `read` = ?", userID, false).
		Updates(map[string]interface{}{"read": true, "read_at": time.Now()}).Error
}

// Activity

func (s *GormStore) CreateActivityLogs(ctx context.Context, logs []models.ActivityLog) error {
	if len(logs) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).CreateInBatches(&logs, 200).Error
}

func (s *GormStore) ListActivityLogs(ctx context.Context, q ActivityQuery) ([]models.ActivityLog, int64, error) {
	db := s.db.WithContext(ctx).Model(&models.ActivityLog{})
	if q.UserID != 0 {
		db = db.Where("user_id = ?", q.UserID)
	}
	if q.Action != "" {
		db = db.Where("action = ?", q.Action)
	}
	if q.Resource != "" {
		db = db.Where("resource = ?", q.Resource)
	}
	if q.From != nil {
		db = db.Where("created_at >= ?", *q.From)
	}
	if q.To != nil {
		db = db.Where("created_at < ?", *q.To)
	}
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var logs []models.ActivityLog
	page := db.Order("id ASC").Offset(q.Offset)
	if q.Limit > 0 {
		page = page.Limit(q.Limit)
	}
	return logs, total, page.Find(&logs).Error
}

func (s *GormStore) DeleteActivityLogsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Unscoped().Where("created_at < ?", cutoff).Delete(&models.ActivityLog{})
	return res.RowsAffected, res.Error
}

func (s *GormStore) CreateLogArchive(ctx context.Context, a *models.LogArchive) error {
	return s.db.WithContext(ctx).Create(a).Error
}

func (s *GormStore) ListLogArchives(ctx context.Context) ([]models.LogArchive, error) {
	var archives []models.LogArchive
	return archives, s.db.WithContext(ctx).Order("created_at DESC").Find(&archives).Error
}

func (s *GormStore) GetLogArchive(ctx context.Context, id uint) (*models.LogArchive, error) {
	var a models.LogArchive
	if err := s.first(ctx, &a, "id = ?", id); err != nil {
		return nil, err
	}
	return &a, nil
}
