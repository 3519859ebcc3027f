package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"schooldesk_go/models"
)

// Memory is a mutex-guarded in-process Store. Every read returns a copy so
// callers can never mutate stored state without going through a write method.
type Memory struct {
	mu     sync.Mutex
	nextID uint

	users         map[uint]models.User
	students      map[uint]models.Student
	teachers      map[uint]models.Teacher
	fees          map[uint]models.Fee
	payments      map[uint][]models.FeePayment
	attendance    map[uint]models.Attendance
	marks         map[uint]models.Mark
	leaves        map[uint]models.Leave
	feedback      map[uint]models.Feedback
	earlyLeaves   map[uint]models.EarlyLeave
	notifications map[uint]models.Notification
	activity      map[uint]models.ActivityLog
	archives      map[uint]models.LogArchive
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		users:         map[uint]models.User{},
		students:      map[uint]models.Student{},
		teachers:      map[uint]models.Teacher{},
		fees:          map[uint]models.Fee{},
		payments:      map[uint][]models.FeePayment{},
		attendance:    map[uint]models.Attendance{},
		marks:         map[uint]models.Mark{},
		leaves:        map[uint]models.Leave{},
		feedback:      map[uint]models.Feedback{},
		earlyLeaves:   map[uint]models.EarlyLeave{},
		notifications: map[uint]models.Notification{},
		activity:      map[uint]models.ActivityLog{},
		archives:      map[uint]models.LogArchive{},
	}
}

// id must be called with mu held.
func (m *Memory) id() uint {
	m.nextID++
	return m.nextID
}

func stamp(b *models.BaseModel, id uint) {
	now := time.Now()
	b.ID = id
	b.CreatedAt = now
	b.UpdatedAt = now
}

func sortedIDs[T any](rows map[uint]T) []uint {
	ids := make([]uint, 0, len(rows))
	for id := range rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Users

func (m *Memory) CreateUser(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if strings.EqualFold(existing.Username, u.Username) {
			return ErrDuplicate
		}
	}
	stamp(&u.BaseModel, m.id())
	m.users[u.ID] = *u
	return nil
}

func (m *Memory) GetUser(ctx context.Context, id uint) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *Memory) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Username, username) {
			u := u
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) UpdateUser(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return ErrNotFound
	}
	u.UpdatedAt = time.Now()
	m.users[u.ID] = *u
	return nil
}

func (m *Memory) ListUsers(ctx context.Context, role string) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.User{}
	for _, id := range sortedIDs(m.users) {
		u := m.users[id]
		if role != "" && u.Role != role {
			continue
		}
		out = append(out, u)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Role != out[j].Role {
			return out[i].Role < out[j].Role
		}
		return out[i].Username < out[j].Username
	})
	return out, nil
}

func (m *Memory) DeleteUser(ctx context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return ErrNotFound
	}
	delete(m.users, id)
	return nil
}

// Students

func (m *Memory) CreateStudent(ctx context.Context, s *models.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stamp(&s.BaseModel, m.id())
	m.students[s.ID] = *s
	return nil
}

func (m *Memory) GetStudent(ctx context.Context, id uint) (*models.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.students[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *Memory) GetStudentByUserID(ctx context.Context, userID uint) (*models.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.students {
		if s.UserID == userID {
			s := s
			return &s, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) ListStudents(ctx context.Context, q StudentQuery) ([]models.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	search := strings.ToLower(q.Search)
	out := []models.Student{}
	for _, s := range m.students {
		if q.Class != "" && s.Class != q.Class {
			continue
		}
		if q.Section != "" && s.Section != q.Section {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(s.Name), search) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Class != b.Class {
			return a.Class < b.Class
		}
		if a.Section != b.Section {
			return a.Section < b.Section
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (m *Memory) UpdateStudent(ctx context.Context, s *models.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.students[s.ID]; !ok {
		return ErrNotFound
	}
	s.UpdatedAt = time.Now()
	m.students[s.ID] = *s
	return nil
}

func (m *Memory) DeleteStudent(ctx context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.students[id]; !ok {
		return ErrNotFound
	}
	delete(m.students, id)
	return nil
}

// Teachers

func copyTeacher(t models.Teacher) models.Teacher {
	t.AssignedClasses = append([]models.ClassAssignment(nil), t.AssignedClasses...)
	return t
}

func (m *Memory) CreateTeacher(ctx context.Context, t *models.Teacher) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.Email != "" {
		for _, existing := range m.teachers {
			if strings.EqualFold(existing.Email, t.Email) {
				return ErrDuplicate
			}
		}
	}
	stamp(&t.BaseModel, m.id())
	m.teachers[t.ID] = copyTeacher(*t)
	return nil
}

func (m *Memory) GetTeacher(ctx context.Context, id uint) (*models.Teacher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.teachers[id]
	if !ok {
		return nil, ErrNotFound
	}
	t = copyTeacher(t)
	return &t, nil
}

func (m *Memory) GetTeacherByUserID(ctx context.Context, userID uint) (*models.Teacher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.teachers {
		if t.UserID == userID {
			t = copyTeacher(t)
			return &t, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) ListTeachers(ctx context.Context, q TeacherQuery) ([]models.Teacher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Teacher{}
	for _, t := range m.teachers {
		if q.ActiveOnly && !t.IsActive {
			continue
		}
		if q.Class != "" && !t.Teaches(q.Class, q.Section) {
			continue
		}
		out = append(out, copyTeacher(t))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) UpdateTeacher(ctx context.Context, t *models.Teacher) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.teachers[t.ID]; !ok {
		return ErrNotFound
	}
	t.UpdatedAt = time.Now()
	m.teachers[t.ID] = copyTeacher(*t)
	return nil
}

func (m *Memory) DeleteTeacher(ctx context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.teachers[id]; !ok {
		return ErrNotFound
	}
	delete(m.teachers, id)
	return nil
}

// Fees

// fee must be called with mu held.
func (m *Memory) fee(f models.Fee, withPayments bool) models.Fee {
	f.Payments = nil
	if withPayments {
		f.Payments = append([]models.FeePayment{}, m.payments[f.ID]...)
	}
	if s, ok := m.students[f.StudentID]; ok {
		s := s
		f.Student = &s
	} else {
		f.Student = nil
	}
	if f.PaidDate != nil {
		pd := *f.PaidDate
		f.PaidDate = &pd
	}
	return f
}

func (m *Memory) CreateFee(ctx context.Context, f *models.Fee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stamp(&f.BaseModel, m.id())
	stored := *f
	stored.Student = nil
	stored.Payments = nil
	m.fees[f.ID] = stored
	return nil
}

func (m *Memory) GetFee(ctx context.Context, id uint) (*models.Fee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.fees[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := m.fee(f, true)
	return &out, nil
}

func (m *Memory) ListFees(ctx context.Context, q FeeQuery) ([]models.Fee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var allowed map[uint]bool
	if q.StudentIDs != nil {
		allowed = make(map[uint]bool, len(q.StudentIDs))
		for _, id := range q.StudentIDs {
			allowed[id] = true
		}
	}
	out := []models.Fee{}
	for _, f := range m.fees {
		if !q.IncludeVoided && f.Voided {
			continue
		}
		if q.StudentID != 0 && f.StudentID != q.StudentID {
			continue
		}
		if allowed != nil && !allowed[f.StudentID] {
			continue
		}
		if q.Class != "" && f.Class != q.Class {
			continue
		}
		if q.Status != "" && f.Status != q.Status {
			continue
		}
		if q.FeeType != "" && f.FeeType != q.FeeType {
			continue
		}
		out = append(out, m.fee(f, true))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// saveFee must be called with mu held.
func (m *Memory) saveFee(f *models.Fee, expectedVersion uint) error {
	current, ok := m.fees[f.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Version != expectedVersion {
		return ErrVersionConflict
	}
	f.Version = expectedVersion + 1
	f.UpdatedAt = time.Now()
	f.CreatedAt = current.CreatedAt
	stored := *f
	stored.Student = nil
	stored.Payments = nil
	if f.PaidDate != nil {
		pd := *f.PaidDate
		stored.PaidDate = &pd
	}
	m.fees[f.ID] = stored
	return nil
}

func (m *Memory) SaveFee(ctx context.Context, f *models.Fee, expectedVersion uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveFee(f, expectedVersion)
}

func (m *Memory) CommitPayment(ctx context.Context, f *models.Fee, expectedVersion uint, entry *models.FeePayment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.saveFee(f, expectedVersion); err != nil {
		return err
	}
	entry.ID = m.id()
	entry.FeeID = f.ID
	entry.CreatedAt = time.Now()
	m.payments[f.ID] = append(m.payments[f.ID], *entry)
	f.Payments = append([]models.FeePayment{}, m.payments[f.ID]...)
	return nil
}

func (m *Memory) DeleteFee(ctx context.Context, id uint, expectedVersion uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.fees[id]
	if !ok {
		return ErrNotFound
	}
	if current.Version != expectedVersion || len(m.payments[id]) > 0 {
		return ErrVersionConflict
	}
	delete(m.fees, id)
	return nil
}

// Attendance

func (m *Memory) ReplaceAttendance(ctx context.Context, key AttendanceKey, rows []models.Attendance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	day := DateOnly(key.Date)
	for id, a := range m.attendance {
		if a.Class == key.Class && a.Section == key.Section && a.Subject == key.Subject && DateOnly(a.Date).Equal(day) {
			delete(m.attendance, id)
		}
	}
	for i := range rows {
		stamp(&rows[i].BaseModel, m.id())
		rows[i].Student = nil
		m.attendance[rows[i].ID] = rows[i]
	}
	return nil
}

func (m *Memory) ListAttendance(ctx context.Context, q AttendanceQuery) ([]models.Attendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Attendance{}
	for _, id := range sortedIDs(m.attendance) {
		a := m.attendance[id]
		if q.StudentID != 0 && a.StudentID != q.StudentID {
			continue
		}
		if q.Class != "" && a.Class != q.Class {
			continue
		}
		if q.Section != "" && a.Section != q.Section {
			continue
		}
		if q.Subject != "" && a.Subject != q.Subject {
			continue
		}
		if q.From != nil && a.Date.Before(DateOnly(*q.From)) {
			continue
		}
		if q.To != nil && a.Date.After(DateOnly(*q.To)) {
			continue
		}
		if s, ok := m.students[a.StudentID]; ok {
			s := s
			a.Student = &s
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

// Marks

func (m *Memory) ReplaceMarks(ctx context.Context, marks []models.Mark) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, in := range marks {
		for id, cur := range m.marks {
			if cur.StudentID == in.StudentID && cur.Subject == in.Subject && cur.ExamType == in.ExamType {
				delete(m.marks, id)
			}
		}
	}
	for i := range marks {
		stamp(&marks[i].BaseModel, m.id())
		marks[i].Student = nil
		m.marks[marks[i].ID] = marks[i]
	}
	return nil
}

func (m *Memory) ListMarks(ctx context.Context, q MarkQuery) ([]models.Mark, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Mark{}
	for _, id := range sortedIDs(m.marks) {
		mk := m.marks[id]
		if q.StudentID != 0 && mk.StudentID != q.StudentID {
			continue
		}
		if q.Class != "" && mk.Class != q.Class {
			continue
		}
		if q.Section != "" && mk.Section != q.Section {
			continue
		}
		if q.Subject != "" && mk.Subject != q.Subject {
			continue
		}
		if q.ExamType != "" && mk.ExamType != q.ExamType {
			continue
		}
		if s, ok := m.students[mk.StudentID]; ok {
			s := s
			mk.Student = &s
		}
		out = append(out, mk)
	}
	return out, nil
}

// Leaves

func (m *Memory) CreateLeave(ctx context.Context, l *models.Leave) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stamp(&l.BaseModel, m.id())
	stored := *l
	stored.Teacher = nil
	m.leaves[l.ID] = stored
	return nil
}

func (m *Memory) GetLeave(ctx context.Context, id uint) (*models.Leave, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leaves[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &l, nil
}

func (m *Memory) ListLeaves(ctx context.Context, q LeaveQuery) ([]models.Leave, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Leave{}
	for _, id := range sortedIDs(m.leaves) {
		l := m.leaves[id]
		if q.TeacherID != 0 && l.TeacherID != q.TeacherID {
			continue
		}
		if q.Status != "" && l.Status != q.Status {
			continue
		}
		if t, ok := m.teachers[l.TeacherID]; ok {
			t = copyTeacher(t)
			l.Teacher = &t
		}
		out = append([]models.Leave{l}, out...)
	}
	return out, nil
}

func (m *Memory) UpdateLeave(ctx context.Context, l *models.Leave) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.leaves[l.ID]; !ok {
		return ErrNotFound
	}
	l.UpdatedAt = time.Now()
	stored := *l
	stored.Teacher = nil
	m.leaves[l.ID] = stored
	return nil
}

// Feedback

func (m *Memory) CreateFeedback(ctx context.Context, f *models.Feedback) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stamp(&f.BaseModel, m.id())
	stored := *f
	stored.Student = nil
	m.feedback[f.ID] = stored
	return nil
}

func (m *Memory) GetFeedback(ctx context.Context, id uint) (*models.Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.feedback[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &f, nil
}

func (m *Memory) ListFeedback(ctx context.Context, q FeedbackQuery) ([]models.Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Feedback{}
	for _, id := range sortedIDs(m.feedback) {
		f := m.feedback[id]
		if q.StudentID != 0 && f.StudentID != q.StudentID {
			continue
		}
		if q.Status != "" && f.Status != q.Status {
			continue
		}
		if s, ok := m.students[f.StudentID]; ok {
			s := s
			f.Student = &s
		}
		out = append([]models.Feedback{f}, out...)
	}
	return out, nil
}

func (m *Memory) UpdateFeedback(ctx context.Context, f *models.Feedback) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.feedback[f.ID]; !ok {
		return ErrNotFound
	}
	f.UpdatedAt = time.Now()
	stored := *f
	stored.Student = nil
	m.feedback[f.ID] = stored
	return nil
}

// Early leaves

func (m *Memory) CreateEarlyLeave(ctx context.Context, e *models.EarlyLeave) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stamp(&e.BaseModel, m.id())
	m.earlyLeaves[e.ID] = *e
	return nil
}

func (m *Memory) ListEarlyLeaves(ctx context.Context, q EarlyLeaveQuery) ([]models.EarlyLeave, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.EarlyLeave{}
	for _, e := range m.earlyLeaves {
		if q.StudentID != 0 && e.StudentID != q.StudentID {
			continue
		}
		if q.Class != "" && e.Class != q.Class {
			continue
		}
		if q.Section != "" && e.Section != q.Section {
			continue
		}
		if q.Date != nil && !DateOnly(e.LeaveTime).Equal(DateOnly(*q.Date)) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LeaveTime.Equal(out[j].LeaveTime) {
			return out[i].LeaveTime.After(out[j].LeaveTime)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// Notifications

func (m *Memory) CreateNotifications(ctx context.Context, n []models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range n {
		stamp(&n[i].BaseModel, m.id())
		m.notifications[n[i].ID] = n[i]
	}
	return nil
}

func (m *Memory) ListNotifications(ctx context.Context, userID uint, unreadOnly bool, limit int) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Notification{}
	ids := sortedIDs(m.notifications)
	for i := len(ids) - 1; i >= 0; i-- {
		n := m.notifications[ids[i]]
		if n.UserID != userID || (unreadOnly && n.Read) {
			continue
		}
		out = append(out, n)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) CountUnread(ctx context.Context, userID uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, n := range m.notifications {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (m *Memory) MarkNotificationRead(ctx context.Context, id, userID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	if !ok || n.UserID != userID {
		return ErrNotFound
	}
	now := time.Now()
	n.Read = true
	n.ReadAt = &now
	m.notifications[id] = n
	return nil
}

func (m *Memory) MarkAllNotificationsRead(ctx context.Context, userID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for id, n := range m.notifications {
		if n.UserID == userID && !n.Read {
			n.Read = true
			n.ReadAt = &now
			m.notifications[id] = n
		}
	}
	return nil
}

// Activity

func (m *Memory) CreateActivityLogs(ctx context.Context, logs []models.ActivityLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range logs {
		created := logs[i].CreatedAt
		stamp(&logs[i].BaseModel, m.id())
		if !created.IsZero() {
			logs[i].CreatedAt = created
		}
		m.activity[logs[i].ID] = logs[i]
	}
	return nil
}

func (m *Memory) ListActivityLogs(ctx context.Context, q ActivityQuery) ([]models.ActivityLog, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	matched := []models.ActivityLog{}
	for _, id := range sortedIDs(m.activity) {
		l := m.activity[id]
		if q.UserID != 0 && l.UserID != q.UserID {
			continue
		}
		if q.Action != "" && l.Action != q.Action {
			continue
		}
		if q.Resource != "" && l.Resource != q.Resource {
			continue
		}
		if q.From != nil && l.CreatedAt.Before(*q.From) {
			continue
		}
		if q.To != nil && !l.CreatedAt.Before(*q.To) {
			continue
		}
		matched = append(matched, l)
	}
	total := int64(len(matched))
	if q.Offset >= len(matched) {
		return []models.ActivityLog{}, total, nil
	}
	matched = matched[q.Offset:]
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	return matched, total, nil
}

func (m *Memory) DeleteActivityLogsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, l := range m.activity {
		if l.CreatedAt.Before(cutoff) {
			delete(m.activity, id)
			n++
		}
	}
	return n, nil
}

func (m *Memory) CreateLogArchive(ctx context.Context, a *models.LogArchive) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stamp(&a.BaseModel, m.id())
	m.archives[a.ID] = *a
	return nil
}

func (m *Memory) ListLogArchives(ctx context.Context) ([]models.LogArchive, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.LogArchive{}
	ids := sortedIDs(m.archives)
	for i := len(ids) - 1; i >= 0; i-- {
		out = append(out, m.archives[ids[i]])
	}
	return out, nil
}

func (m *Memory) GetLogArchive(ctx context.Context, id uint) (*models.LogArchive, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.archives[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}
