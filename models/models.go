package models

import (
	"database/sql/driver"
	"time"

	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// JSON field type for GORM
type JSON []byte

func (j JSON) Value() (driver.Value, error) {
	if j.IsNull() {
		return nil, nil
	}
	return string(j), nil
}

func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	s, ok := value.([]byte)
	if !ok {
		return nil
	}
	*j = append((*j)[0:0], s...)
	return nil
}

func (j JSON) MarshalJSON() ([]byte, error) {
	if j == nil {
		return []byte("null"), nil
	}
	return j, nil
}

func (j *JSON) UnmarshalJSON(data []byte) error {
	if j == nil {
		return nil
	}
	*j = append((*j)[0:0], data...)
	return nil
}

func (j JSON) IsNull() bool {
	return len(j) == 0 || string(j) == "null"
}

// User is the login account behind every admin, teacher and student.
type User struct {
	BaseModel
	Username string `json:"username" gorm:"size:150;not null;uniqueIndex"`
	Password string `json:"-" gorm:"size:255;not null"`
	Email    string `json:"email" gorm:"size:255"`
	Phone    string `json:"phone" gorm:"size:20"`
	Role     string `json:"role" gorm:"size:20;not null;default:'student';type:enum('admin','teacher','student')"`
	IsActive bool   `json:"is_active" gorm:"default:true"`
}

// Student model
type Student struct {
	BaseModel
	UserID         uint       `json:"user_id" gorm:"uniqueIndex;not null"`
	Name           string     `json:"name" gorm:"size:200;not null"`
	Class          string     `json:"class" gorm:"size:20;not null;index:idx_student_class_section"`
	Section        string     `json:"section" gorm:"size:10;not null;index:idx_student_class_section"`
	DOB            *time.Time `json:"dob"`
	FatherName     string     `json:"father_name" gorm:"size:200"`
	MotherName     string     `json:"mother_name" gorm:"size:200"`
	GuardianPhone  string     `json:"guardian_phone" gorm:"size:20"` // E.164, normalised on write
	GuardianLineID string     `json:"guardian_line_id" gorm:"size:100"`
	Address        string     `json:"address" gorm:"size:500"`
	Photo          string     `json:"photo" gorm:"size:500"`
	AdmissionDate  time.Time  `json:"admission_date"`
}

// ClassAssignment is one class/section (optionally subject) a teacher is responsible for.
type ClassAssignment struct {
	Class   string `json:"class"`
	Section string `json:"section"`
	Subject string `json:"subject,omitempty"`
}

// Teacher model
type Teacher struct {
	BaseModel
	UserID          uint              `json:"user_id" gorm:"uniqueIndex;not null"`
	Name            string            `json:"name" gorm:"size:200;not null"`
	Email           string            `json:"email" gorm:"size:255;index"`
	Phone           string            `json:"phone" gorm:"size:20"` // E.164, normalised on write
	Subject         string            `json:"subject" gorm:"size:100;index"`
	Qualification   string            `json:"qualification" gorm:"size:200"`
	Experience      int               `json:"experience"`
	AssignedClass   string            `json:"assigned_class" gorm:"size:20;index:idx_teacher_assignment"`
	AssignedSection string            `json:"assigned_section" gorm:"size:10;index:idx_teacher_assignment"`
	AssignedClasses []ClassAssignment `json:"assigned_classes" gorm:"serializer:json;type:json"`
	JoiningDate     time.Time         `json:"joining_date"`
	IsActive        bool              `json:"is_active" gorm:"default:true;index"`
}

// Teaches reports whether the teacher is assigned to the given class/section,
// either as the primary assignment or through AssignedClasses.
func (t *Teacher) Teaches(class, section string) bool {
	if t.AssignedClass != "" && t.AssignedClass == class && (t.AssignedSection == "" || t.AssignedSection == section) {
		return true
	}
	for _, a := range t.AssignedClasses {
		if a.Class == class && a.Section == section {
			return true
		}
	}
	return false
}

// Fee is one billable obligation for one student.
type Fee struct {
	BaseModel
	StudentID     uint         `json:"student_id" gorm:"not null;index:idx_fee_student_status"`
	Student       *Student     `json:"student,omitempty" gorm:"foreignKey:StudentID"`
	Class         string       `json:"class" gorm:"size:20;not null"`
	FeeType       string       `json:"fee_type" gorm:"size:20;not null;type:enum('tuition','library','sports','lab','transport','other')"`
	Amount        float64      `json:"amount" gorm:"type:decimal(12,2);not null"`
	AmountPaid    float64      `json:"amount_paid" gorm:"type:decimal(12,2);not null;default:0"`
	DueDate       time.Time    `json:"due_date" gorm:"not null"`
	PaidDate      *time.Time   `json:"paid_date"`
	Status        string       `json:"status" gorm:"size:20;not null;default:'pending';index:idx_fee_student_status;type:enum('pending','partial','paid','overdue')"`
	PaymentMethod string       `json:"payment_method" gorm:"size:20"`
	Remarks       string       `json:"remarks" gorm:"type:text"`
	Payments      []FeePayment `json:"payment_history" gorm:"foreignKey:FeeID"`
	UpdatedBy     uint         `json:"updated_by"`
	// IsOverridden marks a status set by an administrator rather than derived from AmountPaid.
	IsOverridden bool   `json:"is_overridden" gorm:"default:false"`
	Voided       bool   `json:"voided" gorm:"default:false;index"`
	VoidReason   string `json:"void_reason,omitempty" gorm:"size:500"`
	Version      uint   `json:"version" gorm:"not null;default:0"`
}

// Remaining is the unpaid balance of the fee, floored at zero.
func (f *Fee) Remaining() float64 {
	r := f.Amount - f.AmountPaid
	if r < 0 {
		return 0
	}
	return r
}

// FeePayment is one append-only payment-history entry.
type FeePayment struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	FeeID         uint      `json:"fee_id" gorm:"not null;index"`
	Amount        float64   `json:"amount" gorm:"type:decimal(12,2);not null"`
	PaymentDate   time.Time `json:"payment_date" gorm:"not null"`
	PaymentMethod string    `json:"payment_method" gorm:"size:20;not null"`
	Remarks       string    `json:"remarks" gorm:"type:text"`
	RecordedBy    uint      `json:"recorded_by"`
	CreatedAt     time.Time `json:"created_at"`
}

// Attendance is one row per (student, date, subject).
type Attendance struct {
	BaseModel
	StudentID uint      `json:"student_id" gorm:"not null;index:idx_attendance_student_date"`
	Student   *Student  `json:"student,omitempty" gorm:"foreignKey:StudentID"`
	Class     string    `json:"class" gorm:"size:20;not null;index:idx_attendance_bucket"`
	Section   string    `json:"section" gorm:"size:10;not null;index:idx_attendance_bucket"`
	Subject   string    `json:"subject" gorm:"size:100;not null;default:'all';index:idx_attendance_bucket"`
	Date      time.Time `json:"date" gorm:"type:date;not null;index:idx_attendance_bucket;index:idx_attendance_student_date"`
	Status    string    `json:"status" gorm:"size:10;not null;type:enum('present','absent','late')"`
	MarkedBy  uint      `json:"marked_by"`
}

// Mark is one score for (student, subject, exam type).
type Mark struct {
	BaseModel
	StudentID     uint     `json:"student_id" gorm:"not null;uniqueIndex:idx_mark_student"`
	Student       *Student `json:"student,omitempty" gorm:"foreignKey:StudentID"`
	Class         string   `json:"class" gorm:"size:20;not null"`
	Section       string   `json:"section" gorm:"size:10;not null"`
	Subject       string   `json:"subject" gorm:"size:100;not null;uniqueIndex:idx_mark_student"`
	ExamType      string   `json:"exam_type" gorm:"size:20;not null;uniqueIndex:idx_mark_student;type:enum('unit_test','mid_term','final','assignment','quiz')"`
	MarksObtained float64  `json:"marks_obtained" gorm:"type:decimal(8,2);not null"`
	TotalMarks    float64  `json:"total_marks" gorm:"type:decimal(8,2);not null"`
	UploadedBy    uint     `json:"uploaded_by"`
}

// Leave is a teacher's leave request.
type Leave struct {
	BaseModel
	TeacherID     uint      `json:"teacher_id" gorm:"not null;index"`
	Teacher       *Teacher  `json:"teacher,omitempty" gorm:"foreignKey:TeacherID"`
	StartDate     time.Time `json:"start_date" gorm:"not null"`
	EndDate       time.Time `json:"end_date" gorm:"not null"`
	Reason        string    `json:"reason" gorm:"type:text;not null"`
	Status        string    `json:"status" gorm:"size:20;not null;default:'pending';type:enum('pending','approved','rejected')"`
	ReviewedBy    *uint     `json:"reviewed_by"`
	AdminResponse string    `json:"admin_response" gorm:"type:text"`
}

// Feedback is a message a student sends to the school.
type Feedback struct {
	BaseModel
	StudentID     uint     `json:"student_id" gorm:"not null;index"`
	Student       *Student `json:"student,omitempty" gorm:"foreignKey:StudentID"`
	TeacherID     *uint    `json:"teacher_id"`
	Subject       string   `json:"subject" gorm:"size:200"`
	Message       string   `json:"message" gorm:"type:text;not null"`
	Rating        *int     `json:"rating"`
	Status        string   `json:"status" gorm:"size:20;not null;default:'pending';type:enum('pending','reviewed','resolved')"`
	ReviewedBy    *uint    `json:"reviewed_by"`
	AdminResponse string   `json:"admin_response" gorm:"type:text"`
}

// EarlyLeave records a student picked up before the end of the school day.
type EarlyLeave struct {
	BaseModel
	StudentID        uint      `json:"student_id" gorm:"not null;index"`
	StudentName      string    `json:"student_name" gorm:"size:200;not null"`
	Class            string    `json:"class" gorm:"size:20;not null"`
	Section          string    `json:"section" gorm:"size:10;not null"`
	PickupPersonName string    `json:"pickup_person_name" gorm:"size:200;not null"`
	Relation         string    `json:"relation" gorm:"size:100;not null"`
	LeaveTime        time.Time `json:"leave_time" gorm:"not null;index"`
	ParentMobile     string    `json:"parent_mobile" gorm:"size:20"`
	SMSSent          bool      `json:"sms_sent" gorm:"default:false"`
	SMSStatus        string    `json:"sms_status" gorm:"size:10;not null;default:'pending';type:enum('pending','sent','failed')"`
	MarkedBy         uint      `json:"marked_by"`
}

// Log model for activity tracking
type ActivityLog struct {
	BaseModel
	UserID     uint   `json:"user_id"`
	Action     string `json:"action" gorm:"size:100;not null"`
	Resource   string `json:"resource" gorm:"size:100;not null"`
	ResourceID uint   `json:"resource_id"`
	Details    JSON   `json:"details" gorm:"type:json"`
	IPAddress  string `json:"ip_address" gorm:"size:45"`
	UserAgent  string `json:"user_agent" gorm:"size:500"`
}

// Notification model (in-app)
type Notification struct {
	BaseModel
	UserID   uint       `json:"user_id" gorm:"not null;index"`
	Title    string     `json:"title" gorm:"size:255;not null"`
	Message  string     `json:"message" gorm:"type:text;not null"`
	Type     string     `json:"type" gorm:"size:50;not null;type:enum('info','warning','error','success')"`
	Channels JSON       `json:"channels" gorm:"type:json"`
	Data     JSON       `json:"data,omitempty" gorm:"type:json"`
	Read     bool       `json:"read" gorm:"default:false"`
	ReadAt   *time.Time `json:"read_at"`
}

// LogArchive model for tracking archived logs
type LogArchive struct {
	BaseModel
	FileName    string    `json:"file_name" gorm:"size:255;not null"`
	S3Key       string    `json:"s3_key" gorm:"size:500;not null"`
	StartDate   time.Time `json:"start_date" gorm:"not null"`
	EndDate     time.Time `json:"end_date" gorm:"not null"`
	RecordCount int       `json:"record_count" gorm:"not null"`
	FileSize    int64     `json:"file_size" gorm:"not null"`
	Status      string    `json:"status" gorm:"size:50;not null;default:'pending';type:enum('pending','completed','failed')"`
	Error       string    `json:"error" gorm:"type:text"`
}
