package models

// Roles
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// Fee types
const (
	FeeTypeTuition   = "tuition"
	FeeTypeLibrary   = "library"
	FeeTypeSports    = "sports"
	FeeTypeLab       = "lab"
	FeeTypeTransport = "transport"
	FeeTypeOther     = "other"
)

// Fee statuses
const (
	FeeStatusPending = "pending"
	FeeStatusPartial = "partial"
	FeeStatusPaid    = "paid"
	FeeStatusOverdue = "overdue"
)

// Payment methods
const (
	PaymentMethodCash   = "cash"
	PaymentMethodOnline = "online"
	PaymentMethodCheque = "cheque"
	PaymentMethodOther  = "other"
)

// Attendance statuses
const (
	AttendancePresent = "present"
	AttendanceAbsent  = "absent"
	AttendanceLate    = "late"
)

// SubjectAll is the attendance bucket used when attendance is not subject-specific.
const SubjectAll = "all"

// Exam types
const (
	ExamUnitTest   = "unit_test"
	ExamMidTerm    = "mid_term"
	ExamFinal      = "final"
	ExamAssignment = "assignment"
	ExamQuiz       = "quiz"
)

// Leave statuses
const (
	LeavePending  = "pending"
	LeaveApproved = "approved"
	LeaveRejected = "rejected"
)

// Feedback statuses
const (
	FeedbackPending  = "pending"
	FeedbackReviewed = "reviewed"
	FeedbackResolved = "resolved"
)

// Early-leave notification outcomes
const (
	SMSStatusPending = "pending"
	SMSStatusSent    = "sent"
	SMSStatusFailed  = "failed"
)

var (
	FeeTypes       = []string{FeeTypeTuition, FeeTypeLibrary, FeeTypeSports, FeeTypeLab, FeeTypeTransport, FeeTypeOther}
	FeeStatuses    = []string{FeeStatusPending, FeeStatusPartial, FeeStatusPaid, FeeStatusOverdue}
	PaymentMethods = []string{PaymentMethodCash, PaymentMethodOnline, PaymentMethodCheque, PaymentMethodOther}
	ExamTypes      = []string{ExamUnitTest, ExamMidTerm, ExamFinal, ExamAssignment, ExamQuiz}
)

// IsValidFeeStatus checks the status against the fee status enum.
func IsValidFeeStatus(status string) bool {
	return contains(FeeStatuses, status)
}

// IsValidFeeType checks the type against the fee type enum.
func IsValidFeeType(feeType string) bool {
	return contains(FeeTypes, feeType)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
