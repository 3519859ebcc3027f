package stats

import (
	"context"
	"testing"
	"time"

	"schooldesk_go/models"
	"schooldesk_go/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboard(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	st := &models.Student{UserID: 1, Name: "Asha", Class: "5", Section: "A"}
	require.NoError(t, mem.CreateStudent(ctx, st))
	teacher := &models.Teacher{UserID: 2, Name: "Meera"}
	require.NoError(t, mem.CreateTeacher(ctx, teacher))
	require.NoError(t, mem.CreateLeave(ctx, &models.Leave{TeacherID: teacher.ID, Status: models.LeavePending, Reason: "x"}))
	require.NoError(t, mem.CreateLeave(ctx, &models.Leave{TeacherID: teacher.ID, Status: models.LeaveApproved, Reason: "y"}))
	require.NoError(t, mem.CreateFeedback(ctx, &models.Feedback{StudentID: st.ID, Status: models.FeedbackPending, Message: "m"}))
	due := time.Now().AddDate(0, 1, 0)
	require.NoError(t, mem.CreateFee(ctx, &models.Fee{StudentID: st.ID, Class: "5", FeeType: models.FeeTypeTuition, Amount: 100, DueDate: due, Status: models.FeeStatusPending}))
	require.NoError(t, mem.CreateFee(ctx, &models.Fee{StudentID: st.ID, Class: "5", FeeType: models.FeeTypeLab, Amount: 50, DueDate: due, Status: models.FeeStatusPending, Voided: true}))

	d, err := NewService(mem).Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, Dashboard{TotalStudents: 1, TotalTeachers: 1, PendingLeaves: 1, PendingFeedback: 1, PendingFees: 1}, *d)
}
