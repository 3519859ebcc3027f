package leaves

import (
	"context"
	"sync"
	"testing"
	"time"

	"schooldesk_go/apperrors"
	"schooldesk_go/models"
	"schooldesk_go/services/notifications"
	"schooldesk_go/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu      sync.Mutex
	userIDs []uint
	notices []notifications.Notice
}

func (r *recorder) Notify(ctx context.Context, userID uint, n notifications.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.userIDs = append(r.userIDs, userID)
	r.notices = append(r.notices, n)
}

func day(d int) *time.Time {
	t := time.Date(2026, time.March, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestApplyAndReview(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	teacher := &models.Teacher{UserID: 40, Name: "Meera"}
	require.NoError(t, mem.CreateTeacher(ctx, teacher))
	rec := &recorder{}
	svc := NewService(mem, rec)

	_, err := svc.Apply(ctx, 40, ApplyInput{StartDate: day(3), EndDate: day(4)})
	assert.Equal(t, apperrors.KindValidationFailed, apperrors.KindOf(err))
	_, err = svc.Apply(ctx, 40, ApplyInput{StartDate: day(5), EndDate: day(4), Reason: "sick"})
	assert.Equal(t, apperrors.KindValidationFailed, apperrors.KindOf(err))
	_, err = svc.Apply(ctx, 99, ApplyInput{StartDate: day(3), EndDate: day(4), Reason: "sick"})
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))

	first, err := svc.Apply(ctx, 40, ApplyInput{StartDate: day(3), EndDate: day(4), Reason: "sick"})
	require.NoError(t, err)
	assert.Equal(t, models.LeavePending, first.Status)
	second, err := svc.Apply(ctx, 40, ApplyInput{StartDate: day(10), EndDate: day(10), Reason: "wedding"})
	require.NoError(t, err)

	mine, err := svc.ForTeacher(ctx, 40)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ID)

	_, err = svc.Review(ctx, first.ID, ReviewInput{Status: "maybe"}, 1)
	assert.Equal(t, apperrors.KindValidationFailed, apperrors.KindOf(err))
	_, err = svc.Review(ctx, 999, ReviewInput{Status: models.LeaveApproved}, 1)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))

	reviewed, err := svc.Review(ctx, first.ID, ReviewInput{Status: models.LeaveRejected, AdminResponse: "exam week"}, 1)
	require.NoError(t, err)
	assert.Equal(t, models.LeaveRejected, reviewed.Status)
	require.NotNil(t, reviewed.ReviewedBy)
	assert.Equal(t, uint(1), *reviewed.ReviewedBy)
	assert.Equal(t, "exam week", reviewed.AdminResponse)

	require.Len(t, rec.userIDs, 1)
	assert.Equal(t, uint(40), rec.userIDs[0])
	assert.Equal(t, "warning", rec.notices[0].Type)
	assert.Contains(t, rec.notices[0].Message, "exam week")

	pending, err := svc.List(ctx, store.LeaveQuery{Status: models.LeavePending})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)
}
