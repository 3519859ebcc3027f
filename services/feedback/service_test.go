package feedback

import (
	"context"
	"testing"

	"schooldesk_go/apperrors"
	"schooldesk_go/models"
	"schooldesk_go/services/notifications"
	"schooldesk_go/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	userIDs []uint
}

func (r *recorder) Notify(ctx context.Context, userID uint, n notifications.Notice) {
	r.userIDs = append(r.userIDs, userID)
}

func intPtr(v int) *int { return &v }

func TestSubmitAndReview(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	student := &models.Student{UserID: 50, Name: "Asha", Class: "5", Section: "A"}
	require.NoError(t, mem.CreateStudent(ctx, student))
	rec := &recorder{}
	svc := NewService(mem, rec)

	_, err := svc.Submit(ctx, 50, SubmitInput{Message: "  "})
	assert.Equal(t, apperrors.KindValidationFailed, apperrors.KindOf(err))
	_, err = svc.Submit(ctx, 50, SubmitInput{Message: "great", Rating: intPtr(6)})
	assert.Equal(t, apperrors.KindValidationFailed, apperrors.KindOf(err))
	missing := uint(77)
	_, err = svc.Submit(ctx, 50, SubmitInput{Message: "great", TeacherID: &missing})
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
	_, err = svc.Submit(ctx, 51, SubmitInput{Message: "great"})
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))

	fb, err := svc.Submit(ctx, 50, SubmitInput{Message: "More lab time", Subject: "Science", Rating: intPtr(4)})
	require.NoError(t, err)
	assert.Equal(t, models.FeedbackPending, fb.Status)
	assert.Nil(t, fb.TeacherID)

	mine, err := svc.ForStudent(ctx, 50)
	require.NoError(t, err)
	require.Len(t, mine, 1)

	_, err = svc.Review(ctx, fb.ID, ReviewInput{Status: "closed"}, 1)
	assert.Equal(t, apperrors.KindValidationFailed, apperrors.KindOf(err))

	reviewed, err := svc.Review(ctx, fb.ID, ReviewInput{Status: models.FeedbackResolved, AdminResponse: "Added a period"}, 1)
	require.NoError(t, err)
	assert.Equal(t, models.FeedbackResolved, reviewed.Status)
	assert.Equal(t, []uint{50}, rec.userIDs)

	pending, err := svc.List(ctx, store.FeedbackQuery{Status: models.FeedbackPending})
	require.NoError(t, err)
	assert.Empty(t, pending)
}
