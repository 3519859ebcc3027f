package earlyleave

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"schooldesk_go/apperrors"
	"schooldesk_go/models"
	"schooldesk_go/services/messaging"
	"schooldesk_go/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedSender struct {
	mu       sync.Mutex
	fail     bool
	messages []string
}

func (s *scriptedSender) Deliver(ctx context.Context, to, message string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, message)
	if s.fail {
		return "", errors.New("unreachable")
	}
	return "ref", nil
}

var pickup = time.Date(2026, time.March, 9, 14, 5, 0, 0, time.UTC)

func setup(t *testing.T, phone string, smsFails, waFails bool) (*Service, *models.Student, *scriptedSender, *scriptedSender, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	st := &models.Student{UserID: 1, Name: "Asha", Class: "5", Section: "A", GuardianPhone: phone}
	require.NoError(t, mem.CreateStudent(context.Background(), st))
	sms := &scriptedSender{fail: smsFails}
	wa := &scriptedSender{fail: waFails}
	gw := messaging.NewGateway("91").Register(messaging.ChannelSMS, sms).Register(messaging.ChannelWhatsApp, wa)
	svc := NewService(mem, gw, WithClock(func() time.Time { return pickup }), WithLocation(time.UTC))
	return svc, st, sms, wa, mem
}

func TestFormatMessage(t *testing.T) {
	assert.Equal(t, "Your child Asha left school at 02:05 PM with Ravi, Relation: Uncle",
		FormatMessage("Asha", pickup, "Ravi", "Uncle"))
}

func TestRecordSendsBothChannels(t *testing.T) {
	svc, st, sms, wa, _ := setup(t, "+919876543210", false, true)
	res, err := svc.Record(context.Background(), RecordInput{StudentID: st.ID, PickupPersonName: "Ravi", Relation: "Uncle"}, 9)
	require.NoError(t, err)

	assert.Equal(t, models.SMSStatusSent, res.EarlyLeave.SMSStatus)
	assert.True(t, res.EarlyLeave.SMSSent)
	assert.Equal(t, "Asha", res.EarlyLeave.StudentName)
	assert.Equal(t, "+919876543210", res.EarlyLeave.ParentMobile)
	require.Len(t, res.Notification.Results, 2)
	assert.True(t, res.Notification.Results[0].Success)
	assert.False(t, res.Notification.Results[1].Success)
	assert.Len(t, sms.messages, 1)
	assert.Len(t, wa.messages, 1)
	assert.Contains(t, sms.messages[0], "02:05 PM")
}

func TestRecordAllChannelsFailing(t *testing.T) {
	svc, st, _, _, mem := setup(t, "+919876543210", true, true)
	res, err := svc.Record(context.Background(), RecordInput{StudentID: st.ID, PickupPersonName: "Ravi", Relation: "Uncle"}, 9)
	require.NoError(t, err)
	assert.Equal(t, models.SMSStatusFailed, res.EarlyLeave.SMSStatus)
	assert.False(t, res.EarlyLeave.SMSSent)

	rows, err := mem.ListEarlyLeaves(context.Background(), store.EarlyLeaveQuery{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.SMSStatusFailed, rows[0].SMSStatus)
}

func TestRecordWithoutGuardianPhone(t *testing.T) {
	svc, st, sms, _, _ := setup(t, "", false, false)
	res, err := svc.Record(context.Background(), RecordInput{StudentID: st.ID, PickupPersonName: "Ravi", Relation: "Uncle"}, 9)
	require.NoError(t, err)
	assert.False(t, res.Notification.Attempted)
	assert.Equal(t, models.SMSStatusFailed, res.EarlyLeave.SMSStatus)
	assert.Empty(t, sms.messages)
}

func TestRecordValidation(t *testing.T) {
	svc, st, _, _, _ := setup(t, "+919876543210", false, false)
	_, err := svc.Record(context.Background(), RecordInput{StudentID: st.ID, PickupPersonName: " ", Relation: "Uncle"}, 9)
	assert.Equal(t, apperrors.KindValidationFailed, apperrors.KindOf(err))
	_, err = svc.Record(context.Background(), RecordInput{StudentID: 999, PickupPersonName: "Ravi", Relation: "Uncle"}, 9)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestListFiltersByDay(t *testing.T) {
	svc, st, _, _, _ := setup(t, "+919876543210", false, false)
	_, err := svc.Record(context.Background(), RecordInput{StudentID: st.ID, PickupPersonName: "Ravi", Relation: "Uncle"}, 9)
	require.NoError(t, err)

	same := time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC)
	other := same.AddDate(0, 0, 1)
	rows, err := svc.List(context.Background(), store.EarlyLeaveQuery{Class: "5", Date: &same})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	rows, err = svc.List(context.Background(), store.EarlyLeaveQuery{Date: &other})
	require.NoError(t, err)
	assert.Empty(t, rows)
}
