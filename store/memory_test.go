package store

import (
	"context"
	"testing"
	"time"

	"schooldesk_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCommitPaymentVersionCheck(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	fee := &models.Fee{StudentID: 1, Amount: 1000, Status: models.FeeStatusPending, DueDate: time.Now()}
	require.NoError(t, m.CreateFee(ctx, fee))

	first, err := m.GetFee(ctx, fee.ID)
	require.NoError(t, err)
	stale, err := m.GetFee(ctx, fee.ID)
	require.NoError(t, err)

	first.AmountPaid = 400
	require.NoError(t, m.CommitPayment(ctx, first, 0, &models.FeePayment{Amount: 400}))
	assert.Equal(t, uint(1), first.Version)
	assert.Len(t, first.Payments, 1)

	stale.AmountPaid = 700
	err = m.CommitPayment(ctx, stale, 0, &models.FeePayment{Amount: 700})
	assert.ErrorIs(t, err, ErrVersionConflict)

	stored, err := m.GetFee(ctx, fee.ID)
	require.NoError(t, err)
	assert.Equal(t, 400.0, stored.AmountPaid)
	assert.Len(t, stored.Payments, 1)
}

func TestMemoryDeleteFeeIsConditional(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	fee := &models.Fee{StudentID: 1, Amount: 1000, Status: models.FeeStatusPending, DueDate: time.Now()}
	require.NoError(t, m.CreateFee(ctx, fee))

	paid, err := m.GetFee(ctx, fee.ID)
	require.NoError(t, err)
	paid.AmountPaid = 100
	require.NoError(t, m.CommitPayment(ctx, paid, 0, &models.FeePayment{Amount: 100}))

	assert.ErrorIs(t, m.DeleteFee(ctx, fee.ID, 0), ErrVersionConflict)
	assert.ErrorIs(t, m.DeleteFee(ctx, fee.ID, 1), ErrVersionConflict)
	stored, err := m.GetFee(ctx, fee.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Payments, 1)

	untouched := &models.Fee{StudentID: 1, Amount: 50, Status: models.FeeStatusPending, DueDate: time.Now()}
	require.NoError(t, m.CreateFee(ctx, untouched))
	require.NoError(t, m.DeleteFee(ctx, untouched.ID, 0))
	assert.ErrorIs(t, m.DeleteFee(ctx, untouched.ID, 0), ErrNotFound)
}

func TestMemoryReadsAreCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	fee := &models.Fee{StudentID: 1, Amount: 500, DueDate: time.Now()}
	require.NoError(t, m.CreateFee(ctx, fee))
	require.NoError(t, m.CommitPayment(ctx, fee, 0, &models.FeePayment{Amount: 100}))

	got, err := m.GetFee(ctx, fee.ID)
	require.NoError(t, err)
	got.AmountPaid = 9999
	got.Payments[0].Amount = 9999

	again, err := m.GetFee(ctx, fee.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, again.AmountPaid)
	assert.Equal(t, 100.0, again.Payments[0].Amount)
}

func TestMemoryReplaceAttendance(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	day := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	key := AttendanceKey{Class: "5", Section: "A", Subject: "Math", Date: day}

	require.NoError(t, m.ReplaceAttendance(ctx, key, []models.Attendance{
		{StudentID: 1, Class: "5", Section: "A", Subject: "Math", Date: DateOnly(day), Status: models.AttendancePresent},
		{StudentID: 2, Class: "5", Section: "A", Subject: "Math", Date: DateOnly(day), Status: models.AttendanceAbsent},
	}))
	require.NoError(t, m.ReplaceAttendance(ctx, AttendanceKey{Class: "5", Section: "A", Subject: "Science", Date: day}, []models.Attendance{
		{StudentID: 1, Class: "5", Section: "A", Subject: "Science", Date: DateOnly(day), Status: models.AttendanceLate},
	}))
	require.NoError(t, m.ReplaceAttendance(ctx, key, []models.Attendance{
		{StudentID: 1, Class: "5", Section: "A", Subject: "Math", Date: DateOnly(day), Status: models.AttendanceAbsent},
	}))

	math, err := m.ListAttendance(ctx, AttendanceQuery{Class: "5", Section: "A", Subject: "Math"})
	require.NoError(t, err)
	require.Len(t, math, 1)
	assert.Equal(t, models.AttendanceAbsent, math[0].Status)

	all, err := m.ListAttendance(ctx, AttendanceQuery{Class: "5", Section: "A"})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestMemoryFeeListing(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Now()
	require.NoError(t, m.CreateFee(ctx, &models.Fee{StudentID: 1, Amount: 1, DueDate: now.AddDate(0, 1, 0)}))
	require.NoError(t, m.CreateFee(ctx, &models.Fee{StudentID: 1, Amount: 2, DueDate: now}))
	require.NoError(t, m.CreateFee(ctx, &models.Fee{StudentID: 2, Amount: 3, DueDate: now, Voided: true}))

	fees, err := m.ListFees(ctx, FeeQuery{})
	require.NoError(t, err)
	require.Len(t, fees, 2)
	assert.Equal(t, 2.0, fees[0].Amount)

	fees, err = m.ListFees(ctx, FeeQuery{IncludeVoided: true, StudentIDs: []uint{2}})
	require.NoError(t, err)
	assert.Len(t, fees, 1)

	fees, err = m.ListFees(ctx, FeeQuery{StudentIDs: []uint{}})
	require.NoError(t, err)
	assert.Empty(t, fees)
}

func TestMemoryDuplicateUsername(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.CreateUser(ctx, &models.User{Username: "asha_5_a"}))
	assert.ErrorIs(t, m.CreateUser(ctx, &models.User{Username: "ASHA_5_A"}), ErrDuplicate)
}
