package attendance

import (
	"context"
	"testing"
	"time"

	"schooldesk_go/apperrors"
	"schooldesk_go/models"
	"schooldesk_go/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T) (*Service, *store.Memory, []models.Student) {
	t.Helper()
	mem := store.NewMemory()
	students := []models.Student{
		{UserID: 1, Name: "Asha", Class: "5", Section: "A"},
		{UserID: 2, Name: "Bilal", Class: "5", Section: "A"},
		{UserID: 3, Name: "Chen", Class: "6", Section: "A"},
	}
	for i := range students {
		require.NoError(t, mem.CreateStudent(context.Background(), &students[i]))
	}
	return NewService(mem), mem, students
}

func day(d int) *time.Time {
	t := time.Date(2024, 3, d, 10, 0, 0, 0, time.UTC)
	return &t
}

func TestMarkAttendanceIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, _, st := seed(t)
	in := MarkInput{
		Class: "5", Section: "A", Subject: "Math", Date: day(1),
		Records: []RecordInput{
			{StudentID: st[0].ID, Status: models.AttendancePresent},
			{StudentID: st[1].ID, Status: models.AttendanceAbsent},
		},
	}
	_, err := svc.MarkAttendance(ctx, in, 9)
	require.NoError(t, err)
	saved, err := svc.MarkAttendance(ctx, in, 9)
	require.NoError(t, err)
	assert.Len(t, saved, 2)

	rows, err := svc.ForDay(ctx, "5", "A", "Math", *day(1))
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestMarkAttendanceBuckets(t *testing.T) {
	ctx := context.Background()
	svc, _, st := seed(t)

	_, err := svc.MarkAttendance(ctx, MarkInput{Class: "5", Section: "A", Date: day(1),
		Records: []RecordInput{{StudentID: st[0].ID, Status: models.AttendancePresent}}}, 9)
	require.NoError(t, err)
	_, err = svc.MarkAttendance(ctx, MarkInput{Class: "5", Section: "A", Subject: "Math", Date: day(1),
		Records: []RecordInput{{StudentID: st[0].ID, Status: models.AttendanceLate}}}, 9)
	require.NoError(t, err)

	all, err := svc.ForDay(ctx, "5", "A", "all", *day(1))
	require.NoError(t, err)
	assert.Len(t, all, 2, "reading with subject all returns every bucket")

	math, err := svc.ForDay(ctx, "5", "A", "Math", *day(1))
	require.NoError(t, err)
	require.Len(t, math, 1)
	assert.Equal(t, models.AttendanceLate, math[0].Status)
}

func TestMarkAttendanceValidation(t *testing.T) {
	ctx := context.Background()
	svc, _, st := seed(t)

	_, err := svc.MarkAttendance(ctx, MarkInput{Class: "5", Section: "A"}, 9)
	assert.Equal(t, apperrors.KindValidationFailed, apperrors.KindOf(err))

	_, err = svc.MarkAttendance(ctx, MarkInput{Class: "5", Section: "A", Date: day(1),
		Records: []RecordInput{{StudentID: st[0].ID, Status: "sick"}}}, 9)
	assert.Equal(t, apperrors.KindValidationFailed, apperrors.KindOf(err))

	_, err = svc.MarkAttendance(ctx, MarkInput{Class: "5", Section: "A", Date: day(1),
		Records: []RecordInput{{StudentID: st[2].ID, Status: models.AttendancePresent}}}, 9)
	assert.Equal(t, apperrors.KindValidationFailed, apperrors.KindOf(err))

	_, err = svc.MarkAttendance(ctx, MarkInput{Class: "5", Section: "A", Date: day(1),
		Records: []RecordInput{
			{StudentID: st[0].ID, Status: models.AttendancePresent},
			{StudentID: st[0].ID, Status: models.AttendanceAbsent},
		}}, 9)
	assert.Equal(t, apperrors.KindValidationFailed, apperrors.KindOf(err))
}

func TestComputeAttendanceStatistics(t *testing.T) {
	ctx := context.Background()
	svc, _, st := seed(t)
	mark := func(subject string, d int, a, b string) {
		_, err := svc.MarkAttendance(ctx, MarkInput{Class: "5", Section: "A", Subject: subject, Date: day(d),
			Records: []RecordInput{{StudentID: st[0].ID, Status: a}, {StudentID: st[1].ID, Status: b}}}, 9)
		require.NoError(t, err)
	}
	mark("Math", 1, models.AttendancePresent, models.AttendanceAbsent)
	mark("Math", 2, models.AttendancePresent, models.AttendanceLate)
	mark("Science", 2, models.AttendanceAbsent, models.AttendancePresent)

	stats, err := svc.ComputeAttendanceStatistics(ctx, StatsQuery{Class: "5", Section: "A", Subject: "all"})
	require.NoError(t, err)
	require.Len(t, stats.StatsBySubject, 2)
	assert.ElementsMatch(t, []string{"Math", "Science"}, stats.AllSubjects)

	var math SubjectStatistics
	for _, s := range stats.StatsBySubject {
		if s.Subject == "Math" {
			math = s
		}
	}
	assert.Equal(t, 2, math.TotalClasses, "distinct days, not rows")
	assert.Equal(t, 2, math.Present)
	assert.Equal(t, 1, math.Absent)
	assert.Equal(t, 1, math.Late)
	assert.Equal(t, Tally{Present: 2}, *math.Students[st[0].ID])
	assert.Equal(t, Tally{Absent: 1, Late: 1}, *math.Students[st[1].ID])

	ranged, err := svc.ComputeAttendanceStatistics(ctx, StatsQuery{Class: "5", Section: "A", Subject: "Math", From: day(2), To: day(2)})
	require.NoError(t, err)
	require.Len(t, ranged.StatsBySubject, 1)
	assert.Equal(t, 1, ranged.StatsBySubject[0].TotalClasses)

	_, err = svc.ComputeAttendanceStatistics(ctx, StatsQuery{Class: "5"})
	assert.Equal(t, apperrors.KindValidationFailed, apperrors.KindOf(err))
}

func TestStudentAttendanceStatistics(t *testing.T) {
	ctx := context.Background()
	svc, _, st := seed(t)

	stats, err := svc.ComputeStudentAttendanceStatistics(ctx, st[0].ID, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, StudentStatistics{}, stats)

	for d, status := range map[int]string{1: "present", 2: "present", 3: "absent"} {
		_, err := svc.MarkAttendance(ctx, MarkInput{Class: "5", Section: "A", Date: day(d),
			Records: []RecordInput{{StudentID: st[0].ID, Status: status}}}, 9)
		require.NoError(t, err)
	}
	rows, stats, err := svc.StudentAttendance(ctx, st[0].ID, nil, nil)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	assert.True(t, rows[0].Date.After(rows[2].Date))
	assert.Equal(t, 3, stats.TotalDays)
	assert.Equal(t, 2, stats.PresentDays)
	assert.Equal(t, 66.67, stats.AttendancePercentage)

	_, err = svc.ComputeStudentAttendanceStatistics(ctx, 999, nil, nil)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestAggregateBySubjectEmpty(t *testing.T) {
	stats := AggregateBySubject(nil)
	assert.Empty(t, stats.StatsBySubject)
	assert.NotNil(t, stats.AllSubjects)
}
