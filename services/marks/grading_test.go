package marks

import (
	"context"
	"testing"

	"schooldesk_go/apperrors"
	"schooldesk_go/models"
	"schooldesk_go/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeGradeBoundaries(t *testing.T) {
	cases := map[float64]string{
		100:    "A+",
		90:     "A+",
		89.999: "A",
		80:     "A",
		79.99:  "B+",
		70:     "B+",
		60:     "B",
		50:     "C",
		40:     "D",
		39.99:  "F",
		0:      "F",
	}
	for pct, want := range cases {
		assert.Equal(t, want, ComputeGrade(pct), "%v", pct)
	}
}

func TestScoreUsesUnroundedPercentageForGrade(t *testing.T) {
	// 89.9955% displays as 90.00 but is still an A.
	s := Score(models.Mark{MarksObtained: 179.991, TotalMarks: 200})
	assert.Equal(t, 90.0, s.Percentage)
	assert.Equal(t, "A", s.Grade)

	zero := Score(models.Mark{MarksObtained: 0, TotalMarks: 0})
	assert.Equal(t, 0.0, zero.Percentage)
	assert.Equal(t, "F", zero.Grade)
}

func TestComputeExamTypeSummaryIsWeighted(t *testing.T) {
	marks := []models.Mark{
		{Subject: "Math", ExamType: models.ExamFinal, MarksObtained: 90, TotalMarks: 100},
		{Subject: "Art", ExamType: models.ExamFinal, MarksObtained: 5, TotalMarks: 10},
	}
	s := ComputeExamTypeSummary(marks)
	assert.Equal(t, 95.0, s.TotalObtained)
	assert.Equal(t, 110.0, s.TotalMax)
	// Mean of per-subject percentages would be 70; weighted is 86.36.
	assert.Equal(t, 86.36, s.AveragePercentage)
	assert.Equal(t, "A", s.AverageGrade)
	assert.Equal(t, models.ExamFinal, s.ExamType)

	empty := ComputeExamTypeSummary(nil)
	assert.Equal(t, 0.0, empty.AveragePercentage)
	assert.Equal(t, "F", empty.AverageGrade)
}

func TestGroupMarksBySubjectAndExamKeepsOrder(t *testing.T) {
	marks := []models.Mark{
		{BaseModel: models.BaseModel{ID: 1}, Subject: "Science", ExamType: models.ExamQuiz, MarksObtained: 1, TotalMarks: 10},
		{BaseModel: models.BaseModel{ID: 2}, Subject: "Math", ExamType: models.ExamFinal, MarksObtained: 2, TotalMarks: 10},
		{BaseModel: models.BaseModel{ID: 3}, Subject: "Science", ExamType: models.ExamFinal, MarksObtained: 3, TotalMarks: 10},
		{BaseModel: models.BaseModel{ID: 4}, Subject: "Science", ExamType: models.ExamQuiz, MarksObtained: 4, TotalMarks: 10},
	}
	groups := GroupMarksBySubjectAndExam(marks)
	require.Len(t, groups, 2)
	assert.Equal(t, "Science", groups[0].Subject)
	assert.Equal(t, "Math", groups[1].Subject)

	require.Len(t, groups[0].Exams, 2)
	assert.Equal(t, models.ExamQuiz, groups[0].Exams[0].ExamType)
	quiz := groups[0].Exams[0].Marks
	require.Len(t, quiz, 2)
	assert.Equal(t, uint(1), quiz[0].ID)
	assert.Equal(t, uint(4), quiz[1].ID)

	assert.Empty(t, GroupMarksBySubjectAndExam(nil))
}

func TestUploadMarksAndReport(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	a := &models.Student{UserID: 1, Name: "Asha", Class: "5", Section: "A"}
	outsider := &models.Student{UserID: 2, Name: "Dev", Class: "6", Section: "B"}
	require.NoError(t, mem.CreateStudent(ctx, a))
	require.NoError(t, mem.CreateStudent(ctx, outsider))
	svc := NewService(mem)

	_, err := svc.UploadMarks(ctx, UploadInput{Class: "5", Section: "A", Subject: "Math", ExamType: "final",
		Marks: []EntryInput{{StudentID: a.ID, MarksObtained: 120, TotalMarks: 100}}}, 7)
	assert.Equal(t, apperrors.KindValidationFailed, apperrors.KindOf(err))

	_, err = svc.UploadMarks(ctx, UploadInput{Class: "5", Section: "A", Subject: "Math", ExamType: "olympiad",
		Marks: []EntryInput{{StudentID: a.ID, MarksObtained: 1, TotalMarks: 100}}}, 7)
	assert.Equal(t, apperrors.KindValidationFailed, apperrors.KindOf(err))

	_, err = svc.UploadMarks(ctx, UploadInput{Class: "5", Section: "A", Subject: "Math", ExamType: "final",
		Marks: []EntryInput{{StudentID: outsider.ID, MarksObtained: 1, TotalMarks: 100}}}, 7)
	assert.Equal(t, apperrors.KindValidationFailed, apperrors.KindOf(err))

	for _, in := range []UploadInput{
		{Class: "5", Section: "A", Subject: "Math", ExamType: "final", Marks: []EntryInput{{StudentID: a.ID, MarksObtained: 90, TotalMarks: 100}}},
		{Class: "5", Section: "A", Subject: "Art", ExamType: "final", Marks: []EntryInput{{StudentID: a.ID, MarksObtained: 5, TotalMarks: 10}}},
		{Class: "5", Section: "A", Subject: "Math", ExamType: "quiz", Marks: []EntryInput{{StudentID: a.ID, MarksObtained: 8, TotalMarks: 10}}},
	} {
		_, err := svc.UploadMarks(ctx, in, 7)
		require.NoError(t, err)
	}

	report, err := svc.StudentReport(ctx, a.ID, "", "")
	require.NoError(t, err)
	assert.Len(t, report.Marks, 3)
	require.Len(t, report.MarksBySubject, 2)
	assert.Equal(t, "Math", report.MarksBySubject[0].Subject)
	require.Len(t, report.ExamSummaries, 2)
	assert.Equal(t, models.ExamFinal, report.ExamSummaries[0].ExamType)
	assert.Equal(t, 86.36, report.ExamSummaries[0].AveragePercentage)

	scored, err := svc.List(ctx, store.MarkQuery{Class: "5", ExamType: "quiz"})
	require.NoError(t, err)
	require.Len(t, scored, 1)
	assert.Equal(t, "A", scored[0].Grade)

	_, err = svc.StudentReport(ctx, 999, "", "")
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestUploadMarksReplacesEarlierUpload(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	a := &models.Student{UserID: 1, Name: "Asha", Class: "5", Section: "A"}
	require.NoError(t, mem.CreateStudent(ctx, a))
	svc := NewService(mem)

	upload := func(obtained float64) error {
		_, err := svc.UploadMarks(ctx, UploadInput{Class: "5", Section: "A", Subject: "Math", ExamType: "final",
			Marks: []EntryInput{{StudentID: a.ID, MarksObtained: obtained, TotalMarks: 100}}}, 7)
		return err
	}
	require.NoError(t, upload(40))
	require.NoError(t, upload(90))

	report, err := svc.StudentReport(ctx, a.ID, "", "")
	require.NoError(t, err)
	require.Len(t, report.Marks, 1)
	assert.Equal(t, 90.0, report.Marks[0].MarksObtained)
	require.Len(t, report.ExamSummaries, 1)
	assert.Equal(t, 90.0, report.ExamSummaries[0].TotalObtained)
	assert.Equal(t, 100.0, report.ExamSummaries[0].TotalMax)
	assert.Equal(t, "A+", report.ExamSummaries[0].AverageGrade)

	_, err = svc.UploadMarks(ctx, UploadInput{Class: "5", Section: "A", Subject: "Math", ExamType: "quiz",
		Marks: []EntryInput{
			{StudentID: a.ID, MarksObtained: 5, TotalMarks: 10},
			{StudentID: a.ID, MarksObtained: 6, TotalMarks: 10},
		}}, 7)
	assert.Equal(t, apperrors.KindValidationFailed, apperrors.KindOf(err))

	quiz, err := svc.List(ctx, store.MarkQuery{StudentID: a.ID, ExamType: "quiz"})
	require.NoError(t, err)
	assert.Empty(t, quiz)
}
