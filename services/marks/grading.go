package marks

import (
	"schooldesk_go/models"
	"schooldesk_go/utils"
)

var gradeBands = []struct {
	min   float64
	grade string
}{
	{90, "A+"},
	{80, "A"},
	{70, "B+"},
	{60, "B"},
	{50, "C"},
	{40, "D"},
}

// ComputeGrade maps a percentage to a letter. Bounds are inclusive and are
// compared against the unrounded value, so 89.999 is an A.
func ComputeGrade(percentage float64) string {
	for _, b := range gradeBands {
		if percentage >= b.min {
			return b.grade
		}
	}
	return "F"
}

// percentage is unrounded; a zero total yields 0.
func percentage(obtained, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return obtained / total * 100
}

// ScoredMark is a mark with its display percentage and grade.
type ScoredMark struct {
	models.Mark
	Percentage float64 `json:"percentage"`
	Grade      string  `json:"grade"`
}

func Score(m models.Mark) ScoredMark {
	p := percentage(m.MarksObtained, m.TotalMarks)
	return ScoredMark{Mark: m, Percentage: utils.Round2(p), Grade: ComputeGrade(p)}
}

type ExamTypeSummary struct {
	ExamType          string  `json:"examType,omitempty"`
	TotalObtained     float64 `json:"totalObtained"`
	TotalMax          float64 `json:"totalMax"`
	AveragePercentage float64 `json:"averagePercentage"`
	AverageGrade      string  `json:"averageGrade"`
}

// ComputeExamTypeSummary weights by marks: sum(obtained) / sum(max), not the
// mean of per-subject percentages.
func ComputeExamTypeSummary(marks []models.Mark) ExamTypeSummary {
	var s ExamTypeSummary
	for _, m := range marks {
		s.TotalObtained += m.MarksObtained
		s.TotalMax += m.TotalMarks
	}
	p := percentage(s.TotalObtained, s.TotalMax)
	s.TotalObtained = utils.Round2(s.TotalObtained)
	s.TotalMax = utils.Round2(s.TotalMax)
	s.AveragePercentage = utils.Round2(p)
	s.AverageGrade = ComputeGrade(p)
	if len(marks) > 0 {
		s.ExamType = marks[0].ExamType
	}
	return s
}

type ExamGroup struct {
	ExamType string       `json:"examType"`
	Marks    []ScoredMark `json:"marks"`
}

type SubjectGroup struct {
	Subject string      `json:"subject"`
	Exams   []ExamGroup `json:"exams"`
}

// GroupMarksBySubjectAndExam groups by subject then exam type. Groups appear
// in first-seen order and marks keep their input order within a group.
func GroupMarksBySubjectAndExam(marks []models.Mark) []SubjectGroup {
	out := []SubjectGroup{}
	subjects := map[string]int{}
	exams := map[string]map[string]int{}
	for _, m := range marks {
		si, ok := subjects[m.Subject]
		if !ok {
			si = len(out)
			subjects[m.Subject] = si
			exams[m.Subject] = map[string]int{}
			out = append(out, SubjectGroup{Subject: m.Subject, Exams: []ExamGroup{}})
		}
		ei, ok := exams[m.Subject][m.ExamType]
		if !ok {
			ei = len(out[si].Exams)
			exams[m.Subject][m.ExamType] = ei
			out[si].Exams = append(out[si].Exams, ExamGroup{ExamType: m.ExamType, Marks: []ScoredMark{}})
		}
		out[si].Exams[ei].Marks = append(out[si].Exams[ei].Marks, Score(m))
	}
	return out
}

// SummarizeByExamType produces one weighted summary per exam type across all
// subjects, in first-seen order.
func SummarizeByExamType(marks []models.Mark) []ExamTypeSummary {
	order := []string{}
	byType := map[string][]models.Mark{}
	for _, m := range marks {
		if _, ok := byType[m.ExamType]; !ok {
			order = append(order, m.ExamType)
		}
		byType[m.ExamType] = append(byType[m.ExamType], m)
	}
	out := make([]ExamTypeSummary, 0, len(order))
	for _, t := range order {
		out = append(out, ComputeExamTypeSummary(byType[t]))
	}
	return out
}
