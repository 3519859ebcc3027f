package attendance

import (
	"schooldesk_go/models"
	"schooldesk_go/utils"
)

type Tally struct {
	Present int `json:"present"`
	Absent  int `json:"absent"`
	Late    int `json:"late"`
}

func (t *Tally) add(status string) {
	switch status {
	case models.AttendancePresent:
		t.Present++
	case models.AttendanceAbsent:
		t.Absent++
	case models.AttendanceLate:
		t.Late++
	}
}

type SubjectStatistics struct {
	Subject string `json:"subject"`
	// TotalClasses counts distinct calendar days with at least one row.
	TotalClasses int `json:"totalClasses"`
	Tally
	Students map[uint]*Tally `json:"students"`
}

type ClassStatistics struct {
	StatsBySubject []SubjectStatistics `json:"statsBySubject"`
	AllSubjects    []string            `json:"allSubjects"`
}

// AggregateBySubject buckets rows by subject in first-seen order. Students
// without rows in a bucket are simply absent from its Students map.
func AggregateBySubject(rows []models.Attendance) ClassStatistics {
	out := ClassStatistics{StatsBySubject: []SubjectStatistics{}, AllSubjects: []string{}}
	index := map[string]int{}
	days := map[string]map[string]struct{}{}

	for _, r := range rows {
		subj := r.Subject
		if subj == "" {
			subj = models.SubjectAll
		}
		i, ok := index[subj]
		if !ok {
			i = len(out.StatsBySubject)
			index[subj] = i
			days[subj] = map[string]struct{}{}
			out.AllSubjects = append(out.AllSubjects, subj)
			out.StatsBySubject = append(out.StatsBySubject, SubjectStatistics{
				Subject:  subj,
				Students: map[uint]*Tally{},
			})
		}
		bucket := &out.StatsBySubject[i]
		bucket.Tally.add(r.Status)
		st, ok := bucket.Students[r.StudentID]
		if !ok {
			st = &Tally{}
			bucket.Students[r.StudentID] = st
		}
		st.add(r.Status)
		days[subj][r.Date.UTC().Format("2006-01-02")] = struct{}{}
	}
	for i := range out.StatsBySubject {
		out.StatsBySubject[i].TotalClasses = len(days[out.StatsBySubject[i].Subject])
	}
	return out
}

type StudentStatistics struct {
	TotalDays            int     `json:"totalDays"`
	PresentDays          int     `json:"presentDays"`
	AbsentDays           int     `json:"absentDays"`
	LateDays             int     `json:"lateDays"`
	AttendancePercentage float64 `json:"attendancePercentage"`
}

// SummarizeStudent counts a student's rows. The percentage is 0 when there
// are no rows.
func SummarizeStudent(rows []models.Attendance) StudentStatistics {
	var t Tally
	for _, r := range rows {
		t.add(r.Status)
	}
	stats := StudentStatistics{
		TotalDays:   len(rows),
		PresentDays: t.Present,
		AbsentDays:  t.Absent,
		LateDays:    t.Late,
	}
	if stats.TotalDays > 0 {
		stats.AttendancePercentage = utils.Round2(float64(t.Present) / float64(stats.TotalDays) * 100)
	}
	return stats
}
