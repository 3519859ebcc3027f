package fees

import (
	"context"

	"schooldesk_go/models"
	"schooldesk_go/store"
)

// Statistics buckets a student's fees. Paid and pending buckets sum face
// amounts; partial and overdue sum what is still owed.
type Statistics struct {
	TotalFees      float64 `json:"totalFees"`
	TotalPaid      float64 `json:"totalPaid"`
	TotalRemaining float64 `json:"totalRemaining"`
	PaidFees       float64 `json:"paidFees"`
	PartialFees    float64 `json:"partialFees"`
	PendingFees    float64 `json:"pendingFees"`
	OverdueFees    float64 `json:"overdueFees"`
}

// Summarize is the pure aggregation behind ComputeStudentFeeStatistics.
func Summarize(fees []models.Fee) Statistics {
	var total, paid, remaining, paidB, partialB, pendingB, overdueB int64
	for i := range fees {
		f := &fees[i]
		r := remainingCents(f)
		total += cents(f.Amount)
		paid += cents(f.AmountPaid)
		remaining += r
		switch f.Status {
		case models.FeeStatusPaid:
			paidB += cents(f.Amount)
		case models.FeeStatusPartial:
			partialB += r
		case models.FeeStatusPending:
			pendingB += cents(f.Amount)
		case models.FeeStatusOverdue:
			overdueB += r
		}
	}
	toMoney := func(c int64) float64 { return float64(c) / 100 }
	return Statistics{
		TotalFees:      toMoney(total),
		TotalPaid:      toMoney(paid),
		TotalRemaining: toMoney(remaining),
		PaidFees:       toMoney(paidB),
		PartialFees:    toMoney(partialB),
		PendingFees:    toMoney(pendingB),
		OverdueFees:    toMoney(overdueB),
	}
}

// ComputeStudentFeeStatistics aggregates every non-void fee of the student.
func (e *Engine) ComputeStudentFeeStatistics(ctx context.Context, studentID uint) (Statistics, error) {
	if _, err := e.repo.GetStudent(ctx, studentID); err != nil {
		return Statistics{}, notFoundOr(err, "Student")
	}
	fees, err := e.ListFees(ctx, store.FeeQuery{StudentID: studentID})
	if err != nil {
		return Statistics{}, err
	}
	return Summarize(fees), nil
}

// StudentFees returns the student's fees, optionally filtered by status,
// with statistics over the returned set.
func (e *Engine) StudentFees(ctx context.Context, studentID uint, status string) ([]models.Fee, Statistics, error) {
	fees, err := e.ListFees(ctx, store.FeeQuery{StudentID: studentID, Status: status})
	if err != nil {
		return nil, Statistics{}, err
	}
	return fees, Summarize(fees), nil
}
