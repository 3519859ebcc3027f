// Package fees owns the fee lifecycle: creation, payment accrual, status
// derivation, administrative overrides and guardian payment notifications.
package fees

import (
	"context"
	"math"
	"time"

	"schooldesk_go/apperrors"
	"schooldesk_go/models"
	"schooldesk_go/services/messaging"
	"schooldesk_go/store"
	"schooldesk_go/utils"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	defaultRetryLimit    = 5
	defaultNotifyTimeout = 15 * time.Second
)

// Repository is the slice of the store the ledger needs.
type Repository interface {
	store.FeeStore
	GetStudent(ctx context.Context, id uint) (*models.Student, error)
	ListStudents(ctx context.Context, q store.StudentQuery) ([]models.Student, error)
}

// Engine applies every fee mutation through a version-checked write.
type Engine struct {
	repo          Repository
	notifier      messaging.Notifier
	retryLimit    int
	notifyTimeout time.Duration
	now           func() time.Time
	log           *logrus.Entry
}

type Option func(*Engine)

// WithRetryLimit bounds the optimistic retries on version conflicts.
func WithRetryLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.retryLimit = n
		}
	}
}

func WithNotifyTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.notifyTimeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine builds the ledger. notifier may be nil, in which case payments
// report a skipped notification.
func NewEngine(repo Repository, notifier messaging.Notifier, opts ...Option) *Engine {
	e := &Engine{
		repo:          repo,
		notifier:      notifier,
		retryLimit:    defaultRetryLimit,
		notifyTimeout: defaultNotifyTimeout,
		now:           time.Now,
		log:           logrus.WithField("component", "fee_ledger"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type CreateFeeInput struct {
	StudentID uint       `json:"student_id" validate:"required"`
	Class     string     `json:"class"`
	FeeType   string     `json:"fee_type" validate:"required,oneof=tuition library sports lab transport other"`
	Amount    float64    `json:"amount" validate:"gt=0"`
	DueDate   *time.Time `json:"due_date" validate:"required"`
	Remarks   string     `json:"remarks"`
}

type PaymentInput struct {
	FeeID         uint       `json:"-"`
	Amount        float64    `json:"amount"`
	PaymentDate   *time.Time `json:"payment_date"`
	PaymentMethod string     `json:"payment_method" validate:"omitempty,oneof=cash online cheque other"`
	Remarks       string     `json:"remarks"`
}

// PaymentResult is the committed fee plus what happened to the guardian message.
type PaymentResult struct {
	Fee          *models.Fee       `json:"fee"`
	Notification messaging.Outcome `json:"notification"`
}

func cents(v float64) int64 {
	return int64(math.Round(v * 100))
}

func remainingCents(f *models.Fee) int64 {
	r := cents(f.Amount) - cents(f.AmountPaid)
	if r < 0 {
		return 0
	}
	return r
}

// DerivedStatus is the status implied by the amounts alone.
func DerivedStatus(f *models.Fee) string {
	switch {
	case cents(f.AmountPaid) >= cents(f.Amount):
		return models.FeeStatusPaid
	case f.AmountPaid > 0:
		return models.FeeStatusPartial
	}
	return models.FeeStatusPending
}

// CreateFee registers a new pending obligation for an existing student.
func (e *Engine) CreateFee(ctx context.Context, in CreateFeeInput, actorID uint) (*models.Fee, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	if math.IsNaN(in.Amount) || math.IsInf(in.Amount, 0) {
		return nil, apperrors.InvalidAmount("amount must be a finite number")
	}
	student, err := e.repo.GetStudent(ctx, in.StudentID)
	if err != nil {
		return nil, notFoundOr(err, "Student")
	}
	class := in.Class
	if class == "" {
		class = student.Class
	}
	fee := &models.Fee{
		StudentID:  student.ID,
		Class:      class,
		FeeType:    in.FeeType,
		Amount:     utils.RoundMoney(in.Amount),
		AmountPaid: 0,
		DueDate:    *in.DueDate,
		Status:     models.FeeStatusPending,
		Remarks:    utils.SanitizeString(in.Remarks),
		UpdatedBy:  actorID,
	}
	if err := e.repo.CreateFee(ctx, fee); err != nil {
		return nil, apperrors.Internal(err, "failed to create fee")
	}
	fee.Student = student
	fee.Payments = []models.FeePayment{}
	e.log.WithFields(logrus.Fields{"fee_id": fee.ID, "student_id": fee.StudentID, "amount": fee.Amount}).Info("Fee created")
	return fee, nil
}

// ApplyPayment appends one payment to the fee's history and recomputes its
// status. The overpayment check runs against the freshly read fee on every
// attempt; a concurrent writer forces a re-read. The guardian notification is
// sent after the write commits and never fails the call.
func (e *Engine) ApplyPayment(ctx context.Context, in PaymentInput, actorID uint) (*PaymentResult, error) {
	if math.IsNaN(in.Amount) || math.IsInf(in.Amount, 0) || cents(in.Amount) <= 0 {
		return nil, apperrors.InvalidAmount("Payment amount must be greater than zero")
	}
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	amount := utils.RoundMoney(in.Amount)
	method := in.PaymentMethod
	if method == "" {
		method = models.PaymentMethodCash
	}
	paymentDate := e.now()
	if in.PaymentDate != nil && !in.PaymentDate.IsZero() {
		paymentDate = *in.PaymentDate
	}
	remarks := utils.SanitizeString(in.Remarks)

	var fee *models.Fee
	for attempt := 1; ; attempt++ {
		current, err := e.repo.GetFee(ctx, in.FeeID)
		if err != nil {
			return nil, notFoundOr(err, "Fee")
		}
		if current.Voided {
			return nil, apperrors.Conflict("Fee has been voided and cannot accept payments")
		}
		remaining := remainingCents(current)
		if cents(amount) > remaining {
			return nil, apperrors.Overpayment(float64(remaining) / 100)
		}

		expected := current.Version
		entry := &models.FeePayment{
			Amount:        amount,
			PaymentDate:   paymentDate,
			PaymentMethod: method,
			Remarks:       remarks,
			RecordedBy:    actorID,
		}
		current.AmountPaid = utils.RoundMoney(current.AmountPaid + amount)
		current.Status = DerivedStatus(current)
		current.IsOverridden = false
		if current.Status == models.FeeStatusPaid && current.PaidDate == nil {
			pd := paymentDate
			current.PaidDate = &pd
		}
		current.PaymentMethod = method
		if remarks != "" {
			current.Remarks = remarks
		}
		current.UpdatedBy = actorID

		err = e.repo.CommitPayment(ctx, current, expected, entry)
		if err == nil {
			fee = current
			break
		}
		if errors.Is(err, store.ErrVersionConflict) {
			if attempt < e.retryLimit {
				e.log.WithFields(logrus.Fields{"fee_id": in.FeeID, "attempt": attempt}).Debug("Fee version conflict, retrying")
				continue
			}
			return nil, apperrors.Conflict("Fee was modified concurrently, please retry")
		}
		return nil, notFoundOr(err, "Fee")
	}

	e.log.WithFields(logrus.Fields{
		"fee_id":      fee.ID,
		"amount":      amount,
		"amount_paid": fee.AmountPaid,
		"status":      fee.Status,
		"recorded_by": actorID,
	}).Info("Payment recorded")

	outcome := e.notifyPayment(ctx, fee, amount, paymentDate, method)
	return &PaymentResult{Fee: fee, Notification: outcome}, nil
}

// OverrideStatus sets the status directly without a payment entry. The fee is
// flagged IsOverridden whenever the result disagrees with its amounts.
func (e *Engine) OverrideStatus(ctx context.Context, feeID uint, status string, actorID uint) (*models.Fee, error) {
	if !models.IsValidFeeStatus(status) {
		return nil, apperrors.InvalidStatus("Invalid fee status %q", status)
	}
	return e.mutate(ctx, feeID, func(f *models.Fee) error {
		if f.Voided {
			return apperrors.Conflict("Fee has been voided")
		}
		f.Status = status
		if status == models.FeeStatusPaid && f.PaidDate == nil {
			now := e.now()
			f.PaidDate = &now
		}
		f.IsOverridden = status != DerivedStatus(f)
		f.UpdatedBy = actorID
		return nil
	})
}

// VoidFee retires a fee that already has payments. History is kept and the
// fee drops out of listings and balances.
func (e *Engine) VoidFee(ctx context.Context, feeID uint, reason string, actorID uint) (*models.Fee, error) {
	reason = utils.SanitizeString(reason)
	if reason == "" {
		return nil, apperrors.Validation("reason is required to void a fee")
	}
	return e.mutate(ctx, feeID, func(f *models.Fee) error {
		if f.Voided {
			return apperrors.Conflict("Fee is already voided")
		}
		f.Voided = true
		f.VoidReason = reason
		f.UpdatedBy = actorID
		return nil
	})
}

// DeleteFee removes a fee with no payment history. Fees with payments
// must be voided instead. The delete is conditional on the version read here,
// so a payment committed in between makes it retry against the fresh row.
func (e *Engine) DeleteFee(ctx context.Context, feeID uint) error {
	for attempt := 0; ; attempt++ {
		fee, err := e.repo.GetFee(ctx, feeID)
		if err != nil {
			return notFoundOr(err, "Fee")
		}
		if len(fee.Payments) > 0 {
			return apperrors.Validation("Fee has %d recorded payment(s); void it instead of deleting", len(fee.Payments))
		}
		err = e.repo.DeleteFee(ctx, feeID, fee.Version)
		if errors.Is(err, store.ErrVersionConflict) && attempt < e.retryLimit {
			continue
		}
		if errors.Is(err, store.ErrVersionConflict) {
			return apperrors.Conflict("Fee was modified concurrently, please retry")
		}
		if err != nil {
			return notFoundOr(err, "Fee")
		}
		e.log.WithField("fee_id", feeID).Info("Fee deleted")
		return nil
	}
}

// MarkOverdue moves untouched pending fees whose due date is before asOf to
// overdue. Returns how many fees changed.
func (e *Engine) MarkOverdue(ctx context.Context, asOf time.Time) (int, error) {
	pending, err := e.repo.ListFees(ctx, store.FeeQuery{Status: models.FeeStatusPending})
	if err != nil {
		return 0, apperrors.Internal(err, "failed to list pending fees")
	}
	cutoff := store.DateOnly(asOf)
	changed := 0
	for _, f := range pending {
		if !store.DateOnly(f.DueDate).Before(cutoff) {
			continue
		}
		_, err := e.mutate(ctx, f.ID, func(cur *models.Fee) error {
			if cur.Status != models.FeeStatusPending || cur.Voided {
				return errSkip
			}
			cur.Status = models.FeeStatusOverdue
			cur.IsOverridden = true
			return nil
		})
		switch {
		case err == nil:
			changed++
		case errors.Is(err, errSkip):
		default:
			e.log.WithError(err).WithField("fee_id", f.ID).Warn("Failed to mark fee overdue")
		}
	}
	if changed > 0 {
		e.log.WithField("count", changed).Info("Fees marked overdue")
	}
	return changed, nil
}

var errSkip = errors.New("skip")

// mutate runs a read-modify-write on one fee under the version check.
func (e *Engine) mutate(ctx context.Context, feeID uint, apply func(*models.Fee) error) (*models.Fee, error) {
	for attempt := 1; ; attempt++ {
		fee, err := e.repo.GetFee(ctx, feeID)
		if err != nil {
			return nil, notFoundOr(err, "Fee")
		}
		expected := fee.Version
		if err := apply(fee); err != nil {
			return nil, err
		}
		err = e.repo.SaveFee(ctx, fee, expected)
		if err == nil {
			return fee, nil
		}
		if errors.Is(err, store.ErrVersionConflict) && attempt < e.retryLimit {
			continue
		}
		if errors.Is(err, store.ErrVersionConflict) {
			return nil, apperrors.Conflict("Fee was modified concurrently, please retry")
		}
		return nil, notFoundOr(err, "Fee")
	}
}

func (e *Engine) GetFee(ctx context.Context, feeID uint) (*models.Fee, error) {
	fee, err := e.repo.GetFee(ctx, feeID)
	if err != nil {
		return nil, notFoundOr(err, "Fee")
	}
	return fee, nil
}

func (e *Engine) ListFees(ctx context.Context, q store.FeeQuery) ([]models.Fee, error) {
	fees, err := e.repo.ListFees(ctx, q)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to list fees")
	}
	return fees, nil
}

// FeesForClass returns the fees of every student currently in class/section.
func (e *Engine) FeesForClass(ctx context.Context, class, section string) ([]models.Fee, error) {
	students, err := e.repo.ListStudents(ctx, store.StudentQuery{Class: class, Section: section})
	if err != nil {
		return nil, apperrors.Internal(err, "failed to list students")
	}
	ids := make([]uint, 0, len(students))
	for _, s := range students {
		ids = append(ids, s.ID)
	}
	return e.ListFees(ctx, store.FeeQuery{StudentIDs: ids})
}

func notFoundOr(err error, resource string) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperrors.NotFound(resource)
	}
	if apperrors.As(err) != nil {
		return err
	}
	return apperrors.Internal(err, "fee store failure")
}
