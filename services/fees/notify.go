package fees

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"schooldesk_go/models"
	"schooldesk_go/services/messaging"
	"schooldesk_go/store"

	"github.com/sirupsen/logrus"
)

// PaymentNotice is everything the guardian message renders.
type PaymentNotice struct {
	StudentName    string
	Class          string
	Section        string
	FeeType        string
	PaymentAmount  float64
	PaymentDate    time.Time
	PaymentMethod  string
	FeeAmount      float64
	FeeAmountPaid  float64
	FeeRemaining   float64
	TotalRemaining float64
}

func formatAmount(v float64) string {
	return "₹" + strconv.FormatFloat(float64(cents(v))/100, 'f', -1, 64)
}

func formatFeeType(t string) string {
	if t == "" {
		return t
	}
	t = strings.ReplaceAll(t, "_", " ")
	return strings.ToUpper(t[:1]) + t[1:]
}

// FormatPaymentMessage renders the guardian SMS/WhatsApp body.
func FormatPaymentMessage(n PaymentNotice) string {
	var b strings.Builder
	b.WriteString("💰 Fee Payment Received!\n\n")
	fmt.Fprintf(&b, "📚 Student: %s\n", n.StudentName)
	fmt.Fprintf(&b, "🏫 Class: %s-%s\n\n", n.Class, n.Section)
	b.WriteString("💵 Payment Details:\n")
	fmt.Fprintf(&b, "   Fee Type: %s\n", formatFeeType(n.FeeType))
	fmt.Fprintf(&b, "   Amount Paid: %s\n", formatAmount(n.PaymentAmount))
	fmt.Fprintf(&b, "   Payment Date: %s\n", n.PaymentDate.Format("02 Jan 2006"))
	fmt.Fprintf(&b, "   Payment Method: %s\n\n", n.PaymentMethod)
	b.WriteString("📊 Fee Status:\n")
	fmt.Fprintf(&b, "   Total Fee: %s\n", formatAmount(n.FeeAmount))
	fmt.Fprintf(&b, "   Amount Paid: %s\n", formatAmount(n.FeeAmountPaid))
	fmt.Fprintf(&b, "   Amount Left: %s\n\n", formatAmount(n.FeeRemaining))
	if cents(n.FeeRemaining) == 0 {
		b.WriteString("✅ This fee is now fully paid!\n\n")
	} else {
		fmt.Fprintf(&b, "⚠️ Remaining for this fee: %s\n\n", formatAmount(n.FeeRemaining))
	}
	if cents(n.TotalRemaining) > 0 {
		fmt.Fprintf(&b, "📋 Total Remaining Fees: %s\n\n", formatAmount(n.TotalRemaining))
	} else {
		b.WriteString("🎉 All fees have been paid!\n\n")
	}
	b.WriteString("Thank you for your payment!")
	return b.String()
}

// OutstandingBalance sums the unpaid remainder of a student's pending,
// partial and overdue fees.
func (e *Engine) OutstandingBalance(ctx context.Context, studentID uint) (float64, error) {
	fees, err := e.repo.ListFees(ctx, store.FeeQuery{StudentID: studentID})
	if err != nil {
		return 0, err
	}
	var total int64
	for i := range fees {
		switch fees[i].Status {
		case models.FeeStatusPending, models.FeeStatusPartial, models.FeeStatusOverdue:
			total += remainingCents(&fees[i])
		}
	}
	return float64(total) / 100, nil
}

func (e *Engine) notifyPayment(ctx context.Context, fee *models.Fee, amount float64, paidAt time.Time, method string) messaging.Outcome {
	if e.notifier == nil {
		return messaging.Skipped("notifications disabled")
	}
	log := e.log.WithFields(logrus.Fields{"fee_id": fee.ID, "student_id": fee.StudentID})

	student, err := e.repo.GetStudent(ctx, fee.StudentID)
	if err != nil {
		log.WithError(err).Warn("Payment notification skipped: student lookup failed")
		return messaging.Skipped("student not found")
	}
	if student.GuardianPhone == "" && student.GuardianLineID == "" {
		return messaging.Skipped("no guardian contact on file")
	}

	total, err := e.OutstandingBalance(ctx, student.ID)
	if err != nil {
		log.WithError(err).Warn("Payment notification skipped: balance lookup failed")
		return messaging.Skipped("balance lookup failed")
	}

	message := FormatPaymentMessage(PaymentNotice{
		StudentName:    student.Name,
		Class:          student.Class,
		Section:        student.Section,
		FeeType:        fee.FeeType,
		PaymentAmount:  amount,
		PaymentDate:    paidAt,
		PaymentMethod:  method,
		FeeAmount:      fee.Amount,
		FeeAmountPaid:  fee.AmountPaid,
		FeeRemaining:   float64(remainingCents(fee)) / 100,
		TotalRemaining: total,
	})

	// The ledger write is already durable; the client going away must not
	// cut the guardian message short.
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.notifyTimeout)
	defer cancel()

	outcome := messaging.Outcome{Attempted: true, Results: []messaging.Result{}}
	if student.GuardianPhone != "" {
		outcome = e.notifier.SendAll(nctx, student.GuardianPhone, message, messaging.ChannelSMS, messaging.ChannelWhatsApp)
	}
	if student.GuardianLineID != "" {
		outcome.Results = append(outcome.Results, e.notifier.Send(nctx, messaging.ChannelLINE, student.GuardianLineID, message))
	}
	if !outcome.AnySucceeded() {
		log.WithField("results", outcome.Results).Warn("Payment notification failed on every channel")
	}
	return outcome
}
