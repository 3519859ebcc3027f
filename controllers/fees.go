package controllers

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"schooldesk_go/apperrors"
	"schooldesk_go/services/fees"
	"schooldesk_go/services/people"
	"schooldesk_go/services/reports"
	"schooldesk_go/store"

	"github.com/gofiber/fiber/v2"
)

type FeeController struct {
	engine *fees.Engine
	people *people.Service
}

func NewFeeController(engine *fees.Engine, p *people.Service) *FeeController {
	return &FeeController{engine: engine, people: p}
}

type createFeeRequest struct {
	StudentID uint    `json:"student_id"`
	Class     string  `json:"class"`
	FeeType   string  `json:"fee_type"`
	Amount    float64 `json:"amount"`
	DueDate   string  `json:"due_date"`
	Remarks   string  `json:"remarks"`
}

type paymentRequest struct {
	Amount        json.RawMessage `json:"amount"`
	PaymentDate   string          `json:"payment_date"`
	PaymentMethod string          `json:"payment_method"`
	Remarks       string          `json:"remarks"`
}

// parseAmount accepts a JSON number or a numeric string.
func parseAmount(raw json.RawMessage) (float64, error) {
	invalid := apperrors.InvalidAmount("Payment amount must be a positive number")
	if len(raw) == 0 {
		return 0, invalid
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err == nil {
		return v, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, invalid
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, invalid
	}
	return v, nil
}

// CreateFee creates a pending fee for a student (admin)
func (fc *FeeController) CreateFee(c *fiber.Ctx) error {
	var req createFeeRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	due, err := optionalDate(req.DueDate)
	if err != nil {
		return respondError(c, err)
	}
	fee, err := fc.engine.CreateFee(c.UserContext(), fees.CreateFeeInput{
		StudentID: req.StudentID,
		Class:     req.Class,
		FeeType:   req.FeeType,
		Amount:    req.Amount,
		DueDate:   due,
		Remarks:   req.Remarks,
	}, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Fee created successfully", "fee": fee})
}

func feeQuery(c *fiber.Ctx) (store.FeeQuery, error) {
	studentID, err := queryUint(c, "student_id")
	if err != nil {
		return store.FeeQuery{}, err
	}
	return store.FeeQuery{
		StudentID:     studentID,
		Class:         c.Query("class"),
		Status:        c.Query("status"),
		FeeType:       c.Query("fee_type"),
		IncludeVoided: c.QueryBool("include_voided"),
	}, nil
}

// GetFees lists fees with filters (admin). A section filter narrows the
// class to that section's current students.
func (fc *FeeController) GetFees(c *fiber.Ctx) error {
	q, err := feeQuery(c)
	if err != nil {
		return respondError(c, err)
	}
	if section := c.Query("section"); section != "" {
		students, err := fc.people.ListStudents(c.UserContext(), store.StudentQuery{Class: q.Class, Section: section})
		if err != nil {
			return respondError(c, err)
		}
		q.StudentIDs = make([]uint, 0, len(students))
		for _, s := range students {
			q.StudentIDs = append(q.StudentIDs, s.ID)
		}
		if len(q.StudentIDs) == 0 {
			return c.JSON(fiber.Map{"fees": []interface{}{}, "count": 0})
		}
	}
	rows, err := fc.engine.ListFees(c.UserContext(), q)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"fees": rows, "count": len(rows)})
}

func (fc *FeeController) GetFee(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	fee, err := fc.engine.GetFee(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"fee": fee})
}

// RecordPayment applies a partial or full payment
func (fc *FeeController) RecordPayment(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req paymentRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return respondError(c, err)
	}
	paid, err := optionalDate(req.PaymentDate)
	if err != nil {
		return respondError(c, err)
	}
	res, err := fc.engine.ApplyPayment(c.UserContext(), fees.PaymentInput{
		FeeID:         id,
		Amount:        amount,
		PaymentDate:   paid,
		PaymentMethod: req.PaymentMethod,
		Remarks:       req.Remarks,
	}, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message":      "Payment recorded successfully",
		"fee":          res.Fee,
		"notification": res.Notification,
	})
}

type overrideRequest struct {
	Status string `json:"status"`
}

// OverrideStatus sets a fee's status without a payment
func (fc *FeeController) OverrideStatus(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req overrideRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	fee, err := fc.engine.OverrideStatus(c.UserContext(), id, req.Status, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Fee status updated", "fee": fee})
}

type voidRequest struct {
	Reason string `json:"reason"`
}

func (fc *FeeController) VoidFee(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req voidRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	fee, err := fc.engine.VoidFee(c.UserContext(), id, req.Reason, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Fee voided", "fee": fee})
}

func (fc *FeeController) DeleteFee(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	if err := fc.engine.DeleteFee(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Fee deleted successfully"})
}

// ExportFees downloads the filtered ledger as XLSX
func (fc *FeeController) ExportFees(c *fiber.Ctx) error {
	q, err := feeQuery(c)
	if err != nil {
		return respondError(c, err)
	}
	rows, err := fc.engine.ListFees(c.UserContext(), q)
	if err != nil {
		return respondError(c, err)
	}
	buf, err := reports.FeeLedger(rows)
	if err != nil {
		return respondError(c, apperrors.Internal(err, "failed to build fee export"))
	}
	return sendXLSX(c, "fees_"+time.Now().Format("20060102")+".xlsx", buf.Bytes())
}

// GetClassFees lists fees of the acting teacher's students
func (fc *FeeController) GetClassFees(c *fiber.Ctx) error {
	t, err := fc.people.TeacherByUser(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	class, section := c.Query("class", t.AssignedClass), c.Query("section", t.AssignedSection)
	if !t.Teaches(class, section) {
		return respondError(c, apperrors.Forbidden("Not authorized to view fees for this class"))
	}
	rows, err := fc.engine.FeesForClass(c.UserContext(), class, section)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"fees": rows, "count": len(rows)})
}

// GetMyFees returns the acting student's fees and statistics
func (fc *FeeController) GetMyFees(c *fiber.Ctx) error {
	st, err := fc.people.StudentByUser(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	rows, stats, err := fc.engine.StudentFees(c.UserContext(), st.ID, c.Query("status"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"fees": rows, "statistics": stats})
}
