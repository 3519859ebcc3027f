// Package reports builds spreadsheet exports and reads spreadsheet imports.
package reports

import (
	"bytes"
	"io"
	"strconv"
	"strings"
	"time"

	"schooldesk_go/models"
	"schooldesk_go/services/people"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

const dateLayout = "2006-01-02"

var (
	feeHeader        = []interface{}{"Fee ID", "Student ID", "Student", "Class", "Fee Type", "Amount", "Paid", "Remaining", "Due Date", "Status", "Overridden", "Voided"}
	paymentHeader    = []interface{}{"Fee ID", "Payment ID", "Amount", "Payment Date", "Method", "Remarks", "Recorded By"}
	attendanceHeader = []interface{}{"Date", "Student ID", "Student", "Class", "Section", "Subject", "Status"}
)

func newWorkbook(first string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", first); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func writeRows(f *excelize.File, sheet string, header []interface{}, rows [][]interface{}) error {
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	last, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last+"1", bold); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "A", last, 16); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := row
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func studentName(s *models.Student) string {
	if s == nil {
		return ""
	}
	return s.Name
}

// FeeLedger writes one sheet of fees and one of their payment history.
func FeeLedger(fees []models.Fee) (*bytes.Buffer, error) {
	f, err := newWorkbook("Fees")
	if err != nil {
		return nil, err
	}
	defer f.Close()

	feeRows := make([][]interface{}, 0, len(fees))
	var paymentRows [][]interface{}
	for _, fee := range fees {
		feeRows = append(feeRows, []interface{}{
			fee.ID, fee.StudentID, studentName(fee.Student), fee.Class, fee.FeeType,
			fee.Amount, fee.AmountPaid, fee.Remaining(), fee.DueDate.Format(dateLayout),
			fee.Status, fee.IsOverridden, fee.Voided,
		})
		for _, p := range fee.Payments {
			paymentRows = append(paymentRows, []interface{}{
				fee.ID, p.ID, p.Amount, p.PaymentDate.Format(dateLayout), p.PaymentMethod, p.Remarks, p.RecordedBy,
			})
		}
	}
	if err := writeRows(f, "Fees", feeHeader, feeRows); err != nil {
		return nil, errors.Wrap(err, "write fees sheet")
	}
	if _, err := f.NewSheet("Payments"); err != nil {
		return nil, err
	}
	if err := writeRows(f, "Payments", paymentHeader, paymentRows); err != nil {
		return nil, errors.Wrap(err, "write payments sheet")
	}
	return f.WriteToBuffer()
}

// Attendance writes one row per attendance record.
func Attendance(rows []models.Attendance) (*bytes.Buffer, error) {
	f, err := newWorkbook("Attendance")
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := make([][]interface{}, 0, len(rows))
	for _, a := range rows {
		out = append(out, []interface{}{
			a.Date.Format(dateLayout), a.StudentID, studentName(a.Student), a.Class, a.Section, a.Subject, a.Status,
		})
	}
	if err := writeRows(f, "Attendance", attendanceHeader, out); err != nil {
		return nil, errors.Wrap(err, "write attendance sheet")
	}
	return f.WriteToBuffer()
}

// RowError reports a spreadsheet row that could not be read.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

func mapHeaderIndexes(header []string) map[string]int {
	m := map[string]int{}
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		key = strings.ReplaceAll(key, " ", "_")
		m[key] = i
	}
	return m
}

func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, l := range []string{dateLayout, "02/01/2006", "2/1/2006", "02-01-2006", time.RFC3339} {
		if t, err := time.Parse(l, s); err == nil {
			return &t
		}
	}
	// Excel serial day numbers
	if n, err := strconv.ParseFloat(s, 64); err == nil && n > 0 {
		if t, err := excelize.ExcelDateToTime(n, false); err == nil {
			return &t
		}
	}
	return nil
}

// StudentRow is one parsed data row and its 1-based sheet line.
type StudentRow struct {
	Row   int
	Input people.StudentInput
}

// StudentRows reads the first sheet of an uploaded workbook into student
// inputs. Required columns: name, class, section, dob, guardian_phone.
func StudentRows(r io.Reader) ([]StudentRow, []RowError, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, errors.Wrap(err, "open workbook")
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		sheet = "Sheet1"
	}
	data, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, errors.Wrap(err, "read rows")
	}
	if len(data) == 0 {
		return nil, nil, errors.New("workbook is empty")
	}
	idx := mapHeaderIndexes(data[0])
	for _, col := range []string{"name", "class", "section", "dob", "guardian_phone"} {
		if _, ok := idx[col]; !ok {
			return nil, nil, errors.Errorf("missing column %q", col)
		}
	}
	get := func(row []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var inputs []StudentRow
	var rowErrs []RowError
	for n, row := range data[1:] {
		line := n + 2
		if strings.TrimSpace(strings.Join(row, "")) == "" {
			continue
		}
		dob := parseDate(get(row, "dob"))
		if dob == nil {
			rowErrs = append(rowErrs, RowError{Row: line, Message: "invalid or missing dob"})
			continue
		}
		inputs = append(inputs, StudentRow{Row: line, Input: people.StudentInput{
			Name:           get(row, "name"),
			Class:          get(row, "class"),
			Section:        get(row, "section"),
			DOB:            dob,
			FatherName:     get(row, "father_name"),
			MotherName:     get(row, "mother_name"),
			GuardianPhone:  get(row, "guardian_phone"),
			GuardianLineID: get(row, "guardian_line_id"),
			Address:        get(row, "address"),
		}})
	}
	return inputs, rowErrs, nil
}
