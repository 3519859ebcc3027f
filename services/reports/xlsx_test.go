package reports

import (
	"bytes"
	"testing"
	"time"

	"schooldesk_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestFeeLedgerWorkbook(t *testing.T) {
	due := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)
	fees := []models.Fee{{
		BaseModel: models.BaseModel{ID: 7}, StudentID: 3, Student: &models.Student{Name: "Asha"},
		Class: "5", FeeType: models.FeeTypeTuition, Amount: 1000, AmountPaid: 400, DueDate: due, Status: models.FeeStatusPartial,
		Payments: []models.FeePayment{{ID: 1, FeeID: 7, Amount: 400, PaymentDate: due, PaymentMethod: models.PaymentMethodCash}},
	}}
	buf, err := FeeLedger(fees)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Fees")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Fee ID", rows[0][0])
	assert.Equal(t, "Asha", rows[1][2])
	assert.Equal(t, "600", rows[1][7])
	assert.Equal(t, "2026-04-01", rows[1][8])

	payments, err := f.GetRows("Payments")
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.Equal(t, "400", payments[1][2])
}

func TestAttendanceWorkbook(t *testing.T) {
	day := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	buf, err := Attendance([]models.Attendance{{StudentID: 1, Class: "5", Section: "A", Subject: "all", Date: day, Status: "present"}})
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Attendance")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "present", rows[1][6])
}

func TestStudentRows(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Name", "Class", "Section", "DOB", "Guardian Phone", "Father Name"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"Asha Rao", "5", "A", "2012-03-07", "9876543210", "Ravi"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]interface{}{"Dev", "5", "A", "not a date", "9876543211"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A4", &[]interface{}{"Kiran", "5", "B", "07/03/2012", "9876543212"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	rows, rowErrs, err := StudentRows(buf)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 2, rows[0].Row)
	assert.Equal(t, "Asha Rao", rows[0].Input.Name)
	assert.Equal(t, "Ravi", rows[0].Input.FatherName)
	assert.Equal(t, time.March, rows[1].Input.DOB.Month())
	require.Len(t, rowErrs, 1)
	assert.Equal(t, 3, rowErrs[0].Row)
}

func TestStudentRowsMissingColumn(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Name", "Class"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	_, _, err = StudentRows(buf)
	assert.Error(t, err)
}
