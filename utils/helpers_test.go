package utils

import (
	"testing"

	"schooldesk_go/apperrors"
	"schooldesk_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleInput struct {
	FeeType string  `validate:"required,oneof=tuition library"`
	Amount  float64 `validate:"gt=0"`
}

func TestValidateStruct(t *testing.T) {
	require.NoError(t, ValidateStruct(sampleInput{FeeType: "tuition", Amount: 10}))

	err := ValidateStruct(sampleInput{FeeType: "bus", Amount: 0})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindValidationFailed, apperrors.KindOf(err))
	assert.Contains(t, err.Error(), "fee_type must be one of")
	assert.Contains(t, err.Error(), "amount must be greater than 0")
}

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("15082010")
	require.NoError(t, err)
	assert.NoError(t, CheckPassword("15082010", hash))
	assert.Error(t, CheckPassword("wrong", hash))
}

func TestRoundMoneyAndParseDate(t *testing.T) {
	assert.Equal(t, 10.01, RoundMoney(10.005000001))
	assert.Equal(t, 33.33, Round2(100.0/3))

	d, err := ParseDate("2024-06-01")
	require.NoError(t, err)
	assert.Equal(t, 2024, d.Year())

	_, err = ParseDate("01/06/2024")
	assert.Equal(t, apperrors.KindValidationFailed, apperrors.KindOf(err))
}

func TestToNotificationDTO(t *testing.T) {
	n := models.Notification{UserID: 3, Title: "Leave", Channels: models.JSON(`["normal","popup"]`)}
	dto := ToNotificationDTO(n)
	assert.Equal(t, []string{"normal", "popup"}, dto.Channels)
	assert.Equal(t, uint(3), dto.Recipient.ID)
	assert.Nil(t, ToStudentShort(nil))
}
