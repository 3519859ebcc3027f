package apperrors

import (
	stderrors "errors"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(NotFound("Fee")))
	assert.Equal(t, KindInternal, KindOf(stderrors.New("boom")))
	assert.Equal(t, KindValidationFailed, KindOf(errors.Wrap(Validation("bad"), "outer")))
}

func TestOverpaymentCarriesRemaining(t *testing.T) {
	err := Overpayment(250)
	require.NotNil(t, err.Remaining)
	assert.Equal(t, 250.0, *err.Remaining)
	assert.Contains(t, err.Error(), "250.00")
	assert.True(t, Is(err, KindOverpaymentRejected))
}

func TestInternalKeepsKind(t *testing.T) {
	err := Internal(stderrors.New("connection reset"), "failed to save fee")
	assert.Equal(t, KindInternal, KindOf(err))
	assert.Contains(t, err.Error(), "connection reset")
	assert.Nil(t, As(nil))
}
