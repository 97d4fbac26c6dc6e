package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIs(t *testing.T) {
	err := Validation(CodeInvalidPhone, "Phone number must be exactly 10 digits")

	assert.True(t, errors.Is(err, ErrValidation))
	assert.True(t, errors.Is(err, ErrInvalidPhone))
	assert.False(t, errors.Is(err, ErrInvalidEmail))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "Phone number must be exactly 10 digits", err.Error())
}

func TestErrorIs_Wrapped(t *testing.T) {
	err := fmt.Errorf("update booking: %w", NotFound("booking %d not found", 7))

	assert.ErrorIs(t, err, ErrNotFound)
	de, ok := AsError(err)
	assert.True(t, ok)
	assert.Equal(t, KindNotFound, de.Kind)
	assert.Equal(t, "booking 7 not found", de.Reason)
}

func TestError_EmptyReason(t *testing.T) {
	assert.Equal(t, "Forbidden", ErrForbidden.Error())
	assert.Equal(t, "ValidationError: InvalidOTP", ErrInvalidOTP.Error())
}
