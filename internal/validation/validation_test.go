package validation

import (
	"errors"
	"testing"

	"eyegic/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestValidatePhone(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		valid  bool
		reason string
	}{
		{"plain", "9876543210", true, ""},
		{"formatted", "(987) 654-3210", true, ""},
		{"empty", "", false, "Phone number is required"},
		{"no digits", "abc", false, "Phone number is required"},
		{"short", "12345", false, "Phone number must be exactly 10 digits"},
		{"long", "+91 98765 43210", false, "Phone number must be exactly 10 digits"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ValidatePhone(tt.input)
			assert.Equal(t, tt.valid, res.Valid)
			assert.Equal(t, tt.reason, res.Reason)
			if !tt.valid {
				assert.Equal(t, domain.CodeInvalidPhone, res.Kind)
			}
		})
	}
}

func TestSanitizePhone(t *testing.T) {
	assert.Equal(t, "9876543210", SanitizePhone("98-7654 3210"))
	assert.Equal(t, "", SanitizePhone("phone"))
	assert.Equal(t, "12", SanitizePhone("1٣2"))
}

func TestValidateEmail(t *testing.T) {
	assert.True(t, ValidateEmail("asha@example.in").Valid)
	assert.True(t, ValidateEmail("a.b+c@mail.co.uk").Valid)

	res := ValidateEmail("")
	assert.False(t, res.Valid)
	assert.Equal(t, "Email is required", res.Reason)

	for _, bad := range []string{"user@host", "user example@x.com", "@x.com", "user@@x.com", "user@x."} {
		res := ValidateEmail(bad)
		assert.False(t, res.Valid, bad)
		assert.Equal(t, domain.CodeInvalidEmail, res.Kind)
		assert.Equal(t, "Please enter a valid email address", res.Reason)
	}
}

func TestValidatePinCodes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kind  string
	}{
		{"single", "110001", ""},
		{"several", "110001 400001 560001", ""},
		{"padded", "  110001 400001 ", ""},
		{"empty", "", domain.CodeInvalidPinFormat},
		{"blank", "   ", domain.CodeInvalidPinFormat},
		{"comma", "110001,400001", domain.CodeInvalidPinFormat},
		{"newline", "110001\n400001", domain.CodeInvalidPinFormat},
		{"double space", "110001  400001", domain.CodeInvalidPinFormat},
		{"five digits", "11000", domain.CodeInvalidPinCode},
		{"letters", "11000a", domain.CodeInvalidPinCode},
		{"seven digits", "110001 4000011", domain.CodeInvalidPinCode},
		{"tab separated", "110001\t400001", domain.CodeInvalidPinCode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ValidatePinCodes(tt.input)
			assert.Equal(t, tt.kind == "", res.Valid)
			assert.Equal(t, tt.kind, res.Kind)
		})
	}
}

func TestNormalizePinCodes(t *testing.T) {
	assert.Equal(t, "110001 400001", NormalizePinCodes("  110001 \t 400001\n"))
	assert.Equal(t, "", NormalizePinCodes("   "))
	assert.Equal(t, []string{"110001", "400001"}, PinCodes("110001 400001"))
}

func TestResultErr(t *testing.T) {
	assert.NoError(t, ValidatePhone("9876543210").Err())

	err := ValidatePinCodes("1234").Err()
	assert.True(t, errors.Is(err, domain.ErrInvalidPinCode))
	assert.True(t, errors.Is(err, domain.ErrValidation))
	assert.Equal(t, "Each PIN code must be exactly 6 digits", err.Error())
}
