// Package validation checks user-supplied contact details and service areas.
// Every validator is pure and never panics.
package validation

import (
	"regexp"
	"strings"

	"eyegic/internal/domain"
)

const (
	msgPhoneRequired = "Phone number is required"
	msgPhoneLength   = "Phone number must be exactly 10 digits"
	msgEmailRequired = "Email is required"
	msgEmailFormat   = "Please enter a valid email address"
	msgPinRequired   = "Service areas (PIN codes) are required"
	msgPinSeparator  = "Please separate PIN codes with a single space only"
	msgPinDigits     = "Each PIN code must be exactly 6 digits"

	phoneDigits = 10
	pinDigits   = 6
)

var (
	emailPattern  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	repeatedSpace = regexp.MustCompile(`\s{2,}`)
	whitespaceRun = regexp.MustCompile(`\s+`)
)

// Result is the outcome of a single validator. Kind and Reason are empty when Valid.
type Result struct {
	Valid  bool
	Kind   string
	Reason string
}

func ok() Result {
	return Result{Valid: true}
}

func fail(kind, reason string) Result {
	return Result{Kind: kind, Reason: reason}
}

// Err converts a failed result into a domain validation error, or nil.
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	return domain.Validation(r.Kind, r.Reason)
}

// SanitizePhone keeps only ASCII digits.
func SanitizePhone(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func ValidatePhone(input string) Result {
	digits := SanitizePhone(input)
	switch {
	case digits == "":
		return fail(domain.CodeInvalidPhone, msgPhoneRequired)
	case len(digits) != phoneDigits:
		return fail(domain.CodeInvalidPhone, msgPhoneLength)
	}
	return ok()
}

func ValidateEmail(input string) Result {
	if input == "" {
		return fail(domain.CodeInvalidEmail, msgEmailRequired)
	}
	if !emailPattern.MatchString(input) {
		return fail(domain.CodeInvalidEmail, msgEmailFormat)
	}
	return ok()
}

// ValidatePinCodes accepts one or more 6-digit PIN codes separated by single spaces.
func ValidatePinCodes(input string) Result {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return fail(domain.CodeInvalidPinFormat, msgPinRequired)
	}
	if strings.ContainsAny(input, ",\n") || repeatedSpace.MatchString(input) {
		return fail(domain.CodeInvalidPinFormat, msgPinSeparator)
	}
	for _, token := range strings.Split(trimmed, " ") {
		if !isPinCode(token) {
			return fail(domain.CodeInvalidPinCode, msgPinDigits)
		}
	}
	return ok()
}

// NormalizePinCodes trims the input and collapses whitespace runs into one space.
func NormalizePinCodes(input string) string {
	return whitespaceRun.ReplaceAllString(strings.TrimSpace(input), " ")
}

// PinCodes splits a normalized service-area string into its codes.
func PinCodes(serviceAreas string) []string {
	return strings.Fields(serviceAreas)
}

func isPinCode(token string) bool {
	if len(token) != pinDigits {
		return false
	}
	for i := 0; i < len(token); i++ {
		if token[i] < '0' || token[i] > '9' {
			return false
		}
	}
	return true
}
