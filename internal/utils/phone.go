// internal/utils/phone.go
package utils

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/marketua/marketplace-backend/internal/apperror"
)

const ukraineCountryCode = "38"

var (
	// CanonicalPhonePattern is the only form stored on a user.
	CanonicalPhonePattern = regexp.MustCompile(`^\+38 \(\d{3}\) \d{3} \d{4}$`)

	// inputPhonePattern accepts the spacing variants clients send.
	inputPhonePattern = regexp.MustCompile(`^(?:\+?38\s?)?(?:\(\d{3}\)|\d{3})\s?\d{3}[\s-]?\d{2}[\s-]?\d{2}$`)

	nonDigits = regexp.MustCompile(`\D`)
)

// ValidatePhone checks a raw Ukrainian phone number.
func ValidatePhone(raw string) error {
	digits := nonDigits.ReplaceAllString(raw, "")

	switch len(digits) {
	case 10:
	case 12:
		if !strings.HasPrefix(digits, ukraineCountryCode) {
			return apperror.Field(apperror.CodeInvalidCountryCode,
				"Phone number must start with the +38 country code.", "phone")
		}
	default:
		return apperror.Field(apperror.CodeInvalidDigitCount,
			"Phone number must contain 10 digits, or 12 with the country code.", "phone")
	}

	if !inputPhonePattern.MatchString(strings.TrimSpace(raw)) {
		return apperror.Field(apperror.CodeInvalidPhone, "Enter a valid phone number.", "phone")
	}
	return nil
}

// NormalizePhone returns the canonical "+38 (NNN) NNN NNNN" form, or the input
// unchanged when it cannot be parsed. It never fails.
func NormalizePhone(raw string) string {
	digits := nonDigits.ReplaceAllString(raw, "")

	switch {
	case len(digits) == 12 && strings.HasPrefix(digits, ukraineCountryCode):
		digits = digits[2:]
	case len(digits) == 10:
	default:
		return raw
	}

	return fmt.Sprintf("+38 (%s) %s %s", digits[0:3], digits[3:6], digits[6:10])
}

// IsCanonicalPhone reports whether phone is stored-form.
func IsCanonicalPhone(phone string) bool {
	return CanonicalPhonePattern.MatchString(phone)
}
