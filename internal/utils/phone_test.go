package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketua/marketplace-backend/internal/apperror"
)

var phoneVariants = []string{
	"+38(012)3456789",
	"+380123456789",
	"38 012 345 6789",
	"(012) 345 6789",
	"(012)3456789",
	"0123456789",
	"+38 (012) 345 6789",
}

func TestNormalizePhoneVariants(t *testing.T) {
	for _, raw := range phoneVariants {
		assert.Equal(t, "+38 (012) 345 6789", NormalizePhone(raw), raw)
	}
}

func TestNormalizePhoneLeavesUnparseableInput(t *testing.T) {
	for _, raw := range []string{"+10 (012) 345 6789", "12345", "", "not a phone"} {
		assert.Equal(t, raw, NormalizePhone(raw))
	}
}

func TestNormalizePhoneIsIdempotent(t *testing.T) {
	inputs := append([]string{"+10 (012) 345 6789", "050 111 22 33", "abc"}, phoneVariants...)
	for _, raw := range inputs {
		once := NormalizePhone(raw)
		assert.Equal(t, once, NormalizePhone(once), raw)
	}
}

func TestCanonicalPhoneIsFixedPoint(t *testing.T) {
	canonical := "+38 (050) 000 0000"
	require.True(t, IsCanonicalPhone(canonical))
	assert.Equal(t, canonical, NormalizePhone(canonical))
	assert.False(t, IsCanonicalPhone("+380500000000"))
}

func TestValidatePhone(t *testing.T) {
	for _, raw := range phoneVariants {
		assert.NoError(t, ValidatePhone(raw), raw)
	}

	err := ValidatePhone("12345")
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidDigitCount))

	err = ValidatePhone("+10 (012) 345 6789")
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidCountryCode))

	err = ValidatePhone("01a2345b6789")
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidPhone))
}
