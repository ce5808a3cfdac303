package phone_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zipfood/reset-api/internal/phone"
)

func TestNormalize_AcceptsFormattedLocalNumber(t *testing.T) {
	normalized, ok := phone.Normalize("(11) 98765-4321")

	assert.True(t, ok)
	assert.Equal(t, "+5511987654321", normalized)
}

func TestNormalize_AcceptsBareDigits(t *testing.T) {
	normalized, ok := phone.Normalize("21912345678")

	assert.True(t, ok)
	assert.Equal(t, "+5521912345678", normalized)
}

func TestNormalize_AcceptsCountryPrefixedNumber(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"5511987654321", "+5511987654321"},
		{"+55 (85) 99876-1234", "+5585998761234"},
	}

	for _, tt := range tests {
		normalized, ok := phone.Normalize(tt.input)
		assert.True(t, ok, "input %q", tt.input)
		assert.Equal(t, tt.want, normalized)
	}
}

func TestNormalize_TenDigitInputFailsFinalShape(t *testing.T) {
	// The 10-digit branch prepends DDD 11, which yields 12 national digits;
	// the canonical shape allows at most 11, so these never validate.
	_, ok := phone.Normalize("9876543210")

	assert.False(t, ok)
}

func TestNormalize_RequiresMobileNinePrefix(t *testing.T) {
	// 11 digits where the subscriber part does not start with 9
	_, ok := phone.Normalize("(11) 78765-4321")

	assert.False(t, ok)
}

func TestNormalize_RejectsUnknownAreaCode(t *testing.T) {
	for _, input := range []string{
		"(20) 98765-4321", // 20 is not an assigned DDD
		"5520987654321",
		"(01) 98765-4321", // leading-zero DDD
	} {
		_, ok := phone.Normalize(input)
		assert.False(t, ok, "input %q", input)
	}
}

func TestNormalize_RejectsWrongDigitCounts(t *testing.T) {
	for _, input := range []string{
		"",
		"12345",
		"119876543210",    // 12 digits
		"55119876543210",  // 14 digits
		"not a number",
		"+1 415 555 0100", // 11 digits but the subscriber shape does not fit
	} {
		_, ok := phone.Normalize(input)
		assert.False(t, ok, "input %q", input)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	normalized, ok := phone.Normalize("(47) 99123-4567")
	assert.True(t, ok)

	again, ok := phone.Normalize(normalized)
	assert.True(t, ok)
	assert.Equal(t, normalized, again)
}

func TestFormatDisplay_GrowsWithInput(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"1", "1"},
		{"11", "11"},
		{"119", "(11) 9"},
		{"1198765", "(11) 98765"},
		{"11987654321", "(11) 98765-4321"},
		{"(11) 98765-4321", "(11) 98765-4321"},
		{"119876543219999", "(11) 98765-4321"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, phone.FormatDisplay(tt.input), "input %q", tt.input)
	}
}
