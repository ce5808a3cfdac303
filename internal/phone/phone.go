// Package phone normalizes free-form Brazilian phone input into the canonical
// E.164 form (+55DDNNNNNNNNN) used as the lookup and rate-limit key everywhere
// else in the service.
package phone

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// CountryCode is the Brazilian country calling code.
	CountryCode = "55"

	// DefaultAreaCode is assumed for 10-digit input that carries no DDD.
	DefaultAreaCode = "11"
)

// canonicalRe is the final shape check: +55, non-zero DDD first digit,
// optional mobile 9 prefix, 8 subscriber digits.
var canonicalRe = regexp.MustCompile(`^\+55[1-9][0-9]9?[0-9]{8}$`)

var nonDigitRe = regexp.MustCompile(`\D`)

// validAreaCodes is the set of DDDs in use in Brazil.
var validAreaCodes = map[string]bool{
	// SP
	"11": true, "12": true, "13": true, "14": true, "15": true,
	"16": true, "17": true, "18": true, "19": true,
	// RJ
	"21": true, "22": true, "24": true,
	// ES
	"27": true, "28": true,
	// MG
	"31": true, "32": true, "33": true, "34": true, "35": true, "37": true, "38": true,
	// PR
	"41": true, "42": true, "43": true, "44": true, "45": true, "46": true,
	// SC
	"47": true, "48": true, "49": true,
	// RS
	"51": true, "53": true, "54": true, "55": true,
	// DF
	"61": true,
	// GO
	"62": true, "64": true,
	// TO
	"63": true,
	// MT
	"65": true, "66": true,
	// MS
	"67": true,
	// AC
	"68": true,
	// RO
	"69": true,
	// BA
	"71": true, "73": true, "74": true, "75": true, "77": true,
	// SE
	"79": true,
	// PE
	"81": true, "87": true,
	// AL
	"82": true,
	// PB
	"83": true,
	// RN
	"84": true,
	// CE
	"85": true, "88": true,
	// PI
	"86": true, "89": true,
	// PA
	"91": true, "93": true, "94": true,
	// AM
	"92": true, "97": true,
	// RR
	"95": true,
	// AP
	"96": true,
	// MA
	"98": true, "99": true,
}

// Normalize converts free-form input into the canonical +55 form.
// It accepts 11-digit local numbers (DDD + mobile subscriber) and 13-digit
// numbers already carrying the 55 prefix. 10-digit input takes the default
// DDD but cannot satisfy the final shape check, so it ends up rejected there.
// The second return value is false for anything that fails the digit count,
// the DDD allow-list, or the final shape check.
func Normalize(input string) (string, bool) {
	digits := nonDigitRe.ReplaceAllString(input, "")

	var formatted string
	switch {
	case len(digits) == 11:
		if !validAreaCodes[digits[0:2]] {
			return "", false
		}
		formatted = CountryCode + digits
	case len(digits) == 13 && strings.HasPrefix(digits, CountryCode):
		if !validAreaCodes[digits[2:4]] {
			return "", false
		}
		formatted = digits
	case len(digits) == 10:
		formatted = CountryCode + DefaultAreaCode + digits
	default:
		return "", false
	}

	formatted = "+" + formatted
	if !canonicalRe.MatchString(formatted) {
		return "", false
	}
	return formatted, true
}

// IsValid reports whether input normalizes to a canonical number.
func IsValid(input string) bool {
	_, ok := Normalize(input)
	return ok
}

// FormatDisplay renders partial or complete input with the visual grouping
// used by the client, e.g. "(11) 98765-4321". It never rejects input; the
// grouping grows as the user types.
func FormatDisplay(input string) string {
	digits := nonDigitRe.ReplaceAllString(input, "")
	if len(digits) > 11 {
		digits = digits[:11]
	}
	switch {
	case len(digits) <= 2:
		return digits
	case len(digits) <= 7:
		return fmt.Sprintf("(%s) %s", digits[:2], digits[2:])
	default:
		return fmt.Sprintf("(%s) %s-%s", digits[:2], digits[2:7], digits[7:])
	}
}
