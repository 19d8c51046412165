// Package phone canonicalizes Bangladeshi mobile numbers.
package phone

import "strings"

const (
	countryPrefix   = "88"
	nationalLength  = 11
	mobilePrefix    = "01"
	withCountryCode = len(countryPrefix) + nationalLength
)

// Normalize returns the 11 digit national form of raw, e.g. "01712345678".
// It reports false when raw cannot be reduced to a valid mobile number.
func Normalize(raw string) (string, bool) {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	if len(digits) == withCountryCode && strings.HasPrefix(digits, countryPrefix) {
		digits = digits[len(countryPrefix):]
	}
	if len(digits) != nationalLength || !strings.HasPrefix(digits, mobilePrefix) {
		return "", false
	}
	return digits, true
}

// Mask hides the middle digits of a canonical number for logs.
func Mask(canonical string) string {
	if len(canonical) < 7 {
		return strings.Repeat("*", len(canonical))
	}
	return canonical[:3] + strings.Repeat("*", len(canonical)-6) + canonical[len(canonical)-3:]
}
