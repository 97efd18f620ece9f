// Package phone canonicalizes Brazilian phone numbers into comparable digit strings.
package phone

import (
	"strings"
	"unicode"
)

const (
	countryCode     = "55"
	defaultAreaCode = "11"
)

// Digits strips every non-digit character from s.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Normalize returns the canonical digits of raw, or nil for nil or empty raw.
// Text without digits normalizes to "".
//
// Ten digit numbers are prefixed with area code 11 regardless of their real
// origin. Historical cleanups relied on that rule, so it is kept as is even
// though it misattributes numbers from every other area code.
func Normalize(raw *string) *string {
	if raw == nil || *raw == "" {
		return nil
	}
	out := normalizeDigits(Digits(*raw))
	return &out
}

// NormalizeString is Normalize for plain strings; it returns "" for empty input.
func NormalizeString(raw string) string {
	if out := Normalize(&raw); out != nil {
		return *out
	}
	return ""
}

func normalizeDigits(digits string) string {
	switch {
	case len(digits) == 11 && strings.HasPrefix(digits, defaultAreaCode):
		return digits
	case len(digits) == 10:
		return defaultAreaCode + digits
	case (len(digits) == 12 || len(digits) == 13) && strings.HasPrefix(digits, countryCode):
		return digits[len(countryCode):]
	default:
		return digits
	}
}

// IsPlaceholder reports whether phone is the sentinel filled in by the intake form.
func IsPlaceholder(phone, placeholder string) bool {
	want := Digits(placeholder)
	if want == "" {
		return false
	}
	return Digits(phone) == want
}

// Blank reports whether s has no visible characters.
func Blank(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return !unicode.IsSpace(r) }) < 0
}
