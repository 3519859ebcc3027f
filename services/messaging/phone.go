package messaging

import (
	"strings"
	"unicode"
)

// DefaultCountryCode is prefixed to bare 10-digit national numbers.
const DefaultCountryCode = "91"

// NormalizePhone converts a raw phone number to +<country><10 digits>.
// Accepted shapes after stripping non-digits:
//   - 10 digits: national number, country code is prefixed
//   - 0 + 10 digits: trunk prefix dropped, country code is prefixed
//   - country code + 10 digits: passed through with a leading +
//
// Anything else is rejected with ok == false.
func NormalizePhone(raw, countryCode string) (string, bool) {
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) && r < unicode.MaxASCII {
			return r
		}
		return -1
	}, raw)

	switch {
	case len(digits) == len(countryCode)+10 && strings.HasPrefix(digits, countryCode):
		return "+" + digits, true
	case len(digits) == 10:
		return "+" + countryCode + digits, true
	case len(digits) == 11 && digits[0] == '0':
		return "+" + countryCode + digits[1:], true
	}
	return "", false
}

// NormalizeOptionalPhone is NormalizePhone for optional form fields: empty
// input stays empty and is not an error.
func NormalizeOptionalPhone(raw, countryCode string) (string, bool) {
	if strings.TrimSpace(raw) == "" {
		return "", true
	}
	return NormalizePhone(raw, countryCode)
}
