// Package phone normalizes user-entered phone numbers into the E.164-ish
// form Twilio expects. The country-code inference is heuristic (10-digit
// numbers are assumed Indian mobiles, 11-digit leading-zero numbers
// Pakistani) and is not validated against a numbering-plan database.
package phone

import "strings"

// Normalize turns an arbitrary phone string into a dialable +<cc><number>
// form. It never fails; unrecognized shapes get a bare "+" prefix.
func Normalize(raw string) string {
	cleaned := stripNonDial(raw)

	if strings.HasPrefix(cleaned, "+") {
		return cleaned
	}

	switch {
	case len(cleaned) == 12 && strings.HasPrefix(cleaned, "91"):
		return "+" + cleaned
	case len(cleaned) == 11 && strings.HasPrefix(cleaned, "03"):
		// Pakistani mobile: drop the leading 0.
		return "+92" + cleaned[1:]
	case len(cleaned) == 10:
		// Default domestic mobile assumption.
		return "+91" + cleaned
	case len(cleaned) == 11 && strings.HasPrefix(cleaned, "0"):
		return "+92" + cleaned[1:]
	default:
		return "+" + cleaned
	}
}

// stripNonDial removes everything except digits and a leading +.
func stripNonDial(raw string) string {
	var b strings.Builder
	for i, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else if r == '+' && i == 0 {
			b.WriteRune(r)
		}
	}
	return b.String()
}
