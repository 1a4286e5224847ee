package notify

import "strings"

// FormatPhone normalizes a North American style number to E.164. Ten digits
// get a +1 prefix, longer numbers are assumed to carry a country code. Anything
// shorter is rejected.
func FormatPhone(raw string) (string, bool) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	switch {
	case len(digits) == 10:
		return "+1" + digits, true
	case len(digits) > 10 && len(digits) <= 15:
		return "+" + digits, true
	default:
		return "", false
	}
}
