package validation

import "strings"

func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizePhone returns the 09dd-ddd-ddd form of a valid mobile number.
func NormalizePhone(s string) (string, bool) {
	d := DigitsOnly(s)
	if !mobileRe.MatchString(d) {
		return "", false
	}
	return d[:4] + "-" + d[4:7] + "-" + d[7:], true
}

// FormatPhoneInput reformats a live phone edit. Deletions are kept verbatim so the
// cursor does not jump; anything else is rebuilt from at most 10 digits with dashes
// after the 4th and 7th digit once those digits exist.
func FormatPhoneInput(current, next string) string {
	if len(next) < len(current) {
		return next
	}
	d := DigitsOnly(next)
	if len(d) > 10 {
		d = d[:10]
	}
	switch {
	case len(d) <= 4:
		return d
	case len(d) <= 7:
		return d[:4] + "-" + d[4:]
	default:
		return d[:4] + "-" + d[4:7] + "-" + d[7:]
	}
}
