// Package strutil holds small string helpers shared across surfaces.
package strutil

import (
	"strings"
)

const maskVisiblePrefix = 3

// MaskEmail hides the local part of an address except for a short prefix
// and, when the local part ends in digits, that numeric suffix. The
// domain stays visible. Used for privacy-preserving responses such as
// forgot-password ("adm***@exzly.dev").
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}

	local, domain := email[:at], email[at+1:]

	visible := maskVisiblePrefix
	if visible > len(local) {
		visible = len(local)
	}

	suffix := trailingDigits(local)
	if len(suffix) >= len(local)-visible {
		// The digits reach into the visible prefix; nothing left to mask.
		suffix = local[visible:]
	}

	masked := len(local) - visible - len(suffix)
	return local[:visible] + strings.Repeat("*", masked) + suffix + "@" + domain
}

func trailingDigits(s string) string {
	i := len(s)
	for i > 0 && s[i-1] >= '0' && s[i-1] <= '9' {
		i--
	}
	return s[i:]
}
