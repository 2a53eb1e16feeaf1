package util

import (
	"regexp"
	"strings"
)

var nonPhone = regexp.MustCompile(`[^\d\+]+`)

// NormalizeRecipient coerces a contact identifier into the canonical
// "whatsapp:+<digits>" form the provider expects. Inputs that already carry
// the prefix pass through with the number part cleaned up.
func NormalizeRecipient(raw string) string {
	num := strings.TrimPrefix(strings.TrimSpace(raw), "whatsapp:")
	num = nonPhone.ReplaceAllString(num, "")
	if num != "" && !strings.HasPrefix(num, "+") {
		num = "+" + num
	}
	return "whatsapp:" + num
}
