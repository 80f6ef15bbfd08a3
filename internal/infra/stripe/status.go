package stripe

import "strings"

// NormalizePaymentStatus maps a checkout session payment_status onto the
// values reconciliation compares against. Empty counts as unpaid.
func NormalizePaymentStatus(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "unpaid"
	}
	return s
}
