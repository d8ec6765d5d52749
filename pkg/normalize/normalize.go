// Package normalize holds canonical forms for submitter identity attributes.
// Matching and storage both go through these helpers so that lookups are
// insensitive to case and incidental formatting.
package normalize

import "strings"

// Email trims surrounding whitespace and casefolds. "A@B.com " and "a@b.com"
// normalize to the same value.
func Email(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Phone strips spaces, dashes, dots and parentheses, keeping a leading plus.
func Phone(phone string) string {
	var b strings.Builder
	for i, r := range strings.TrimSpace(phone) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CPF reduces a nationally formatted identifier ("123.456.789-09") to its
// digits. No checksum validation happens here; it is a lookup key, not a
// verified document.
func CPF(cpf string) string {
	var b strings.Builder
	for _, r := range cpf {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
