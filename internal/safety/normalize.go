// Package safety holds the drug-safety rules: allergy conflicts, drug-drug
// interactions and prescription drift advisories. Everything here is pure and
// safe for concurrent use once constructed.
package safety

import "strings"

// Normalize lower-cases s and drops every character that is not an ASCII
// letter or digit, so "Amoxicillin 500mg" and "amoxicillin-500-MG" compare equal.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// overlaps reports whether either normalized string contains the other. A name
// that normalizes to nothing ("--", "???") is contained in everything, so it
// matches every rule and the doctor has to review it.
func overlaps(a, b string) bool {
	return strings.Contains(a, b) || strings.Contains(b, a)
}
