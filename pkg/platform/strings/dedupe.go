// Package strings provides string helpers shared by request parsing and
// relevance scoring.
package strings

import (
	"strings"
)

// DedupeAndTrim trims each value, drops empties and removes exact duplicates.
// First occurrence wins, so input order is preserved.
//
//	DedupeAndTrim([]string{" Jane Doe ", "ACME", "Jane Doe", ""})
//	// []string{"Jane Doe", "ACME"}
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}

	return result
}

// CollapseSpace trims s and replaces every run of whitespace with one space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ContainsAny reports whether text contains at least one of the needles.
// Matching is plain substring matching; callers lowercase both sides.
func ContainsAny(text string, needles ...string) bool {
	for _, n := range needles {
		if n != "" && strings.Contains(text, n) {
			return true
		}
	}
	return false
}

// CountContained returns how many needles occur in text.
func CountContained(text string, needles []string) int {
	n := 0
	for _, needle := range needles {
		if needle != "" && strings.Contains(text, needle) {
			n++
		}
	}
	return n
}
