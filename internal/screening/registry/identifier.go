package registry

import (
	"regexp"
	"strings"
)

// identifierPatterns recognise registry ID shapes. The last pattern also
// matches hyphenated names such as "Jean-Pierre"; those get a direct lookup
// that 404s and then fall through to text search.
var identifierPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^Q\d+$`),
	regexp.MustCompile(`^[A-Z]{2,}\d+$`),
	regexp.MustCompile(`^\d+$`),
	regexp.MustCompile(`^[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}$`),
	regexp.MustCompile(`^[a-f0-9]{40}$`),
	regexp.MustCompile(`^[a-f0-9]{32}$`),
	regexp.MustCompile(`^[a-f0-9]{64}$`),
	regexp.MustCompile(`^[a-z]+-[a-f0-9]{40}$`),
	regexp.MustCompile(`^[a-z]+-[a-f0-9]{32}$`),
	regexp.MustCompile(`^[a-z]+-[a-f0-9]{64}$`),
	regexp.MustCompile(`^[A-Za-z]+-\d+$`),
	regexp.MustCompile(`^[A-Za-z]+-[A-Za-z0-9]+$`),
}

// IsIdentifier reports whether s looks like a registry identifier rather
// than a name.
func IsIdentifier(s string) bool {
	v := strings.TrimSpace(s)
	if v == "" {
		return false
	}
	for _, p := range identifierPatterns {
		if p.MatchString(v) {
			return true
		}
	}
	return false
}
