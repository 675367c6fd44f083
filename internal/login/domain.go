// ABOUTME: Server domain normalization and validation
// ABOUTME: Accepts pasted URLs and user@domain handles, yields a bare host

package login

import (
	"regexp"
	"strings"
)

// hostPattern matches a well-formed DNS name: dot-separated labels of
// letters, digits, and inner hyphens, at least two labels.
var hostPattern = regexp.MustCompile(`^(?i)[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?(?:\.[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?)+$`)

// NormalizeDomain reduces raw user input to a bare host. Scheme prefixes
// are stripped, anything up to the last @ is dropped (so both pasted
// profile URLs and user@domain handles work), and surrounding whitespace
// and a trailing slash are trimmed.
func NormalizeDomain(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	if i := strings.LastIndex(s, "@"); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(s, "/")
	return strings.TrimSpace(s)
}

// ValidateDomain reports whether s is a syntactically well-formed web
// domain, optionally with a port.
func ValidateDomain(s string) bool {
	if s == "" || len(s) > 253+6 {
		return false
	}

	host := s
	if i := strings.LastIndex(s, ":"); i >= 0 {
		port := s[i+1:]
		if port == "" || len(port) > 5 {
			return false
		}
		for _, r := range port {
			if r < '0' || r > '9' {
				return false
			}
		}
		host = s[:i]
	}

	return hostPattern.MatchString(host)
}
