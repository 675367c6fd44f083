// ABOUTME: Tests for server domain normalization and validation

package login

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDomain(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"bare domain", "example.social", "example.social"},
		{"surrounding whitespace", "  example.social  ", "example.social"},
		{"https prefix", "https://example.social", "example.social"},
		{"http prefix", "http://example.social", "example.social"},
		{"trailing slash", "https://example.social/", "example.social"},
		{"handle", "alice@example.social", "example.social"},
		{"full handle", "@alice@example.social", "example.social"},
		{"url with userinfo", "https://alice@example.social", "example.social"},
		{"empty", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeDomain(tc.in))
		})
	}
}

func TestValidateDomain(t *testing.T) {
	valid := []string{
		"example.social",
		"sub.example.social",
		"example.social:8443",
		"xn--bcher-kva.example",
		"a1.b2",
	}
	for _, d := range valid {
		assert.True(t, ValidateDomain(d), "expected %q to validate", d)
	}

	invalid := []string{
		"",
		"not a domain",
		"localhost",
		"example",
		".example.social",
		"example.social.",
		"-bad.example",
		"example.social:port",
		"example.social:",
		"https://example.social",
	}
	for _, d := range invalid {
		assert.False(t, ValidateDomain(d), "expected %q to fail validation", d)
	}
}
