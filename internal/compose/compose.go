// ABOUTME: Markdown rendering for outgoing messages
// ABOUTME: Turns composed Markdown into the HTML some servers accept

package compose

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
)

// Render converts composed Markdown to HTML. Plain text passes through
// wrapped in a paragraph, which is what servers expect for simple
// messages.
func Render(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}
