// ABOUTME: Link response header parsing for timeline pagination
// ABOUTME: Extracts prev/next cursor URLs from RFC 8288 style headers

package api

import "strings"

// ParseLinkHeader parses a Link header of the form
//
//	<https://host/api/v1/timelines/direct?max_id=1>; rel="next", <...>; rel="prev"
//
// into a PageLinks pair. Returns nil when the header is empty or carries
// neither relation.
func ParseLinkHeader(header string) *PageLinks {
	if header == "" {
		return nil
	}

	var links PageLinks
	for _, part := range strings.Split(header, ",") {
		segments := strings.Split(part, ";")
		if len(segments) < 2 {
			continue
		}

		target := strings.TrimSpace(segments[0])
		if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
			continue
		}
		target = strings.Trim(target, "<>")

		for _, param := range segments[1:] {
			param = strings.TrimSpace(param)
			switch param {
			case `rel="next"`, `rel=next`:
				links.Next = target
			case `rel="prev"`, `rel=prev`:
				links.Prev = target
			}
		}
	}

	if links.Prev == "" && links.Next == "" {
		return nil
	}
	return &links
}
