// ABOUTME: TTL guard for already-exchanged authorization codes
// ABOUTME: A re-delivered redirect must not trigger a second token exchange

package login

import (
	"sync"
	"time"
)

// seenCodes tracks authorization codes that already entered a token
// exchange. Codes expire after the TTL; the set stays tiny because a
// login flow only ever sees a handful of codes.
type seenCodes struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
}

func newSeenCodes(ttl time.Duration) *seenCodes {
	return &seenCodes{
		seen: make(map[string]time.Time),
		ttl:  ttl,
	}
}

// checkAndMark atomically checks whether the code was already seen and
// marks it if not. Returns true for a duplicate. The combined operation
// avoids a race between two redirect deliveries.
func (c *seenCodes) checkAndMark(code string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for k, t := range c.seen {
		if now.Sub(t) > c.ttl {
			delete(c.seen, k)
		}
	}

	if _, ok := c.seen[code]; ok {
		return true
	}
	c.seen[code] = now
	return false
}
