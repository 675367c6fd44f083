// ABOUTME: Display post-processing for reverse-chronological chat views
// ABOUTME: Computes day-separator and same-sender grouping flags

package chat

import "github.com/roostchat/roost/internal/store"

// DecoratedMessage wraps a record with the flags a chat view needs to
// group bubbles and insert day separators.
type DecoratedMessage struct {
	*store.ChatMessageRecord

	// FirstOfDay is true when this message is the first of its calendar
	// day, so a day separator belongs above it.
	FirstOfDay bool

	// SameSenderAsPrevious is true when the chronologically previous
	// message came from the same side, so the view can tighten spacing.
	SameSenderAsPrevious bool
}

// DecorateMessages annotates records for display. The input is expected
// newest-first, as returned by Engine.Messages; index i+1 is therefore
// the chronologically previous message of index i.
func DecorateMessages(records []*store.ChatMessageRecord) []DecoratedMessage {
	decorated := make([]DecoratedMessage, len(records))
	for i, rec := range records {
		d := DecoratedMessage{ChatMessageRecord: rec}

		if i == len(records)-1 {
			d.FirstOfDay = true
		} else {
			prev := records[i+1]
			py, pm, pd := prev.CreatedAt.Local().Date()
			cy, cm, cd := rec.CreatedAt.Local().Date()
			d.FirstOfDay = py != cy || pm != cm || pd != cd
			d.SameSenderAsPrevious = !d.FirstOfDay && prev.IsFromMe == rec.IsFromMe
		}

		decorated[i] = d
	}
	return decorated
}
