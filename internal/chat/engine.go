// ABOUTME: Chat aggregation engine: paged fetch loop and per-message classification
// ABOUTME: Attributes each direct status to exactly one counterpart or drops it

package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/roostchat/roost/internal/api"
	"github.com/roostchat/roost/internal/store"
)

// PageLimit is the fixed timeline page size, the maximum the server
// allows per call.
const PageLimit = 40

// DirectTimeline is the slice of the API client the engine consumes.
type DirectTimeline interface {
	FetchDirectMessages(ctx context.Context, maxID, sinceID string, limit int) ([]api.Status, *api.PageLinks, error)
	DeleteStatus(ctx context.Context, statusID string) error
}

// Engine converts the direct-message timeline into per-counterpart chat
// threads. It is bound to the current user, whose id drives attribution.
type Engine struct {
	client      DirectTimeline
	store       store.MessageStore
	selfID      string
	broadcaster *Broadcaster
	logger      *slog.Logger

	stored  atomic.Uint64
	dropped atomic.Uint64
}

// Stats are the engine's cumulative counters since creation.
type Stats struct {
	Stored  uint64
	Dropped uint64
}

// Stats returns how many messages the engine has stored and dropped.
func (e *Engine) Stats() Stats {
	return Stats{
		Stored:  e.stored.Load(),
		Dropped: e.dropped.Load(),
	}
}

// NewEngine creates an engine for the given current user account id.
// The broadcaster may be nil when no one needs change events.
func NewEngine(client DirectTimeline, st store.MessageStore, selfAccountID string, b *Broadcaster, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		client:      client,
		store:       st,
		selfID:      selfAccountID,
		broadcaster: b,
		logger:      logger.With("component", "chat"),
	}
}

// StoreMessages returns a stream that, once observed, pages backward
// through the direct timeline and stores every attributable message.
//
// Per page the stream emits Success(true); an empty page ends the loop
// with Success(false); a fetch failure ends it with Error and forfeits
// the remaining pages (no retry, no resume). Pages are fetched strictly
// sequentially to preserve the cursor invariant.
func (e *Engine) StoreMessages(ctx context.Context, maxPages int) *Stream {
	return newStream(ctx, func(ctx context.Context, emit func(Result)) {
		emit(Result{Kind: KindLoading})

		lastID := ""
		for page := 0; page < maxPages; page++ {
			statuses, _, err := e.client.FetchDirectMessages(ctx, lastID, "", PageLimit)
			if err != nil {
				e.logger.Warn("direct timeline fetch failed", "page", page, "error", err)
				emit(Result{Kind: KindError, Message: err.Error()})
				return
			}

			if len(statuses) == 0 {
				emit(Result{Kind: KindSuccess, More: false})
				return
			}

			for i := range statuses {
				if err := e.insert(ctx, &statuses[i]); err != nil {
					emit(Result{Kind: KindError, Message: err.Error()})
					return
				}
			}

			// Pages are newest-first, so the last element is the oldest
			// and becomes the cursor for the next page.
			lastID = statuses[len(statuses)-1].ID
			emit(Result{Kind: KindSuccess, More: true})
		}
	})
}

// insert classifies one status and upserts it when it can be attributed
// to exactly one counterpart. Unattributable statuses are logged and
// dropped; only store failures are returned as errors.
func (e *Engine) insert(ctx context.Context, status *api.Status) error {
	rec, ok := e.classify(status)
	if !ok {
		e.dropped.Add(1)
		return nil
	}

	if err := e.store.UpsertChatMessage(ctx, rec); err != nil {
		return fmt.Errorf("storing message %s: %w", status.ID, err)
	}
	e.stored.Add(1)

	if e.broadcaster != nil {
		e.broadcaster.Publish(Event{
			Type:                 EventMessageUpserted,
			MessageID:            rec.ID,
			CounterpartAccountID: rec.CounterpartAccountID,
		})
	}
	return nil
}

// classify resolves the counterpart for a status per the attribution
// rules and builds the record to store. Returns false when the status
// must be dropped.
func (e *Engine) classify(status *api.Status) (*store.ChatMessageRecord, bool) {
	// The server always lists the current user among the mentions of
	// their own messages; strip self before picking a counterpart.
	var others []api.Mention
	for _, m := range status.Mentions {
		if m.ID != e.selfID {
			others = append(others, m)
		}
	}

	fromMe := status.Account.ID == e.selfID

	var counterpartID, counterpartName string
	if fromMe {
		if len(others) == 0 {
			e.logger.Debug("dropping own message without non-self mention", "id", status.ID)
			return nil, false
		}
		// First remaining mention wins. A message addressed to several
		// users is attributed to the first one only; the rest are
		// intentionally not recorded.
		counterpartID = others[0].ID
		counterpartName = others[0].Username
	} else {
		counterpartID = status.Account.ID
		counterpartName = status.Account.DisplayName
	}

	if counterpartID == "" || counterpartName == "" {
		e.logger.Debug("dropping message with unresolvable counterpart",
			"id", status.ID, "from_me", fromMe)
		return nil, false
	}

	return &store.ChatMessageRecord{
		ID:                     status.ID,
		Content:                status.Content,
		CounterpartAccountID:   counterpartID,
		CounterpartDisplayName: counterpartName,
		IsFromMe:               fromMe,
		CreatedAt:              status.CreatedAt,
	}, true
}

// Threads returns the current per-counterpart thread list, newest
// activity first. Recomputed on every call.
func (e *Engine) Threads(ctx context.Context) ([]*store.ChatThread, error) {
	return e.store.ListChatThreads(ctx)
}

// Messages returns one counterpart's records, newest first.
func (e *Engine) Messages(ctx context.Context, counterpartAccountID string) ([]*store.ChatMessageRecord, error) {
	return e.store.ListChatMessages(ctx, counterpartAccountID)
}

// Delete removes one message locally and on the server. The local record
// goes first so the view updates even if the remote delete fails.
func (e *Engine) Delete(ctx context.Context, messageID string) error {
	if err := e.store.DeleteChatMessage(ctx, messageID); err != nil {
		return err
	}

	if e.broadcaster != nil {
		e.broadcaster.Publish(Event{
			Type:      EventMessageDeleted,
			MessageID: messageID,
		})
	}

	if err := e.client.DeleteStatus(ctx, messageID); err != nil {
		e.logger.Warn("remote delete failed", "id", messageID, "error", err)
		return err
	}
	return nil
}

// Subscribe attaches a change-event observer. topic is TopicThreads or a
// counterpart account id. Returns nil when the engine has no broadcaster.
func (e *Engine) Subscribe(ctx context.Context, topic string) <-chan Event {
	if e.broadcaster == nil {
		return nil
	}
	ch, _ := e.broadcaster.Subscribe(ctx, topic)
	return ch
}
