// ABOUTME: Tests for the chat aggregation engine
// ABOUTME: Covers the fetch loop, attribution rules, and thread grouping

package chat

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roostchat/roost/internal/api"
	"github.com/roostchat/roost/internal/store"
)

const selfID = "self"

var (
	selfMention  = api.Mention{ID: "self", Username: "me", LocalUsername: "me"}
	userAMention = api.Mention{ID: "user-a", Username: "alice@other.server", LocalUsername: "alice"}
	userBMention = api.Mention{ID: "user-b", Username: "bob", LocalUsername: "bob"}

	selfAccount  = api.Account{ID: "self", Username: "me", LocalUsername: "me", DisplayName: "Me"}
	userAAccount = api.Account{ID: "user-a", Username: "alice@other.server", LocalUsername: "alice", DisplayName: "Alice"}
)

// fakeTimeline serves scripted pages and records how it was called.
type fakeTimeline struct {
	pages   [][]api.Status
	errAt   int // 1-based call index that fails; 0 means never
	calls   int
	cursors []string
	deleted []string
}

func (f *fakeTimeline) FetchDirectMessages(ctx context.Context, maxID, sinceID string, limit int) ([]api.Status, *api.PageLinks, error) {
	f.calls++
	f.cursors = append(f.cursors, maxID)
	if f.errAt > 0 && f.calls == f.errAt {
		return nil, nil, errors.New("upstream exploded")
	}
	if f.calls > len(f.pages) {
		return nil, nil, nil
	}
	return f.pages[f.calls-1], nil, nil
}

func (f *fakeTimeline) DeleteStatus(ctx context.Context, statusID string) error {
	f.deleted = append(f.deleted, statusID)
	return nil
}

func newTestEngine(t *testing.T, timeline *fakeTimeline) (*Engine, *store.SQLiteStore) {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return NewEngine(timeline, s, selfID, nil, nil), s
}

// page builds n incoming statuses from userA with sequential ids starting
// at first.
func page(first, n int) []api.Status {
	statuses := make([]api.Status, n)
	for i := 0; i < n; i++ {
		id := first - i // newest first within a page
		statuses[i] = api.Status{
			ID:         fmt.Sprintf("%d", id),
			CreatedAt:  time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(id) * time.Minute),
			Account:    userAAccount,
			Content:    "msg",
			Visibility: api.VisibilityDirect,
			Mentions:   []api.Mention{selfMention},
		}
	}
	return statuses
}

func collect(t *testing.T, s *Stream) []Result {
	t.Helper()
	return Collect(s.Subscribe())
}

func kinds(results []Result) []Result {
	// Strip the leading Loading so assertions read like the progression
	if len(results) > 0 && results[0].Kind == KindLoading {
		return results[1:]
	}
	return results
}

func TestStoreMessages_StopsOnEmptyPage(t *testing.T) {
	timeline := &fakeTimeline{pages: [][]api.Status{page(80, 40), page(40, 40), {}}}
	engine, _ := newTestEngine(t, timeline)

	results := kinds(collect(t, engine.StoreMessages(context.Background(), 10)))

	require.Len(t, results, 3)
	assert.Equal(t, Result{Kind: KindSuccess, More: true}, results[0])
	assert.Equal(t, Result{Kind: KindSuccess, More: true}, results[1])
	assert.Equal(t, Result{Kind: KindSuccess, More: false}, results[2])
	assert.Equal(t, 3, timeline.calls, "must not fetch a 4th page")
}

func TestStoreMessages_CursorAdvancesToOldestOfPage(t *testing.T) {
	timeline := &fakeTimeline{pages: [][]api.Status{page(80, 40), page(40, 40), {}}}
	engine, _ := newTestEngine(t, timeline)

	collect(t, engine.StoreMessages(context.Background(), 10))

	// First call has no cursor; subsequent calls use the last (oldest)
	// id of the previous page.
	assert.Equal(t, []string{"", "41", "1"}, timeline.cursors)
}

func TestStoreMessages_ErrorTerminatesLoop(t *testing.T) {
	timeline := &fakeTimeline{pages: [][]api.Status{page(80, 40), nil, page(40, 40)}, errAt: 2}
	engine, _ := newTestEngine(t, timeline)

	results := kinds(collect(t, engine.StoreMessages(context.Background(), 10)))

	require.Len(t, results, 2)
	assert.Equal(t, Result{Kind: KindSuccess, More: true}, results[0])
	assert.Equal(t, KindError, results[1].Kind)
	assert.Contains(t, results[1].Message, "upstream exploded")
	assert.Equal(t, 2, timeline.calls, "must not fetch a 3rd page")
}

func TestStoreMessages_RespectsMaxPages(t *testing.T) {
	timeline := &fakeTimeline{pages: [][]api.Status{page(120, 40), page(80, 40), page(40, 40)}}
	engine, _ := newTestEngine(t, timeline)

	results := kinds(collect(t, engine.StoreMessages(context.Background(), 2)))

	require.Len(t, results, 2)
	assert.Equal(t, 2, timeline.calls)
}

func TestStoreMessages_StartsOnceForManyObservers(t *testing.T) {
	timeline := &fakeTimeline{pages: [][]api.Status{{}}}
	engine, _ := newTestEngine(t, timeline)

	stream := engine.StoreMessages(context.Background(), 10)
	first := stream.Subscribe()
	second := stream.Subscribe()

	Collect(first)
	Collect(second)

	assert.Equal(t, 1, timeline.calls, "attaching a second observer must not re-trigger the fetch")
}

func TestStream_LateSubscriberGetsTerminalResult(t *testing.T) {
	timeline := &fakeTimeline{pages: [][]api.Status{{}}}
	engine, _ := newTestEngine(t, timeline)

	stream := engine.StoreMessages(context.Background(), 10)
	Collect(stream.Subscribe())

	late := Collect(stream.Subscribe())
	require.Len(t, late, 1)
	assert.Equal(t, Result{Kind: KindSuccess, More: false}, late[0])
	assert.Equal(t, 1, timeline.calls)
}

func TestClassify_OwnMessageUsesFirstNonSelfMention(t *testing.T) {
	engine, s := newTestEngine(t, &fakeTimeline{})

	status := api.Status{
		ID:        "m1",
		CreatedAt: time.Now().UTC(),
		Account:   selfAccount,
		Content:   "hi both",
		Mentions:  []api.Mention{selfMention, userAMention, userBMention},
	}
	require.NoError(t, engine.insert(context.Background(), &status))

	msgs, err := s.ListChatMessages(context.Background(), "user-a")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].IsFromMe)
	assert.Equal(t, "alice@other.server", msgs[0].CounterpartDisplayName)

	// The second recipient gets no record at all
	other, err := s.ListChatMessages(context.Background(), "user-b")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestClassify_OwnMessageWithoutRecipientDropped(t *testing.T) {
	engine, s := newTestEngine(t, &fakeTimeline{})

	status := api.Status{
		ID:        "m1",
		CreatedAt: time.Now().UTC(),
		Account:   selfAccount,
		Content:   "note to self",
		Mentions:  []api.Mention{selfMention},
	}
	require.NoError(t, engine.insert(context.Background(), &status))

	threads, err := s.ListChatThreads(context.Background())
	require.NoError(t, err)
	assert.Empty(t, threads)
}

func TestClassify_IncomingMessageAttributedToAuthor(t *testing.T) {
	engine, s := newTestEngine(t, &fakeTimeline{})

	status := api.Status{
		ID:        "m1",
		CreatedAt: time.Now().UTC(),
		Account:   userAAccount,
		Content:   "hello",
		Mentions:  []api.Mention{selfMention},
	}
	require.NoError(t, engine.insert(context.Background(), &status))

	msgs, err := s.ListChatMessages(context.Background(), "user-a")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.False(t, msgs[0].IsFromMe)
	assert.Equal(t, "Alice", msgs[0].CounterpartDisplayName)
}

func TestClassify_MissingDisplayNameDropped(t *testing.T) {
	engine, s := newTestEngine(t, &fakeTimeline{})

	anon := userAAccount
	anon.DisplayName = ""
	status := api.Status{
		ID:        "m1",
		CreatedAt: time.Now().UTC(),
		Account:   anon,
		Mentions:  []api.Mention{selfMention},
	}
	require.NoError(t, engine.insert(context.Background(), &status))

	threads, err := s.ListChatThreads(context.Background())
	require.NoError(t, err)
	assert.Empty(t, threads)
}

func TestEngine_BothDirectionsShareOneThread(t *testing.T) {
	engine, _ := newTestEngine(t, &fakeTimeline{})
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	incoming := api.Status{
		ID: "m1", CreatedAt: base, Account: userAAccount,
		Content: "hi", Mentions: []api.Mention{selfMention},
	}
	outgoing := api.Status{
		ID: "m2", CreatedAt: base.Add(time.Minute), Account: selfAccount,
		Content: "hi back", Mentions: []api.Mention{selfMention, userAMention},
	}
	require.NoError(t, engine.insert(ctx, &incoming))
	require.NoError(t, engine.insert(ctx, &outgoing))

	threads, err := engine.Threads(ctx)
	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.Equal(t, "user-a", threads[0].CounterpartAccountID)
	assert.Equal(t, 2, threads[0].MessageCount)
	assert.Equal(t, "m2", threads[0].Latest.ID)
}

func TestEngine_InsertSameIDTwiceKeepsOneRecord(t *testing.T) {
	engine, s := newTestEngine(t, &fakeTimeline{})
	ctx := context.Background()

	status := api.Status{
		ID: "m1", CreatedAt: time.Now().UTC(), Account: userAAccount,
		Content: "hello", Mentions: []api.Mention{selfMention},
	}
	require.NoError(t, engine.insert(ctx, &status))

	status.Content = "hello edited"
	require.NoError(t, engine.insert(ctx, &status))

	msgs, err := s.ListChatMessages(ctx, "user-a")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello edited", msgs[0].Content)
}

func TestEngine_DeleteRemovesLocallyAndRemotely(t *testing.T) {
	timeline := &fakeTimeline{}
	engine, s := newTestEngine(t, timeline)
	ctx := context.Background()

	status := api.Status{
		ID: "m1", CreatedAt: time.Now().UTC(), Account: userAAccount,
		Content: "hello", Mentions: []api.Mention{selfMention},
	}
	require.NoError(t, engine.insert(ctx, &status))

	require.NoError(t, engine.Delete(ctx, "m1"))
	assert.Equal(t, []string{"m1"}, timeline.deleted)

	msgs, err := s.ListChatMessages(ctx, "user-a")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestEngine_DeleteUnknownMessage(t *testing.T) {
	engine, _ := newTestEngine(t, &fakeTimeline{})

	err := engine.Delete(context.Background(), "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestEngine_PublishesChangeEvents(t *testing.T) {
	timeline := &fakeTimeline{}
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	defer s.Close()

	b := NewBroadcaster(nil)
	defer b.Close()
	engine := NewEngine(timeline, s, selfID, b, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := engine.Subscribe(ctx, TopicThreads)
	require.NotNil(t, events)

	status := api.Status{
		ID: "m1", CreatedAt: time.Now().UTC(), Account: userAAccount,
		Content: "hello", Mentions: []api.Mention{selfMention},
	}
	require.NoError(t, engine.insert(context.Background(), &status))

	select {
	case ev := <-events:
		assert.Equal(t, EventMessageUpserted, ev.Type)
		assert.Equal(t, "m1", ev.MessageID)
		assert.Equal(t, "user-a", ev.CounterpartAccountID)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for change event")
	}
}
