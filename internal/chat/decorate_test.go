// ABOUTME: Tests for chat view decoration flags
// ABOUTME: Day separators and same-sender grouping over newest-first input

package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roostchat/roost/internal/store"
)

func rec(id string, at time.Time, fromMe bool) *store.ChatMessageRecord {
	return &store.ChatMessageRecord{
		ID: id, Content: id, CounterpartAccountID: "user-a",
		CounterpartDisplayName: "A", IsFromMe: fromMe, CreatedAt: at,
	}
}

func TestDecorateMessages_Empty(t *testing.T) {
	assert.Empty(t, DecorateMessages(nil))
}

func TestDecorateMessages_OldestIsFirstOfDay(t *testing.T) {
	at := time.Date(2025, 6, 1, 9, 0, 0, 0, time.Local)
	decorated := DecorateMessages([]*store.ChatMessageRecord{rec("m1", at, false)})

	require.Len(t, decorated, 1)
	assert.True(t, decorated[0].FirstOfDay)
	assert.False(t, decorated[0].SameSenderAsPrevious)
}

func TestDecorateMessages_DayBoundary(t *testing.T) {
	day1 := time.Date(2025, 6, 1, 23, 50, 0, 0, time.Local)
	day2 := time.Date(2025, 6, 2, 0, 10, 0, 0, time.Local)

	// Newest first: m2 (day2) then m1 (day1)
	decorated := DecorateMessages([]*store.ChatMessageRecord{
		rec("m2", day2, false),
		rec("m1", day1, false),
	})

	require.Len(t, decorated, 2)
	assert.True(t, decorated[0].FirstOfDay, "first message of a new day gets a separator")
	assert.True(t, decorated[1].FirstOfDay, "oldest message always gets one")
}

func TestDecorateMessages_SameSenderRuns(t *testing.T) {
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.Local)

	// Newest first: me, me, them
	decorated := DecorateMessages([]*store.ChatMessageRecord{
		rec("m3", base.Add(2*time.Minute), true),
		rec("m2", base.Add(time.Minute), true),
		rec("m1", base, false),
	})

	require.Len(t, decorated, 3)
	assert.True(t, decorated[0].SameSenderAsPrevious, "m3 follows m2 from the same side")
	assert.False(t, decorated[1].SameSenderAsPrevious, "m2 follows m1 from the other side")
	assert.False(t, decorated[2].SameSenderAsPrevious)
}
