package negotiation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MarkWasfy00/ARC-raiders-guide-sub001/internal/model"
	"github.com/MarkWasfy00/ARC-raiders-guide-sub001/internal/repository"
)

func TestOwnedViewGroupsChatsPerListing(t *testing.T) {
	eng, st, _ := newTestEngine(t)
	views := NewViews(st)
	ctx := context.Background()

	quiet := seedListing(t, st, 1)
	busy := seedListing(t, st, 1)

	trader, err := eng.ExpressInterest(ctx, busy.ID, 2)
	require.NoError(t, err)
	_, err = eng.ExpressInterest(ctx, busy.ID, 3)
	require.NoError(t, err)
	withdrawn, err := eng.ExpressInterest(ctx, busy.ID, 4)
	require.NoError(t, err)
	require.NoError(t, eng.Cancel(ctx, withdrawn, 4))

	groups, err := views.GetOwnedView(ctx, 1)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	byID := map[uint64]ListingGroup{}
	for _, g := range groups {
		byID[g.ListingID] = g
	}

	// A listing with no interest still shows up, empty.
	empty := byID[quiet.ID]
	assert.Empty(t, empty.Chats)
	assert.Zero(t, empty.InterestedCount)
	assert.False(t, empty.HasActiveTrader)

	g := byID[busy.ID]
	// Cancelled chats are dropped from the owner's picture.
	assert.Len(t, g.Chats, 2)
	assert.Equal(t, 2, g.InterestedCount)
	assert.True(t, g.HasActiveTrader)
	assert.Equal(t, trader, g.ActiveTraderChatID)
}

func TestOwnedViewAfterTraderCancel(t *testing.T) {
	eng, st, _ := newTestEngine(t)
	views := NewViews(st)
	ctx := context.Background()

	l := seedListing(t, st, 1)
	trader, err := eng.ExpressInterest(ctx, l.ID, 2)
	require.NoError(t, err)
	_, err = eng.ExpressInterest(ctx, l.ID, 3)
	require.NoError(t, err)
	require.NoError(t, eng.Cancel(ctx, trader, 2))

	groups, err := views.GetOwnedView(ctx, 1)
	require.NoError(t, err)
	require.Len(t, groups, 1)

	g := groups[0]
	assert.False(t, g.HasActiveTrader)
	assert.Zero(t, g.ActiveTraderChatID)
	require.Len(t, g.Chats, 1)
	assert.Equal(t, model.ChatActive, g.Chats[0].Status)
}

func TestIncomingViewMarksQueuedChats(t *testing.T) {
	eng, st, _ := newTestEngine(t)
	views := NewViews(st)
	ctx := context.Background()

	l := seedListing(t, st, 1)
	mine, err := eng.ExpressInterest(ctx, l.ID, 2)
	require.NoError(t, err)
	theirs, err := eng.ExpressInterest(ctx, l.ID, 3)
	require.NoError(t, err)

	// The selected counterparty sees their chat held.
	in, err := views.GetIncomingView(ctx, 2)
	require.NoError(t, err)
	require.Len(t, in, 1)
	assert.Equal(t, mine, in[0].ChatID)
	assert.True(t, in[0].IsActiveTrader)
	assert.False(t, in[0].IsQueuedBehind)

	// The queued counterparty sees a waiting state, nothing about
	// who holds the selection.
	in, err = views.GetIncomingView(ctx, 3)
	require.NoError(t, err)
	require.Len(t, in, 1)
	assert.Equal(t, theirs, in[0].ChatID)
	assert.False(t, in[0].IsActiveTrader)
	assert.True(t, in[0].IsQueuedBehind)
	assert.Equal(t, model.ChatOwnerTrading, in[0].Status)
}

func TestTranscriptParticipantsOnly(t *testing.T) {
	eng, st, _ := newTestEngine(t)
	views := NewViews(st)
	ctx := context.Background()

	l := seedListing(t, st, 1)
	chatID, err := eng.ExpressInterest(ctx, l.ID, 2)
	require.NoError(t, err)

	_, err = eng.SendMessage(ctx, chatID, 2, "first")
	require.NoError(t, err)
	_, err = eng.SendMessage(ctx, chatID, 1, "second")
	require.NoError(t, err)

	msgs, err := views.GetTranscript(ctx, chatID, 1)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "first", msgs[0].Content)
	assert.Equal(t, "second", msgs[1].Content)

	_, err = views.GetTranscript(ctx, chatID, 42)
	assert.ErrorIs(t, err, repository.ErrForbidden)
}
