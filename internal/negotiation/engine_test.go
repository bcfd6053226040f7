package negotiation

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MarkWasfy00/ARC-raiders-guide-sub001/internal/event"
	"github.com/MarkWasfy00/ARC-raiders-guide-sub001/internal/model"
	"github.com/MarkWasfy00/ARC-raiders-guide-sub001/internal/repository"
	"github.com/MarkWasfy00/ARC-raiders-guide-sub001/internal/store"
)

// captureNotifier records every delivered event for assertions.
type captureNotifier struct {
	mu     sync.Mutex
	events []event.Event
}

func (n *captureNotifier) Notify(ev event.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *captureNotifier) byType(t event.Type) []event.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []event.Event
	for _, ev := range n.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func (n *captureNotifier) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = nil
}

func newTestEngine(t *testing.T) (*Engine, *store.MemoryStore, *captureNotifier) {
	t.Helper()
	st := store.NewMemoryStore()
	sink := &captureNotifier{}
	return NewEngine(st, sink), st, sink
}

func seedListing(t *testing.T, st *store.MemoryStore, ownerID uint64) *model.Listing {
	t.Helper()
	return st.PutListing(&model.Listing{
		OwnerID:   ownerID,
		ItemRef:   "scrap-metal",
		Quantity:  3,
		Direction: model.DirectionOffer,
		Status:    model.ListingActive,
	})
}

func chatState(t *testing.T, st *store.MemoryStore, chatID uint64) model.ChatState {
	t.Helper()
	c, err := st.Chat(context.Background(), chatID)
	require.NoError(t, err)
	return c.State
}

func TestExpressInterestFirstIsAutoSelected(t *testing.T) {
	eng, st, sink := newTestEngine(t)
	l := seedListing(t, st, 1)
	ctx := context.Background()

	chatID, err := eng.ExpressInterest(ctx, l.ID, 2)
	require.NoError(t, err)
	require.NotZero(t, chatID)

	state, ok := chatState(t, st, chatID).(model.Active)
	require.True(t, ok)
	assert.True(t, state.IsActiveTrader)

	evs := sink.byType(event.TypeNewChat)
	require.Len(t, evs, 1)
	assert.Equal(t, chatID, evs[0].ChatID)
	assert.Equal(t, uint64(2), evs[0].FromUserID)
	assert.Equal(t, []uint64{1}, evs[0].Recipients)
}

func TestExpressInterestSecondIsParked(t *testing.T) {
	eng, st, _ := newTestEngine(t)
	l := seedListing(t, st, 1)
	ctx := context.Background()

	first, err := eng.ExpressInterest(ctx, l.ID, 2)
	require.NoError(t, err)
	second, err := eng.ExpressInterest(ctx, l.ID, 3)
	require.NoError(t, err)

	assert.True(t, chatState(t, st, first).(model.Active).IsActiveTrader)
	assert.IsType(t, model.Parked{}, chatState(t, st, second))
}

func TestExpressInterestGuards(t *testing.T) {
	eng, st, _ := newTestEngine(t)
	l := seedListing(t, st, 1)
	ctx := context.Background()

	// Owner cannot open a chat on their own listing.
	_, err := eng.ExpressInterest(ctx, l.ID, 1)
	assert.ErrorIs(t, err, repository.ErrInvalidTransition)

	// One chat per (listing, counterparty) pair.
	_, err = eng.ExpressInterest(ctx, l.ID, 2)
	require.NoError(t, err)
	_, err = eng.ExpressInterest(ctx, l.ID, 2)
	assert.ErrorIs(t, err, repository.ErrInvalidTransition)

	// Unknown listing.
	_, err = eng.ExpressInterest(ctx, 9999, 2)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	// Closed listing rejects interest.
	closed := st.PutListing(&model.Listing{OwnerID: 1, ItemRef: "x", Quantity: 1, Direction: model.DirectionWant, Status: model.ListingClosed})
	_, err = eng.ExpressInterest(ctx, closed.ID, 2)
	assert.ErrorIs(t, err, repository.ErrInvalidTransition)
}

func TestSelectTraderParksIncumbent(t *testing.T) {
	eng, st, sink := newTestEngine(t)
	l := seedListing(t, st, 1)
	ctx := context.Background()

	first, err := eng.ExpressInterest(ctx, l.ID, 2)
	require.NoError(t, err)
	second, err := eng.ExpressInterest(ctx, l.ID, 3)
	require.NoError(t, err)
	sink.reset()

	require.NoError(t, eng.SelectTrader(ctx, l.ID, second, 1))

	assert.IsType(t, model.Parked{}, chatState(t, st, first))
	st2 := chatState(t, st, second).(model.Active)
	assert.True(t, st2.IsActiveTrader)

	evs := sink.byType(event.TypeTraderSelected)
	require.Len(t, evs, 1)
	assert.Equal(t, second, evs[0].ChatID)
	assert.ElementsMatch(t, []uint64{1, 2, 3}, evs[0].Recipients)
}

func TestSelectTraderResetsNegotiationFlags(t *testing.T) {
	eng, st, _ := newTestEngine(t)
	l := seedListing(t, st, 1)
	ctx := context.Background()

	first, err := eng.ExpressInterest(ctx, l.ID, 2)
	require.NoError(t, err)
	second, err := eng.ExpressInterest(ctx, l.ID, 3)
	require.NoError(t, err)

	// Lock in on the first chat, then switch the selection away and back.
	_, err = eng.LockIn(ctx, first, 1)
	require.NoError(t, err)
	_, err = eng.LockIn(ctx, first, 2)
	require.NoError(t, err)

	require.NoError(t, eng.SelectTrader(ctx, l.ID, second, 1))
	require.NoError(t, eng.SelectTrader(ctx, l.ID, first, 1))

	state := chatState(t, st, first).(model.Active)
	assert.True(t, state.IsActiveTrader)
	assert.False(t, state.OwnerLockedIn)
	assert.False(t, state.CounterpartyLockedIn)
}

func TestSelectTraderIdempotentReselect(t *testing.T) {
	eng, st, sink := newTestEngine(t)
	l := seedListing(t, st, 1)
	ctx := context.Background()

	chatID, err := eng.ExpressInterest(ctx, l.ID, 2)
	require.NoError(t, err)
	sink.reset()

	require.NoError(t, eng.SelectTrader(ctx, l.ID, chatID, 1))
	assert.Empty(t, sink.byType(event.TypeTraderSelected))
}

func TestSelectTraderGuards(t *testing.T) {
	eng, st, _ := newTestEngine(t)
	l := seedListing(t, st, 1)
	ctx := context.Background()

	chatID, err := eng.ExpressInterest(ctx, l.ID, 2)
	require.NoError(t, err)

	assert.ErrorIs(t, eng.SelectTrader(ctx, l.ID, chatID, 42), repository.ErrForbidden)
	assert.ErrorIs(t, eng.SelectTrader(ctx, l.ID, 9999, 1), repository.ErrNotFound)

	require.NoError(t, eng.Cancel(ctx, chatID, 2))
	assert.ErrorIs(t, eng.SelectTrader(ctx, l.ID, chatID, 1), repository.ErrInvalidTransition)
}

func TestLockInRequiresActiveTrader(t *testing.T) {
	eng, st, _ := newTestEngine(t)
	l := seedListing(t, st, 1)
	ctx := context.Background()

	_, err := eng.ExpressInterest(ctx, l.ID, 2)
	require.NoError(t, err)
	parked, err := eng.ExpressInterest(ctx, l.ID, 3)
	require.NoError(t, err)

	_, err = eng.LockIn(ctx, parked, 3)
	assert.ErrorIs(t, err, repository.ErrInvalidTransition)
}

func TestLockInBothSides(t *testing.T) {
	eng, st, sink := newTestEngine(t)
	l := seedListing(t, st, 1)
	ctx := context.Background()

	chatID, err := eng.ExpressInterest(ctx, l.ID, 2)
	require.NoError(t, err)
	sink.reset()

	ch, err := eng.LockIn(ctx, chatID, 1)
	require.NoError(t, err)
	assert.True(t, ch.State.(model.Active).OwnerLockedIn)

	// Repeated lock-in is a no-op and emits nothing new.
	_, err = eng.LockIn(ctx, chatID, 1)
	require.NoError(t, err)
	assert.Len(t, sink.byType(event.TypeChatUpdated), 1)

	ch, err = eng.LockIn(ctx, chatID, 2)
	require.NoError(t, err)
	assert.True(t, ch.State.(model.Active).BothLocked())

	// An outsider is rejected outright.
	_, err = eng.LockIn(ctx, chatID, 42)
	assert.ErrorIs(t, err, repository.ErrForbidden)
}

func TestApproveRequiresBothLocks(t *testing.T) {
	eng, st, _ := newTestEngine(t)
	l := seedListing(t, st, 1)
	ctx := context.Background()

	chatID, err := eng.ExpressInterest(ctx, l.ID, 2)
	require.NoError(t, err)

	_, err = eng.Approve(ctx, chatID, 1)
	assert.ErrorIs(t, err, repository.ErrInvalidTransition)

	_, err = eng.LockIn(ctx, chatID, 1)
	require.NoError(t, err)
	_, err = eng.Approve(ctx, chatID, 1)
	assert.ErrorIs(t, err, repository.ErrInvalidTransition)
}

func TestApproveCompletionResolvesListing(t *testing.T) {
	eng, st, sink := newTestEngine(t)
	l := seedListing(t, st, 1)
	ctx := context.Background()

	winner, err := eng.ExpressInterest(ctx, l.ID, 2)
	require.NoError(t, err)
	loser, err := eng.ExpressInterest(ctx, l.ID, 3)
	require.NoError(t, err)

	_, err = eng.LockIn(ctx, winner, 1)
	require.NoError(t, err)
	_, err = eng.LockIn(ctx, winner, 2)
	require.NoError(t, err)
	_, err = eng.Approve(ctx, winner, 1)
	require.NoError(t, err)
	sink.reset()

	ch, err := eng.Approve(ctx, winner, 2)
	require.NoError(t, err)
	assert.IsType(t, model.Completed{}, ch.State)

	// Listing sold, sibling cancelled as part of the same resolution.
	got, err := st.Listing(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ListingSold, got.Status)

	sib := chatState(t, st, loser).(model.Cancelled)
	assert.Equal(t, model.CancelReasonTradeResolved, sib.Reason)

	// One chat-updated for the winner, one per cancelled sibling.
	assert.Len(t, sink.byType(event.TypeChatUpdated), 2)

	// The listing is no longer open for anything.
	_, err = eng.ExpressInterest(ctx, l.ID, 4)
	assert.ErrorIs(t, err, repository.ErrInvalidTransition)
	_, err = eng.Approve(ctx, winner, 1)
	assert.ErrorIs(t, err, repository.ErrInvalidTransition)
}

func TestApproveRepeatedIsNoop(t *testing.T) {
	eng, st, sink := newTestEngine(t)
	l := seedListing(t, st, 1)
	ctx := context.Background()

	chatID, err := eng.ExpressInterest(ctx, l.ID, 2)
	require.NoError(t, err)
	_, err = eng.LockIn(ctx, chatID, 1)
	require.NoError(t, err)
	_, err = eng.LockIn(ctx, chatID, 2)
	require.NoError(t, err)

	_, err = eng.Approve(ctx, chatID, 1)
	require.NoError(t, err)
	sink.reset()

	ch, err := eng.Approve(ctx, chatID, 1)
	require.NoError(t, err)
	assert.True(t, ch.State.(model.Active).OwnerApproved)
	assert.Empty(t, sink.byType(event.TypeChatUpdated))
}

func TestCancelTraderReactivatesQueue(t *testing.T) {
	eng, st, sink := newTestEngine(t)
	l := seedListing(t, st, 1)
	ctx := context.Background()

	trader, err := eng.ExpressInterest(ctx, l.ID, 2)
	require.NoError(t, err)
	parkedA, err := eng.ExpressInterest(ctx, l.ID, 3)
	require.NoError(t, err)
	parkedB, err := eng.ExpressInterest(ctx, l.ID, 4)
	require.NoError(t, err)
	sink.reset()

	require.NoError(t, eng.Cancel(ctx, trader, 2))

	// Cancelled chat is terminal; parked siblings come back ACTIVE
	// with nobody selected.
	c := chatState(t, st, trader).(model.Cancelled)
	assert.Equal(t, model.CancelReasonWithdrawn, c.Reason)
	for _, id := range []uint64{parkedA, parkedB} {
		state, ok := chatState(t, st, id).(model.Active)
		require.True(t, ok)
		assert.False(t, state.IsActiveTrader)
	}

	evs := sink.byType(event.TypeQueueReactivated)
	require.Len(t, evs, 1)
	assert.Equal(t, l.ID, evs[0].ListingID)
}

func TestCancelNonTraderLeavesSelection(t *testing.T) {
	eng, st, sink := newTestEngine(t)
	l := seedListing(t, st, 1)
	ctx := context.Background()

	trader, err := eng.ExpressInterest(ctx, l.ID, 2)
	require.NoError(t, err)
	parked, err := eng.ExpressInterest(ctx, l.ID, 3)
	require.NoError(t, err)
	sink.reset()

	require.NoError(t, eng.Cancel(ctx, parked, 3))

	assert.True(t, chatState(t, st, trader).(model.Active).IsActiveTrader)
	assert.Empty(t, sink.byType(event.TypeQueueReactivated))
}

func TestCancelGuards(t *testing.T) {
	eng, st, _ := newTestEngine(t)
	l := seedListing(t, st, 1)
	ctx := context.Background()

	chatID, err := eng.ExpressInterest(ctx, l.ID, 2)
	require.NoError(t, err)

	assert.ErrorIs(t, eng.Cancel(ctx, chatID, 42), repository.ErrForbidden)
	require.NoError(t, eng.Cancel(ctx, chatID, 1)) // owner may withdraw too
	assert.ErrorIs(t, eng.Cancel(ctx, chatID, 2), repository.ErrInvalidTransition)
}

func TestCloseListingCancelsLiveChats(t *testing.T) {
	eng, st, sink := newTestEngine(t)
	l := seedListing(t, st, 1)
	ctx := context.Background()

	a, err := eng.ExpressInterest(ctx, l.ID, 2)
	require.NoError(t, err)
	b, err := eng.ExpressInterest(ctx, l.ID, 3)
	require.NoError(t, err)
	sink.reset()

	assert.ErrorIs(t, eng.CloseListing(ctx, l.ID, 42), repository.ErrForbidden)
	require.NoError(t, eng.CloseListing(ctx, l.ID, 1))

	got, err := st.Listing(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ListingClosed, got.Status)

	for _, id := range []uint64{a, b} {
		c := chatState(t, st, id).(model.Cancelled)
		assert.Equal(t, model.CancelReasonListingClosed, c.Reason)
	}
	assert.Len(t, sink.byType(event.TypeChatUpdated), 2)

	// Closing twice is rejected.
	assert.ErrorIs(t, eng.CloseListing(ctx, l.ID, 1), repository.ErrInvalidTransition)
}

func TestSendMessage(t *testing.T) {
	eng, st, sink := newTestEngine(t)
	l := seedListing(t, st, 1)
	ctx := context.Background()

	chatID, err := eng.ExpressInterest(ctx, l.ID, 2)
	require.NoError(t, err)
	parked, err := eng.ExpressInterest(ctx, l.ID, 3)
	require.NoError(t, err)
	sink.reset()

	msg, err := eng.SendMessage(ctx, chatID, 2, "  still interested?  ")
	require.NoError(t, err)
	assert.Equal(t, "still interested?", msg.Content)

	// Parked chats still take messages; the queue is not a gag order.
	_, err = eng.SendMessage(ctx, parked, 3, "happy to wait")
	require.NoError(t, err)

	_, err = eng.SendMessage(ctx, chatID, 2, "   ")
	assert.ErrorIs(t, err, repository.ErrInvalidTransition)
	_, err = eng.SendMessage(ctx, chatID, 42, "hi")
	assert.ErrorIs(t, err, repository.ErrForbidden)

	require.NoError(t, eng.Cancel(ctx, chatID, 2))
	_, err = eng.SendMessage(ctx, chatID, 1, "too late")
	assert.ErrorIs(t, err, repository.ErrInvalidTransition)

	assert.Len(t, sink.byType(event.TypeChatUpdated), 3) // 2 messages + 1 cancel
}

func TestAtMostOneActiveTraderUnderConcurrency(t *testing.T) {
	eng, st, _ := newTestEngine(t)
	l := seedListing(t, st, 1)
	ctx := context.Background()

	const n = 32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(user uint64) {
			defer wg.Done()
			_, err := eng.ExpressInterest(ctx, l.ID, user)
			assert.NoError(t, err)
		}(uint64(100 + i))
	}
	wg.Wait()

	chats, err := st.ChatsByOwner(ctx, 1)
	require.NoError(t, err)
	require.Len(t, chats, n)

	traders := 0
	for _, c := range chats {
		if c.IsActiveTrader() {
			traders++
		}
	}
	assert.Equal(t, 1, traders)
}
