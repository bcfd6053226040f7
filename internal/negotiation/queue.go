package negotiation

import (
	"context"
	"time"

	"github.com/MarkWasfy00/ARC-raiders-guide-sub001/internal/model"
	"github.com/MarkWasfy00/ARC-raiders-guide-sub001/internal/store"
)

// coordinator maintains the at-most-one-active-trader invariant
// per listing.  It only ever runs inside the listing transaction
// the engine opened, so its read-modify-write sequences cannot
// interleave with another writer on the same listing.
//
// The reactivation policy is deliberate: when the incumbent chat
// leaves the running state nobody is auto-promoted.  The pointer
// is cleared, parked siblings return to ACTIVE, and the owner must
// explicitly pick the next trader.  Auto-promotion would surprise
// a counterparty with unsolicited "you're now the chosen trader"
// state.
type coordinator struct{}

// promote makes target the listing's active trader and parks every
// other live chat, including the previous incumbent.  The demoted
// chats remain negotiable; they are simply no longer selected.
func (coordinator) promote(ctx context.Context, tx store.Tx, target *model.Chat, chats []*model.Chat) error {
	for _, c := range chats {
		if c.ID == target.ID || !c.Live() {
			continue
		}
		if _, parked := c.State.(model.Parked); parked {
			continue
		}
		c.State = model.Parked{}
		if err := tx.UpdateChat(ctx, c); err != nil {
			return err
		}
	}
	// Promotion resets negotiation flags: a previously parked chat
	// starts its selected run with no locks or approvals.
	target.State = model.Active{IsActiveTrader: true}
	return tx.UpdateChat(ctx, target)
}

// reactivate clears the stale active-trader pointer after the
// incumbent left the running state: every parked sibling returns
// to ACTIVE with no trader selected.  Returns the listing's chats
// as read, so the engine can target the queue-reactivated event.
func (coordinator) reactivate(ctx context.Context, tx store.Tx, listingID uint64) ([]*model.Chat, error) {
	chats, err := tx.ChatsByListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	for _, c := range chats {
		if _, parked := c.State.(model.Parked); !parked {
			continue
		}
		c.State = model.Active{}
		if err := tx.UpdateChat(ctx, c); err != nil {
			return nil, err
		}
	}
	return chats, nil
}

// resolve finalizes a listing in favor of the winning chat: the
// listing transitions ACTIVE -> SOLD and every other live chat is
// cancelled.  The status pin on the listing update rejects a
// double resolution.  Returns the cancelled siblings so the engine
// can notify their participants.
func (coordinator) resolve(ctx context.Context, tx store.Tx, listing *model.Listing, winner *model.Chat) ([]*model.Chat, error) {
	if err := tx.UpdateListingStatus(ctx, listing.ID, model.ListingActive, model.ListingSold); err != nil {
		return nil, err
	}
	chats, err := tx.ChatsByListing(ctx, listing.ID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	var cancelled []*model.Chat
	for _, c := range chats {
		if c.ID == winner.ID || !c.Live() {
			continue
		}
		c.State = model.Cancelled{Reason: model.CancelReasonTradeResolved, At: now}
		if err := tx.UpdateChat(ctx, c); err != nil {
			return nil, err
		}
		cancelled = append(cancelled, c)
	}
	return cancelled, nil
}
