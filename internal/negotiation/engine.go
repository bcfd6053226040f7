// Package negotiation implements the marketplace trade-negotiation
// engine: the state machine that owns every chat lifecycle
// transition, the queue coordinator that maintains the
// at-most-one-active-trader invariant per listing, and the query
// service that shapes the owned and incoming read views.
//
// Every mutating action runs inside a listing-scoped transaction
// obtained from the store, so selection and demotion of chats
// under one listing never interleave with another writer.  Guard
// evaluation is pure and synchronous; only store calls and event
// delivery suspend.  Rejected actions leave all state unchanged.
package negotiation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MarkWasfy00/ARC-raiders-guide-sub001/internal/event"
	"github.com/MarkWasfy00/ARC-raiders-guide-sub001/internal/model"
	"github.com/MarkWasfy00/ARC-raiders-guide-sub001/internal/repository"
	"github.com/MarkWasfy00/ARC-raiders-guide-sub001/internal/store"
)

// Engine is the sole mutator of chat and listing negotiation
// state.  All methods return the sentinel errors of the repository
// package: ErrNotFound, ErrForbidden, ErrInvalidTransition,
// ErrConflict and ErrUnavailable.
type Engine struct {
	store    store.Store
	notifier event.Notifier
	queue    coordinator
}

// noopNotifier drops every event.
type noopNotifier struct{}

func (noopNotifier) Notify(event.Event) {}

// NewEngine builds an Engine over the given store.  The notifier
// may be nil, in which case events are dropped; state transitions
// never depend on delivery.
func NewEngine(s store.Store, n event.Notifier) *Engine {
	if s == nil {
		panic("nil store passed to NewEngine")
	}
	if n == nil {
		n = noopNotifier{}
	}
	return &Engine{store: s, notifier: n}
}

// emit stamps and delivers the collected events after a successful
// commit.  Delivery is best-effort; sinks handle their own errors.
func (e *Engine) emit(evs []event.Event) {
	now := time.Now().UTC()
	for _, ev := range evs {
		ev.EmittedAt = now
		e.notifier.Notify(ev)
	}
}

// participantsOf collects the distinct user ids with a stake in
// the given chats: the listing owner plus every counterparty of a
// live chat.  Used to target listing-wide events.
func participantsOf(chats []*model.Chat) []uint64 {
	seen := make(map[uint64]struct{})
	var out []uint64
	add := func(id uint64) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	for _, c := range chats {
		add(c.OwnerID)
		if c.Live() {
			add(c.CounterpartyID)
		}
	}
	return out
}

// ExpressInterest opens a chat between a counterparty and the
// owner of an ACTIVE listing.  At most one chat may exist per
// (listing, counterparty) pair.  When the listing has no active
// trader yet, the new chat is selected immediately; otherwise it
// joins the queue parked behind the incumbent.
func (e *Engine) ExpressInterest(ctx context.Context, listingID, counterpartyID uint64) (uint64, error) {
	var chatID uint64
	var evs []event.Event
	err := e.store.WithListingTx(ctx, listingID, func(tx store.Tx) error {
		evs = evs[:0]
		listing, err := tx.Listing(ctx, listingID)
		if err != nil {
			return err
		}
		if counterpartyID == listing.OwnerID {
			return repository.ErrInvalidTransition
		}
		if !listing.Open() {
			return repository.ErrInvalidTransition
		}
		if _, err := tx.ChatByCounterparty(ctx, listingID, counterpartyID); err == nil {
			return repository.ErrInvalidTransition
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		incumbent, err := tx.ActiveTrader(ctx, listingID)
		if err != nil {
			return err
		}
		var state model.ChatState
		if incumbent == nil {
			// First interested party is auto-selected as the trader.
			state = model.Active{IsActiveTrader: true}
		} else {
			state = model.Parked{}
		}
		chat := &model.Chat{
			ListingID:      listingID,
			OwnerID:        listing.OwnerID,
			CounterpartyID: counterpartyID,
			State:          state,
		}
		if err := tx.CreateChat(ctx, chat); err != nil {
			return err
		}
		chatID = chat.ID
		evs = append(evs, event.Event{
			Type:       event.TypeNewChat,
			ListingID:  listingID,
			ChatID:     chat.ID,
			FromUserID: counterpartyID,
			Recipients: []uint64{listing.OwnerID},
		})
		return nil
	})
	if err != nil {
		return 0, err
	}
	e.emit(evs)
	return chatID, nil
}

// SelectTrader makes the given chat the listing's sole negotiating
// partner.  Only the listing owner may select.  The incumbent (if
// different) and every other live chat are parked, not cancelled:
// they remain negotiable but are no longer the selected one.
// Reselecting the incumbent is a no-op and emits nothing.
func (e *Engine) SelectTrader(ctx context.Context, listingID, chatID, ownerID uint64) error {
	var evs []event.Event
	err := e.store.WithListingTx(ctx, listingID, func(tx store.Tx) error {
		evs = evs[:0]
		listing, err := tx.Listing(ctx, listingID)
		if err != nil {
			return err
		}
		if ownerID != listing.OwnerID {
			return repository.ErrForbidden
		}
		if !listing.Open() {
			return repository.ErrInvalidTransition
		}
		chats, err := tx.ChatsByListing(ctx, listingID)
		if err != nil {
			return err
		}
		var target *model.Chat
		for _, c := range chats {
			if c.ID == chatID {
				target = c
				break
			}
		}
		if target == nil {
			return repository.ErrNotFound
		}
		if !target.Live() {
			return repository.ErrInvalidTransition
		}
		if target.IsActiveTrader() {
			return nil // idempotent reselect
		}
		if err := e.queue.promote(ctx, tx, target, chats); err != nil {
			return err
		}
		evs = append(evs, event.Event{
			Type:       event.TypeTraderSelected,
			ListingID:  listingID,
			ChatID:     chatID,
			Recipients: participantsOf(chats),
		})
		return nil
	})
	if err != nil {
		return err
	}
	e.emit(evs)
	return nil
}

// LockIn records a participant's signal that the negotiated terms
// are final.  Only the active-trader chat may lock in.  A repeated
// lock-in by the same side is a no-op.  Once both sides are
// locked, the chat awaits approvals.
func (e *Engine) LockIn(ctx context.Context, chatID, actorID uint64) (*model.Chat, error) {
	return e.mutateChat(ctx, chatID, actorID, func(chat *model.Chat, side model.Side, listing *model.Listing) (bool, error) {
		active, ok := chat.State.(model.Active)
		if !ok || !active.IsActiveTrader {
			return false, repository.ErrInvalidTransition
		}
		if active.LockedBy(side) {
			return false, nil
		}
		chat.State = active.WithLock(side)
		return true, nil
	})
}

// Approve records a participant's final consent.  Approval
// requires both lock-in flags; a repeated approval by the same
// side is a no-op.  When the second approval lands the chat
// completes: the listing becomes SOLD and every sibling chat is
// cancelled, atomically within the same listing transaction.
func (e *Engine) Approve(ctx context.Context, chatID, actorID uint64) (*model.Chat, error) {
	var evs []event.Event
	var out *model.Chat
	listingID, err := e.listingOf(ctx, chatID)
	if err != nil {
		return nil, err
	}
	err = e.store.WithListingTx(ctx, listingID, func(tx store.Tx) error {
		evs = evs[:0]
		chat, err := tx.Chat(ctx, chatID)
		if err != nil {
			return err
		}
		side, ok := chat.SideOf(actorID)
		if !ok {
			return repository.ErrForbidden
		}
		listing, err := tx.Listing(ctx, chat.ListingID)
		if err != nil {
			return err
		}
		if !listing.Open() {
			return repository.ErrInvalidTransition
		}
		active, isActive := chat.State.(model.Active)
		if !isActive || !active.IsActiveTrader || !active.BothLocked() {
			return repository.ErrInvalidTransition
		}
		if active.ApprovedBy(side) {
			out = chat
			return nil
		}
		active = active.WithApproval(side)
		if !active.BothApproved() {
			chat.State = active
			if err := tx.UpdateChat(ctx, chat); err != nil {
				return err
			}
			out = chat
			evs = append(evs, chatUpdated(chat))
			return nil
		}
		// Both sides consented: resolve the listing in favor of this chat.
		chat.State = model.Completed{At: time.Now().UTC()}
		if err := tx.UpdateChat(ctx, chat); err != nil {
			return err
		}
		cancelled, err := e.queue.resolve(ctx, tx, listing, chat)
		if err != nil {
			return err
		}
		out = chat
		evs = append(evs, chatUpdated(chat))
		for _, sib := range cancelled {
			evs = append(evs, chatUpdated(sib))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.emit(evs)
	return out, nil
}

// Cancel withdraws a chat.  Either participant may cancel a live
// chat at any point.  When the cancelled chat was the active
// trader, the queue coordinator clears the pointer and returns the
// parked siblings to ACTIVE — no sibling is auto-promoted; the
// owner must select again.
func (e *Engine) Cancel(ctx context.Context, chatID, actorID uint64) error {
	listingID, err := e.listingOf(ctx, chatID)
	if err != nil {
		return err
	}
	var evs []event.Event
	err = e.store.WithListingTx(ctx, listingID, func(tx store.Tx) error {
		evs = evs[:0]
		chat, err := tx.Chat(ctx, chatID)
		if err != nil {
			return err
		}
		if _, ok := chat.SideOf(actorID); !ok {
			return repository.ErrForbidden
		}
		if !chat.Live() {
			return repository.ErrInvalidTransition
		}
		wasTrader := chat.IsActiveTrader()
		chat.State = model.Cancelled{Reason: model.CancelReasonWithdrawn, At: time.Now().UTC()}
		if err := tx.UpdateChat(ctx, chat); err != nil {
			return err
		}
		evs = append(evs, chatUpdated(chat))
		if wasTrader {
			siblings, err := e.queue.reactivate(ctx, tx, chat.ListingID)
			if err != nil {
				return err
			}
			evs = append(evs, event.Event{
				Type:       event.TypeQueueReactivated,
				ListingID:  chat.ListingID,
				Recipients: participantsOf(siblings),
			})
		}
		return nil
	})
	if err != nil {
		return err
	}
	e.emit(evs)
	return nil
}

// CloseListing withdraws a listing from the market (ACTIVE ->
// CLOSED) and cancels every live chat under it.  Only the owner
// may close.
func (e *Engine) CloseListing(ctx context.Context, listingID, ownerID uint64) error {
	var evs []event.Event
	err := e.store.WithListingTx(ctx, listingID, func(tx store.Tx) error {
		evs = evs[:0]
		listing, err := tx.Listing(ctx, listingID)
		if err != nil {
			return err
		}
		if ownerID != listing.OwnerID {
			return repository.ErrForbidden
		}
		if !listing.Open() {
			return repository.ErrInvalidTransition
		}
		if err := tx.UpdateListingStatus(ctx, listingID, model.ListingActive, model.ListingClosed); err != nil {
			return err
		}
		chats, err := tx.ChatsByListing(ctx, listingID)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		for _, c := range chats {
			if !c.Live() {
				continue
			}
			c.State = model.Cancelled{Reason: model.CancelReasonListingClosed, At: now}
			if err := tx.UpdateChat(ctx, c); err != nil {
				return err
			}
			evs = append(evs, chatUpdated(c))
		}
		return nil
	})
	if err != nil {
		return err
	}
	e.emit(evs)
	return nil
}

// SendMessage appends a transcript entry to a live or parked chat.
// Terminal chats reject messages.  Content is trimmed; an empty
// message is rejected as an invalid transition so the caller
// taxonomy stays uniform.
func (e *Engine) SendMessage(ctx context.Context, chatID, senderID uint64, content string) (*model.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, repository.ErrInvalidTransition
	}
	listingID, err := e.listingOf(ctx, chatID)
	if err != nil {
		return nil, err
	}
	var msg *model.Message
	var evs []event.Event
	err = e.store.WithListingTx(ctx, listingID, func(tx store.Tx) error {
		evs = evs[:0]
		chat, err := tx.Chat(ctx, chatID)
		if err != nil {
			return err
		}
		if _, ok := chat.SideOf(senderID); !ok {
			return repository.ErrForbidden
		}
		if !chat.Live() {
			return repository.ErrInvalidTransition
		}
		msg = &model.Message{ChatID: chatID, SenderID: senderID, Content: content}
		if err := tx.CreateMessage(ctx, msg); err != nil {
			return err
		}
		evs = append(evs, event.Event{
			Type:       event.TypeChatUpdated,
			ListingID:  chat.ListingID,
			ChatID:     chat.ID,
			FromUserID: senderID,
			Recipients: []uint64{chat.OwnerID, chat.CounterpartyID},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.emit(evs)
	return msg, nil
}

// mutateChat factors the common shape of LockIn: resolve the
// chat's listing, enter the listing transaction, check
// participation and listing liveness, apply the transition, and
// emit chat-updated when state actually changed.
func (e *Engine) mutateChat(ctx context.Context, chatID, actorID uint64,
	apply func(*model.Chat, model.Side, *model.Listing) (bool, error)) (*model.Chat, error) {
	listingID, err := e.listingOf(ctx, chatID)
	if err != nil {
		return nil, err
	}
	var out *model.Chat
	var evs []event.Event
	err = e.store.WithListingTx(ctx, listingID, func(tx store.Tx) error {
		evs = evs[:0]
		chat, err := tx.Chat(ctx, chatID)
		if err != nil {
			return err
		}
		side, ok := chat.SideOf(actorID)
		if !ok {
			return repository.ErrForbidden
		}
		listing, err := tx.Listing(ctx, chat.ListingID)
		if err != nil {
			return err
		}
		if !listing.Open() {
			return repository.ErrInvalidTransition
		}
		changed, err := apply(chat, side, listing)
		if err != nil {
			return err
		}
		if changed {
			if err := tx.UpdateChat(ctx, chat); err != nil {
				return err
			}
			evs = append(evs, chatUpdated(chat))
		}
		out = chat
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.emit(evs)
	return out, nil
}

// listingOf resolves a chat's listing id ahead of taking the
// listing lock.  The chat is re-read inside the transaction; this
// lookup only picks the serialization key.
func (e *Engine) listingOf(ctx context.Context, chatID uint64) (uint64, error) {
	chat, err := e.store.Chat(ctx, chatID)
	if err != nil {
		return 0, err
	}
	return chat.ListingID, nil
}

// chatUpdated builds the chat-updated event for the chat's two
// participants.
func chatUpdated(c *model.Chat) event.Event {
	return event.Event{
		Type:       event.TypeChatUpdated,
		ListingID:  c.ListingID,
		ChatID:     c.ID,
		Status:     string(c.State.Status()),
		Recipients: []uint64{c.OwnerID, c.CounterpartyID},
	}
}
