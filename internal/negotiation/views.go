package negotiation

import (
	"context"

	"github.com/MarkWasfy00/ARC-raiders-guide-sub001/internal/model"
	"github.com/MarkWasfy00/ARC-raiders-guide-sub001/internal/repository"
	"github.com/MarkWasfy00/ARC-raiders-guide-sub001/internal/store"
)

// Views is the negotiation query service: a pure projection of
// chat and listing state into the two read models the UI consumes.
// It never mutates anything and reads straight from the store, so
// it is consistent with whatever the state machine last committed.
type Views struct {
	store store.Store
}

// NewViews builds the query service over the given store.
func NewViews(s store.Store) *Views {
	if s == nil {
		panic("nil store passed to NewViews")
	}
	return &Views{store: s}
}

// ChatSummary is a single chat as seen in the owned view.  The
// counterparty id is exposed because the owner already sees who
// they talk to; message content is not included.
type ChatSummary struct {
	ChatID         uint64           `json:"chat_id"`
	CounterpartyID uint64           `json:"counterparty_id"`
	Status         model.ChatStatus `json:"status"`
	IsActiveTrader bool             `json:"is_active_trader"`
}

// ListingGroup is one owned listing with its interested
// counterparties grouped underneath.
type ListingGroup struct {
	ListingID          uint64              `json:"listing_id"`
	ItemRef            string              `json:"item_ref"`
	Quantity           uint32              `json:"quantity"`
	Direction          model.TradeDirection `json:"direction"`
	Status             model.ListingStatus `json:"status"`
	InterestedCount    int                 `json:"interested_count"`
	HasActiveTrader    bool                `json:"has_active_trader"`
	ActiveTraderChatID uint64              `json:"active_trader_chat_id,omitempty"`
	Chats              []ChatSummary       `json:"chats"`
}

// IncomingChat is one chat where the requesting user is the
// counterparty.  IsQueuedBehind tells the client to render a
// "waiting" state without exposing who holds the selection or any
// sibling content.
type IncomingChat struct {
	ChatID         uint64              `json:"chat_id"`
	ListingID      uint64              `json:"listing_id"`
	OwnerID        uint64              `json:"owner_id"`
	ItemRef        string              `json:"item_ref"`
	ListingStatus  model.ListingStatus `json:"listing_status"`
	Status         model.ChatStatus    `json:"status"`
	IsActiveTrader bool                `json:"is_active_trader"`
	IsQueuedBehind bool                `json:"is_queued_behind"`
}

// GetOwnedView groups all non-cancelled chats under each listing
// the user owns and annotates every group with the current
// active-trader pointer.  Listings with no interest yet are
// included with an empty chat list so the owner sees the full
// picture of what they have on the market.
func (v *Views) GetOwnedView(ctx context.Context, userID uint64) ([]ListingGroup, error) {
	listings, err := v.store.ListingsByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	chats, err := v.store.ChatsByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	byListing := make(map[uint64][]*model.Chat, len(listings))
	for _, c := range chats {
		byListing[c.ListingID] = append(byListing[c.ListingID], c)
	}
	out := make([]ListingGroup, 0, len(listings))
	for _, l := range listings {
		group := ListingGroup{
			ListingID: l.ID,
			ItemRef:   l.ItemRef,
			Quantity:  l.Quantity,
			Direction: l.Direction,
			Status:    l.Status,
			Chats:     []ChatSummary{},
		}
		for _, c := range byListing[l.ID] {
			if _, gone := c.State.(model.Cancelled); gone {
				continue
			}
			trader := c.IsActiveTrader()
			group.Chats = append(group.Chats, ChatSummary{
				ChatID:         c.ID,
				CounterpartyID: c.CounterpartyID,
				Status:         c.State.Status(),
				IsActiveTrader: trader,
			})
			if c.Live() {
				group.InterestedCount++
			}
			if trader {
				group.HasActiveTrader = true
				group.ActiveTraderChatID = c.ID
			}
		}
		out = append(out, group)
	}
	return out, nil
}

// GetIncomingView lists every chat where the user is the
// counterparty, annotated with whether their chat holds the
// selection or waits behind another one.
func (v *Views) GetIncomingView(ctx context.Context, userID uint64) ([]IncomingChat, error) {
	chats, err := v.store.ChatsByCounterparty(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]IncomingChat, 0, len(chats))
	for _, c := range chats {
		listing, err := v.store.Listing(ctx, c.ListingID)
		if err != nil {
			return nil, err
		}
		trader := c.IsActiveTrader()
		_, parked := c.State.(model.Parked)
		out = append(out, IncomingChat{
			ChatID:         c.ID,
			ListingID:      c.ListingID,
			OwnerID:        c.OwnerID,
			ItemRef:        listing.ItemRef,
			ListingStatus:  listing.Status,
			Status:         c.State.Status(),
			IsActiveTrader: trader,
			IsQueuedBehind: parked,
		})
	}
	return out, nil
}

// GetTranscript returns the full message history of a chat,
// restricted to its two participants.
func (v *Views) GetTranscript(ctx context.Context, chatID, userID uint64) ([]*model.Message, error) {
	chat, err := v.store.Chat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if _, ok := chat.SideOf(userID); !ok {
		return nil, repository.ErrForbidden
	}
	return v.store.MessagesByChat(ctx, chatID)
}
