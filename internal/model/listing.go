package model

import "time"

// ListingStatus enumerates the lifecycle states of a marketplace
// listing.  A listing starts ACTIVE, becomes SOLD when one of its
// chats completes a trade, and becomes CLOSED when the owner
// withdraws it.
type ListingStatus string

const (
	ListingActive ListingStatus = "ACTIVE" // open for interest and negotiation
	ListingSold   ListingStatus = "SOLD"   // a chat under it completed
	ListingClosed ListingStatus = "CLOSED" // withdrawn by the owner
)

// TradeDirection indicates whether the owner is offering an item
// for sale or looking to buy one.
type TradeDirection string

const (
	DirectionOffer TradeDirection = "OFFER" // owner sells the item
	DirectionWant  TradeDirection = "WANT"  // owner wants the item
)

// Listing represents a marketplace offer or want-ad as stored in
// the `listings` table.  The active-trader pointer is deliberately
// not a column here: it is derived from the chats table
// (chats.is_active_trader) so a single source of truth holds the
// at-most-one-active-trader invariant.
//
// Fields:
//  ID        – primary key identifier.
//  OwnerID   – user who created the listing.
//  ItemRef   – opaque reference to the item being traded.
//  Quantity  – number of units offered or wanted.
//  Direction – OFFER or WANT.
//  Status    – lifecycle state (ACTIVE, SOLD, CLOSED).
//  CreatedAt – timestamp of creation.
//  UpdatedAt – timestamp of last update.
type Listing struct {
	ID        uint64         // listings.id
	OwnerID   uint64         // listings.owner_id
	ItemRef   string         // listings.item_ref
	Quantity  uint32         // listings.quantity
	Direction TradeDirection // listings.direction
	Status    ListingStatus  // listings.status
	CreatedAt time.Time      // listings.created_at
	UpdatedAt time.Time      // listings.updated_at
}

// Open reports whether the listing still accepts interest and
// negotiation actions.  SOLD and CLOSED listings reject every
// mutating operation.
func (l *Listing) Open() bool { return l.Status == ListingActive }
