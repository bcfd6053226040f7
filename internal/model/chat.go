package model

import "time"

// ChatStatus is the wire/database representation of a chat's
// lifecycle state.  The `chats` table stores this string alongside
// the lock-in and approval flags; in memory the state is carried
// as a ChatState variant so that illegal flag combinations are
// unrepresentable.
type ChatStatus string

const (
	ChatActive       ChatStatus = "ACTIVE"        // open negotiation, possibly the selected trader
	ChatOwnerTrading ChatStatus = "OWNER_TRADING" // parked: owner is negotiating a different chat
	ChatCompleted    ChatStatus = "COMPLETED"     // terminal, trade done
	ChatCancelled    ChatStatus = "CANCELLED"     // terminal, withdrawn or superseded
)

// Side identifies which participant of a chat performed an action.
type Side string

const (
	SideOwner        Side = "OWNER"        // listing owner (participant A)
	SideCounterparty Side = "COUNTERPARTY" // interested user (participant B)
)

// ChatState is the closed set of chat lifecycle variants.  Only
// the Active variant carries negotiation flags: a parked,
// completed or cancelled chat cannot hold a lock-in or approval,
// so those combinations simply cannot be constructed.  The
// repository layer flattens a variant into status + flag columns
// and rebuilds it when scanning.
type ChatState interface {
	Status() ChatStatus
	sealed()
}

// Active is the open negotiation state.  IsActiveTrader marks the
// single chat the owner selected to negotiate exclusively; at most
// one Active chat per listing may carry it.  Lock-ins precede
// approvals: an approval flag may only be set once both lock-in
// flags are true.
type Active struct {
	IsActiveTrader      bool // chats.is_active_trader
	OwnerLockedIn       bool // chats.locked_in_a
	CounterpartyLockedIn bool // chats.locked_in_b
	OwnerApproved       bool // chats.approved_a
	CounterpartyApproved bool // chats.approved_b
}

func (Active) Status() ChatStatus { return ChatActive }
func (Active) sealed()            {}

// BothLocked reports whether both participants have locked in the
// negotiated terms.
func (a Active) BothLocked() bool { return a.OwnerLockedIn && a.CounterpartyLockedIn }

// BothApproved reports whether both participants have given final
// consent to complete the trade.
func (a Active) BothApproved() bool { return a.OwnerApproved && a.CounterpartyApproved }

// LockedBy reports whether the given side has already locked in.
func (a Active) LockedBy(s Side) bool {
	if s == SideOwner {
		return a.OwnerLockedIn
	}
	return a.CounterpartyLockedIn
}

// ApprovedBy reports whether the given side has already approved.
func (a Active) ApprovedBy(s Side) bool {
	if s == SideOwner {
		return a.OwnerApproved
	}
	return a.CounterpartyApproved
}

// WithLock returns a copy of the state with the given side's
// lock-in flag set.
func (a Active) WithLock(s Side) Active {
	if s == SideOwner {
		a.OwnerLockedIn = true
	} else {
		a.CounterpartyLockedIn = true
	}
	return a
}

// WithApproval returns a copy of the state with the given side's
// approval flag set.
func (a Active) WithApproval(s Side) Active {
	if s == SideOwner {
		a.OwnerApproved = true
	} else {
		a.CounterpartyApproved = true
	}
	return a
}

// Parked is the OWNER_TRADING state: the listing owner is actively
// negotiating a different chat, and this one waits in the queue.
// A parked chat carries no negotiation flags; returning it to
// Active starts from a clean slate.
type Parked struct{}

func (Parked) Status() ChatStatus { return ChatOwnerTrading }
func (Parked) sealed()            {}

// Completed is the terminal success state.
type Completed struct {
	At time.Time // chats.updated_at at completion
}

func (Completed) Status() ChatStatus { return ChatCompleted }
func (Completed) sealed()            {}

// Cancelled is the terminal failure state.  Reason records why the
// chat ended (participant withdrawal, listing closed, or another
// chat winning the trade).
type Cancelled struct {
	Reason string    // chats.cancel_reason
	At     time.Time // chats.updated_at at cancellation
}

func (Cancelled) Status() ChatStatus { return ChatCancelled }
func (Cancelled) sealed()            {}

// Well-known cancellation reasons persisted in chats.cancel_reason.
const (
	CancelReasonWithdrawn     = "WITHDRAWN"      // a participant cancelled the chat
	CancelReasonListingClosed = "LISTING_CLOSED" // owner withdrew the listing
	CancelReasonTradeResolved = "TRADE_RESOLVED" // a sibling chat completed the trade
)

// Chat is the negotiation session between a listing owner and one
// interested counterparty, one row per (listing, counterparty)
// pair in the `chats` table.  Version implements optimistic
// locking: every state write checks and increments it, so two
// racing writers cannot both succeed.
//
// Fields:
//  ID             – primary key identifier.
//  ListingID      – listing under negotiation.
//  OwnerID        – listing owner (chats.participant_a).
//  CounterpartyID – interested user (chats.participant_b).
//  State          – current lifecycle variant.
//  Version        – optimistic locking counter.
//  CreatedAt      – timestamp of creation.
//  UpdatedAt      – timestamp of last update.
type Chat struct {
	ID             uint64    // chats.id
	ListingID      uint64    // chats.listing_id
	OwnerID        uint64    // chats.participant_a
	CounterpartyID uint64    // chats.participant_b
	State          ChatState // chats.status + flag columns
	Version        uint32    // chats.version
	CreatedAt      time.Time // chats.created_at
	UpdatedAt      time.Time // chats.updated_at
}

// SideOf resolves which side of the chat the given user is on.
// The second return value is false when the user is not a
// participant at all.
func (c *Chat) SideOf(userID uint64) (Side, bool) {
	switch userID {
	case c.OwnerID:
		return SideOwner, true
	case c.CounterpartyID:
		return SideCounterparty, true
	}
	return "", false
}

// IsActiveTrader reports whether this chat is the listing's
// currently selected trader.
func (c *Chat) IsActiveTrader() bool {
	a, ok := c.State.(Active)
	return ok && a.IsActiveTrader
}

// Live reports whether the chat is still negotiable, i.e. not in a
// terminal state.
func (c *Chat) Live() bool {
	switch c.State.(type) {
	case Completed, Cancelled:
		return false
	}
	return true
}
