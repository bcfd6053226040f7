// Package event defines the domain events emitted by the
// negotiation engine and the sinks that deliver them.  Payloads
// are intentionally minimal: recipients re-fetch full state via
// the query service rather than trusting event fields for anything
// beyond "something changed".
package event

import "time"

// Type enumerates the negotiation event kinds.
type Type string

const (
	TypeNewChat          Type = "new-chat"          // a counterparty expressed interest
	TypeTraderSelected   Type = "trader-selected"   // owner picked the active trader
	TypeQueueReactivated Type = "queue-reactivated" // active trader left, selection is open again
	TypeChatUpdated      Type = "chat-updated"      // a chat's state or transcript changed
)

// Event is a single negotiation notification.  Recipients is the
// set of user ids the fan-out should target; it is resolved inside
// the listing transaction and never serialized to clients.
type Event struct {
	Type       Type      `json:"type"`
	ListingID  uint64    `json:"listing_id,omitempty"`
	ChatID     uint64    `json:"chat_id,omitempty"`
	FromUserID uint64    `json:"from_user_id,omitempty"`
	Status     string    `json:"status,omitempty"`
	EmittedAt  time.Time `json:"emitted_at"`

	Recipients []uint64 `json:"-"`
}

// Notifier delivers events to interested parties.  Delivery is
// best-effort and at-most-once: implementations log failures and
// never return them, so a slow or broken sink cannot roll back or
// block the state transition that produced the event.
type Notifier interface {
	Notify(ev Event)
}

// Multi fans a single event out to several sinks in order.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(ev Event) {
	for _, n := range m {
		n.Notify(ev)
	}
}
