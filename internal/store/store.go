// Package store defines the persistence boundary consumed by the
// negotiation engine and query service.  The engine never touches
// database handles directly: every mutating operation runs inside
// a listing-scoped transaction obtained from WithListingTx, and
// every read view goes through the plain Store methods.  Two
// implementations exist: SQLStore over MySQL for production and
// MemoryStore for tests.
package store

import (
	"context"

	"github.com/MarkWasfy00/ARC-raiders-guide-sub001/internal/model"
)

// Tx is the set of operations available inside a listing-scoped
// transaction.  Implementations guarantee that for a given listing
// id at most one Tx is live at a time, so a read-modify-write
// sequence on the listing's chat set cannot interleave with
// another writer on the same listing.  Writes use optimistic
// version checks underneath; a lost race surfaces as
// repository.ErrConflict and the whole transaction is retried by
// the store.
type Tx interface {
	// Listing fetches the listing the transaction is scoped to
	// (or any other; callers only ever ask for the scoped one).
	Listing(ctx context.Context, id uint64) (*model.Listing, error)
	// Chat fetches a single chat by id.
	Chat(ctx context.Context, id uint64) (*model.Chat, error)
	// ChatsByListing returns every chat under the listing,
	// oldest first.
	ChatsByListing(ctx context.Context, listingID uint64) ([]*model.Chat, error)
	// ChatByCounterparty returns the chat a counterparty holds
	// under the listing, or repository.ErrNotFound.
	ChatByCounterparty(ctx context.Context, listingID, counterpartyID uint64) (*model.Chat, error)
	// ActiveTrader returns the listing's currently selected
	// chat, or nil when no trader is selected.
	ActiveTrader(ctx context.Context, listingID uint64) (*model.Chat, error)
	// CreateChat inserts a new chat and fills in its id.
	CreateChat(ctx context.Context, c *model.Chat) error
	// UpdateChat persists a chat's state variant under a version
	// check.
	UpdateChat(ctx context.Context, c *model.Chat) error
	// UpdateListingStatus transitions the listing status,
	// pinning the expected current status.
	UpdateListingStatus(ctx context.Context, id uint64, from, to model.ListingStatus) error
	// CreateMessage appends a transcript entry.
	CreateMessage(ctx context.Context, m *model.Message) error
}

// Store is the full persistence surface.  WithListingTx serializes
// mutations per listing; the remaining methods are lock-free reads
// used by the query service and the transcript endpoint.
type Store interface {
	// WithListingTx runs fn inside a transaction serialized on
	// the listing id.  When fn returns repository.ErrConflict the
	// transaction is rolled back and retried a bounded number of
	// times; any other error aborts and is returned unchanged.
	WithListingTx(ctx context.Context, listingID uint64, fn func(Tx) error) error

	Listing(ctx context.Context, id uint64) (*model.Listing, error)
	Chat(ctx context.Context, id uint64) (*model.Chat, error)
	ListingsByOwner(ctx context.Context, ownerID uint64) ([]*model.Listing, error)
	ChatsByOwner(ctx context.Context, ownerID uint64) ([]*model.Chat, error)
	ChatsByCounterparty(ctx context.Context, userID uint64) ([]*model.Chat, error)
	MessagesByChat(ctx context.Context, chatID uint64) ([]*model.Message, error)
}
