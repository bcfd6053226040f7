package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/MarkWasfy00/ARC-raiders-guide-sub001/internal/model"
	"github.com/MarkWasfy00/ARC-raiders-guide-sub001/internal/repository"
)

// lockShards is the number of listing mutex shards.  Listing ids
// hash onto a shard, so unrelated listings rarely contend while
// the same listing always maps to the same mutex.
const lockShards = 64

// txAttempts bounds optimistic-concurrency retries before the
// operation surfaces repository.ErrConflict to the caller.
const txAttempts = 3

// SQLStore implements Store over MySQL.  It composes the
// repository layer and adds the listing-scoped serialization the
// negotiation engine requires: an in-process sharded mutex keyed
// by listing id wrapped around a database transaction, with
// bounded retry when a version check fails.
type SQLStore struct {
	db       *sql.DB
	listings *repository.ListingRepo
	chats    *repository.ChatRepo
	messages *repository.MessageRepo
	locks    [lockShards]sync.Mutex
}

// NewSQLStore builds an SQLStore over the given database handle.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{
		db:       db,
		listings: repository.NewListingRepo(db),
		chats:    repository.NewChatRepo(db),
		messages: repository.NewMessageRepo(db),
	}
}

func (s *SQLStore) lockFor(listingID uint64) *sync.Mutex {
	return &s.locks[listingID%lockShards]
}

// WithListingTx implements Store.  The listing mutex is held for
// the whole transaction, so selection and demotion of chats under
// one listing never interleave.  A repository.ErrConflict from fn
// triggers a rollback and a fresh attempt with newly read state;
// begin/commit failures are treated as transient and mapped to
// repository.ErrUnavailable once attempts are exhausted.
func (s *SQLStore) WithListingTx(ctx context.Context, listingID uint64, fn func(Tx) error) error {
	mu := s.lockFor(listingID)
	mu.Lock()
	defer mu.Unlock()

	var lastErr error
	for attempt := 0; attempt < txAttempts; attempt++ {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			lastErr = err
			continue
		}
		err = fn(&sqlTx{store: s, tx: tx})
		if err != nil {
			_ = tx.Rollback()
			if errors.Is(err, repository.ErrConflict) {
				lastErr = err
				continue
			}
			return err
		}
		if err := tx.Commit(); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	if errors.Is(lastErr, repository.ErrConflict) {
		return repository.ErrConflict
	}
	return fmt.Errorf("%w: %v", repository.ErrUnavailable, lastErr)
}

// Read-side methods delegate straight to the repositories; no
// listing lock is required because the query service tolerates
// concurrent writers (read-after-write consistency comes from the
// database, not from the mutex).

func (s *SQLStore) Listing(ctx context.Context, id uint64) (*model.Listing, error) {
	return s.listings.GetByID(ctx, id)
}

func (s *SQLStore) Chat(ctx context.Context, id uint64) (*model.Chat, error) {
	return s.chats.GetByID(ctx, id)
}

func (s *SQLStore) ListingsByOwner(ctx context.Context, ownerID uint64) ([]*model.Listing, error) {
	return s.listings.ListByOwner(ctx, ownerID)
}

func (s *SQLStore) ChatsByOwner(ctx context.Context, ownerID uint64) ([]*model.Chat, error) {
	return s.chats.ListByOwner(ctx, ownerID)
}

func (s *SQLStore) ChatsByCounterparty(ctx context.Context, userID uint64) ([]*model.Chat, error) {
	return s.chats.ListByCounterparty(ctx, userID)
}

func (s *SQLStore) MessagesByChat(ctx context.Context, chatID uint64) ([]*model.Message, error) {
	return s.messages.ListByChat(ctx, chatID)
}

// sqlTx adapts a live *sql.Tx plus the repositories to the Tx
// interface consumed by the engine.
type sqlTx struct {
	store *SQLStore
	tx    *sql.Tx
}

func (t *sqlTx) Listing(ctx context.Context, id uint64) (*model.Listing, error) {
	return t.store.listings.GetByIDTx(ctx, t.tx, id)
}

func (t *sqlTx) Chat(ctx context.Context, id uint64) (*model.Chat, error) {
	return t.store.chats.GetByIDTx(ctx, t.tx, id)
}

func (t *sqlTx) ChatsByListing(ctx context.Context, listingID uint64) ([]*model.Chat, error) {
	return t.store.chats.ListByListingTx(ctx, t.tx, listingID)
}

func (t *sqlTx) ChatByCounterparty(ctx context.Context, listingID, counterpartyID uint64) (*model.Chat, error) {
	return t.store.chats.GetByListingAndCounterpartyTx(ctx, t.tx, listingID, counterpartyID)
}

func (t *sqlTx) ActiveTrader(ctx context.Context, listingID uint64) (*model.Chat, error) {
	return t.store.chats.ActiveTraderTx(ctx, t.tx, listingID)
}

func (t *sqlTx) CreateChat(ctx context.Context, c *model.Chat) error {
	return t.store.chats.CreateTx(ctx, t.tx, c)
}

func (t *sqlTx) UpdateChat(ctx context.Context, c *model.Chat) error {
	return t.store.chats.UpdateStateTx(ctx, t.tx, c)
}

func (t *sqlTx) UpdateListingStatus(ctx context.Context, id uint64, from, to model.ListingStatus) error {
	return t.store.listings.UpdateStatusTx(ctx, t.tx, id, from, to)
}

func (t *sqlTx) CreateMessage(ctx context.Context, m *model.Message) error {
	return t.store.messages.CreateTx(ctx, t.tx, m)
}
