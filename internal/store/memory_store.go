package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/MarkWasfy00/ARC-raiders-guide-sub001/internal/model"
	"github.com/MarkWasfy00/ARC-raiders-guide-sub001/internal/repository"
)

// MemoryStore is an in-memory Store used by the test suite.  It
// mirrors the semantics the engine depends on: per-listing
// serialization of WithListingTx, version-checked chat updates and
// status-pinned listing updates.  It does not implement rollback —
// transaction bodies in this codebase perform all guard checks
// before their first write, and the tests rely on that discipline
// rather than on snapshotting.
type MemoryStore struct {
	mu       sync.Mutex
	listings map[uint64]*model.Listing
	chats    map[uint64]*model.Chat
	messages map[uint64][]*model.Message
	nextID   uint64

	lockMu       sync.Mutex
	listingLocks map[uint64]*sync.Mutex
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		listings:     make(map[uint64]*model.Listing),
		chats:        make(map[uint64]*model.Chat),
		messages:     make(map[uint64][]*model.Message),
		listingLocks: make(map[uint64]*sync.Mutex),
	}
}

func (s *MemoryStore) nextSeq() uint64 {
	s.nextID++
	return s.nextID
}

// PutListing seeds a listing, assigning an id when the caller left
// it zero.  Test fixture helper.
func (s *MemoryStore) PutListing(l *model.Listing) *model.Listing {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l.ID == 0 {
		l.ID = s.nextSeq()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	l.UpdatedAt = l.CreatedAt
	cp := *l
	s.listings[l.ID] = &cp
	return l
}

func (s *MemoryStore) lockFor(listingID uint64) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	mu, ok := s.listingLocks[listingID]
	if !ok {
		mu = &sync.Mutex{}
		s.listingLocks[listingID] = mu
	}
	return mu
}

// WithListingTx implements Store.  The per-listing mutex gives the
// same one-writer-per-listing guarantee as the SQL implementation.
func (s *MemoryStore) WithListingTx(ctx context.Context, listingID uint64, fn func(Tx) error) error {
	mu := s.lockFor(listingID)
	mu.Lock()
	defer mu.Unlock()
	return fn(&memTx{s: s})
}

func copyChat(c *model.Chat) *model.Chat { cp := *c; return &cp }

func (s *MemoryStore) getListing(id uint64) (*model.Listing, error) {
	l, ok := s.listings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (s *MemoryStore) getChat(id uint64) (*model.Chat, error) {
	c, ok := s.chats[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyChat(c), nil
}

func (s *MemoryStore) chatsWhere(keep func(*model.Chat) bool) []*model.Chat {
	var out []*model.Chat
	for _, c := range s.chats {
		if keep(c) {
			out = append(out, copyChat(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *MemoryStore) Listing(ctx context.Context, id uint64) (*model.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getListing(id)
}

func (s *MemoryStore) Chat(ctx context.Context, id uint64) (*model.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getChat(id)
}

func (s *MemoryStore) ListingsByOwner(ctx context.Context, ownerID uint64) ([]*model.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Listing
	for _, l := range s.listings {
		if l.OwnerID == ownerID {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) ChatsByOwner(ctx context.Context, ownerID uint64) ([]*model.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chatsWhere(func(c *model.Chat) bool { return c.OwnerID == ownerID }), nil
}

func (s *MemoryStore) ChatsByCounterparty(ctx context.Context, userID uint64) ([]*model.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chatsWhere(func(c *model.Chat) bool { return c.CounterpartyID == userID }), nil
}

func (s *MemoryStore) MessagesByChat(ctx context.Context, chatID uint64) ([]*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.messages[chatID]
	out := make([]*model.Message, 0, len(msgs))
	for _, m := range msgs {
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}

// memTx reuses the store maps directly; the listing mutex held by
// WithListingTx keeps writers serialized, and the inner mu guards
// against concurrent readers on other listings.
type memTx struct {
	s *MemoryStore
}

func (t *memTx) Listing(ctx context.Context, id uint64) (*model.Listing, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return t.s.getListing(id)
}

func (t *memTx) Chat(ctx context.Context, id uint64) (*model.Chat, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return t.s.getChat(id)
}

func (t *memTx) ChatsByListing(ctx context.Context, listingID uint64) ([]*model.Chat, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return t.s.chatsWhere(func(c *model.Chat) bool { return c.ListingID == listingID }), nil
}

func (t *memTx) ChatByCounterparty(ctx context.Context, listingID, counterpartyID uint64) (*model.Chat, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for _, c := range t.s.chats {
		if c.ListingID == listingID && c.CounterpartyID == counterpartyID {
			return copyChat(c), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (t *memTx) ActiveTrader(ctx context.Context, listingID uint64) (*model.Chat, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for _, c := range t.s.chats {
		if c.ListingID == listingID && c.IsActiveTrader() {
			return copyChat(c), nil
		}
	}
	return nil, nil
}

func (t *memTx) CreateChat(ctx context.Context, c *model.Chat) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	c.ID = t.s.nextSeq()
	c.Version = 1
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	t.s.chats[c.ID] = copyChat(c)
	return nil
}

func (t *memTx) UpdateChat(ctx context.Context, c *model.Chat) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	cur, ok := t.s.chats[c.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if cur.Version != c.Version {
		return repository.ErrConflict
	}
	c.Version++
	c.UpdatedAt = time.Now().UTC()
	t.s.chats[c.ID] = copyChat(c)
	return nil
}

func (t *memTx) UpdateListingStatus(ctx context.Context, id uint64, from, to model.ListingStatus) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	l, ok := t.s.listings[id]
	if !ok {
		return repository.ErrNotFound
	}
	if l.Status != from {
		return repository.ErrConflict
	}
	l.Status = to
	l.UpdatedAt = time.Now().UTC()
	return nil
}

func (t *memTx) CreateMessage(ctx context.Context, m *model.Message) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	m.ID = t.s.nextSeq()
	m.CreatedAt = time.Now().UTC()
	cp := *m
	t.s.messages[m.ChatID] = append(t.s.messages[m.ChatID], &cp)
	return nil
}
