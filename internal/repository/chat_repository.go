package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/MarkWasfy00/ARC-raiders-guide-sub001/internal/model"
)

// ChatRepo provides data access to the chats table.  A chat row
// stores its lifecycle state flattened into status + flag columns;
// the repository rebuilds the model.ChatState variant when
// scanning and flattens it again when writing, so the rest of the
// application only ever sees well-formed variants.  All writes go
// through version-checked updates to support the optimistic
// concurrency discipline of the negotiation engine.
type ChatRepo struct {
	db *sql.DB
}

// NewChatRepo returns a new ChatRepo bound to the given database.
func NewChatRepo(db *sql.DB) *ChatRepo { return &ChatRepo{db: db} }

const chatColumns = `id, listing_id, participant_a, participant_b, status,
    is_active_trader, locked_in_a, locked_in_b, approved_a, approved_b,
    cancel_reason, version, created_at, updated_at`

// chatRow mirrors the flat column layout of the chats table.  It
// exists only as a scan target; FromRow converts it into a Chat
// with a proper state variant.
type chatRow struct {
	id             uint64
	listingID      uint64
	participantA   uint64
	participantB   uint64
	status         string
	isActiveTrader bool
	lockedA        bool
	lockedB        bool
	approvedA      bool
	approvedB      bool
	cancelReason   sql.NullString
	version        uint32
	createdAt      time.Time
	updatedAt      time.Time
}

func (cr *chatRow) toChat() (*model.Chat, error) {
	var state model.ChatState
	switch model.ChatStatus(cr.status) {
	case model.ChatActive:
		state = model.Active{
			IsActiveTrader:       cr.isActiveTrader,
			OwnerLockedIn:        cr.lockedA,
			CounterpartyLockedIn: cr.lockedB,
			OwnerApproved:        cr.approvedA,
			CounterpartyApproved: cr.approvedB,
		}
	case model.ChatOwnerTrading:
		state = model.Parked{}
	case model.ChatCompleted:
		state = model.Completed{At: cr.updatedAt}
	case model.ChatCancelled:
		state = model.Cancelled{Reason: cr.cancelReason.String, At: cr.updatedAt}
	default:
		return nil, errors.New("chats: unknown status " + cr.status)
	}
	return &model.Chat{
		ID:             cr.id,
		ListingID:      cr.listingID,
		OwnerID:        cr.participantA,
		CounterpartyID: cr.participantB,
		State:          state,
		Version:        cr.version,
		CreatedAt:      cr.createdAt,
		UpdatedAt:      cr.updatedAt,
	}, nil
}

// flatten decomposes a state variant into the column values stored
// in the chats table.  Non-active variants zero every flag so a
// parked or terminal row can never claim the active-trader slot.
func flatten(s model.ChatState) (status string, trader, la, lb, aa, ab bool, reason sql.NullString) {
	status = string(s.Status())
	switch v := s.(type) {
	case model.Active:
		trader = v.IsActiveTrader
		la, lb = v.OwnerLockedIn, v.CounterpartyLockedIn
		aa, ab = v.OwnerApproved, v.CounterpartyApproved
	case model.Cancelled:
		reason = sql.NullString{String: v.Reason, Valid: v.Reason != ""}
	}
	return
}

func scanChat(row interface{ Scan(...any) error }) (*model.Chat, error) {
	var cr chatRow
	err := row.Scan(&cr.id, &cr.listingID, &cr.participantA, &cr.participantB, &cr.status,
		&cr.isActiveTrader, &cr.lockedA, &cr.lockedB, &cr.approvedA, &cr.approvedB,
		&cr.cancelReason, &cr.version, &cr.createdAt, &cr.updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return cr.toChat()
}

func collectChats(rows *sql.Rows) ([]*model.Chat, error) {
	defer rows.Close()
	var out []*model.Chat
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetByIDTx fetches a single chat inside an existing transaction,
// returning ErrNotFound when absent.
func (r *ChatRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Chat, error) {
	return scanChat(tx.QueryRowContext(ctx, `SELECT `+chatColumns+` FROM chats WHERE id = ?`, id))
}

// GetByID fetches a single chat outside any transaction.  Used on
// read paths and to resolve a chat's listing id before entering
// the listing-scoped transaction.
func (r *ChatRepo) GetByID(ctx context.Context, id uint64) (*model.Chat, error) {
	return scanChat(r.db.QueryRowContext(ctx, `SELECT `+chatColumns+` FROM chats WHERE id = ?`, id))
}

// ListByListingTx returns every chat under a listing, oldest
// first, inside the provided transaction.  The coordinator
// iterates this set when demoting, reactivating or resolving.
func (r *ChatRepo) ListByListingTx(ctx context.Context, tx *sql.Tx, listingID uint64) ([]*model.Chat, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+chatColumns+` FROM chats WHERE listing_id = ? ORDER BY created_at ASC, id ASC`,
		listingID,
	)
	if err != nil {
		return nil, err
	}
	return collectChats(rows)
}

// GetByListingAndCounterpartyTx returns the chat a specific
// counterparty has under a listing, or ErrNotFound.  Enforces the
// one-chat-per-pair rule on expressInterest.
func (r *ChatRepo) GetByListingAndCounterpartyTx(ctx context.Context, tx *sql.Tx, listingID, counterpartyID uint64) (*model.Chat, error) {
	return scanChat(tx.QueryRowContext(ctx,
		`SELECT `+chatColumns+` FROM chats WHERE listing_id = ? AND participant_b = ?`,
		listingID, counterpartyID,
	))
}

// ListByOwner returns all chats under listings owned by the given
// user, ordered by listing then creation time.  Feeds the owned
// view of the query service.
func (r *ChatRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]*model.Chat, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+chatColumns+` FROM chats WHERE participant_a = ? ORDER BY listing_id ASC, created_at ASC, id ASC`,
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	return collectChats(rows)
}

// ListByCounterparty returns all chats where the given user is the
// interested party, newest first.  Feeds the incoming view.
func (r *ChatRepo) ListByCounterparty(ctx context.Context, counterpartyID uint64) ([]*model.Chat, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+chatColumns+` FROM chats WHERE participant_b = ? ORDER BY created_at DESC, id DESC`,
		counterpartyID,
	)
	if err != nil {
		return nil, err
	}
	return collectChats(rows)
}

// ActiveTraderTx returns the chat currently flagged as the
// listing's active trader, or nil when no trader is selected.  The
// schema's partial uniqueness (at most one is_active_trader row
// per listing) is maintained by the engine under the listing
// transaction; this query simply reads the pointer.
func (r *ChatRepo) ActiveTraderTx(ctx context.Context, tx *sql.Tx, listingID uint64) (*model.Chat, error) {
	c, err := scanChat(tx.QueryRowContext(ctx,
		`SELECT `+chatColumns+` FROM chats WHERE listing_id = ? AND is_active_trader = 1 AND status = ?`,
		listingID, model.ChatActive,
	))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return c, err
}

// CreateTx inserts a new chat within the provided transaction and
// populates the generated ID and timestamps on the model.
func (r *ChatRepo) CreateTx(ctx context.Context, tx *sql.Tx, c *model.Chat) error {
	status, trader, la, lb, aa, ab, reason := flatten(c.State)
	res, err := tx.ExecContext(ctx,
		`INSERT INTO chats (listing_id, participant_a, participant_b, status,
             is_active_trader, locked_in_a, locked_in_b, approved_a, approved_b, cancel_reason, version)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`,
		c.ListingID, c.OwnerID, c.CounterpartyID, status, trader, la, lb, aa, ab, reason,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	c.Version = 1
	// Query back timestamps so the caller sees what the database stored.
	const sel = `SELECT created_at, updated_at FROM chats WHERE id = ?`
	return tx.QueryRowContext(ctx, sel, c.ID).Scan(&c.CreatedAt, &c.UpdatedAt)
}

// UpdateStateTx writes a chat's state variant back to the table.
// The WHERE clause pins the version the caller read; when another
// writer got there first, zero rows match and ErrConflict is
// returned so the listing transaction can retry or surface the
// race.  On success the version on the model is incremented to
// match the row.
func (r *ChatRepo) UpdateStateTx(ctx context.Context, tx *sql.Tx, c *model.Chat) error {
	status, trader, la, lb, aa, ab, reason := flatten(c.State)
	res, err := tx.ExecContext(ctx,
		`UPDATE chats SET status = ?, is_active_trader = ?, locked_in_a = ?, locked_in_b = ?,
             approved_a = ?, approved_b = ?, cancel_reason = ?, version = version + 1,
             updated_at = UTC_TIMESTAMP()
         WHERE id = ? AND version = ?`,
		status, trader, la, lb, aa, ab, reason, c.ID, c.Version,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	c.Version++
	return nil
}
