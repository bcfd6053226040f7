package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/MarkWasfy00/ARC-raiders-guide-sub001/internal/model"
)

// ListingRepo provides data access to the listings table.  The
// negotiation engine consumes listings read-only except for the
// status transitions ACTIVE -> SOLD and ACTIVE -> CLOSED; listing
// creation and editing belong to the CRUD layer and are not
// exposed here beyond what tests and seeding need.  All timestamp
// fields are assumed to be stored in UTC.
type ListingRepo struct {
	db *sql.DB
}

// NewListingRepo returns a new ListingRepo bound to the given database.
func NewListingRepo(db *sql.DB) *ListingRepo { return &ListingRepo{db: db} }

// DB exposes the underlying handle so callers can begin
// transactions spanning multiple repositories.
func (r *ListingRepo) DB() *sql.DB { return r.db }

const listingColumns = `id, owner_id, item_ref, quantity, direction, status, created_at, updated_at`

func scanListing(row interface{ Scan(...any) error }) (*model.Listing, error) {
	var l model.Listing
	err := row.Scan(&l.ID, &l.OwnerID, &l.ItemRef, &l.Quantity, &l.Direction, &l.Status, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &l, nil
}

// GetByIDTx fetches a listing inside an existing transaction.  It
// returns ErrNotFound when no row exists.  Callers that are about
// to mutate chats under the listing should use this inside the
// listing-scoped transaction so the read and the writes observe a
// consistent snapshot.
func (r *ListingRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Listing, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = ?`, id)
	return scanListing(row)
}

// GetByID fetches a listing outside any transaction.  Used by the
// read paths (query service, transcript permission checks) where
// no listing lock is required.
func (r *ListingRepo) GetByID(ctx context.Context, id uint64) (*model.Listing, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = ?`, id)
	return scanListing(row)
}

// ListByOwner returns every listing owned by the given user,
// newest first.  Terminal listings are included so the owned view
// can show recently sold or closed entries; the query service
// decides what to surface.
func (r *ListingRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]*model.Listing, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+listingColumns+` FROM listings WHERE owner_id = ? ORDER BY created_at DESC, id DESC`,
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// UpdateStatusTx transitions a listing's status within the
// provided transaction.  The WHERE clause pins the expected
// current status so a double resolution (e.g. two completions
// racing) surfaces as ErrConflict instead of silently overwriting
// a terminal state.
func (r *ListingRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, from, to model.ListingStatus) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE listings SET status = ?, updated_at = UTC_TIMESTAMP() WHERE id = ? AND status = ?`,
		to, id, from,
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
	return nil
}

// Create inserts a new listing and populates the generated ID.
// The negotiation engine never calls this; it exists for the CRUD
// layer and for test fixtures.
func (r *ListingRepo) Create(ctx context.Context, l *model.Listing) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO listings (owner_id, item_ref, quantity, direction, status) VALUES (?, ?, ?, ?, ?)`,
		l.OwnerID, l.ItemRef, l.Quantity, l.Direction, l.Status,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = uint64(id)
	return nil
}
