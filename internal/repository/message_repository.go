package repository

import (
	"context"
	"database/sql"

	"github.com/MarkWasfy00/ARC-raiders-guide-sub001/internal/model"
)

// MessageRepo provides data access to the messages table.
// Messages are append-only: there is no update or delete.  The
// transcript order is creation time with id as a tiebreaker, which
// matches the auto-increment insert order.
type MessageRepo struct {
	db *sql.DB
}

// NewMessageRepo returns a new MessageRepo bound to the given database.
func NewMessageRepo(db *sql.DB) *MessageRepo { return &MessageRepo{db: db} }

// CreateTx appends a message within the provided transaction and
// populates the generated ID and creation timestamp.
func (r *MessageRepo) CreateTx(ctx context.Context, tx *sql.Tx, m *model.Message) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO messages (chat_id, sender_id, content) VALUES (?, ?, ?)`,
		m.ChatID, m.SenderID, m.Content,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	const sel = `SELECT created_at FROM messages WHERE id = ?`
	return tx.QueryRowContext(ctx, sel, m.ID).Scan(&m.CreatedAt)
}

// ListByChat returns the complete transcript of a chat in
// chronological order.  Permission checks (participants only) are
// the caller's responsibility.
func (r *MessageRepo) ListByChat(ctx context.Context, chatID uint64) ([]*model.Message, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, chat_id, sender_id, content, created_at
         FROM messages WHERE chat_id = ? ORDER BY created_at ASC, id ASC`,
		chatID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}
