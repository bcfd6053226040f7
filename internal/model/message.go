package model

import "time"

// Message is a single chat transcript entry as stored in the
// `messages` table.  Messages are immutable once created; the
// transcript order is defined by creation time (and id as a
// tiebreaker for same-instant inserts).
//
// Fields:
//  ID        – primary key identifier.
//  ChatID    – chat this message belongs to.
//  SenderID  – participant who sent the message.
//  Content   – message body.
//  CreatedAt – timestamp of creation.
type Message struct {
	ID        uint64    // messages.id
	ChatID    uint64    // messages.chat_id
	SenderID  uint64    // messages.sender_id
	Content   string    // messages.content
	CreatedAt time.Time // messages.created_at
}
