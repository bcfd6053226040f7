package handler

import (
	"net/http" // HTTP status codes
	"time"     // response timestamps

	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/MarkWasfy00/ARC-raiders-guide-sub001/internal/model"       // domain models
	"github.com/MarkWasfy00/ARC-raiders-guide-sub001/internal/negotiation" // negotiation engine and query service
)

// ChatHandler exposes the per-chat negotiation endpoints: locking in
// terms, giving final approval, cancelling, and the message
// transcript.  Authorization (participant vs outsider, active trader
// vs parked) is enforced inside the engine; the handler only maps
// outcomes to HTTP.
type ChatHandler struct {
	Engine *negotiation.Engine
	Views  *negotiation.Views
}

// NewChatHandler constructs a ChatHandler and panics if any
// dependency is nil.
func NewChatHandler(engine *negotiation.Engine, views *negotiation.Views) *ChatHandler {
	if engine == nil || views == nil {
		panic("nil dependency passed to NewChatHandler")
	}
	return &ChatHandler{Engine: engine, Views: views}
}

// chatResp is the mutation response: the chat as it stands after the
// action, flags flattened out of the state variant.
type chatResp struct {
	ChatID               uint64           `json:"chat_id"`
	ListingID            uint64           `json:"listing_id"`
	OwnerID              uint64           `json:"owner_id"`
	CounterpartyID       uint64           `json:"counterparty_id"`
	Status               model.ChatStatus `json:"status"`
	IsActiveTrader       bool             `json:"is_active_trader"`
	OwnerLockedIn        bool             `json:"owner_locked_in"`
	CounterpartyLockedIn bool             `json:"counterparty_locked_in"`
	OwnerApproved        bool             `json:"owner_approved"`
	CounterpartyApproved bool             `json:"counterparty_approved"`
}

func toChatResp(ch *model.Chat) chatResp {
	r := chatResp{
		ChatID:         ch.ID,
		ListingID:      ch.ListingID,
		OwnerID:        ch.OwnerID,
		CounterpartyID: ch.CounterpartyID,
		Status:         ch.State.Status(),
	}
	if a, ok := ch.State.(model.Active); ok {
		r.IsActiveTrader = a.IsActiveTrader
		r.OwnerLockedIn = a.OwnerLockedIn
		r.CounterpartyLockedIn = a.CounterpartyLockedIn
		r.OwnerApproved = a.OwnerApproved
		r.CounterpartyApproved = a.CounterpartyApproved
	}
	return r
}

// LockIn handles POST /v1/chats/:id/lock.  Either participant of the
// active-trader chat may lock in the negotiated terms.
func (h *ChatHandler) LockIn(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	chatID, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid chat id"})
	}
	ch, err := h.Engine.LockIn(c.Request().Context(), chatID, userID)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, toChatResp(ch))
}

// Approve handles POST /v1/chats/:id/approve.  Approvals are only
// accepted once both sides have locked in; the second approval
// completes the trade, marks the listing SOLD and cancels every
// sibling chat.
func (h *ChatHandler) Approve(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	chatID, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid chat id"})
	}
	ch, err := h.Engine.Approve(c.Request().Context(), chatID, userID)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, toChatResp(ch))
}

// Cancel handles DELETE /v1/chats/:id.  Either participant may
// withdraw; cancelling the active-trader chat reactivates the parked
// queue without promoting anyone.
func (h *ChatHandler) Cancel(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	chatID, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid chat id"})
	}
	if err := h.Engine.Cancel(c.Request().Context(), chatID, userID); err != nil {
		return domainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type sendMessageReq struct {
	Content string `json:"content"`
}

type messageResp struct {
	ID        uint64    `json:"id"`
	ChatID    uint64    `json:"chat_id"`
	SenderID  uint64    `json:"sender_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// SendMessage handles POST /v1/chats/:id/messages.  Messages flow in
// any live chat, parked ones included, so queued counterparties can
// keep talking while they wait.
func (h *ChatHandler) SendMessage(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	chatID, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid chat id"})
	}
	var req sendMessageReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	msg, err := h.Engine.SendMessage(c.Request().Context(), chatID, userID, req.Content)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusCreated, messageResp{
		ID: msg.ID, ChatID: msg.ChatID, SenderID: msg.SenderID,
		Content: msg.Content, CreatedAt: msg.CreatedAt,
	})
}

// Transcript handles GET /v1/chats/:id/messages.  Only the two
// participants may read the history.
func (h *ChatHandler) Transcript(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	chatID, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid chat id"})
	}
	msgs, err := h.Views.GetTranscript(c.Request().Context(), chatID, userID)
	if err != nil {
		return domainError(c, err)
	}
	out := make([]messageResp, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageResp{
			ID: m.ID, ChatID: m.ChatID, SenderID: m.SenderID,
			Content: m.Content, CreatedAt: m.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"messages": out})
}
