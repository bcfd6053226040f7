package handler

import (
	"net/http" // HTTP status codes
	"strings"  // input normalization

	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/MarkWasfy00/ARC-raiders-guide-sub001/internal/model"       // domain models
	"github.com/MarkWasfy00/ARC-raiders-guide-sub001/internal/negotiation" // negotiation engine
	"github.com/MarkWasfy00/ARC-raiders-guide-sub001/internal/repository"  // listing persistence
)

// ListingHandler exposes listing lifecycle endpoints: creating a
// listing, registering interest in one, selecting the trader to
// negotiate with, and withdrawing the listing from the market.
// Everything past creation routes through the negotiation engine so
// the per-listing serialization and event fan-out apply uniformly.
type ListingHandler struct {
	Listings *repository.ListingRepo
	Engine   *negotiation.Engine
}

// NewListingHandler constructs a ListingHandler and panics if any
// dependency is nil.
func NewListingHandler(listings *repository.ListingRepo, engine *negotiation.Engine) *ListingHandler {
	if listings == nil || engine == nil {
		panic("nil dependency passed to NewListingHandler")
	}
	return &ListingHandler{Listings: listings, Engine: engine}
}

type createListingReq struct {
	ItemRef   string `json:"item_ref"`
	Quantity  uint32 `json:"quantity"`
	Direction string `json:"direction"` // OFFER | WANT
}

type listingResp struct {
	ID        uint64               `json:"id"`
	OwnerID   uint64               `json:"owner_id"`
	ItemRef   string               `json:"item_ref"`
	Quantity  uint32               `json:"quantity"`
	Direction model.TradeDirection `json:"direction"`
	Status    model.ListingStatus  `json:"status"`
}

// Create handles POST /v1/listings.  The authenticated user becomes
// the owner; new listings always start ACTIVE.
func (h *ListingHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createListingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.ItemRef = strings.TrimSpace(req.ItemRef)
	if req.ItemRef == "" || req.Quantity == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "item_ref and quantity required"})
	}
	dir := model.TradeDirection(strings.ToUpper(strings.TrimSpace(req.Direction)))
	if dir != model.DirectionOffer && dir != model.DirectionWant {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "direction must be OFFER or WANT"})
	}

	l := &model.Listing{
		OwnerID:   userID,
		ItemRef:   req.ItemRef,
		Quantity:  req.Quantity,
		Direction: dir,
		Status:    model.ListingActive,
	}
	if err := h.Listings.Create(c.Request().Context(), l); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create listing failed"})
	}
	return c.JSON(http.StatusCreated, listingResp{
		ID: l.ID, OwnerID: l.OwnerID, ItemRef: l.ItemRef,
		Quantity: l.Quantity, Direction: l.Direction, Status: l.Status,
	})
}

// ExpressInterest handles POST /v1/listings/:id/interest.  It opens a
// chat between the caller and the listing owner, returning the chat
// id.  The first interest on a quiet listing is auto-selected as the
// active trader; later ones queue behind it.
func (h *ListingHandler) ExpressInterest(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	listingID, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid listing id"})
	}
	chatID, err := h.Engine.ExpressInterest(c.Request().Context(), listingID, userID)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"chat_id": chatID})
}

type selectTraderReq struct {
	ChatID uint64 `json:"chat_id"`
}

// SelectTrader handles POST /v1/listings/:id/trader.  Only the owner
// may call it; the chosen chat becomes the single active negotiation
// and every other live chat is parked.
func (h *ListingHandler) SelectTrader(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	listingID, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid listing id"})
	}
	var req selectTraderReq
	if err := c.Bind(&req); err != nil || req.ChatID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "chat_id required"})
	}
	if err := h.Engine.SelectTrader(c.Request().Context(), listingID, req.ChatID, userID); err != nil {
		return domainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Close handles POST /v1/listings/:id/close.  The owner withdraws the
// listing from the market; every live chat under it is cancelled.
func (h *ListingHandler) Close(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	listingID, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid listing id"})
	}
	if err := h.Engine.CloseListing(c.Request().Context(), listingID, userID); err != nil {
		return domainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
