package handler

import (
	"net/http" // HTTP status codes

	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/MarkWasfy00/ARC-raiders-guide-sub001/internal/negotiation" // query service
)

// MarketHandler exposes the two read views of the market: what the
// user owns (with interest grouped per listing) and where the user is
// the interested counterparty.
type MarketHandler struct {
	Views *negotiation.Views
}

// NewMarketHandler constructs a MarketHandler and panics on a nil
// query service.
func NewMarketHandler(views *negotiation.Views) *MarketHandler {
	if views == nil {
		panic("nil views passed to NewMarketHandler")
	}
	return &MarketHandler{Views: views}
}

// Owned handles GET /v1/market/owned: every listing the caller owns
// with its non-cancelled chats and the active-trader pointer.
func (h *MarketHandler) Owned(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	groups, err := h.Views.GetOwnedView(c.Request().Context(), userID)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"listings": groups})
}

// Incoming handles GET /v1/market/incoming: every chat where the
// caller is the counterparty, annotated with queue position hints.
func (h *MarketHandler) Incoming(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	chats, err := h.Views.GetIncomingView(c.Request().Context(), userID)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"chats": chats})
}
