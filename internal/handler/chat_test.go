package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MarkWasfy00/ARC-raiders-guide-sub001/internal/model"
	"github.com/MarkWasfy00/ARC-raiders-guide-sub001/internal/negotiation"
	"github.com/MarkWasfy00/ARC-raiders-guide-sub001/internal/store"
)

type testEnv struct {
	store  *store.MemoryStore
	engine *negotiation.Engine
	chats  *ChatHandler
	market *MarketHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st := store.NewMemoryStore()
	eng := negotiation.NewEngine(st, nil)
	views := negotiation.NewViews(st)
	return &testEnv{
		store:  st,
		engine: eng,
		chats:  NewChatHandler(eng, views),
		market: NewMarketHandler(views),
	}
}

func (env *testEnv) seed(t *testing.T) (listingID, chatID uint64) {
	t.Helper()
	l := env.store.PutListing(&model.Listing{
		OwnerID: 1, ItemRef: "scrap", Quantity: 1,
		Direction: model.DirectionOffer, Status: model.ListingActive,
	})
	id, err := env.engine.ExpressInterest(context.Background(), l.ID, 2)
	require.NoError(t, err)
	return l.ID, id
}

// call builds an echo context for a chat route and invokes the handler.
func call(t *testing.T, userID, chatID uint64, body string, fn echo.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", userID)
	c.SetParamNames("id")
	c.SetParamValues(strconv.FormatUint(chatID, 10))
	require.NoError(t, fn(c))
	return rec
}

func TestLockInReturnsChatView(t *testing.T) {
	env := newTestEnv(t)
	_, chatID := env.seed(t)

	rec := call(t, 1, chatID, "", env.chats.LockIn)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		ChatID        uint64 `json:"chat_id"`
		Status        string `json:"status"`
		OwnerLockedIn bool   `json:"owner_locked_in"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, chatID, resp.ChatID)
	assert.Equal(t, "ACTIVE", resp.Status)
	assert.True(t, resp.OwnerLockedIn)
}

func TestErrorTaxonomyMapsToStatusCodes(t *testing.T) {
	env := newTestEnv(t)
	_, chatID := env.seed(t)

	// Outsider → 403.
	rec := call(t, 42, chatID, "", env.chats.LockIn)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Approve before locks → 422.
	rec = call(t, 1, chatID, "", env.chats.Approve)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// Unknown chat → 404.
	rec = call(t, 1, 9999, "", env.chats.LockIn)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Cancelled chat rejects messages → 422.
	require.NoError(t, env.engine.Cancel(context.Background(), chatID, 2))
	rec = call(t, 1, chatID, `{"content":"hello"}`, env.chats.SendMessage)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSendMessageAndTranscript(t *testing.T) {
	env := newTestEnv(t)
	_, chatID := env.seed(t)

	rec := call(t, 2, chatID, `{"content":"is this still available?"}`, env.chats.SendMessage)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = call(t, 1, chatID, "", env.chats.Transcript)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Messages []struct {
			SenderID uint64 `json:"sender_id"`
			Content  string `json:"content"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, uint64(2), resp.Messages[0].SenderID)
	assert.Equal(t, "is this still available?", resp.Messages[0].Content)

	// Non-participant cannot read the transcript.
	rec = call(t, 42, chatID, "", env.chats.Transcript)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestOwnedViewEndpoint(t *testing.T) {
	env := newTestEnv(t)
	listingID, chatID := env.seed(t)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/market/owned", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", uint64(1))
	require.NoError(t, env.market.Owned(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Listings []struct {
			ListingID          uint64 `json:"listing_id"`
			HasActiveTrader    bool   `json:"has_active_trader"`
			ActiveTraderChatID uint64 `json:"active_trader_chat_id"`
		} `json:"listings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Listings, 1)
	assert.Equal(t, listingID, resp.Listings[0].ListingID)
	assert.True(t, resp.Listings[0].HasActiveTrader)
	assert.Equal(t, chatID, resp.Listings[0].ActiveTraderChatID)
}
