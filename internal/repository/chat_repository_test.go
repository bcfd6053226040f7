package repository

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MarkWasfy00/ARC-raiders-guide-sub001/internal/model"
)

func TestChatRowRebuildsStateVariant(t *testing.T) {
	now := time.Now().UTC()

	cr := chatRow{
		id: 1, listingID: 2, participantA: 3, participantB: 4,
		status:         string(model.ChatActive),
		isActiveTrader: true, lockedA: true,
		version: 5, createdAt: now, updatedAt: now,
	}
	c, err := cr.toChat()
	require.NoError(t, err)
	state, ok := c.State.(model.Active)
	require.True(t, ok)
	assert.True(t, state.IsActiveTrader)
	assert.True(t, state.OwnerLockedIn)
	assert.False(t, state.CounterpartyLockedIn)

	cr.status = string(model.ChatOwnerTrading)
	c, err = cr.toChat()
	require.NoError(t, err)
	assert.IsType(t, model.Parked{}, c.State)

	cr.status = string(model.ChatCancelled)
	cr.cancelReason = sql.NullString{String: model.CancelReasonTradeResolved, Valid: true}
	c, err = cr.toChat()
	require.NoError(t, err)
	assert.Equal(t, model.CancelReasonTradeResolved, c.State.(model.Cancelled).Reason)

	cr.status = "BOGUS"
	_, err = cr.toChat()
	assert.Error(t, err)
}

func TestFlattenZeroesFlagsOnNonActiveVariants(t *testing.T) {
	status, trader, la, lb, aa, ab, reason := flatten(model.Parked{})
	assert.Equal(t, string(model.ChatOwnerTrading), status)
	assert.False(t, trader || la || lb || aa || ab)
	assert.False(t, reason.Valid)

	status, trader, _, _, _, _, reason = flatten(model.Cancelled{Reason: model.CancelReasonWithdrawn})
	assert.Equal(t, string(model.ChatCancelled), status)
	assert.False(t, trader)
	require.True(t, reason.Valid)
	assert.Equal(t, model.CancelReasonWithdrawn, reason.String)

	status, trader, la, lb, _, _, _ = flatten(model.Active{IsActiveTrader: true, OwnerLockedIn: true, CounterpartyLockedIn: true})
	assert.Equal(t, string(model.ChatActive), status)
	assert.True(t, trader && la && lb)
}
