package copier

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	svc, _, _ := setupTest(t)
	ctx := context.Background()

	first, err := svc.RecordOrUpdate(ctx, sampleTrade(1, 555))
	require.NoError(t, err)
	second, err := svc.RecordOrUpdate(ctx, sampleTrade(1, 556))
	require.NoError(t, err)

	testCases := []struct {
		name    string
		ref     TradeRef
		wantID  int64
		wantErr error
	}{
		{
			name:   "ServerIDWins",
			ref:    TradeRef{MasterAccountID: 1, ServerID: first.Trade.ID, Ticket: ptr(int64(556))},
			wantID: first.Trade.ID,
		},
		{
			name:   "TicketFallback",
			ref:    TradeRef{MasterAccountID: 1, ServerID: 12345, Ticket: ptr(int64(556))},
			wantID: second.Trade.ID,
		},
		{
			name:   "TicketOnly",
			ref:    TradeRef{MasterAccountID: 1, Ticket: ptr(int64(555))},
			wantID: first.Trade.ID,
		},
		{
			name:    "BothMiss",
			ref:     TradeRef{MasterAccountID: 1, ServerID: 12345, Ticket: ptr(int64(999))},
			wantErr: ErrTradeNotFound,
		},
		{
			name:    "ServerIDOfOtherMaster",
			ref:     TradeRef{MasterAccountID: 2, ServerID: first.Trade.ID},
			wantErr: ErrTradeNotFound,
		},
		{
			name:    "NoReference",
			ref:     TradeRef{MasterAccountID: 1},
			wantErr: ErrTradeNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			trade, err := svc.Resolve(ctx, tc.ref)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Nil(t, trade)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantID, trade.ID)
		})
	}
}
