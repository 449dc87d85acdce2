package copier

import (
	"context"
	"testing"

	"trade-copier-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestJournal_RecordAndRead(t *testing.T) {
	svc, db, clock := setupTest(t)
	ctx := context.Background()

	res, err := svc.RecordOrUpdate(ctx, sampleTrade(1, 555))
	require.NoError(t, err)

	_, ok, err := svc.LastDeliveredStatus(ctx, res.Trade.ID, 9)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, svc.RecordDelivery(ctx, Delivery{TradeID: res.Trade.ID, SlaveAccountID: 9, Status: models.StatusOpen, Revision: 1}))
	status, ok, err := svc.LastDeliveredStatus(ctx, res.Trade.ID, 9)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, models.StatusOpen, status)

	var entry models.SlaveTrade
	require.NoError(t, db.First(&entry, "master_trade_id = ? AND slave_account_id = ?", res.Trade.ID, 9).Error)
	assert.True(t, entry.UpdatedAt.Equal(clock.Now()))
}

func TestJournal_StatusNeverRegresses(t *testing.T) {
	svc, db, _ := setupTest(t)
	ctx := context.Background()

	res, err := svc.RecordOrUpdate(ctx, sampleTrade(1, 555))
	require.NoError(t, err)

	require.NoError(t, svc.RecordDelivery(ctx, Delivery{TradeID: res.Trade.ID, SlaveAccountID: 9, Status: models.StatusClosed, Revision: 3}))
	require.NoError(t, svc.RecordDelivery(ctx, Delivery{TradeID: res.Trade.ID, SlaveAccountID: 9, Status: models.StatusOpen, Revision: 2}))

	var entries []models.SlaveTrade
	require.NoError(t, db.Where("master_trade_id = ?", res.Trade.ID).Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, models.StatusClosed, entries[0].Status)
	assert.Equal(t, int64(3), entries[0].Revision)
}

func TestJournal_RejectsUnknownStatusAndTrade(t *testing.T) {
	svc, _, _ := setupTest(t)
	ctx := context.Background()

	err := svc.RecordDelivery(ctx, Delivery{TradeID: 1, SlaveAccountID: 9, Status: "pending"})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	// Foreign key: a delivery needs an existing trade.
	err = svc.RecordDelivery(ctx, Delivery{TradeID: 404, SlaveAccountID: 9, Status: models.StatusOpen})
	var se *StorageError
	assert.ErrorAs(t, err, &se)
}

func TestJournal_NoEntriesWithoutDelivery(t *testing.T) {
	svc, db, _ := setupTest(t)
	ctx := context.Background()

	_, err := svc.RecordOrUpdate(ctx, sampleTrade(1, 555))
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Session(&gorm.Session{}).Model(&models.SlaveTrade{}).Count(&count).Error)
	assert.Zero(t, count)
}
