package copier

import (
	"context"

	"trade-copier-go/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// dueCondition selects trades the slave has not seen in their current state:
// never delivered, closed since it was delivered open, or changed since.
const dueCondition = `(st.master_trade_id IS NULL
	OR (st.status = ? AND master_trades.status = ?)
	OR st.revision < master_trades.revision
	OR st.updated_at < master_trades.updated_at)`

// Sync returns the master's trades that are due for the slave and marks them
// delivered. The read and the journal write share one transaction.
func (s *Service) Sync(ctx context.Context, slaveAccountID, masterAccountID int64) ([]models.Trade, error) {
	if slaveAccountID <= 0 || masterAccountID <= 0 {
		return nil, invalidf("slave_account_id and master_account_id are required")
	}

	trades := []models.Trade{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.now()

		q := tx.Model(&models.Trade{}).
			Select("master_trades.*").
			Joins("LEFT JOIN slave_trades AS st ON st.master_trade_id = master_trades.id AND st.slave_account_id = ?", slaveAccountID).
			Where("master_trades.master_account_id = ?", masterAccountID).
			Where(dueCondition, models.StatusOpen, models.StatusClosed)
		if s.window > 0 {
			cutoff := models.NewTimestamp(now.Add(-s.window))
			q = q.Where("master_trades.updated_at >= ?", cutoff.Storage())
		}
		if err := q.Order("master_trades.id").Find(&trades).Error; err != nil {
			return storageErr("select due trades", err)
		}

		deliveries := make([]Delivery, 0, len(trades))
		for _, t := range trades {
			deliveries = append(deliveries, Delivery{
				TradeID:        t.ID,
				SlaveAccountID: slaveAccountID,
				Status:         t.Status,
				Revision:       t.Revision,
			})
		}
		return recordDeliveries(tx, deliveries, models.NewTimestamp(now))
	})
	if err != nil {
		return nil, storageErr("sync", err)
	}

	if len(trades) > 0 {
		s.logger.Debug("Delivered trades to slave",
			zap.Int64("slave_account_id", slaveAccountID),
			zap.Int64("master_account_id", masterAccountID),
			zap.Int("count", len(trades)))
	}
	return trades, nil
}
