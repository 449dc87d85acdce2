package copier

import (
	"context"
	"errors"

	"trade-copier-go/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Delivery is one journal write: trade TradeID was sent to SlaveAccountID
// in the given status and revision.
type Delivery struct {
	TradeID        int64
	SlaveAccountID int64
	Status         models.TradeStatus
	Revision       int64
}

// LastDeliveredStatus returns the status last delivered for the pair, and
// false when the trade was never delivered to the slave.
func (s *Service) LastDeliveredStatus(ctx context.Context, tradeID, slaveAccountID int64) (models.TradeStatus, bool, error) {
	entry, err := lastDelivery(s.db.WithContext(ctx), tradeID, slaveAccountID)
	if err != nil {
		return "", false, err
	}
	if entry == nil {
		return "", false, nil
	}
	return entry.Status, true, nil
}

// RecordDelivery inserts or refreshes the journal entry for the pair.
func (s *Service) RecordDelivery(ctx context.Context, d Delivery) error {
	if !d.Status.Valid() {
		return invalidf("unknown status %q", d.Status)
	}
	now := models.NewTimestamp(s.now())
	return recordDeliveries(s.db.WithContext(ctx), []Delivery{d}, now)
}

func lastDelivery(tx *gorm.DB, tradeID, slaveAccountID int64) (*models.SlaveTrade, error) {
	var entry models.SlaveTrade
	err := tx.Where("master_trade_id = ? AND slave_account_id = ?", tradeID, slaveAccountID).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("read delivery journal", err)
	}
	return &entry, nil
}

// recordDeliveries upserts journal entries in one statement. A closed entry
// stays closed and the stored revision only moves forward.
func recordDeliveries(tx *gorm.DB, deliveries []Delivery, now models.Timestamp) error {
	if len(deliveries) == 0 {
		return nil
	}
	rows := make([]models.SlaveTrade, 0, len(deliveries))
	for _, d := range deliveries {
		rows = append(rows, models.SlaveTrade{
			MasterTradeID:  d.TradeID,
			SlaveAccountID: d.SlaveAccountID,
			Status:         d.Status,
			Revision:       d.Revision,
			UpdatedAt:      now,
		})
	}

	err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "master_trade_id"}, {Name: "slave_account_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"status":     gorm.Expr("CASE WHEN slave_trades.status = ? THEN slave_trades.status ELSE excluded.status END", models.StatusClosed),
			"revision":   gorm.Expr("MAX(slave_trades.revision, excluded.revision)"),
			"updated_at": gorm.Expr("excluded.updated_at"),
		}),
	}).Create(&rows).Error
	if err != nil {
		return storageErr("record delivery", err)
	}
	return nil
}
