package copier

import (
	"context"
	"time"

	"trade-copier-go/internal/models"
)

// TradeFilter narrows ListTrades.
type TradeFilter struct {
	MasterAccountID int64
	Status          models.TradeStatus
	Limit           int
}

// ListTrades returns a master's trades, most recently updated first.
func (s *Service) ListTrades(ctx context.Context, f TradeFilter) ([]models.Trade, error) {
	if f.MasterAccountID <= 0 {
		return nil, invalidf("master_account_id is required")
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, invalidf("unknown status %q", f.Status)
	}
	if f.Limit <= 0 || f.Limit > 1000 {
		f.Limit = 100
	}

	q := s.db.WithContext(ctx).Where("master_account_id = ?", f.MasterAccountID)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	trades := []models.Trade{}
	if err := q.Order("updated_at desc, id desc").Limit(f.Limit).Find(&trades).Error; err != nil {
		return nil, storageErr("list trades", err)
	}
	return trades, nil
}

// ListClosures returns the closure audit log of a trade, oldest first.
func (s *Service) ListClosures(ctx context.Context, tradeID int64) ([]models.TradeClosure, error) {
	closures := []models.TradeClosure{}
	err := s.db.WithContext(ctx).
		Where("master_trade_id = ?", tradeID).
		Order("id").
		Find(&closures).Error
	if err != nil {
		return nil, storageErr("list closures", err)
	}
	return closures, nil
}

// StatsDetail holds calculated statistics for a given period.
type StatsDetail struct {
	TotalTrades      int64   `json:"total_trades"`
	ProfitableTrades int64   `json:"profitable_trades"`
	WinRate          float64 `json:"win_rate"`
	TotalProfit      float64 `json:"total_profit"`
}

// Statistics summarizes a master's closed trades.
type Statistics struct {
	MasterAccountID int64       `json:"master_account_id"`
	OpenTrades      int64       `json:"open_trades"`
	Since24h        StatsDetail `json:"since_24h"`
	AllTime         StatsDetail `json:"all_time"`
}

// Statistics calculates closed-trade statistics for a master, all time and
// for trades closed in the last 24 hours.
func (s *Service) Statistics(ctx context.Context, masterAccountID int64) (*Statistics, error) {
	if masterAccountID <= 0 {
		return nil, invalidf("master_account_id is required")
	}

	db := s.db.WithContext(ctx)
	stats := Statistics{MasterAccountID: masterAccountID}
	err := db.Model(&models.Trade{}).
		Where("master_account_id = ? AND status = ?", masterAccountID, models.StatusOpen).
		Count(&stats.OpenTrades).Error
	if err != nil {
		return nil, storageErr("count open trades", err)
	}

	var closed []models.Trade
	err = db.Where("master_account_id = ? AND status = ?", masterAccountID, models.StatusClosed).Find(&closed).Error
	if err != nil {
		return nil, storageErr("load closed trades", err)
	}

	since24h := s.now().Add(-24 * time.Hour)
	for _, trade := range closed {
		profit := 0.0
		if trade.Profit != nil {
			profit = *trade.Profit
		}

		stats.AllTime.add(profit)
		if trade.CloseTime.After(since24h) {
			stats.Since24h.add(profit)
		}
	}
	stats.AllTime.finish()
	stats.Since24h.finish()

	return &stats, nil
}

func (d *StatsDetail) add(profit float64) {
	d.TotalTrades++
	if profit > 0 {
		d.ProfitableTrades++
	}
	d.TotalProfit += profit
}

func (d *StatsDetail) finish() {
	if d.TotalTrades > 0 {
		d.WinRate = float64(d.ProfitableTrades) / float64(d.TotalTrades)
	}
}
