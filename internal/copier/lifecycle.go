package copier

import (
	"context"
	"strings"

	"trade-copier-go/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SubmitResult reports the stored state of a submitted trade.
type SubmitResult struct {
	Trade   models.Trade
	Created bool
}

// Closure is a master's report that a position was closed.
type Closure struct {
	MasterAccountID int64
	ServerID        int64
	Ticket          *int64
	Symbol          string
	ClosePrice      float64
	CloseTime       models.Timestamp
	Profit          float64
}

// RiskUpdate carries new take-profit and stop-loss levels. Nil clears a level.
type RiskUpdate struct {
	MasterAccountID int64
	ServerID        int64
	TakeProfit      *float64
	StopLoss        *float64
}

// RecordOrUpdate stores a trade reported by a master. A trade whose ticket is
// already known for that master is overwritten in place, so retransmissions
// never create a second row. A closed trade is never reopened, and a closed
// resubmission with new closure values overwrites them like Close does.
func (s *Service) RecordOrUpdate(ctx context.Context, in models.Trade) (*SubmitResult, error) {
	if err := validateTrade(&in); err != nil {
		return nil, err
	}

	var result SubmitResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := models.NewTimestamp(s.now())

		var existing *models.Trade
		if in.Ticket != nil {
			var err error
			if existing, err = findByTicket(tx, in.MasterAccountID, *in.Ticket); err != nil {
				return err
			}
		}

		var id int64
		if existing == nil {
			row := newOpenTrade(in, now)
			if err := tx.Create(&row).Error; err != nil {
				return storageErr("insert trade", err)
			}
			id = row.ID
			result.Created = true
		} else {
			id = existing.ID
			if err := tx.Model(&models.Trade{}).Where("id = ?", id).Updates(mutableFields(in, now)).Error; err != nil {
				return storageErr("update trade", err)
			}
		}

		if in.IsClosed() && (existing == nil || closureChanged(existing, in)) {
			c := Closure{ClosePrice: *in.ClosePrice, CloseTime: in.CloseTime, Profit: *in.Profit}
			if err := applyClosure(tx, id, c, now); err != nil {
				return err
			}
		}

		return tx.First(&result.Trade, id).Error
	})
	if err != nil {
		return nil, storageErr("record trade", err)
	}

	s.logger.Debug("Recorded master trade",
		zap.Int64("id", result.Trade.ID),
		zap.Bool("created", result.Created),
		zap.String("status", string(result.Trade.Status)),
		zap.Int64("revision", result.Trade.Revision))
	return &result, nil
}

// Close marks a trade closed. Repeated closures overwrite the closure fields.
func (s *Service) Close(ctx context.Context, c Closure) (*models.Trade, error) {
	if c.ServerID <= 0 && c.Ticket == nil {
		return nil, invalidf("closure needs server_id or ticket")
	}
	if c.ClosePrice < 0 {
		return nil, invalidf("close_price must not be negative")
	}

	ref := TradeRef{MasterAccountID: c.MasterAccountID, ServerID: c.ServerID, Ticket: c.Ticket}
	log := s.logger.With(ref.fields()...)
	log.Info("Received trade closure", zap.Float64("close_price", c.ClosePrice), zap.Float64("profit", c.Profit))

	var trade models.Trade
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := s.resolve(tx, ref)
		if err != nil {
			return err
		}
		if c.Symbol != "" && !strings.EqualFold(c.Symbol, found.Symbol) {
			log.Warn("Closure symbol differs from stored trade",
				zap.String("closure_symbol", c.Symbol), zap.String("trade_symbol", found.Symbol))
		}
		if found.IsClosed() {
			log.Info("Trade already closed, overwriting closure", zap.Int64("id", found.ID))
		}

		now := models.NewTimestamp(s.now())
		if !c.CloseTime.Valid() {
			c.CloseTime = now
		}
		if err := applyClosure(tx, found.ID, c, now); err != nil {
			return err
		}
		return tx.First(&trade, found.ID).Error
	})
	if err != nil {
		return nil, storageErr("close trade", err)
	}

	log.Info("Trade closed", zap.Int64("id", trade.ID), zap.Int64("revision", trade.Revision))
	return &trade, nil
}

// UpdateTakeProfitStopLoss sets both risk levels on the trade with the given
// store id owned by the given master.
func (s *Service) UpdateTakeProfitStopLoss(ctx context.Context, u RiskUpdate) (*models.Trade, error) {
	if u.ServerID <= 0 {
		return nil, invalidf("server_id is required")
	}

	var trade models.Trade
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := models.NewTimestamp(s.now())
		res := tx.Model(&models.Trade{}).
			Where("id = ? AND master_account_id = ?", u.ServerID, u.MasterAccountID).
			Updates(map[string]any{
				"take_profit": u.TakeProfit,
				"stop_loss":   u.StopLoss,
				"revision":    gorm.Expr("revision + 1"),
				"updated_at":  now,
			})
		if res.Error != nil {
			return storageErr("update tp/sl", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrTradeNotFound
		}
		return tx.First(&trade, u.ServerID).Error
	})
	if err != nil {
		return nil, storageErr("update tp/sl", err)
	}

	s.logger.Debug("Updated TP/SL", zap.Int64("id", trade.ID), zap.Int64("revision", trade.Revision))
	return &trade, nil
}

// applyClosure moves the trade to closed and appends to the closure audit log.
func applyClosure(tx *gorm.DB, id int64, c Closure, now models.Timestamp) error {
	err := tx.Model(&models.Trade{}).Where("id = ?", id).Updates(map[string]any{
		"status":      models.StatusClosed,
		"close_price": c.ClosePrice,
		"close_time":  c.CloseTime,
		"profit":      c.Profit,
		"revision":    gorm.Expr("revision + 1"),
		"updated_at":  now,
	}).Error
	if err != nil {
		return storageErr("close trade", err)
	}

	audit := models.TradeClosure{
		MasterTradeID: id,
		ClosePrice:    c.ClosePrice,
		CloseTime:     c.CloseTime,
		Profit:        c.Profit,
		RecordedAt:    now,
	}
	if err := tx.Omit("MasterTrade").Create(&audit).Error; err != nil {
		return storageErr("append closure", err)
	}
	return nil
}

func validateTrade(t *models.Trade) error {
	t.Symbol = strings.TrimSpace(t.Symbol)
	t.TradeType = strings.ToLower(strings.TrimSpace(t.TradeType))
	switch {
	case t.MasterAccountID <= 0:
		return invalidf("master_account_id is required")
	case t.Symbol == "":
		return invalidf("symbol is required")
	case t.TradeType == "":
		return invalidf("trade_type is required")
	case t.Volume <= 0:
		return invalidf("volume must be positive")
	}

	if t.Status == "" {
		t.Status = models.StatusOpen
	}
	if !t.Status.Valid() {
		return invalidf("unknown status %q", t.Status)
	}
	if t.IsClosed() {
		if t.ClosePrice == nil || !t.CloseTime.Valid() {
			return invalidf("closed trade needs close_price and close_time")
		}
		if t.Profit == nil {
			zero := 0.0
			t.Profit = &zero
		}
	}
	return nil
}

// newOpenTrade builds the row inserted for a trade seen for the first time.
func newOpenTrade(in models.Trade, now models.Timestamp) models.Trade {
	openTime := in.OpenTime
	if !openTime.Valid() {
		openTime = now
	}
	return models.Trade{
		MasterAccountID: in.MasterAccountID,
		Ticket:          in.Ticket,
		MasterTicket:    in.MasterTicket,
		Symbol:          in.Symbol,
		TradeType:       in.TradeType,
		Volume:          in.Volume,
		OpenPrice:       in.OpenPrice,
		OpenTime:        openTime,
		Status:          models.StatusOpen,
		TakeProfit:      in.TakeProfit,
		StopLoss:        in.StopLoss,
		Expiration:      in.Expiration,
		Revision:        1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// closureChanged reports whether a closed submission differs from what is
// stored. An open row always counts as changed.
func closureChanged(existing *models.Trade, in models.Trade) bool {
	if !existing.IsClosed() {
		return true
	}
	return existing.ClosePrice == nil || *existing.ClosePrice != *in.ClosePrice ||
		existing.Profit == nil || *existing.Profit != *in.Profit ||
		existing.CloseTime.Storage() != in.CloseTime.Storage()
}

// mutableFields lists what a resubmission may overwrite. Status and the
// closure fields are not among them; closing goes through applyClosure.
func mutableFields(in models.Trade, now models.Timestamp) map[string]any {
	fields := map[string]any{
		"master_ticket": in.MasterTicket,
		"symbol":        in.Symbol,
		"trade_type":    in.TradeType,
		"volume":        in.Volume,
		"open_price":    in.OpenPrice,
		"take_profit":   in.TakeProfit,
		"stop_loss":     in.StopLoss,
		"expiration":    in.Expiration,
		"revision":      gorm.Expr("revision + 1"),
		"updated_at":    now,
	}
	if in.OpenTime.Valid() {
		fields["open_time"] = in.OpenTime
	}
	return fields
}
