package copier

import (
	"context"
	"errors"
	"fmt"

	"trade-copier-go/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TradeRef is how client messages point at a trade: the store id the relay
// handed out, the broker ticket, or both.
type TradeRef struct {
	MasterAccountID int64
	ServerID        int64
	Ticket          *int64
}

func (r TradeRef) fields() []zap.Field {
	fields := []zap.Field{zap.Int64("master_account_id", r.MasterAccountID), zap.Int64("server_id", r.ServerID)}
	if r.Ticket != nil {
		fields = append(fields, zap.Int64("ticket", *r.Ticket))
	}
	return fields
}

// Resolve finds the trade a closure or update message refers to.
func (s *Service) Resolve(ctx context.Context, ref TradeRef) (*models.Trade, error) {
	var trade *models.Trade
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		trade, err = s.resolve(tx, ref)
		return err
	})
	if err != nil {
		return nil, storageErr("resolve trade", err)
	}
	return trade, nil
}

// resolve looks the trade up by store id first and by ticket second.
// The ticket is only a fallback for clients that never learned the store id.
func (s *Service) resolve(tx *gorm.DB, ref TradeRef) (*models.Trade, error) {
	if ref.ServerID > 0 {
		trade, err := findByID(tx, ref.MasterAccountID, ref.ServerID)
		if err != nil {
			return nil, err
		}
		if trade != nil {
			return trade, nil
		}
		if ref.Ticket != nil {
			s.logger.Warn("Trade not found by server id, trying ticket", ref.fields()...)
		}
	}

	if ref.Ticket != nil {
		trade, err := findByTicket(tx, ref.MasterAccountID, *ref.Ticket)
		if err != nil {
			return nil, err
		}
		if trade != nil {
			return trade, nil
		}
	}

	s.logger.Warn("Trade not found", ref.fields()...)
	return nil, fmt.Errorf("%w: server_id=%d ticket=%s", ErrTradeNotFound, ref.ServerID, ticketString(ref.Ticket))
}

func findByID(tx *gorm.DB, masterAccountID, id int64) (*models.Trade, error) {
	var trade models.Trade
	err := tx.Where("id = ? AND master_account_id = ?", id, masterAccountID).First(&trade).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("find trade by id", err)
	}
	return &trade, nil
}

func findByTicket(tx *gorm.DB, masterAccountID, ticket int64) (*models.Trade, error) {
	var trade models.Trade
	err := tx.Where("master_account_id = ? AND ticket = ?", masterAccountID, ticket).First(&trade).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("find trade by ticket", err)
	}
	return &trade, nil
}

func ticketString(ticket *int64) string {
	if ticket == nil {
		return "none"
	}
	return fmt.Sprintf("%d", *ticket)
}
