// Package copier relays master-account trades to slave accounts.
//
// Master clients report trades through the lifecycle operations
// (RecordOrUpdate, Close, UpdateTakeProfitStopLoss). Slave clients call Sync,
// which returns every trade of the master that the slave has not yet seen in
// its current state and records the delivery in the slave_trades journal.
package copier

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultRecencyWindow is the look-back used when none is configured.
const DefaultRecencyWindow = 5 * time.Minute

// Service applies trade lifecycle writes and computes slave deliveries.
// Every operation runs in a single transaction on the given handle.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
	window time.Duration
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithRecencyWindow limits Sync to trades updated within d. Zero disables the limit.
func WithRecencyWindow(d time.Duration) Option {
	return func(s *Service) { s.window = d }
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a copier service on db.
func NewService(db *gorm.DB, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		db:     db,
		logger: logger.Named("copier"),
		window: DefaultRecencyWindow,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecencyWindow returns the configured sync look-back.
func (s *Service) RecencyWindow() time.Duration { return s.window }
