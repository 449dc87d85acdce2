package copier

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"trade-copier-go/internal/config"
	"trade-copier-go/internal/database"
	"trade-copier-go/internal/models"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// testClock is a settable clock shared by the service under test.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// setupTest creates a service on a fresh in-memory database.
func setupTest(t *testing.T, opts ...Option) (*Service, *gorm.DB, *testClock) {
	t.Helper()
	// One connection: every in-memory connection would otherwise be a separate database.
	db, err := database.NewDatabase(config.Database{DSN: "file::memory:", MaxOpenConns: 1, MaxIdleConns: 1}, zap.NewNop())
	require.NoError(t, err)

	clock := &testClock{t: time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)}
	svc := NewService(db, zap.NewNop(), append([]Option{WithClock(clock.Now)}, opts...)...)
	return svc, db, clock
}

// setupFileTest creates a service on a file database with a connection pool,
// so concurrent calls really run on separate connections.
func setupFileTest(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db, err := database.NewDatabase(config.Database{
		DSN:           filepath.Join(t.TempDir(), "copier.db"),
		MaxOpenConns:  4,
		MaxIdleConns:  4,
		BusyTimeoutMs: 5000,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	clock := &testClock{t: time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)}
	return NewService(db, zap.NewNop(), WithClock(clock.Now)), db
}

func ptr[T any](v T) *T { return &v }

func sampleTrade(master, ticket int64) models.Trade {
	return models.Trade{
		MasterAccountID: master,
		Ticket:          ptr(ticket),
		Symbol:          "EURUSD",
		TradeType:       "buy",
		Volume:          1.0,
		OpenPrice:       1.1000,
		OpenTime:        models.NewTimestamp(time.Date(2024, 6, 3, 11, 59, 0, 0, time.UTC)),
		Status:          models.StatusOpen,
	}
}

func ids(trades []models.Trade) []int64 {
	out := make([]int64, 0, len(trades))
	for _, t := range trades {
		out = append(out, t.ID)
	}
	return out
}
