package models

// TradeStatus is the lifecycle state of a master trade.
type TradeStatus string

const (
	StatusOpen   TradeStatus = "open"
	StatusClosed TradeStatus = "closed"
)

// Valid reports whether s is a known status.
func (s TradeStatus) Valid() bool {
	return s == StatusOpen || s == StatusClosed
}

// Trade is a position reported by a master account.
// Closure fields are set if and only if Status is closed.
type Trade struct {
	ID              int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	MasterAccountID int64       `gorm:"not null;index;uniqueIndex:idx_master_ticket,priority:1" json:"master_account_id"`
	Ticket          *int64      `gorm:"uniqueIndex:idx_master_ticket,priority:2" json:"ticket"`
	MasterTicket    *int64      `json:"master_ticket"`
	Symbol          string      `gorm:"not null" json:"symbol"`
	TradeType       string      `gorm:"not null" json:"trade_type"`
	Volume          float64     `gorm:"not null" json:"volume"`
	OpenPrice       float64     `gorm:"not null" json:"open_price"`
	OpenTime        Timestamp   `gorm:"type:text" json:"open_time"`
	ClosePrice      *float64    `json:"close_price"`
	CloseTime       Timestamp   `gorm:"type:text" json:"close_time"`
	Profit          *float64    `json:"profit"`
	Status          TradeStatus `gorm:"type:text;not null;default:open;index" json:"status"`
	TakeProfit      *float64    `json:"take_profit"`
	StopLoss        *float64    `json:"stop_loss"`
	Expiration      Timestamp   `gorm:"type:text" json:"expiration"`
	Revision        int64       `gorm:"not null;default:1" json:"revision"`
	CreatedAt       Timestamp   `gorm:"type:text;not null" json:"created_at"`
	UpdatedAt       Timestamp   `gorm:"type:text;not null;index" json:"updated_at"`
}

// TableName maps Trade onto the master_trades table.
func (Trade) TableName() string { return "master_trades" }

// IsClosed reports whether the trade has reached its terminal status.
func (t *Trade) IsClosed() bool { return t.Status == StatusClosed }
