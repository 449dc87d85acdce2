package models

// SlaveTrade records the last state of a master trade delivered to a slave.
// There is at most one row per (master trade, slave account).
type SlaveTrade struct {
	MasterTradeID  int64       `gorm:"primaryKey;autoIncrement:false" json:"master_trade_id"`
	SlaveAccountID int64       `gorm:"primaryKey;autoIncrement:false;index" json:"slave_account_id"`
	Status         TradeStatus `gorm:"type:text;not null" json:"status"`
	Revision       int64       `gorm:"not null;default:0" json:"revision"`
	UpdatedAt      Timestamp   `gorm:"type:text;not null" json:"updated_at"`

	MasterTrade Trade `gorm:"foreignKey:MasterTradeID;references:ID;constraint:OnDelete:RESTRICT" json:"-"`
}

// TableName maps SlaveTrade onto the slave_trades table.
func (SlaveTrade) TableName() string { return "slave_trades" }
