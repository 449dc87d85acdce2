package models

// TradeClosure is an append-only audit row written for every closure event.
type TradeClosure struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	MasterTradeID int64     `gorm:"not null;index" json:"master_trade_id"`
	ClosePrice    float64   `gorm:"not null" json:"close_price"`
	CloseTime     Timestamp `gorm:"type:text;not null" json:"close_time"`
	Profit        float64   `gorm:"not null" json:"profit"`
	RecordedAt    Timestamp `gorm:"type:text;not null" json:"recorded_at"`

	MasterTrade Trade `gorm:"foreignKey:MasterTradeID;references:ID;constraint:OnDelete:RESTRICT" json:"-"`
}

// TableName maps TradeClosure onto the trade_closures table.
func (TradeClosure) TableName() string { return "trade_closures" }
