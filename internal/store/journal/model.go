package journal

import (
	"gorm.io/datatypes"
)

// FillModel is one executed trade. Money columns are stored as decimal
// strings; RawData keeps the full trade as JSON.
type FillModel struct {
	ID          int64          `gorm:"column:id;primaryKey;autoIncrement"`
	TradeID     string         `gorm:"column:trade_id;uniqueIndex"`
	Symbol      string         `gorm:"column:symbol;index"`
	Source      string         `gorm:"column:source"`
	Side        string         `gorm:"column:side"`
	Price       string         `gorm:"column:price"`
	Quantity    string         `gorm:"column:quantity"`
	Notional    string         `gorm:"column:notional"`
	Fee         string         `gorm:"column:fee"`
	Note        string         `gorm:"column:note"`
	ExecutedAt  int64          `gorm:"column:executed_at;index"`
	RawData     datatypes.JSON `gorm:"column:raw_data;type:TEXT"`
	CreatedUnix int64          `gorm:"column:created_at"`
}

func (FillModel) TableName() string { return "fills" }
