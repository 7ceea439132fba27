package domain

import (
	"database/sql"
	"time"
)

// Contract 期货合约（对应 futures_contracts 表），从 Tushare fut_basic 同步
type Contract struct {
	ContractID         int64           `db:"contract_id"`
	ContractCode       string          `db:"contract_code"` // 如 IF2312
	ContractName       string          `db:"contract_name"`
	ExchangeCode       string          `db:"exchange_code"` // SHFE/DCE/CZCE/CFFEX/INE/GFEX
	ContractMultiplier sql.NullFloat64 `db:"contract_multiplier"`
	ListedDate         sql.NullTime    `db:"listed_date"`
	ExpiryDate         sql.NullTime    `db:"expiry_date"` // fut_basic 的 delist_date
	IsActive           bool            `db:"is_active"`
	CreatedAt          time.Time       `db:"created_at"`
}

// Bar 单个交易周期的 OHLCV 数据，time 为 "YYYY-MM-DD"
type Bar struct {
	Time   string  `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume,omitempty"`
}
