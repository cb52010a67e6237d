package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type TradeType string

const (
	TradeBuy  TradeType = "buy"
	TradeSell TradeType = "sell"
)

type Trade struct {
	Type      TradeType `json:"type"`
	Name      string    `json:"name"`
	UnitPrice int64     `json:"unitPrice"`
	Quantity  int64     `json:"quantity"`
}

// TradeOperation is a journal entry of an executed trade.
type TradeOperation struct {
	Type       TradeType
	Name       string
	Ticker     string
	Quantity   int64
	UnitPrice  decimal.Decimal
	TotalPrice decimal.Decimal
	CashAfter  int64
	DtCreate   time.Time
}
