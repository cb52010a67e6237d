package dbModel

import (
	"time"

	"github.com/shopspring/decimal"
)

type TradeOperation struct {
	OperationID int64           `db:"operation_id"`
	TradeType   string          `db:"trade_type"`
	Name        string          `db:"name"`
	Ticker      string          `db:"ticker"`
	Quantity    int64           `db:"quantity"`
	UnitPrice   decimal.Decimal `db:"unit_price"`
	TotalPrice  decimal.Decimal `db:"total_price"`
	CashAfter   int64           `db:"cash_after"`
	DtCreate    time.Time       `db:"dt_create"`
}
