package dbModel

import (
	"time"

	"github.com/shopspring/decimal"
)

type Account struct {
	AccountID  int16           `db:"account_id"`
	Cash       int64           `db:"cash"`
	StockRatio decimal.Decimal `db:"stock_ratio"`
	DtUpdate   time.Time       `db:"dt_update"`
}
