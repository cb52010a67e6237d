package dbConverter

import (
	"github.com/KotFed0t/kr_portfolio_manager/internal/model"
	"github.com/KotFed0t/kr_portfolio_manager/internal/model/dbModel"
	"github.com/shopspring/decimal"
)

func ConvertTradeOperation(dbOperation dbModel.TradeOperation) model.TradeOperation {
	return model.TradeOperation{
		Type:       model.TradeType(dbOperation.TradeType),
		Name:       dbOperation.Name,
		Ticker:     dbOperation.Ticker,
		Quantity:   dbOperation.Quantity,
		UnitPrice:  dbOperation.UnitPrice,
		TotalPrice: dbOperation.TotalPrice,
		CashAfter:  dbOperation.CashAfter,
		DtCreate:   dbOperation.DtCreate,
	}
}

func ConvertAccount(dbAccount dbModel.Account) (cash int64, stockRatio float64) {
	return dbAccount.Cash, dbAccount.StockRatio.InexactFloat64()
}

func AccountFromState(state model.PortfolioState) dbModel.Account {
	return dbModel.Account{
		AccountID:  1,
		Cash:       state.Cash,
		StockRatio: decimal.NewFromFloat(state.StockRatio),
	}
}
