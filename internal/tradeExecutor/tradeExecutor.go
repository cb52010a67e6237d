package tradeExecutor

import (
	"errors"
	"fmt"
	"time"

	"github.com/KotFed0t/kr_portfolio_manager/internal/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrInvalidTrade = errors.New("invalid trade")

// Execute applies one trade to state and returns the resulting state together
// with the journal entry. state itself is left untouched.
//
// A sell of more shares than held clamps the quantity at zero but still
// credits the full unitPrice*quantity. A sell on a name that is not held adds
// the row without touching cash.
func Execute(state model.PortfolioState, trade model.Trade) (model.PortfolioState, model.TradeOperation, error) {
	if err := validate(trade); err != nil {
		return state, model.TradeOperation{}, err
	}

	next := state.Clone()
	amount := trade.UnitPrice * trade.Quantity

	var ticker string
	if i := next.IndexByName(trade.Name); i >= 0 {
		holding := &next.Holdings[i]
		ticker = holding.Ticker

		switch trade.Type {
		case model.TradeBuy:
			holding.Quantity += trade.Quantity
			next.Cash -= amount
		case model.TradeSell:
			holding.Quantity = max(0, holding.Quantity-trade.Quantity)
			next.Cash += amount
		}
	} else {
		ticker = model.UnassignedTicker
		next.Holdings = append(next.Holdings, model.Holding{
			ID:       uuid.New(),
			Name:     trade.Name,
			Ticker:   ticker,
			Quantity: trade.Quantity,
		})

		if trade.Type == model.TradeBuy {
			next.Cash -= amount
		}
	}

	operation := model.TradeOperation{
		Type:       trade.Type,
		Name:       trade.Name,
		Ticker:     ticker,
		Quantity:   trade.Quantity,
		UnitPrice:  decimal.NewFromInt(trade.UnitPrice),
		TotalPrice: decimal.NewFromInt(amount),
		CashAfter:  next.Cash,
		DtCreate:   time.Now(),
	}

	return next, operation, nil
}

func validate(trade model.Trade) error {
	switch {
	case trade.Type != model.TradeBuy && trade.Type != model.TradeSell:
		return fmt.Errorf("%w: unknown trade type %q", ErrInvalidTrade, trade.Type)
	case trade.Name == "":
		return fmt.Errorf("%w: empty name", ErrInvalidTrade)
	case trade.Quantity < 1:
		return fmt.Errorf("%w: quantity must be at least 1", ErrInvalidTrade)
	case trade.UnitPrice < 0:
		return fmt.Errorf("%w: negative unit price", ErrInvalidTrade)
	}
	return nil
}
