package tgCallback

// Callback buttons uniques
const (
	TradeBuy     string = "trade_buy"
	TradeSell    string = "trade_sell"
	TradeCancel  string = "trade_cancel"
	RefreshPrice string = "refresh_prices"
	StockRatio   string = "stock_ratio"
)
