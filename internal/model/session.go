package model

type action int

const (
	DefaultAction action = iota
	ExpectingTradeName
	ExpectingTradePrice
	ExpectingTradeQuantity
)

// Session is the state of a multi-step trade dialog in a chat.
type Session struct {
	Action    action
	TradeType TradeType
	Name      string
	UnitPrice int64
}
