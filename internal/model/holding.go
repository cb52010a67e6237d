package model

import (
	"slices"

	"github.com/google/uuid"
)

// UnassignedTicker marks rows created by a trade on a name that was not held yet.
const UnassignedTicker = "unassigned"

// HoldingRecord is a holding row as it is stored in the holdings file and
// entered by the user: the target weight is still a percentage string.
type HoldingRecord struct {
	Name         string `json:"name"`
	Ticker       string `json:"ticker"`
	Quantity     int64  `json:"quantity"`
	TargetWeight string `json:"targetWeightWithinEquity"`
}

type Holding struct {
	ID       uuid.UUID
	Name     string
	Ticker   string
	Quantity int64
	// TargetWeight is the fraction of the equity sleeve, 0.123 for "12.3%".
	TargetWeight float64
}

type PortfolioState struct {
	Holdings   []Holding
	Cash       int64
	StockRatio float64
}

func (s PortfolioState) Clone() PortfolioState {
	return PortfolioState{
		Holdings:   slices.Clone(s.Holdings),
		Cash:       s.Cash,
		StockRatio: s.StockRatio,
	}
}

// IndexByName returns the position of the first holding named name or -1.
func (s PortfolioState) IndexByName(name string) int {
	return slices.IndexFunc(s.Holdings, func(h Holding) bool {
		return h.Name == name
	})
}

func (s PortfolioState) Tickers() []string {
	tickers := make([]string, 0, len(s.Holdings))
	for _, h := range s.Holdings {
		if h.Ticker == UnassignedTicker || slices.Contains(tickers, h.Ticker) {
			continue
		}
		tickers = append(tickers, h.Ticker)
	}
	return tickers
}
