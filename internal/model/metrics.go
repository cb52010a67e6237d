package model

import "github.com/google/uuid"

type MetricsRow struct {
	ID                            uuid.UUID
	Name                          string
	Ticker                        string
	Quantity                      int64
	TargetWeightWithinEquity      float64
	CurrentPrice                  int64
	MarketValue                   int64
	InclusionWeightOfNav          float64
	InclusionWeightOfEquitySleeve float64
	TargetWeightOfNav             float64
	RevisedTargetWeightOfNav      float64
	DriftTargetVsTarget           float64
	DriftTargetVsInclusion        float64
	TargetMonetaryValue           float64
}

type Totals struct {
	TotalEquityValue int64 `json:"totalEquityValue"`
	Cash             int64 `json:"cash"`
	Nav              int64 `json:"nav"`
}

type Metrics struct {
	Rows []MetricsRow
	Totals
}

// MetricsRowView is a metrics row with every derived column formatted for display.
type MetricsRowView struct {
	ID                            string `json:"id"`
	Name                          string `json:"name"`
	Ticker                        string `json:"ticker"`
	Quantity                      int64  `json:"quantity"`
	TargetWeightWithinEquity      string `json:"targetWeightWithinEquity"`
	CurrentPrice                  string `json:"currentPrice"`
	MarketValue                   string `json:"marketValue"`
	InclusionWeightOfNav          string `json:"inclusionWeightOfNav"`
	InclusionWeightOfEquitySleeve string `json:"inclusionWeightOfEquitySleeve"`
	TargetWeightOfNav             string `json:"targetWeightOfNav"`
	RevisedTargetWeightOfNav      string `json:"revisedTargetWeightOfNav"`
	DriftTargetVsTarget           string `json:"driftTargetVsTarget"`
	DriftTargetVsInclusion        string `json:"driftTargetVsInclusion"`
	TargetMonetaryValue           string `json:"targetMonetaryValue"`
}

type MetricsView struct {
	Rows   []MetricsRowView `json:"rows"`
	Totals Totals           `json:"totals"`
}

type PortfolioReport struct {
	Metrics    Metrics
	View       MetricsView
	StockRatio float64
}
