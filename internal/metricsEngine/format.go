package metricsEngine

import (
	"math"

	"github.com/KotFed0t/kr_portfolio_manager/internal/model"
	"github.com/Rhymond/go-money"
)

var currencyFormatter = money.NewFormatter(0, ".", ",", "", "1")

// FormatCurrency renders an amount as a thousands separated integer.
func FormatCurrency(v float64) string {
	return currencyFormatter.Format(int64(math.RoundToEven(v)))
}

func FormatAmount(v int64) string {
	return currencyFormatter.Format(v)
}

// Format renders every derived column of metrics for display. Totals stay numeric.
func Format(metrics model.Metrics) model.MetricsView {
	view := model.MetricsView{
		Rows:   make([]model.MetricsRowView, 0, len(metrics.Rows)),
		Totals: metrics.Totals,
	}

	for _, row := range metrics.Rows {
		view.Rows = append(view.Rows, model.MetricsRowView{
			ID:                            row.ID.String(),
			Name:                          row.Name,
			Ticker:                        row.Ticker,
			Quantity:                      row.Quantity,
			TargetWeightWithinEquity:      FormatWeight(row.TargetWeightWithinEquity),
			CurrentPrice:                  FormatAmount(row.CurrentPrice),
			MarketValue:                   FormatAmount(row.MarketValue),
			InclusionWeightOfNav:          FormatPercent(row.InclusionWeightOfNav),
			InclusionWeightOfEquitySleeve: FormatPercent(row.InclusionWeightOfEquitySleeve),
			TargetWeightOfNav:             FormatPercent(row.TargetWeightOfNav),
			RevisedTargetWeightOfNav:      FormatPercent(row.RevisedTargetWeightOfNav),
			DriftTargetVsTarget:           FormatPercent(row.DriftTargetVsTarget),
			DriftTargetVsInclusion:        FormatPercent(row.DriftTargetVsInclusion),
			TargetMonetaryValue:           FormatCurrency(row.TargetMonetaryValue),
		})
	}

	return view
}
