package metricsEngine

import (
	"context"
	"log/slog"

	"github.com/KotFed0t/kr_portfolio_manager/internal/model"
	"github.com/KotFed0t/kr_portfolio_manager/utils"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type PriceLookup interface {
	Price(ctx context.Context, ticker string) int64
}

type Engine struct {
	lookup  PriceLookup
	workers int
}

func New(lookup PriceLookup, workers int) *Engine {
	if workers < 1 {
		workers = 1
	}
	return &Engine{lookup: lookup, workers: workers}
}

// ParseHoldings converts stored records into holdings with numeric target
// weights. The first malformed weight aborts the whole conversion.
func ParseHoldings(records []model.HoldingRecord) ([]model.Holding, error) {
	holdings := make([]model.Holding, 0, len(records))
	for _, record := range records {
		weight, err := ParsePercent(record.TargetWeight)
		if err != nil {
			return nil, &ParseError{Row: record.Name, Value: record.TargetWeight, Err: err}
		}

		holdings = append(holdings, model.Holding{
			ID:           uuid.New(),
			Name:         record.Name,
			Ticker:       record.Ticker,
			Quantity:     record.Quantity,
			TargetWeight: weight,
		})
	}
	return holdings, nil
}

// Calculate parses records, computes every metric and formats the result.
func (e *Engine) Calculate(ctx context.Context, records []model.HoldingRecord, cash int64, stockRatio float64) (model.MetricsView, error) {
	holdings, err := ParseHoldings(records)
	if err != nil {
		return model.MetricsView{}, err
	}

	metrics, err := e.Compute(ctx, holdings, cash, stockRatio)
	if err != nil {
		return model.MetricsView{}, err
	}

	return Format(metrics), nil
}

// Compute derives per-row weights and the portfolio totals from current prices.
// Nothing is returned when nav or the equity sleeve is zero.
func (e *Engine) Compute(ctx context.Context, holdings []model.Holding, cash int64, stockRatio float64) (metrics model.Metrics, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Engine.Compute"

	slog.Debug("Compute start", slog.String("rqID", rqID), slog.String("op", op), slog.Int("holdings", len(holdings)))
	defer func() {
		if err != nil {
			slog.Error("Compute failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("Compute completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("nav", metrics.Nav))
		}
	}()

	prices, err := e.resolvePrices(ctx, holdings)
	if err != nil {
		return model.Metrics{}, err
	}

	rows := make([]model.MetricsRow, len(holdings))
	var totalEquityValue int64
	for i, h := range holdings {
		rows[i] = model.MetricsRow{
			ID:                       h.ID,
			Name:                     h.Name,
			Ticker:                   h.Ticker,
			Quantity:                 h.Quantity,
			TargetWeightWithinEquity: h.TargetWeight,
			CurrentPrice:             prices[i],
			MarketValue:              h.Quantity * prices[i],
		}
		totalEquityValue += rows[i].MarketValue
	}

	nav := totalEquityValue + cash
	sleeve := float64(nav) * stockRatio
	if nav == 0 || sleeve == 0 {
		return model.Metrics{}, ErrDivisionByZero
	}

	for i := range rows {
		row := &rows[i]
		marketValue := float64(row.MarketValue)

		row.InclusionWeightOfNav = marketValue / float64(nav)
		row.InclusionWeightOfEquitySleeve = marketValue / sleeve

		row.TargetWeightOfNav = row.TargetWeightWithinEquity * stockRatio
		// same formula as TargetWeightOfNav, kept as a separate column
		row.RevisedTargetWeightOfNav = row.TargetWeightWithinEquity * stockRatio

		row.DriftTargetVsTarget = row.RevisedTargetWeightOfNav - row.TargetWeightOfNav
		row.DriftTargetVsInclusion = row.TargetWeightOfNav - row.InclusionWeightOfNav

		row.TargetMonetaryValue = row.TargetWeightOfNav * float64(nav)
	}

	return model.Metrics{
		Rows: rows,
		Totals: model.Totals{
			TotalEquityValue: totalEquityValue,
			Cash:             cash,
			Nav:              nav,
		},
	}, nil
}

func (e *Engine) resolvePrices(ctx context.Context, holdings []model.Holding) ([]int64, error) {
	prices := make([]int64, len(holdings))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, h := range holdings {
		g.Go(func() error {
			prices[i] = e.lookup.Price(gCtx, h.Ticker)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return prices, nil
}
