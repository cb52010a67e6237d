package portfolioService

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/KotFed0t/kr_portfolio_manager/config"
	"github.com/KotFed0t/kr_portfolio_manager/data/repository"
	"github.com/KotFed0t/kr_portfolio_manager/internal/converter/dbConverter"
	"github.com/KotFed0t/kr_portfolio_manager/internal/metricsEngine"
	"github.com/KotFed0t/kr_portfolio_manager/internal/model"
	"github.com/KotFed0t/kr_portfolio_manager/internal/model/dbModel"
	"github.com/KotFed0t/kr_portfolio_manager/internal/service"
	"github.com/KotFed0t/kr_portfolio_manager/internal/tradeExecutor"
	"github.com/KotFed0t/kr_portfolio_manager/utils"
	"github.com/google/uuid"
)

const reportHistoryLimit = 500

var stockRatioOptions = []string{"50%", "60%", "70%", "80%", "90%", "100%"}

type HoldingsStore interface {
	Load(ctx context.Context) ([]model.HoldingRecord, error)
	Save(ctx context.Context, records []model.HoldingRecord) error
}

type Repository interface {
	GetAccount(ctx context.Context) (dbModel.Account, error)
	SaveAccount(ctx context.Context, account dbModel.Account) error
	InsertTradeOperation(ctx context.Context, operation model.TradeOperation) error
	GetTradeOperations(ctx context.Context, limit int) ([]model.TradeOperation, error)
	WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error
}

type Prices interface {
	Price(ctx context.Context, ticker string) int64
	Warm(ctx context.Context, tickers []string) error
	Refresh(ctx context.Context) error
}

type ReportGenerator interface {
	Generate(ctx context.Context, report model.PortfolioReport, operations []model.TradeOperation) (fileBytes []byte, fileExtension string, err error)
}

type CloudStorage interface {
	UploadFile(ctx context.Context, reader io.Reader, filename string) (downloadLink string, err error)
	DeleteOldFiles(ctx context.Context) error
}

// PortfolioService owns the single portfolio session: it is loaded once,
// mutated by the transports and written through to storage on every change.
type PortfolioService struct {
	cfg             *config.Config
	store           HoldingsStore
	repo            Repository
	prices          Prices
	engine          *metricsEngine.Engine
	reportGenerator ReportGenerator
	cloudStorage    CloudStorage
	now             func() time.Time

	mu    sync.Mutex
	state model.PortfolioState
}

func New(
	cfg *config.Config,
	store HoldingsStore,
	repo Repository,
	prices Prices,
	reportGenerator ReportGenerator,
	cloudStorage CloudStorage,
) *PortfolioService {
	return &PortfolioService{
		cfg:             cfg,
		store:           store,
		repo:            repo,
		prices:          prices,
		engine:          metricsEngine.New(prices, cfg.Portfolio.LookupWorkers),
		reportGenerator: reportGenerator,
		cloudStorage:    cloudStorage,
		now:             time.Now,
	}
}

// Load reads holdings and account, falling back to the seed portfolio.
func (s *PortfolioService) Load(ctx context.Context) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.Load"

	slog.Debug("Load start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		if err != nil {
			slog.Error("Load failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("Load completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	records, err := s.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("load holdings: %w", err)
		}
		slog.Info("holdings file not found, using seed portfolio", slog.String("rqID", rqID), slog.String("op", op))
		records = seedHoldings()
	}

	holdings, err := metricsEngine.ParseHoldings(records)
	if err != nil {
		return err
	}

	state := model.PortfolioState{
		Holdings:   holdings,
		Cash:       s.cfg.Portfolio.SeedCash,
		StockRatio: s.cfg.Portfolio.SeedRatio,
	}

	account, err := s.repo.GetAccount(ctx)
	switch {
	case err == nil:
		state.Cash, state.StockRatio = dbConverter.ConvertAccount(account)
	case errors.Is(err, repository.ErrNotFound):
		slog.Info("account not found, using seed cash and stock ratio", slog.String("rqID", rqID), slog.String("op", op))
		if err = s.repo.SaveAccount(ctx, dbConverter.AccountFromState(state)); err != nil {
			return fmt.Errorf("save seed account: %w", err)
		}
	default:
		return fmt.Errorf("get account: %w", err)
	}

	s.mu.Lock()
	s.state = state
	s.mu.Unlock()

	return nil
}

// GetMetrics recomputes the metrics table from the current state.
func (s *PortfolioService) GetMetrics(ctx context.Context) (model.PortfolioReport, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GetMetrics"

	state := s.snapshot()

	metrics, err := s.engine.Compute(ctx, state.Holdings, state.Cash, state.StockRatio)
	if err != nil {
		slog.Error("got error from engine.Compute", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.PortfolioReport{}, err
	}

	return model.PortfolioReport{
		Metrics:    metrics,
		View:       metricsEngine.Format(metrics),
		StockRatio: state.StockRatio,
	}, nil
}

// ExecuteTrade applies the trade and persists holdings, account and the
// journal entry. The in-memory state keeps the trade even if persisting fails.
func (s *PortfolioService) ExecuteTrade(ctx context.Context, trade model.Trade) (operation model.TradeOperation, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.ExecuteTrade"

	slog.Debug("ExecuteTrade start", slog.String("rqID", rqID), slog.String("op", op), slog.Any("trade", trade))
	defer func() {
		if err != nil {
			slog.Error("ExecuteTrade failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("ExecuteTrade completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("cashAfter", operation.CashAfter))
		}
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	next, operation, err := tradeExecutor.Execute(s.state, trade)
	if err != nil {
		return model.TradeOperation{}, err
	}
	operation.DtCreate = s.now()
	s.state = next

	if err = s.saveHoldings(ctx); err != nil {
		return operation, err
	}

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.SaveAccount(ctx, dbConverter.AccountFromState(s.state)); err != nil {
			return err
		}
		return s.repo.InsertTradeOperation(ctx, operation)
	})
	if err != nil {
		return operation, fmt.Errorf("persist trade: %w", err)
	}

	return operation, nil
}

func (s *PortfolioService) SetTargetWeight(ctx context.Context, name, weight string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.SetTargetWeight"

	slog.Debug("SetTargetWeight start", slog.String("rqID", rqID), slog.String("op", op), slog.String("name", name), slog.String("weight", weight))

	value, err := metricsEngine.ParsePercent(weight)
	if err != nil {
		return &metricsEngine.ParseError{Row: name, Value: weight, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.state.IndexByName(name)
	if i < 0 {
		return service.ErrNotFound
	}
	s.state.Holdings[i].TargetWeight = value

	return s.saveHoldings(ctx)
}

func (s *PortfolioService) SetTicker(ctx context.Context, name, ticker string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.SetTicker"

	slog.Debug("SetTicker start", slog.String("rqID", rqID), slog.String("op", op), slog.String("name", name), slog.String("ticker", ticker))

	ticker = strings.TrimSpace(ticker)
	if ticker == "" {
		return fmt.Errorf("%w: empty ticker", service.ErrInvalidHolding)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.state.IndexByName(name)
	if i < 0 {
		return service.ErrNotFound
	}
	s.state.Holdings[i].Ticker = ticker

	return s.saveHoldings(ctx)
}

// AddHolding appends a new row. An empty ticker is stored as unassigned.
func (s *PortfolioService) AddHolding(ctx context.Context, record model.HoldingRecord) (holding model.Holding, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.AddHolding"

	slog.Debug("AddHolding start", slog.String("rqID", rqID), slog.String("op", op), slog.Any("record", record))

	record.Name = strings.TrimSpace(record.Name)
	record.Ticker = strings.TrimSpace(record.Ticker)
	if record.Name == "" {
		return model.Holding{}, fmt.Errorf("%w: empty name", service.ErrInvalidHolding)
	}
	if record.Quantity < 0 {
		return model.Holding{}, fmt.Errorf("%w: negative quantity", service.ErrInvalidHolding)
	}
	if record.Ticker == "" {
		record.Ticker = model.UnassignedTicker
	}

	weight, err := metricsEngine.ParsePercent(record.TargetWeight)
	if err != nil {
		return model.Holding{}, &metricsEngine.ParseError{Row: record.Name, Value: record.TargetWeight, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.IndexByName(record.Name) >= 0 {
		return model.Holding{}, service.ErrAlreadyExists
	}

	holding = model.Holding{
		ID:           uuid.New(),
		Name:         record.Name,
		Ticker:       record.Ticker,
		Quantity:     record.Quantity,
		TargetWeight: weight,
	}
	s.state.Holdings = append(s.state.Holdings, holding)

	return holding, s.saveHoldings(ctx)
}

// RemoveHolding drops the row with the given name.
func (s *PortfolioService) RemoveHolding(ctx context.Context, name string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.RemoveHolding"

	slog.Debug("RemoveHolding start", slog.String("rqID", rqID), slog.String("op", op), slog.String("name", name))

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.state.IndexByName(name)
	if i < 0 {
		return service.ErrNotFound
	}
	s.state.Holdings = slices.Delete(s.state.Holdings, i, i+1)

	return s.saveHoldings(ctx)
}

// SetStockRatio accepts one of StockRatioOptions.
func (s *PortfolioService) SetStockRatio(ctx context.Context, ratio string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.SetStockRatio"

	slog.Debug("SetStockRatio start", slog.String("rqID", rqID), slog.String("op", op), slog.String("ratio", ratio))

	value, err := parseStockRatio(ratio)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.StockRatio = value

	if err = s.repo.SaveAccount(ctx, dbConverter.AccountFromState(s.state)); err != nil {
		slog.Error("got error from repo.SaveAccount", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}

func parseStockRatio(ratio string) (float64, error) {
	value, err := metricsEngine.ParsePercent(ratio)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", service.ErrInvalidStockRatio, err)
	}

	percent := value * 100
	rounded := math.Round(percent)
	if math.Abs(percent-rounded) > 1e-9 || rounded < 50 || rounded > 100 || int(rounded)%10 != 0 {
		return 0, fmt.Errorf("%w: %q is not one of %s", service.ErrInvalidStockRatio, ratio, strings.Join(stockRatioOptions, ", "))
	}

	return rounded / 100, nil
}

// RefreshPrices drops every cached price so the next read hits the source.
func (s *PortfolioService) RefreshPrices(ctx context.Context) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.RefreshPrices"

	err := s.prices.Refresh(ctx)
	if err != nil {
		slog.Error("got error from prices.Refresh", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	slog.Info("price cache invalidated", slog.String("rqID", rqID), slog.String("op", op))
	return nil
}

func (s *PortfolioService) FillPriceCache(ctx context.Context) error {
	tickers := s.snapshot().Tickers()
	if len(tickers) == 0 {
		return nil
	}
	return s.prices.Warm(ctx, tickers)
}

func (s *PortfolioService) Holdings() []model.Holding {
	return s.snapshot().Holdings
}

func (s *PortfolioService) StockRatio() float64 {
	return s.snapshot().StockRatio
}

func (s *PortfolioService) StockRatioOptions() []string {
	return append([]string(nil), stockRatioOptions...)
}

// GenerateReport uploads an xlsx with the current metrics and the trade
// journal and returns the download link.
func (s *PortfolioService) GenerateReport(ctx context.Context) (link string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GenerateReport"

	slog.Debug("GenerateReport start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		if err != nil {
			slog.Error("GenerateReport failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GenerateReport completed", slog.String("rqID", rqID), slog.String("op", op), slog.String("link", link))
		}
	}()

	report, err := s.GetMetrics(ctx)
	if err != nil {
		return "", err
	}

	operations, err := s.repo.GetTradeOperations(ctx, reportHistoryLimit)
	if err != nil {
		return "", fmt.Errorf("get trade operations: %w", err)
	}

	fileBytes, ext, err := s.reportGenerator.Generate(ctx, report, operations)
	if err != nil {
		return "", fmt.Errorf("generate report: %w", err)
	}

	filename := s.now().Format("20060102_150405") + ext

	return s.cloudStorage.UploadFile(ctx, bytes.NewReader(fileBytes), filename)
}

func (s *PortfolioService) DeleteOldReports(ctx context.Context) error {
	return s.cloudStorage.DeleteOldFiles(ctx)
}

func (s *PortfolioService) snapshot() model.PortfolioState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// saveHoldings must be called with s.mu held.
func (s *PortfolioService) saveHoldings(ctx context.Context) error {
	records := make([]model.HoldingRecord, 0, len(s.state.Holdings))
	for _, h := range s.state.Holdings {
		records = append(records, model.HoldingRecord{
			Name:         h.Name,
			Ticker:       h.Ticker,
			Quantity:     h.Quantity,
			TargetWeight: metricsEngine.FormatWeight(h.TargetWeight),
		})
	}

	if err := s.store.Save(ctx, records); err != nil {
		return fmt.Errorf("save holdings: %w", err)
	}
	return nil
}
