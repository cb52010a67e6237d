package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/KotFed0t/kr_portfolio_manager/internal/metricsEngine"
	"github.com/KotFed0t/kr_portfolio_manager/internal/model"
	"github.com/KotFed0t/kr_portfolio_manager/internal/service"
	"github.com/KotFed0t/kr_portfolio_manager/internal/tradeExecutor"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	metricsErr error
	tradeErr   error
	weightErr  error
	ratioErr   error
	addErr     error

	lastTrade  model.Trade
	lastName   string
	lastWeight string
	lastTicker string
	lastRatio  string
	refreshed  bool
}

func (f *fakeService) GetMetrics(_ context.Context) (model.PortfolioReport, error) {
	if f.metricsErr != nil {
		return model.PortfolioReport{}, f.metricsErr
	}
	return model.PortfolioReport{
		View: model.MetricsView{
			Rows:   []model.MetricsRowView{{Name: "X", Ticker: "T1", Quantity: 100, InclusionWeightOfNav: "52.6%"}},
			Totals: model.Totals{TotalEquityValue: 1000, Cash: 900, Nav: 1900},
		},
		StockRatio: 0.9,
	}, nil
}

func (f *fakeService) Holdings() []model.Holding {
	return []model.Holding{{ID: uuid.New(), Name: "삼양식품", Ticker: "003230", Quantity: 124, TargetWeight: 0.0005}}
}

func (f *fakeService) ExecuteTrade(_ context.Context, trade model.Trade) (model.TradeOperation, error) {
	f.lastTrade = trade
	if f.tradeErr != nil {
		return model.TradeOperation{}, f.tradeErr
	}
	return model.TradeOperation{
		Type:       trade.Type,
		Name:       trade.Name,
		Ticker:     "T1",
		Quantity:   trade.Quantity,
		UnitPrice:  decimal.NewFromInt(trade.UnitPrice),
		TotalPrice: decimal.NewFromInt(trade.UnitPrice * trade.Quantity),
		CashAfter:  850,
	}, nil
}

func (f *fakeService) SetTargetWeight(_ context.Context, name, weight string) error {
	f.lastName, f.lastWeight = name, weight
	return f.weightErr
}

func (f *fakeService) SetTicker(_ context.Context, name, ticker string) error {
	f.lastName, f.lastTicker = name, ticker
	return nil
}

func (f *fakeService) AddHolding(_ context.Context, record model.HoldingRecord) (model.Holding, error) {
	if f.addErr != nil {
		return model.Holding{}, f.addErr
	}
	return model.Holding{ID: uuid.New(), Name: record.Name, Ticker: record.Ticker, Quantity: record.Quantity, TargetWeight: 0.123}, nil
}

func (f *fakeService) RemoveHolding(_ context.Context, name string) error {
	f.lastName = name
	if name != "X" {
		return service.ErrNotFound
	}
	return nil
}

func (f *fakeService) SetStockRatio(_ context.Context, ratio string) error {
	f.lastRatio = ratio
	return f.ratioErr
}

func (f *fakeService) RefreshPrices(_ context.Context) error {
	f.refreshed = true
	return nil
}

func serve(t *testing.T, svc *fakeService, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	router := NewRouter(NewHandler(svc))
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestGetPortfolio(t *testing.T) {
	rec := serve(t, &fakeService{}, http.MethodGet, "/api/portfolio", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	var body struct {
		Rows       []model.MetricsRowView `json:"rows"`
		Totals     model.Totals           `json:"totals"`
		StockRatio string                 `json:"stockRatio"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "52.6%", body.Rows[0].InclusionWeightOfNav)
	assert.Equal(t, int64(1900), body.Totals.Nav)
	assert.Equal(t, "90.0%", body.StockRatio)
}

func TestGetPortfolio_DivisionByZero(t *testing.T) {
	rec := serve(t, &fakeService{metricsErr: metricsEngine.ErrDivisionByZero}, http.MethodGet, "/api/portfolio", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestGetHoldings(t *testing.T) {
	rec := serve(t, &fakeService{}, http.MethodGet, "/api/holdings", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body []holdingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 1)
	assert.Equal(t, "003230", body[0].Ticker)
	assert.Equal(t, "0.05%", body[0].TargetWeightWithinEquity)
}

func TestAddHolding(t *testing.T) {
	rec := serve(t, &fakeService{}, http.MethodPost, "/api/holdings",
		`{"name":"Z","ticker":"005930","quantity":3,"targetWeightWithinEquity":"12.3%"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"targetWeightWithinEquity":"12.30%"`)

	rec = serve(t, &fakeService{addErr: service.ErrAlreadyExists}, http.MethodPost, "/api/holdings", `{"name":"Z"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSetTargetWeight(t *testing.T) {
	svc := &fakeService{}
	rec := serve(t, svc, http.MethodPut, "/api/holdings/"+url.PathEscape("삼성전자")+"/weight", `{"targetWeight":"2.5%"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "삼성전자", svc.lastName)
	assert.Equal(t, "2.5%", svc.lastWeight)

	parseErr := &metricsEngine.ParseError{Row: "X", Value: "abc", Err: metricsEngine.ErrParse}
	rec = serve(t, &fakeService{weightErr: parseErr}, http.MethodPut, "/api/holdings/X/weight", `{"targetWeight":"abc"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "abc")

	rec = serve(t, &fakeService{weightErr: service.ErrNotFound}, http.MethodPut, "/api/holdings/X/weight", `{"targetWeight":"1%"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNameParamIsDecodedOnce(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "escaped percent", path: "/api/holdings/X%2541/weight", want: "X%41"},
		{name: "escaped slash", path: "/api/holdings/A%2FB/weight", want: "A/B"},
		{name: "plain", path: "/api/holdings/ABC/weight", want: "ABC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{}
			rec := serve(t, svc, http.MethodPut, tt.path, `{"targetWeight":"1%"}`)
			require.Equal(t, http.StatusNoContent, rec.Code)
			assert.Equal(t, tt.want, svc.lastName)
		})
	}
}

func TestRemoveHolding(t *testing.T) {
	svc := &fakeService{}
	rec := serve(t, svc, http.MethodDelete, "/api/holdings/X", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "X", svc.lastName)

	rec = serve(t, svc, http.MethodDelete, "/api/holdings/Y", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSetTicker(t *testing.T) {
	svc := &fakeService{}
	rec := serve(t, svc, http.MethodPut, "/api/holdings/Y/ticker", `{"ticker":"005930"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "Y", svc.lastName)
	assert.Equal(t, "005930", svc.lastTicker)
}

func TestExecuteTrade(t *testing.T) {
	svc := &fakeService{}
	rec := serve(t, svc, http.MethodPost, "/api/trades", `{"type":"buy","name":"X","unitPrice":10,"quantity":5}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.Trade{Type: model.TradeBuy, Name: "X", UnitPrice: 10, Quantity: 5}, svc.lastTrade)

	var body tradeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "50", body.TotalPrice)
	assert.Equal(t, int64(850), body.CashAfter)

	rec = serve(t, &fakeService{tradeErr: tradeExecutor.ErrInvalidTrade}, http.MethodPost, "/api/trades", `{"type":"hold"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, &fakeService{}, http.MethodPost, "/api/trades", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetStockRatio(t *testing.T) {
	svc := &fakeService{}
	rec := serve(t, svc, http.MethodPut, "/api/settings/stock-ratio", `{"stockRatio":"80%"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "80%", svc.lastRatio)

	rec = serve(t, &fakeService{ratioErr: service.ErrInvalidStockRatio}, http.MethodPut, "/api/settings/stock-ratio", `{"stockRatio":"75%"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefreshPrices(t *testing.T) {
	svc := &fakeService{}
	rec := serve(t, svc, http.MethodPost, "/api/prices/refresh", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, svc.refreshed)
}

func TestInternalErrorIsHidden(t *testing.T) {
	rec := serve(t, &fakeService{metricsErr: errors.New("redis: connection refused")}, http.MethodGet, "/api/portfolio", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "redis")
}
