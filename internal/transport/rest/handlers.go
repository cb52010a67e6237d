package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/KotFed0t/kr_portfolio_manager/internal/metricsEngine"
	"github.com/KotFed0t/kr_portfolio_manager/internal/model"
	"github.com/KotFed0t/kr_portfolio_manager/internal/service"
	"github.com/KotFed0t/kr_portfolio_manager/internal/tradeExecutor"
	"github.com/KotFed0t/kr_portfolio_manager/utils"
	"github.com/go-chi/chi/v5"
)

type PortfolioService interface {
	GetMetrics(ctx context.Context) (model.PortfolioReport, error)
	Holdings() []model.Holding
	ExecuteTrade(ctx context.Context, trade model.Trade) (model.TradeOperation, error)
	SetTargetWeight(ctx context.Context, name, weight string) error
	SetTicker(ctx context.Context, name, ticker string) error
	AddHolding(ctx context.Context, record model.HoldingRecord) (model.Holding, error)
	RemoveHolding(ctx context.Context, name string) error
	SetStockRatio(ctx context.Context, ratio string) error
	RefreshPrices(ctx context.Context) error
}

type Handler struct {
	portfolioService PortfolioService
}

func NewHandler(portfolioService PortfolioService) *Handler {
	return &Handler{portfolioService: portfolioService}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/portfolio", h.HandleGetPortfolio)

		r.Route("/holdings", func(r chi.Router) {
			r.Get("/", h.HandleGetHoldings)
			r.Post("/", h.HandleAddHolding)
			r.Delete("/{name}", h.HandleRemoveHolding)
			r.Put("/{name}/weight", h.HandleSetTargetWeight)
			r.Put("/{name}/ticker", h.HandleSetTicker)
		})

		r.Post("/trades", h.HandleExecuteTrade)
		r.Put("/settings/stock-ratio", h.HandleSetStockRatio)
		r.Post("/prices/refresh", h.HandleRefreshPrices)
	})
}

type portfolioResponse struct {
	model.MetricsView
	StockRatio string `json:"stockRatio"`
}

type holdingResponse struct {
	ID                       string `json:"id"`
	Name                     string `json:"name"`
	Ticker                   string `json:"ticker"`
	Quantity                 int64  `json:"quantity"`
	TargetWeightWithinEquity string `json:"targetWeightWithinEquity"`
}

type tradeResponse struct {
	Type       model.TradeType `json:"type"`
	Name       string          `json:"name"`
	Ticker     string          `json:"ticker"`
	Quantity   int64           `json:"quantity"`
	UnitPrice  string          `json:"unitPrice"`
	TotalPrice string          `json:"totalPrice"`
	CashAfter  int64           `json:"cashAfter"`
}

func toHoldingResponse(holding model.Holding) holdingResponse {
	return holdingResponse{
		ID:                       holding.ID.String(),
		Name:                     holding.Name,
		Ticker:                   holding.Ticker,
		Quantity:                 holding.Quantity,
		TargetWeightWithinEquity: metricsEngine.FormatWeight(holding.TargetWeight),
	}
}

func (h *Handler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	report, err := h.portfolioService.GetMetrics(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, portfolioResponse{
		MetricsView: report.View,
		StockRatio:  metricsEngine.FormatPercent(report.StockRatio),
	})
}

func (h *Handler) HandleGetHoldings(w http.ResponseWriter, r *http.Request) {
	holdings := h.portfolioService.Holdings()

	response := make([]holdingResponse, 0, len(holdings))
	for _, holding := range holdings {
		response = append(response, toHoldingResponse(holding))
	}

	h.writeJSON(w, r, http.StatusOK, response)
}

func (h *Handler) HandleAddHolding(w http.ResponseWriter, r *http.Request) {
	var record model.HoldingRecord
	if !h.decode(w, r, &record) {
		return
	}

	holding, err := h.portfolioService.AddHolding(r.Context(), record)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusCreated, toHoldingResponse(holding))
}

func (h *Handler) HandleRemoveHolding(w http.ResponseWriter, r *http.Request) {
	if err := h.portfolioService.RemoveHolding(r.Context(), nameParam(r)); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleSetTargetWeight(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TargetWeight string `json:"targetWeight"`
	}
	if !h.decode(w, r, &body) {
		return
	}

	if err := h.portfolioService.SetTargetWeight(r.Context(), nameParam(r), body.TargetWeight); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleSetTicker(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Ticker string `json:"ticker"`
	}
	if !h.decode(w, r, &body) {
		return
	}

	if err := h.portfolioService.SetTicker(r.Context(), nameParam(r), body.Ticker); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleExecuteTrade(w http.ResponseWriter, r *http.Request) {
	var trade model.Trade
	if !h.decode(w, r, &trade) {
		return
	}

	operation, err := h.portfolioService.ExecuteTrade(r.Context(), trade)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, tradeResponse{
		Type:       operation.Type,
		Name:       operation.Name,
		Ticker:     operation.Ticker,
		Quantity:   operation.Quantity,
		UnitPrice:  operation.UnitPrice.String(),
		TotalPrice: operation.TotalPrice.String(),
		CashAfter:  operation.CashAfter,
	})
}

func (h *Handler) HandleSetStockRatio(w http.ResponseWriter, r *http.Request) {
	var body struct {
		StockRatio string `json:"stockRatio"`
	}
	if !h.decode(w, r, &body) {
		return
	}

	if err := h.portfolioService.SetStockRatio(r.Context(), body.StockRatio); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleRefreshPrices(w http.ResponseWriter, r *http.Request) {
	if err := h.portfolioService.RefreshPrices(r.Context()); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// nameParam returns the decoded {name} segment. chi matches on RawPath when the
// request has one, only then is the param still escaped.
func nameParam(r *http.Request) string {
	name := chi.URLParam(r, "name")
	if r.URL.RawPath == "" {
		return name
	}
	if unescaped, err := url.PathUnescape(name); err == nil {
		return unescaped
	}
	return name
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func statusFromError(err error) int {
	switch {
	case errors.Is(err, metricsEngine.ErrParse),
		errors.Is(err, tradeExecutor.ErrInvalidTrade),
		errors.Is(err, service.ErrInvalidStockRatio),
		errors.Is(err, service.ErrInvalidHolding):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, metricsEngine.ErrDivisionByZero):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFromError(err)

	message := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("request failed", slog.String("rqID", utils.GetRequestIDFromCtx(r.Context())), slog.String("err", err.Error()))
		message = "internal error"
	}

	h.writeError(w, r, status, message)
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("rqID", utils.GetRequestIDFromCtx(r.Context())), slog.String("err", err.Error()))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.writeJSON(w, r, status, map[string]string{"error": message})
}
