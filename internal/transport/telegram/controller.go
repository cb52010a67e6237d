package telegram

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/KotFed0t/kr_portfolio_manager/data/session"
	"github.com/KotFed0t/kr_portfolio_manager/internal/converter/telebotConverter"
	"github.com/KotFed0t/kr_portfolio_manager/internal/metricsEngine"
	"github.com/KotFed0t/kr_portfolio_manager/internal/model"
	"github.com/KotFed0t/kr_portfolio_manager/internal/service"
	"github.com/KotFed0t/kr_portfolio_manager/internal/tradeExecutor"
	"github.com/KotFed0t/kr_portfolio_manager/utils"
	tele "gopkg.in/telebot.v4"
)

const (
	internalErrMsg = "something went wrong..."
	helpMsg        = `Commands:
/portfolio - metrics table
/trade - record a buy or sell
/ratio - change stock ratio
/weight <name> <pct> - set target weight
/ticker <name> <code> - set ticker
/add <name> <ticker> <qty> <pct> - add holding
/remove <name> - remove holding
/refresh - refresh prices
/report - xlsx report`
)

type PortfolioService interface {
	GetMetrics(ctx context.Context) (model.PortfolioReport, error)
	ExecuteTrade(ctx context.Context, trade model.Trade) (model.TradeOperation, error)
	SetTargetWeight(ctx context.Context, name, weight string) error
	SetTicker(ctx context.Context, name, ticker string) error
	AddHolding(ctx context.Context, record model.HoldingRecord) (model.Holding, error)
	RemoveHolding(ctx context.Context, name string) error
	SetStockRatio(ctx context.Context, ratio string) error
	StockRatio() float64
	StockRatioOptions() []string
	RefreshPrices(ctx context.Context) error
	GenerateReport(ctx context.Context) (link string, err error)
}

type Session interface {
	GetSession(ctx context.Context, key string) (model.Session, error)
	SetSession(ctx context.Context, key string, session model.Session) error
	DeleteSession(ctx context.Context, key string) error
}

type Controller struct {
	portfolioService PortfolioService
	session          Session
}

func NewController(portfolioService PortfolioService, session Session) *Controller {
	return &Controller{
		portfolioService: portfolioService,
		session:          session,
	}
}

func (ctrl *Controller) Start(c tele.Context) error {
	return c.Reply("Hello!\n\n" + helpMsg)
}

func (ctrl *Controller) Portfolio(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	report, err := ctrl.portfolioService.GetMetrics(ctx)
	if err != nil {
		slog.Error("got error from portfolioService.GetMetrics", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(errorMessage(err))
	}

	return c.Send(telebotConverter.PortfolioResponse(report))
}

func (ctrl *Controller) RefreshPrices(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	if err := ctrl.portfolioService.RefreshPrices(ctx); err != nil {
		return c.Send(internalErrMsg)
	}

	if c.Callback() != nil {
		_ = c.Respond(&tele.CallbackResponse{Text: "prices refreshed"})
	}

	return ctrl.Portfolio(c)
}

func (ctrl *Controller) Report(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	link, err := ctrl.portfolioService.GenerateReport(ctx)
	if err != nil {
		slog.Error("got error from portfolioService.GenerateReport", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(errorMessage(err))
	}

	return c.Send("📄 Report: " + link)
}

func (ctrl *Controller) StockRatioOptions(c tele.Context) error {
	return c.Send(telebotConverter.StockRatioResponse(ctrl.portfolioService.StockRatioOptions(), ctrl.portfolioService.StockRatio()))
}

func (ctrl *Controller) SetStockRatio(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	err := ctrl.portfolioService.SetStockRatio(ctx, c.Callback().Data)
	if err != nil {
		_ = c.Respond(&tele.CallbackResponse{Text: errorMessage(err)})
		return nil
	}

	_ = c.Respond(&tele.CallbackResponse{Text: "stock ratio set to " + c.Callback().Data})
	return c.Edit(telebotConverter.StockRatioResponse(ctrl.portfolioService.StockRatioOptions(), ctrl.portfolioService.StockRatio()))
}

func (ctrl *Controller) SetTargetWeight(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	name, rest, ok := splitNameArgs(c.Args(), 1)
	if !ok {
		return c.Send("usage: /weight <name> <pct>")
	}

	if err := ctrl.portfolioService.SetTargetWeight(ctx, name, rest[0]); err != nil {
		return c.Send(errorMessage(err))
	}

	return c.Send("✅ target weight of " + name + " set to " + rest[0])
}

func (ctrl *Controller) SetTicker(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	name, rest, ok := splitNameArgs(c.Args(), 1)
	if !ok {
		return c.Send("usage: /ticker <name> <code>")
	}

	if err := ctrl.portfolioService.SetTicker(ctx, name, rest[0]); err != nil {
		return c.Send(errorMessage(err))
	}

	return c.Send("✅ ticker of " + name + " set to " + rest[0])
}

func (ctrl *Controller) AddHolding(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	name, rest, ok := splitNameArgs(c.Args(), 3)
	if !ok {
		return c.Send("usage: /add <name> <ticker> <qty> <pct>")
	}

	quantity, err := strconv.ParseInt(rest[1], 10, 64)
	if err != nil {
		return c.Send("quantity must be an integer")
	}

	holding, err := ctrl.portfolioService.AddHolding(ctx, model.HoldingRecord{
		Name:         name,
		Ticker:       rest[0],
		Quantity:     quantity,
		TargetWeight: rest[2],
	})
	if err != nil {
		return c.Send(errorMessage(err))
	}

	return c.Send("✅ added " + holding.Name + " (" + holding.Ticker + ")")
}

func (ctrl *Controller) RemoveHolding(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	name := strings.Join(c.Args(), " ")
	if name == "" {
		return c.Send("usage: /remove <name>")
	}

	if err := ctrl.portfolioService.RemoveHolding(ctx, name); err != nil {
		return c.Send(errorMessage(err))
	}

	return c.Send("✅ removed " + name)
}

// InitTrade starts the trade dialog: type -> name -> unit price -> quantity.
func (ctrl *Controller) InitTrade(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	_ = ctrl.session.DeleteSession(ctx, chatKey(c))
	return c.Send(telebotConverter.TradeTypeResponse())
}

func (ctrl *Controller) ChooseTradeType(tradeType model.TradeType) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := utils.CreateCtxWithRqID(c)
		rqID := utils.GetRequestIDFromCtx(ctx)

		chatSession := model.Session{Action: model.ExpectingTradeName, TradeType: tradeType}
		err := ctrl.session.SetSession(ctx, chatKey(c), chatSession)
		if err != nil {
			slog.Error("got error from session.SetSession", slog.String("rqID", rqID), slog.String("err", err.Error()))
			return c.Send(internalErrMsg)
		}

		_ = c.Respond()
		return c.Edit("Enter holding name:")
	}
}

func (ctrl *Controller) CancelTrade(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	_ = ctrl.session.DeleteSession(ctx, chatKey(c))
	_ = c.Respond()
	return c.Edit("Trade cancelled")
}

func (ctrl *Controller) ProcessTradeName(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	name := strings.TrimSpace(c.Text())
	if name == "" {
		return c.Send("Enter holding name:")
	}

	chatSession.Name = name
	chatSession.Action = model.ExpectingTradePrice
	if err = ctrl.session.SetSession(ctx, chatKey(c), chatSession); err != nil {
		return c.Send(internalErrMsg)
	}

	return c.Send("Enter unit price:")
}

func (ctrl *Controller) ProcessTradePrice(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	price, err := parseAmount(c.Text())
	if err != nil || price < 0 {
		return c.Send("unit price must be a non-negative integer, try again:")
	}

	chatSession.UnitPrice = price
	chatSession.Action = model.ExpectingTradeQuantity
	if err = ctrl.session.SetSession(ctx, chatKey(c), chatSession); err != nil {
		return c.Send(internalErrMsg)
	}

	return c.Send("Enter quantity:")
}

func (ctrl *Controller) ProcessTradeQuantity(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	quantity, err := parseAmount(c.Text())
	if err != nil || quantity < 1 {
		return c.Send("quantity must be a positive integer, try again:")
	}

	_ = ctrl.session.DeleteSession(ctx, chatKey(c))

	operation, err := ctrl.portfolioService.ExecuteTrade(ctx, model.Trade{
		Type:      chatSession.TradeType,
		Name:      chatSession.Name,
		UnitPrice: chatSession.UnitPrice,
		Quantity:  quantity,
	})
	if err != nil {
		slog.Error("got error from portfolioService.ExecuteTrade", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(errorMessage(err))
	}

	return c.Send(telebotConverter.TradeResultResponse(operation))
}

func (ctrl *Controller) getSessionFromTeleCtxOrStorage(ctx context.Context, c tele.Context) (model.Session, error) {
	chatSession, ok := c.Get("session").(model.Session)
	if ok {
		return chatSession, nil
	}

	rqID := utils.GetRequestIDFromCtx(ctx)
	chatSession, err := ctrl.session.GetSession(ctx, chatKey(c))
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			slog.Error("got error from session.GetSession", slog.String("rqID", rqID), slog.String("err", err.Error()))
		}
		return model.Session{}, err
	}
	return chatSession, nil
}

func chatKey(c tele.Context) string {
	return strconv.FormatInt(c.Chat().ID, 10)
}

// splitNameArgs treats the last fixed args as parameters and joins the rest
// into the holding name, so names with spaces still work.
func splitNameArgs(args []string, fixed int) (name string, rest []string, ok bool) {
	if len(args) < fixed+1 {
		return "", nil, false
	}
	split := len(args) - fixed
	return strings.Join(args[:split], " "), args[split:], true
}

func parseAmount(s string) (int64, error) {
	return strconv.ParseInt(strings.ReplaceAll(strings.TrimSpace(s), ",", ""), 10, 64)
}

func errorMessage(err error) string {
	var parseErr *metricsEngine.ParseError
	switch {
	case errors.As(err, &parseErr):
		return "⚠️ malformed target weight " + strconv.Quote(parseErr.Value) + " for " + parseErr.Row
	case errors.Is(err, metricsEngine.ErrParse):
		return "⚠️ malformed percentage"
	case errors.Is(err, metricsEngine.ErrDivisionByZero):
		return "⚠️ NAV is zero, metrics can't be computed"
	case errors.Is(err, tradeExecutor.ErrInvalidTrade):
		return "⚠️ invalid trade: " + err.Error()
	case errors.Is(err, service.ErrNotFound):
		return "⚠️ holding not found"
	case errors.Is(err, service.ErrAlreadyExists):
		return "⚠️ holding already exists"
	case errors.Is(err, service.ErrInvalidStockRatio):
		return "⚠️ stock ratio must be one of 50%…100%"
	case errors.Is(err, service.ErrInvalidHolding):
		return "⚠️ " + err.Error()
	default:
		return internalErrMsg
	}
}
