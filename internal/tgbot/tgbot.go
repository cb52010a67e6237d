package tgbot

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/KotFed0t/kr_portfolio_manager/config"
	"github.com/KotFed0t/kr_portfolio_manager/data/session"
	"github.com/KotFed0t/kr_portfolio_manager/internal/model"
	"github.com/KotFed0t/kr_portfolio_manager/internal/model/tg/tgCallback"
	"github.com/KotFed0t/kr_portfolio_manager/internal/transport/telegram"
	customMW "github.com/KotFed0t/kr_portfolio_manager/internal/transport/telegram/middleware"
	"github.com/KotFed0t/kr_portfolio_manager/utils"
	tele "gopkg.in/telebot.v4"
	"gopkg.in/telebot.v4/middleware"
)

type Session interface {
	GetSession(ctx context.Context, key string) (model.Session, error)
}

type TGBot struct {
	bot     *tele.Bot
	ctrl    *telegram.Controller
	session Session
}

func New(cfg *config.Config, ctrl *telegram.Controller, session Session) *TGBot {
	settings := tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: &tele.LongPoller{Timeout: cfg.Telegram.UpdTimeout},
	}

	b, err := tele.NewBot(settings)
	if err != nil {
		slog.Error("error while tele.NewBot", slog.String("err", err.Error()))
		panic(err)
	}

	return &TGBot{bot: b, ctrl: ctrl, session: session}
}

func (b *TGBot) Start() {
	b.bot.Use(middleware.Recover(), customMW.Logger())

	b.setupRoutes()

	go b.bot.Start()
	slog.Info("tgbot started!")
}

func (b *TGBot) Stop() {
	slog.Info("start stopping tgbot")
	b.bot.Stop()
	slog.Info("tgbot stopped")
}

func (b *TGBot) setupRoutes() {
	b.bot.Handle(tele.OnText, func(c tele.Context) error {
		// the trade dialog step decides which controller method gets the text
		ctx := utils.CreateCtxWithRqID(c)
		rqID := utils.GetRequestIDFromCtx(ctx)
		chatSession, err := b.session.GetSession(ctx, strconv.FormatInt(c.Chat().ID, 10))
		if err != nil {
			if errors.Is(err, session.ErrNotFound) {
				return c.Send("enter one of the commands first, /start for help")
			}
			slog.Error("got error from session.GetSession", slog.String("rqID", rqID), slog.String("err", err.Error()))
			return c.Send("something went wrong...")
		}

		c.Set("session", chatSession)

		switch chatSession.Action {
		case model.ExpectingTradeName:
			return b.ctrl.ProcessTradeName(c)
		case model.ExpectingTradePrice:
			return b.ctrl.ProcessTradePrice(c)
		case model.ExpectingTradeQuantity:
			return b.ctrl.ProcessTradeQuantity(c)
		default:
			slog.Warn("unexpected chatSession action", slog.String("rqID", rqID), slog.Any("action", chatSession.Action))
			return c.Send("enter one of the commands first, /start for help")
		}
	})

	b.bot.Handle("/start", b.ctrl.Start)
	b.bot.Handle("/portfolio", b.ctrl.Portfolio)
	b.bot.Handle("/ratio", b.ctrl.StockRatioOptions)
	b.bot.Handle("/trade", b.ctrl.InitTrade)
	b.bot.Handle("/weight", b.ctrl.SetTargetWeight)
	b.bot.Handle("/ticker", b.ctrl.SetTicker)
	b.bot.Handle("/add", b.ctrl.AddHolding)
	b.bot.Handle("/remove", b.ctrl.RemoveHolding)
	b.bot.Handle("/refresh", b.ctrl.RefreshPrices)
	b.bot.Handle("/report", b.ctrl.Report)

	b.bot.Handle(&tele.Btn{Unique: tgCallback.TradeBuy}, b.ctrl.ChooseTradeType(model.TradeBuy))
	b.bot.Handle(&tele.Btn{Unique: tgCallback.TradeSell}, b.ctrl.ChooseTradeType(model.TradeSell))
	b.bot.Handle(&tele.Btn{Unique: tgCallback.TradeCancel}, b.ctrl.CancelTrade)
	b.bot.Handle(&tele.Btn{Unique: tgCallback.RefreshPrice}, b.ctrl.RefreshPrices)
	b.bot.Handle(&tele.Btn{Unique: tgCallback.StockRatio}, b.ctrl.SetStockRatio)
}
