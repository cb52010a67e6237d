package krxApi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/KotFed0t/kr_portfolio_manager/config"
	"github.com/KotFed0t/kr_portfolio_manager/internal/externalApi"
	"github.com/KotFed0t/kr_portfolio_manager/internal/model/krxModel"
	"github.com/KotFed0t/kr_portfolio_manager/utils"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const (
	dailyPricesUrl  = "/comm/bldAttendant/getJsonData.cmd"
	dailyPricesBld  = "dbms/MDC/STAT/standard/MDCSTAT01501"
	tradeDateLayout = "20060102"
)

type KrxApi struct {
	client       *resty.Client
	limiter      *rate.Limiter
	lookbackDays int
	location     *time.Location
	now          func() time.Time
}

func New(cfg *config.Config) *KrxApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.KrxApi.Url).
		SetHeader("User-Agent", "Mozilla/5.0").
		SetHeader("Referer", "http://data.krx.co.kr/contents/MDC/MDI/mdiLoader")

	location, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		location = time.FixedZone("KST", 9*60*60)
	}

	lookbackDays := cfg.API.KrxApi.LookbackDays
	if lookbackDays < 1 {
		lookbackDays = 1
	}

	return &KrxApi{
		client:       client,
		limiter:      rate.NewLimiter(rate.Limit(cfg.API.KrxApi.RateLimit), 1),
		lookbackDays: lookbackDays,
		location:     location,
		now:          time.Now,
	}
}

// GetLastSessionPrices returns closing prices keyed by ticker for the most
// recent trading session before today. Non-trading days come back empty from
// KRX, so the lookup walks back one day at a time.
func (a *KrxApi) GetLastSessionPrices(ctx context.Context) (map[string]int64, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "KrxApi.GetLastSessionPrices"

	day := a.now().In(a.location).AddDate(0, 0, -1)
	for i := 0; i < a.lookbackDays; i++ {
		prices, err := a.GetDailyPrices(ctx, day)
		if err != nil {
			return nil, err
		}

		if len(prices) > 0 {
			slog.Debug("found last trading session", slog.String("rqID", rqID), slog.String("op", op), slog.String("date", day.Format(tradeDateLayout)))
			res := make(map[string]int64, len(prices))
			for _, p := range prices {
				res[p.Ticker] = p.ClosePrice
			}
			return res, nil
		}

		day = day.AddDate(0, 0, -1)
	}

	slog.Warn("no trading session found", slog.String("rqID", rqID), slog.String("op", op), slog.Int("lookbackDays", a.lookbackDays))

	return nil, externalApi.ErrNotFound
}

// GetDailyPrices returns closing prices of every listed stock on date.
func (a *KrxApi) GetDailyPrices(ctx context.Context, date time.Time) ([]krxModel.DailyPrice, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	tradeDate := date.Format(tradeDateLayout)
	params := map[string]string{
		"bld":   dailyPricesBld,
		"mktId": "ALL",
		"trdDd": tradeDate,
	}

	slog.Debug("start KrxApi.GetDailyPrices request", slog.String("rqID", rqID), slog.String("trdDd", tradeDate))

	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetFormData(params).
		Post(dailyPricesUrl)

	if err != nil {
		slog.Error("error while dialing KrxApi", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, err
	}

	if resp.IsError() {
		slog.Error("unexpected KrxApi response status", slog.Int("status", resp.StatusCode()), slog.String("rqID", rqID))
		return nil, fmt.Errorf("krx api responded with status %d", resp.StatusCode())
	}

	rawPrices := krxModel.RawDailyPrices{}
	err = json.Unmarshal(resp.Body(), &rawPrices)
	if err != nil {
		slog.Error("can't unmarshall response into krxModel.RawDailyPrices", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, err
	}

	res, err := a.parseRawDailyPrices(rawPrices, date)
	if err != nil {
		slog.Error("can't parse raw data", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, err
	}

	slog.Debug("KrxApi.GetDailyPrices request complete", slog.String("rqID", rqID), slog.Int("count", len(res)))

	return res, nil
}

func (a *KrxApi) parseRawDailyPrices(raw krxModel.RawDailyPrices, date time.Time) ([]krxModel.DailyPrice, error) {
	res := make([]krxModel.DailyPrice, 0, len(raw.OutBlock1))

	for _, rawPrice := range raw.OutBlock1 {
		if rawPrice.Ticker == "" {
			return nil, fmt.Errorf("empty ticker for %q", rawPrice.Shortname)
		}

		// suspended issues come with "-" instead of a price
		closePrice := strings.ReplaceAll(strings.TrimSpace(rawPrice.ClosePrice), ",", "")
		if closePrice == "" || closePrice == "-" {
			continue
		}

		d, err := decimal.NewFromString(closePrice)
		if err != nil {
			return nil, fmt.Errorf("invalid close price %s = %q: %w", rawPrice.Ticker, rawPrice.ClosePrice, err)
		}

		res = append(res, krxModel.DailyPrice{
			Ticker:     rawPrice.Ticker,
			Shortname:  rawPrice.Shortname,
			ClosePrice: d.IntPart(),
			TradeDate:  date,
		})
	}

	return res, nil
}
