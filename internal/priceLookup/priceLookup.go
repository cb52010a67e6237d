package priceLookup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/KotFed0t/kr_portfolio_manager/data/cache"
	"github.com/KotFed0t/kr_portfolio_manager/internal/model"
	"github.com/KotFed0t/kr_portfolio_manager/utils"
	"golang.org/x/sync/singleflight"
)

const (
	lastSessionKey = "last-session"
	// missingPrice is cached for tickers the last session has no price for.
	missingPrice = 0
	// failureBackoff is how long a failed source call is reused before retrying.
	failureBackoff = 30 * time.Second
)

type PriceSource interface {
	GetLastSessionPrices(ctx context.Context) (map[string]int64, error)
}

type PriceCache interface {
	GetPrice(ctx context.Context, ticker string) (int64, error)
	SetPrices(ctx context.Context, prices map[string]int64) error
	FlushPrices(ctx context.Context) error
}

// Lookup resolves tickers to last session closing prices. It never fails:
// whenever the price can't be resolved the fallback price is returned.
type Lookup struct {
	source   PriceSource
	cache    PriceCache
	fallback int64
	group    singleflight.Group
	now      func() time.Time

	mu        sync.Mutex
	lastErr   error
	lastErrAt time.Time
}

func New(source PriceSource, cache PriceCache, fallback int64) *Lookup {
	return &Lookup{source: source, cache: cache, fallback: fallback, now: time.Now}
}

func (l *Lookup) Price(ctx context.Context, ticker string) (price int64) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Lookup.Price"

	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic recovered in price lookup", slog.String("rqID", rqID), slog.String("op", op), slog.Any("panic", r))
			price = l.fallback
		}
	}()

	if ticker == "" || ticker == model.UnassignedTicker {
		return l.fallback
	}

	price, err := l.cache.GetPrice(ctx, ticker)
	if err == nil {
		if price <= missingPrice {
			return l.fallback
		}
		return price
	}

	if !errors.Is(err, cache.ErrCacheMiss) {
		slog.Warn("can't get price from cache", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	prices, err := l.fetch(ctx)
	if err != nil {
		slog.Warn("can't get price from source, using fallback", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker), slog.String("err", err.Error()))
		return l.fallback
	}

	price, ok := prices[ticker]
	if !ok || price <= 0 {
		slog.Warn("ticker has no price, using fallback", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker))
		if err := l.cache.SetPrices(ctx, map[string]int64{ticker: missingPrice}); err != nil {
			slog.Warn("can't store missing price marker", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
		return l.fallback
	}

	return price
}

// Warm loads the last session into the cache and reports held tickers the
// session has no price for.
func (l *Lookup) Warm(ctx context.Context, tickers []string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Lookup.Warm"

	prices, err := l.fetch(ctx)
	if err != nil {
		return fmt.Errorf("warm price cache: %w", err)
	}

	for _, ticker := range tickers {
		if _, ok := prices[ticker]; !ok {
			slog.Warn("held ticker missing in last session", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker))
		}
	}

	return nil
}

// Refresh drops every cached price and the failure back-off so the next
// lookup goes to the source.
func (l *Lookup) Refresh(ctx context.Context) error {
	l.mu.Lock()
	l.lastErr = nil
	l.mu.Unlock()

	return l.cache.FlushPrices(ctx)
}

func (l *Lookup) fetch(ctx context.Context) (map[string]int64, error) {
	if err := l.recentFailure(); err != nil {
		return nil, err
	}

	// the shared call must outlive any single caller, rqID stays in the values
	sharedCtx := context.WithoutCancel(ctx)

	v, err, _ := l.group.Do(lastSessionKey, func() (any, error) {
		rqID := utils.GetRequestIDFromCtx(sharedCtx)

		prices, err := l.source.GetLastSessionPrices(sharedCtx)
		if err != nil {
			l.mu.Lock()
			l.lastErr, l.lastErrAt = err, l.now()
			l.mu.Unlock()
			return nil, err
		}

		if err := l.cache.SetPrices(sharedCtx, prices); err != nil {
			slog.Warn("can't store prices in cache", slog.String("rqID", rqID), slog.String("err", err.Error()))
		}

		return prices, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(map[string]int64), nil
}

func (l *Lookup) recentFailure() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.lastErr != nil && l.now().Sub(l.lastErrAt) < failureBackoff {
		return fmt.Errorf("source failed %s ago: %w", l.now().Sub(l.lastErrAt).Round(time.Second), l.lastErr)
	}
	return nil
}
