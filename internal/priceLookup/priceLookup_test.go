package priceLookup

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/KotFed0t/kr_portfolio_manager/data/cache"
	"github.com/KotFed0t/kr_portfolio_manager/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	prices map[string]int64
	err    error
	calls  atomic.Int32
	panics bool
	// honorCtx makes the source fail on a cancelled context like an HTTP client would.
	honorCtx bool
}

func (f *fakeSource) GetLastSessionPrices(ctx context.Context) (map[string]int64, error) {
	f.calls.Add(1)
	if f.panics {
		panic("boom")
	}
	if f.honorCtx && ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.prices, nil
}

func TestPriceUsesCacheAfterFirstLookup(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{prices: map[string]int64{"005930": 71000, "003230": 612000}}
	lookup := New(source, cache.NewMemoryCache(15*time.Minute), 1000)

	assert.Equal(t, int64(71000), lookup.Price(ctx, "005930"))
	assert.Equal(t, int64(612000), lookup.Price(ctx, "003230"))
	assert.Equal(t, int64(71000), lookup.Price(ctx, "005930"))
	assert.Equal(t, int32(1), source.calls.Load())
}

func TestPriceFallback(t *testing.T) {
	ctx := context.Background()

	t.Run("source error", func(t *testing.T) {
		source := &fakeSource{err: errors.New("connection refused")}
		lookup := New(source, cache.NewMemoryCache(time.Minute), 1000)
		assert.Equal(t, int64(1000), lookup.Price(ctx, "005930"))
	})

	t.Run("unknown ticker", func(t *testing.T) {
		source := &fakeSource{prices: map[string]int64{"005930": 71000}}
		lookup := New(source, cache.NewMemoryCache(time.Minute), 1000)
		assert.Equal(t, int64(1000), lookup.Price(ctx, "999999"))
	})

	t.Run("unassigned ticker", func(t *testing.T) {
		source := &fakeSource{prices: map[string]int64{}}
		lookup := New(source, cache.NewMemoryCache(time.Minute), 1000)
		assert.Equal(t, int64(1000), lookup.Price(ctx, model.UnassignedTicker))
		assert.Zero(t, source.calls.Load())
	})

	t.Run("panicking source", func(t *testing.T) {
		source := &fakeSource{panics: true}
		lookup := New(source, cache.NewMemoryCache(time.Minute), 1000)
		assert.Equal(t, int64(1000), lookup.Price(ctx, "005930"))
	})
}

func TestFallbackIsNotCached(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{err: errors.New("timeout")}
	lookup := New(source, cache.NewMemoryCache(time.Hour), 1000)
	now := time.Date(2026, 10, 16, 15, 0, 0, 0, time.UTC)
	lookup.now = func() time.Time { return now }

	assert.Equal(t, int64(1000), lookup.Price(ctx, "005930"))

	source.err = nil
	source.prices = map[string]int64{"005930": 71000}
	now = now.Add(failureBackoff)
	assert.Equal(t, int64(71000), lookup.Price(ctx, "005930"))
	assert.Equal(t, int32(2), source.calls.Load())
}

func TestUnknownTickerIsFetchedOnce(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{prices: map[string]int64{"005930": 71000}}
	lookup := New(source, cache.NewMemoryCache(time.Hour), 1000)

	for i := 0; i < 5; i++ {
		assert.Equal(t, int64(1000), lookup.Price(ctx, "999999"))
	}
	assert.Equal(t, int64(71000), lookup.Price(ctx, "005930"))
	assert.Equal(t, int32(1), source.calls.Load())
}

func TestFailingSourceBacksOff(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{err: errors.New("connection refused")}
	lookup := New(source, cache.NewMemoryCache(time.Hour), 1000)
	now := time.Date(2026, 10, 16, 15, 0, 0, 0, time.UTC)
	lookup.now = func() time.Time { return now }

	for i := 0; i < 5; i++ {
		assert.Equal(t, int64(1000), lookup.Price(ctx, "005930"))
	}
	assert.Equal(t, int32(1), source.calls.Load())

	err := lookup.Warm(ctx, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, source.err)
	assert.Equal(t, int32(1), source.calls.Load())

	now = now.Add(failureBackoff - time.Second)
	assert.Equal(t, int64(1000), lookup.Price(ctx, "005930"))
	assert.Equal(t, int32(1), source.calls.Load())

	now = now.Add(time.Second)
	assert.Equal(t, int64(1000), lookup.Price(ctx, "005930"))
	assert.Equal(t, int32(2), source.calls.Load())
}

func TestRefreshClearsBackoff(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{err: errors.New("timeout")}
	lookup := New(source, cache.NewMemoryCache(time.Hour), 1000)

	assert.Equal(t, int64(1000), lookup.Price(ctx, "005930"))

	source.err = nil
	source.prices = map[string]int64{"005930": 71000}
	require.NoError(t, lookup.Refresh(ctx))
	assert.Equal(t, int64(71000), lookup.Price(ctx, "005930"))
	assert.Equal(t, int32(2), source.calls.Load())
}

func TestSharedFetchIgnoresCallerCancel(t *testing.T) {
	source := &fakeSource{prices: map[string]int64{"005930": 71000}, honorCtx: true}
	lookup := New(source, cache.NewMemoryCache(time.Hour), 1000)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, int64(71000), lookup.Price(cancelled, "005930"))
	assert.Equal(t, int64(71000), lookup.Price(context.Background(), "005930"))
	assert.Equal(t, int32(1), source.calls.Load())
}

func TestRefreshForcesNewLookup(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{prices: map[string]int64{"005930": 71000}}
	lookup := New(source, cache.NewMemoryCache(time.Hour), 1000)

	lookup.Price(ctx, "005930")
	require.NoError(t, lookup.Refresh(ctx))
	lookup.Price(ctx, "005930")

	assert.Equal(t, int32(2), source.calls.Load())
}

func TestConcurrentLookups(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{prices: map[string]int64{"A": 1, "B": 2, "C": 3}}
	lookup := New(source, cache.NewMemoryCache(time.Hour), 1000)

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		ticker := []string{"A", "B", "C"}[i%3]
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, map[string]int64{"A": 1, "B": 2, "C": 3}[ticker], lookup.Price(ctx, ticker))
		}()
	}
	wg.Wait()
}

func TestWarm(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{prices: map[string]int64{"A": 1}}
	lookup := New(source, cache.NewMemoryCache(time.Hour), 1000)

	require.NoError(t, lookup.Warm(ctx, []string{"A", "B"}))
	assert.Equal(t, int64(1), lookup.Price(ctx, "A"))
	assert.Equal(t, int32(1), source.calls.Load())

	source.err = errors.New("down")
	require.NoError(t, lookup.Refresh(ctx))
	assert.Error(t, lookup.Warm(ctx, []string{"A"}))
}
