package krxApi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/KotFed0t/kr_portfolio_manager/config"
	"github.com/KotFed0t/kr_portfolio_manager/internal/externalApi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sessionResponse = `{"OutBlock_1":[
	{"ISU_SRT_CD":"005930","ISU_ABBRV":"삼성전자","TDD_CLSPRC":"71,000"},
	{"ISU_SRT_CD":"003230","ISU_ABBRV":"삼양식품","TDD_CLSPRC":"612,000"},
	{"ISU_SRT_CD":"481070","ISU_ABBRV":"에이유브랜즈","TDD_CLSPRC":"-"}
]}`

func newTestApi(t *testing.T, handler http.HandlerFunc, lookbackDays int) *KrxApi {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Config{}
	cfg.API.Timeout = 5 * time.Second
	cfg.API.KrxApi.Url = srv.URL
	cfg.API.KrxApi.RateLimit = 1000
	cfg.API.KrxApi.LookbackDays = lookbackDays

	api := New(cfg)
	// Tuesday morning in Seoul, yesterday is Monday
	api.now = func() time.Time { return time.Date(2025, 6, 3, 9, 0, 0, 0, api.location) }
	return api
}

func TestGetLastSessionPricesWalksBackOverHolidays(t *testing.T) {
	var mu sync.Mutex
	var requested []string
	api := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, dailyPricesUrl, r.URL.Path)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, dailyPricesBld, r.PostForm.Get("bld"))
		assert.Equal(t, "ALL", r.PostForm.Get("mktId"))

		trdDd := r.PostForm.Get("trdDd")
		mu.Lock()
		requested = append(requested, trdDd)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if trdDd == "20250530" {
			_, _ = w.Write([]byte(sessionResponse))
			return
		}
		_, _ = w.Write([]byte(`{"OutBlock_1":[]}`))
	}, 10)

	prices, err := api.GetLastSessionPrices(context.Background())
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"20250602", "20250601", "20250531", "20250530"}, requested)
	assert.Equal(t, map[string]int64{"005930": 71000, "003230": 612000}, prices)
}

func TestGetLastSessionPricesNotFound(t *testing.T) {
	var calls atomic.Int32
	api := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"OutBlock_1":[]}`))
	}, 3)

	_, err := api.GetLastSessionPrices(context.Background())
	assert.ErrorIs(t, err, externalApi.ErrNotFound)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGetDailyPricesServerError(t *testing.T) {
	api := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}, 1)

	_, err := api.GetDailyPrices(context.Background(), time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC))
	assert.Error(t, err)
}

func TestGetDailyPricesInvalidPrice(t *testing.T) {
	api := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"OutBlock_1":[{"ISU_SRT_CD":"005930","TDD_CLSPRC":"n/a"}]}`))
	}, 1)

	_, err := api.GetDailyPrices(context.Background(), time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC))
	assert.Error(t, err)
}
