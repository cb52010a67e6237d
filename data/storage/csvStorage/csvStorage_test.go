package csvStorage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/KotFed0t/kr_portfolio_manager/data/repository"
	"github.com/KotFed0t/kr_portfolio_manager/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kr.csv")
	s := New(path)

	records := []model.HoldingRecord{
		{Name: "삼성전자", Ticker: "005930", Quantity: 5755, TargetWeight: "2.09%"},
		{Name: "Comma, Inc", Ticker: model.UnassignedTicker, Quantity: 0, TargetWeight: "0.00%"},
	}
	require.NoError(t, s.Save(ctx, records))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, utf8BOM, data[:3])
	assert.Contains(t, string(data), "name,ticker,quantity,targetWeightWithinEquity\n")

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, records, loaded)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestSaveOverwrites(t *testing.T) {
	ctx := context.Background()
	s := New(filepath.Join(t.TempDir(), "kr.csv"))

	require.NoError(t, s.Save(ctx, []model.HoldingRecord{{Name: "A", Ticker: "1", Quantity: 1, TargetWeight: "1%"}, {Name: "B", Ticker: "2", Quantity: 2, TargetWeight: "2%"}}))
	require.NoError(t, s.Save(ctx, []model.HoldingRecord{{Name: "A", Ticker: "1", Quantity: 5, TargetWeight: "1%"}}))

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.HoldingRecord{{Name: "A", Ticker: "1", Quantity: 5, TargetWeight: "1%"}}, loaded)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "absent.csv")).Load(context.Background())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestLoadKoreanHeaderWithComputedColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kr.csv")
	content := "\ufeff종목명,종목코드,수량,목표비중(주식내),현재가\n" +
		"카이카,381970,33872,12.3%,\"4,215\"\n" +
		"삼양식품,003230,124,0.05%,\"612,000\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	loaded, err := New(path).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.HoldingRecord{
		{Name: "카이카", Ticker: "381970", Quantity: 33872, TargetWeight: "12.3%"},
		{Name: "삼양식품", Ticker: "003230", Quantity: 124, TargetWeight: "0.05%"},
	}, loaded)
}

func TestLoadInvalidFiles(t *testing.T) {
	tests := map[string]string{
		"missing column":     "name,ticker,quantity\nA,1,1\n",
		"negative quantity":  "name,ticker,quantity,targetWeightWithinEquity\nA,1,-1,1%\n",
		"invalid quantity":   "name,ticker,quantity,targetWeightWithinEquity\nA,1,many,1%\n",
		"duplicate name":     "name,ticker,quantity,targetWeightWithinEquity\nA,1,1,1%\nA,2,2,2%\n",
		"empty name":         "name,ticker,quantity,targetWeightWithinEquity\n,1,1,1%\n",
		"empty file":         "",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "kr.csv")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

			_, err := New(path).Load(context.Background())
			assert.Error(t, err)
			assert.NotErrorIs(t, err, repository.ErrNotFound)
		})
	}
}
