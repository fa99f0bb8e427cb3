package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aitrader/internal/analysis/indicator"
	"aitrader/internal/gateway/exchange"
	"aitrader/internal/market"
)

type fakeCandles struct {
	fail map[string]bool
}

func (f fakeCandles) FetchCandles(_ context.Context, _ string, interval string, limit int) ([]market.Candle, error) {
	if f.fail[interval] {
		return nil, errors.New("timeout")
	}
	out := make([]market.Candle, limit)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range out {
		p := 100 + float64(i)
		out[i] = market.Candle{OpenTime: base.Add(time.Duration(i) * time.Hour).UnixMilli(), Open: p, High: p + 1, Low: p - 1, Close: p, Volume: 1}
	}
	return out, nil
}

type fakeBalances struct{ err error }

func (f fakeBalances) ReadBalances(context.Context, exchange.Market) (exchange.AccountSnapshot, error) {
	if f.err != nil {
		return exchange.AccountSnapshot{}, f.err
	}
	return exchange.AccountSnapshot{Market: exchange.MarketSpot, Balances: map[string]decimal.Decimal{
		"USDT": decimal.RequireFromString("250.5"),
		"BTC":  decimal.RequireFromString("0.01"),
	}}, nil
}

type fakeFNG struct{ v *int }

func (f fakeFNG) Latest(context.Context) market.FearGreed {
	if f.v == nil {
		return market.FearGreed{}
	}
	c := "Fear"
	return market.FearGreed{Value: f.v, Classification: &c}
}

type fakeChart struct{ err error }

func (f fakeChart) Render(context.Context, string, []market.Candle) ([]byte, error) {
	return []byte{0x89, 'P', 'N', 'G'}, f.err
}

func testOptions() Options {
	return Options{
		Symbol:     "BTCUSDT",
		BaseAsset:  "BTC",
		QuoteAsset: "USDT",
		Series: []Series{
			{Name: "day_30", Interval: "1d", Limit: 30, Indicators: true},
			{Name: "hour_24", Interval: "1h", Limit: 24, Indicators: false},
		},
		Indicators:  indicator.DefaultSettings(),
		ChartSeries: "hour_24",
	}
}

func TestCollectBuildsPayload(t *testing.T) {
	v := 40
	c := NewCollector(testOptions(), fakeCandles{}, fakeBalances{}, fakeFNG{v: &v}, nil, fakeChart{})
	snap, err := c.Collect(context.Background())
	require.NoError(t, err)

	p := snap.Payload
	assert.Equal(t, "BTCUSDT", p.Symbol)
	assert.Equal(t, map[string]string{"USDT": "250.5", "BTC": "0.01"}, p.Balance)
	require.Len(t, p.ChartData["day_30"], 30)
	require.Len(t, p.ChartData["hour_24"], 24)
	assert.Nil(t, p.ChartData["day_30"][0].SMA)
	assert.NotNil(t, p.ChartData["day_30"][29].SMA)
	assert.Nil(t, p.ChartData["hour_24"][23].RSI)
	assert.Equal(t, 40, *p.FearGreed.Value)
	assert.NotEmpty(t, snap.ChartPNG)
	assert.Empty(t, snap.Warnings)

	raw, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"fear_greed":{"value":40,"classification":"Fear"}`)
}

func TestCollectDegradesOptionalSources(t *testing.T) {
	c := NewCollector(testOptions(), fakeCandles{}, fakeBalances{err: errors.New("503")}, fakeFNG{}, nil, fakeChart{err: errors.New("no chrome")})
	snap, err := c.Collect(context.Background())
	require.NoError(t, err)
	assert.Nil(t, snap.Payload.Balance)
	assert.False(t, snap.Payload.FearGreed.Available())
	assert.Nil(t, snap.ChartPNG)
	assert.Len(t, snap.Warnings, 3)

	raw, err := json.Marshal(snap.Payload)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"fear_greed":{"value":null,"classification":null}`)
	assert.NotContains(t, string(raw), `"balance"`)
}

func TestCollectFailsWhenCandlesFail(t *testing.T) {
	c := NewCollector(testOptions(), fakeCandles{fail: map[string]bool{"1h": true}}, nil, nil, nil, nil)
	_, err := c.Collect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hour_24")
}
