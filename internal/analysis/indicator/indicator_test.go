package indicator

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aitrader/internal/market"
)

func rampCandles(n int) []market.Candle {
	out := make([]market.Candle, n)
	for i := range out {
		price := 100 + float64(i)
		out[i] = market.Candle{OpenTime: int64(i) * 3600_000, Open: price, High: price + 1, Low: price - 1, Close: price, Volume: 1}
	}
	return out
}

func TestSMAWarmupAndValues(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5}
	sma := SMA(closes, 3)
	require.Len(t, sma, 5)
	assert.True(t, math.IsNaN(sma[0]))
	assert.True(t, math.IsNaN(sma[1]))
	assert.InDelta(t, 2, sma[2], 1e-9)
	assert.InDelta(t, 4, sma[4], 1e-9)
}

func TestShortSeriesStaysEmpty(t *testing.T) {
	rsi := RSI([]float64{1, 2, 3}, 14)
	_, ok := Latest(rsi)
	assert.False(t, ok)
	sma := SMA([]float64{1, 2}, 20)
	_, ok = Latest(sma)
	assert.False(t, ok)
}

func TestRSIOnRisingSeries(t *testing.T) {
	closes := market.Closes(rampCandles(30))
	rsi := RSI(closes, 14)
	assert.True(t, math.IsNaN(rsi[13]))
	v, ok := Latest(rsi)
	require.True(t, ok)
	assert.InDelta(t, 100, v, 1e-6)
}

func TestRowsSerializeWarmupAsOmitted(t *testing.T) {
	rows := Rows(rampCandles(24), true, DefaultSettings())
	require.Len(t, rows, 24)
	assert.Nil(t, rows[0].SMA)
	assert.Nil(t, rows[0].RSI)
	require.NotNil(t, rows[23].SMA)
	assert.InDelta(t, 113.5, *rows[23].SMA, 1e-9)

	raw, err := json.Marshal(rows[0])
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "sma")
	assert.Contains(t, string(raw), `"time":"1970-01-01T00:00:00Z"`)

	plain := Rows(rampCandles(24), false, DefaultSettings())
	assert.Nil(t, plain[23].SMA)
}
