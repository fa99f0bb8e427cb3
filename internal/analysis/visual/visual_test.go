package visual

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aitrader/internal/market"
)

func sampleCandles(n int) []market.Candle {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	out := make([]market.Candle, n)
	for i := range out {
		p := 60000 + float64(i*10)
		out[i] = market.Candle{OpenTime: base.Add(time.Duration(i) * time.Hour).UnixMilli(), Open: p, High: p + 20, Low: p - 20, Close: p + 5, Volume: 3}
	}
	return out
}

func TestBuildHTML(t *testing.T) {
	r := NewRenderer(0, 0, 0)
	html, err := r.BuildHTML("BTCUSDT hour_24", sampleCandles(24))
	require.NoError(t, err)
	s := string(html)
	assert.Contains(t, s, "BTCUSDT hour_24")
	assert.Contains(t, s, "SMA20")
	assert.Contains(t, s, "Volume")
	assert.Contains(t, s, "03-01 00:00")
}

func TestBuildHTMLRequiresCandles(t *testing.T) {
	_, err := NewRenderer(800, 600, time.Second).BuildHTML("empty", nil)
	assert.Error(t, err)
}

func TestToLineDataDropsWarmup(t *testing.T) {
	line := toLineData([]float64{math.NaN(), 1.23456})
	assert.Nil(t, line[0].Value)
	assert.Equal(t, 1.2346, line[1].Value)
}
