package indicator

import (
	"math"
	"time"

	"github.com/markcheno/go-talib"

	"aitrader/internal/market"
)

// Settings 描述逐根 K 线附加指标的周期。
type Settings struct {
	RSIPeriod int
	SMAPeriod int
}

// DefaultSettings 为 RSI14 + SMA20。
func DefaultSettings() Settings {
	return Settings{RSIPeriod: 14, SMAPeriod: 20}
}

func (s Settings) normalized() Settings {
	if s.RSIPeriod < 2 {
		s.RSIPeriod = 14
	}
	if s.SMAPeriod < 1 {
		s.SMAPeriod = 20
	}
	return s
}

// Row 是喂给模型的单根 K 线；预热期内的指标字段省略。
type Row struct {
	Time   string   `json:"time"`
	Open   float64  `json:"open"`
	High   float64  `json:"high"`
	Low    float64  `json:"low"`
	Close  float64  `json:"close"`
	Volume float64  `json:"volume"`
	RSI    *float64 `json:"rsi,omitempty"`
	SMA    *float64 `json:"sma,omitempty"`
}

// Rows 把 K 线转成行记录，withIndicators 为 true 时附加 RSI/SMA。
func Rows(candles []market.Candle, withIndicators bool, s Settings) []Row {
	rows := make([]Row, len(candles))
	for i, c := range candles {
		rows[i] = Row{
			Time:   time.UnixMilli(c.OpenTime).UTC().Format(time.RFC3339),
			Open:   c.Open,
			High:   c.High,
			Low:    c.Low,
			Close:  c.Close,
			Volume: c.Volume,
		}
	}
	if !withIndicators || len(candles) == 0 {
		return rows
	}
	closes := market.Closes(candles)
	s = s.normalized()
	rsi := RSI(closes, s.RSIPeriod)
	sma := SMA(closes, s.SMAPeriod)
	for i := range rows {
		rows[i].RSI = nullable(rsi[i])
		rows[i].SMA = nullable(sma[i])
	}
	return rows
}

// RSI 返回与输入等长的序列，预热期为 NaN。
func RSI(closes []float64, period int) []float64 {
	out := nanSeries(len(closes))
	if period < 2 || len(closes) <= period {
		return out
	}
	raw := talib.Rsi(closes, period)
	for i := period; i < len(raw); i++ {
		out[i] = round4(raw[i])
	}
	return out
}

// SMA 返回与输入等长的序列，预热期为 NaN。
func SMA(closes []float64, period int) []float64 {
	out := nanSeries(len(closes))
	if period < 1 || len(closes) < period {
		return out
	}
	raw := talib.Sma(closes, period)
	for i := period - 1; i < len(raw); i++ {
		out[i] = round4(raw[i])
	}
	return out
}

// Latest 返回序列最后一个有效值。
func Latest(series []float64) (float64, bool) {
	for i := len(series) - 1; i >= 0; i-- {
		if !math.IsNaN(series[i]) && !math.IsInf(series[i], 0) {
			return series[i], true
		}
	}
	return 0, false
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
