// Package snapshot 汇总每轮发给模型的行情上下文。
package snapshot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"aitrader/internal/analysis/indicator"
	"aitrader/internal/gateway/exchange"
	"aitrader/internal/logger"
	"aitrader/internal/market"
)

type Series struct {
	Name       string
	Interval   string
	Limit      int
	Indicators bool
}

type BalanceReader interface {
	ReadBalances(ctx context.Context, m exchange.Market) (exchange.AccountSnapshot, error)
}

type FearGreedSource interface {
	Latest(ctx context.Context) market.FearGreed
}

type HeadlineSource interface {
	Headlines(ctx context.Context) ([]market.Headline, error)
}

// ChartRenderer 把 K 线序列渲染为 PNG 截图。
type ChartRenderer interface {
	Render(ctx context.Context, title string, candles []market.Candle) ([]byte, error)
}

// Payload 序列化后作为 user 消息。
type Payload struct {
	Symbol    string                     `json:"symbol"`
	Time      string                     `json:"time"`
	Balance   map[string]string          `json:"balance,omitempty"`
	ChartData map[string][]indicator.Row `json:"chart_data"`
	FearGreed market.FearGreed           `json:"fear_greed"`
	News      []market.Headline          `json:"news,omitempty"`
}

type Snapshot struct {
	Payload  Payload
	ChartPNG []byte
	Warnings []string
}

type Options struct {
	Symbol      string
	BaseAsset   string
	QuoteAsset  string
	Series      []Series
	Indicators  indicator.Settings
	ChartSeries string
}

// Collector 并发拉取各数据源。K 线必需；余额、情绪、新闻、图表失败只记警告。
type Collector struct {
	opts     Options
	candles  market.CandleSource
	balances BalanceReader
	fng      FearGreedSource
	news     HeadlineSource
	chart    ChartRenderer
	nowFn    func() time.Time
}

// NewCollector 的可选数据源均可传 nil。
func NewCollector(opts Options, candles market.CandleSource, balances BalanceReader, fng FearGreedSource, news HeadlineSource, chart ChartRenderer) *Collector {
	return &Collector{
		opts:     opts,
		candles:  candles,
		balances: balances,
		fng:      fng,
		news:     news,
		chart:    chart,
		nowFn:    time.Now,
	}
}

func (c *Collector) Collect(ctx context.Context) (*Snapshot, error) {
	if c.candles == nil {
		return nil, fmt.Errorf("snapshot: candle source not configured")
	}
	if len(c.opts.Series) == 0 {
		return nil, fmt.Errorf("snapshot: no candle series configured")
	}

	var (
		mu       sync.Mutex
		raw      = make(map[string][]market.Candle, len(c.opts.Series))
		snap     = &Snapshot{}
		warnings []string
	)
	warn := func(format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		logger.Warnf("snapshot: %s", msg)
		mu.Lock()
		warnings = append(warnings, msg)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range c.opts.Series {
		s := s
		g.Go(func() error {
			candles, err := c.candles.FetchCandles(gctx, c.opts.Symbol, s.Interval, s.Limit)
			if err != nil {
				return fmt.Errorf("fetch %s candles (%s x%d): %w", s.Name, s.Interval, s.Limit, err)
			}
			mu.Lock()
			raw[s.Name] = candles
			mu.Unlock()
			return nil
		})
	}

	// 可选数据源使用父 ctx，K 线失败时不会把它们中途取消。
	var side sync.WaitGroup
	var balance map[string]string
	if c.balances != nil {
		side.Add(1)
		go func() {
			defer side.Done()
			acct, err := c.balances.ReadBalances(ctx, exchange.MarketSpot)
			if err != nil {
				warn("balance unavailable: %v", err)
				return
			}
			balance = map[string]string{
				c.opts.QuoteAsset: acct.Free(c.opts.QuoteAsset).String(),
				c.opts.BaseAsset:  acct.Free(c.opts.BaseAsset).String(),
			}
		}()
	}
	var fng market.FearGreed
	if c.fng != nil {
		side.Add(1)
		go func() {
			defer side.Done()
			fng = c.fng.Latest(ctx)
			if !fng.Available() {
				warn("fear & greed index unavailable")
			}
		}()
	}
	var news []market.Headline
	if c.news != nil {
		side.Add(1)
		go func() {
			defer side.Done()
			items, err := c.news.Headlines(ctx)
			if err != nil {
				warn("news unavailable: %v", err)
			}
			news = items
		}()
	}

	err := g.Wait()
	side.Wait()
	if err != nil {
		return nil, err
	}

	chartData := make(map[string][]indicator.Row, len(raw))
	for _, s := range c.opts.Series {
		chartData[s.Name] = indicator.Rows(raw[s.Name], s.Indicators, c.opts.Indicators)
	}
	snap.Payload = Payload{
		Symbol:    c.opts.Symbol,
		Time:      c.nowFn().UTC().Format(time.RFC3339),
		Balance:   balance,
		ChartData: chartData,
		FearGreed: fng,
		News:      news,
	}

	if c.chart != nil && c.opts.ChartSeries != "" {
		if candles := raw[c.opts.ChartSeries]; len(candles) > 0 {
			title := fmt.Sprintf("%s %s", c.opts.Symbol, c.opts.ChartSeries)
			png, err := c.chart.Render(ctx, title, candles)
			if err != nil {
				warn("chart render failed: %v", err)
			} else {
				snap.ChartPNG = png
			}
		}
	}
	snap.Warnings = warnings
	return snap, nil
}
