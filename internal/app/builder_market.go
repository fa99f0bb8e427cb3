package app

import (
	"context"
	"time"

	"aitrader/internal/account"
	"aitrader/internal/analysis/indicator"
	"aitrader/internal/analysis/visual"
	"aitrader/internal/config"
	"aitrader/internal/gateway/binance"
	"aitrader/internal/market"
	"aitrader/internal/snapshot"
)

const newsTimeout = 10 * time.Second

type chartRenderer interface {
	Render(ctx context.Context, title string, candles []market.Candle) ([]byte, error)
}

func buildVenue(cfg config.ExchangeConfig) (Venue, error) {
	client, err := binance.New(binance.Config{
		APIKey:         cfg.APIKey,
		SecretKey:      cfg.SecretKey,
		SpotBaseURL:    cfg.SpotBaseURL,
		FuturesBaseURL: cfg.FuturesBaseURL,
		HTTPTimeout:    cfg.HTTPTimeout,
		ProxyURL:       cfg.ProxyURL,
		Testnet:        cfg.Testnet,
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

func buildChartRenderer(cfg config.ChartConfig) chartRenderer {
	if !cfg.Enabled {
		return nil
	}
	return visual.NewRenderer(cfg.Width, cfg.Height, cfg.Timeout)
}

// buildCollector 组装每轮的行情上下文：K 线必选，其余按配置开启。
func buildCollector(cfg *config.Config, candles market.CandleSource, accounts *account.Reader, chart chartRenderer) *snapshot.Collector {
	series := make([]snapshot.Series, 0, len(cfg.Market.Series))
	for _, s := range cfg.Market.Series {
		series = append(series, snapshot.Series{
			Name:       s.Name,
			Interval:   s.Interval,
			Limit:      s.Limit,
			Indicators: s.Indicators,
		})
	}
	opts := snapshot.Options{
		Symbol:     cfg.Trading.Symbol,
		BaseAsset:  cfg.Trading.BaseAsset,
		QuoteAsset: cfg.Trading.QuoteAsset,
		Series:     series,
		Indicators: indicator.DefaultSettings(),
	}

	var fng snapshot.FearGreedSource
	if fg := cfg.Market.FearGreed; fg.Enabled {
		fng = market.NewFearGreedService(market.FearGreedOptions{URL: fg.URL, Timeout: fg.Timeout, TTL: fg.TTL})
	}
	var news snapshot.HeadlineSource
	if n := cfg.Market.News; n.Enabled && len(n.Sources) > 0 {
		sources := make([]market.NewsSource, 0, len(n.Sources))
		for _, s := range n.Sources {
			sources = append(sources, market.NewsSource{Name: s.Name, URL: s.URL, ItemSelector: s.ItemSelector})
		}
		news = market.NewNewsScraper(sources, n.MaxItems, newsTimeout)
	}
	var renderer snapshot.ChartRenderer
	if chart != nil {
		renderer = chart
		opts.ChartSeries = cfg.Market.Chart.Series
	}
	return snapshot.NewCollector(opts, candles, accounts, fng, news, renderer)
}
