package config

import (
	"strings"
	"time"

	"aitrader/internal/pkg/symbol"
)

// 默认值常量
const (
	defaultAppEnv            = "dev"
	defaultAppLogLevel       = "info"
	defaultAppLogFormat      = "text"
	defaultAppHTTPAddr       = ":9991"
	defaultAppLogPath        = "data/logs/aitrader.log"
	defaultAppLLMLogPath     = "data/logs/aitrader-llm.log"
	defaultExchangeName      = "binance"
	defaultSpotBaseURL       = "https://api.binance.com"
	defaultFuturesBaseURL    = "https://fapi.binance.com"
	defaultExchangeTimeout   = 10 * time.Second
	defaultTradingLeverage   = 1
	defaultFeeReserve        = 0.9995
	defaultFuturesReserve    = 0.9995
	defaultMinBuyNotional    = 10
	defaultMinSellQty        = 0.0001
	defaultOnMarginFailure   = MarginFailureProceed
	defaultSchedulerInterval = 10 * time.Minute
	defaultSchedulerCooldown = 30 * time.Minute
	defaultAIProvider        = "openai"
	defaultAIAPIURL          = "https://api.openai.com/v1"
	defaultAIModel           = "gpt-4o"
	defaultAITimeout         = 90 * time.Second
	defaultAIMaxRetries      = 2
	defaultPromptPath        = "configs/prompt.txt"
	defaultFearGreedURL      = "https://api.alternative.me/fng/?limit=1"
	defaultFearGreedTimeout  = 5 * time.Second
	defaultFearGreedTTL      = 30 * time.Minute
	defaultNewsMaxItems      = 10
	defaultChartSeries       = "hour_24"
	defaultChartWidth        = 1280
	defaultChartHeight       = 720
	defaultChartTimeout      = 40 * time.Second
	defaultAuditPath         = "data/aitrader.db"
	defaultTracingService    = "aitrader"
)

// 合约保证金设置失败时的处理策略。
const (
	MarginFailureProceed = "proceed"
	MarginFailureAbort   = "abort"
)

// defaultSeries 对应日线 90 根、日线 30 根（带指标）、小时线 24 根（带指标）。
func defaultSeries() []SeriesConfig {
	return []SeriesConfig{
		{Name: "day_90", Interval: "1d", Limit: 90},
		{Name: "day_30", Interval: "1d", Limit: 30, Indicators: true},
		{Name: "hour_24", Interval: "1h", Limit: 24, Indicators: true},
	}
}

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Exchange.applyDefaults(keys)
	c.Trading.applyDefaults(keys)
	c.Scheduler.applyDefaults(keys)
	c.AI.applyDefaults(keys)
	c.Prompt.applyDefaults(keys)
	c.Market.applyDefaults(keys)
	c.Audit.applyDefaults(keys)
	c.Tracing.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.log_format", &a.LogFormat, defaultAppLogFormat),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
		stringFieldDefault("app.log_path", &a.LogPath, defaultAppLogPath),
		stringFieldDefault("app.llm_log_path", &a.LLMLog, defaultAppLLMLogPath),
	)
}

func (e *ExchangeConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("exchange.name", &e.Name, defaultExchangeName),
		stringFieldDefault("exchange.spot_base_url", &e.SpotBaseURL, defaultSpotBaseURL),
		stringFieldDefault("exchange.futures_base_url", &e.FuturesBaseURL, defaultFuturesBaseURL),
		durationFieldDefault("exchange.http_timeout", &e.HTTPTimeout, defaultExchangeTimeout),
	)
	e.Name = strings.ToLower(strings.TrimSpace(e.Name))
}

func (t *TradingConfig) applyDefaults(keys keySet) {
	t.Symbol = strings.ToUpper(strings.TrimSpace(t.Symbol))
	t.BaseAsset = strings.ToUpper(strings.TrimSpace(t.BaseAsset))
	t.QuoteAsset = strings.ToUpper(strings.TrimSpace(t.QuoteAsset))
	if t.BaseAsset == "" || t.QuoteAsset == "" {
		if parsed := symbol.Parse(t.Symbol); parsed.Base != "" {
			if t.BaseAsset == "" {
				t.BaseAsset = parsed.Base
			}
			if t.QuoteAsset == "" {
				t.QuoteAsset = parsed.Quote
			}
		}
	}
	applyFieldDefaults(keys,
		stringFieldDefault("trading.futures_symbol", &t.FuturesSymbol, t.Symbol),
		stringFieldDefault("trading.futures_asset", &t.FuturesAsset, t.QuoteAsset),
		stringFieldDefault("trading.on_margin_failure", &t.OnMarginFailure, defaultOnMarginFailure),
		fieldDefault{
			key:   "trading.leverage",
			need:  func() bool { return t.Leverage <= 0 },
			apply: func() { t.Leverage = defaultTradingLeverage },
		},
		floatFieldDefault("trading.fee_reserve", &t.FeeReserve, defaultFeeReserve),
		floatFieldDefault("trading.futures_reserve", &t.FuturesReserve, defaultFuturesReserve),
		floatFieldDefault("trading.min_buy_notional", &t.MinBuyNotional, defaultMinBuyNotional),
		floatFieldDefault("trading.min_sell_qty", &t.MinSellQty, defaultMinSellQty),
	)
	t.FuturesSymbol = strings.ToUpper(strings.TrimSpace(t.FuturesSymbol))
	t.FuturesAsset = strings.ToUpper(strings.TrimSpace(t.FuturesAsset))
	t.OnMarginFailure = strings.ToLower(strings.TrimSpace(t.OnMarginFailure))
}

func (s *SchedulerConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		durationFieldDefault("scheduler.interval", &s.Interval, defaultSchedulerInterval),
		boolFieldDefault("scheduler.run_immediately", &s.RunImmediately, true),
		durationFieldDefault("scheduler.cooldown", &s.Cooldown, defaultSchedulerCooldown),
	)
}

func (a *AIConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("ai.provider", &a.Provider, defaultAIProvider),
		stringFieldDefault("ai.api_url", &a.APIURL, defaultAIAPIURL),
		stringFieldDefault("ai.model", &a.Model, defaultAIModel),
		durationFieldDefault("ai.timeout", &a.Timeout, defaultAITimeout),
		fieldDefault{
			key:   "ai.max_retries",
			need:  func() bool { return a.MaxRetries == 0 },
			apply: func() { a.MaxRetries = defaultAIMaxRetries },
		},
	)
}

func (p *PromptConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("prompt.system_path", &p.SystemPath, defaultPromptPath),
		boolFieldDefault("prompt.watch", &p.Watch, true),
	)
}

func (m *MarketConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "market.series",
			need:  func() bool { return len(m.Series) == 0 },
			apply: func() { m.Series = defaultSeries() },
		},
		boolFieldDefault("market.fear_greed.enabled", &m.FearGreed.Enabled, true),
		stringFieldDefault("market.fear_greed.url", &m.FearGreed.URL, defaultFearGreedURL),
		durationFieldDefault("market.fear_greed.timeout", &m.FearGreed.Timeout, defaultFearGreedTimeout),
		durationFieldDefault("market.fear_greed.ttl", &m.FearGreed.TTL, defaultFearGreedTTL),
		fieldDefault{
			key:   "market.news.max_items",
			need:  func() bool { return m.News.MaxItems <= 0 },
			apply: func() { m.News.MaxItems = defaultNewsMaxItems },
		},
		stringFieldDefault("market.chart.series", &m.Chart.Series, defaultChartSeries),
		fieldDefault{
			key:  "market.chart.width",
			need: func() bool { return m.Chart.Width <= 0 },
			apply: func() {
				m.Chart.Width = defaultChartWidth
			},
		},
		fieldDefault{
			key:  "market.chart.height",
			need: func() bool { return m.Chart.Height <= 0 },
			apply: func() {
				m.Chart.Height = defaultChartHeight
			},
		},
		durationFieldDefault("market.chart.timeout", &m.Chart.Timeout, defaultChartTimeout),
	)
	for i := range m.Series {
		m.Series[i].Name = strings.TrimSpace(m.Series[i].Name)
		m.Series[i].Interval = strings.TrimSpace(m.Series[i].Interval)
	}
}

func (a *AuditConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("audit.path", &a.Path, defaultAuditPath),
	)
}

func (t *TracingConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("tracing.service_name", &t.ServiceName, defaultTracingService),
	)
}

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return strings.TrimSpace(*target) == "" },
		apply: func() { *target = def },
	}
}

func boolFieldDefault(key string, target *bool, def bool) fieldDefault {
	return fieldDefault{
		key:   key,
		apply: func() { *target = def },
	}
}

func floatFieldDefault(key string, target *float64, def float64) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return *target <= 0 },
		apply: func() { *target = def },
	}
}

func durationFieldDefault(key string, target *time.Duration, def time.Duration) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return *target <= 0 },
		apply: func() { *target = def },
	}
}
