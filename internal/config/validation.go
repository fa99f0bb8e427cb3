package config

import (
	"fmt"
	"strings"
)

// klineIntervals 是币安 K 线接口接受的周期。
var klineIntervals = map[string]struct{}{
	"1m": {}, "3m": {}, "5m": {}, "15m": {}, "30m": {},
	"1h": {}, "2h": {}, "4h": {}, "6h": {}, "8h": {}, "12h": {},
	"1d": {}, "3d": {}, "1w": {}, "1M": {},
}

// validate 对配置进行基础校验。
func validate(c *Config) error {
	checks := []func() error{
		c.Exchange.validate,
		c.Trading.validate,
		c.Scheduler.validate,
		c.AI.validate,
		c.Market.validate,
		c.Audit.validate,
		c.Notify.validate,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func (e *ExchangeConfig) validate() error {
	if e.Name != defaultExchangeName {
		return fmt.Errorf("exchange.name %q is not supported (only binance)", e.Name)
	}
	if strings.TrimSpace(e.APIKey) == "" || strings.TrimSpace(e.SecretKey) == "" {
		return fmt.Errorf("exchange.api_key and exchange.secret_key are required (env BINANCE_API_KEY / BINANCE_SECRET_KEY)")
	}
	if e.HTTPTimeout <= 0 {
		return fmt.Errorf("exchange.http_timeout must be > 0")
	}
	return nil
}

func (t *TradingConfig) validate() error {
	if t.Symbol == "" {
		return fmt.Errorf("trading.symbol cannot be empty")
	}
	if t.BaseAsset == "" || t.QuoteAsset == "" {
		return fmt.Errorf("trading.base_asset and trading.quote_asset are required")
	}
	if !strings.HasPrefix(t.Symbol, t.BaseAsset) || !strings.HasSuffix(t.Symbol, t.QuoteAsset) {
		return fmt.Errorf("trading.symbol %s does not match %s/%s", t.Symbol, t.BaseAsset, t.QuoteAsset)
	}
	if t.Leverage < 1 || t.Leverage > 125 {
		return fmt.Errorf("trading.leverage must be within [1,125]")
	}
	if t.FeeReserve <= 0 || t.FeeReserve > 1 {
		return fmt.Errorf("trading.fee_reserve must be within (0,1]")
	}
	if t.FuturesReserve <= 0 || t.FuturesReserve > 1 {
		return fmt.Errorf("trading.futures_reserve must be within (0,1]")
	}
	if t.MinBuyNotional <= 0 {
		return fmt.Errorf("trading.min_buy_notional must be > 0")
	}
	if t.MinSellQty <= 0 {
		return fmt.Errorf("trading.min_sell_qty must be > 0")
	}
	switch t.OnMarginFailure {
	case MarginFailureProceed, MarginFailureAbort:
	default:
		return fmt.Errorf("trading.on_margin_failure must be %s or %s", MarginFailureProceed, MarginFailureAbort)
	}
	return nil
}

func (s *SchedulerConfig) validate() error {
	if s.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be > 0")
	}
	if s.FailureThreshold < 0 {
		return fmt.Errorf("scheduler.failure_threshold must be >= 0")
	}
	return nil
}

func (a *AIConfig) validate() error {
	if !strings.EqualFold(a.Provider, defaultAIProvider) {
		return fmt.Errorf("ai.provider %q is not supported", a.Provider)
	}
	if strings.TrimSpace(a.APIURL) == "" {
		return fmt.Errorf("ai.api_url cannot be empty")
	}
	if strings.TrimSpace(a.Model) == "" {
		return fmt.Errorf("ai.model cannot be empty")
	}
	if strings.TrimSpace(a.APIKey) == "" {
		return fmt.Errorf("ai.api_key is required (env OPENAI_API_KEY)")
	}
	if a.MaxRetries < 0 {
		return fmt.Errorf("ai.max_retries must be >= 0")
	}
	return nil
}

func (m *MarketConfig) validate() error {
	seen := make(map[string]struct{}, len(m.Series))
	for _, s := range m.Series {
		if s.Name == "" {
			return fmt.Errorf("market.series contains entry without name")
		}
		key := strings.ToLower(s.Name)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("market.series name duplicated: %s", s.Name)
		}
		seen[key] = struct{}{}
		if _, ok := klineIntervals[s.Interval]; !ok {
			return fmt.Errorf("market.series.%s has unsupported interval %q", s.Name, s.Interval)
		}
		if s.Limit <= 0 || s.Limit > 1000 {
			return fmt.Errorf("market.series.%s limit must be within [1,1000]", s.Name)
		}
	}
	if m.News.Enabled {
		if len(m.News.Sources) == 0 {
			return fmt.Errorf("market.news.sources cannot be empty when news is enabled")
		}
		for i, src := range m.News.Sources {
			if strings.TrimSpace(src.URL) == "" || strings.TrimSpace(src.ItemSelector) == "" {
				return fmt.Errorf("market.news.sources[%d] requires url and item_selector", i)
			}
		}
	}
	if m.Chart.Enabled {
		if _, ok := m.SeriesByName(m.Chart.Series); !ok {
			return fmt.Errorf("market.chart.series %q is not a configured series", m.Chart.Series)
		}
	}
	return nil
}

func (a *AuditConfig) validate() error {
	if a.Enabled && strings.TrimSpace(a.Path) == "" {
		return fmt.Errorf("audit.path cannot be empty when audit is enabled")
	}
	return nil
}

func (n *NotifyConfig) validate() error {
	tg := n.Telegram
	if tg.Enabled && (strings.TrimSpace(tg.BotToken) == "" || strings.TrimSpace(tg.ChatID) == "") {
		return fmt.Errorf("notify.telegram requires bot_token and chat_id when enabled")
	}
	return nil
}
