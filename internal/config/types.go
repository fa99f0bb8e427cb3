package config

import (
	"strings"
	"time"
)

// Config 是 aitrader 的主配置载体。
type Config struct {
	App       AppConfig       `toml:"app"`
	Exchange  ExchangeConfig  `toml:"exchange"`
	Trading   TradingConfig   `toml:"trading"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	AI        AIConfig        `toml:"ai"`
	Prompt    PromptConfig    `toml:"prompt"`
	Market    MarketConfig    `toml:"market"`
	Audit     AuditConfig     `toml:"audit"`
	Notify    NotifyConfig    `toml:"notify"`
	Tracing   TracingConfig   `toml:"tracing"`
}

type AppConfig struct {
	Env       string `toml:"env"`
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
	HTTPAddr  string `toml:"http_addr"` // 为空则不启动状态接口
	LogPath   string `toml:"log_path"`
	LLMLog    string `toml:"llm_log_path"`
	LLMDump   bool   `toml:"llm_dump_payload"`
}

// ExchangeConfig 描述交易所连接参数，密钥只从环境变量注入。
type ExchangeConfig struct {
	Name           string        `toml:"name"`
	APIKey         string        `toml:"api_key"`
	SecretKey      string        `toml:"secret_key"`
	Testnet        bool          `toml:"testnet"`
	SpotBaseURL    string        `toml:"spot_base_url"`
	FuturesBaseURL string        `toml:"futures_base_url"`
	HTTPTimeout    time.Duration `toml:"http_timeout"`
	ProxyURL       string        `toml:"proxy_url"`
}

// TradingConfig 控制交易对与下单策略常量。
type TradingConfig struct {
	Symbol          string  `toml:"symbol"`            // 现货交易对，如 BTCUSDT
	FuturesSymbol   string  `toml:"futures_symbol"`    // 合约交易对，缺省同 symbol
	BaseAsset       string  `toml:"base_asset"`        // 如 BTC
	QuoteAsset      string  `toml:"quote_asset"`       // 如 USDT
	FuturesAsset    string  `toml:"futures_asset"`     // 合约保证金资产，缺省同 quote_asset
	Leverage        int     `toml:"leverage"`          // 合约杠杆，默认 1
	FeeReserve      float64 `toml:"fee_reserve"`       // 现货买入时余额乘数 (0,1]
	FuturesReserve  float64 `toml:"futures_reserve"`   // 合约开仓时余额乘数 (0,1]
	MinBuyNotional  float64 `toml:"min_buy_notional"`  // 现货买入最小计价金额
	MinSellQty      float64 `toml:"min_sell_qty"`      // 现货卖出最小数量
	OnMarginFailure string  `toml:"on_margin_failure"` // proceed | abort
}

// SchedulerConfig 控制主循环节奏。
type SchedulerConfig struct {
	Interval         time.Duration `toml:"interval"`
	RunImmediately   bool          `toml:"run_immediately"`
	FailureThreshold int           `toml:"failure_threshold"` // 连续失败多少次后暂停 cooldown，默认 0 不熔断
	Cooldown         time.Duration `toml:"cooldown"`
}

type AIConfig struct {
	Provider     string            `toml:"provider"`
	APIURL       string            `toml:"api_url"`
	APIKey       string            `toml:"api_key"`
	Model        string            `toml:"model"`
	Timeout      time.Duration     `toml:"timeout"`
	MaxRetries   int               `toml:"max_retries"`
	Temperature  float64           `toml:"temperature"`
	Vision       bool              `toml:"vision"`
	ExtraHeaders map[string]string `toml:"extra_headers"`
}

type PromptConfig struct {
	SystemPath string `toml:"system_path"`
	Watch      bool   `toml:"watch"`
}

// MarketConfig 描述每轮喂给模型的行情上下文。
type MarketConfig struct {
	Series    []SeriesConfig  `toml:"series"`
	FearGreed FearGreedConfig `toml:"fear_greed"`
	News      NewsConfig      `toml:"news"`
	Chart     ChartConfig     `toml:"chart"`
}

type SeriesConfig struct {
	Name       string `toml:"name"`
	Interval   string `toml:"interval"`
	Limit      int    `toml:"limit"`
	Indicators bool   `toml:"indicators"`
}

type FearGreedConfig struct {
	Enabled bool          `toml:"enabled"`
	URL     string        `toml:"url"`
	Timeout time.Duration `toml:"timeout"`
	TTL     time.Duration `toml:"ttl"`
}

type NewsConfig struct {
	Enabled  bool         `toml:"enabled"`
	MaxItems int          `toml:"max_items"`
	Sources  []NewsSource `toml:"sources"`
}

type NewsSource struct {
	Name         string `toml:"name"`
	URL          string `toml:"url"`
	ItemSelector string `toml:"item_selector"`
}

type ChartConfig struct {
	Enabled bool          `toml:"enabled"`
	Series  string        `toml:"series"`
	Width   int           `toml:"width"`
	Height  int           `toml:"height"`
	Timeout time.Duration `toml:"timeout"`
}

// AuditConfig 控制决策审计库（只记录模型往返与结果标签）。
type AuditConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `toml:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `toml:"enabled"`
	BotToken string `toml:"bot_token"`
	ChatID   string `toml:"chat_id"`
}

type TracingConfig struct {
	Enabled     bool   `toml:"enabled"`
	ServiceName string `toml:"service_name"`
	Pretty      bool   `toml:"pretty"`
}

// SeriesByName 查找行情序列配置。
func (m MarketConfig) SeriesByName(name string) (SeriesConfig, bool) {
	for _, s := range m.Series {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return SeriesConfig{}, false
}

// keySet 用于追踪配置文件中显式设置的字段路径。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	_, ok := k[strings.ToLower(strings.TrimSpace(path))]
	return ok
}

// fieldDefault 描述单个字段的默认值设置规则。
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
