package app

import (
	"context"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"aitrader/internal/account"
	"aitrader/internal/agent/engine"
	"aitrader/internal/config"
	"aitrader/internal/executor"
	"aitrader/internal/gateway/exchange"
	"aitrader/internal/gateway/notifier"
	"aitrader/internal/gateway/provider"
	"aitrader/internal/logger"
	"aitrader/internal/margin"
	"aitrader/internal/market"
	"aitrader/internal/pkg/circuit"
	"aitrader/internal/prompt"
	"aitrader/internal/scheduler"
	"aitrader/internal/store/auditlog"
	"aitrader/internal/trace"
	livehttp "aitrader/internal/transport/http/live"
)

// Venue 是一轮交易所需的全部交易所能力：账户、下单、保证金与 K 线。
type Venue interface {
	exchange.Exchange
	market.CandleSource
}

type AppBuilder struct {
	cfg *config.Config

	venueFn    func(config.ExchangeConfig) (Venue, error)
	providerFn func(config.AIConfig) (provider.ModelProvider, error)
	chartFn    func(config.ChartConfig) chartRenderer
}

type AppBuilderOption func(*AppBuilder)

// WithVenue 替换交易所实现（测试或模拟盘）。
func WithVenue(v Venue) AppBuilderOption {
	return func(b *AppBuilder) {
		b.venueFn = func(config.ExchangeConfig) (Venue, error) { return v, nil }
	}
}

func WithProvider(p provider.ModelProvider) AppBuilderOption {
	return func(b *AppBuilder) {
		b.providerFn = func(config.AIConfig) (provider.ModelProvider, error) { return p, nil }
	}
}

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:        cfg,
		venueFn:    buildVenue,
		providerFn: buildModelProvider,
		chartFn:    buildChartRenderer,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg
	a := &App{cfg: cfg}
	built := false
	defer func() {
		if !built {
			a.Close()
		}
	}()

	shutdown, err := trace.Init(trace.Options{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		Pretty:      cfg.Tracing.Pretty,
		Writer:      os.Stderr,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	a.closers = append(a.closers, func() error { return shutdown(context.Background()) })

	venue, err := b.venueFn(cfg.Exchange)
	if err != nil {
		return nil, fmt.Errorf("init exchange: %w", err)
	}
	if syncer, ok := venue.(interface{ SyncTime(context.Context) error }); ok {
		if err := syncer.SyncTime(ctx); err != nil {
			logger.Warnf("交易所时间同步失败: %v", err)
		}
	}
	logger.Infof("✓ 交易所 %s 已连接 (testnet=%v)", venue.Name(), cfg.Exchange.Testnet)

	accounts := account.NewReader(venue)
	exec := executor.New(accounts, venue, margin.NewConfigurator(venue), tradingPair(cfg.Trading), tradingPolicy(cfg.Trading))

	collector := buildCollector(cfg, venue, accounts, b.chartFn(cfg.Market.Chart))

	model, err := b.providerFn(cfg.AI)
	if err != nil {
		return nil, fmt.Errorf("init model provider: %w", err)
	}
	logger.Infof("✓ 模型 %s (vision=%v)", model.ID(), model.SupportsVision())

	a.prompts = prompt.Load(cfg.Prompt.SystemPath)
	logger.Infof("✓ 系统提示词来源: %s", a.prompts.Source())

	var audit engine.AuditSink
	if cfg.Audit.Enabled {
		store, err := auditlog.Open(cfg.Audit.Path)
		if err != nil {
			return nil, err
		}
		a.audit = store
		audit = store
		a.closers = append(a.closers, store.Close)
	}

	a.engine = engine.NewLiveEngine(engine.EngineParams{
		Symbol:    cfg.Trading.Symbol,
		Collector: collector,
		Provider:  model,
		Prompts:   a.prompts,
		Executor:  exec,
		Audit:     audit,
		Notifier:  newNotifier(cfg.Notify),
	})

	a.scheduler = scheduler.NewIntervalScheduler(cfg.Trading.Symbol, cfg.Scheduler.Interval)
	a.scheduler.RunImmediately = cfg.Scheduler.RunImmediately
	a.scheduler.Breaker = circuit.NewBreaker("cycle."+cfg.Trading.Symbol, cfg.Scheduler.FailureThreshold, cfg.Scheduler.Cooldown)

	if cfg.App.HTTPAddr != "" {
		var logs livehttp.DecisionLog
		if a.audit != nil {
			logs = a.audit
		}
		srv, err := livehttp.NewServer(livehttp.ServerConfig{
			Addr:      cfg.App.HTTPAddr,
			Cycles:    a.engine,
			Scheduler: a.scheduler,
			Logs:      logs,
		})
		if err != nil {
			return nil, err
		}
		a.liveHTTP = srv
	}

	a.Summary = buildSummary(cfg, model, a.prompts)
	built = true
	return a, nil
}

func newNotifier(cfg config.NotifyConfig) notifier.Notifier {
	if !cfg.Telegram.Enabled {
		return notifier.Nop{}
	}
	return notifier.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
}

func tradingPair(t config.TradingConfig) executor.Pair {
	return executor.Pair{
		SpotSymbol:    t.Symbol,
		FuturesSymbol: t.FuturesSymbol,
		BaseAsset:     t.BaseAsset,
		QuoteAsset:    t.QuoteAsset,
		FuturesAsset:  t.FuturesAsset,
	}
}

func tradingPolicy(t config.TradingConfig) executor.Policy {
	return executor.Policy{
		FeeReserve:      decimal.NewFromFloat(t.FeeReserve),
		FuturesReserve:  decimal.NewFromFloat(t.FuturesReserve),
		MinBuyNotional:  decimal.NewFromFloat(t.MinBuyNotional),
		MinSellQty:      decimal.NewFromFloat(t.MinSellQty),
		Leverage:        t.Leverage,
		OnMarginFailure: executor.MarginFailurePolicy(t.OnMarginFailure),
	}
}
