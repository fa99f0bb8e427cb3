package app

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"aitrader/internal/config"
	"aitrader/internal/gateway/provider"
	"aitrader/internal/prompt"
)

type StartupSummary struct {
	Trading   TradingSummary   `yaml:"trading"`
	Scheduler SchedulerSummary `yaml:"scheduler"`
	Model     ModelSummary     `yaml:"model"`
	Market    MarketSummary    `yaml:"market"`
	Sinks     SinkSummary      `yaml:"sinks"`
}

type TradingSummary struct {
	Exchange        string `yaml:"exchange"`
	Testnet         bool   `yaml:"testnet"`
	Symbol          string `yaml:"symbol"`
	FuturesSymbol   string `yaml:"futures_symbol"`
	Leverage        int    `yaml:"leverage"`
	OnMarginFailure string `yaml:"on_margin_failure"`
}

type SchedulerSummary struct {
	Interval         string `yaml:"interval"`
	RunImmediately   bool   `yaml:"run_immediately"`
	FailureThreshold int    `yaml:"failure_threshold"`
	Cooldown         string `yaml:"cooldown"`
}

type ModelSummary struct {
	ID           string `yaml:"id"`
	Vision       bool   `yaml:"vision"`
	PromptSource string `yaml:"prompt_source"`
	PromptWatch  bool   `yaml:"prompt_watch"`
}

type MarketSummary struct {
	Series    []string `yaml:"series"`
	FearGreed bool     `yaml:"fear_greed"`
	News      []string `yaml:"news,omitempty"`
	Chart     string   `yaml:"chart,omitempty"`
}

type SinkSummary struct {
	HTTPAddr string `yaml:"http_addr,omitempty"`
	Audit    string `yaml:"audit,omitempty"`
	Telegram bool   `yaml:"telegram"`
	Tracing  bool   `yaml:"tracing"`
}

func buildSummary(cfg *config.Config, model provider.ModelProvider, prompts *prompt.Store) *StartupSummary {
	s := &StartupSummary{
		Trading: TradingSummary{
			Exchange:        cfg.Exchange.Name,
			Testnet:         cfg.Exchange.Testnet,
			Symbol:          cfg.Trading.Symbol,
			FuturesSymbol:   cfg.Trading.FuturesSymbol,
			Leverage:        cfg.Trading.Leverage,
			OnMarginFailure: cfg.Trading.OnMarginFailure,
		},
		Scheduler: SchedulerSummary{
			Interval:         cfg.Scheduler.Interval.String(),
			RunImmediately:   cfg.Scheduler.RunImmediately,
			FailureThreshold: cfg.Scheduler.FailureThreshold,
			Cooldown:         cfg.Scheduler.Cooldown.String(),
		},
		Model: ModelSummary{
			PromptWatch: cfg.Prompt.Watch,
		},
		Market: MarketSummary{
			FearGreed: cfg.Market.FearGreed.Enabled,
		},
		Sinks: SinkSummary{
			HTTPAddr: cfg.App.HTTPAddr,
			Telegram: cfg.Notify.Telegram.Enabled,
			Tracing:  cfg.Tracing.Enabled,
		},
	}
	if model != nil {
		s.Model.ID = model.ID()
		s.Model.Vision = model.SupportsVision()
	}
	if prompts != nil {
		s.Model.PromptSource = prompts.Source()
	}
	for _, ser := range cfg.Market.Series {
		s.Market.Series = append(s.Market.Series, fmt.Sprintf("%s(%s x%d)", ser.Name, ser.Interval, ser.Limit))
	}
	if cfg.Market.News.Enabled {
		for _, src := range cfg.Market.News.Sources {
			s.Market.News = append(s.Market.News, src.Name)
		}
	}
	if cfg.Market.Chart.Enabled {
		s.Market.Chart = cfg.Market.Chart.Series
	}
	if cfg.Audit.Enabled {
		s.Sinks.Audit = cfg.Audit.Path
	}
	return s
}

func (s *StartupSummary) Print() {
	s.Fprint(os.Stdout)
}

func (s *StartupSummary) Fprint(w io.Writer) {
	title := "启动配置摘要 (STARTUP SUMMARY)"
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintf(w, "%*s\n", 40+len(title)/2, title)
	fmt.Fprintln(w, strings.Repeat("=", 80))
	body, err := yaml.Marshal(s)
	if err != nil {
		fmt.Fprintf(w, "  (摘要序列化失败: %v)\n", err)
	} else {
		for _, line := range strings.Split(strings.TrimRight(string(body), "\n"), "\n") {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
	fmt.Fprintln(w, strings.Repeat("=", 80))
}
