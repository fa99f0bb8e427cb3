package engine

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"aitrader/internal/decision"
	"aitrader/internal/executor"
	"aitrader/internal/gateway/notifier"
	"aitrader/internal/gateway/provider"
	"aitrader/internal/logger"
	"aitrader/internal/pkg/jsonutil"
	"aitrader/internal/snapshot"
	"aitrader/internal/store/auditlog"
	"aitrader/internal/trace"
)

type Collector interface {
	Collect(ctx context.Context) (*snapshot.Snapshot, error)
}

type PromptSource interface {
	System() string
	Source() string
}

type Executor interface {
	Execute(ctx context.Context, intent decision.Intent) executor.Result
}

type AuditSink interface {
	Append(ctx context.Context, e auditlog.Entry) error
}

// Report 描述一轮已结束的周期；未走到执行阶段时 Result 为 nil。
type Report struct {
	TraceID    string           `json:"trace_id"`
	Symbol     string           `json:"symbol"`
	Provider   string           `json:"provider"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Payload    string           `json:"-"`
	Raw        string           `json:"raw_response,omitempty"`
	ParseError string           `json:"parse_error,omitempty"`
	Result     *executor.Result `json:"result,omitempty"`
	Warnings   []string         `json:"warnings,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// Outcome 返回写入审计和状态接口的结果标签。
func (r Report) Outcome() string {
	if r.Result == nil {
		return "Error"
	}
	return r.Result.Outcome.String()
}

type EngineParams struct {
	Symbol    string
	Collector Collector
	Provider  provider.ModelProvider
	Prompts   PromptSource
	Executor  Executor
	Audit     AuditSink
	Notifier  notifier.Notifier
}

// LiveEngine 执行 采集 → 询问模型 → 解析 → 执行 的单轮流程。
type LiveEngine struct {
	symbol    string
	collector Collector
	provider  provider.ModelProvider
	prompts   PromptSource
	executor  Executor
	audit     AuditSink
	notifier  notifier.Notifier
	nowFn     func() time.Time

	mu   sync.RWMutex
	last *Report
}

func NewLiveEngine(p EngineParams) *LiveEngine {
	n := p.Notifier
	if n == nil {
		n = notifier.Nop{}
	}
	return &LiveEngine{
		symbol:    p.Symbol,
		collector: p.Collector,
		provider:  p.Provider,
		prompts:   p.Prompts,
		executor:  p.Executor,
		audit:     p.Audit,
		notifier:  n,
		nowFn:     time.Now,
	}
}

// Tick 把 RunCycle 适配为调度器任务。
func (e *LiveEngine) Tick(ctx context.Context) error {
	_, err := e.RunCycle(ctx)
	return err
}

// RunCycle 执行一轮。数据或模型失败时返回 error 且不交易；
// 执行结果（包括下单失败）只写入 Report，不作为 error 返回。
func (e *LiveEngine) RunCycle(ctx context.Context) (Report, error) {
	rep := Report{
		TraceID:   uuid.NewString(),
		Symbol:    e.symbol,
		Provider:  e.provider.ID(),
		StartedAt: e.nowFn(),
	}
	ctx, span := trace.StartSpan(ctx, "cycle",
		attribute.String("symbol", e.symbol),
		attribute.String("trace_id", rep.TraceID))
	defer span.End()

	err := e.runCycle(ctx, &rep)
	rep.FinishedAt = e.nowFn()
	if err != nil {
		rep.Error = err.Error()
		trace.RecordError(span, err)
		logger.Errorf("[cycle %s] aborted: %v", rep.TraceID, err)
	} else {
		span.SetAttributes(attribute.String("outcome", rep.Outcome()))
	}
	e.record(ctx, rep)
	e.setLast(rep)
	return rep, err
}

func (e *LiveEngine) runCycle(ctx context.Context, rep *Report) error {
	collectCtx, span := trace.StartSpan(ctx, "collect")
	snap, err := e.collector.Collect(collectCtx)
	trace.RecordError(span, err)
	span.End()
	if err != nil {
		return fmt.Errorf("collect market data: %w", err)
	}
	rep.Warnings = append(rep.Warnings, snap.Warnings...)

	payload := jsonutil.Marshal(snap.Payload)
	rep.Payload = payload
	system := e.prompts.System()
	chat := provider.ChatPayload{System: system, User: payload, ExpectJSON: e.provider.ExpectsJSON()}
	var imageLog []string
	if e.provider.SupportsVision() && len(snap.ChartPNG) > 0 {
		desc := fmt.Sprintf("%s candlestick chart", e.symbol)
		chat.Images = []provider.ImagePayload{{
			DataURI:     "data:image/png;base64," + base64.StdEncoding.EncodeToString(snap.ChartPNG),
			Description: desc,
		}}
		imageLog = append(imageLog, fmt.Sprintf("%s (%d bytes)", desc, len(snap.ChartPNG)))
	}
	logger.LogLLMRequest(rep.TraceID, rep.Provider, system, payload, imageLog, jsonutil.Pretty(payload))

	aiCtx, span := trace.StartSpan(ctx, "llm", attribute.String("provider", rep.Provider))
	raw, err := e.provider.Call(aiCtx, chat)
	trace.RecordError(span, err)
	span.End()
	if err != nil {
		return fmt.Errorf("model call %s: %w", rep.Provider, err)
	}
	rep.Raw = raw
	logger.LogLLMResponse(rep.TraceID, rep.Provider, raw)

	intent, perr := decision.Parse(raw)
	if perr != nil {
		var pe *decision.ParseError
		if errors.As(perr, &pe) {
			rep.ParseError = pe.Err.Error()
		} else {
			rep.ParseError = perr.Error()
		}
		logger.Warnf("[cycle %s] %v; holding", rep.TraceID, perr)
		intent = decision.ParseFailed()
	}
	logger.Infof("[cycle %s] decision=%s reason=%q", rep.TraceID, intent.Decision, intent.Reason)

	execCtx, span := trace.StartSpan(ctx, "execute", attribute.String("decision", intent.Decision.String()))
	res := e.executor.Execute(execCtx, intent)
	span.SetAttributes(attribute.String("outcome", res.Outcome.String()))
	span.End()
	rep.Result = &res
	rep.Warnings = append(rep.Warnings, res.Warnings...)
	logger.Infof("[cycle %s] %s", rep.TraceID, res.Summary())
	return nil
}

// record 落库并推送通知，失败只记日志。
func (e *LiveEngine) record(ctx context.Context, rep Report) {
	if e.audit != nil {
		entry := auditlog.Entry{
			TraceID:      rep.TraceID,
			Symbol:       rep.Symbol,
			Provider:     rep.Provider,
			Payload:      rep.Payload,
			RawResponse:  rep.Raw,
			Outcome:      rep.Outcome(),
			Error:        rep.Error,
			Warnings:     rep.Warnings,
			CreatedAt:    rep.StartedAt,
			PromptSource: e.prompts.Source(),
		}
		if res := rep.Result; res != nil {
			entry.Decision = strings.ToLower(res.Intent.Decision.String())
			entry.Reason = res.Intent.Reason
			entry.SkipReason = res.SkipReason
			if res.Order.Error != "" {
				entry.Error = res.Order.Error
			}
		}
		if err := e.audit.Append(ctx, entry); err != nil {
			logger.Warnf("[cycle %s] audit write failed: %v", rep.TraceID, err)
		}
	}
	if msg, ok := buildCycleMessage(rep); ok {
		if err := e.notifier.SendStructured(ctx, msg); err != nil {
			logger.Warnf("[cycle %s] notify failed: %v", rep.TraceID, err)
		}
	}
}

func (e *LiveEngine) setLast(rep Report) {
	e.mu.Lock()
	e.last = &rep
	e.mu.Unlock()
}

// Last 返回最近一轮的报告。
func (e *LiveEngine) Last() (Report, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.last == nil {
		return Report{}, false
	}
	return *e.last, true
}

func (e *LiveEngine) Symbol() string { return e.symbol }

