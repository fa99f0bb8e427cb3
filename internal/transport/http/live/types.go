package livehttp

import (
	"context"

	"aitrader/internal/agent/engine"
	"aitrader/internal/scheduler"
	"aitrader/internal/store/auditlog"
)

type CycleSource interface {
	Symbol() string
	Last() (engine.Report, bool)
}

type SchedulerSource interface {
	Stats() scheduler.Stats
}

type DecisionLog interface {
	Recent(ctx context.Context, limit int) ([]auditlog.Entry, error)
	CountByOutcome(ctx context.Context) (map[string]int64, error)
}

// StatusResponse 是 /api/live/status 的返回体。
type StatusResponse struct {
	Symbol    string           `json:"symbol"`
	Scheduler *scheduler.Stats `json:"scheduler,omitempty"`
	LastCycle *engine.Report   `json:"last_cycle,omitempty"`
	Outcomes  map[string]int64 `json:"outcomes,omitempty"`
}

type DecisionsResponse struct {
	Items []auditlog.Entry `json:"items"`
	Limit int              `json:"limit"`
}
