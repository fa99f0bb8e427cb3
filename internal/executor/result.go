package executor

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"aitrader/internal/decision"
	"aitrader/internal/gateway/exchange"
)

// State 是意图驱动执行器进入的中间状态。
type State int

const (
	StateHold State = iota
	StatePendingLong
	StatePendingShort
	StatePendingBuy
	StatePendingSell
)

func (s State) String() string {
	switch s {
	case StateHold:
		return "Hold"
	case StatePendingLong:
		return "PendingLong"
	case StatePendingShort:
		return "PendingShort"
	case StatePendingBuy:
		return "PendingBuy"
	case StatePendingSell:
		return "PendingSell"
	default:
		return "Unknown"
	}
}

func pendingState(k decision.Kind) State {
	switch k {
	case decision.KindLong:
		return StatePendingLong
	case decision.KindShort:
		return StatePendingShort
	case decision.KindBuy:
		return StatePendingBuy
	case decision.KindSell:
		return StatePendingSell
	default:
		return StateHold
	}
}

// Outcome 是一次执行的终态。
type Outcome int

const (
	OutcomeSkipped Outcome = iota
	OutcomeExecuted
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeExecuted:
		return "Executed"
	case OutcomeFailed:
		return "Failed"
	default:
		return "Skipped"
	}
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// OrderResult 描述本轮唯一的一次下单调用。
// 未计算数量时 Quantity 为 null，计算结果为零时为 0。
type OrderResult struct {
	Attempted bool                `json:"attempted"`
	Succeeded bool                `json:"succeeded"`
	Quantity  decimal.NullDecimal `json:"quantity"`
	Error     string              `json:"error,omitempty"`
}

// Result 是 Execute 返回给单轮流程的结果。
type Result struct {
	Intent     decision.Intent        `json:"intent"`
	State      State                  `json:"-"`
	Outcome    Outcome                `json:"outcome"`
	Order      OrderResult            `json:"order"`
	SkipReason string                 `json:"skip_reason,omitempty"`
	Warnings   []string               `json:"warnings,omitempty"`
	Request    *exchange.OrderRequest `json:"-"`
	Ack        *exchange.OrderAck     `json:"-"`
}

// Summary 生成每轮都会打印的审计日志行。
func (r Result) Summary() string {
	qty := "n/a"
	if r.Order.Quantity.Valid {
		qty = r.Order.Quantity.Decimal.String()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "decision=%s reason=%q quantity=%s outcome=%s", r.Intent.Decision, r.Intent.Reason, qty, r.Outcome)
	if r.SkipReason != "" {
		fmt.Fprintf(&b, " skip=%q", r.SkipReason)
	}
	if r.Order.Error != "" {
		fmt.Fprintf(&b, " error=%q", r.Order.Error)
	}
	if r.Ack != nil {
		fmt.Fprintf(&b, " order_id=%d status=%s", r.Ack.OrderID, r.Ack.Status)
	}
	return b.String()
}
