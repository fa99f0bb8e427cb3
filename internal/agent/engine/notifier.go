package engine

import (
	"fmt"

	"aitrader/internal/executor"
	"aitrader/internal/gateway/notifier"
	"aitrader/internal/pkg/text"
)

// buildCycleMessage 只为实际调用过交易所的轮次生成消息。
func buildCycleMessage(rep Report) (notifier.StructuredMessage, bool) {
	res := rep.Result
	if res == nil || (res.Outcome != executor.OutcomeExecuted && res.Outcome != executor.OutcomeFailed) {
		return notifier.StructuredMessage{}, false
	}
	icon := "✅"
	if res.Outcome == executor.OutcomeFailed {
		icon = "❌"
	}
	msg := notifier.StructuredMessage{
		Icon:      icon,
		Title:     fmt.Sprintf("%s %s %s", rep.Symbol, res.Intent.Decision, res.Outcome),
		TraceID:   rep.TraceID,
		Timestamp: rep.FinishedAt.UTC(),
	}
	msg.AddSection("决策",
		notifier.F("model", rep.Provider),
		notifier.F("reason", text.Truncate(res.Intent.Reason, 300)),
	)
	order := []notifier.Field{
		notifier.F("state", res.State.String()),
		notifier.F("error", text.Truncate(res.Order.Error, 300)),
	}
	if res.Order.Quantity.Valid {
		order = append(order, notifier.F("quantity", res.Order.Quantity.Decimal.String()))
	}
	if res.Ack != nil {
		order = append(order, notifier.F("order_id", fmt.Sprintf("%d", res.Ack.OrderID)), notifier.F("status", res.Ack.Status))
	}
	msg.AddSection("订单", order...)
	warnings := make([]notifier.Field, 0, len(rep.Warnings))
	for _, w := range rep.Warnings {
		warnings = append(warnings, notifier.F("", w))
	}
	msg.AddSection("警告", warnings...)
	return msg, true
}
