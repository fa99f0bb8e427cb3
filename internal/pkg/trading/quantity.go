// Package trading 提供下单数量计算工具。
package trading

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrInvalidLotSize = errors.New("invalid lot size")

// LotSize 是交易所对某个交易对的数量规则。
type LotSize struct {
	StepSize decimal.Decimal // smallest quantity increment
	MinQty   decimal.Decimal // smallest accepted order quantity
}

// Normalize 在交易所给出的最小数量小于步长（或为 0）时把 MinQty 提升到 StepSize。
func (l LotSize) Normalize() LotSize {
	if l.MinQty.LessThan(l.StepSize) {
		l.MinQty = l.StepSize
	}
	return l
}

// Validate 校验 min_qty >= step_size > 0。
func (l LotSize) Validate() error {
	if !l.StepSize.IsPositive() {
		return fmt.Errorf("%w: step_size %s must be > 0", ErrInvalidLotSize, l.StepSize)
	}
	if l.MinQty.LessThan(l.StepSize) {
		return fmt.Errorf("%w: min_qty %s below step_size %s", ErrInvalidLotSize, l.MinQty, l.StepSize)
	}
	return nil
}

// ComputeQuantity 把名义金额换算为符合 lot 的下单数量。
// 结果向下取整到步长的整数倍，quantity*price 不会超过 notional。
// 返回 0 表示不应下单：价格非正、金额为空或取整后低于最小数量。
func ComputeQuantity(notional, price decimal.Decimal, lot LotSize) decimal.Decimal {
	if !price.IsPositive() || !notional.IsPositive() || !lot.StepSize.IsPositive() {
		return decimal.Zero
	}
	steps, _ := notional.QuoRem(price.Mul(lot.StepSize), 0)
	qty := steps.Mul(lot.StepSize)
	if qty.LessThan(lot.MinQty) {
		return decimal.Zero
	}
	return qty
}

// FloorToStep 把 qty 截断为 step 的整数倍，非正输入返回 0。
func FloorToStep(qty, step decimal.Decimal) decimal.Decimal {
	if !qty.IsPositive() || !step.IsPositive() {
		return decimal.Zero
	}
	steps, _ := qty.QuoRem(step, 0)
	return steps.Mul(step)
}

// ApplyReserve 按 factor 缩放金额，例如 0.9995 预留 0.05% 手续费。
func ApplyReserve(amount, factor decimal.Decimal) decimal.Decimal {
	if !amount.IsPositive() || !factor.IsPositive() {
		return decimal.Zero
	}
	return amount.Mul(factor)
}
