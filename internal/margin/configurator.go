// Package margin 负责把合约交易对保持在逐仓模式和固定杠杆。
package margin

import (
	"context"
	"errors"
	"fmt"

	"aitrader/internal/gateway/exchange"
	"aitrader/internal/logger"
)

type Configurator struct {
	venue exchange.MarginSetter
}

func NewConfigurator(venue exchange.MarginSetter) *Configurator {
	return &Configurator{venue: venue}
}

// EnsureIsolatedLeverage 为 symbol 设置逐仓与指定杠杆。
// 两次调用都会执行；"已设置" 视为成功，其余失败返回 *exchange.ConfigurationError。
func (c *Configurator) EnsureIsolatedLeverage(ctx context.Context, symbol string, leverage int) error {
	if leverage < 1 {
		return &exchange.ConfigurationError{Symbol: symbol, Err: fmt.Errorf("leverage %d must be >= 1", leverage)}
	}
	var errs []error
	if err := c.venue.SetMarginType(ctx, symbol, exchange.MarginIsolated); err != nil {
		if errors.Is(err, exchange.ErrAlreadySet) {
			logger.Debugf("margin: %s already isolated", symbol)
		} else {
			errs = append(errs, fmt.Errorf("set isolated margin: %w", err))
		}
	}
	if err := c.venue.SetLeverage(ctx, symbol, leverage); err != nil {
		if errors.Is(err, exchange.ErrAlreadySet) {
			logger.Debugf("margin: %s leverage already %dx", symbol, leverage)
		} else {
			errs = append(errs, fmt.Errorf("set leverage %dx: %w", leverage, err))
		}
	}
	if len(errs) > 0 {
		return &exchange.ConfigurationError{Symbol: symbol, Err: errors.Join(errs...)}
	}
	return nil
}
