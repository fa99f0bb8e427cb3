package exchange

import (
	"errors"
	"fmt"
)

var (
	// ErrMarketDataUnavailable 标记余额、价格或交易规则读取失败，调用方应跳过本次交易。
	ErrMarketDataUnavailable = errors.New("market data unavailable")

	// ErrAlreadySet 表示 MarginSetter 请求的状态已生效。
	ErrAlreadySet = errors.New("already set")
)

// MarketDataError 包装读取失败，errors.Is 可匹配 ErrMarketDataUnavailable。
type MarketDataError struct {
	Op     string
	Market Market
	Symbol string
	Err    error
}

func (e *MarketDataError) Error() string {
	target := string(e.Market)
	if e.Symbol != "" {
		target += " " + e.Symbol
	}
	return fmt.Sprintf("%s: %s (%s): %v", ErrMarketDataUnavailable, e.Op, target, e.Err)
}

func (e *MarketDataError) Unwrap() error { return e.Err }

func (e *MarketDataError) Is(target error) bool { return target == ErrMarketDataUnavailable }

// OrderRejectedError 表示交易所拒单（余额、过滤器、参数）。
type OrderRejectedError struct {
	Symbol string
	Code   int64
	Msg    string
}

func (e *OrderRejectedError) Error() string {
	return fmt.Sprintf("order rejected for %s: code=%d msg=%s", e.Symbol, e.Code, e.Msg)
}

// ConfigurationError 表示保证金模式或杠杆设置失败（"已设置" 除外）。
type ConfigurationError struct {
	Symbol string
	Err    error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configure %s: %v", e.Symbol, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// IsOrderRejected 判断 err 是否为拒单。
func IsOrderRejected(err error) bool {
	var rej *OrderRejectedError
	return errors.As(err, &rej)
}
