package binance

import (
	"errors"
	"fmt"
	"strings"

	"aitrader/internal/gateway/exchange"

	"github.com/adshao/go-binance/v2/common"
)

// 币安用于表示“状态无需变更”的错误码。
const (
	codeNoNeedChangeMargin   = -4046
	codeNoNeedChangePosition = -4059
)

// marginError 把“无需变更”归一为 exchange.ErrAlreadySet，其余原样返回。
func marginError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == codeNoNeedChangeMargin || apiErr.Code == codeNoNeedChangePosition {
			return fmt.Errorf("%w: %s", exchange.ErrAlreadySet, apiErr.Message)
		}
	}
	if strings.Contains(strings.ToLower(err.Error()), "no need to change") {
		return fmt.Errorf("%w: %v", exchange.ErrAlreadySet, err)
	}
	return err
}

// orderError 把交易所拒单转换成 exchange.OrderRejectedError，网络类错误保持包装返回。
func orderError(symbol string, err error) error {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		return &exchange.OrderRejectedError{Symbol: symbol, Code: apiErr.Code, Msg: apiErr.Message}
	}
	return fmt.Errorf("place order %s: %w", symbol, err)
}
