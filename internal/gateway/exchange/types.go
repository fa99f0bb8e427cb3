// Package exchange 定义交易循环使用的交易所抽象：账户读取、市价下单、合约保证金设置，
// 以及各适配器共用的错误分类。
package exchange

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"aitrader/internal/pkg/trading"
)

// Market 指定调用作用的账户（现货/合约）。
type Market string

const (
	MarketSpot    Market = "spot"
	MarketFutures Market = "futures"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// PositionSide 合约双向持仓模式必填，现货留空。
type PositionSide string

const (
	PositionSideNone  PositionSide = ""
	PositionSideLong  PositionSide = "LONG"
	PositionSideShort PositionSide = "SHORT"
)

type MarginType string

const (
	MarginIsolated MarginType = "ISOLATED"
	MarginCrossed  MarginType = "CROSSED"
)

// AccountSnapshot 是一次读取得到的可用余额，不跨轮复用。
type AccountSnapshot struct {
	Market     Market
	Balances   map[string]decimal.Decimal // asset -> free balance, non-negative
	CapturedAt time.Time
}

// Free 返回 asset 的可用余额，不存在时为 0。
func (s AccountSnapshot) Free(asset string) decimal.Decimal {
	if s.Balances == nil {
		return decimal.Zero
	}
	v, ok := s.Balances[strings.ToUpper(asset)]
	if !ok || v.IsNegative() {
		return decimal.Zero
	}
	return v
}

// SymbolConstraints 是交易对的数量规则，每次下单前重新拉取。
type SymbolConstraints struct {
	Symbol string
	Market Market
	trading.LotSize
}

// OrderRequest 描述一笔市价单。
type OrderRequest struct {
	Market        Market
	Symbol        string
	Side          Side
	PositionSide  PositionSide
	Quantity      decimal.Decimal
	ClientOrderID string
}

// OrderAck 是交易所受理订单后的回执。
type OrderAck struct {
	OrderID       int64
	ClientOrderID string
	Status        string
	ExecutedQty   decimal.Decimal
}
