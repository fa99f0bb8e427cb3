// Package executor 把一个 decision.Intent 映射为至多一笔市价单。
//
//	Long  -> 合约 BUY  positionSide=LONG   （先设置逐仓和杠杆）
//	Short -> 合约 SELL positionSide=SHORT  （先设置逐仓和杠杆）
//	Buy   -> 现货 BUY，数量按计价币余额扣除手续费预留计算
//	Sell  -> 现货 SELL，卖出全部基础币
//	Hold  -> 不操作
//
// 同一轮内订单不重试。
package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"aitrader/internal/account"
	"aitrader/internal/decision"
	"aitrader/internal/gateway/exchange"
	"aitrader/internal/logger"
	"aitrader/internal/pkg/trading"
)

type MarginFailurePolicy string

const (
	MarginProceed MarginFailurePolicy = "proceed"
	MarginAbort   MarginFailurePolicy = "abort"
)

// Pair 指定执行器交易的合约/现货品种和资产。
type Pair struct {
	SpotSymbol    string
	FuturesSymbol string
	BaseAsset     string
	QuoteAsset    string
	FuturesAsset  string
}

// Policy 保存下单数量相关的常量。
type Policy struct {
	FeeReserve      decimal.Decimal // spot buy multiplier, e.g. 0.9995
	FuturesReserve  decimal.Decimal // futures multiplier on balance*leverage
	MinBuyNotional  decimal.Decimal // skip spot buys below this quote amount
	MinSellQty      decimal.Decimal // skip spot sells below this base amount
	Leverage        int
	OnMarginFailure MarginFailurePolicy
}

// MarginEnsurer 在杠杆下单前准备合约交易对。
type MarginEnsurer interface {
	EnsureIsolatedLeverage(ctx context.Context, symbol string, leverage int) error
}

type Executor struct {
	accounts *account.Reader
	orders   exchange.OrderPlacer
	margin   MarginEnsurer
	pair     Pair
	policy   Policy
	newID    func() string
}

func New(accounts *account.Reader, orders exchange.OrderPlacer, margin MarginEnsurer, pair Pair, policy Policy) *Executor {
	if policy.Leverage < 1 {
		policy.Leverage = 1
	}
	if policy.OnMarginFailure == "" {
		policy.OnMarginFailure = MarginProceed
	}
	return &Executor{
		accounts: accounts,
		orders:   orders,
		margin:   margin,
		pair:     pair,
		policy:   policy,
		newID:    newClientOrderID,
	}
}

// newClientOrderID 长度不超过币安的 36 字符限制。
func newClientOrderID() string {
	return "ait-" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Execute 为 intent 运行状态机，不返回 error，所有失败都体现在 Result 的 outcome 中。
func (e *Executor) Execute(ctx context.Context, intent decision.Intent) Result {
	res := Result{Intent: intent, State: pendingState(intent.Decision)}
	switch intent.Decision {
	case decision.KindHold:
		return skip(res, "hold")
	case decision.KindLong:
		return e.openFutures(ctx, res, exchange.SideBuy, exchange.PositionSideLong)
	case decision.KindShort:
		return e.openFutures(ctx, res, exchange.SideSell, exchange.PositionSideShort)
	case decision.KindBuy:
		return e.spotBuy(ctx, res)
	case decision.KindSell:
		return e.spotSell(ctx, res)
	default:
		res.Outcome = OutcomeFailed
		res.Order.Error = fmt.Sprintf("unhandled decision kind %d", int(intent.Decision))
		return res
	}
}

func (e *Executor) openFutures(ctx context.Context, res Result, side exchange.Side, posSide exchange.PositionSide) Result {
	symbol := e.pair.FuturesSymbol
	if err := e.margin.EnsureIsolatedLeverage(ctx, symbol, e.policy.Leverage); err != nil {
		if e.policy.OnMarginFailure == MarginAbort {
			res.Order.Error = err.Error()
			return skip(res, "margin configuration failed")
		}
		logger.Warnf("executor: %v; proceeding with %s order", err, res.Intent.Decision)
		res.Warnings = append(res.Warnings, err.Error())
	}

	snap, err := e.accounts.ReadBalances(ctx, exchange.MarketFutures)
	if err != nil {
		return unavailable(res, err)
	}
	price, err := e.accounts.ReadPrice(ctx, exchange.MarketFutures, symbol)
	if err != nil {
		return unavailable(res, err)
	}
	cons, err := e.accounts.ReadConstraints(ctx, exchange.MarketFutures, symbol)
	if err != nil {
		return unavailable(res, err)
	}

	balance := snap.Free(e.pair.FuturesAsset)
	notional := trading.ApplyReserve(balance.Mul(decimal.NewFromInt(int64(e.policy.Leverage))), e.policy.FuturesReserve)
	qty := trading.ComputeQuantity(notional, price, cons.LotSize)
	res.Order.Quantity = decimal.NewNullDecimal(qty)
	if qty.IsZero() {
		return skip(res, fmt.Sprintf("quantity is zero: %s %s at %s x%d under min_qty %s",
			balance, e.pair.FuturesAsset, price, e.policy.Leverage, cons.MinQty))
	}
	return e.place(ctx, res, exchange.OrderRequest{
		Market:       exchange.MarketFutures,
		Symbol:       symbol,
		Side:         side,
		PositionSide: posSide,
		Quantity:     qty,
	})
}

func (e *Executor) spotBuy(ctx context.Context, res Result) Result {
	snap, err := e.accounts.ReadBalances(ctx, exchange.MarketSpot)
	if err != nil {
		return unavailable(res, err)
	}
	quote := snap.Free(e.pair.QuoteAsset)
	notional := trading.ApplyReserve(quote, e.policy.FeeReserve)
	if notional.LessThan(e.policy.MinBuyNotional) {
		return skip(res, fmt.Sprintf("%s balance %s below minimum notional %s", e.pair.QuoteAsset, quote, e.policy.MinBuyNotional))
	}
	price, err := e.accounts.ReadPrice(ctx, exchange.MarketSpot, e.pair.SpotSymbol)
	if err != nil {
		return unavailable(res, err)
	}
	cons, err := e.accounts.ReadConstraints(ctx, exchange.MarketSpot, e.pair.SpotSymbol)
	if err != nil {
		return unavailable(res, err)
	}
	qty := trading.ComputeQuantity(notional, price, cons.LotSize)
	res.Order.Quantity = decimal.NewNullDecimal(qty)
	if qty.IsZero() {
		return skip(res, fmt.Sprintf("quantity is zero: %s %s at %s under min_qty %s", notional, e.pair.QuoteAsset, price, cons.MinQty))
	}
	return e.place(ctx, res, exchange.OrderRequest{
		Market:   exchange.MarketSpot,
		Symbol:   e.pair.SpotSymbol,
		Side:     exchange.SideBuy,
		Quantity: qty,
	})
}

func (e *Executor) spotSell(ctx context.Context, res Result) Result {
	snap, err := e.accounts.ReadBalances(ctx, exchange.MarketSpot)
	if err != nil {
		return unavailable(res, err)
	}
	base := snap.Free(e.pair.BaseAsset)
	if base.LessThan(e.policy.MinSellQty) {
		return skip(res, fmt.Sprintf("%s balance %s below minimum sell quantity %s", e.pair.BaseAsset, base, e.policy.MinSellQty))
	}
	cons, err := e.accounts.ReadConstraints(ctx, exchange.MarketSpot, e.pair.SpotSymbol)
	if err != nil {
		return unavailable(res, err)
	}
	qty := trading.FloorToStep(base, cons.StepSize)
	if qty.LessThan(cons.MinQty) {
		qty = decimal.Zero
	}
	res.Order.Quantity = decimal.NewNullDecimal(qty)
	if qty.IsZero() {
		return skip(res, fmt.Sprintf("%s balance %s under min_qty %s after step %s", e.pair.BaseAsset, base, cons.MinQty, cons.StepSize))
	}
	return e.place(ctx, res, exchange.OrderRequest{
		Market:   exchange.MarketSpot,
		Symbol:   e.pair.SpotSymbol,
		Side:     exchange.SideSell,
		Quantity: qty,
	})
}

// place 是唯一调用交易所下单接口的路径。
func (e *Executor) place(ctx context.Context, res Result, req exchange.OrderRequest) Result {
	req.ClientOrderID = e.newID()
	res.Request = &req
	res.Order.Attempted = true
	res.Order.Quantity = decimal.NewNullDecimal(req.Quantity)
	ack, err := e.orders.PlaceMarketOrder(ctx, req)
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Order.Error = err.Error()
		if exchange.IsOrderRejected(err) {
			logger.Warnf("executor: %s %s %s rejected: %v", req.Market, req.Side, req.Symbol, err)
		} else {
			logger.Errorf("executor: %s %s %s failed: %v", req.Market, req.Side, req.Symbol, err)
		}
		return res
	}
	res.Outcome = OutcomeExecuted
	res.Order.Succeeded = true
	res.Ack = &ack
	return res
}

func skip(res Result, reason string) Result {
	res.Outcome = OutcomeSkipped
	res.SkipReason = reason
	return res
}

func unavailable(res Result, err error) Result {
	res.Order.Error = err.Error()
	reason := "market data unavailable"
	if !errors.Is(err, exchange.ErrMarketDataUnavailable) {
		reason = "account read failed"
	}
	return skip(res, reason)
}
