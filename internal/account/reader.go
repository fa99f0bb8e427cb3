// Package account 从交易所读取余额、价格和数量规则。
// 失败统一报告为 exchange.ErrMarketDataUnavailable，这里不重试也不缓存。
package account

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"aitrader/internal/gateway/exchange"
)

type Reader struct {
	venue exchange.AccountReader
}

func NewReader(venue exchange.AccountReader) *Reader {
	return &Reader{venue: venue}
}

func (r *Reader) ReadBalances(ctx context.Context, market exchange.Market) (exchange.AccountSnapshot, error) {
	snap, err := r.venue.Balances(ctx, market)
	if err != nil {
		return exchange.AccountSnapshot{}, &exchange.MarketDataError{Op: "balances", Market: market, Err: err}
	}
	if snap.Balances == nil {
		return exchange.AccountSnapshot{}, &exchange.MarketDataError{Op: "balances", Market: market, Err: fmt.Errorf("empty payload")}
	}
	return snap, nil
}

func (r *Reader) ReadPrice(ctx context.Context, market exchange.Market, symbol string) (decimal.Decimal, error) {
	price, err := r.venue.Price(ctx, market, symbol)
	if err != nil {
		return decimal.Zero, &exchange.MarketDataError{Op: "price", Market: market, Symbol: symbol, Err: err}
	}
	return price, nil
}

func (r *Reader) ReadConstraints(ctx context.Context, market exchange.Market, symbol string) (exchange.SymbolConstraints, error) {
	cons, err := r.venue.Constraints(ctx, market, symbol)
	if err == nil {
		err = cons.Validate()
	}
	if err != nil {
		return exchange.SymbolConstraints{}, &exchange.MarketDataError{Op: "constraints", Market: market, Symbol: symbol, Err: err}
	}
	return cons, nil
}
