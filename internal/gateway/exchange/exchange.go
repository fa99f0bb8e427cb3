package exchange

import (
	"context"

	"github.com/shopspring/decimal"
)

// AccountReader 暴露单轮所需的只读接口。
type AccountReader interface {
	Balances(ctx context.Context, market Market) (AccountSnapshot, error)

	Price(ctx context.Context, market Market, symbol string) (decimal.Decimal, error)

	Constraints(ctx context.Context, market Market, symbol string) (SymbolConstraints, error)
}

// OrderPlacer 发送一笔市价单，实现内部不得重试。
type OrderPlacer interface {
	PlaceMarketOrder(ctx context.Context, req OrderRequest) (OrderAck, error)
}

// MarginSetter 修改合约交易对的账户设置，无需变更时返回 ErrAlreadySet。
type MarginSetter interface {
	SetMarginType(ctx context.Context, symbol string, marginType MarginType) error

	SetLeverage(ctx context.Context, symbol string, leverage int) error
}

// Exchange 是完整的交易所接口，进程内构建一次，各轮共享。
type Exchange interface {
	Name() string
	AccountReader
	OrderPlacer
	MarginSetter
}
