package account

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"aitrader/internal/gateway/exchange"
	"aitrader/internal/pkg/trading"
)

type MockVenue struct {
	mock.Mock
}

func (m *MockVenue) Balances(ctx context.Context, market exchange.Market) (exchange.AccountSnapshot, error) {
	args := m.Called(ctx, market)
	return args.Get(0).(exchange.AccountSnapshot), args.Error(1)
}

func (m *MockVenue) Price(ctx context.Context, market exchange.Market, symbol string) (decimal.Decimal, error) {
	args := m.Called(ctx, market, symbol)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockVenue) Constraints(ctx context.Context, market exchange.Market, symbol string) (exchange.SymbolConstraints, error) {
	args := m.Called(ctx, market, symbol)
	return args.Get(0).(exchange.SymbolConstraints), args.Error(1)
}

func TestReadBalances(t *testing.T) {
	venue := new(MockVenue)
	snap := exchange.AccountSnapshot{Market: exchange.MarketSpot, Balances: map[string]decimal.Decimal{"USDT": decimal.NewFromInt(50)}}
	venue.On("Balances", mock.Anything, exchange.MarketSpot).Return(snap, nil)

	got, err := NewReader(venue).ReadBalances(context.Background(), exchange.MarketSpot)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(50).Equal(got.Free("USDT")))
	venue.AssertExpectations(t)
}

func TestReadFailuresAreMarketDataUnavailable(t *testing.T) {
	cause := errors.New("401 unauthorized")
	venue := new(MockVenue)
	venue.On("Balances", mock.Anything, exchange.MarketFutures).Return(exchange.AccountSnapshot{}, cause)
	venue.On("Price", mock.Anything, exchange.MarketSpot, "BTCUSDT").Return(decimal.Zero, cause)
	venue.On("Constraints", mock.Anything, exchange.MarketSpot, "BTCUSDT").Return(exchange.SymbolConstraints{}, cause)
	r := NewReader(venue)
	ctx := context.Background()

	_, err := r.ReadBalances(ctx, exchange.MarketFutures)
	assert.ErrorIs(t, err, exchange.ErrMarketDataUnavailable)
	assert.ErrorIs(t, err, cause)

	_, err = r.ReadPrice(ctx, exchange.MarketSpot, "BTCUSDT")
	assert.ErrorIs(t, err, exchange.ErrMarketDataUnavailable)

	_, err = r.ReadConstraints(ctx, exchange.MarketSpot, "BTCUSDT")
	assert.ErrorIs(t, err, exchange.ErrMarketDataUnavailable)
}

func TestReadBalancesEmptyPayload(t *testing.T) {
	venue := new(MockVenue)
	venue.On("Balances", mock.Anything, exchange.MarketSpot).Return(exchange.AccountSnapshot{}, nil)
	_, err := NewReader(venue).ReadBalances(context.Background(), exchange.MarketSpot)
	assert.ErrorIs(t, err, exchange.ErrMarketDataUnavailable)
}

func TestReadConstraintsRejectsBrokenLotSize(t *testing.T) {
	venue := new(MockVenue)
	bad := exchange.SymbolConstraints{Symbol: "BTCUSDT", LotSize: trading.LotSize{StepSize: decimal.Zero, MinQty: decimal.Zero}}
	venue.On("Constraints", mock.Anything, exchange.MarketSpot, "BTCUSDT").Return(bad, nil)

	_, err := NewReader(venue).ReadConstraints(context.Background(), exchange.MarketSpot, "BTCUSDT")
	assert.ErrorIs(t, err, exchange.ErrMarketDataUnavailable)
	assert.ErrorIs(t, err, trading.ErrInvalidLotSize)
}
