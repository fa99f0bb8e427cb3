package margin

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"aitrader/internal/gateway/exchange"
)

type MockMarginSetter struct {
	mock.Mock
}

func (m *MockMarginSetter) SetMarginType(ctx context.Context, symbol string, marginType exchange.MarginType) error {
	return m.Called(ctx, symbol, marginType).Error(0)
}

func (m *MockMarginSetter) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	return m.Called(ctx, symbol, leverage).Error(0)
}

func TestEnsureIsolatedLeverageSuccess(t *testing.T) {
	venue := new(MockMarginSetter)
	venue.On("SetMarginType", mock.Anything, "BTCUSDT", exchange.MarginIsolated).Return(nil)
	venue.On("SetLeverage", mock.Anything, "BTCUSDT", 1).Return(nil)

	require.NoError(t, NewConfigurator(venue).EnsureIsolatedLeverage(context.Background(), "BTCUSDT", 1))
	venue.AssertExpectations(t)
}

func TestEnsureIsolatedLeverageAlreadySetIsNoop(t *testing.T) {
	venue := new(MockMarginSetter)
	venue.On("SetMarginType", mock.Anything, "BTCUSDT", exchange.MarginIsolated).
		Return(fmt.Errorf("%w: No need to change margin type.", exchange.ErrAlreadySet))
	venue.On("SetLeverage", mock.Anything, "BTCUSDT", 1).Return(exchange.ErrAlreadySet)

	assert.NoError(t, NewConfigurator(venue).EnsureIsolatedLeverage(context.Background(), "BTCUSDT", 1))
}

func TestEnsureIsolatedLeverageGenuineFailure(t *testing.T) {
	cause := errors.New("invalid symbol")
	venue := new(MockMarginSetter)
	venue.On("SetMarginType", mock.Anything, "NOPE", exchange.MarginIsolated).Return(cause)
	venue.On("SetLeverage", mock.Anything, "NOPE", 1).Return(nil)

	err := NewConfigurator(venue).EnsureIsolatedLeverage(context.Background(), "NOPE", 1)
	var cfgErr *exchange.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "NOPE", cfgErr.Symbol)
	assert.ErrorIs(t, err, cause)
	venue.AssertNumberOfCalls(t, "SetLeverage", 1)
}

func TestEnsureIsolatedLeverageRejectsZero(t *testing.T) {
	venue := new(MockMarginSetter)
	err := NewConfigurator(venue).EnsureIsolatedLeverage(context.Background(), "BTCUSDT", 0)
	assert.Error(t, err)
	venue.AssertNotCalled(t, "SetMarginType", mock.Anything, mock.Anything, mock.Anything)
}
