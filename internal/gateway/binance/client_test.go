package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aitrader/internal/gateway/exchange"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(Config{APIKey: "k", SecretKey: "s", SpotBaseURL: srv.URL, FuturesBaseURL: srv.URL})
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestSpotBalances(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/account"))
		writeJSON(w, http.StatusOK, `{"balances":[{"asset":"USDT","free":"123.45","locked":"1"},{"asset":"btc","free":"0.00005","locked":"0"}]}`)
	})
	snap, err := c.Balances(context.Background(), exchange.MarketSpot)
	require.NoError(t, err)
	assert.Equal(t, exchange.MarketSpot, snap.Market)
	assert.True(t, decimal.RequireFromString("123.45").Equal(snap.Free("USDT")))
	assert.True(t, decimal.RequireFromString("0.00005").Equal(snap.Free("BTC")))
	assert.False(t, snap.CapturedAt.IsZero())
}

func TestSpotConstraintsFromLotSize(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"symbols":[{"symbol":"BTCUSDT","filters":[
			{"filterType":"PRICE_FILTER","tickSize":"0.01"},
			{"filterType":"LOT_SIZE","minQty":"0.00001000","maxQty":"9000.00000000","stepSize":"0.00001000"}]}]}`)
	})
	cons, err := c.Constraints(context.Background(), exchange.MarketSpot, "BTCUSDT")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("0.00001").Equal(cons.StepSize))
	assert.True(t, decimal.RequireFromString("0.00001").Equal(cons.MinQty))
}

func TestSpotConstraintsIgnoreUnsetMarketLotSize(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"symbols":[{"symbol":"BTCUSDT","filters":[
			{"filterType":"LOT_SIZE","minQty":"0.00001000","maxQty":"9000.00000000","stepSize":"0.00001000"},
			{"filterType":"MARKET_LOT_SIZE","minQty":"0.00000000","maxQty":"86.00000000","stepSize":"0.00000000"}]}]}`)
	})
	cons, err := c.Constraints(context.Background(), exchange.MarketSpot, "BTCUSDT")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("0.00001").Equal(cons.StepSize))
	assert.True(t, decimal.RequireFromString("0.00001").Equal(cons.MinQty))
}

func TestFuturesConstraintsUseStricterMarketLotSize(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"symbols":[{"symbol":"BTCUSDT","filters":[
			{"filterType":"LOT_SIZE","minQty":"0.001","maxQty":"1000","stepSize":"0.001"},
			{"filterType":"MARKET_LOT_SIZE","minQty":"0.002","maxQty":"120","stepSize":"0.01"}]}]}`)
	})
	cons, err := c.Constraints(context.Background(), exchange.MarketFutures, "BTCUSDT")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("0.01").Equal(cons.StepSize))
	// 最小数量不低于步长
	assert.True(t, decimal.RequireFromString("0.01").Equal(cons.MinQty))
}

func TestConstraintsMissingFilter(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"symbols":[{"symbol":"BTCUSDT","filters":[]}]}`)
	})
	_, err := c.Constraints(context.Background(), exchange.MarketSpot, "BTCUSDT")
	assert.Error(t, err)
}

func TestSetMarginTypeAlreadySet(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, `{"code":-4046,"msg":"No need to change margin type."}`)
	})
	err := c.SetMarginType(context.Background(), "BTCUSDT", exchange.MarginIsolated)
	assert.ErrorIs(t, err, exchange.ErrAlreadySet)
}

func TestSetMarginTypeGenuineFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, `{"code":-1121,"msg":"Invalid symbol."}`)
	})
	err := c.SetMarginType(context.Background(), "NOPE", exchange.MarginIsolated)
	require.Error(t, err)
	assert.NotErrorIs(t, err, exchange.ErrAlreadySet)
}

func TestPlaceMarketOrderRejected(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeJSON(w, http.StatusBadRequest, `{"code":-2010,"msg":"Account has insufficient balance for requested action."}`)
	})
	_, err := c.PlaceMarketOrder(context.Background(), exchange.OrderRequest{
		Market:   exchange.MarketSpot,
		Symbol:   "BTCUSDT",
		Side:     exchange.SideBuy,
		Quantity: decimal.RequireFromString("0.002"),
	})
	require.Error(t, err)
	assert.True(t, exchange.IsOrderRejected(err))
	assert.Equal(t, 1, calls)
}

func TestPlaceFuturesOrderSendsPositionSide(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "SHORT", r.Form.Get("positionSide"))
		assert.Equal(t, "SELL", r.Form.Get("side"))
		assert.Equal(t, "MARKET", r.Form.Get("type"))
		assert.Equal(t, "0.004", r.Form.Get("quantity"))
		writeJSON(w, http.StatusOK, `{"symbol":"BTCUSDT","orderId":42,"clientOrderId":"cid","executedQty":"0.004","status":"FILLED"}`)
	})
	ack, err := c.PlaceMarketOrder(context.Background(), exchange.OrderRequest{
		Market:        exchange.MarketFutures,
		Symbol:        "BTCUSDT",
		Side:          exchange.SideSell,
		PositionSide:  exchange.PositionSideShort,
		Quantity:      decimal.RequireFromString("0.004"),
		ClientOrderID: "cid",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), ack.OrderID)
	assert.Equal(t, "FILLED", ack.Status)
	assert.True(t, decimal.RequireFromString("0.004").Equal(ack.ExecutedQty))
}
