package binance

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"aitrader/internal/gateway/exchange"
	"aitrader/internal/logger"
	"aitrader/internal/pkg/trading"

	binanceapi "github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"
)

// Client 基于 go-binance SDK 实现 exchange.Exchange，现货与 U 本位合约共用一套凭证。
type Client struct {
	cfg     Config
	spot    *binanceapi.Client
	futures *futures.Client
	nowFn   func() time.Time
}

var _ exchange.Exchange = (*Client)(nil)

func New(cfg Config) (*Client, error) {
	final := cfg.withDefaults()
	httpClient, err := newHTTPClient(final)
	if err != nil {
		return nil, err
	}
	if final.Testnet {
		binanceapi.UseTestnet = true
		futures.UseTestnet = true
	}
	spot := binanceapi.NewClient(final.APIKey, final.SecretKey)
	fut := futures.NewClient(final.APIKey, final.SecretKey)
	if !final.Testnet {
		if final.SpotBaseURL != "" {
			spot.BaseURL = final.SpotBaseURL
		}
		if final.FuturesBaseURL != "" {
			fut.BaseURL = final.FuturesBaseURL
		}
	}
	spot.HTTPClient = httpClient
	fut.HTTPClient = httpClient
	return &Client{cfg: final, spot: spot, futures: fut, nowFn: time.Now}, nil
}

func newHTTPClient(cfg Config) (*http.Client, error) {
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	if cfg.ProxyURL == "" {
		return httpClient, nil
	}
	proxyURL, err := url.Parse(cfg.ProxyURL)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy url: %w", err)
	}
	baseTransport, ok := http.DefaultTransport.(*http.Transport)
	if !ok || baseTransport == nil {
		return nil, fmt.Errorf("http DefaultTransport is not *http.Transport")
	}
	transport := baseTransport.Clone()
	transport.Proxy = http.ProxyURL(proxyURL)
	httpClient.Transport = transport
	return httpClient, nil
}

func (c *Client) Name() string { return "binance" }

// SyncTime 对齐本地与服务器时间偏移，避免签名请求因 recvWindow 被拒。
func (c *Client) SyncTime(ctx context.Context) error {
	if _, err := c.spot.NewSetServerTimeService().Do(ctx); err != nil {
		return fmt.Errorf("sync spot server time: %w", err)
	}
	if _, err := c.futures.NewSetServerTimeService().Do(ctx); err != nil {
		return fmt.Errorf("sync futures server time: %w", err)
	}
	return nil
}

func (c *Client) Balances(ctx context.Context, market exchange.Market) (exchange.AccountSnapshot, error) {
	snap := exchange.AccountSnapshot{Market: market, Balances: map[string]decimal.Decimal{}}
	switch market {
	case exchange.MarketSpot:
		acct, err := c.spot.NewGetAccountService().Do(ctx)
		if err != nil {
			return snap, err
		}
		for _, b := range acct.Balances {
			if err := putBalance(snap.Balances, b.Asset, b.Free); err != nil {
				return snap, err
			}
		}
	case exchange.MarketFutures:
		bals, err := c.futures.NewGetBalanceService().Do(ctx)
		if err != nil {
			return snap, err
		}
		for _, b := range bals {
			if b == nil {
				continue
			}
			if err := putBalance(snap.Balances, b.Asset, b.AvailableBalance); err != nil {
				return snap, err
			}
		}
	default:
		return snap, fmt.Errorf("unknown market %q", market)
	}
	snap.CapturedAt = c.nowFn()
	return snap, nil
}

func putBalance(dst map[string]decimal.Decimal, asset, free string) error {
	asset = strings.ToUpper(strings.TrimSpace(asset))
	if asset == "" {
		return nil
	}
	amount, err := parseDecimal(free)
	if err != nil {
		return fmt.Errorf("balance %s: %w", asset, err)
	}
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	dst[asset] = amount
	return nil
}

func (c *Client) Price(ctx context.Context, market exchange.Market, symbol string) (decimal.Decimal, error) {
	var raw string
	switch market {
	case exchange.MarketSpot:
		prices, err := c.spot.NewListPricesService().Symbol(symbol).Do(ctx)
		if err != nil {
			return decimal.Zero, err
		}
		for _, p := range prices {
			if p != nil && strings.EqualFold(p.Symbol, symbol) {
				raw = p.Price
			}
		}
	case exchange.MarketFutures:
		prices, err := c.futures.NewListPricesService().Symbol(symbol).Do(ctx)
		if err != nil {
			return decimal.Zero, err
		}
		for _, p := range prices {
			if p != nil && strings.EqualFold(p.Symbol, symbol) {
				raw = p.Price
			}
		}
	default:
		return decimal.Zero, fmt.Errorf("unknown market %q", market)
	}
	if raw == "" {
		return decimal.Zero, fmt.Errorf("no price returned for %s", symbol)
	}
	return parseDecimal(raw)
}

// Constraints 读取 LOT_SIZE 与 MARKET_LOT_SIZE，两者取更严格的步长和最小数量（市价单受后者约束）。
func (c *Client) Constraints(ctx context.Context, market exchange.Market, symbol string) (exchange.SymbolConstraints, error) {
	out := exchange.SymbolConstraints{Symbol: symbol, Market: market}
	var lot, marketLot lotFilter
	switch market {
	case exchange.MarketSpot:
		info, err := c.spot.NewExchangeInfoService().Symbol(symbol).Do(ctx)
		if err != nil {
			return out, err
		}
		for _, s := range info.Symbols {
			if !strings.EqualFold(s.Symbol, symbol) {
				continue
			}
			if f := s.LotSizeFilter(); f != nil {
				lot = lotFilter{step: f.StepSize, minQty: f.MinQuantity}
			}
			if f := s.MarketLotSizeFilter(); f != nil {
				marketLot = lotFilter{step: f.StepSize, minQty: f.MinQuantity}
			}
		}
	case exchange.MarketFutures:
		info, err := c.futures.NewExchangeInfoService().Do(ctx)
		if err != nil {
			return out, err
		}
		for _, s := range info.Symbols {
			if !strings.EqualFold(s.Symbol, symbol) {
				continue
			}
			if f := s.LotSizeFilter(); f != nil {
				lot = lotFilter{step: f.StepSize, minQty: f.MinQuantity}
			}
			if f := s.MarketLotSizeFilter(); f != nil {
				marketLot = lotFilter{step: f.StepSize, minQty: f.MinQuantity}
			}
		}
	default:
		return out, fmt.Errorf("unknown market %q", market)
	}
	if lot.step == "" {
		return out, fmt.Errorf("LOT_SIZE filter not found for %s", symbol)
	}
	size, err := lot.parse()
	if err != nil {
		return out, fmt.Errorf("LOT_SIZE: %w", err)
	}
	if marketLot.step != "" {
		mkt, err := marketLot.parse()
		if err != nil {
			return out, fmt.Errorf("MARKET_LOT_SIZE: %w", err)
		}
		size = stricter(size, mkt)
	}
	out.LotSize = size.Normalize()
	if err := out.LotSize.Validate(); err != nil {
		return out, err
	}
	return out, nil
}

type lotFilter struct {
	step   string
	minQty string
}

func (f lotFilter) parse() (trading.LotSize, error) {
	step, err := parseDecimal(f.step)
	if err != nil {
		return trading.LotSize{}, fmt.Errorf("stepSize: %w", err)
	}
	minQty, err := parseDecimal(f.minQty)
	if err != nil {
		return trading.LotSize{}, fmt.Errorf("minQty: %w", err)
	}
	return trading.LotSize{StepSize: step, MinQty: minQty}, nil
}

// stricter 合并两组规则；为 0 的字段表示交易所未设限制。
func stricter(a, b trading.LotSize) trading.LotSize {
	if b.StepSize.GreaterThan(a.StepSize) {
		a.StepSize = b.StepSize
	}
	if b.MinQty.GreaterThan(a.MinQty) {
		a.MinQty = b.MinQty
	}
	return a
}

// PlaceMarketOrder 只发送一次请求，SDK 不会重试。
func (c *Client) PlaceMarketOrder(ctx context.Context, req exchange.OrderRequest) (exchange.OrderAck, error) {
	qty := req.Quantity.String()
	switch req.Market {
	case exchange.MarketSpot:
		svc := c.spot.NewCreateOrderService().
			Symbol(req.Symbol).
			Side(binanceapi.SideType(req.Side)).
			Type(binanceapi.OrderTypeMarket).
			Quantity(qty)
		if req.ClientOrderID != "" {
			svc = svc.NewClientOrderID(req.ClientOrderID)
		}
		res, err := svc.Do(ctx)
		if err != nil {
			return exchange.OrderAck{}, orderError(req.Symbol, err)
		}
		executed, _ := parseDecimal(res.ExecutedQuantity)
		return exchange.OrderAck{
			OrderID:       res.OrderID,
			ClientOrderID: res.ClientOrderID,
			Status:        string(res.Status),
			ExecutedQty:   executed,
		}, nil
	case exchange.MarketFutures:
		svc := c.futures.NewCreateOrderService().
			Symbol(req.Symbol).
			Side(futures.SideType(req.Side)).
			Type(futures.OrderTypeMarket).
			Quantity(qty)
		if req.PositionSide != exchange.PositionSideNone {
			svc = svc.PositionSide(futures.PositionSideType(req.PositionSide))
		}
		if req.ClientOrderID != "" {
			svc = svc.NewClientOrderID(req.ClientOrderID)
		}
		res, err := svc.Do(ctx)
		if err != nil {
			return exchange.OrderAck{}, orderError(req.Symbol, err)
		}
		executed, _ := parseDecimal(res.ExecutedQuantity)
		return exchange.OrderAck{
			OrderID:       res.OrderID,
			ClientOrderID: res.ClientOrderID,
			Status:        string(res.Status),
			ExecutedQty:   executed,
		}, nil
	default:
		return exchange.OrderAck{}, fmt.Errorf("unknown market %q", req.Market)
	}
}

func (c *Client) SetMarginType(ctx context.Context, symbol string, marginType exchange.MarginType) error {
	err := c.futures.NewChangeMarginTypeService().
		Symbol(symbol).
		MarginType(futures.MarginType(marginType)).
		Do(ctx)
	return marginError(err)
}

func (c *Client) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	res, err := c.futures.NewChangeLeverageService().Symbol(symbol).Leverage(leverage).Do(ctx)
	if err != nil {
		return marginError(err)
	}
	if res != nil && res.Leverage != leverage {
		logger.Warnf("binance: leverage for %s reported as %d after requesting %d", symbol, res.Leverage, leverage)
	}
	return nil
}

func parseDecimal(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}
