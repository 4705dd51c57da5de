package bpexc

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/go-gotop/backpack/exchange"
	"github.com/go-gotop/backpack/limiter"
	"github.com/go-gotop/backpack/requests/bphttp"
)

const (
	defaultDepthLimit = 100
	defaultLimit      = 100
)

func NewBackpack(cli *bphttp.Client) exchange.Exchange {
	return &backpack{
		client: cli,
	}
}

type backpack struct {
	client *bphttp.Client
}

func (b *backpack) Name() string {
	return exchange.BackpackExchange
}

func (b *backpack) call(ctx context.Context, r *bphttp.Request, out interface{}) error {
	data, err := b.client.CallAPI(ctx, r)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return bphttp.Json.Unmarshal(data, out)
}

func (b *backpack) ServerTime(ctx context.Context) (int64, error) {
	var res bpServerTime
	r := &bphttp.Request{
		Method:   http.MethodGet,
		Endpoint: "/api/v1/time",
	}
	if err := b.call(ctx, r, &res); err != nil {
		return 0, err
	}
	return res.ServerTime, nil
}

func (b *backpack) ExchangeInfo(ctx context.Context) (*exchange.ExchangeInfo, error) {
	var res exchange.ExchangeInfo
	r := &bphttp.Request{
		Method:   http.MethodGet,
		Endpoint: "/api/v1/exchangeInfo",
	}
	if err := b.call(ctx, r, &res); err != nil {
		return nil, err
	}
	for _, s := range res.Symbols {
		s.Symbol = exchange.ToClientSymbol(s.Symbol)
	}
	return &res, nil
}

func (b *backpack) Ticker(ctx context.Context, symbol string) (*exchange.Ticker, error) {
	if symbol == "" {
		return nil, exchange.ErrEmptySymbol
	}
	var res exchange.Ticker
	r := &bphttp.Request{
		Method:   http.MethodGet,
		Endpoint: "/api/v1/ticker",
	}
	r.SetParam("symbol", exchange.ToWireSymbol(symbol))
	if err := b.call(ctx, r, &res); err != nil {
		return nil, err
	}
	return normalizeTicker(&res), nil
}

// Tickers 以客户端格式的交易对为 key
func (b *backpack) Tickers(ctx context.Context) (map[string]*exchange.Ticker, error) {
	res := make([]*exchange.Ticker, 0)
	r := &bphttp.Request{
		Method:   http.MethodGet,
		Endpoint: "/api/v1/tickers",
	}
	if err := b.call(ctx, r, &res); err != nil {
		return nil, err
	}
	tickers := make(map[string]*exchange.Ticker, len(res))
	for _, t := range res {
		normalizeTicker(t)
		tickers[t.Symbol] = t
	}
	return tickers, nil
}

func (b *backpack) Depth(ctx context.Context, symbol string, limit int) (*exchange.Depth, error) {
	if symbol == "" {
		return nil, exchange.ErrEmptySymbol
	}
	if limit <= 0 {
		limit = defaultDepthLimit
	}
	var res exchange.Depth
	r := &bphttp.Request{
		Method:   http.MethodGet,
		Endpoint: "/api/v1/depth",
	}
	r.SetParams(bphttp.Params{
		"symbol": exchange.ToWireSymbol(symbol),
		"limit":  limit,
	})
	if err := b.call(ctx, r, &res); err != nil {
		return nil, err
	}
	res.Symbol = exchange.ToClientSymbol(symbol)
	return &res, nil
}

func (b *backpack) RecentTrades(ctx context.Context, symbol string, limit int) ([]*exchange.Trade, error) {
	if symbol == "" {
		return nil, exchange.ErrEmptySymbol
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	res := make([]*exchange.Trade, 0)
	r := &bphttp.Request{
		Method:   http.MethodGet,
		Endpoint: "/api/v1/trades",
	}
	r.SetParams(bphttp.Params{
		"symbol": exchange.ToWireSymbol(symbol),
		"limit":  limit,
	})
	if err := b.call(ctx, r, &res); err != nil {
		return nil, err
	}
	return normalizeTrades(res), nil
}

func (b *backpack) HistoricalTrades(ctx context.Context, req *exchange.HistoricalTradesRequest) ([]*exchange.Trade, error) {
	if req.Symbol == "" {
		return nil, exchange.ErrEmptySymbol
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	res := make([]*exchange.Trade, 0)
	r := &bphttp.Request{
		Method:   http.MethodGet,
		Endpoint: "/api/v1/historicalTrades",
		SecType:  bphttp.SecTypeSigned,
	}
	r.SetParams(bphttp.Params{
		"symbol": exchange.ToWireSymbol(req.Symbol),
		"limit":  limit,
	})
	if req.FromID != "" {
		r.SetParam("fromId", req.FromID)
	}
	if err := b.call(ctx, r, &res); err != nil {
		return nil, err
	}
	return normalizeTrades(res), nil
}

// Klines Interval 必须是K线频道
func (b *backpack) Klines(ctx context.Context, req *exchange.KlineRequest) ([]*exchange.Candle, error) {
	if req.Symbol == "" {
		return nil, exchange.ErrEmptySymbol
	}
	interval := req.Interval.Interval()
	if interval == "" {
		return nil, fmt.Errorf("%w: %s", exchange.ErrNotCandleChannel, req.Interval)
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	r := &bphttp.Request{
		Method:   http.MethodGet,
		Endpoint: "/api/v1/klines",
	}
	r.SetParams(bphttp.Params{
		"symbol":   exchange.ToWireSymbol(req.Symbol),
		"interval": interval,
		"limit":    limit,
	})
	if req.StartTime > 0 {
		r.SetParam("startTime", req.StartTime)
	}
	if req.EndTime > 0 {
		r.SetParam("endTime", req.EndTime)
	}
	data, err := b.client.CallAPI(ctx, r)
	if err != nil {
		return nil, err
	}
	return parseKlines(exchange.ToClientSymbol(req.Symbol), data)
}

func (b *backpack) CreateOrder(ctx context.Context, o *exchange.OrderRequest) (*exchange.Order, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	if o.ClientOrderID == "" {
		o.ClientOrderID = uuid.New().String()
	}
	var res exchange.Order
	r := &bphttp.Request{
		Method:    http.MethodPost,
		Endpoint:  "/api/v1/order",
		SecType:   bphttp.SecTypeSigned,
		LimitType: limiter.OrderLimit,
	}
	r.SetBody(toBpOrderBody(o))
	if err := b.call(ctx, r, &res); err != nil {
		return nil, err
	}
	return normalizeOrder(&res), nil
}

// TestOrder 校验下单参数, 不会真正下单
func (b *backpack) TestOrder(ctx context.Context, o *exchange.OrderRequest) error {
	if err := o.Validate(); err != nil {
		return err
	}
	r := &bphttp.Request{
		Method:    http.MethodPost,
		Endpoint:  "/api/v1/order/test",
		SecType:   bphttp.SecTypeSigned,
		LimitType: limiter.OrderLimit,
	}
	r.SetBody(toBpOrderBody(o))
	return b.call(ctx, r, nil)
}

func (b *backpack) CancelOrder(ctx context.Context, symbol, orderID string) error {
	return b.cancelOrder(ctx, symbol, "orderId", orderID)
}

func (b *backpack) CancelOrderByClientID(ctx context.Context, symbol, clientOrderID string) error {
	return b.cancelOrder(ctx, symbol, "clientOrderId", clientOrderID)
}

func (b *backpack) cancelOrder(ctx context.Context, symbol, idKey, id string) error {
	if symbol == "" {
		return exchange.ErrEmptySymbol
	}
	r := &bphttp.Request{
		Method:    http.MethodDelete,
		Endpoint:  "/api/v1/order",
		SecType:   bphttp.SecTypeSigned,
		LimitType: limiter.OrderLimit,
	}
	r.SetParams(bphttp.Params{
		"symbol": exchange.ToWireSymbol(symbol),
		idKey:    id,
	})
	return orderNotFound(b.call(ctx, r, nil))
}

// CancelAllOrders symbol 为空时撤销全部交易对的挂单, 返回撤单数量
func (b *backpack) CancelAllOrders(ctx context.Context, symbol string) (int, error) {
	var res bpCancelAllResponse
	r := &bphttp.Request{
		Method:    http.MethodDelete,
		Endpoint:  "/api/v1/openOrders",
		SecType:   bphttp.SecTypeSigned,
		LimitType: limiter.OrderLimit,
	}
	if symbol != "" {
		r.SetParam("symbol", exchange.ToWireSymbol(symbol))
	}
	if err := b.call(ctx, r, &res); err != nil {
		return 0, err
	}
	return res.Count, nil
}

func (b *backpack) GetOrder(ctx context.Context, symbol, orderID string) (*exchange.Order, error) {
	return b.getOrder(ctx, symbol, "orderId", orderID)
}

func (b *backpack) GetOrderByClientID(ctx context.Context, symbol, clientOrderID string) (*exchange.Order, error) {
	return b.getOrder(ctx, symbol, "clientOrderId", clientOrderID)
}

func (b *backpack) getOrder(ctx context.Context, symbol, idKey, id string) (*exchange.Order, error) {
	if symbol == "" {
		return nil, exchange.ErrEmptySymbol
	}
	var res exchange.Order
	r := &bphttp.Request{
		Method:   http.MethodGet,
		Endpoint: "/api/v1/order",
		SecType:  bphttp.SecTypeSigned,
	}
	r.SetParams(bphttp.Params{
		"symbol": exchange.ToWireSymbol(symbol),
		idKey:    id,
	})
	if err := b.call(ctx, r, &res); err != nil {
		return nil, orderNotFound(err)
	}
	return normalizeOrder(&res), nil
}

func (b *backpack) OpenOrders(ctx context.Context, symbol string) ([]*exchange.Order, error) {
	res := make([]*exchange.Order, 0)
	r := &bphttp.Request{
		Method:   http.MethodGet,
		Endpoint: "/api/v1/openOrders",
		SecType:  bphttp.SecTypeSigned,
	}
	if symbol != "" {
		r.SetParam("symbol", exchange.ToWireSymbol(symbol))
	}
	if err := b.call(ctx, r, &res); err != nil {
		return nil, err
	}
	return normalizeOrders(res), nil
}

func (b *backpack) AllOrders(ctx context.Context, req *exchange.HistoryRequest) ([]*exchange.Order, error) {
	if req.Symbol == "" {
		return nil, exchange.ErrEmptySymbol
	}
	res := make([]*exchange.Order, 0)
	r := &bphttp.Request{
		Method:   http.MethodGet,
		Endpoint: "/api/v1/allOrders",
		SecType:  bphttp.SecTypeSigned,
	}
	setHistoryParams(r, req)
	if err := b.call(ctx, r, &res); err != nil {
		return nil, err
	}
	return normalizeOrders(res), nil
}

func (b *backpack) Account(ctx context.Context) (*exchange.Account, error) {
	var res exchange.Account
	r := &bphttp.Request{
		Method:   http.MethodGet,
		Endpoint: "/api/v1/account",
		SecType:  bphttp.SecTypeSigned,
	}
	if err := b.call(ctx, r, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (b *backpack) Balances(ctx context.Context) ([]*exchange.Balance, error) {
	res := make([]*exchange.Balance, 0)
	r := &bphttp.Request{
		Method:   http.MethodGet,
		Endpoint: "/api/v1/balances",
		SecType:  bphttp.SecTypeSigned,
	}
	if err := b.call(ctx, r, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// AccountTrades symbol 为空时返回全部交易对的成交
func (b *backpack) AccountTrades(ctx context.Context, req *exchange.HistoryRequest) ([]*exchange.Trade, error) {
	res := make([]*exchange.Trade, 0)
	r := &bphttp.Request{
		Method:   http.MethodGet,
		Endpoint: "/api/v1/myTrades",
		SecType:  bphttp.SecTypeSigned,
	}
	setHistoryParams(r, req)
	if err := b.call(ctx, r, &res); err != nil {
		return nil, err
	}
	return normalizeTrades(res), nil
}

func setHistoryParams(r *bphttp.Request, req *exchange.HistoryRequest) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	r.SetParam("limit", limit)
	if req.Symbol != "" {
		r.SetParam("symbol", exchange.ToWireSymbol(req.Symbol))
	}
	if req.StartTime > 0 {
		r.SetParam("startTime", req.StartTime)
	}
	if req.EndTime > 0 {
		r.SetParam("endTime", req.EndTime)
	}
}

func orderNotFound(err error) error {
	var apiErr *bphttp.APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return fmt.Errorf("%w: %v", exchange.ErrOrderNotFound, err)
	}
	return err
}
