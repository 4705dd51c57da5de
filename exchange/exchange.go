package exchange

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// SideType BUY, SELL
type SideType string

// OrderType LIMIT, MARKET, STOP_LOSS, TAKE_PROFIT
type OrderType string

// OrderStatus NEW, PARTIALLY_FILLED, FILLED, CANCELED, REJECTED
type OrderStatus string

// TimeInForce GTC, IOC, FOK
type TimeInForce string

const (
	BackpackExchange = "BACKPACK"

	SideTypeBuy  SideType = "BUY"
	SideTypeSell SideType = "SELL"

	OrderTypeLimit      OrderType = "LIMIT"
	OrderTypeMarket     OrderType = "MARKET"
	OrderTypeStopLoss   OrderType = "STOP_LOSS"
	OrderTypeTakeProfit OrderType = "TAKE_PROFIT"

	OrderStatusNew             OrderStatus = "NEW"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderStatusFilled          OrderStatus = "FILLED"
	OrderStatusCanceled        OrderStatus = "CANCELED"
	OrderStatusRejected        OrderStatus = "REJECTED"

	// Good Till Cancel 成交为止, 一直有效直到被取消
	TimeInForceGTC TimeInForce = "GTC"
	// Immediate or Cancel 无法立即成交(吃单)的部分就撤销
	TimeInForceIOC TimeInForce = "IOC"
	// Fill or Kill 无法全部立即成交就撤销
	TimeInForceFOK TimeInForce = "FOK"
)

var (
	// ErrOrderNotFound 订单未找到
	ErrOrderNotFound = errors.New("order not found")
	// ErrInvalidOrder 下单参数错误
	ErrInvalidOrder = errors.New("invalid order request")
	// ErrNotCandleChannel K线接口需要K线频道
	ErrNotCandleChannel = errors.New("channel is not a candle channel")
	// ErrEmptySymbol 交易对为空
	ErrEmptySymbol = errors.New("symbol is empty")
)

// Ticker 24小时行情
type Ticker struct {
	Symbol         string          `json:"symbol"`
	Timestamp      Timestamp       `json:"timestamp"`
	LastPrice      decimal.Decimal `json:"lastPrice"`
	BestBid        decimal.Decimal `json:"bestBid"`
	BestAsk        decimal.Decimal `json:"bestAsk"`
	Volume24h      decimal.Decimal `json:"volume24h"`
	PriceChange24h decimal.Decimal `json:"priceChange24h"`
}

// PriceLevel [price, quantity]
type PriceLevel [2]decimal.Decimal

func (p PriceLevel) Price() decimal.Decimal    { return p[0] }
func (p PriceLevel) Quantity() decimal.Decimal { return p[1] }

// Depth 订单簿
type Depth struct {
	Symbol string       `json:"symbol"`
	Bids   []PriceLevel `json:"bids"`
	Asks   []PriceLevel `json:"asks"`
}

// Trade 成交
type Trade struct {
	Symbol       string          `json:"symbol"`
	ID           ID              `json:"id"`
	Timestamp    Timestamp       `json:"timestamp"`
	Price        decimal.Decimal `json:"price"`
	Quantity     decimal.Decimal `json:"quantity"`
	IsBuyerMaker bool            `json:"isBuyerMaker"`
}

// Side 主动成交方向, 买方为挂单方时主动方为卖
func (t *Trade) Side() SideType {
	if t.IsBuyerMaker {
		return SideTypeSell
	}
	return SideTypeBuy
}

// Candle K线
type Candle struct {
	Symbol    string          `json:"symbol"`
	Timestamp Timestamp       `json:"timestamp"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
}

type Order struct {
	OrderID       ID              `json:"orderId"`
	ClientOrderID ID              `json:"clientOrderId"`
	Symbol        string          `json:"symbol"`
	Side          SideType        `json:"side"`
	Type          OrderType       `json:"type"`
	Price         decimal.Decimal `json:"price"`
	Quantity      decimal.Decimal `json:"quantity"`
	ExecutedQty   decimal.Decimal `json:"executedQty"`
	Status        OrderStatus     `json:"status"`
	Timestamp     Timestamp       `json:"timestamp"`
}

type Balance struct {
	Asset  string          `json:"asset"`
	Free   decimal.Decimal `json:"free"`
	Locked decimal.Decimal `json:"locked"`
}

type Position struct {
	Symbol        string          `json:"symbol"`
	Size          decimal.Decimal `json:"size"`
	EntryPrice    decimal.Decimal `json:"entryPrice"`
	MarkPrice     decimal.Decimal `json:"markPrice"`
	UnrealizedPnl decimal.Decimal `json:"unrealizedPnl"`
}

type SymbolInfo struct {
	Symbol     string          `json:"symbol"`
	BaseAsset  string          `json:"baseAsset"`
	QuoteAsset string          `json:"quoteAsset"`
	IsActive   bool            `json:"isActive"`
	MinPrice   decimal.Decimal `json:"minPrice"`
	MaxPrice   decimal.Decimal `json:"maxPrice"`
	TickSize   decimal.Decimal `json:"tickSize"`
	MinQty     decimal.Decimal `json:"minQty"`
	MaxQty     decimal.Decimal `json:"maxQty"`
	StepSize   decimal.Decimal `json:"stepSize"`
}

type ExchangeInfo struct {
	Timezone   string        `json:"timezone"`
	ServerTime int64         `json:"serverTime"`
	Symbols    []*SymbolInfo `json:"symbols"`
}

type Account struct {
	AccountID   string     `json:"accountId"`
	AccountType string     `json:"accountType"`
	CanTrade    bool       `json:"canTrade"`
	CanWithdraw bool       `json:"canWithdraw"`
	Balances    []*Balance `json:"balances"`
}

// OrderRequest 下单请求, Price 为零时不发送, TimeInForce 默认 GTC
type OrderRequest struct {
	Symbol        string
	ClientOrderID string
	Side          SideType
	Type          OrderType
	TimeInForce   TimeInForce
	Quantity      decimal.Decimal
	Price         decimal.Decimal
}

func (r *OrderRequest) Validate() error {
	if r.Symbol == "" {
		return ErrEmptySymbol
	}
	if r.Side != SideTypeBuy && r.Side != SideTypeSell {
		return ErrInvalidOrder
	}
	if !r.Quantity.IsPositive() {
		return ErrInvalidOrder
	}
	if r.Type == OrderTypeLimit && !r.Price.IsPositive() {
		return ErrInvalidOrder
	}
	return nil
}

type KlineRequest struct {
	Symbol    string
	Interval  Channel
	Limit     int
	StartTime int64
	EndTime   int64
}

type HistoricalTradesRequest struct {
	Symbol string
	Limit  int
	FromID string
}

// HistoryRequest 历史订单、历史成交查询
type HistoryRequest struct {
	Symbol    string
	Limit     int
	StartTime int64
	EndTime   int64
}

// Exchange 交易所 REST 接口
type Exchange interface {
	Name() string

	ServerTime(ctx context.Context) (int64, error)
	ExchangeInfo(ctx context.Context) (*ExchangeInfo, error)
	Ticker(ctx context.Context, symbol string) (*Ticker, error)
	Tickers(ctx context.Context) (map[string]*Ticker, error)
	Depth(ctx context.Context, symbol string, limit int) (*Depth, error)
	RecentTrades(ctx context.Context, symbol string, limit int) ([]*Trade, error)
	HistoricalTrades(ctx context.Context, req *HistoricalTradesRequest) ([]*Trade, error)
	Klines(ctx context.Context, req *KlineRequest) ([]*Candle, error)

	CreateOrder(ctx context.Context, req *OrderRequest) (*Order, error)
	TestOrder(ctx context.Context, req *OrderRequest) error
	CancelOrder(ctx context.Context, symbol, orderID string) error
	CancelOrderByClientID(ctx context.Context, symbol, clientOrderID string) error
	CancelAllOrders(ctx context.Context, symbol string) (int, error)
	GetOrder(ctx context.Context, symbol, orderID string) (*Order, error)
	GetOrderByClientID(ctx context.Context, symbol, clientOrderID string) (*Order, error)
	OpenOrders(ctx context.Context, symbol string) ([]*Order, error)
	AllOrders(ctx context.Context, req *HistoryRequest) ([]*Order, error)

	Account(ctx context.Context) (*Account, error)
	Balances(ctx context.Context) ([]*Balance, error)
	AccountTrades(ctx context.Context, req *HistoryRequest) ([]*Trade, error)
}
