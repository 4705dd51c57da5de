package bpexc

import (
	"fmt"
	"strconv"

	"github.com/bitly/go-simplejson"
	"github.com/shopspring/decimal"

	"github.com/go-gotop/backpack/exchange"
	"github.com/go-gotop/backpack/requests/bphttp"
)

type bpServerTime struct {
	ServerTime int64 `json:"serverTime"`
}

type bpCancelAllResponse struct {
	Count int `json:"count"`
}

// bpOrderBody 下单请求体, 数量和价格以字符串发送
type bpOrderBody struct {
	Symbol        string `json:"symbol"`
	Side          string `json:"side"`
	Type          string `json:"type"`
	Quantity      string `json:"quantity"`
	TimeInForce   string `json:"timeInForce"`
	Price         string `json:"price,omitempty"`
	ClientOrderID string `json:"clientOrderId,omitempty"`
}

var (
	bpSides = map[exchange.SideType]string{
		exchange.SideTypeBuy:  "Bid",
		exchange.SideTypeSell: "Ask",
	}
	bpOrderTypes = map[exchange.OrderType]string{
		exchange.OrderTypeLimit:  "Limit",
		exchange.OrderTypeMarket: "Market",
	}
)

// bpValue 映射不到时原样发送
func bpValue[K ~string](m map[K]string, k K) string {
	if v, ok := m[k]; ok {
		return v
	}
	return string(k)
}

func toBpOrderBody(o *exchange.OrderRequest) *bpOrderBody {
	tif := o.TimeInForce
	if tif == "" {
		tif = exchange.TimeInForceGTC
	}
	body := &bpOrderBody{
		Symbol:        exchange.ToWireSymbol(o.Symbol),
		Side:          bpValue(bpSides, o.Side),
		Type:          bpValue(bpOrderTypes, o.Type),
		Quantity:      o.Quantity.String(),
		TimeInForce:   string(tif),
		ClientOrderID: o.ClientOrderID,
	}
	if o.Price.IsPositive() {
		body.Price = o.Price.String()
	}
	return body
}

// parseKlines K线返回数组: [timestamp, open, high, low, close, volume]
func parseKlines(symbol string, data []byte) ([]*exchange.Candle, error) {
	j, err := bphttp.NewJSON(data)
	if err != nil {
		return nil, err
	}
	rows, err := j.Array()
	if err != nil {
		return nil, fmt.Errorf("klines: %w", err)
	}
	candles := make([]*exchange.Candle, 0, len(rows))
	for i := range rows {
		row := j.GetIndex(i)
		ts, err := jsonInt64(row.GetIndex(0))
		if err != nil {
			return nil, fmt.Errorf("klines[%d] timestamp: %w", i, err)
		}
		c := &exchange.Candle{
			Symbol:    symbol,
			Timestamp: exchange.Timestamp(ts),
		}
		fields := []*decimal.Decimal{&c.Open, &c.High, &c.Low, &c.Close, &c.Volume}
		for k, f := range fields {
			v, err := jsonDecimal(row.GetIndex(k + 1))
			if err != nil {
				return nil, fmt.Errorf("klines[%d][%d]: %w", i, k+1, err)
			}
			*f = v
		}
		candles = append(candles, c)
	}
	return candles, nil
}

func jsonInt64(j *simplejson.Json) (int64, error) {
	if n, err := j.Int64(); err == nil {
		return n, nil
	}
	s, err := j.String()
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(s, 10, 64)
}

func jsonDecimal(j *simplejson.Json) (decimal.Decimal, error) {
	if s, err := j.String(); err == nil {
		return decimal.NewFromString(s)
	}
	f, err := j.Float64()
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromFloat(f), nil
}

func normalizeTicker(t *exchange.Ticker) *exchange.Ticker {
	t.Symbol = exchange.ToClientSymbol(t.Symbol)
	return t
}

func normalizeTrades(trades []*exchange.Trade) []*exchange.Trade {
	for _, t := range trades {
		t.Symbol = exchange.ToClientSymbol(t.Symbol)
	}
	return trades
}

func normalizeOrder(o *exchange.Order) *exchange.Order {
	o.Symbol = exchange.ToClientSymbol(o.Symbol)
	for side, v := range bpSides {
		if string(o.Side) == v {
			o.Side = side
		}
	}
	for typ, v := range bpOrderTypes {
		if string(o.Type) == v {
			o.Type = typ
		}
	}
	return o
}

func normalizeOrders(orders []*exchange.Order) []*exchange.Order {
	for _, o := range orders {
		normalizeOrder(o)
	}
	return orders
}
