package bpexc

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-gotop/backpack/exchange"
	"github.com/go-gotop/backpack/requests/bphttp"
)

func newTestExchange(t *testing.T, h http.HandlerFunc) exchange.Exchange {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cli := bphttp.NewClient(bphttp.BaseUrl(srv.URL), bphttp.Credentials("key", "secret"))
	return NewBackpack(cli)
}

func TestName(t *testing.T) {
	ex := NewBackpack(bphttp.NewClient())
	assert.Equal(t, exchange.BackpackExchange, ex.Name())
}

func TestServerTime(t *testing.T) {
	ex := newTestExchange(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/time", r.URL.Path)
		_, _ = w.Write([]byte(`{"serverTime":1700000000000}`))
	})
	ts, err := ex.ServerTime(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000000), ts)
}

func TestTickerSymbolForms(t *testing.T) {
	ex := newTestExchange(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "SOL_USDC", r.URL.Query().Get("symbol"))
		assert.Empty(t, r.Header.Get(bphttp.HeaderAPIKey))
		_, _ = w.Write([]byte(`{"symbol":"SOL_USDC","lastPrice":"101.5","bestBid":"101.4","bestAsk":"101.6"}`))
	})
	tk, err := ex.Ticker(context.Background(), "SOL-USDC")
	require.NoError(t, err)
	assert.Equal(t, "SOL-USDC", tk.Symbol)
	assert.True(t, decimal.RequireFromString("101.5").Equal(tk.LastPrice))
}

func TestTickers(t *testing.T) {
	ex := newTestExchange(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"symbol":"SOL_USDC","lastPrice":"100"},{"symbol":"BTC_USDC","lastPrice":"60000"}]`))
	})
	tickers, err := ex.Tickers(context.Background())
	require.NoError(t, err)
	require.Len(t, tickers, 2)
	assert.Contains(t, tickers, "SOL-USDC")
	assert.Contains(t, tickers, "BTC-USDC")
}

func TestEmptySymbol(t *testing.T) {
	ex := newTestExchange(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL.Path)
	})
	ctx := context.Background()

	_, err := ex.Ticker(ctx, "")
	assert.ErrorIs(t, err, exchange.ErrEmptySymbol)
	_, err = ex.Depth(ctx, "", 10)
	assert.ErrorIs(t, err, exchange.ErrEmptySymbol)
	_, err = ex.Klines(ctx, &exchange.KlineRequest{Interval: exchange.ChannelCandles1m})
	assert.ErrorIs(t, err, exchange.ErrEmptySymbol)
	err = ex.CancelOrder(ctx, "", "1")
	assert.ErrorIs(t, err, exchange.ErrEmptySymbol)
}

func TestDepthDefaultLimit(t *testing.T) {
	ex := newTestExchange(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "100", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"bids":[["100.1","2"]],"asks":[["100.2","3"]]}`))
	})
	d, err := ex.Depth(context.Background(), "SOL-USDC", 0)
	require.NoError(t, err)
	assert.Equal(t, "SOL-USDC", d.Symbol)
	require.Len(t, d.Bids, 1)
	assert.True(t, decimal.RequireFromString("100.1").Equal(d.Bids[0].Price()))
	assert.True(t, decimal.RequireFromString("3").Equal(d.Asks[0].Quantity()))
}

func TestKlines(t *testing.T) {
	ex := newTestExchange(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/api/v1/klines", r.URL.Path)
		assert.Equal(t, "1h", q.Get("interval"))
		assert.Equal(t, "1700000000000", q.Get("startTime"))
		assert.False(t, q.Has("endTime"))
		_, _ = w.Write([]byte(`[[1700000000000,"1","2","0.5","1.5","10"],["1700003600000","1.5","3","1.4","2.5",12.5]]`))
	})
	candles, err := ex.Klines(context.Background(), &exchange.KlineRequest{
		Symbol:    "SOL-USDC",
		Interval:  exchange.ChannelCandles1h,
		StartTime: 1700000000000,
	})
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, "SOL-USDC", candles[0].Symbol)
	assert.Equal(t, exchange.Timestamp(1700003600000), candles[1].Timestamp)
	assert.True(t, decimal.RequireFromString("0.5").Equal(candles[0].Low))
	assert.True(t, decimal.RequireFromString("12.5").Equal(candles[1].Volume))
}

func TestKlinesNotCandleChannel(t *testing.T) {
	ex := newTestExchange(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL.Path)
	})
	_, err := ex.Klines(context.Background(), &exchange.KlineRequest{Symbol: "SOL-USDC", Interval: exchange.ChannelTrades})
	assert.ErrorIs(t, err, exchange.ErrNotCandleChannel)
}

func TestCreateOrder(t *testing.T) {
	ex := newTestExchange(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/order", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get(bphttp.HeaderAPIKey))
		assert.NotEmpty(t, r.Header.Get(bphttp.HeaderSignature))

		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var body bpOrderBody
		require.NoError(t, bphttp.Json.Unmarshal(data, &body))
		assert.Equal(t, "SOL_USDC", body.Symbol)
		assert.Equal(t, "Bid", body.Side)
		assert.Equal(t, "Limit", body.Type)
		assert.Equal(t, "1.5", body.Quantity)
		assert.Equal(t, "100", body.Price)
		assert.Equal(t, "GTC", body.TimeInForce)
		_, err = uuid.Parse(body.ClientOrderID)
		assert.NoError(t, err)

		_, _ = w.Write([]byte(`{"orderId":12345,"clientOrderId":"` + body.ClientOrderID + `","symbol":"SOL_USDC","status":"NEW"}`))
	})

	req := &exchange.OrderRequest{
		Symbol:   "SOL-USDC",
		Side:     exchange.SideTypeBuy,
		Type:     exchange.OrderTypeLimit,
		Quantity: decimal.RequireFromString("1.5"),
		Price:    decimal.NewFromInt(100),
	}
	o, err := ex.CreateOrder(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, exchange.ID("12345"), o.OrderID)
	assert.Equal(t, "SOL-USDC", o.Symbol)
	assert.Equal(t, req.ClientOrderID, o.ClientOrderID.String())
}

func TestCreateOrderInvalid(t *testing.T) {
	ex := newTestExchange(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL.Path)
	})
	_, err := ex.CreateOrder(context.Background(), &exchange.OrderRequest{
		Symbol: "SOL-USDC",
		Side:   exchange.SideTypeBuy,
		Type:   exchange.OrderTypeLimit,
	})
	assert.ErrorIs(t, err, exchange.ErrInvalidOrder)
}

func TestCancelAllOrders(t *testing.T) {
	ex := newTestExchange(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/v1/openOrders", r.URL.Path)
		assert.False(t, r.URL.Query().Has("symbol"))
		_, _ = w.Write([]byte(`{"count":3}`))
	})
	n, err := ex.CancelAllOrders(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestGetOrderNotFound(t *testing.T) {
	ex := newTestExchange(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "abc", r.URL.Query().Get("clientOrderId"))
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":"RESOURCE_NOT_FOUND","message":"Order not found"}`))
	})
	_, err := ex.GetOrderByClientID(context.Background(), "SOL-USDC", "abc")
	require.Error(t, err)
	assert.ErrorIs(t, err, exchange.ErrOrderNotFound)
}

func TestCancelOrderAPIError(t *testing.T) {
	ex := newTestExchange(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"INVALID_ORDER","message":"bad"}`))
	})
	err := ex.CancelOrder(context.Background(), "SOL-USDC", "1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, exchange.ErrOrderNotFound))
	assert.True(t, bphttp.IsAPIError(err))
}

func TestAccountTrades(t *testing.T) {
	ex := newTestExchange(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/api/v1/myTrades", r.URL.Path)
		assert.Equal(t, "100", q.Get("limit"))
		assert.Equal(t, "BTC_USDC", q.Get("symbol"))
		_, _ = w.Write([]byte(`[{"symbol":"BTC_USDC","id":7,"price":"60000","quantity":"0.1","isBuyerMaker":true}]`))
	})
	trades, err := ex.AccountTrades(context.Background(), &exchange.HistoryRequest{Symbol: "BTC-USDC"})
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "BTC-USDC", trades[0].Symbol)
	assert.Equal(t, exchange.SideTypeSell, trades[0].Side())
}

func TestOpenOrdersNormalized(t *testing.T) {
	ex := newTestExchange(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "SOL_USDC", r.URL.Query().Get("symbol"))
		_, _ = w.Write([]byte(`[{"orderId":"1","symbol":"SOL_USDC","side":"Ask","type":"Market","status":"NEW"}]`))
	})
	orders, err := ex.OpenOrders(context.Background(), "SOL-USDC")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, exchange.SideTypeSell, orders[0].Side)
	assert.Equal(t, exchange.OrderTypeMarket, orders[0].Type)
	assert.Equal(t, "SOL-USDC", orders[0].Symbol)
}
