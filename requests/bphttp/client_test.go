package bphttp

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/mock/gomock"

	"github.com/go-gotop/backpack/limiter"
	mock_limiter "github.com/go-gotop/backpack/limiter/mock"
	"github.com/go-gotop/backpack/signer"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) (*Client, *tracetest.SpanRecorder) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	base := []Option{BaseUrl(srv.URL), TracerProvider(tp)}
	return NewClient(append(base, opts...)...), sr
}

func TestCallAPIPublic(t *testing.T) {
	c, sr := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/ticker", r.URL.Path)
		assert.Equal(t, "SOL_USDC", r.URL.Query().Get("symbol"))
		assert.Empty(t, r.Header.Get(HeaderAPIKey))
		assert.Empty(t, r.Header.Get(HeaderSignature))
		_, _ = w.Write([]byte(`{"symbol":"SOL_USDC","lastPrice":"100"}`))
	})

	r := &Request{Method: http.MethodGet, Endpoint: "/api/v1/ticker"}
	r.SetParam("symbol", "SOL_USDC")
	data, err := c.CallAPI(context.Background(), r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"symbol":"SOL_USDC","lastPrice":"100"}`, string(data))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /api/v1/ticker", spans[0].Name())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
}

func TestCallAPISigned(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		ts, err := strconv.ParseInt(r.Header.Get(HeaderTimestamp), 10, 64)
		require.NoError(t, err)

		assert.Equal(t, "key", r.Header.Get(HeaderAPIKey))
		assert.Equal(t, "5000", r.Header.Get(HeaderWindow))
		assert.Equal(t, "application/json; charset=utf-8", r.Header.Get("Content-Type"))

		want, err := signer.Sign(signer.AlgorithmHMAC, signer.RequestMessage(r.Method, r.URL.Path, r.URL.RawQuery, ts, body), "secret")
		require.NoError(t, err)
		assert.Equal(t, want, r.Header.Get(HeaderSignature))
		_, _ = w.Write([]byte(`{"orderId":"1"}`))
	}, Credentials("key", "secret"))

	r := &Request{Method: http.MethodPost, Endpoint: "/api/v1/order", SecType: SecTypeSigned}
	r.SetParam("b", 2).SetParam("a", 1)
	r.SetBody(map[string]string{"symbol": "SOL_USDC"})
	_, err := c.CallAPI(context.Background(), r)
	require.NoError(t, err)
}

func TestSetTimeOffsetDuringCalls(t *testing.T) {
	const offset = int64(3_600_000)
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}, Credentials("key", "secret"))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := &Request{Method: http.MethodGet, Endpoint: "/api/v1/account", SecType: SecTypeSigned}
			_, err := c.CallAPI(context.Background(), r)
			assert.NoError(t, err)
		}()
	}
	c.SetTimeOffset(offset)
	wg.Wait()
	assert.Equal(t, offset, c.TimeOffset())

	var ts int64
	c2, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		ts, _ = strconv.ParseInt(r.Header.Get(HeaderTimestamp), 10, 64)
		_, _ = w.Write([]byte(`{}`))
	}, Credentials("key", "secret"), TimeOffset(offset))
	assert.Equal(t, offset, c2.TimeOffset())
	_, err := c2.CallAPI(context.Background(), &Request{Method: http.MethodGet, Endpoint: "/api/v1/account", SecType: SecTypeSigned})
	require.NoError(t, err)
	assert.InDelta(t, time.Now().UnixMilli()-offset, ts, 5000)
}

func TestCallAPIWindowOverride(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "60000", r.Header.Get(HeaderWindow))
		_, _ = w.Write([]byte(`{}`))
	}, Credentials("key", "secret"))

	_, err := c.CallAPI(context.Background(), &Request{Endpoint: "/api/v1/account", SecType: SecTypeSigned}, WithWindow(60000))
	require.NoError(t, err)
}

func TestCallAPISignedWithoutCredentials(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not be sent")
	})
	_, err := c.CallAPI(context.Background(), &Request{Endpoint: "/api/v1/account", SecType: SecTypeSigned})
	assert.ErrorIs(t, err, ErrNoCredentials)
}

func TestCallAPIError(t *testing.T) {
	c, sr := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"INVALID_ORDER","msg":"quantity too small"}`))
	})

	_, err := c.CallAPI(context.Background(), &Request{Endpoint: "/api/v1/order"})
	require.Error(t, err)
	assert.True(t, IsAPIError(err))
	apiErr := err.(*APIError)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "INVALID_ORDER", apiErr.Code)
	assert.Equal(t, "quantity too small", apiErr.Message)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestCallAPIErrorBodyOnSuccessStatus(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":-1021,"message":"timestamp outside window"}`))
	})

	_, err := c.CallAPI(context.Background(), &Request{Endpoint: "/api/v1/order"})
	require.True(t, IsAPIError(err))
	assert.Equal(t, "-1021", err.(*APIError).Code)
}

func TestCallAPIUnstructuredError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`bad gateway`))
	})

	_, err := c.CallAPI(context.Background(), &Request{Endpoint: "/api/v1/time"})
	require.True(t, IsAPIError(err))
	assert.Equal(t, "bad gateway", err.(*APIError).Message)
}

func TestCallAPIRateLimited(t *testing.T) {
	ctrl := gomock.NewController(t)
	lim := mock_limiter.NewMockLimiter(ctrl)
	lim.EXPECT().RestAllow(&limiter.LimiterReq{AccountId: "acc", LimiterType: limiter.OrderLimit}).Return(false)

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not be sent")
	}, Limiter(lim), AccountId("acc"))

	_, err := c.CallAPI(context.Background(), &Request{Method: http.MethodPost, Endpoint: "/api/v1/order", LimitType: limiter.OrderLimit})
	assert.ErrorIs(t, err, ErrLimitExceed)
}
