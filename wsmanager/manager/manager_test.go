package manager

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/go-gotop/backpack/credentials"
	"github.com/go-gotop/backpack/dispatch"
	"github.com/go-gotop/backpack/exchange"
	mock_limiter "github.com/go-gotop/backpack/limiter/mock"
	"github.com/go-gotop/backpack/queue"
	"github.com/go-gotop/backpack/signer"
	"github.com/go-gotop/backpack/websocket"
	mock_websocket "github.com/go-gotop/backpack/websocket/mock"
	"github.com/go-gotop/backpack/wsmanager"
)

const (
	testEndpoint = "wss://ws.test"
	waitTimeout  = time.Second
)

var errConnReset = errors.New("connection reset by peer")

// fakeServer 模拟服务端: inbound 推送给客户端, written 记录客户端写出的帧
type fakeServer struct {
	inbound   chan []byte
	readErr   chan error
	written   chan []byte
	closed    chan struct{}
	closeOnce sync.Once

	reads  int32
	writes int32
	closes int32

	onWrite  func(payload []byte)
	writeErr func(n int) error
	gate     chan struct{}
}

func newFakeServer() *fakeServer {
	return &fakeServer{
		inbound: make(chan []byte, 64),
		readErr: make(chan error, 1),
		written: make(chan []byte, 64),
		closed:  make(chan struct{}),
	}
}

func (s *fakeServer) read() (int, []byte, error) {
	atomic.AddInt32(&s.reads, 1)
	select {
	case msg := <-s.inbound:
		return websocket.TextMessage, msg, nil
	case err := <-s.readErr:
		return 0, nil, err
	case <-s.closed:
		return 0, nil, errors.New("use of closed network connection")
	}
}

func (s *fakeServer) write(_ int, data []byte) error {
	if s.gate != nil {
		<-s.gate
	}
	n := atomic.AddInt32(&s.writes, 1)
	if s.writeErr != nil {
		if err := s.writeErr(int(n)); err != nil {
			return err
		}
	}
	payload := append([]byte(nil), data...)
	s.written <- payload
	if s.onWrite != nil {
		s.onWrite(payload)
	}
	return nil
}

func (s *fakeServer) close() error {
	atomic.AddInt32(&s.closes, 1)
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

func (s *fakeServer) push(msg string) {
	s.inbound <- []byte(msg)
}

// ackAuth 收到登录帧后自动应答
func (s *fakeServer) ackAuth(success bool, message string) {
	s.onWrite = func(payload []byte) {
		if !bytes.Contains(payload, []byte(`"type":"auth"`)) {
			return
		}
		if success {
			s.push(`{"type":"auth","success":true}`)
			return
		}
		s.push(fmt.Sprintf(`{"type":"auth","success":false,"message":%q}`, message))
	}
}

func (s *fakeServer) conn(ctrl *gomock.Controller) *mock_websocket.MockWebSocketConn {
	conn := mock_websocket.NewMockWebSocketConn(ctrl)
	conn.EXPECT().Dial(gomock.Any(), testEndpoint, gomock.Any()).Return(nil)
	conn.EXPECT().ReadMessage().DoAndReturn(s.read).AnyTimes()
	conn.EXPECT().WriteMessage(websocket.TextMessage, gomock.Any()).DoAndReturn(s.write).AnyTimes()
	conn.EXPECT().Close().DoAndReturn(s.close).AnyTimes()
	return conn
}

func nextWrite(t *testing.T, s *fakeServer) string {
	t.Helper()
	select {
	case b := <-s.written:
		return string(b)
	case <-time.After(waitTimeout):
		t.Fatal("no frame written")
		return ""
	}
}

func noWrite(t *testing.T, s *fakeServer, d time.Duration) {
	t.Helper()
	select {
	case b := <-s.written:
		t.Fatalf("unexpected frame: %s", b)
	case <-time.After(d):
	}
}

func discardLogger() log.Logger {
	return log.NewStdLogger(io.Discard)
}

type ManagerSuite struct {
	suite.Suite
	ctrl *gomock.Controller
	srv  *fakeServer
	m    *Manager
	ctx  context.Context
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

func (s *ManagerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.srv = newFakeServer()
	s.ctx = context.Background()
}

func (s *ManagerSuite) TearDownTest() {
	if s.m != nil {
		s.Require().NoError(s.m.Shutdown())
		s.m = nil
	}
}

func (s *ManagerSuite) newManager(opts ...ConnConfig) *Manager {
	conn := s.srv.conn(s.ctrl)
	base := []ConnConfig{
		WithLogger(discardLogger()),
		WithConnFactory(func() websocket.WebSocketConn { return conn }),
		WithHeartbeatInterval(0),
		WithWriteRetry(3, time.Millisecond),
	}
	s.m = NewManager(append(base, opts...)...)
	return s.m
}

func (s *ManagerSuite) connected(opts ...ConnConfig) *Manager {
	m := s.newManager(opts...)
	s.Require().NoError(m.Connect(s.ctx, testEndpoint))
	return m
}

func (s *ManagerSuite) TestConnect() {
	m := s.newManager()
	s.Equal(wsmanager.StateDisconnected, m.State())
	s.Empty(m.ID())

	s.Require().NoError(m.Connect(s.ctx, testEndpoint))
	s.Equal(wsmanager.StateConnected, m.State())
	s.True(m.IsConnected())
	s.False(m.IsAuthenticated())
	s.NotEmpty(m.ID())

	// 已连接时不会再次拨号
	s.NoError(m.Connect(s.ctx, testEndpoint))
}

func (s *ManagerSuite) TestConnectDialFailure() {
	conn := mock_websocket.NewMockWebSocketConn(s.ctrl)
	conn.EXPECT().Dial(gomock.Any(), testEndpoint, gomock.Any()).Return(errors.New("dial tcp: refused"))
	s.m = NewManager(
		WithLogger(discardLogger()),
		WithConnFactory(func() websocket.WebSocketConn { return conn }),
	)

	err := s.m.Connect(s.ctx, testEndpoint)
	s.ErrorIs(err, wsmanager.ErrConnection)
	s.Equal(wsmanager.StateDisconnected, s.m.State())
}

func (s *ManagerSuite) TestConnectRateLimited() {
	lim := mock_limiter.NewMockLimiter(s.ctrl)
	lim.EXPECT().WsAllow().Return(false)
	s.m = NewManager(
		WithLogger(discardLogger()),
		WithConnLimiter(lim),
		WithConnFactory(func() websocket.WebSocketConn {
			s.T().Error("dial while rate limited")
			return nil
		}),
	)

	s.ErrorIs(s.m.Connect(s.ctx, testEndpoint), wsmanager.ErrLimitExceed)
	s.Equal(wsmanager.StateDisconnected, s.m.State())
}

func (s *ManagerSuite) TestSubscribeWritesExactFrame() {
	m := s.connected()

	s.Require().NoError(m.Subscribe(s.ctx, exchange.ChannelTicker, "SOL-USDC", func(exchange.Event) {}))
	s.Equal(`{"method":"SUBSCRIBE","params":["ticker.SOL_USDC"]}`, nextWrite(s.T(), s.srv))
	noWrite(s.T(), s.srv, 50*time.Millisecond)
}

func (s *ManagerSuite) TestSubscribeValidation() {
	m := s.connected()

	s.ErrorIs(m.Subscribe(s.ctx, exchange.Channel("bookTicker"), "SOL-USDC", nil), wsmanager.ErrSubscription)
	err := m.Subscribe(s.ctx, exchange.ChannelTrades, " ", nil)
	s.ErrorIs(err, wsmanager.ErrSubscription)
	s.ErrorIs(err, exchange.ErrEmptySymbol)
	noWrite(s.T(), s.srv, 20*time.Millisecond)
}

func (s *ManagerSuite) TestTradeRoutedToConsumer() {
	m := s.connected()

	events := make(chan exchange.Event, 4)
	s.Require().NoError(m.Subscribe(s.ctx, exchange.ChannelTrades, "SOL-USDC", func(evt exchange.Event) {
		events <- evt
	}))
	nextWrite(s.T(), s.srv)

	s.srv.push(`{"stream":"trades.SOL_USDC","data":{"symbol":"SOL_USDC","id":"1","timestamp":1700000000000,"price":"101.5","quantity":"2","isBuyerMaker":false}}`)

	select {
	case evt := <-events:
		trade, ok := evt.(*exchange.TradeEvent)
		s.Require().True(ok)
		s.Equal(exchange.NewStreamKey(exchange.ChannelTrades, "SOL-USDC"), trade.Key())
		s.Equal(exchange.SideTypeBuy, trade.Side())
	case <-time.After(waitTimeout):
		s.FailNow("trade not delivered")
	}
	select {
	case evt := <-events:
		s.Failf("delivered twice", "%v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func (s *ManagerSuite) TestCatchAllReceivesControlEvents() {
	m := s.connected()

	events := make(chan exchange.Event, 4)
	m.RegisterCatchAll(func(evt exchange.Event) { events <- evt })
	s.srv.push(`{"type":"pong"}`)

	select {
	case evt := <-events:
		s.Equal(exchange.EventKindPong, evt.Kind())
	case <-time.After(waitTimeout):
		s.FailNow("pong not delivered")
	}
}

func (s *ManagerSuite) TestAuthenticateWithoutCredentials() {
	m := s.connected()
	s.False(m.HasCredentials())

	err := m.Authenticate(s.ctx)
	s.ErrorIs(err, wsmanager.ErrAuthentication)
	s.ErrorIs(err, credentials.ErrInvalidCredentials)

	err = m.Subscribe(s.ctx, exchange.ChannelUserOrders, "", func(exchange.Event) {})
	s.ErrorIs(err, wsmanager.ErrSubscription)
	s.Equal(wsmanager.StateConnected, m.State())
	s.Zero(m.table.Len())
	noWrite(s.T(), s.srv, 50*time.Millisecond)
}

func (s *ManagerSuite) TestAuthenticateNotConnected() {
	s.m = NewManager(
		WithLogger(discardLogger()),
		WithCredentials("key", "secret"),
		WithConnFactory(func() websocket.WebSocketConn {
			s.T().Error("unexpected dial")
			return nil
		}),
	)
	s.ErrorIs(s.m.Authenticate(s.ctx), wsmanager.ErrNotConnected)
	s.ErrorIs(s.m.Subscribe(s.ctx, exchange.ChannelUserOrders, "", nil), wsmanager.ErrNotConnected)
}

func (s *ManagerSuite) TestAuthenticateSuccess() {
	s.srv.ackAuth(true, "")
	m := s.connected(WithCredentials("key", "secret"))

	before := time.Now().UnixMilli()
	s.Require().NoError(m.Authenticate(s.ctx))
	s.Equal(wsmanager.StateAuthenticated, m.State())
	s.True(m.IsAuthenticated())

	var frame authFrame
	s.Require().NoError(Json.Unmarshal([]byte(nextWrite(s.T(), s.srv)), &frame))
	s.Equal("auth", frame.Type)
	s.Equal("key", frame.Key)
	s.Equal(int64(5000), frame.Window)
	s.GreaterOrEqual(frame.Timestamp, before)

	want, err := signer.Sign(signer.AlgorithmHMAC, signer.AuthMessage(frame.Timestamp, frame.Window), "secret")
	s.Require().NoError(err)
	s.Equal(want, frame.Signature)

	// 已登录时不再发送登录帧
	s.NoError(m.Authenticate(s.ctx))
	noWrite(s.T(), s.srv, 20*time.Millisecond)
}

func (s *ManagerSuite) TestAuthenticateSharedCredentialStore() {
	_, priv, err := ed25519.GenerateKey(nil)
	s.Require().NoError(err)
	secret := base64.StdEncoding.EncodeToString(priv.Seed())

	store := credentials.NewStore()
	store.SetCredentials(credentials.Credentials{APIKey: "key", Secret: secret, Algorithm: signer.AlgorithmED25519})
	s.srv.ackAuth(true, "")
	m := s.connected(WithCredentialStore(store), WithCredentials("ignored", "ignored"))
	s.True(m.HasCredentials())

	s.Require().NoError(m.Authenticate(s.ctx))
	var frame authFrame
	s.Require().NoError(Json.Unmarshal([]byte(nextWrite(s.T(), s.srv)), &frame))
	s.Equal("key", frame.Key)

	sig, err := base64.StdEncoding.DecodeString(frame.Signature)
	s.Require().NoError(err)
	pub := priv.Public().(ed25519.PublicKey)
	s.True(ed25519.Verify(pub, signer.AuthMessage(frame.Timestamp, frame.Window), sig))
}

func (s *ManagerSuite) TestAuthenticateRejected() {
	s.srv.ackAuth(false, "invalid signature")
	m := s.connected(WithCredentials("key", "secret"))

	err := m.Authenticate(s.ctx)
	s.ErrorIs(err, wsmanager.ErrAuthentication)
	s.Contains(err.Error(), "invalid signature")
	s.Equal(wsmanager.StateConnected, m.State())
}

func (s *ManagerSuite) TestAuthenticateErrorFrame() {
	s.srv.onWrite = func(payload []byte) {
		s.srv.push(`{"type":"error","code":401,"message":"expired"}`)
	}
	m := s.connected(WithCredentials("key", "secret"))

	err := m.Authenticate(s.ctx)
	s.ErrorIs(err, wsmanager.ErrAuthentication)
	var evt *exchange.ErrorEvent
	s.Require().True(errors.As(err, &evt))
	s.Equal("401", evt.Code)
}

func (s *ManagerSuite) TestAuthenticateTimeout() {
	m := s.connected(WithCredentials("key", "secret"), WithAuthTimeout(30*time.Millisecond))

	err := m.Authenticate(s.ctx)
	s.ErrorIs(err, wsmanager.ErrAuthTimeout)
	s.ErrorIs(err, wsmanager.ErrAuthentication)
	s.Equal(wsmanager.StateConnected, m.State())
}

func (s *ManagerSuite) TestConcurrentAuthenticateSharesAttempt() {
	gate := make(chan struct{})
	s.srv.onWrite = func(payload []byte) {
		<-gate
		s.srv.push(`{"type":"auth","success":true}`)
	}
	m := s.connected(WithCredentials("key", "secret"))

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = m.Authenticate(s.ctx)
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()

	for _, err := range errs {
		s.NoError(err)
	}
	s.Equal(int32(1), atomic.LoadInt32(&s.srv.writes))
}

func (s *ManagerSuite) TestPrivateSubscribeAuthenticatesFirst() {
	s.srv.ackAuth(true, "")
	m := s.connected(WithCredentials("key", "secret"))

	s.Require().NoError(m.Subscribe(s.ctx, exchange.ChannelUserOrders, "", func(exchange.Event) {}))
	s.Contains(nextWrite(s.T(), s.srv), `"type":"auth"`)
	s.Equal(`{"method":"SUBSCRIBE","params":["userOrders"]}`, nextWrite(s.T(), s.srv))
	s.True(m.IsAuthenticated())
}

func (s *ManagerSuite) TestUnsubscribe() {
	m := s.connected()

	s.Require().NoError(m.Subscribe(s.ctx, exchange.ChannelDepth, "BTC-USDC", func(exchange.Event) {}))
	nextWrite(s.T(), s.srv)
	s.Equal(1, m.table.Len())

	s.Require().NoError(m.Unsubscribe(s.ctx, exchange.ChannelDepth, "BTC_USDC"))
	s.Equal(`{"method":"UNSUBSCRIBE","params":["depth.BTC_USDC"]}`, nextWrite(s.T(), s.srv))
	s.Zero(m.table.Len())
}

func (s *ManagerSuite) TestMalformedFrameDropped() {
	errs := make(chan error, 4)
	m := s.connected(WithErrorHandler(func(err error) { errs <- err }))

	events := make(chan exchange.Event, 4)
	s.Require().NoError(m.Subscribe(s.ctx, exchange.ChannelTicker, "SOL-USDC", func(evt exchange.Event) {
		events <- evt
	}))

	s.srv.push(`{"stream":"ticker.SOL_USDC","data":`)
	s.srv.push(`{"stream":"ticker.SOL_USDC","data":{"symbol":"SOL_USDC","lastPrice":"100"}}`)

	select {
	case err := <-errs:
		s.ErrorIs(err, wsmanager.ErrParse)
	case <-time.After(waitTimeout):
		s.FailNow("parse error not reported")
	}
	select {
	case evt := <-events:
		s.Equal(exchange.EventKindTicker, evt.Kind())
	case <-time.After(waitTimeout):
		s.FailNow("ticker not delivered after malformed frame")
	}
	s.True(m.IsConnected())
}

func (s *ManagerSuite) TestHandlerPanicKeepsReading() {
	errs := make(chan error, 4)
	m := s.connected(WithErrorHandler(func(err error) { errs <- err }))

	var calls int32
	delivered := make(chan struct{}, 4)
	s.Require().NoError(m.Subscribe(s.ctx, exchange.ChannelTicker, "SOL-USDC", func(exchange.Event) {
		if atomic.AddInt32(&calls, 1) == 1 {
			panic("boom")
		}
		delivered <- struct{}{}
	}))

	frame := `{"stream":"ticker.SOL_USDC","data":{"symbol":"SOL_USDC"}}`
	s.srv.push(frame)
	s.srv.push(frame)

	select {
	case err := <-errs:
		var perr *dispatch.PanicError
		s.True(errors.As(err, &perr))
	case <-time.After(waitTimeout):
		s.FailNow("panic not reported")
	}
	select {
	case <-delivered:
	case <-time.After(waitTimeout):
		s.FailNow("reader stopped after handler panic")
	}
}

func (s *ManagerSuite) TestReadFailureFiresCloseHandlerOnce() {
	var closes int32
	var closeID string
	var closeErr error
	m := s.connected(WithCloseHandler(func(id string, err error) {
		closeID, closeErr = id, err
		atomic.AddInt32(&closes, 1)
	}))
	id := m.ID()

	s.srv.readErr <- errConnReset

	s.Eventually(func() bool { return atomic.LoadInt32(&closes) == 1 }, waitTimeout, 5*time.Millisecond)
	reads := atomic.LoadInt32(&s.srv.reads)
	time.Sleep(50 * time.Millisecond)

	s.Equal(int32(1), atomic.LoadInt32(&closes))
	s.Equal(reads, atomic.LoadInt32(&s.srv.reads))
	s.Equal(id, closeID)
	s.ErrorIs(closeErr, errConnReset)
	s.Equal(wsmanager.StateDisconnected, m.State())
	s.Positive(atomic.LoadInt32(&s.srv.closes))
}

func (s *ManagerSuite) TestWriteRetry() {
	s.srv.writeErr = func(n int) error {
		if n <= 2 {
			return errors.New("temporary failure")
		}
		return nil
	}
	m := s.connected()

	s.Require().NoError(m.Send(s.ctx, []byte(`{"type":"ping"}`)))
	s.Equal(int32(3), atomic.LoadInt32(&s.srv.writes))
}

func (s *ManagerSuite) TestWriteRetryExhausted() {
	s.srv.writeErr = func(int) error { return errors.New("broken pipe") }
	errs := make(chan error, 4)
	m := s.connected(WithErrorHandler(func(err error) { errs <- err }))

	err := m.Send(s.ctx, []byte(`{"type":"ping"}`))
	s.ErrorIs(err, wsmanager.ErrSendFailure)
	s.Equal(int32(3), atomic.LoadInt32(&s.srv.writes))

	// 异步帧失败通过错误回调上报
	s.Require().NoError(m.Ping())
	select {
	case err := <-errs:
		s.ErrorIs(err, wsmanager.ErrSendFailure)
	case <-time.After(waitTimeout):
		s.FailNow("async send failure not reported")
	}
}

func (s *ManagerSuite) TestQueueFull() {
	s.srv.gate = make(chan struct{})
	defer close(s.srv.gate)
	m := s.connected(WithQueueSize(1), WithWriteRetry(2, time.Millisecond))

	s.Require().NoError(m.Ping())
	// 写协程取出第一帧后阻塞在写入上
	s.Eventually(func() bool { return m.sessionQueueLen() == 0 }, waitTimeout, time.Millisecond)
	s.Require().NoError(m.Ping())
	s.ErrorIs(m.Ping(), queue.ErrQueueFull)
}

func (s *ManagerSuite) TestHeartbeat() {
	m := s.connected(WithHeartbeatInterval(10 * time.Millisecond))
	s.Equal(`{"type":"ping"}`, nextWrite(s.T(), s.srv))
	s.True(m.IsConnected())
}

func (s *ManagerSuite) TestPing() {
	m := s.newManager()
	s.NoError(m.Ping())

	s.Require().NoError(m.Connect(s.ctx, testEndpoint))
	s.Require().NoError(m.Ping())
	s.Equal(`{"type":"ping"}`, nextWrite(s.T(), s.srv))
}

func (s *ManagerSuite) TestConcurrentSubscribe() {
	m := s.connected()

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.NoError(m.Subscribe(s.ctx, exchange.ChannelTrades, fmt.Sprintf("T%d-USDC", i), func(exchange.Event) {}))
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		var frame subscribeFrame
		s.Require().NoError(Json.Unmarshal([]byte(nextWrite(s.T(), s.srv)), &frame))
		s.Equal(MethodSubscribe, frame.Method)
		s.Require().Len(frame.Params, 1)
		seen[frame.Params[0]] = true
	}
	s.Len(seen, n)
	s.Equal(n, m.table.Len())
}

func (s *ManagerSuite) TestDisconnect() {
	var closes int32
	m := s.connected(WithCloseHandler(func(string, error) { atomic.AddInt32(&closes, 1) }))
	s.Require().NoError(m.Subscribe(s.ctx, exchange.ChannelTicker, "SOL-USDC", func(exchange.Event) {}))
	nextWrite(s.T(), s.srv)

	s.Require().NoError(m.Disconnect())
	s.Equal(wsmanager.StateDisconnected, m.State())
	s.Zero(m.table.Len())
	s.Empty(m.ID())
	s.Zero(m.ConnectionDuration())
	s.NoError(m.Disconnect())

	time.Sleep(20 * time.Millisecond)
	s.Zero(atomic.LoadInt32(&closes))

	err := m.Subscribe(s.ctx, exchange.ChannelTicker, "SOL-USDC", nil)
	s.ErrorIs(err, wsmanager.ErrSubscription)
	s.ErrorIs(err, wsmanager.ErrNotConnected)
}

func (s *ManagerSuite) TestDisconnectFailsPendingSend() {
	s.srv.gate = make(chan struct{})
	m := s.connected()

	result := make(chan error, 1)
	go func() { result <- m.Send(s.ctx, []byte("x")) }()
	time.Sleep(10 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.NoError(m.Disconnect())
	}()
	close(s.srv.gate)
	<-done

	select {
	case <-result:
	case <-time.After(waitTimeout):
		s.FailNow("pending send not resolved")
	}
}

func (s *ManagerSuite) TestShutdown() {
	m := s.connected()
	s.Require().NoError(m.Shutdown())
	s.Equal(wsmanager.StateDisconnected, m.State())

	s.ErrorIs(m.Connect(s.ctx, testEndpoint), wsmanager.ErrAlreadyClosed)
	s.ErrorIs(m.Authenticate(s.ctx), wsmanager.ErrAlreadyClosed)
	s.ErrorIs(m.Subscribe(s.ctx, exchange.ChannelTicker, "SOL-USDC", nil), wsmanager.ErrAlreadyClosed)
	s.ErrorIs(m.Ping(), wsmanager.ErrAlreadyClosed)
	s.NoError(m.Disconnect())
	s.NoError(m.Shutdown())
}

func (s *ManagerSuite) TestReconnectDoesNotResubscribe() {
	second := newFakeServer()
	second.ackAuth(true, "")
	conns := []websocket.WebSocketConn{s.srv.conn(s.ctrl), second.conn(s.ctrl)}
	var dials int32

	reconnected := make(chan string, 1)
	s.m = NewManager(
		WithLogger(discardLogger()),
		WithHeartbeatInterval(0),
		WithCredentials("key", "secret"),
		WithConnFactory(func() websocket.WebSocketConn {
			return conns[atomic.AddInt32(&dials, 1)-1]
		}),
		WithReconnect(true),
		WithReconnectBackoff(5*time.Millisecond, 20*time.Millisecond),
		WithReconnectHandler(func(id string) { reconnected <- id }),
	)
	m := s.m
	s.Require().NoError(m.Connect(s.ctx, testEndpoint))
	first := m.ID()
	s.Require().NoError(m.Subscribe(s.ctx, exchange.ChannelTicker, "SOL-USDC", func(exchange.Event) {}))
	nextWrite(s.T(), s.srv)

	s.srv.readErr <- errConnReset

	select {
	case id := <-reconnected:
		s.NotEqual(first, id)
		s.Equal(id, m.ID())
	case <-time.After(waitTimeout):
		s.FailNow("not reconnected")
	}
	s.True(m.IsAuthenticated())
	s.Contains(nextWrite(s.T(), second), `"type":"auth"`)
	noWrite(s.T(), second, 50*time.Millisecond)
	// 消费者保留, 由调用方决定是否重新订阅
	s.Equal(1, m.table.Len())
}

func TestSubscriptionKey(t *testing.T) {
	key, err := subscriptionKey(exchange.ChannelUserBalances, "SOL-USDC")
	require.NoError(t, err)
	assert.Equal(t, exchange.StreamKey{Channel: exchange.ChannelUserBalances}, key)

	key, err = subscriptionKey(exchange.ChannelCandles1h, "BTC_USDC")
	require.NoError(t, err)
	assert.Equal(t, "candles1h.BTC_USDC", key.Name())
	assert.Equal(t, "BTC-USDC", key.Symbol)
}

func (m *Manager) sessionQueueLen() int {
	m.mux.Lock()
	defer m.mux.Unlock()
	if m.sess == nil {
		return -1
	}
	return m.sess.queue.Len()
}

func (s *ManagerSuite) TestWildcardRegistration() {
	m := s.connected()

	events := make(chan exchange.Event, 4)
	m.Register(exchange.ChannelTrades, "", func(evt exchange.Event) { events <- evt })
	s.srv.push(`{"stream":"trades.ETH_USDC","data":{"symbol":"ETH_USDC","id":7}}`)

	select {
	case evt := <-events:
		s.Equal("ETH-USDC", evt.Key().Symbol)
	case <-time.After(waitTimeout):
		s.FailNow("wildcard consumer not called")
	}
	noWrite(s.T(), s.srv, 20*time.Millisecond)
}
