package manager

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/go-gotop/backpack/credentials"
	"github.com/go-gotop/backpack/dispatch"
	"github.com/go-gotop/backpack/exchange"
	"github.com/go-gotop/backpack/queue"
	"github.com/go-gotop/backpack/signer"
	"github.com/go-gotop/backpack/websocket"
	"github.com/go-gotop/backpack/wsmanager"
)

var _ wsmanager.ConnectionManager = (*Manager)(nil)

var errMaxConnDuration = errors.New("max connection duration reached")

// authAttempt 一次登录流程, 并发的 Authenticate 共享同一个结果
type authAttempt struct {
	done chan struct{}
	err  error
}

type retryLoop struct {
	cancel context.CancelFunc
}

// Manager 单连接管理器. 连接, 登录, 订阅和关闭都可以并发调用;
// 每条连接只有一个读协程, 一个写协程和一个心跳协程
type Manager struct {
	config *connConfig
	creds  *credentials.Store
	table  *dispatch.Table

	mux      sync.Mutex
	state    wsmanager.State
	sess     *session
	endpoint string
	auth     *authAttempt
	retry    *retryLoop
	shutdown bool

	exitCh   chan struct{}
	exitOnce sync.Once
	bg       sync.WaitGroup // 重连协程和已断开 session 的回收
}

func NewManager(opts ...ConnConfig) *Manager {
	config := defaultConnConfig()
	for _, opt := range opts {
		opt(config)
	}

	m := &Manager{
		config: config,
		creds:  credentials.NewStore(),
		state:  wsmanager.StateDisconnected,
		exitCh: make(chan struct{}),
	}
	m.table = dispatch.NewTable(dispatch.WithErrorHandler(func(err error) {
		m.config.logger.Errorf("handler failed: %v", err)
		m.reportError(err)
	}))
	if config.credStore != nil {
		m.creds = config.credStore
	} else if config.credentials != nil {
		m.creds.Set(config.credentials.APIKey, config.credentials.Secret)
	}
	return m
}

func (m *Manager) ID() string {
	m.mux.Lock()
	defer m.mux.Unlock()
	if m.sess == nil {
		return ""
	}
	return m.sess.id
}

func (m *Manager) State() wsmanager.State {
	m.mux.Lock()
	defer m.mux.Unlock()
	return m.state
}

func (m *Manager) IsConnected() bool {
	return m.State().IsOpen()
}

func (m *Manager) IsAuthenticated() bool {
	return m.State() == wsmanager.StateAuthenticated
}

// SetCredentials 替换凭证, 签名算法按 secret 自动识别
func (m *Manager) SetCredentials(apiKey, secret string) {
	m.creds.Set(apiKey, secret)
}

// SetCredentialsWithAlgorithm 指定签名算法
func (m *Manager) SetCredentialsWithAlgorithm(apiKey, secret string, alg signer.Algorithm) {
	m.creds.SetCredentials(credentials.Credentials{APIKey: apiKey, Secret: secret, Algorithm: alg})
}

func (m *Manager) HasCredentials() bool {
	return m.creds.IsValid()
}

// Register 只注册消费者, 不发送订阅帧. symbol 为空时接收该频道全部交易对的推送
func (m *Manager) Register(channel exchange.Channel, symbol string, h dispatch.Handler) {
	m.table.Register(exchange.NewStreamKey(channel, symbol), h)
}

// RegisterCatchAll 注册接收全部入站事件的消费者, 包括控制类事件
func (m *Manager) RegisterCatchAll(h dispatch.Handler) {
	m.table.RegisterCatchAll(h)
}

func (m *Manager) ConnectionDuration() time.Duration {
	m.mux.Lock()
	defer m.mux.Unlock()
	if m.sess == nil {
		return 0
	}
	return m.sess.duration()
}

func (m *Manager) GetCurrentRate() int {
	m.mux.Lock()
	defer m.mux.Unlock()
	if m.sess == nil {
		return 0
	}
	return m.sess.rate()
}

// Connect 建立连接. 已连接时直接返回 nil
func (m *Manager) Connect(ctx context.Context, endpoint string) error {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	m.mux.Lock()
	if m.shutdown {
		m.mux.Unlock()
		return wsmanager.ErrAlreadyClosed
	}
	switch m.state {
	case wsmanager.StateConnected, wsmanager.StateAuthenticating, wsmanager.StateAuthenticated:
		m.mux.Unlock()
		return nil
	case wsmanager.StateConnecting, wsmanager.StateClosing:
		state := m.state
		m.mux.Unlock()
		return fmt.Errorf("%w: connection is %s", wsmanager.ErrConnection, state)
	}
	// websocket连接频率限制
	if m.config.connLimiter != nil && !m.config.connLimiter.WsAllow() {
		m.mux.Unlock()
		return wsmanager.ErrLimitExceed
	}
	m.state = wsmanager.StateConnecting
	m.endpoint = endpoint
	m.mux.Unlock()

	conn := m.config.connFactory()
	dialCtx, cancel := context.WithTimeout(ctx, m.config.connectTimeout)
	err := conn.Dial(dialCtx, endpoint, m.config.header)
	cancel()
	if err != nil {
		m.mux.Lock()
		if m.state == wsmanager.StateConnecting {
			m.state = wsmanager.StateDisconnected
		}
		m.mux.Unlock()
		m.config.logger.Errorf("connect %s failed: %v", endpoint, err)
		return fmt.Errorf("%w: %v", wsmanager.ErrConnection, err)
	}
	m.configure(conn)

	sess := newSession(uuid.New().String(), conn, m.config.queueSize)

	m.mux.Lock()
	if m.shutdown || m.state != wsmanager.StateConnecting {
		m.mux.Unlock()
		_ = conn.Close()
		return fmt.Errorf("%w: closed while connecting", wsmanager.ErrConnection)
	}
	m.sess = sess
	m.state = wsmanager.StateConnected
	sess.wg.Add(3)
	go m.readLoop(sess)
	go m.writeLoop(sess)
	go m.heartbeat(sess)
	m.mux.Unlock()

	m.config.logger.Infof("websocket connected, id: %s, endpoint: %s", sess.id, endpoint)
	return nil
}

func (m *Manager) configure(conn websocket.WebSocketConn) {
	if m.config.pingHandler != nil {
		conn.SetPingHandler(m.config.pingHandler)
	}
	if m.config.pongHandler != nil {
		conn.SetPongHandler(m.config.pongHandler)
	}
}

// Authenticate 发送登录帧并等待应答. 未连接或凭证无效时立即返回, 不产生任何 I/O
func (m *Manager) Authenticate(ctx context.Context) error {
	m.mux.Lock()
	if m.shutdown {
		m.mux.Unlock()
		return wsmanager.ErrAlreadyClosed
	}
	switch m.state {
	case wsmanager.StateAuthenticated:
		m.mux.Unlock()
		return nil
	case wsmanager.StateAuthenticating:
		attempt := m.auth
		m.mux.Unlock()
		return m.waitAuth(ctx, attempt, nil)
	case wsmanager.StateConnected:
	default:
		m.mux.Unlock()
		return wsmanager.ErrNotConnected
	}

	if !m.creds.IsValid() {
		m.mux.Unlock()
		return fmt.Errorf("%w: %w", wsmanager.ErrAuthentication, credentials.ErrInvalidCredentials)
	}
	ts := time.Now().UnixMilli()
	apiKey, signature, err := m.creds.Sign(signer.AuthMessage(ts, m.config.authWindow))
	if err != nil {
		m.mux.Unlock()
		return fmt.Errorf("%w: %w", wsmanager.ErrAuthentication, err)
	}
	payload, err := EncodeAuth(apiKey, ts, m.config.authWindow, signature)
	if err != nil {
		m.mux.Unlock()
		return fmt.Errorf("%w: %w", wsmanager.ErrAuthentication, err)
	}

	sess := m.sess
	attempt := &authAttempt{done: make(chan struct{})}
	m.auth = attempt
	m.state = wsmanager.StateAuthenticating
	m.mux.Unlock()

	frame := queue.NewSyncFrame(payload)
	if err := m.enqueue(sess, frame); err != nil {
		m.finishAuth(attempt, fmt.Errorf("%w: %w", wsmanager.ErrAuthentication, err))
		<-attempt.done
		return attempt.err
	}
	return m.waitAuth(ctx, attempt, frame.Result)
}

func (m *Manager) waitAuth(ctx context.Context, attempt *authAttempt, written <-chan error) error {
	timer := time.NewTimer(m.config.authTimeout)
	defer timer.Stop()

	for {
		select {
		case <-attempt.done:
			return attempt.err
		case err := <-written:
			written = nil
			if err != nil {
				m.finishAuth(attempt, fmt.Errorf("%w: %w", wsmanager.ErrAuthentication, err))
			}
		case <-timer.C:
			m.finishAuth(attempt, wsmanager.ErrAuthTimeout)
		case <-ctx.Done():
			m.finishAuth(attempt, fmt.Errorf("%w: %w", wsmanager.ErrAuthentication, ctx.Err()))
		}
	}
}

// finishAuth 结束一次登录, 只有第一次调用生效
func (m *Manager) finishAuth(attempt *authAttempt, err error) {
	if attempt == nil {
		return
	}
	m.mux.Lock()
	defer m.mux.Unlock()
	if m.auth != attempt {
		return
	}
	m.auth = nil
	if m.state == wsmanager.StateAuthenticating {
		if err == nil {
			m.state = wsmanager.StateAuthenticated
		} else {
			m.state = wsmanager.StateConnected
		}
	}
	attempt.err = err
	close(attempt.done)

	if err != nil {
		m.config.logger.Warnf("websocket authenticate failed: %v", err)
	} else {
		m.config.logger.Info("websocket authenticated")
	}
}

// Subscribe 注册消费者并发送订阅帧. 私有频道在未登录时会先登录
func (m *Manager) Subscribe(ctx context.Context, channel exchange.Channel, symbol string, h dispatch.Handler) error {
	key, err := subscriptionKey(channel, symbol)
	if err != nil {
		return err
	}
	sess, state, err := m.current()
	if err != nil {
		return fmt.Errorf("%w: %s: %w", wsmanager.ErrSubscription, key, err)
	}
	if channel.IsPrivate() && state != wsmanager.StateAuthenticated {
		if err := m.Authenticate(ctx); err != nil {
			return fmt.Errorf("%w: %s requires authentication: %w", wsmanager.ErrSubscription, key, err)
		}
	}

	payload, err := EncodeSubscribe(MethodSubscribe, key)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", wsmanager.ErrSubscription, key, err)
	}
	// 先注册再发送, 避免丢掉订阅后的第一条推送
	if h != nil {
		m.table.Register(key, h)
	}
	if err := m.enqueue(sess, queue.NewFrame(payload)); err != nil {
		if h != nil {
			m.table.Unregister(key)
		}
		return fmt.Errorf("%w: %s: %w", wsmanager.ErrSubscription, key, err)
	}
	m.config.logger.Debugf("subscribe %s", key.Name())
	return nil
}

// Unsubscribe 删除消费者并发送取消订阅帧. 未连接时只删除消费者
func (m *Manager) Unsubscribe(ctx context.Context, channel exchange.Channel, symbol string) error {
	key, err := subscriptionKey(channel, symbol)
	if err != nil {
		return err
	}
	m.table.Unregister(key)

	sess, _, err := m.current()
	if err != nil {
		return fmt.Errorf("%w: %s: %w", wsmanager.ErrSubscription, key, err)
	}
	payload, err := EncodeSubscribe(MethodUnsubscribe, key)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", wsmanager.ErrSubscription, key, err)
	}
	if err := m.enqueue(sess, queue.NewFrame(payload)); err != nil {
		return fmt.Errorf("%w: %s: %w", wsmanager.ErrSubscription, key, err)
	}
	m.config.logger.Debugf("unsubscribe %s", key.Name())
	return nil
}

func subscriptionKey(channel exchange.Channel, symbol string) (exchange.StreamKey, error) {
	if !channel.IsValid() {
		return exchange.StreamKey{}, fmt.Errorf("%w: unknown channel %q", wsmanager.ErrSubscription, channel)
	}
	if channel.IsPrivate() {
		return exchange.NewStreamKey(channel, ""), nil
	}
	if strings.TrimSpace(symbol) == "" {
		return exchange.StreamKey{}, fmt.Errorf("%w: %s: %w", wsmanager.ErrSubscription, channel, exchange.ErrEmptySymbol)
	}
	return exchange.NewStreamKey(channel, symbol), nil
}

// Send 同步发送原始文本帧, 返回写入结果
func (m *Manager) Send(ctx context.Context, payload []byte) error {
	sess, _, err := m.current()
	if err != nil {
		return fmt.Errorf("%w: %w", wsmanager.ErrSendFailure, err)
	}
	frame := queue.NewSyncFrame(payload)
	if err := m.enqueue(sess, frame); err != nil {
		return fmt.Errorf("%w: %w", wsmanager.ErrSendFailure, err)
	}
	select {
	case err := <-frame.Result:
		if err != nil && !errors.Is(err, wsmanager.ErrSendFailure) {
			err = fmt.Errorf("%w: %w", wsmanager.ErrSendFailure, err)
		}
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ping 发送应用层心跳, 未连接时忽略
func (m *Manager) Ping() error {
	sess, _, err := m.current()
	if errors.Is(err, wsmanager.ErrAlreadyClosed) {
		return err
	}
	if err != nil {
		return nil
	}
	return m.enqueue(sess, queue.NewFrame(EncodePing()))
}

// Disconnect 主动断开: 停止收发协程, 清空消费者. 不会触发断线回调, 可重复调用.
// 不能在消费者回调中调用
func (m *Manager) Disconnect() error {
	m.mux.Lock()
	sess, attempt := m.detach()
	m.mux.Unlock()
	return m.teardown(sess, attempt)
}

// Shutdown 关闭管理器并等待所有后台协程退出, 之后的操作返回 ErrAlreadyClosed
func (m *Manager) Shutdown() error {
	var err error
	m.exitOnce.Do(func() {
		m.mux.Lock()
		m.shutdown = true
		sess, attempt := m.detach()
		m.mux.Unlock()

		close(m.exitCh)
		err = m.teardown(sess, attempt)
		m.bg.Wait()
		m.config.logger.Info("websocket manager shutdown")
	})
	return err
}

// detach 需持有 m.mux
func (m *Manager) detach() (*session, *authAttempt) {
	if m.retry != nil {
		m.retry.cancel()
		m.retry = nil
	}
	sess := m.sess
	m.sess = nil
	if sess != nil {
		m.state = wsmanager.StateClosing
	} else if m.state != wsmanager.StateClosing {
		m.state = wsmanager.StateDisconnected
	}
	return sess, m.auth
}

func (m *Manager) teardown(sess *session, attempt *authAttempt) error {
	m.finishAuth(attempt, wsmanager.ErrNotConnected)
	m.table.Clear()
	if sess == nil {
		return nil
	}

	if err := sess.stop(); err != nil {
		m.config.logger.Warnf("close websocket %s: %v", sess.id, err)
	}
	sess.wg.Wait()

	m.mux.Lock()
	if m.state == wsmanager.StateClosing && m.sess == nil {
		m.state = wsmanager.StateDisconnected
	}
	m.mux.Unlock()

	m.config.logger.Infof("websocket disconnected, id: %s", sess.id)
	return nil
}

func (m *Manager) current() (*session, wsmanager.State, error) {
	m.mux.Lock()
	defer m.mux.Unlock()
	if m.shutdown {
		return nil, m.state, wsmanager.ErrAlreadyClosed
	}
	if m.sess == nil || !m.state.IsOpen() {
		return nil, m.state, wsmanager.ErrNotConnected
	}
	return m.sess, m.state, nil
}

// enqueue 队列满时按退避重试, 仍然失败返回 queue.ErrQueueFull
func (m *Manager) enqueue(sess *session, f *queue.Frame) error {
	delay := m.config.writeBackoff
	for attempt := 1; ; attempt++ {
		err := sess.queue.Push(f)
		if err == nil {
			return nil
		}
		if errors.Is(err, queue.ErrClosed) {
			return wsmanager.ErrNotConnected
		}
		if attempt >= m.config.writeRetries {
			return err
		}
		timer := time.NewTimer(delay)
		select {
		case <-sess.closeCh:
			timer.Stop()
			return wsmanager.ErrNotConnected
		case <-timer.C:
		}
		delay *= 2
	}
}

func (m *Manager) readLoop(sess *session) {
	defer sess.wg.Done()
	for {
		_, msg, err := sess.conn.ReadMessage()
		if err != nil {
			if !sess.closed() {
				m.connectionLost(sess, err)
			}
			return
		}
		sess.received()
		m.handleMessage(msg)
	}
}

func (m *Manager) handleMessage(msg []byte) {
	evt, err := Decode(msg)
	if err != nil {
		m.config.logger.Warnf("drop malformed frame: %v, msg: %s", err, preview(msg))
		m.reportError(fmt.Errorf("%w: %v", wsmanager.ErrParse, err))
		return
	}

	switch e := evt.(type) {
	case *exchange.AuthAckEvent:
		m.onAuthAck(e)
	case *exchange.ErrorEvent:
		m.onErrorEvent(e)
	case *exchange.PongEvent:
		m.config.logger.Debug("pong")
	}
	m.table.Route(evt.Key(), evt)
}

func (m *Manager) onAuthAck(e *exchange.AuthAckEvent) {
	m.mux.Lock()
	attempt := m.auth
	m.mux.Unlock()
	if attempt == nil {
		m.config.logger.Debugf("unsolicited auth ack, success: %v", e.Success)
		return
	}
	if e.Success {
		m.finishAuth(attempt, nil)
		return
	}
	reason := e.Message
	if reason == "" {
		reason = "rejected by server"
	}
	m.finishAuth(attempt, fmt.Errorf("%w: %s", wsmanager.ErrAuthentication, reason))
}

// onErrorEvent 登录过程中收到的错误视为登录失败
func (m *Manager) onErrorEvent(e *exchange.ErrorEvent) {
	m.mux.Lock()
	attempt := m.auth
	m.mux.Unlock()
	if attempt != nil {
		m.finishAuth(attempt, fmt.Errorf("%w: %w", wsmanager.ErrAuthentication, e))
		return
	}
	m.config.logger.Warnf("server error: %v", e)
	m.reportError(e)
}

func (m *Manager) writeLoop(sess *session) {
	defer sess.wg.Done()
	for {
		f, ok := sess.queue.PopBlocking()
		if !ok {
			return
		}
		err := m.write(sess, f.Payload)
		f.Done(err)
		if err != nil && f.Result == nil {
			m.reportError(err)
		}
	}
}

// write 写失败按退避重试, 间隔每次翻倍
func (m *Manager) write(sess *session, payload []byte) error {
	delay := m.config.writeBackoff
	var err error
	for attempt := 1; attempt <= m.config.writeRetries; attempt++ {
		if err = sess.conn.WriteMessage(websocket.TextMessage, payload); err == nil {
			return nil
		}
		m.config.logger.Warnf("write attempt %d/%d failed: %v", attempt, m.config.writeRetries, err)
		if attempt == m.config.writeRetries {
			break
		}
		timer := time.NewTimer(delay)
		select {
		case <-sess.closeCh:
			timer.Stop()
			return fmt.Errorf("%w: %w", wsmanager.ErrSendFailure, wsmanager.ErrNotConnected)
		case <-timer.C:
		}
		delay *= 2
	}
	return fmt.Errorf("%w: after %d attempts: %v", wsmanager.ErrSendFailure, m.config.writeRetries, err)
}

// heartbeat 只负责把 ping 放入发送队列, 不直接写连接
func (m *Manager) heartbeat(sess *session) {
	defer sess.wg.Done()
	if m.config.heartbeatInterval <= 0 {
		return
	}
	ticker := time.NewTicker(m.config.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sess.closeCh:
			return
		case <-ticker.C:
			if m.config.maxConnDuration > 0 && sess.duration() > m.config.maxConnDuration {
				m.config.logger.Infof("websocket %s reached max duration %s", sess.id, m.config.maxConnDuration)
				m.connectionLost(sess, errMaxConnDuration)
				return
			}
			if err := m.enqueue(sess, queue.NewFrame(EncodePing())); err != nil {
				m.config.logger.Warnf("enqueue heartbeat failed: %v", err)
			}
		}
	}
}

// connectionLost 处理非主动断开. 同一个 session 只处理一次
func (m *Manager) connectionLost(sess *session, cause error) {
	m.mux.Lock()
	if m.sess != sess {
		m.mux.Unlock()
		_ = sess.stop()
		return
	}
	m.sess = nil
	m.state = wsmanager.StateDisconnected
	attempt := m.auth

	// 回收旧 session 的协程, Shutdown 会等待
	m.bg.Add(1)
	go func() {
		defer m.bg.Done()
		sess.wg.Wait()
	}()

	var loop *retryLoop
	var ctx context.Context
	if m.config.reconnect && m.retry == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(context.Background())
		loop = &retryLoop{cancel: cancel}
		m.retry = loop
		m.bg.Add(1)
	}
	m.mux.Unlock()

	m.finishAuth(attempt, wsmanager.ErrNotConnected)
	_ = sess.stop()
	m.config.logger.Errorf("websocket %s disconnected: %v", sess.id, cause)

	if m.config.closeHandler != nil {
		m.config.closeHandler(sess.id, cause)
	}
	if loop != nil {
		go m.reconnectLoop(ctx, loop)
	}
}

// reconnectLoop 按指数退避重连并重新登录, 不会恢复订阅
func (m *Manager) reconnectLoop(ctx context.Context, loop *retryLoop) {
	defer m.bg.Done()
	defer func() {
		m.mux.Lock()
		if m.retry == loop {
			m.retry = nil
		}
		m.mux.Unlock()
		loop.cancel()
	}()

	delay := m.config.reconnectBackoff
	for attempt := 1; ; attempt++ {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-m.exitCh:
			timer.Stop()
			return
		case <-timer.C:
		}

		m.mux.Lock()
		endpoint, state := m.endpoint, m.state
		m.mux.Unlock()
		if state != wsmanager.StateDisconnected {
			return
		}

		err := m.Connect(ctx, endpoint)
		if err == nil {
			m.mux.Lock()
			if m.retry == loop {
				m.retry = nil
			}
			m.mux.Unlock()

			if m.creds.IsValid() {
				if err := m.Authenticate(ctx); err != nil {
					m.config.logger.Warnf("authenticate after reconnect failed: %v", err)
				}
			}
			id := m.ID()
			m.config.logger.Infof("websocket reconnected, id: %s, attempt: %d", id, attempt)
			if m.config.reconnectHandler != nil {
				m.config.reconnectHandler(id)
			}
			return
		}
		if errors.Is(err, wsmanager.ErrAlreadyClosed) || ctx.Err() != nil {
			return
		}

		m.config.logger.Warnf("reconnect attempt %d failed: %v", attempt, err)
		if m.config.maxReconnectAttempts > 0 && attempt >= m.config.maxReconnectAttempts {
			m.reportError(fmt.Errorf("%w: gave up after %d reconnect attempts: %w", wsmanager.ErrConnection, attempt, err))
			return
		}
		delay *= 2
		if m.config.reconnectMaxBackoff > 0 && delay > m.config.reconnectMaxBackoff {
			delay = m.config.reconnectMaxBackoff
		}
	}
}

func (m *Manager) reportError(err error) {
	if m.config.errorHandler != nil {
		m.config.errorHandler(err)
	}
}

func preview(msg []byte) string {
	const max = 256
	if len(msg) > max {
		return string(msg[:max]) + "..."
	}
	return string(msg)
}
