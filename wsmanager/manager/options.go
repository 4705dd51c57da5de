package manager

import (
	"net/http"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/go-gotop/backpack/credentials"
	"github.com/go-gotop/backpack/limiter"
	"github.com/go-gotop/backpack/queue"
	"github.com/go-gotop/backpack/websocket"
	"github.com/go-gotop/backpack/websocket/gorilla"
)

const DefaultEndpoint = "wss://ws.backpack.exchange"

type ConnConfig func(*connConfig)

type connConfig struct {
	logger      *log.Helper           // 日志记录器
	connFactory websocket.ConnFactory // 传输层工厂
	header      http.Header           // 握手请求头
	connLimiter limiter.Limiter       // 连接限流器
	credentials *credentials.Credentials
	credStore   *credentials.Store // 与 REST 客户端共享的凭证

	queueSize         int           // 发送队列容量
	connectTimeout    time.Duration // 建连超时
	authTimeout       time.Duration // 等待登录应答超时
	authWindow        int64         // 签名有效窗口(毫秒)
	heartbeatInterval time.Duration // 心跳间隔, <=0 关闭
	maxConnDuration   time.Duration // 连接最长持续时间, 超过后主动重连, 0 不限制

	writeRetries int           // 写失败重试次数
	writeBackoff time.Duration // 首次重试间隔, 之后翻倍

	reconnect            bool          // 断线自动重连
	reconnectBackoff     time.Duration // 首次重连间隔
	reconnectMaxBackoff  time.Duration // 重连间隔上限
	maxReconnectAttempts int           // 0 不限制

	closeHandler     func(id string, err error)
	errorHandler     func(err error)
	reconnectHandler func(id string)
	pingHandler      func(appData string) error
	pongHandler      func(appData string) error
}

func defaultConnConfig() *connConfig {
	return &connConfig{
		logger:              log.NewHelper(log.With(log.DefaultLogger, "module", "wsmanager")),
		connFactory:         gorilla.Factory(),
		queueSize:           queue.DefaultCapacity,
		connectTimeout:      5 * time.Second,
		authTimeout:         5 * time.Second,
		authWindow:          5000,
		heartbeatInterval:   30 * time.Second,
		writeRetries:        3,
		writeBackoff:        100 * time.Millisecond,
		reconnectBackoff:    time.Second,
		reconnectMaxBackoff: 16 * time.Second,
	}
}

func WithLogger(logger log.Logger) ConnConfig {
	return func(c *connConfig) {
		c.logger = log.NewHelper(logger)
	}
}

// WithConnFactory 替换传输层, 测试中注入 mock
func WithConnFactory(f websocket.ConnFactory) ConnConfig {
	return func(c *connConfig) {
		c.connFactory = f
	}
}

func WithHeader(header http.Header) ConnConfig {
	return func(c *connConfig) {
		c.header = header
	}
}

func WithConnLimiter(connLimiter limiter.Limiter) ConnConfig {
	return func(c *connConfig) {
		c.connLimiter = connLimiter
	}
}

func WithCredentials(apiKey, secret string) ConnConfig {
	return func(c *connConfig) {
		c.credentials = &credentials.Credentials{APIKey: apiKey, Secret: secret}
	}
}

// WithCredentialStore 使用外部凭证, 优先于 WithCredentials
func WithCredentialStore(s *credentials.Store) ConnConfig {
	return func(c *connConfig) {
		c.credStore = s
	}
}

func WithQueueSize(size int) ConnConfig {
	return func(c *connConfig) {
		c.queueSize = size
	}
}

func WithConnectTimeout(d time.Duration) ConnConfig {
	return func(c *connConfig) {
		c.connectTimeout = d
	}
}

func WithAuthTimeout(d time.Duration) ConnConfig {
	return func(c *connConfig) {
		c.authTimeout = d
	}
}

func WithAuthWindow(window int64) ConnConfig {
	return func(c *connConfig) {
		c.authWindow = window
	}
}

func WithHeartbeatInterval(d time.Duration) ConnConfig {
	return func(c *connConfig) {
		c.heartbeatInterval = d
	}
}

func WithMaxConnDuration(maxConnDuration time.Duration) ConnConfig {
	return func(c *connConfig) {
		c.maxConnDuration = maxConnDuration
	}
}

func WithWriteRetry(retries int, backoff time.Duration) ConnConfig {
	return func(c *connConfig) {
		if retries < 1 {
			retries = 1
		}
		c.writeRetries = retries
		c.writeBackoff = backoff
	}
}

func WithReconnect(reconnect bool) ConnConfig {
	return func(c *connConfig) {
		c.reconnect = reconnect
	}
}

func WithReconnectBackoff(base, max time.Duration) ConnConfig {
	return func(c *connConfig) {
		c.reconnectBackoff = base
		c.reconnectMaxBackoff = max
	}
}

func WithMaxReconnectAttempts(n int) ConnConfig {
	return func(c *connConfig) {
		c.maxReconnectAttempts = n
	}
}

// WithCloseHandler 连接意外断开时调用, 每条连接最多一次. 主动断开不会调用
func WithCloseHandler(h func(id string, err error)) ConnConfig {
	return func(c *connConfig) {
		c.closeHandler = h
	}
}

// WithErrorHandler 接收解析失败, 异步发送失败和交易所推送的错误
func WithErrorHandler(h func(err error)) ConnConfig {
	return func(c *connConfig) {
		c.errorHandler = h
	}
}

// WithReconnectHandler 自动重连成功后调用. 订阅不会自动恢复
func WithReconnectHandler(h func(id string)) ConnConfig {
	return func(c *connConfig) {
		c.reconnectHandler = h
	}
}

func WithPingHandler(h func(appData string) error) ConnConfig {
	return func(c *connConfig) {
		c.pingHandler = h
	}
}

func WithPongHandler(h func(appData string) error) ConnConfig {
	return func(c *connConfig) {
		c.pongHandler = h
	}
}
