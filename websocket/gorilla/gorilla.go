package gorilla

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	gwebsocket "github.com/gorilla/websocket"

	"github.com/go-gotop/backpack/websocket"
)

var ErrNotDialed = errors.New("websocket: connection not dialed")

type Option func(*GorillaWebSocketConn)

func WithHandshakeTimeout(d time.Duration) Option {
	return func(g *GorillaWebSocketConn) { g.handshakeTimeout = d }
}

func WithReadLimit(n int64) Option {
	return func(g *GorillaWebSocketConn) { g.readLimit = n }
}

// WithWriteWait 单次写超时
func WithWriteWait(d time.Duration) Option {
	return func(g *GorillaWebSocketConn) { g.writeWait = d }
}

func NewGorillaWebSocketConn(opts ...Option) *GorillaWebSocketConn {
	g := &GorillaWebSocketConn{
		handshakeTimeout: 10 * time.Second,
		readLimit:        655350,
		writeWait:        10 * time.Second,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Factory 返回 websocket.ConnFactory
func Factory(opts ...Option) websocket.ConnFactory {
	return func() websocket.WebSocketConn {
		return NewGorillaWebSocketConn(opts...)
	}
}

// GorillaWebSocketConn 基于 gorilla/websocket 的传输实现
type GorillaWebSocketConn struct {
	mu               sync.RWMutex
	conn             *gwebsocket.Conn
	handshakeTimeout time.Duration
	readLimit        int64
	writeWait        time.Duration
}

func (g *GorillaWebSocketConn) Dial(ctx context.Context, endpoint string, requestHeader http.Header) error {
	dialer := gwebsocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: g.handshakeTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, endpoint, requestHeader)
	if err != nil {
		return err
	}
	conn.SetReadLimit(g.readLimit)

	g.mu.Lock()
	g.conn = conn
	g.mu.Unlock()
	return nil
}

func (g *GorillaWebSocketConn) get() *gwebsocket.Conn {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.conn
}

func (g *GorillaWebSocketConn) ReadMessage() (int, []byte, error) {
	conn := g.get()
	if conn == nil {
		return 0, nil, ErrNotDialed
	}
	return conn.ReadMessage()
}

func (g *GorillaWebSocketConn) WriteMessage(messageType int, data []byte) error {
	conn := g.get()
	if conn == nil {
		return ErrNotDialed
	}
	if g.writeWait > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(g.writeWait)); err != nil {
			return err
		}
	}
	return conn.WriteMessage(messageType, data)
}

func (g *GorillaWebSocketConn) SetPingHandler(h func(appData string) error) {
	if conn := g.get(); conn != nil {
		conn.SetPingHandler(h)
	}
}

func (g *GorillaWebSocketConn) SetPongHandler(h func(appData string) error) {
	if conn := g.get(); conn != nil {
		conn.SetPongHandler(h)
	}
}

// Close 先尝试发送关闭帧, 再关闭底层连接
func (g *GorillaWebSocketConn) Close() error {
	conn := g.get()
	if conn == nil {
		return nil
	}
	_ = conn.WriteControl(
		gwebsocket.CloseMessage,
		gwebsocket.FormatCloseMessage(gwebsocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return conn.Close()
}
