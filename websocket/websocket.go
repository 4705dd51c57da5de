package websocket

import (
	"context"
	"net/http"
)

// 与 gorilla/websocket 保持一致的消息类型
const (
	TextMessage   = 1
	BinaryMessage = 2
)

// WebSocketConn 连接管理器依赖的最小传输能力.
// ReadMessage 只能由一个读协程调用, WriteMessage 只能由一个写协程调用, Close 可并发调用
//
//go:generate mockgen -destination=mock/websocket.go -package=mock_websocket . WebSocketConn
type WebSocketConn interface {
	Dial(ctx context.Context, endpoint string, requestHeader http.Header) error
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetPingHandler(h func(appData string) error)
	SetPongHandler(h func(appData string) error)
	Close() error
}

// ConnFactory 每次建立连接时创建新的传输实例
type ConnFactory func() WebSocketConn
