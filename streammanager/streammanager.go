package streammanager

import (
	"context"
	"time"

	"github.com/go-gotop/backpack/exchange"
)

type StreamRequest struct {
	Channel      exchange.Channel
	Symbol       string                   // 账户类频道可为空
	Event        func(evt exchange.Event) // 推送事件回调
	ErrorHandler func(err error)          // 回调 panic 或推送异常
}

type Stream struct {
	UUID        string
	Exchange    string
	Channel     exchange.Channel
	Symbol      string
	CreatedTime time.Time
	IsConnected bool
}

type StreamManager interface {
	Name() string
	AddStream(ctx context.Context, req *StreamRequest) (string, error)
	CloseStream(ctx context.Context, uuid string) error
	StreamList() []Stream
	Shutdown() error
}
