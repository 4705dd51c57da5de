package wsmanager

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-gotop/backpack/dispatch"
	"github.com/go-gotop/backpack/exchange"
)

// State 连接状态
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateAuthenticating
	StateAuthenticated
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateAuthenticating:
		return "AUTHENTICATING"
	case StateAuthenticated:
		return "AUTHENTICATED"
	case StateClosing:
		return "CLOSING"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// IsOpen 连接可用于收发
func (s State) IsOpen() bool {
	return s == StateConnected || s == StateAuthenticating || s == StateAuthenticated
}

var (
	ErrConnection     = errors.New("wsmanager: connection error")
	ErrAuthentication = errors.New("wsmanager: authentication failed")
	ErrAuthTimeout    = fmt.Errorf("%w: ack not received in time", ErrAuthentication)
	ErrSubscription   = errors.New("wsmanager: subscription failed")
	ErrSendFailure    = errors.New("wsmanager: send failure")
	ErrParse          = errors.New("wsmanager: malformed inbound frame")
	ErrNotConnected   = errors.New("wsmanager: not connected")
	ErrAlreadyClosed  = errors.New("wsmanager: manager already closed")
	ErrLimitExceed    = errors.New("websocket request too frequent, please try again later")
)

// ConnectionManager 管理单条 websocket 连接的生命周期、登录和订阅
type ConnectionManager interface {
	ID() string
	State() State
	IsConnected() bool
	IsAuthenticated() bool

	SetCredentials(apiKey, secret string)
	HasCredentials() bool

	Connect(ctx context.Context, endpoint string) error
	Authenticate(ctx context.Context) error
	Subscribe(ctx context.Context, channel exchange.Channel, symbol string, h dispatch.Handler) error
	Unsubscribe(ctx context.Context, channel exchange.Channel, symbol string) error
	Register(channel exchange.Channel, symbol string, h dispatch.Handler)
	RegisterCatchAll(h dispatch.Handler)

	Send(ctx context.Context, payload []byte) error
	Ping() error

	ConnectionDuration() time.Duration
	GetCurrentRate() int

	Disconnect() error
	Shutdown() error
}
