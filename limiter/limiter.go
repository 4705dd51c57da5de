package limiter

type LimitType string

const (
	WsConnectLimit     LimitType = "WS_CONNECT"     // websocket 建连
	OrderLimit         LimitType = "ORDER"          // 下单、撤单
	NormalRequestLimit LimitType = "NORMAL_REQUEST" // 普通请求
)

type LimiterReq struct {
	AccountId   string //  交易账户用户ID
	LimiterType LimitType
}

//go:generate mockgen -destination=mock/limiter.go -package=mock_limiter . Limiter
type Limiter interface {
	WsAllow() bool
	RestAllow(t *LimiterReq) bool
}
