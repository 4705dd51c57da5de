package exchange

// EventKind 推送事件类型
type EventKind string

const (
	EventKindTicker   EventKind = "ticker"
	EventKindTrade    EventKind = "trade"
	EventKindCandle   EventKind = "candle"
	EventKindDepth    EventKind = "depth"
	EventKindOrder    EventKind = "order"
	EventKindBalance  EventKind = "balance"
	EventKindPosition EventKind = "position"
	EventKindAuthAck  EventKind = "authAck"
	EventKindError    EventKind = "error"
	EventKindPong     EventKind = "pong"
)

// Event 是入站帧解码后的结果, 只在连接边界解码一次
type Event interface {
	Kind() EventKind
	// Key 所属的订阅键, 控制类事件为空
	Key() StreamKey
}

type TickerEvent struct {
	StreamKey StreamKey `json:"-"`
	Ticker
}

type TradeEvent struct {
	StreamKey StreamKey `json:"-"`
	Trade
}

type CandleEvent struct {
	StreamKey StreamKey `json:"-"`
	Candle
}

// DepthEvent depth 与 depthSnapshot 共用
type DepthEvent struct {
	StreamKey StreamKey `json:"-"`
	Depth
}

type OrderEvent struct {
	StreamKey StreamKey `json:"-"`
	Order
}

type BalanceEvent struct {
	StreamKey StreamKey `json:"-"`
	Balance
}

type PositionEvent struct {
	StreamKey StreamKey `json:"-"`
	Position
}

// AuthAckEvent 登录应答
type AuthAckEvent struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ErrorEvent 交易所推送的错误
type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ErrorEvent) Error() string {
	if e.Code == "" {
		return "backpack: " + e.Message
	}
	return "backpack: " + e.Code + ": " + e.Message
}

type PongEvent struct{}

func (e *TickerEvent) Kind() EventKind   { return EventKindTicker }
func (e *TradeEvent) Kind() EventKind    { return EventKindTrade }
func (e *CandleEvent) Kind() EventKind   { return EventKindCandle }
func (e *DepthEvent) Kind() EventKind    { return EventKindDepth }
func (e *OrderEvent) Kind() EventKind    { return EventKindOrder }
func (e *BalanceEvent) Kind() EventKind  { return EventKindBalance }
func (e *PositionEvent) Kind() EventKind { return EventKindPosition }
func (e *AuthAckEvent) Kind() EventKind  { return EventKindAuthAck }
func (e *ErrorEvent) Kind() EventKind    { return EventKindError }
func (e *PongEvent) Kind() EventKind     { return EventKindPong }

func (e *TickerEvent) Key() StreamKey   { return e.StreamKey }
func (e *TradeEvent) Key() StreamKey    { return e.StreamKey }
func (e *CandleEvent) Key() StreamKey   { return e.StreamKey }
func (e *DepthEvent) Key() StreamKey    { return e.StreamKey }
func (e *OrderEvent) Key() StreamKey    { return e.StreamKey }
func (e *BalanceEvent) Key() StreamKey  { return e.StreamKey }
func (e *PositionEvent) Key() StreamKey { return e.StreamKey }
func (e *AuthAckEvent) Key() StreamKey  { return StreamKey{} }
func (e *ErrorEvent) Key() StreamKey    { return StreamKey{} }
func (e *PongEvent) Key() StreamKey     { return StreamKey{} }

// NewChannelEvent 返回频道对应的空事件, 供解码使用
func NewChannelEvent(key StreamKey) (Event, bool) {
	switch {
	case key.Channel == ChannelTicker:
		return &TickerEvent{StreamKey: key}, true
	case key.Channel == ChannelTrades, key.Channel == ChannelUserTrades:
		return &TradeEvent{StreamKey: key}, true
	case key.Channel.IsCandle():
		return &CandleEvent{StreamKey: key}, true
	case key.Channel == ChannelDepth, key.Channel == ChannelDepthSnapshot:
		return &DepthEvent{StreamKey: key}, true
	case key.Channel == ChannelUserOrders:
		return &OrderEvent{StreamKey: key}, true
	case key.Channel == ChannelUserBalances:
		return &BalanceEvent{StreamKey: key}, true
	case key.Channel == ChannelUserPositions:
		return &PositionEvent{StreamKey: key}, true
	}
	return nil, false
}
