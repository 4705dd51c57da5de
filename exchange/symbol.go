package exchange

import "strings"

// 客户端使用 SOL-USDC, 线上协议使用 SOL_USDC

// ToWireSymbol SOL-USDC -> SOL_USDC
func ToWireSymbol(symbol string) string {
	return strings.ReplaceAll(symbol, "-", "_")
}

// ToClientSymbol SOL_USDC -> SOL-USDC
func ToClientSymbol(symbol string) string {
	return strings.ReplaceAll(symbol, "_", "-")
}

// StreamKey 订阅键, 账户类频道的 Symbol 为空
type StreamKey struct {
	Channel Channel
	Symbol  string
}

func NewStreamKey(c Channel, symbol string) StreamKey {
	return StreamKey{Channel: c, Symbol: ToClientSymbol(symbol)}
}

// Name returns the wire stream name, e.g. "ticker.SOL_USDC" or "userOrders".
func (k StreamKey) Name() string {
	return StreamName(k.Channel, k.Symbol)
}

func (k StreamKey) String() string {
	if k.Symbol == "" {
		return string(k.Channel)
	}
	return string(k.Channel) + ":" + k.Symbol
}

func StreamName(c Channel, symbol string) string {
	if symbol == "" {
		return string(c)
	}
	return string(c) + "." + ToWireSymbol(symbol)
}

// ParseStreamName splits "<channel>.<SYMBOL>" on the first dot and returns the
// symbol in client form.
func ParseStreamName(name string) (StreamKey, bool) {
	channelPart, symbolPart, _ := strings.Cut(name, ".")
	c, ok := ParseChannel(channelPart)
	if !ok {
		return StreamKey{}, false
	}
	return StreamKey{Channel: c, Symbol: ToClientSymbol(symbolPart)}, true
}
